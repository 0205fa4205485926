// gradgraph_fit fits a linear regression, y = slope·x + intercept, with gradient descent over a
// gradgraph graph, and reports the fitted parameters.
//
// The examples are either read from a CSV file with columns x and y (-data), or generated.
// Hyperparameters are given with -set, see -help for the list.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/gomlx/gradgraph/ml/train"
	"github.com/gomlx/gradgraph/ml/train/commandline"
	"github.com/gomlx/gradgraph/ml/train/optimizers"
	"github.com/janpfeifer/must"
	"k8s.io/klog/v2"
)

var (
	flagData      = flag.String("data", "", "CSV file with the examples, with columns x and y. If empty examples are generated.")
	flagExamples  = flag.Int("examples", 100, "Number of examples to generate, if -data is not given.")
	flagSlope     = flag.Float64("slope", 2, "Slope used to generate the examples.")
	flagIntercept = flag.Float64("intercept", -1, "Intercept used to generate the examples.")
	flagNoise     = flag.Float64("noise", 0.1, "Standard deviation of the noise added to the generated examples.")
	flagSeed      = flag.Uint64("seed", 42, "Seed for the generated examples.")
	flagProgress  = flag.Bool("progress", true, "Display a progress bar while training.")
	flagNanLogger = flag.Bool("nanlogger", false, "Check the inputs, predictions and loss for NaN or Inf values after each step.")
)

func main() {
	klog.InitFlags(nil)
	params := optimizers.AddParams(train.NewParams())
	settings := commandline.CreateSettingsFlag(params, "")
	flag.Parse()
	if err := train.ParseSettings(params, *settings); err != nil {
		klog.Exitf("Invalid -set: %+v", err)
	}
	fmt.Println(commandline.SprintSettings(params))

	var ds *dataset
	if *flagData != "" {
		ds = must.M1(readCSVFile(*flagData))
	} else {
		ds = must.M1(synthetic(*flagExamples, *flagSlope, *flagIntercept, *flagNoise, *flagSeed))
	}
	m, err := newModel(ds, params)
	if err != nil {
		klog.Exitf("Failed to build model: %+v", err)
	}
	loop, nanLogger, err := newLoop(m, params, *flagNanLogger)
	if err != nil {
		klog.Exitf("Invalid optimizer: %+v", err)
	}
	if *flagProgress {
		commandline.AttachProgressBar(loop)
	}
	loss, err := run(loop, nanLogger, params.Steps())
	if err != nil {
		klog.Errorf("Training failed: %+v", err)
		os.Exit(1)
	}
	report(m, len(ds.x), loop, loss)
}

// report prints a summary of the training and the fitted parameters.
func report(m *model, numExamples int, loop *train.Loop, loss float64) {
	fmt.Println(titleStyle.Render("Summary"))
	table := newPlainTable(lipgloss.Right, lipgloss.Left)
	table.Row("graph", m.g.Name())
	table.Row("# examples", humanize.Comma(int64(numExamples)))
	table.Row("# steps", humanize.Comma(int64(loop.LoopStep)))
	table.Row("# values", humanize.Comma(int64(m.g.NumValues())))
	table.Row("# operations", humanize.Comma(int64(m.g.NumOperations())))
	table.Row("median step time", loop.MedianTrainStepDuration().String())
	table.Row("loss (mse)", fmt.Sprintf("%.6g", loss))
	fmt.Println(table.Render())

	fmt.Println(titleStyle.Render("Parameters"))
	table = newPlainTable(lipgloss.Right, lipgloss.Right, lipgloss.Right).
		Headers("Name", "Value", "Gradient")
	for _, v := range m.g.Trainables() {
		gradient := "-"
		if v.HasGradient() {
			gradient = v.Gradient().String()
		}
		table.Row(v.Name(), v.Value().String(), gradient)
	}
	fmt.Println(table.Render())
}
