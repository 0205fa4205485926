package commandline

import (
	"flag"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	lgtable "github.com/charmbracelet/lipgloss/table"
	"github.com/gomlx/gradgraph/ml/train"
)

// CreateSettingsFlag creates a string flag with the given name (if empty it is set to "set") and
// a usage listing the parameters in params with their defaults. The value of the flag is meant
// to be given to train.ParseSettings after flag.Parse:
//
//	func main() {
//		params := train.NewParams()
//		settings := commandline.CreateSettingsFlag(params, "")
//		flag.Parse()
//		err := train.ParseSettings(params, *settings)
//		if err != nil { klog.Fatalf("%+v", err) }
//		fmt.Println(commandline.SprintSettings(params))
//		...
//	}
func CreateSettingsFlag(params *train.Params, flagName string) *string {
	if flagName == "" {
		flagName = "set"
	}
	parts := []string{
		`Set hyperparameters. It should be a list of elements "param=value" separated by ";". ` +
			`Elements "file:<path>" read the settings from a file. ` +
			`Current available parameters that can be set:`,
	}
	for _, key := range params.Keys() {
		value, _ := params.Get(key)
		parts = append(parts, fmt.Sprintf("%q: default value is %v", key, value))
	}
	var settings string
	flag.StringVar(&settings, flagName, "", strings.Join(parts, "\n"))
	return &settings
}

// SprintSettings pretty-prints the current hyperparameters into a table.
func SprintSettings(params *train.Params) string {
	table := newTable().Headers("Hyperparameter", "Type", "Value")
	for _, key := range params.Keys() {
		value, _ := params.Get(key)
		table.Row(key, fmt.Sprintf("%T", value), fmt.Sprintf("%v", value))
	}
	return table.String()
}

var (
	normalStyle       = lipgloss.NewStyle().Padding(0, 1)
	rightAlignedStyle = lipgloss.NewStyle().Align(lipgloss.Right).Padding(0, 1)
	headerStyle       = lipgloss.NewStyle().Bold(true).Padding(0, 1)
)

// newTable returns a table with the first column right aligned.
func newTable() *lgtable.Table {
	return lgtable.New().
		Border(lipgloss.RoundedBorder()).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == lgtable.HeaderRow:
				return headerStyle
			case col == 0:
				return rightAlignedStyle
			default:
				return normalStyle
			}
		})
}
