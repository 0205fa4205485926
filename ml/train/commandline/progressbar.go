/*
 *	Copyright 2023 Jan Pfeifer
 *
 *	Licensed under the Apache License, Version 2.0 (the "License");
 *	you may not use this file except in compliance with the License.
 *	You may obtain a copy of the License at
 *
 *	http://www.apache.org/licenses/LICENSE-2.0
 *
 *	Unless required by applicable law or agreed to in writing, software
 *	distributed under the License is distributed on an "AS IS" BASIS,
 *	WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 *	See the License for the specific language governing permissions and
 *	limitations under the License.
 */

// Package commandline contains convenience UI training tools for the command line.
package commandline

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	lgtable "github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"github.com/gomlx/gradgraph/ml/train"
	"github.com/muesli/termenv"
	"github.com/schollz/progressbar/v3"
)

// progressBar holds a progressbar being displayed.
type progressBar struct {
	out              io.Writer
	numSteps         int
	lastStepReported int
	bar              *progressbar.ProgressBar

	// lipgloss-based rich and asynchronous display of the loss.
	termenv          *termenv.Output
	statsStyle       lipgloss.Style
	statsTable       *lgtable.Table
	isFirstOutput    bool
	updates          chan progressBarUpdate
	asyncUpdatesDone sync.WaitGroup
}

type progressBarUpdate struct {
	amount int
	step   string
	loss   string
}

// maxUpdateFrequency is the time between updates to the commandline display of stats.
const maxUpdateFrequency = time.Millisecond * 200

// ProgressBarName is the name of the hooks registered by AttachProgressBar.
const ProgressBarName = "gradgraph.ml.train.commandline.progressBar"

func (pBar *progressBar) onStart(loop *train.Loop) error {
	pBar.lastStepReported = loop.LoopStep
	pBar.numSteps = loop.EndStep - loop.StartStep
	pBar.isFirstOutput = true
	pBar.bar = progressbar.NewOptions(pBar.numSteps,
		progressbar.OptionSetDescription(fmt.Sprintf("Training (%s steps): ", humanize.Comma(int64(pBar.numSteps)))),
		progressbar.OptionUseANSICodes(true),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("steps"),
		progressbar.OptionSetTheme(progressbar.ThemeUnicode),
		progressbar.OptionSetWriter(pBar.out),
	)
	pBar.updates = make(chan progressBarUpdate, 100) // Large buffer so training is not blocked.
	pBar.asyncUpdatesDone.Add(1)
	go pBar.drawUpdates()
	return nil
}

// drawUpdates asynchronously: training is often faster than the terminal.
func (pBar *progressBar) drawUpdates() {
	defer pBar.asyncUpdatesDone.Done()
	for update := range pBar.updates {
		// Exhaust the updates in buffer.
		amount := update.amount
	exhaust:
		for {
			select {
			case newUpdate, ok := <-pBar.updates:
				if !ok {
					break exhaust
				}
				amount += newUpdate.amount
				update = newUpdate
			default:
				break exhaust
			}
		}

		// Clear the previous lines that will be overwritten: progress bar and the table.
		if !pBar.isFirstOutput {
			pBar.termenv.ClearLines(2 + 2 + 1)
		}
		pBar.isFirstOutput = false

		_ = pBar.bar.Add(amount)
		pBar.statsTable.Data(lgtable.NewStringData())
		_, _ = fmt.Fprintln(pBar.out)
		pBar.statsTable.Row("Step", update.step)
		pBar.statsTable.Row("Loss", update.loss)
		_, _ = fmt.Fprintln(pBar.out, pBar.statsStyle.Render(pBar.statsTable.String()))
		time.Sleep(maxUpdateFrequency)
	}
}

func (pBar *progressBar) onStep(loop *train.Loop, loss float64) error {
	if pBar.bar.IsFinished() {
		return nil
	}
	amount := loop.LoopStep + 1 - pBar.lastStepReported // +1 because the current LoopStep is finished.
	if amount <= 0 {
		return nil
	}
	pBar.updates <- progressBarUpdate{
		amount: amount,
		step:   fmt.Sprintf("%s / %s", humanize.Comma(int64(loop.LoopStep+1)), humanize.Comma(int64(loop.EndStep))),
		loss:   fmt.Sprintf("%.6g", loss),
	}
	pBar.lastStepReported = loop.LoopStep + 1
	return nil
}

func (pBar *progressBar) onEnd(_ *train.Loop, _ float64) error {
	if pBar.updates != nil {
		close(pBar.updates)
	}
	pBar.asyncUpdatesDone.Wait()
	pBar.updates = nil
	_, _ = fmt.Fprintln(pBar.out)
	return nil
}

// AttachProgressBar creates a commandline progress bar on stdout and attaches it to the Loop, so that
// everytime the Loop is run it will display a progress bar with the step and the loss.
func AttachProgressBar(loop *train.Loop) {
	AttachProgressBarTo(loop, os.Stdout)
}

// AttachProgressBarTo is like AttachProgressBar, but writes to out.
func AttachProgressBarTo(loop *train.Loop, out io.Writer) {
	pBar := &progressBar{
		out:        out,
		termenv:    termenv.NewOutput(out),
		statsStyle: lipgloss.NewStyle().PaddingLeft(8),
		statsTable: newTable(),
	}
	loop.OnStart(ProgressBarName, 0, pBar.onStart)
	// Run at most 1000 times during the loop, or at least every 3 seconds.
	train.NTimesDuringLoop(loop, 1000, ProgressBarName, 0, pBar.onStep)
	train.PeriodicCallback(loop, 3*time.Second, false, ProgressBarName, 0, pBar.onStep)
	loop.OnEnd(ProgressBarName, 0, pBar.onEnd)
}
