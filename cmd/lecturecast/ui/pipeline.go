package ui

import (
	"os"

	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"

	"github.com/spherical/lecturecast/internal/domain"
)

var stageNames = map[domain.RunState]string{
	domain.StateScripting:    "Scripting",
	domain.StateSynthesizing: "Synthesizing",
}

// PipelineProgress renders run events: a spinner while pages are extracted, then one
// bar per page stage. Without a terminal it falls back to plain step lines.
type PipelineProgress struct {
	ui          *UI
	interactive bool
	spinner     *Spinner
	progress    *mpb.Progress
	bars        map[domain.RunState]*mpb.Bar
	done        map[domain.RunState]int
	total       int
}

// NewPipelineProgress creates a progress display for one run.
func (ui *UI) NewPipelineProgress() *PipelineProgress {
	return &PipelineProgress{
		ui:          ui,
		interactive: ui.Interactive(),
		bars:        make(map[domain.RunState]*mpb.Bar),
		done:        make(map[domain.RunState]int),
	}
}

// Consume handles events until the channel is closed.
func (p *PipelineProgress) Consume(events <-chan domain.StreamEvent) {
	for evt := range events {
		p.Handle(evt)
	}
}

// Handle updates the display for one event.
func (p *PipelineProgress) Handle(evt domain.StreamEvent) {
	if evt.TotalPages > 0 {
		p.total = evt.TotalPages
	}

	switch evt.Type {
	case domain.EventStart:
		p.ui.Step("Processing %v", evt.Payload)

	case domain.EventStateChange:
		p.stopSpinner()
		switch evt.State {
		case domain.StateExtracting:
			if p.interactive {
				p.spinner = NewSpinner("Extracting pages...")
				p.spinner.Start()
			} else {
				p.ui.Step("Extracting pages")
			}
		case domain.StateScripting, domain.StateSynthesizing:
			p.completeBars()
			p.startStage(evt.State)
		case domain.StateComplete:
			p.completeBars()
		}

	case domain.EventPageComplete:
		p.done[evt.State]++
		if bar := p.bars[evt.State]; bar != nil {
			bar.Increment()
		} else {
			p.ui.Debug("%s page %d/%d", stageNames[evt.State], evt.PageNumber, p.total)
		}

	case domain.EventError:
		p.stopSpinner()
		for _, bar := range p.bars {
			bar.Abort(false)
		}
	}
}

// Done returns how many pages finished the given stage.
func (p *PipelineProgress) Done(state domain.RunState) int {
	return p.done[state]
}

// Close stops every animation and waits for the bars to render their final state.
func (p *PipelineProgress) Close() {
	p.stopSpinner()
	if p.progress != nil {
		for _, bar := range p.bars {
			if !bar.Completed() {
				bar.Abort(false)
			}
		}
		p.progress.Wait()
	}
}

func (p *PipelineProgress) startStage(state domain.RunState) {
	name := stageNames[state]
	if !p.interactive {
		p.ui.Step("%s %d pages", name, p.total)
		return
	}
	if p.progress == nil {
		p.progress = mpb.New(mpb.WithWidth(64), mpb.WithOutput(os.Stderr))
	}

	p.bars[state] = p.progress.AddBar(int64(p.total),
		mpb.PrependDecorators(
			decor.Name(name, decor.WC{W: len(name) + 1, C: decor.DSyncSpaceR}),
			decor.CountersNoUnit("%d / %d", decor.WCSyncWidth),
		),
		mpb.AppendDecorators(
			decor.Percentage(decor.WC{W: 5}),
			decor.Elapsed(decor.ET_STYLE_GO, decor.WC{W: 12}),
			decor.OnComplete(
				decor.AverageETA(decor.ET_STYLE_GO, decor.WC{W: 12}),
				" done",
			),
		),
	)
}

// completeBars marks finished stages complete even when some events were dropped.
func (p *PipelineProgress) completeBars() {
	for _, bar := range p.bars {
		if !bar.Completed() {
			bar.SetTotal(-1, true)
		}
	}
}

func (p *PipelineProgress) stopSpinner() {
	if p.spinner != nil {
		p.spinner.Stop()
		p.spinner = nil
	}
}
