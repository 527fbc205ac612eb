package progress

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/trebuchet-org/uups-cli/internal/usecase"
)

// SpinnerSink reports progress on stderr with a spinner for blocking chain waits
type SpinnerSink struct {
	spinner *spinner.Spinner
	out     io.Writer
	stage   string
}

// NewSpinnerSink creates a new spinner-based progress sink
func NewSpinnerSink() *SpinnerSink {
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(os.Stderr))
	s.HideCursor = false

	return &SpinnerSink{
		spinner: s,
		out:     os.Stderr,
	}
}

// OnProgress handles progress events
func (r *SpinnerSink) OnProgress(ctx context.Context, event usecase.ProgressEvent) {
	r.stage = event.Stage

	if event.Spinner {
		r.spinner.Suffix = " " + event.Message
		if !r.spinner.Active() {
			r.spinner.Start()
		}
		return
	}

	if r.spinner.Active() {
		r.spinner.Stop()
	}
	if event.Message != "" {
		color.New(color.Faint).Fprintln(r.out, event.Message)
	}
}

// Info prints an info message
func (r *SpinnerSink) Info(message string) {
	r.pause(func() {
		color.New(color.FgCyan).Fprintln(r.out, message)
	})
}

// Error prints an error message
func (r *SpinnerSink) Error(message string) {
	r.pause(func() {
		color.New(color.FgRed).Fprintln(r.out, message)
	})
}

// Stop stops the spinner, if running
func (r *SpinnerSink) Stop() {
	if r.spinner.Active() {
		r.spinner.Stop()
	}
}

func (r *SpinnerSink) pause(print func()) {
	wasActive := r.spinner.Active()
	if wasActive {
		r.spinner.Stop()
	}
	print()
	if wasActive {
		r.spinner.Start()
	}
}

var _ usecase.ProgressSink = (*SpinnerSink)(nil)
