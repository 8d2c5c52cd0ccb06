package ui

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/schollz/progressbar/v3"
)

// UploadBar shows bytes sent for a request body. It is an io.Writer so it
// can sit behind an io.TeeReader.
type UploadBar struct {
	bar *progressbar.ProgressBar
}

// NewUploadBar creates a byte-counting bar for total bytes.
func NewUploadBar(total int64, description string) *UploadBar {
	bar := progressbar.NewOptions64(
		total,
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "█",
			SaucerHead:    "█",
			SaucerPadding: "░",
			BarStart:      "│",
			BarEnd:        "│",
		}),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowBytes(true),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprint(os.Stderr, "\n")
		}),
		progressbar.OptionSetRenderBlankState(true),
	)
	return &UploadBar{bar: bar}
}

// Write advances the bar by len(b).
func (u *UploadBar) Write(b []byte) (int, error) {
	return u.bar.Write(b)
}

// Finish completes the bar.
func (u *UploadBar) Finish() {
	_ = u.bar.Finish()
}

var _ io.Writer = (*UploadBar)(nil)

// Spinner wraps a spinner for indeterminate waits.
type Spinner struct {
	spinner *spinner.Spinner
}

// NewSpinner creates a spinner on stderr with the given message.
func NewSpinner(message string) *Spinner {
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	s.Suffix = " " + message
	s.Writer = os.Stderr
	return &Spinner{spinner: s}
}

// Start starts the animation. Calling it on a running spinner is a no-op.
func (s *Spinner) Start() {
	s.spinner.Start()
}

// Stop stops the animation and clears the line.
func (s *Spinner) Stop() {
	s.spinner.Stop()
}
