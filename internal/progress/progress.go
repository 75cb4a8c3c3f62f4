// Package progress provides spinners for remote transfers.
package progress

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/tabsync/tabsync/internal/logging"
	"github.com/tabsync/tabsync/internal/ui"
)

// Spinner wraps an indeterminate progress bar shown around a remote
// operation. It renders only when stderr is a terminal and colors are
// enabled; otherwise the start and end are logged at debug level instead.
type Spinner struct {
	bar     *progressbar.ProgressBar
	enabled bool
	desc    string
}

// Start creates and begins a spinner with the given description.
func Start(desc string) *Spinner {
	s := &Spinner{
		desc:    desc,
		enabled: shouldShow(os.Stderr),
	}

	if !s.enabled {
		logging.Debug(fmt.Sprintf("%s started", desc))
		return s
	}

	s.bar = progressbar.NewOptions64(-1,
		progressbar.OptionSetDescription(desc),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionThrottle(65*time.Millisecond),
		progressbar.OptionEnableColorCodes(ui.IsColorEnabled()),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprint(os.Stderr, "\n")
		}),
	)

	return s
}

// Finish stops the spinner.
func (s *Spinner) Finish() {
	if !s.enabled {
		logging.Debug(fmt.Sprintf("%s completed", s.desc))
		return
	}
	_ = s.bar.Finish()
	_ = s.bar.Clear()
}

// shouldShow reports whether a spinner may render on w.
func shouldShow(w io.Writer) bool {
	if !ui.IsColorEnabled() {
		return false
	}
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	stat, err := f.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) != 0
}
