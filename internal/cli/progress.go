package cli

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"
)

// stopFunc ends a spinner and reports how long it ran. Calling it again
// returns the same duration.
type stopFunc func() time.Duration

// startSpinner shows "<label> (12s)" on w until stopped. The clock runs even
// when the spinner is hidden so callers can log the elapsed time either way.
func startSpinner(w io.Writer, enabled bool, label string) stopFunc {
	started := time.Now()

	var (
		once    sync.Once
		elapsed time.Duration
	)
	if !enabled {
		return func() time.Duration {
			once.Do(func() { elapsed = time.Since(started) })
			return elapsed
		}
	}

	bar := progressbar.NewOptions(
		-1,
		progressbar.OptionSetDescription(spinnerLabel(label, 0)),
		progressbar.OptionSetWriter(w),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionThrottle(80*time.Millisecond),
		progressbar.OptionClearOnFinish(),
	)

	stopCh := make(chan struct{})
	doneCh := make(chan struct{})
	go func() {
		defer close(doneCh)
		ticker := time.NewTicker(120 * time.Millisecond)
		defer ticker.Stop()

		shown := time.Duration(-1)
		for {
			select {
			case <-stopCh:
				_ = bar.Finish()
				return
			case now := <-ticker.C:
				if secs := now.Sub(started).Truncate(time.Second); secs != shown {
					shown = secs
					bar.Describe(spinnerLabel(label, secs))
				}
				_ = bar.Add(1)
			}
		}
	}()

	return func() time.Duration {
		once.Do(func() {
			elapsed = time.Since(started)
			close(stopCh)
			<-doneCh
		})
		return elapsed
	}
}

func spinnerLabel(label string, elapsed time.Duration) string {
	return fmt.Sprintf("%s (%s)", label, elapsed.Truncate(time.Second))
}
