package domain

import (
	"fmt"
	"time"
)

// Window is a half-open [Start, End) time range bounding one sync pass.
type Window struct {
	Start time.Time
	End   time.Time
}

// NewWindow builds a window, normalising both bounds to UTC.
func NewWindow(start, end time.Time) Window {
	return Window{Start: start.UTC(), End: end.UTC()}
}

// Contains reports whether t falls inside the window.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// Duration returns the window length.
func (w Window) Duration() time.Duration {
	return w.End.Sub(w.Start)
}

// Split bisects the window into n equal-duration sub-windows. The union
// of the result equals the original window; adjacent sub-windows share
// only their boundary instant. n below 1 is treated as 1.
func (w Window) Split(n int) []Window {
	if n < 1 {
		n = 1
	}
	step := w.Duration() / time.Duration(n)
	parts := make([]Window, n)
	start := w.Start
	for i := 0; i < n; i++ {
		end := start.Add(step)
		if i == n-1 {
			// The last sub-window absorbs division remainder.
			end = w.End
		}
		parts[i] = Window{Start: start, End: end}
		start = end
	}
	return parts
}

// String returns both bounds in RFC 3339, the format the OData filter uses.
func (w Window) String() string {
	return fmt.Sprintf("[%s, %s)", w.Start.Format(time.RFC3339), w.End.Format(time.RFC3339))
}
