package cbdf

import "time"

// Window is a half-open time interval [Start, End) during which a resource
// is held.
type Window struct {
	Start time.Time `groups:"basic"`
	End   time.Time `groups:"basic"`
}

// Overlaps reports whether two half-open windows intersect. Back-to-back
// windows (one ending exactly when the other starts) do not overlap.
func (w Window) Overlaps(other Window) bool {
	return w.Start.Before(other.End) && w.End.After(other.Start)
}

func (w Window) HasStarted(now time.Time) bool {
	return !now.Before(w.Start)
}

func (w Window) HasElapsed(now time.Time) bool {
	return !now.Before(w.End)
}

func (w Window) IsValid() bool {
	return w.End.After(w.Start)
}
