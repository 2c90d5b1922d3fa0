package conflict

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/tripline/tripline/pkg/cbdf"
)

func day(d int) time.Time {
	return time.Date(2024, time.January, d, 0, 0, 0, 0, time.UTC)
}

func TestFirstOverlap(t *testing.T) {
	holds := []Hold{
		{Identifier: "tripline:reservation:1", Window: cbdf.Window{Start: day(1), End: day(5)}},
	}

	// Jan 4 - Jan 6 overlaps the Jan 1 - Jan 5 booking
	hold := FirstOverlap(holds, cbdf.Window{Start: day(4), End: day(6)}, "")
	assert.NotNil(t, hold)
	assert.Equal(t, "tripline:reservation:1", hold.Identifier)

	// Jan 5 - Jan 8 is back-to-back with it, no overlap
	hold = FirstOverlap(holds, cbdf.Window{Start: day(5), End: day(8)}, "")
	assert.Nil(t, hold)

	// Window fully inside an existing hold
	hold = FirstOverlap(holds, cbdf.Window{Start: day(2), End: day(3)}, "")
	assert.NotNil(t, hold)

	// Window fully containing an existing hold
	hold = FirstOverlap(holds, cbdf.Window{Start: day(1), End: day(9)}, "")
	assert.NotNil(t, hold)
}

func TestFirstOverlapExcludesEditedHold(t *testing.T) {
	holds := []Hold{
		{Identifier: "tripline:reservation:1", Window: cbdf.Window{Start: day(1), End: day(5)}},
		{Identifier: "tripline:reservation:2", Window: cbdf.Window{Start: day(6), End: day(9)}},
	}

	// Editing reservation 1 must not conflict with itself
	hold := FirstOverlap(holds, cbdf.Window{Start: day(2), End: day(4)}, "tripline:reservation:1")
	assert.Nil(t, hold)

	// But it still conflicts with other holds
	hold = FirstOverlap(holds, cbdf.Window{Start: day(2), End: day(7)}, "tripline:reservation:1")
	assert.NotNil(t, hold)
	assert.Equal(t, "tripline:reservation:2", hold.Identifier)
}

func TestWindowOverlapSymmetry(t *testing.T) {
	first := cbdf.Window{Start: day(1), End: day(5)}
	second := cbdf.Window{Start: day(4), End: day(6)}
	adjacent := cbdf.Window{Start: day(5), End: day(8)}

	assert.True(t, first.Overlaps(second))
	assert.True(t, second.Overlaps(first))

	assert.False(t, first.Overlaps(adjacent))
	assert.False(t, adjacent.Overlaps(first))
}
