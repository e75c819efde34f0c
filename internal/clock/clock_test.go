package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestManualClock(t *testing.T) {
	start := time.Date(2025, 12, 1, 9, 0, 0, 0, time.FixedZone("KST", 9*3600))
	c := NewManual(start)

	assert.Equal(t, time.UTC, c.Now().Location())
	assert.True(t, c.Now().Equal(start))

	got := c.Advance(90 * time.Minute)
	assert.True(t, got.Equal(start.Add(90*time.Minute)))
	assert.True(t, c.Now().Equal(got))

	c.Set(start.Add(-time.Hour))
	assert.True(t, c.Now().Equal(start.Add(-time.Hour)))
}

func TestSystemClockIsUTC(t *testing.T) {
	assert.Equal(t, time.UTC, NewSystem().Now().Location())
}

func TestMonthBounds(t *testing.T) {
	tests := []struct {
		name      string
		in        time.Time
		wantStart time.Time
		wantEnd   time.Time
	}{
		{
			name:      "december",
			in:        time.Date(2025, 12, 17, 13, 4, 5, 0, time.UTC),
			wantStart: time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC),
			wantEnd:   time.Date(2025, 12, 31, 23, 59, 59, 0, time.UTC),
		},
		{
			name:      "leap february",
			in:        time.Date(2028, 2, 1, 0, 0, 0, 0, time.UTC),
			wantStart: time.Date(2028, 2, 1, 0, 0, 0, 0, time.UTC),
			wantEnd:   time.Date(2028, 2, 29, 23, 59, 59, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end := MonthBounds(tt.in)
			assert.True(t, start.Equal(tt.wantStart), "start %s", start)
			assert.True(t, end.Equal(tt.wantEnd), "end %s", end)
		})
	}
}
