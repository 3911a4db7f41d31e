package schedule

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestParseClock(t *testing.T) {
	tests := []struct {
		in      string
		want    Clock
		wantErr bool
	}{
		{in: "21:30", want: Clock{21, 30}},
		{in: "08:00", want: Clock{8, 0}},
		{in: " 0:05 ", want: Clock{0, 5}},
		{in: "24:00", wantErr: true},
		{in: "12:60", wantErr: true},
		{in: "12:5", wantErr: true},
		{in: "noon", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseClock(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidClock)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClockNext(t *testing.T) {
	c := Clock{21, 30}
	before := time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 10, 15, 21, 30, 0, 0, time.UTC), c.Next(before, time.UTC))

	exact := time.Date(2026, 10, 15, 21, 30, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 10, 16, 21, 30, 0, 0, time.UTC), c.Next(exact, time.UTC))

	monthEnd := time.Date(2026, 10, 31, 22, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 11, 1, 21, 30, 0, 0, time.UTC), c.Next(monthEnd, time.UTC))
}

func TestClockNext_AcrossDSTChange(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Berlin")
	if err != nil {
		t.Skip("tzdata unavailable")
	}
	// Clocks go back on 2026-10-25 in Berlin.
	now := time.Date(2026, 10, 24, 22, 0, 0, 0, loc)
	next := Clock{8, 0}.Next(now, loc)
	assert.Equal(t, 8, next.Hour())
	assert.Equal(t, 25, next.Day())
}

func TestDaily_RunsUntilCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runs := 0
	d := NewDaily(Clock{8, 0}, time.UTC, func(context.Context) {
		runs++
		if runs == 3 {
			cancel()
		}
	}, zap.NewNop())

	var waits []time.Duration
	d.now = func() time.Time { return time.Now() }
	d.after = func(dur time.Duration) <-chan time.Time {
		waits = append(waits, dur)
		ch := make(chan time.Time, 1)
		ch <- time.Now()
		return ch
	}

	err := d.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 3, runs)
	assert.Len(t, waits, 4)
	for _, w := range waits {
		assert.LessOrEqual(t, w, 24*time.Hour)
	}
}

func TestDaily_CancelBeforeTrigger(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	d := NewDaily(Clock{8, 0}, time.UTC, func(context.Context) {
		t.Fatal("job must not run")
	}, zap.NewNop())

	assert.ErrorIs(t, d.Run(ctx), context.Canceled)
}

func TestDaily_WaitsFromInjectedClock(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	d := NewDaily(Clock{8, 0}, time.UTC, func(context.Context) { cancel() }, zap.NewNop())
	d.now = func() time.Time { return time.Date(2026, 10, 15, 7, 0, 0, 0, time.UTC) }

	var waits []time.Duration
	d.after = func(dur time.Duration) <-chan time.Time {
		waits = append(waits, dur)
		ch := make(chan time.Time, 1)
		ch <- time.Time{}
		return ch
	}

	assert.ErrorIs(t, d.Run(ctx), context.Canceled)
	require.NotEmpty(t, waits)
	assert.Equal(t, time.Hour, waits[0])
}
