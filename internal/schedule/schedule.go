// Package schedule runs a job once a day at a fixed wall-clock time.
package schedule

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

var ErrInvalidClock = errors.New("schedule: invalid time of day")

// Clock is a wall-clock time of day.
type Clock struct {
	Hour   int
	Minute int
}

// ParseClock parses "HH:MM" in 24h notation.
func ParseClock(s string) (Clock, error) {
	h, m, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return Clock{}, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}
	hour, err := strconv.Atoi(h)
	if err != nil || hour < 0 || hour > 23 {
		return Clock{}, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}
	minute, err := strconv.Atoi(m)
	if err != nil || minute < 0 || minute > 59 || len(m) != 2 {
		return Clock{}, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}
	return Clock{Hour: hour, Minute: minute}, nil
}

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

// Next returns the first instant strictly after now at which the clock reads c
// in loc.
func (c Clock) Next(now time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	now = now.In(loc)
	next := time.Date(now.Year(), now.Month(), now.Day(), c.Hour, c.Minute, 0, 0, loc)
	if !next.After(now) {
		next = time.Date(now.Year(), now.Month(), now.Day()+1, c.Hour, c.Minute, 0, 0, loc)
	}
	return next
}

// Daily triggers a job every day at a fixed time. Runs never overlap: the job
// is called synchronously and the next trigger is computed after it returns.
type Daily struct {
	at     Clock
	loc    *time.Location
	job    func(context.Context)
	logger *zap.Logger

	now   func() time.Time
	after func(time.Duration) <-chan time.Time
}

func NewDaily(at Clock, loc *time.Location, job func(context.Context), logger *zap.Logger) *Daily {
	if loc == nil {
		loc = time.Local
	}
	return &Daily{
		at:     at,
		loc:    loc,
		job:    job,
		logger: logger.Named("schedule"),
		now:    time.Now,
		after:  time.After,
	}
}

// Run blocks until ctx is cancelled.
func (d *Daily) Run(ctx context.Context) error {
	for {
		now := d.now()
		next := d.at.Next(now, d.loc)
		d.logger.Info("Next run scheduled", zap.Time("at", next))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-d.after(next.Sub(now)):
		}

		if ctx.Err() != nil {
			return ctx.Err()
		}
		d.job(ctx)
	}
}
