package payout

import (
	"time"

	"github.com/dairyops/backend/internal/domain/shared"
)

// Period is an inclusive range of calendar days in UTC
type Period struct {
	Start time.Time
	End   time.Time
}

// NewPeriod truncates both bounds to their calendar day
func NewPeriod(start, end time.Time) (Period, error) {
	p := Period{Start: truncateDay(start), End: truncateDay(end)}
	if p.Start.IsZero() || p.End.IsZero() {
		return Period{}, shared.ErrInvalidPeriod
	}
	if p.End.Before(p.Start) {
		return Period{}, shared.ErrInvalidPeriod
	}
	return p, nil
}

// EndExclusive returns the first instant after the period
func (p Period) EndExclusive() time.Time {
	return p.End.AddDate(0, 0, 1)
}

// Contains reports whether t falls on a day of the period
func (p Period) Contains(t time.Time) bool {
	return !t.Before(p.Start) && t.Before(p.EndExclusive())
}

func truncateDay(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
