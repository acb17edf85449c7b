// Package derive turns canonical listening events into derived events
// carrying the calendar features the aggregation stages consume.
package derive

import (
	"errors"
	"log/slog"
	"time"

	"github.com/soundlens/soundlens/internal/ingest"
)

// ErrInvalidTimestamp marks a single record whose end time cannot be
// parsed. The record is dropped; the batch continues.
var ErrInvalidTimestamp = errors.New("invalid timestamp")

// Event is a canonical event enriched with derived features. SessionID is
// zero until the segmenter assigns it.
type Event struct {
	ingest.Event
	Time            time.Time
	Hour            int    // 0–23
	DayOfWeek       string // "Monday" … "Sunday"
	Month           int    // 1–12
	DurationMinutes float64
	SessionID       int
}

// Derive filters and enriches canonical events. Events with msPlayed <= 0
// carry no listening signal and are removed before anything else; events
// whose timestamp does not parse are dropped individually.
func Derive(events []ingest.Event, logger *slog.Logger) []Event {
	derived := make([]Event, 0, len(events))
	for _, e := range events {
		if e.MsPlayed <= 0 {
			continue
		}
		t, err := ParseEndTime(e.EndTime)
		if err != nil {
			logger.Debug("dropping event with bad timestamp", "endTime", e.EndTime, "error", err)
			continue
		}
		derived = append(derived, Event{
			Event:           e,
			Time:            t,
			Hour:            t.Hour(),
			DayOfWeek:       t.Weekday().String(),
			Month:           int(t.Month()),
			DurationMinutes: float64(e.MsPlayed) / 60000,
		})
	}
	return derived
}

// ParseEndTime parses a canonical minute-precision timestamp. RFC3339 is
// accepted as a fallback for legacy exports that carry full timestamps.
func ParseEndTime(s string) (time.Time, error) {
	if t, err := time.Parse(ingest.MinuteLayout, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Time{}, ErrInvalidTimestamp
}
