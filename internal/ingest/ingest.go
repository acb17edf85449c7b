package ingest

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrUnknownFormat is returned when a batch matches neither export schema.
// The caller skips the batch; sibling batches are unaffected.
var ErrUnknownFormat = errors.New("unknown export format")

// MinuteLayout is the canonical minute-precision timestamp layout.
const MinuteLayout = "2006-01-02 15:04"

// DetectFormat classifies a batch from its first record. Format is a
// batch-level decision: exports are homogeneous, so the first record speaks
// for the whole batch. Keys are probed for presence, not value; a null
// track name still counts as the field being there.
func DetectFormat(first map[string]json.RawMessage) Format {
	if _, ok := first["ts"]; ok {
		if _, ok := first["master_metadata_track_name"]; ok {
			return FormatExtended
		}
	}
	if _, ok := first["endTime"]; ok {
		if _, ok := first["trackName"]; ok {
			return FormatLegacy
		}
	}
	return FormatUnknown
}

// ParseBatch parses one export file's content (a JSON array of records in
// either schema) into canonical events. An empty or unrecognized batch
// returns ErrUnknownFormat.
func ParseBatch(data []byte) ([]Event, error) {
	var probe []map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("parse export: %w", err)
	}
	if len(probe) == 0 {
		return nil, fmt.Errorf("%w: empty batch", ErrUnknownFormat)
	}

	switch DetectFormat(probe[0]) {
	case FormatLegacy:
		var records []legacyRecord
		if err := json.Unmarshal(data, &records); err != nil {
			return nil, fmt.Errorf("parse legacy export: %w", err)
		}
		return convertLegacy(records), nil
	case FormatExtended:
		var records []extendedRecord
		if err := json.Unmarshal(data, &records); err != nil {
			return nil, fmt.Errorf("parse extended export: %w", err)
		}
		return convertExtended(records), nil
	default:
		return nil, ErrUnknownFormat
	}
}

func convertLegacy(records []legacyRecord) []Event {
	events := make([]Event, len(records))
	for i, r := range records {
		events[i] = Event{
			EndTime:    r.EndTime,
			ArtistName: r.ArtistName,
			TrackName:  r.TrackName,
			MsPlayed:   r.MsPlayed,
		}
	}
	return events
}

func convertExtended(records []extendedRecord) []Event {
	events := make([]Event, len(records))
	for i, r := range records {
		events[i] = Event{
			EndTime:    truncateToMinute(r.TS),
			ArtistName: r.ArtistName,
			TrackName:  r.TrackName,
			MsPlayed:   r.MsPlayed,
		}
	}
	return events
}

// truncateToMinute reformats an RFC3339 timestamp to minute precision.
// Unparseable timestamps pass through untouched; the deriver rejects them
// record by record rather than failing the batch here.
func truncateToMinute(ts string) string {
	t, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		return ts
	}
	return t.Format(MinuteLayout)
}
