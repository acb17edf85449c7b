package kpi

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/soundlens/soundlens/internal/derive"
	"github.com/soundlens/soundlens/internal/ingest"
	"github.com/soundlens/soundlens/internal/session"
)

func strPtr(s string) *string { return &s }

// play builds a derived event the way the deriver would.
func play(ts string, artist, track string, msPlayed int64) derive.Event {
	t, err := time.Parse(ingest.MinuteLayout, ts)
	if err != nil {
		panic(err)
	}
	return derive.Event{
		Event: ingest.Event{
			EndTime:    ts,
			ArtistName: strPtr(artist),
			TrackName:  strPtr(track),
			MsPlayed:   msPlayed,
		},
		Time:            t,
		Hour:            t.Hour(),
		DayOfWeek:       t.Weekday().String(),
		Month:           int(t.Month()),
		DurationMinutes: float64(msPlayed) / 60000,
	}
}

func TestCompute_EmptyIsFatal(t *testing.T) {
	_, err := Compute(nil, nil)
	if !errors.Is(err, ErrNoData) {
		t.Fatalf("expected ErrNoData, got %v", err)
	}
}

// Six events over two days, two artists, one session gap above 30 minutes.
func sixEventFixture() ([]derive.Event, []session.Aggregate) {
	events := []derive.Event{
		// 2023-05-01 is a Monday.
		play("2023-05-01 09:00", "Alpha", "Song A", 180000), // 3 min, fully played
		play("2023-05-01 09:10", "Alpha", "Song B", 120000), // 2 min
		play("2023-05-01 09:20", "Beta", "Song A", 60000),   // 1 min
		// gap > 30 min: new session
		play("2023-05-01 22:00", "Alpha", "Song C", 240000), // 4 min, fully played
		// next day
		play("2023-05-02 09:00", "Beta", "Song D", 150000), // 2.5 min, fully played
		play("2023-05-02 09:05", "Alpha", "Song A", 30000), // 0.5 min
	}
	session.Segment(events)
	return events, session.Aggregates(events)
}

func TestCompute_EndToEnd(t *testing.T) {
	events, sessions := sixEventFixture()

	s, err := Compute(events, sessions)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// 13 minutes total.
	if math.Abs(s.TotalHours-13.0/60) > 1e-9 {
		t.Errorf("TotalHours = %f, expected %f", s.TotalHours, 13.0/60)
	}
	if s.EventCount != 6 {
		t.Errorf("EventCount = %d, expected 6", s.EventCount)
	}
	if s.UniqueArtists != 2 {
		t.Errorf("UniqueArtists = %d, expected 2", s.UniqueArtists)
	}
	if s.UniqueTracks != 4 {
		t.Errorf("UniqueTracks = %d, expected 4", s.UniqueTracks)
	}
	if s.DateRangeStart != "2023-05-01" || s.DateRangeEnd != "2023-05-02" {
		t.Errorf("date range = %s..%s", s.DateRangeStart, s.DateRangeEnd)
	}

	// Hour 9 holds 3+2+1+2.5+0.5 = 9 minutes vs 4 at hour 22.
	if s.MostActiveHour != 9 {
		t.Errorf("MostActiveHour = %d, expected 9", s.MostActiveHour)
	}
	// Monday: 10 minutes, Tuesday: 3.
	if s.MostActiveDay != "Monday" {
		t.Errorf("MostActiveDay = %s, expected Monday", s.MostActiveDay)
	}
	if s.MostActiveMonth != 5 || s.LeastActiveMonth != 5 {
		t.Errorf("months = %d/%d, expected 5/5", s.MostActiveMonth, s.LeastActiveMonth)
	}
	if math.Abs(s.MostActiveMonthMinutes-13) > 1e-9 {
		t.Errorf("MostActiveMonthMinutes = %f, expected 13", s.MostActiveMonthMinutes)
	}

	// Two calendar days: 10 and 3 minutes.
	if math.Abs(s.AvgMinutesPerDay-6.5) > 1e-9 {
		t.Errorf("AvgMinutesPerDay = %f, expected 6.5", s.AvgMinutesPerDay)
	}
	// One month bucket.
	if math.Abs(s.AvgMinutesPerMonth-13) > 1e-9 {
		t.Errorf("AvgMinutesPerMonth = %f, expected 13", s.AvgMinutesPerMonth)
	}
	// Hour buckets 9 and 22: (9+4)/2.
	if math.Abs(s.AvgMinutesPerHour-6.5) > 1e-9 {
		t.Errorf("AvgMinutesPerHour = %f, expected 6.5", s.AvgMinutesPerHour)
	}

	// Alpha: 3+2+4+0.5 = 9.5; Beta: 1+2.5 = 3.5.
	if s.TopArtist != "Alpha" {
		t.Errorf("TopArtist = %s, expected Alpha", s.TopArtist)
	}
	// Song A: 3+1+0.5 = 4.5; Song C: 4.
	if s.TopTrack != "Song A" {
		t.Errorf("TopTrack = %s, expected Song A", s.TopTrack)
	}
	if len(s.TopArtists) != 2 || len(s.TopTracks) != 4 {
		t.Errorf("rankings sized %d/%d, expected 2/4", len(s.TopArtists), len(s.TopTracks))
	}
	if math.Abs(s.TopArtistsMinutes-13) > 1e-9 {
		t.Errorf("TopArtistsMinutes = %f, expected 13", s.TopArtistsMinutes)
	}
	// Largest (month, artist) group is (5, Alpha).
	if s.MonthTopArtist != "Alpha" {
		t.Errorf("MonthTopArtist = %s, expected Alpha", s.MonthTopArtist)
	}
	if s.MonthTopTrack != "Song A" {
		t.Errorf("MonthTopTrack = %s, expected Song A", s.MonthTopTrack)
	}

	// Fully played at >= 144000 ms: events 1, 4, 5.
	if s.FullyPlayed != 3 || s.PartiallyPlayed != 3 {
		t.Errorf("play split = %d/%d, expected 3/3", s.FullyPlayed, s.PartiallyPlayed)
	}

	// Three sessions: 6, 4 and 3 minutes.
	if math.Abs(s.LongestSessionMinutes-6) > 1e-9 {
		t.Errorf("LongestSessionMinutes = %f, expected 6", s.LongestSessionMinutes)
	}
	if math.Abs(s.ShortestSessionMinutes-3) > 1e-9 {
		t.Errorf("ShortestSessionMinutes = %f, expected 3", s.ShortestSessionMinutes)
	}
	if math.Abs(s.AvgSessionMinutes-13.0/3) > 1e-9 {
		t.Errorf("AvgSessionMinutes = %f, expected %f", s.AvgSessionMinutes, 13.0/3)
	}

	if math.Abs(s.WeekdayMinutes-13) > 1e-9 || s.WeekendMinutes != 0 {
		t.Errorf("weekday/weekend = %f/%f, expected 13/0", s.WeekdayMinutes, s.WeekendMinutes)
	}

	// Song A appears three times: two repeats.
	if s.TrackRepeats != 2 {
		t.Errorf("TrackRepeats = %d, expected 2", s.TrackRepeats)
	}
	// Two of seven weekdays present.
	if math.Abs(s.ConsistencyPct-2.0/7*100) > 1e-9 {
		t.Errorf("ConsistencyPct = %f, expected %f", s.ConsistencyPct, 2.0/7*100)
	}
	// Single month: no month-over-month changes.
	if s.MonthlyTrendPct != 0 {
		t.Errorf("MonthlyTrendPct = %f, expected 0", s.MonthlyTrendPct)
	}
}

func TestCompute_ConsistencyInvariants(t *testing.T) {
	events, sessions := sixEventFixture()

	s, err := Compute(events, sessions)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(s.TopArtists) == 0 || s.TopArtists[0].Name != s.TopArtist {
		t.Errorf("TopArtist %q must equal the head of TopArtists %+v", s.TopArtist, s.TopArtists)
	}
	if len(s.TopTracks) == 0 || s.TopTracks[0].Name != s.TopTrack {
		t.Errorf("TopTrack %q must equal the head of TopTracks %+v", s.TopTrack, s.TopTracks)
	}
	if math.Abs(s.FullyPlayedPct+s.PartiallyPlayedPct-100) > 1e-9 {
		t.Errorf("play percentages sum to %f, expected 100", s.FullyPlayedPct+s.PartiallyPlayedPct)
	}
}

func TestCompute_ArgmaxTieBreaks(t *testing.T) {
	// Equal totals everywhere: first-encountered artist/track wins, lowest
	// hour wins.
	events := []derive.Event{
		play("2023-05-01 08:00", "Zeta", "Z Song", 60000),
		play("2023-05-01 07:30", "Alpha", "A Song", 60000),
	}
	session.Segment(events)

	s, err := Compute(events, session.Aggregates(events))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Segmentation sorted the input, so "Alpha" (07:30) now comes first.
	if s.TopArtist != "Alpha" {
		t.Errorf("TopArtist = %s, expected first-encountered Alpha", s.TopArtist)
	}
	if s.TopTrack != "A Song" {
		t.Errorf("TopTrack = %s, expected first-encountered A Song", s.TopTrack)
	}
	if s.MostActiveHour != 7 {
		t.Errorf("MostActiveHour = %d, expected the lower hour 7", s.MostActiveHour)
	}
}

func TestCompute_NilNamesExcludedFromGroupings(t *testing.T) {
	unnamed := play("2023-05-01 10:00", "x", "x", 60000)
	unnamed.ArtistName = nil
	unnamed.TrackName = nil

	events := []derive.Event{
		play("2023-05-01 09:00", "Alpha", "Song A", 60000),
		unnamed,
	}
	session.Segment(events)

	s, err := Compute(events, session.Aggregates(events))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if s.EventCount != 2 {
		t.Errorf("EventCount = %d, nameless events still count", s.EventCount)
	}
	if s.UniqueArtists != 1 || s.UniqueTracks != 1 {
		t.Errorf("distinct counts = %d/%d, expected 1/1", s.UniqueArtists, s.UniqueTracks)
	}
	if s.TrackRepeats != 0 {
		t.Errorf("TrackRepeats = %d, expected 0", s.TrackRepeats)
	}
	// Both durations still contribute to the totals.
	if math.Abs(s.TotalHours-2.0/60) > 1e-9 {
		t.Errorf("TotalHours = %f, expected %f", s.TotalHours, 2.0/60)
	}
}

func TestCompute_MonthlyTrend(t *testing.T) {
	// May: 10 min, June: 15 min, July: 12 min.
	// Changes: +50%, -20% → mean +15%.
	events := []derive.Event{
		play("2023-05-01 10:00", "A", "T1", 600000),
		play("2023-06-01 10:00", "A", "T2", 900000),
		play("2023-07-01 10:00", "A", "T3", 720000),
	}
	session.Segment(events)

	s, err := Compute(events, session.Aggregates(events))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if math.Abs(s.MonthlyTrendPct-15) > 1e-9 {
		t.Errorf("MonthlyTrendPct = %f, expected 15", s.MonthlyTrendPct)
	}
	if s.MostActiveMonth != 6 || s.LeastActiveMonth != 5 {
		t.Errorf("months = %d/%d, expected 6/5", s.MostActiveMonth, s.LeastActiveMonth)
	}
}

func TestCompute_SingleSessionDegenerate(t *testing.T) {
	events := []derive.Event{
		play("2023-05-01 10:00", "A", "T", 120000),
	}
	session.Segment(events)

	s, err := Compute(events, session.Aggregates(events))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if s.LongestSessionMinutes != s.ShortestSessionMinutes {
		t.Errorf("single session: longest %f != shortest %f",
			s.LongestSessionMinutes, s.ShortestSessionMinutes)
	}
	if s.AvgSessionMinutes != s.LongestSessionMinutes {
		t.Errorf("single session: avg %f != longest %f",
			s.AvgSessionMinutes, s.LongestSessionMinutes)
	}
}
