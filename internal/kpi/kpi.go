// Package kpi computes the summary-statistics snapshot for one pipeline
// run. Every figure is computed exactly once into a single Set so that
// everything quoting the snapshot stays mutually consistent.
package kpi

import (
	"errors"
	"sort"

	"github.com/soundlens/soundlens/internal/derive"
	"github.com/soundlens/soundlens/internal/session"
)

// ErrNoData aborts the run: with zero playable events nothing downstream
// can be computed.
var ErrNoData = errors.New("no listening data")

// fullyPlayedMs is 80% of an assumed 3-minute average track length.
const fullyPlayedMs = 144000

const dateLayout = "2006-01-02"

var weekdayOrder = []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

// RankEntry is one row of a top-N ranking.
type RankEntry struct {
	Name    string  `json:"name"`
	Minutes float64 `json:"minutes"`
}

// Set is the complete KPI snapshot for one run. Read-only after Compute.
type Set struct {
	DateRangeStart string `json:"dateRangeStart"`
	DateRangeEnd   string `json:"dateRangeEnd"`

	TotalHours    float64 `json:"totalHours"`
	EventCount    int     `json:"eventCount"`
	UniqueArtists int     `json:"uniqueArtists"`
	UniqueTracks  int     `json:"uniqueTracks"`

	MostActiveHour         int     `json:"mostActiveHour"`
	MostActiveDay          string  `json:"mostActiveDay"`
	MostActiveMonth        int     `json:"mostActiveMonth"`
	MostActiveMonthMinutes float64 `json:"mostActiveMonthMinutes"`
	LeastActiveMonth       int     `json:"leastActiveMonth"`

	AvgMinutesPerDay   float64 `json:"avgMinutesPerDay"`
	AvgMinutesPerMonth float64 `json:"avgMinutesPerMonth"`
	AvgMinutesPerHour  float64 `json:"avgMinutesPerHour"`

	TopArtist         string      `json:"topArtist"`
	TopTrack          string      `json:"topTrack"`
	TopArtists        []RankEntry `json:"topArtists"`
	TopTracks         []RankEntry `json:"topTracks"`
	TopArtistsMinutes float64     `json:"topArtistsMinutes"`
	MonthTopArtist    string      `json:"monthTopArtist"`
	MonthTopTrack     string      `json:"monthTopTrack"`

	FullyPlayed        int     `json:"fullyPlayed"`
	PartiallyPlayed    int     `json:"partiallyPlayed"`
	FullyPlayedPct     float64 `json:"fullyPlayedPct"`
	PartiallyPlayedPct float64 `json:"partiallyPlayedPct"`

	LongestSessionMinutes  float64 `json:"longestSessionMinutes"`
	ShortestSessionMinutes float64 `json:"shortestSessionMinutes"`
	AvgSessionMinutes      float64 `json:"avgSessionMinutes"`

	WeekdayMinutes float64 `json:"weekdayMinutes"`
	WeekendMinutes float64 `json:"weekendMinutes"`

	TrackRepeats    int     `json:"trackRepeats"`
	ConsistencyPct  float64 `json:"consistencyPct"`
	MonthlyTrendPct float64 `json:"monthlyTrendPct"`
}

// tally accumulates per-key totals while remembering first-encountered
// order, so argmax ties resolve deterministically to input order.
type tally struct {
	order  []string
	totals map[string]float64
}

func newTally() *tally {
	return &tally{totals: make(map[string]float64)}
}

func (t *tally) add(key string, v float64) {
	if _, ok := t.totals[key]; !ok {
		t.order = append(t.order, key)
	}
	t.totals[key] += v
}

// max returns the first-encountered key with the largest total.
func (t *tally) max() (string, float64) {
	var bestKey string
	var best float64
	for i, key := range t.order {
		if i == 0 || t.totals[key] > best {
			bestKey, best = key, t.totals[key]
		}
	}
	return bestKey, best
}

// ranked returns all entries sorted by total descending; ties keep
// first-encountered order.
func (t *tally) ranked() []RankEntry {
	entries := make([]RankEntry, len(t.order))
	for i, key := range t.order {
		entries[i] = RankEntry{Name: key, Minutes: t.totals[key]}
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Minutes > entries[j].Minutes
	})
	return entries
}

func (t *tally) mean() float64 {
	if len(t.order) == 0 {
		return 0
	}
	var sum float64
	for _, v := range t.totals {
		sum += v
	}
	return sum / float64(len(t.order))
}

// Compute derives the full KPI snapshot from a derived, segmented event set
// and its session aggregates.
func Compute(events []derive.Event, sessions []session.Aggregate) (*Set, error) {
	if len(events) == 0 {
		return nil, ErrNoData
	}

	s := &Set{EventCount: len(events)}

	artists := newTally()
	tracks := newTally()
	dates := newTally()
	var hourTotals [24]float64
	var hourSeen [24]bool
	var monthTotals [13]float64
	var monthSeen [13]bool
	dayTotals := make(map[string]float64)

	monthArtistOrder := []monthKey{}
	monthArtistTotals := make(map[monthKey]float64)
	monthTrackOrder := []monthKey{}
	monthTrackTotals := make(map[monthKey]float64)

	var totalMinutes float64
	namedTrackEvents := 0
	minTime, maxTime := events[0].Time, events[0].Time

	for _, e := range events {
		totalMinutes += e.DurationMinutes

		if e.Time.Before(minTime) {
			minTime = e.Time
		}
		if e.Time.After(maxTime) {
			maxTime = e.Time
		}

		hourTotals[e.Hour] += e.DurationMinutes
		hourSeen[e.Hour] = true
		monthTotals[e.Month] += e.DurationMinutes
		monthSeen[e.Month] = true
		dayTotals[e.DayOfWeek] += e.DurationMinutes
		dates.add(e.Time.Format(dateLayout), e.DurationMinutes)

		switch e.DayOfWeek {
		case "Saturday", "Sunday":
			s.WeekendMinutes += e.DurationMinutes
		default:
			s.WeekdayMinutes += e.DurationMinutes
		}

		if e.MsPlayed >= fullyPlayedMs {
			s.FullyPlayed++
		} else {
			s.PartiallyPlayed++
		}

		if e.ArtistName != nil {
			artists.add(*e.ArtistName, e.DurationMinutes)
			k := monthKey{e.Month, *e.ArtistName}
			if _, ok := monthArtistTotals[k]; !ok {
				monthArtistOrder = append(monthArtistOrder, k)
			}
			monthArtistTotals[k] += e.DurationMinutes
		}
		if e.TrackName != nil {
			namedTrackEvents++
			tracks.add(*e.TrackName, e.DurationMinutes)
			k := monthKey{e.Month, *e.TrackName}
			if _, ok := monthTrackTotals[k]; !ok {
				monthTrackOrder = append(monthTrackOrder, k)
			}
			monthTrackTotals[k] += e.DurationMinutes
		}
	}

	s.DateRangeStart = minTime.Format(dateLayout)
	s.DateRangeEnd = maxTime.Format(dateLayout)
	s.TotalHours = totalMinutes / 60
	s.UniqueArtists = len(artists.order)
	s.UniqueTracks = len(tracks.order)

	// Ties break to the lowest hour value.
	first := true
	for h := 0; h < 24; h++ {
		if !hourSeen[h] {
			continue
		}
		if first || hourTotals[h] > hourTotals[s.MostActiveHour] {
			s.MostActiveHour = h
			first = false
		}
	}

	// Ties break in Monday-first weekday order.
	var bestDayTotal float64
	for _, day := range weekdayOrder {
		total, ok := dayTotals[day]
		if !ok {
			continue
		}
		if s.MostActiveDay == "" || total > bestDayTotal {
			s.MostActiveDay, bestDayTotal = day, total
		}
	}

	for m := 1; m <= 12; m++ {
		if !monthSeen[m] {
			continue
		}
		if s.MostActiveMonth == 0 || monthTotals[m] > s.MostActiveMonthMinutes {
			s.MostActiveMonth = m
			s.MostActiveMonthMinutes = monthTotals[m]
		}
		if s.LeastActiveMonth == 0 || monthTotals[m] < monthTotals[s.LeastActiveMonth] {
			s.LeastActiveMonth = m
		}
	}

	s.AvgMinutesPerDay = dates.mean()
	s.AvgMinutesPerMonth = meanBuckets(monthTotals[:], monthSeen[:])
	s.AvgMinutesPerHour = meanBuckets(hourTotals[:], hourSeen[:])

	s.TopArtist, _ = artists.max()
	s.TopTrack, _ = tracks.max()
	s.TopArtists = topN(artists.ranked(), 5)
	s.TopTracks = topN(tracks.ranked(), 5)
	for _, e := range s.TopArtists {
		s.TopArtistsMinutes += e.Minutes
	}

	s.MonthTopArtist = maxMonthKey(monthArtistOrder, monthArtistTotals)
	s.MonthTopTrack = maxMonthKey(monthTrackOrder, monthTrackTotals)

	s.FullyPlayedPct = float64(s.FullyPlayed) / float64(s.EventCount) * 100
	s.PartiallyPlayedPct = 100 - s.FullyPlayedPct

	for i, agg := range sessions {
		if i == 0 || agg.TotalMinutes > s.LongestSessionMinutes {
			s.LongestSessionMinutes = agg.TotalMinutes
		}
		if i == 0 || agg.TotalMinutes < s.ShortestSessionMinutes {
			s.ShortestSessionMinutes = agg.TotalMinutes
		}
		s.AvgSessionMinutes += agg.TotalMinutes
	}
	if len(sessions) > 0 {
		s.AvgSessionMinutes /= float64(len(sessions))
	}

	s.TrackRepeats = namedTrackEvents - s.UniqueTracks
	s.ConsistencyPct = float64(len(dayTotals)) / 7 * 100
	s.MonthlyTrendPct = monthlyTrend(monthTotals[:], monthSeen[:])

	return s, nil
}

// monthKey groups totals by (month, name) for the per-month rankings.
type monthKey struct {
	month int
	name  string
}

// maxMonthKey returns the name from the first-encountered (month, name)
// group with the largest total, mirroring a global argmax over the pairs.
func maxMonthKey(order []monthKey, totals map[monthKey]float64) string {
	var bestName string
	var best float64
	for i, k := range order {
		if i == 0 || totals[k] > best {
			bestName, best = k.name, totals[k]
		}
	}
	return bestName
}

func topN(entries []RankEntry, n int) []RankEntry {
	if len(entries) > n {
		entries = entries[:n]
	}
	return entries
}

func meanBuckets(totals []float64, seen []bool) float64 {
	var sum float64
	count := 0
	for i, ok := range seen {
		if ok {
			sum += totals[i]
			count++
		}
	}
	if count == 0 {
		return 0
	}
	return sum / float64(count)
}

// monthlyTrend is the mean month-over-month percent change of monthly
// totals, in month order. A previous month with zero total is skipped
// rather than divided by; fewer than two months yields 0.
func monthlyTrend(totals []float64, seen []bool) float64 {
	prev := -1
	var sum float64
	count := 0
	for m := 1; m < len(totals); m++ {
		if !seen[m] {
			continue
		}
		if prev >= 0 && totals[prev] != 0 {
			sum += (totals[m] - totals[prev]) / totals[prev] * 100
			count++
		}
		prev = m
	}
	if count == 0 {
		return 0
	}
	return sum / float64(count)
}
