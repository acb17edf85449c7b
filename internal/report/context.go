// Package report renders a KPI snapshot into the natural-language context
// document the question-answering model grounds its answers in.
package report

import (
	"fmt"
	"strings"

	"github.com/soundlens/soundlens/internal/kpi"
)

// Build renders the context document. The template is fixed: every KPI
// fills exactly one slot, in the same order every run, so answer spans stay
// locatable. Degenerate values (for example a lone session making longest
// and shortest identical) are emitted verbatim, never special-cased.
func Build(s *kpi.Set) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Your listening data spans from %s to %s.\n", s.DateRangeStart, s.DateRangeEnd)
	fmt.Fprintf(&b, "You have listened for a total of %.2f hours across %d plays.\n", s.TotalHours, s.EventCount)
	fmt.Fprintf(&b, "You streamed %d unique songs and %d unique artists.\n", s.UniqueTracks, s.UniqueArtists)
	fmt.Fprintf(&b, "Your most active hour of the day is %d:00.\n", s.MostActiveHour)
	fmt.Fprintf(&b, "The most active day of the week is %s.\n", s.MostActiveDay)
	fmt.Fprintf(&b, "On average, you listen to %.2f minutes per day, %.2f minutes per month, and %.2f minutes per hour of the day.\n",
		s.AvgMinutesPerDay, s.AvgMinutesPerMonth, s.AvgMinutesPerHour)
	fmt.Fprintf(&b, "The month with the highest listening time is month %d with %.2f minutes, and the lowest is month %d.\n",
		s.MostActiveMonth, s.MostActiveMonthMinutes, s.LeastActiveMonth)
	fmt.Fprintf(&b, "Your top artist overall is %s, and your most played song is %s.\n", s.TopArtist, s.TopTrack)
	fmt.Fprintf(&b, "Your top artist by month is %s, and your top song by month is %s.\n", s.MonthTopArtist, s.MonthTopTrack)
	fmt.Fprintf(&b, "Your top 5 artists are %s, together accounting for %.2f minutes of your listening time.\n",
		joinRanking(s.TopArtists), s.TopArtistsMinutes)
	fmt.Fprintf(&b, "Your top 5 songs are %s.\n", joinRanking(s.TopTracks))
	fmt.Fprintf(&b, "Your playtime distribution is %.2f%% fully played songs (%d plays) and %.2f%% partially played songs (%d plays).\n",
		s.FullyPlayedPct, s.FullyPlayed, s.PartiallyPlayedPct, s.PartiallyPlayed)
	fmt.Fprintf(&b, "Your longest listening session lasted %.2f minutes, the shortest lasted %.2f minutes, and the average session lasted %.2f minutes.\n",
		s.LongestSessionMinutes, s.ShortestSessionMinutes, s.AvgSessionMinutes)
	fmt.Fprintf(&b, "You have listened to %.2f minutes on weekdays and %.2f minutes on weekends.\n",
		s.WeekdayMinutes, s.WeekendMinutes)
	fmt.Fprintf(&b, "You have repeated songs %d times in your dataset.\n", s.TrackRepeats)
	fmt.Fprintf(&b, "Your listening activity has been consistent at %.2f%% across the week.\n", s.ConsistencyPct)
	fmt.Fprintf(&b, "Your listening trends have changed month-to-month with %.2f%% variance in playtime.\n", s.MonthlyTrendPct)

	return b.String()
}

// joinRanking formats ranking entries as "Name (12.50 min), Name (8.00 min)".
func joinRanking(entries []kpi.RankEntry) string {
	if len(entries) == 0 {
		return "none"
	}
	parts := make([]string, len(entries))
	for i, e := range entries {
		parts[i] = fmt.Sprintf("%s (%.2f min)", e.Name, e.Minutes)
	}
	return strings.Join(parts, ", ")
}
