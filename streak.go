package main

import (
	"fmt"
	"slices"
	"time"
)

// defaultTimezone anchors day boundaries for users who never set a timezone.
// Matches the default on new profiles.
const defaultTimezone = "Asia/Kolkata"

// streakColorTiers maps minimum streak lengths to display color tokens, checked
// from the highest threshold down. This is the single source of truth for the
// color ramp — also used by the tier tests.
var streakColorTiers = []struct {
	min   int
	color string
}{
	{7, "purple"},
	{3, "green"},
	{1, "orange"},
	{0, "gray"},
}

// userLocation resolves an IANA timezone identifier, defaulting to
// defaultTimezone when empty. An unknown identifier is returned as an error
// rather than silently falling back — a wrong zone would shift the user's day
// boundaries without any visible symptom, so callers should treat this as a
// configuration defect.
func userLocation(tz string) (*time.Location, error) {
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", tz, err)
	}
	return loc, nil
}

// civilDay projects an instant onto its calendar date in loc: midnight local
// time with no time-of-day component. Two meals belong to the same civil day
// exactly when their civilDay values are equal.
func civilDay(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// mealStreak returns the number of consecutive civil days, ending at now's
// civil day in loc, that contain at least one meal timestamp. Today counts as
// day 1; if today has no meal the streak is 0 no matter how long the historic
// run is. Duplicate meals on a day collapse to one. Zero-value timestamps
// (upstream records whose timestamp failed to parse) are skipped so one corrupt
// record cannot disable streak tracking.
//
// now is taken as a parameter rather than read from the clock so a single
// request evaluates against one "today" even if it straddles midnight, and so
// tests can pin the date.
func mealStreak(timestamps []time.Time, now time.Time, loc *time.Location) int {
	// Collapse to the set of distinct civil days.
	uniq := make(map[time.Time]struct{}, len(timestamps))
	for _, ts := range timestamps {
		if ts.IsZero() {
			continue
		}
		uniq[civilDay(ts, loc)] = struct{}{}
	}
	if len(uniq) == 0 {
		return 0
	}

	// Most recent first.
	days := make([]time.Time, 0, len(uniq))
	for d := range uniq {
		days = append(days, d)
	}
	slices.SortFunc(days, func(a, b time.Time) int { return b.Compare(a) })

	today := civilDay(now, loc)
	if !days[0].Equal(today) {
		return 0
	}

	// Walk backward from today; stop at the first gap. AddDate handles
	// month/year boundaries and DST transitions that naive 24h subtraction
	// would get wrong.
	streak := 1
	for _, d := range days[1:] {
		if !d.Equal(today.AddDate(0, 0, -streak)) {
			break
		}
		streak++
	}
	return streak
}

// parseMealTimes parses RFC 3339 timestamp strings, excluding any that fail to
// parse and reporting how many were dropped. Exclude-and-continue is
// deliberate: a single corrupt record should degrade the streak gracefully,
// not abort the whole calculation.
func parseMealTimes(raw []string) (times []time.Time, dropped int) {
	times = make([]time.Time, 0, len(raw))
	for _, s := range raw {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			dropped++
			continue
		}
		times = append(times, t)
	}
	return times, dropped
}

// streakMessage returns the motivational line shown under the streak counter.
func streakMessage(streak int) string {
	switch {
	case streak <= 0:
		return "Log your first meal to start a streak!"
	case streak == 1:
		return "Nice start! 1 day streak — keep it going."
	default:
		return fmt.Sprintf("You're on a %d day streak!", streak)
	}
}

// streakColor returns the display color token for a streak count, from
// streakColorTiers. Total over all non-negative inputs; negative inputs are
// clamped to the gray tier.
func streakColor(streak int) string {
	for _, tier := range streakColorTiers {
		if streak >= tier.min {
			return tier.color
		}
	}
	return "gray"
}
