package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// A fixed "now" keeps every case deterministic: mid-afternoon, well away from
// any day boundary. Individual cases move timestamps toward midnight when the
// boundary itself is under test.
var streakNow = time.Date(2026, time.March, 14, 15, 30, 0, 0, time.UTC)

// daysAgo returns a timestamp n civil days before streakNow, same time of day.
func daysAgo(n int) time.Time {
	return streakNow.AddDate(0, 0, -n)
}

func TestMealStreak(t *testing.T) {
	tests := []struct {
		name       string
		timestamps []time.Time
		want       int
	}{
		{
			name:       "no meals",
			timestamps: nil,
			want:       0,
		},
		{
			name:       "single meal today",
			timestamps: []time.Time{streakNow.Add(-2 * time.Hour)},
			want:       1,
		},
		{
			name:       "meal yesterday only",
			timestamps: []time.Time{daysAgo(1)},
			want:       0,
		},
		{
			name:       "three consecutive days",
			timestamps: []time.Time{streakNow, daysAgo(1), daysAgo(2)},
			want:       3,
		},
		{
			name:       "gap on yesterday",
			timestamps: []time.Time{streakNow, daysAgo(2)},
			want:       1,
		},
		{
			name:       "gap after two days",
			timestamps: []time.Time{streakNow, daysAgo(1), daysAgo(3), daysAgo(4)},
			want:       2,
		},
		{
			name: "every day except today",
			timestamps: []time.Time{
				daysAgo(1), daysAgo(2), daysAgo(3), daysAgo(4), daysAgo(5),
			},
			want: 0,
		},
		{
			name: "duplicate meals on one day count once",
			timestamps: []time.Time{
				streakNow,
				streakNow.Add(-1 * time.Hour),
				streakNow.Add(-5 * time.Hour),
				daysAgo(1),
			},
			want: 2,
		},
		{
			name: "long unbroken run",
			timestamps: []time.Time{
				streakNow, daysAgo(1), daysAgo(2), daysAgo(3), daysAgo(4),
				daysAgo(5), daysAgo(6), daysAgo(7), daysAgo(8), daysAgo(9),
			},
			want: 10,
		},
		{
			name:       "zero-value timestamps are excluded",
			timestamps: []time.Time{{}, streakNow, {}, daysAgo(1)},
			want:       2,
		},
		{
			name:       "only zero-value timestamps",
			timestamps: []time.Time{{}, {}},
			want:       0,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := mealStreak(tc.timestamps, streakNow, time.UTC)
			assert.Equal(t, tc.want, got)
		})
	}
}

// TestMealStreak_UnsortedInput verifies that input order is irrelevant — the
// calculator sorts distinct days itself.
func TestMealStreak_UnsortedInput(t *testing.T) {
	timestamps := []time.Time{daysAgo(2), streakNow, daysAgo(1)}
	assert.Equal(t, 3, mealStreak(timestamps, streakNow, time.UTC))
}

// TestMealStreak_InputNotMutated verifies the calculator is a pure function of
// its inputs: the caller's slice comes back untouched.
func TestMealStreak_InputNotMutated(t *testing.T) {
	timestamps := []time.Time{daysAgo(2), streakNow, daysAgo(1)}
	before := make([]time.Time, len(timestamps))
	copy(before, timestamps)

	mealStreak(timestamps, streakNow, time.UTC)

	assert.Equal(t, before, timestamps)
}

// TestMealStreak_MonthBoundary pins a run that crosses from March back into
// February — the walk must use real calendar arithmetic, not string or
// day-of-month comparison.
func TestMealStreak_MonthBoundary(t *testing.T) {
	now := time.Date(2026, time.March, 2, 9, 0, 0, 0, time.UTC)
	timestamps := []time.Time{
		time.Date(2026, time.March, 2, 8, 0, 0, 0, time.UTC),
		time.Date(2026, time.March, 1, 20, 0, 0, 0, time.UTC),
		time.Date(2026, time.February, 28, 13, 0, 0, 0, time.UTC),
		time.Date(2026, time.February, 27, 7, 0, 0, 0, time.UTC),
	}
	assert.Equal(t, 4, mealStreak(timestamps, now, time.UTC))
}

// TestMealStreak_YearBoundary crosses Jan 1 back into the previous December.
func TestMealStreak_YearBoundary(t *testing.T) {
	now := time.Date(2026, time.January, 1, 10, 0, 0, 0, time.UTC)
	timestamps := []time.Time{
		time.Date(2026, time.January, 1, 9, 0, 0, 0, time.UTC),
		time.Date(2025, time.December, 31, 22, 0, 0, 0, time.UTC),
		time.Date(2025, time.December, 30, 8, 0, 0, 0, time.UTC),
	}
	assert.Equal(t, 3, mealStreak(timestamps, now, time.UTC))
}

// TestMealStreak_TimezoneSensitivity fixes one instant near the UTC day
// boundary and checks it lands on different civil days in different zones. A
// meal at 23:45 UTC on the 13th is already the 14th in Kolkata (UTC+5:30) but
// still the 13th in New York — so the same history yields a different streak
// depending on the user's timezone.
func TestMealStreak_TimezoneSensitivity(t *testing.T) {
	kolkata, err := time.LoadLocation("Asia/Kolkata")
	require.NoError(t, err)
	newYork, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	// 23:45 UTC March 13 = 05:15 March 14 in Kolkata, 19:45 March 13 in NY.
	meal := time.Date(2026, time.March, 13, 23, 45, 0, 0, time.UTC)
	now := time.Date(2026, time.March, 14, 6, 0, 0, 0, time.UTC)

	assert.Equal(t, 1, mealStreak([]time.Time{meal}, now, kolkata),
		"meal should fall on today in Kolkata")
	assert.Equal(t, 0, mealStreak([]time.Time{meal}, now, newYork),
		"meal should fall on yesterday in New York")
}

// TestCivilDay_ProjectsIntoLocation verifies civilDay strips the time-of-day
// component and anchors the date in the requested zone.
func TestCivilDay_ProjectsIntoLocation(t *testing.T) {
	kolkata, err := time.LoadLocation("Asia/Kolkata")
	require.NoError(t, err)

	d := civilDay(time.Date(2026, time.March, 13, 23, 45, 0, 0, time.UTC), kolkata)
	assert.Equal(t, time.Date(2026, time.March, 14, 0, 0, 0, 0, kolkata), d)
}

func TestParseMealTimes(t *testing.T) {
	times, dropped := parseMealTimes([]string{
		"2026-03-14T08:30:00Z",
		"not-a-timestamp",
		"2026-03-14T12:15:00+05:30",
		"",
	})
	assert.Len(t, times, 2)
	assert.Equal(t, 2, dropped)
	assert.Equal(t, time.Date(2026, time.March, 14, 8, 30, 0, 0, time.UTC), times[0].UTC())
}

func TestUserLocation(t *testing.T) {
	t.Run("defaults to Kolkata when empty", func(t *testing.T) {
		loc, err := userLocation("")
		require.NoError(t, err)
		assert.Equal(t, "Asia/Kolkata", loc.String())
	})

	t.Run("resolves a valid zone", func(t *testing.T) {
		loc, err := userLocation("Europe/Rome")
		require.NoError(t, err)
		assert.Equal(t, "Europe/Rome", loc.String())
	})

	t.Run("rejects an unknown zone", func(t *testing.T) {
		_, err := userLocation("Mars/Olympus_Mons")
		assert.Error(t, err)
	})
}

/* ─── Presenter ──────────────────────────────────────────────────────── */

func TestStreakMessage(t *testing.T) {
	zero := streakMessage(0)
	one := streakMessage(1)
	five := streakMessage(5)

	assert.NotEqual(t, zero, one)
	assert.NotEqual(t, one, five)
	assert.NotEqual(t, zero, five)
	assert.Contains(t, five, "5", "multi-day message should embed the count")
}

func TestStreakColor(t *testing.T) {
	tests := []struct {
		streak int
		want   string
	}{
		{0, "gray"},
		{1, "orange"},
		{2, "orange"},
		{3, "green"},
		{6, "green"},
		{7, "purple"},
		{30, "purple"},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, streakColor(tc.streak), "streak %d", tc.streak)
	}
}

// TestStreakColor_TierOrder walks increasing streak values and checks the tier
// index never decreases — the ramp only intensifies as the streak grows.
func TestStreakColor_TierOrder(t *testing.T) {
	rank := map[string]int{"gray": 0, "orange": 1, "green": 2, "purple": 3}
	prev := 0
	for streak := 0; streak <= 30; streak++ {
		r, ok := rank[streakColor(streak)]
		require.True(t, ok, "unknown color for streak %d", streak)
		assert.GreaterOrEqual(t, r, prev, "tier dropped at streak %d", streak)
		prev = r
	}
}
