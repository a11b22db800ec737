package streak

import (
	"sort"
	"time"
)

// DayLayout is the calendar-day format used for streak entries.
const DayLayout = "2006-01-02"

// ComputeStreak returns the number of consecutive met days ending today,
// or ending yesterday when today is not met yet. Any other gap yields 0.
// metDays may be in any order; malformed entries are ignored.
func ComputeStreak(metDays []string, today string) int {
	t, err := time.Parse(DayLayout, today)
	if err != nil {
		return 0
	}

	met := make(map[string]bool, len(metDays))
	for _, d := range metDays {
		met[d] = true
	}

	day := t
	if !met[day.Format(DayLayout)] {
		day = day.AddDate(0, 0, -1)
	}

	n := 0
	for met[day.Format(DayLayout)] {
		n++
		day = day.AddDate(0, 0, -1)
	}
	return n
}

// LongestStreak returns the longest run of consecutive met days.
func LongestStreak(metDays []string) int {
	days := make([]time.Time, 0, len(metDays))
	seen := make(map[string]bool, len(metDays))
	for _, d := range metDays {
		if seen[d] {
			continue
		}
		t, err := time.Parse(DayLayout, d)
		if err != nil {
			continue
		}
		seen[d] = true
		days = append(days, t)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })

	longest, run := 0, 0
	for i, d := range days {
		if i > 0 && days[i-1].AddDate(0, 0, 1).Equal(d) {
			run++
		} else {
			run = 1
		}
		longest = max(longest, run)
	}
	return longest
}
