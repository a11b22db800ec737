package streak

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComputeStreak(t *testing.T) {
	const today = "2026-03-10"

	tests := []struct {
		name string
		met  []string
		want int
	}{
		{"no days", nil, 0},
		{"today only", []string{"2026-03-10"}, 1},
		{"yesterday only", []string{"2026-03-09"}, 1},
		{"two days ago only", []string{"2026-03-08"}, 0},
		{"D-4..D-1 met, D not recorded", []string{"2026-03-06", "2026-03-07", "2026-03-08", "2026-03-09"}, 4},
		{"D-4..D met", []string{"2026-03-06", "2026-03-07", "2026-03-08", "2026-03-09", "2026-03-10"}, 5},
		{"gap at D-2", []string{"2026-03-06", "2026-03-07", "2026-03-09", "2026-03-10"}, 2},
		{"order does not matter", []string{"2026-03-10", "2026-03-08", "2026-03-09"}, 3},
		{"across month boundary", []string{"2026-02-27", "2026-02-28", "2026-03-01"}, 0},
		{"malformed entries ignored", []string{"garbage", "2026-03-10"}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ComputeStreak(tt.met, today))
		})
	}
}

func TestComputeStreak_MonthBoundary(t *testing.T) {
	met := []string{"2026-02-27", "2026-02-28", "2026-03-01"}
	assert.Equal(t, 3, ComputeStreak(met, "2026-03-01"))
	assert.Equal(t, 3, ComputeStreak(met, "2026-03-02"))
}

func TestComputeStreak_BadToday(t *testing.T) {
	assert.Equal(t, 0, ComputeStreak([]string{"2026-03-10"}, "10/03/2026"))
}

func TestLongestStreak(t *testing.T) {
	tests := []struct {
		name string
		met  []string
		want int
	}{
		{"none", nil, 0},
		{"single", []string{"2026-01-01"}, 1},
		{"two runs", []string{"2026-01-01", "2026-01-02", "2026-01-05", "2026-01-06", "2026-01-07"}, 3},
		{"unsorted with duplicates", []string{"2026-01-03", "2026-01-01", "2026-01-02", "2026-01-02"}, 3},
		{"leap day", []string{"2028-02-28", "2028-02-29", "2028-03-01"}, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, LongestStreak(tt.met))
		})
	}
}
