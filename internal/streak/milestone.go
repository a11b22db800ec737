package streak

// NextMilestone returns the next streak milestone above the current streak
// length: 5, 10, 15, 20, then every 5.
func NextMilestone(current int) int {
	milestones := []int{5, 10, 15, 20}
	for _, m := range milestones {
		if m > current {
			return m
		}
	}
	return ((current / 5) + 1) * 5
}
