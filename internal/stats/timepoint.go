package stats

import "github.com/cohortscope/server/internal/cohort"

// Scheduled is any sample taken at a point of the collection schedule.
type Scheduled interface {
	Point() cohort.Timepoint
}

// SelectTimepoint returns the sample taken at tp.
func SelectTimepoint[S Scheduled](samples []S, tp cohort.Timepoint) (S, bool) {
	for _, s := range samples {
		if s.Point().Key == tp.Key {
			return s, true
		}
	}
	var zero S
	return zero, false
}
