package model

// Subject groups one driver's recordings, ordered by condition.
type Subject struct {
	ID         string
	Schema     Schema
	Recordings []Recording
}

// Len returns the total number of frames across all recordings.
func (s Subject) Len() int {
	n := 0
	for _, r := range s.Recordings {
		n += r.Len()
	}
	return n
}

// Recording returns the recording for condition, if present.
func (s Subject) Recording(condition string) (Recording, bool) {
	for _, r := range s.Recordings {
		if r.Key.Condition == condition {
			return r, true
		}
	}
	return Recording{}, false
}
