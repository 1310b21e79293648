package model

import (
	"fmt"
	"sort"
)

// LabelMap maps a condition token to the integer class label written to disk.
type LabelMap map[string]int

// Label returns the label for condition or ErrUnknownCondition.
func (m LabelMap) Label(condition string) (int, error) {
	l, ok := m[condition]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownCondition, condition)
	}
	return l, nil
}

// Conditions returns the mapped condition tokens ordered by label.
func (m LabelMap) Conditions() []string {
	out := make([]string, 0, len(m))
	for c := range m {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if m[out[i]] != m[out[j]] {
			return m[out[i]] < m[out[j]]
		}
		return out[i] < out[j]
	})
	return out
}
