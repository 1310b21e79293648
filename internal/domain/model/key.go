package model

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
)

// Key identifies a recording by subject and condition.
type Key struct {
	Subject   string
	Condition string
}

// String renders the key in source-name form "<subject>_<condition>".
func (k Key) String() string { return k.Subject + "_" + k.Condition }

// Less orders keys by subject, then condition.
func (k Key) Less(o Key) bool {
	if k.Subject != o.Subject {
		return k.Subject < o.Subject
	}
	return ConditionLess(k.Condition, o.Condition)
}

// ConditionLess orders condition tokens numerically when both are integers
// ("5" before "10") and lexically otherwise.
func ConditionLess(a, b string) bool {
	x, errA := strconv.Atoi(a)
	y, errB := strconv.Atoi(b)
	if errA == nil && errB == nil && x != y {
		return x < y
	}
	return a < b
}

// ParseSourceName splits a file name such as "CH01_19DA666D_10.csv" into its
// subject ("CH01_19DA666D") and condition ("10"). The condition is the segment
// after the last underscore; subjects may contain underscores themselves.
func ParseSourceName(name string) (Key, error) {
	stem := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	i := strings.LastIndex(stem, "_")
	if i <= 0 || i == len(stem)-1 {
		return Key{}, fmt.Errorf("%w: %q", ErrMalformedIdentifier, name)
	}
	k := Key{Subject: stem[:i], Condition: stem[i+1:]}
	if strings.TrimSpace(k.Subject) == "" || strings.TrimSpace(k.Condition) == "" {
		return Key{}, fmt.Errorf("%w: %q", ErrMalformedIdentifier, name)
	}
	return k, nil
}
