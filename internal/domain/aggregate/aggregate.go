// Package aggregate folds per-recording frame tables into one indexed
// collection keyed by (subject, condition).
package aggregate

import (
	"fmt"
	"sort"

	"github.com/okian/facewin/internal/domain/model"
)

// Diagnostic reports a recording that was left out of the collection.
type Diagnostic struct {
	Key    model.Key
	Source string
	Err    error
}

// Collection is an immutable index of recordings by key.
type Collection struct {
	recordings map[model.Key]model.Recording
	keys       []model.Key
	schema     model.Schema
}

// Identify parses a source name into its key and checks that the condition
// has a label. Either failure means the file is skipped.
func Identify(source string, labels model.LabelMap) (model.Key, error) {
	k, err := model.ParseSourceName(source)
	if err != nil {
		return model.Key{}, err
	}
	if _, err := labels.Label(k.Condition); err != nil {
		return model.Key{}, fmt.Errorf("%s: %w", source, err)
	}
	return k, nil
}

// Fold indexes recordings by key. Row order within each recording is kept.
// A second recording for an already indexed key, or one whose schema differs
// from the first recording's, is reported and left out.
func Fold(recordings []model.Recording) (*Collection, []Diagnostic) {
	c := &Collection{recordings: make(map[model.Key]model.Recording, len(recordings))}
	var diags []Diagnostic
	for _, r := range recordings {
		if c.schema == nil {
			c.schema = r.Schema
		}
		if !sameSchema(c.schema, r.Schema) {
			diags = append(diags, Diagnostic{Key: r.Key, Source: r.Source, Err: ErrSchemaMismatch})
			continue
		}
		if prev, ok := c.recordings[r.Key]; ok {
			diags = append(diags, Diagnostic{
				Key:    r.Key,
				Source: r.Source,
				Err:    fmt.Errorf("%w: already read from %s", ErrDuplicateRecording, prev.Source),
			})
			continue
		}
		c.recordings[r.Key] = r
		c.keys = append(c.keys, r.Key)
	}
	sort.Slice(c.keys, func(i, j int) bool { return c.keys[i].Less(c.keys[j]) })
	return c, diags
}

func sameSchema(a, b model.Schema) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Len returns the number of recordings.
func (c *Collection) Len() int { return len(c.keys) }

// Schema returns the shared channel schema.
func (c *Collection) Schema() model.Schema { return c.schema }

// Keys returns all keys ordered by subject then condition.
func (c *Collection) Keys() []model.Key { return append([]model.Key(nil), c.keys...) }

// Get returns the recording for k.
func (c *Collection) Get(k model.Key) (model.Recording, bool) {
	r, ok := c.recordings[k]
	return r, ok
}

// Frames returns the total frame count.
func (c *Collection) Frames() int {
	n := 0
	for _, r := range c.recordings {
		n += r.Len()
	}
	return n
}

// Subjects returns the distinct subject ids in sorted order.
func (c *Collection) Subjects() []string {
	var out []string
	for _, k := range c.keys {
		if len(out) == 0 || out[len(out)-1] != k.Subject {
			out = append(out, k.Subject)
		}
	}
	return out
}

// Subject groups the recordings of one subject, ordered by condition.
func (c *Collection) Subject(id string) model.Subject {
	s := model.Subject{ID: id, Schema: c.schema}
	for _, k := range c.keys {
		if k.Subject == id {
			s.Recordings = append(s.Recordings, c.recordings[k])
		}
	}
	return s
}
