package model

// Schema is the ordered list of feature channel names carried by every frame.
type Schema []string

// Index returns the position of channel name, or -1.
func (s Schema) Index(name string) int {
	for i, n := range s {
		if n == name {
			return i
		}
	}
	return -1
}

// Width is the number of channels.
func (s Schema) Width() int { return len(s) }

// Project returns the sub-schema made of the given channel positions.
func (s Schema) Project(idx []int) Schema {
	out := make(Schema, len(idx))
	for i, j := range idx {
		out[i] = s[j]
	}
	return out
}
