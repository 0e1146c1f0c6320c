package models

import (
	"slices"
	"strings"
)

// IDSet is an insertion-ordered set of object identifiers. It is persisted
// as a comma-joined string so the ledger stays readable to operators.
type IDSet struct {
	ids   []string
	index map[string]struct{}
}

// NewIDSet builds a set from ids, dropping blanks and duplicates.
func NewIDSet(ids ...string) IDSet {
	var s IDSet
	for _, id := range ids {
		s.Add(id)
	}
	return s
}

// ParseIDSet parses the comma-joined persisted form.
func ParseIDSet(raw string) IDSet {
	return NewIDSet(strings.Split(raw, ",")...)
}

// Add inserts id and reports whether it was new.
func (s *IDSet) Add(id string) bool {
	id = strings.TrimSpace(id)
	if id == "" || s.Has(id) {
		return false
	}
	if s.index == nil {
		s.index = make(map[string]struct{})
	}
	s.index[id] = struct{}{}
	s.ids = append(s.ids, id)
	return true
}

// Remove deletes id and reports whether it was present.
func (s *IDSet) Remove(id string) bool {
	if !s.Has(id) {
		return false
	}
	delete(s.index, id)
	s.ids = slices.DeleteFunc(s.ids, func(v string) bool { return v == id })
	return true
}

func (s IDSet) Has(id string) bool {
	_, ok := s.index[id]
	return ok
}

func (s IDSet) Len() int { return len(s.ids) }

// IDs returns a copy of the members in insertion order.
func (s IDSet) IDs() []string { return slices.Clone(s.ids) }

// Clone returns an independent copy.
func (s IDSet) Clone() IDSet { return NewIDSet(s.ids...) }

// Minus returns the members of s that are not in other, keeping s's order.
func (s IDSet) Minus(other IDSet) IDSet {
	var out IDSet
	for _, id := range s.ids {
		if !other.Has(id) {
			out.Add(id)
		}
	}
	return out
}

// Union returns s followed by the members of other not already in s.
func (s IDSet) Union(other IDSet) IDSet {
	out := s.Clone()
	for _, id := range other.ids {
		out.Add(id)
	}
	return out
}

// Covers reports whether every member of other is in s.
func (s IDSet) Covers(other IDSet) bool {
	return other.Minus(s).Len() == 0
}

// String returns the comma-joined persisted form.
func (s IDSet) String() string { return strings.Join(s.ids, ",") }
