// Package selection holds the ordered set of files chosen for a merge.
//
// Entries are values in an owned slice that is always kept sorted by Order
// with orders contiguous from zero. Mutations rebuild the slice rather than
// editing shared records.
package selection

import (
	"cmp"
	"errors"
	"fmt"
	"slices"

	"github.com/google/uuid"

	"github.com/tkstan/fusiondoc/internal/domain"
)

var ErrIndexOutOfRange = errors.New("index out of range")

type Selection struct {
	entries []domain.Entry
}

func New() *Selection {
	return &Selection{}
}

func (s *Selection) Len() int {
	return len(s.entries)
}

// Has reports whether an entry with the given name is held.
func (s *Selection) Has(name string) bool {
	return s.indexOf(name) >= 0
}

// Entries returns a copy of the held entries in ascending order.
func (s *Selection) Entries() []domain.Entry {
	out := slices.Clone(s.entries)
	slices.SortStableFunc(out, func(a, b domain.Entry) int {
		return cmp.Compare(a.Order, b.Order)
	})
	return out
}

func (s *Selection) Get(name string) (domain.Entry, bool) {
	idx := s.indexOf(name)
	if idx < 0 {
		return domain.Entry{}, false
	}
	return s.entries[idx], true
}

// Filter returns the candidates that Add would accept: names not already held
// and not repeated earlier in the same batch.
func (s *Selection) Filter(candidates []domain.Candidate) []domain.Candidate {
	seen := make(map[string]struct{}, len(candidates))
	survivors := make([]domain.Candidate, 0, len(candidates))
	for _, c := range candidates {
		if s.Has(c.Name) {
			continue
		}
		if _, dup := seen[c.Name]; dup {
			continue
		}
		seen[c.Name] = struct{}{}
		survivors = append(survivors, c)
	}
	return survivors
}

// Add appends the surviving candidates after every held entry and returns
// the new entries. Duplicates are dropped silently.
func (s *Selection) Add(candidates []domain.Candidate) []domain.Entry {
	survivors := s.Filter(candidates)
	base := len(s.entries)

	added := make([]domain.Entry, 0, len(survivors))
	for i, c := range survivors {
		id := c.StoredID
		if id == "" {
			id = uuid.NewString()
		}
		added = append(added, domain.Entry{
			ID:          id,
			Name:        c.Name,
			Size:        c.Size,
			MIMEType:    c.MIMEType,
			SniffedMIME: c.SniffedMIME,
			FileType:    domain.Classify(c.MIMEType, c.SniffedMIME),
			Order:       base + i,
		})
	}

	s.entries = append(s.Entries(), added...)
	return slices.Clone(added)
}

// Remove deletes the entry with the given name and closes the gap in orders.
func (s *Selection) Remove(name string) (domain.Entry, bool) {
	ordered := s.Entries()
	idx := slices.IndexFunc(ordered, func(e domain.Entry) bool { return e.Name == name })
	if idx < 0 {
		return domain.Entry{}, false
	}

	removed := ordered[idx]
	s.entries = renumber(slices.Delete(ordered, idx, idx+1))
	return removed, true
}

// Reorder moves the entry at position from to position to. Positions refer to
// the ascending-order sequence; to is clamped into range.
func (s *Selection) Reorder(from, to int) error {
	n := len(s.entries)
	if from < 0 || from >= n {
		return fmt.Errorf("reorder from %d of %d entries: %w", from, n, ErrIndexOutOfRange)
	}
	to = max(0, min(to, n-1))
	if from == to {
		return nil
	}

	ordered := s.Entries()
	moved := ordered[from]
	ordered = slices.Delete(ordered, from, from+1)
	ordered = slices.Insert(ordered, to, moved)
	s.entries = renumber(ordered)
	return nil
}

func (s *Selection) Reset() {
	s.entries = nil
}

func (s *Selection) indexOf(name string) int {
	return slices.IndexFunc(s.entries, func(e domain.Entry) bool { return e.Name == name })
}

func renumber(entries []domain.Entry) []domain.Entry {
	out := make([]domain.Entry, len(entries))
	for i, e := range entries {
		e.Order = i
		out[i] = e
	}
	return out
}
