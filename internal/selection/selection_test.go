package selection

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tkstan/fusiondoc/internal/domain"
)

func candidate(name, mime string) domain.Candidate {
	return domain.Candidate{Name: name, Size: 10, MIMEType: mime}
}

func names(entries []domain.Entry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Name)
	}
	return out
}

func orders(entries []domain.Entry) []int {
	out := make([]int, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Order)
	}
	return out
}

func TestAddAssignsIncreasingOrders(t *testing.T) {
	s := New()
	s.Add([]domain.Candidate{candidate("a.pdf", domain.MIMEPDF), candidate("b.docx", domain.MIMEDOCX)})

	added := s.Add([]domain.Candidate{
		candidate("c.pptx", domain.MIMEPPTX),
		candidate("d.txt", "text/plain"),
	})

	require.Len(t, added, 2)
	assert.Equal(t, []int{2, 3}, orders(added))
	assert.Equal(t, domain.FileTypePPTX, added[0].FileType)
	assert.Equal(t, domain.FileTypeUnknown, added[1].FileType)
	assert.NotEmpty(t, added[0].ID)

	assert.Equal(t, []string{"a.pdf", "b.docx", "c.pptx", "d.txt"}, names(s.Entries()))
	assert.Equal(t, []int{0, 1, 2, 3}, orders(s.Entries()))
}

func TestAddDropsDuplicateNames(t *testing.T) {
	s := New()
	s.Add([]domain.Candidate{{Name: "a.pdf", Size: 100, MIMEType: domain.MIMEPDF, StoredID: "first"}})

	added := s.Add([]domain.Candidate{
		{Name: "a.pdf", Size: 999, MIMEType: domain.MIMEPDF, StoredID: "second"},
		candidate("b.pdf", domain.MIMEPDF),
		candidate("b.pdf", domain.MIMEPDF),
	})

	assert.Equal(t, []string{"b.pdf"}, names(added))
	require.Equal(t, 2, s.Len())

	held, ok := s.Get("a.pdf")
	require.True(t, ok)
	assert.Equal(t, "first", held.ID)
	assert.Equal(t, int64(100), held.Size)
}

func TestAddZeroSurvivors(t *testing.T) {
	s := New()
	s.Add([]domain.Candidate{candidate("a.pdf", domain.MIMEPDF)})

	added := s.Add([]domain.Candidate{candidate("a.pdf", domain.MIMEPDF)})
	assert.Empty(t, added)
	assert.Equal(t, 1, s.Len())
}

func TestRemoveCompactsOrders(t *testing.T) {
	s := New()
	s.Add([]domain.Candidate{
		candidate("a.pdf", domain.MIMEPDF),
		candidate("b.pdf", domain.MIMEPDF),
		candidate("c.pdf", domain.MIMEPDF),
	})

	removed, ok := s.Remove("b.pdf")
	require.True(t, ok)
	assert.Equal(t, "b.pdf", removed.Name)
	assert.Equal(t, []int{0, 1}, orders(s.Entries()))

	_, ok = s.Remove("missing.pdf")
	assert.False(t, ok)

	added := s.Add([]domain.Candidate{candidate("d.pdf", domain.MIMEPDF)})
	assert.Equal(t, 2, added[0].Order, "new entries sort after everything held")
}

func TestReorder(t *testing.T) {
	tests := []struct {
		name     string
		from, to int
		want     []string
	}{
		{"move forward", 0, 2, []string{"b", "c", "a", "d"}},
		{"move backward", 3, 1, []string{"a", "d", "b", "c"}},
		{"same index is a no-op", 2, 2, []string{"a", "b", "c", "d"}},
		{"target clamped high", 1, 99, []string{"a", "c", "d", "b"}},
		{"target clamped low", 2, -4, []string{"c", "a", "b", "d"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New()
			s.Add([]domain.Candidate{
				candidate("a", domain.MIMEPDF),
				candidate("b", domain.MIMEPDF),
				candidate("c", domain.MIMEPDF),
				candidate("d", domain.MIMEPDF),
			})

			require.NoError(t, s.Reorder(tt.from, tt.to))
			entries := s.Entries()
			assert.Equal(t, tt.want, names(entries))
			assert.Equal(t, []int{0, 1, 2, 3}, orders(entries))
		})
	}
}

func TestReorderRejectsBadSource(t *testing.T) {
	s := New()
	s.Add([]domain.Candidate{candidate("a", domain.MIMEPDF)})

	assert.ErrorIs(t, s.Reorder(1, 0), ErrIndexOutOfRange)
	assert.ErrorIs(t, s.Reorder(-1, 0), ErrIndexOutOfRange)
	assert.ErrorIs(t, New().Reorder(0, 0), ErrIndexOutOfRange)
}

func TestReorderExampleScenario(t *testing.T) {
	s := New()
	s.Add([]domain.Candidate{candidate("a.pdf", domain.MIMEPDF), candidate("b.docx", domain.MIMEDOCX)})

	require.NoError(t, s.Reorder(0, 1))

	b, _ := s.Get("b.docx")
	a, _ := s.Get("a.pdf")
	assert.Equal(t, 0, b.Order)
	assert.Equal(t, 1, a.Order)
}

func TestEntriesReturnsCopy(t *testing.T) {
	s := New()
	s.Add([]domain.Candidate{candidate("a.pdf", domain.MIMEPDF)})

	entries := s.Entries()
	entries[0].Order = 42
	entries[0].Name = "changed"

	held, ok := s.Get("a.pdf")
	require.True(t, ok)
	assert.Equal(t, 0, held.Order)
}

func TestReset(t *testing.T) {
	s := New()
	s.Add([]domain.Candidate{candidate("a.pdf", domain.MIMEPDF)})
	s.Reset()
	assert.Zero(t, s.Len())
	assert.Empty(t, s.Entries())
}
