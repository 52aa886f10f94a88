package merge

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tkstan/fusiondoc/internal/domain"
)

func inputs(names ...string) []Input {
	out := make([]Input, 0, len(names))
	for i, name := range names {
		out = append(out, Input{
			Entry: domain.Entry{Name: name, Order: i},
			Open: func() (io.ReadCloser, error) {
				return nil, errors.New("stub must not read inputs")
			},
		})
	}
	return out
}

func TestStubReturnsPlaceholderPDF(t *testing.T) {
	stub := NewStub(0)

	blob, err := stub.Merge(context.Background(), inputs("a.pdf", "b.docx"), []int{0, 1})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(blob, []byte("%PDF-")), "placeholder should be a PDF")
}

func TestStubWaitsForDelay(t *testing.T) {
	stub := NewStub(30 * time.Millisecond)

	start := time.Now()
	_, err := stub.Merge(context.Background(), inputs("a.pdf", "b.pdf"), []int{0, 1})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
}

func TestStubHonoursCancellation(t *testing.T) {
	stub := NewStub(time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := stub.Merge(ctx, inputs("a.pdf", "b.pdf"), []int{0, 1})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFuncAdapter(t *testing.T) {
	var got []int
	m := Func(func(_ context.Context, files []Input, order []int) ([]byte, error) {
		got = order
		return []byte("ok"), nil
	})

	blob, err := m.Merge(context.Background(), inputs("a", "b"), []int{0, 1})
	require.NoError(t, err)
	assert.Equal(t, []byte("ok"), blob)
	assert.Equal(t, []int{0, 1}, got)
}

func TestInputErrorMessage(t *testing.T) {
	err := &InputError{Index: 1, Name: "b.docx", Reason: "corrupt file"}
	assert.Equal(t, "b.docx (file 2): corrupt file", err.Error())
}
