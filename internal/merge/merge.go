// Package merge defines the document merge capability and the stub that
// stands in for a real backend.
package merge

import (
	"context"
	"fmt"
	"io"

	"github.com/tkstan/fusiondoc/internal/domain"
)

// Input is one file handed to a merger, already sorted by Order.
type Input struct {
	Entry domain.Entry
	Open  func() (io.ReadCloser, error)
}

// Merger combines the inputs, in the order given, into one document.
// order carries each input's order index, parallel to files.
type Merger interface {
	Merge(ctx context.Context, files []Input, order []int) ([]byte, error)
}

// Func adapts a plain function to Merger.
type Func func(ctx context.Context, files []Input, order []int) ([]byte, error)

func (f Func) Merge(ctx context.Context, files []Input, order []int) ([]byte, error) {
	return f(ctx, files, order)
}

// InputError reports which input a backend could not use.
type InputError struct {
	Index  int
	Name   string
	Reason string
}

func (e *InputError) Error() string {
	return fmt.Sprintf("%s (file %d): %s", e.Name, e.Index+1, e.Reason)
}
