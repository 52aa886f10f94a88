package merge

import (
	"context"
	"time"
)

// Stub waits for Delay and returns a placeholder document. It never opens
// the inputs and ignores their order.
type Stub struct {
	Delay time.Duration
	Now   func() time.Time
}

func NewStub(delay time.Duration) *Stub {
	return &Stub{Delay: delay, Now: time.Now}
}

func (s *Stub) Merge(ctx context.Context, files []Input, _ []int) ([]byte, error) {
	if s.Delay > 0 {
		timer := time.NewTimer(s.Delay)
		defer timer.Stop()

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	return renderPlaceholder(len(files), now())
}
