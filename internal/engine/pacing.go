package engine

import (
	"context"
	"time"
)

// pacer converts logical stream offsets into real waits in live mode. Each
// wait targets an absolute deadline derived from the stream's start and the
// cumulative logical offset, so scheduling overhead never accumulates into
// drift. A zero or negative gap emits immediately with no catch-up burst.
type pacer struct {
	start       time.Time
	compression float64
}

func newPacer(compression float64) *pacer {
	return &pacer{compression: compression}
}

// begin anchors the pacer to the current wall clock. Called once on the
// idle -> running transition.
func (p *pacer) begin() {
	p.start = time.Now()
}

// wait blocks until start + logical/compression, or until ctx is cancelled.
func (p *pacer) wait(ctx context.Context, logical time.Duration) error {
	deadline := p.start.Add(time.Duration(float64(logical) / p.compression))
	gap := time.Until(deadline)
	if gap <= 0 {
		return nil
	}
	timer := time.NewTimer(gap)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
