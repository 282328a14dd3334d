package hunter

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Pacer holds the discovery loop back between posting fetches. Each Pause
// blocks for the full delay measured from the moment it is called, so the
// time a fetch takes never counts towards the gap.
type Pacer struct {
	delay time.Duration
}

// NewPacer creates a pacer; a delay of zero or less disables pacing
func NewPacer(delay time.Duration) *Pacer {
	return &Pacer{delay: delay}
}

// Pause blocks for the configured delay or until ctx is done
func (p *Pacer) Pause(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if p.delay <= 0 {
		return nil
	}

	// the limiter refuses to wait past the deadline, so sit it out and report the context error
	if deadline, ok := ctx.Deadline(); ok && time.Until(deadline) < p.delay {
		<-ctx.Done()
		return ctx.Err()
	}

	// a fresh bucket holds one token; spending it leaves a full interval before the next
	limiter := rate.NewLimiter(rate.Every(p.delay), 1)
	limiter.Allow()
	if err := limiter.Wait(ctx); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return err
	}
	return nil
}
