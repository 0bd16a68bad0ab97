package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/xkilldash9x/formrl/api/schemas"
)

// probeFunc reads a signature of the surface. Probe errors count as change:
// a page in the middle of navigating cannot be read.
type probeFunc func(ctx context.Context) (string, error)

// waitQuiet polls probe every poll until the signature has stayed the same
// for quiet. It fails with ErrActionTimeout once timeout has elapsed.
func waitQuiet(ctx context.Context, probe probeFunc, poll, quiet, timeout time.Duration) error {
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	var (
		last     string
		haveLast bool
		since    time.Time
	)
	for {
		sig, err := probe(waitCtx)
		now := time.Now()
		switch {
		case err != nil:
			haveLast = false
		case !haveLast || sig != last:
			last, haveLast, since = sig, true, now
		}
		if haveLast && now.Sub(since) >= quiet {
			return nil
		}

		select {
		case <-ticker.C:
		case <-waitCtx.Done():
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("surface did not settle within %v: %w", timeout, schemas.ErrActionTimeout)
		}
	}
}
