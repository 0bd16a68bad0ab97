package schemas

import "context"

// -- Environment Interfaces --

// Perceiver observes the interactive surface.
type Perceiver interface {
	// Scan returns the current snapshot. It does not fail: when the surface
	// cannot be read it returns an empty, non-successful snapshot.
	Scan(ctx context.Context) Snapshot
	// Reset returns the surface to its initial condition.
	Reset(ctx context.Context) error
	// WaitStable blocks until the surface stops changing. It returns an
	// error wrapping ErrActionTimeout if it does not settle in time.
	WaitStable(ctx context.Context) error
}

// Actuator performs one low-level interaction against the surface.
type Actuator interface {
	// Perform never returns an error for expected failure modes; those are
	// reported through the Outcome. The error is for conditions that should
	// abort the run.
	Perform(ctx context.Context, action Action, snapshot Snapshot) (Outcome, error)
}
