package probe

import "context"

// Checker performs a single liveness check against an address.
// Implementations report only reachable/unreachable; any failure to execute
// the check counts as unreachable.
type Checker interface {
	Check(ctx context.Context, addr string) bool
}

// CheckerFunc adapts a function to the Checker interface.
type CheckerFunc func(ctx context.Context, addr string) bool

func (f CheckerFunc) Check(ctx context.Context, addr string) bool { return f(ctx, addr) }
