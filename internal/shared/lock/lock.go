// Package lock provides keyed mutual exclusion used to serialize work on a
// single document while leaving different documents independent.
package lock

import (
	"context"
	"errors"
)

// ErrContended is returned when a key could not be acquired within the wait budget.
var ErrContended = errors.New("lock contended")

// Locker acquires exclusive ownership of a key. The returned release func must be
// called exactly once; calling it more than once is a no-op.
type Locker interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}
