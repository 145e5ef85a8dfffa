// Package guard provides a non-blocking single-flight gate.
package guard

import (
	"context"
	"errors"

	"golang.org/x/sync/semaphore"
)

// ErrBusy is returned when another call already holds the gate
var ErrBusy = errors.New("operation already in progress")

// Guard admits at most one holder; a second caller is turned away rather than queued.
type Guard struct {
	sem *semaphore.Weighted
}

// New creates an open guard
func New() *Guard {
	return &Guard{sem: semaphore.NewWeighted(1)}
}

// TryEnter claims the guard. The returned release must be called exactly once.
func (g *Guard) TryEnter() (release func(), ok bool) {
	if !g.sem.TryAcquire(1) {
		return nil, false
	}
	return func() { g.sem.Release(1) }, true
}

// Do runs fn if the guard is free and returns ErrBusy otherwise.
func (g *Guard) Do(ctx context.Context, fn func(context.Context) error) error {
	release, ok := g.TryEnter()
	if !ok {
		return ErrBusy
	}
	defer release()
	return fn(ctx)
}

// Busy reports whether the guard is currently held
func (g *Guard) Busy() bool {
	if g.sem.TryAcquire(1) {
		g.sem.Release(1)
		return false
	}
	return true
}
