// Package pending joins a variable number of single-shot completions.
//
// A Group fires its completion function once every started operation has
// finished and the dispatcher has declared that no more will be started.
// Both conditions are needed: if every operation completes synchronously,
// the count touches zero while the dispatch loop is still running.
package pending

import (
	"sync"
	"sync/atomic"
)

// Group counts outstanding operations.
type Group struct {
	count  atomic.Int64
	sealed atomic.Bool
	fired  atomic.Bool

	mu  sync.Mutex
	err error

	onDone func(error)
}

// New returns a Group that calls onDone exactly once with the first error
// recorded by Fail, or nil.
func New(onDone func(error)) *Group {
	return &Group{onDone: onDone}
}

// Add registers one more outstanding operation. It must be called before
// the operation is started and before Seal.
func (g *Group) Add() {
	if g.sealed.Load() {
		panic("pending: Add after Seal")
	}
	g.count.Add(1)
}

// Done marks one operation complete.
func (g *Group) Done() {
	if g.count.Add(-1) < 0 {
		panic("pending: Done without Add")
	}
	g.check()
}

// Fail records err if it is the first error. It does not complete an
// operation; callers still call Done (or never Add) for it.
func (g *Group) Fail(err error) {
	if err == nil {
		return
	}
	g.mu.Lock()
	if g.err == nil {
		g.err = err
	}
	g.mu.Unlock()
}

// Err returns the first recorded error.
func (g *Group) Err() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.err
}

// Seal declares that dispatching has finished.
func (g *Group) Seal() {
	g.sealed.Store(true)
	g.check()
}

func (g *Group) check() {
	if !g.sealed.Load() || g.count.Load() != 0 {
		return
	}
	if !g.fired.CompareAndSwap(false, true) {
		return
	}
	g.onDone(g.Err())
}
