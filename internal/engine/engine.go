// Package engine serializes all access to a tenant's authorization graph.
//
// Callers submit typed commands from any number of goroutines; a single
// consumer applies them one at a time, in submission order, against the one
// graph instance. That loop is the serialization point that keeps the graph's
// structural invariants intact without per-object locks, and it is the only
// code holding a mutable reference to the graph.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/JoshuaRamirez/ACS-sub017/internal/graph"
)

// ErrStopped is returned for commands submitted to, or still queued in, an
// engine whose processing loop has exited.
var ErrStopped = errors.New("command engine stopped")

// Result carries a command's outcome to the submitting caller.
type Result struct {
	Value any
	Err   error
}

// Future resolves exactly once with the result of one command. Abandoning a
// future (context timeout) does not stop the command; it still runs to
// completion and updates the graph.
type Future struct {
	once sync.Once
	done chan Result
}

func newFuture() *Future {
	return &Future{done: make(chan Result, 1)}
}

// Wait blocks until the command completes or ctx is done.
func (f *Future) Wait(ctx context.Context) (any, error) {
	select {
	case res := <-f.done:
		return res.Value, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// resolve is once-only: during shutdown both the drain and the submitter may
// try to fail the same future, and the first writer wins.
func (f *Future) resolve(value any, err error) {
	f.once.Do(func() {
		f.done <- Result{Value: value, Err: err}
	})
}

type submission struct {
	cmd Command
	fut *Future
}

// Engine is the per-tenant single-writer command processor.
type Engine struct {
	tenantID string
	g        *graph.Graph
	queue    chan submission
	stopped  chan struct{}

	// AfterApply, when set, is called from the processing loop after every
	// successfully applied mutating command. The worker uses it to hand the
	// new graph snapshot to the persistence collaborator.
	AfterApply func(cmd Command, snap *graph.Snapshot)
}

// Option tailors engine construction.
type Option func(*Engine)

// WithQueueDepth overrides the default submission queue depth.
func WithQueueDepth(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.queue = make(chan submission, n)
		}
	}
}

// New creates an engine owning the given graph. The engine does not process
// anything until Run is called.
func New(tenantID string, g *graph.Graph, opts ...Option) *Engine {
	e := &Engine{
		tenantID: tenantID,
		g:        g,
		queue:    make(chan submission, 256),
		stopped:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Submit enqueues a command and returns the future that will carry its
// result. Submission fails only when the engine has stopped or the caller's
// context expires while the queue is full.
func (e *Engine) Submit(ctx context.Context, cmd Command) (*Future, error) {
	fut := newFuture()
	select {
	case <-e.stopped:
		return nil, ErrStopped
	default:
	}
	select {
	case e.queue <- submission{cmd: cmd, fut: fut}:
		// The loop may have stopped between the check above and the send,
		// in which case nothing will ever read this submission. Any such
		// send happens after the shutdown drain, so the stopped channel is
		// guaranteed closed by now and this re-check fails the future
		// instead of stranding the caller. resolve is once-only, so losing
		// the race to the drain or the processing loop is harmless.
		select {
		case <-e.stopped:
			fut.resolve(nil, ErrStopped)
		default:
		}
		return fut, nil
	case <-e.stopped:
		return nil, ErrStopped
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Execute submits the command and waits for its result.
func (e *Engine) Execute(ctx context.Context, cmd Command) (any, error) {
	fut, err := e.Submit(ctx, cmd)
	if err != nil {
		return nil, err
	}
	return fut.Wait(ctx)
}

// Run processes commands until ctx is done. It must be called exactly once.
// On exit, every command still queued resolves with ErrStopped rather than
// hanging its caller.
func (e *Engine) Run(ctx context.Context) {
	defer func() {
		// Refuse new submissions first, then fail whatever is still queued.
		close(e.stopped)
		e.drain()
	}()
	for {
		select {
		case sub := <-e.queue:
			e.process(sub)
		case <-ctx.Done():
			return
		}
	}
}

func (e *Engine) drain() {
	for {
		select {
		case sub := <-e.queue:
			sub.fut.resolve(nil, ErrStopped)
		default:
			return
		}
	}
}

// process applies one command. A failure, including a panic during apply,
// resolves only this command's future; queued commands are unaffected.
func (e *Engine) process(sub submission) {
	value, err := e.apply(sub.cmd)
	if err == nil && sub.cmd.Mutating() && e.AfterApply != nil {
		e.AfterApply(sub.cmd, e.g.Snapshot())
	}
	sub.fut.resolve(value, err)
}

func (e *Engine) apply(cmd Command) (value any, err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("ERROR: tenant %s: command %s panicked: %v", e.tenantID, cmd.Name(), r)
			err = fmt.Errorf("command %s failed: %v", cmd.Name(), r)
		}
	}()
	return cmd.Apply(e.g)
}
