// Package actor provides the mailbox and request/reply plumbing shared by
// the ledger and market actors: one goroutine owns a piece of state and
// every interaction with it is a message processed in arrival order.
package actor

import (
	"context"

	"github.com/efreitasn/minivenue/internal/domain"
)

// Command is a request processed by the goroutine owning state S.
// Apply runs on that goroutine and may touch S freely.
type Command[S, T any] interface {
	Name() string
	Apply(ctx context.Context, s S) (T, error)
}

// Hooks observe the dispatch loop. Any field may be nil.
type Hooks struct {
	// Handled runs after every command with its name and result.
	Handled func(name string, err error)
	// Depth reports the number of commands still queued.
	Depth func(n int)
}

// Mailbox queues commands for a single goroutine.
type Mailbox[S any] struct {
	ch    chan runner[S]
	done  chan struct{}
	hooks Hooks
}

type runner[S any] interface {
	run(ctx context.Context, s S, hooks Hooks)
}

// NewMailbox creates a mailbox buffering up to size commands.
func NewMailbox[S any](size int, hooks Hooks) *Mailbox[S] {
	if size < 1 {
		size = 1
	}
	return &Mailbox[S]{
		ch:    make(chan runner[S], size),
		done:  make(chan struct{}),
		hooks: hooks,
	}
}

// Serve processes commands against s until ctx is cancelled, one at a
// time. ctx is also handed to every command, so calls a command makes to
// other actors are bounded by the owner's lifetime, not the caller's.
// Serve must be called once; afterwards every pending and future Call
// returns domain.ErrStopped.
func (m *Mailbox[S]) Serve(ctx context.Context, s S) {
	defer close(m.done)
	for {
		select {
		case <-ctx.Done():
			return
		case r := <-m.ch:
			if m.hooks.Depth != nil {
				m.hooks.Depth(len(m.ch))
			}
			r.run(ctx, s, m.hooks)
		}
	}
}

// Done is closed once Serve has returned.
func (m *Mailbox[S]) Done() <-chan struct{} {
	return m.done
}

// Len returns the number of queued commands.
func (m *Mailbox[S]) Len() int {
	return len(m.ch)
}

type reply[T any] struct {
	val T
	err error
}

// envelope pairs a command with its reply channel. The channel has
// capacity 1 so the loop never blocks on a caller that has gone away.
type envelope[S, T any] struct {
	cmd Command[S, T]
	out chan reply[T]
}

func (e envelope[S, T]) run(ctx context.Context, s S, hooks Hooks) {
	val, err := e.cmd.Apply(ctx, s)
	if hooks.Handled != nil {
		hooks.Handled(e.cmd.Name(), err)
	}
	e.out <- reply[T]{val: val, err: err}
}

// Call sends cmd and waits for its reply. A cancelled ctx abandons the
// wait but not the command: once queued it runs to completion.
func Call[S, T any](ctx context.Context, m *Mailbox[S], cmd Command[S, T]) (T, error) {
	var zero T
	env := envelope[S, T]{cmd: cmd, out: make(chan reply[T], 1)}

	select {
	case m.ch <- env:
	case <-m.done:
		return zero, domain.ErrStopped
	case <-ctx.Done():
		return zero, ctx.Err()
	}

	select {
	case r := <-env.out:
		return r.val, r.err
	case <-m.done:
		// The loop may have answered just before exiting.
		select {
		case r := <-env.out:
			return r.val, r.err
		default:
			return zero, domain.ErrStopped
		}
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}
