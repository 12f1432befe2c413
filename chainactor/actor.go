// Package chainactor implements the single-writer mailbox primitive the
// chain manager's actor is built on: one goroutine owning arbitrary state
// exclusively, draining a buffered channel of command envelopes in order.
// Ask posts a command and waits for its reply; Tell posts one and moves on.
// A single concrete handler function takes the place of a registry of typed
// message handlers, since the chain manager only ever needs one actor.
package chainactor

import (
	"context"
	"errors"
)

// ErrClosed is returned by Tell/Ask once the actor has been closed.
var ErrClosed = errors.New("chainactor: actor closed")

// Command is any value a handler knows how to interpret. The chain package
// defines its own command types (addBlockCmd, setPeakCmd, ...).
type Command interface{}

// Handler processes one command against the actor's owned state and
// returns a reply value (ignored for Tell) and an error.
type Handler func(cmd Command) (interface{}, error)

// envelope is a command paired with an optional reply channel. A nil reply
// channel marks a fire-and-forget Tell.
type envelope struct {
	cmd   Command
	reply chan result
}

type result struct {
	val interface{}
	err error
}

// Actor is a goroutine that owns state exclusively and serializes every
// mutation submitted to it through a single buffered mailbox. Both Ask and
// Tell preserve FIFO order per sender and total order across all senders,
// since exactly one goroutine ever drains the mailbox.
type Actor struct {
	mailbox chan envelope
	handler Handler
	closed  chan struct{}
	done    chan struct{}
}

// New starts an Actor backed by handler, with a mailbox buffered to
// mailboxSize entries.
func New(handler Handler, mailboxSize int) *Actor {
	a := &Actor{
		mailbox: make(chan envelope, mailboxSize),
		handler: handler,
		closed:  make(chan struct{}),
		done:    make(chan struct{}),
	}
	go a.run()
	return a
}

// stopCmd is the poison pill Close enqueues to end the run loop. The
// mailbox channel itself is never closed, since a concurrent Tell/Ask could
// otherwise race a send against the close and panic.
type stopCmd struct{}

func (a *Actor) run() {
	defer close(a.done)
	for env := range a.mailbox {
		if _, ok := env.cmd.(stopCmd); ok {
			return
		}
		val, err := a.handler(env.cmd)
		if env.reply != nil {
			env.reply <- result{val: val, err: err}
		}
	}
}

// Tell posts cmd without waiting for it to be processed. It never blocks
// the caller on the handler, only on mailbox capacity.
func (a *Actor) Tell(cmd Command) error {
	select {
	case <-a.closed:
		return ErrClosed
	default:
	}
	select {
	case a.mailbox <- envelope{cmd: cmd}:
		return nil
	case <-a.closed:
		return ErrClosed
	}
}

// Ask posts cmd and waits for its result, honoring ctx for both the enqueue
// and the wait. Ask is how every synchronous chain manager call (add_block
// with async=false, set_peak, peak_block, ...) reaches the actor.
func (a *Actor) Ask(ctx context.Context, cmd Command) (interface{}, error) {
	select {
	case <-a.closed:
		return nil, ErrClosed
	default:
	}
	reply := make(chan result, 1)
	select {
	case a.mailbox <- envelope{cmd: cmd, reply: reply}:
	case <-a.closed:
		return nil, ErrClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	select {
	case r := <-reply:
		return r.val, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close stops accepting new commands and waits for the mailbox to drain.
// Commands already queued are still processed; Close does not discard
// them.
func (a *Actor) Close() {
	select {
	case <-a.closed:
		return
	default:
		close(a.closed)
	}
	a.mailbox <- envelope{cmd: stopCmd{}}
	<-a.done
}
