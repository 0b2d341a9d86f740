package session

import "sync"

// Command is one update for the page: a script to run or HTML to patch into
// a selector.
type Command struct {
	Script   string
	HTML     string
	Selector string
}

// Outbox queues page updates until the SSE stream drains them. Writers never
// block; the stream is woken through Ready.
type Outbox struct {
	mu      sync.Mutex
	pending []Command
	ready   chan struct{}
	done    chan struct{}
	closed  bool
}

// NewOutbox creates an empty outbox.
func NewOutbox() *Outbox {
	return &Outbox{
		ready: make(chan struct{}, 1),
		done:  make(chan struct{}),
	}
}

// Script queues a script. It satisfies maplibre.Sink.
func (o *Outbox) Script(js string) {
	o.push(Command{Script: js})
}

// Patch queues HTML to replace the inner content at selector.
func (o *Outbox) Patch(html, selector string) {
	o.push(Command{HTML: html, Selector: selector})
}

func (o *Outbox) push(c Command) {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return
	}
	o.pending = append(o.pending, c)
	o.mu.Unlock()

	select {
	case o.ready <- struct{}{}:
	default:
		// already signalled
	}
}

// Ready fires after commands are queued.
func (o *Outbox) Ready() <-chan struct{} { return o.ready }

// Done is closed when the outbox is closed.
func (o *Outbox) Done() <-chan struct{} { return o.done }

// Drain returns the queued commands in order and empties the queue.
func (o *Outbox) Drain() []Command {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := o.pending
	o.pending = nil
	return out
}

// Len returns the number of queued commands.
func (o *Outbox) Len() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.pending)
}

// Close drops anything queued later. Commands already queued can still be
// drained.
func (o *Outbox) Close() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return
	}
	o.closed = true
	close(o.done)
}
