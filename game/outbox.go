/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package game

import "sync"

// Outbox is a participant's bounded outbound queue. Offer never blocks: when
// the queue is full the backlog is discarded and replaced by a resync
// snapshot, so a slow reader can never stall the engine or other readers.
type Outbox struct {
	mu      sync.Mutex
	queue   []Message
	size    int
	resyncs int
	closed  bool

	ready chan struct{}
	done  chan struct{}
}

func NewOutbox(size int) *Outbox {
	if size < 1 {
		size = 1
	}
	return &Outbox{
		queue: make([]Message, 0, size),
		size:  size,
		ready: make(chan struct{}, 1),
		done:  make(chan struct{}),
	}
}

// Offer queues m. If the queue is saturated, everything buffered is dropped
// and resync() is queued in its place; the return value reports whether
// that happened.
func (o *Outbox) Offer(m Message, resync func() Message) bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed {
		return false
	}

	resynced := false
	if len(o.queue) < o.size {
		o.queue = append(o.queue, m)
	} else {
		clear(o.queue)
		o.queue = append(o.queue[:0], resync())
		o.resyncs++
		resynced = true
	}

	select {
	case o.ready <- struct{}{}:
	default:
	}

	return resynced
}

// Drain removes and returns everything currently queued.
func (o *Outbox) Drain() []Message {
	o.mu.Lock()
	defer o.mu.Unlock()

	if len(o.queue) == 0 {
		return nil
	}
	out := make([]Message, len(o.queue))
	copy(out, o.queue)
	clear(o.queue)
	o.queue = o.queue[:0]
	return out
}

// Ready is signalled whenever new messages may be waiting.
func (o *Outbox) Ready() <-chan struct{} { return o.ready }

// Done is closed once the outbox is closed.
func (o *Outbox) Done() <-chan struct{} { return o.done }

func (o *Outbox) Len() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.queue)
}

// Resyncs reports how many times the backlog was replaced by a snapshot.
func (o *Outbox) Resyncs() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.resyncs
}

func (o *Outbox) Close() {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed {
		return
	}
	o.closed = true
	close(o.done)
}
