/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package game

import "github.com/rs/zerolog"

// Dispatcher fans engine deltas out to every attached outbox. It is owned by
// the engine goroutine and is not safe for concurrent use; that single owner
// is what makes every participant observe the same broadcast order.
type Dispatcher struct {
	order    []string
	outboxes map[string]*Outbox
	seq      uint64
	snapshot func() SnapshotMessage
	log      zerolog.Logger
}

func NewDispatcher(log zerolog.Logger, snapshot func() SnapshotMessage) *Dispatcher {
	return &Dispatcher{
		outboxes: make(map[string]*Outbox),
		snapshot: snapshot,
		log:      log,
	}
}

func (d *Dispatcher) Attach(id string, o *Outbox) {
	if _, ok := d.outboxes[id]; !ok {
		d.order = append(d.order, id)
	}
	d.outboxes[id] = o
}

func (d *Dispatcher) Detach(id string) {
	if _, ok := d.outboxes[id]; !ok {
		return
	}
	delete(d.outboxes, id)
	for i, v := range d.order {
		if v == id {
			d.order = append(d.order[:i], d.order[i+1:]...)
			break
		}
	}
}

// Seq is the sequence number of the last published broadcast.
func (d *Dispatcher) Seq() uint64 { return d.seq }

func (d *Dispatcher) Len() int { return len(d.order) }

// Publish stamps m with the next sequence number and offers it to every
// attached outbox.
func (d *Dispatcher) Publish(m Message) Message {
	d.seq++
	stamped := withSeq(m, d.seq)

	var resync Message
	resyncFn := func() Message {
		if resync == nil {
			snap := d.snapshot()
			snap.Seq = d.seq
			snap.Resync = true
			resync = snap
		}
		return resync
	}

	for _, id := range d.order {
		if d.outboxes[id].Offer(stamped, resyncFn) {
			d.log.Warn().
				Str("participant", id).
				Uint64("seq", d.seq).
				Msg("slow consumer, backlog replaced with snapshot")
		}
	}

	return stamped
}

// Unicast delivers m to a single participant without consuming a sequence
// number.
func (d *Dispatcher) Unicast(id string, m Message) {
	o, ok := d.outboxes[id]
	if !ok {
		return
	}
	resyncFn := func() Message {
		snap := d.snapshot()
		snap.Seq = d.seq
		snap.Resync = true
		return snap
	}
	if o.Offer(m, resyncFn) {
		d.log.Warn().Str("participant", id).Msg("slow consumer, backlog replaced with snapshot")
	}
}
