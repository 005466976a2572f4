/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package game

import (
	"sort"
	"time"
)

type ConnectionState string

const (
	Connected    ConnectionState = "connected"
	Disconnected ConnectionState = "disconnected"
)

// Participant is one connected player as the engine sees it.
type Participant struct {
	ID          string
	DisplayName string
	Seq         uint64
	State       ConnectionState
	JoinedAt    time.Time
}

func (p *Participant) info() ParticipantInfo {
	return ParticipantInfo{
		ID:              p.ID,
		DisplayName:     p.DisplayName,
		Seq:             p.Seq,
		ConnectionState: p.State,
	}
}

// roster keeps connected participants ordered by join sequence number.
type roster struct {
	entries []*Participant
	byID    map[string]*Participant
}

func newRoster() *roster {
	return &roster{byID: make(map[string]*Participant)}
}

func (r *roster) len() int { return len(r.entries) }

func (r *roster) get(id string) (*Participant, bool) {
	p, ok := r.byID[id]
	return p, ok
}

func (r *roster) add(p *Participant) {
	i := sort.Search(len(r.entries), func(i int) bool { return r.entries[i].Seq > p.Seq })
	r.entries = append(r.entries, nil)
	copy(r.entries[i+1:], r.entries[i:])
	r.entries[i] = p
	r.byID[p.ID] = p
}

func (r *roster) remove(id string) (*Participant, bool) {
	p, ok := r.byID[id]
	if !ok {
		return nil, false
	}
	delete(r.byID, id)
	for i, e := range r.entries {
		if e.ID == id {
			r.entries = append(r.entries[:i], r.entries[i+1:]...)
			break
		}
	}
	p.State = Disconnected
	return p, true
}

// next returns the first connected participant whose sequence number comes
// after seq, wrapping to the lowest. A participant only follows itself when
// it is alone.
func (r *roster) next(seq uint64) (*Participant, bool) {
	if len(r.entries) == 0 {
		return nil, false
	}
	for _, e := range r.entries {
		if e.Seq > seq && e.State == Connected {
			return e, true
		}
	}
	for _, e := range r.entries {
		if e.State == Connected {
			return e, true
		}
	}
	return nil, false
}

func (r *roster) infos() []ParticipantInfo {
	out := make([]ParticipantInfo, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e.info())
	}
	return out
}
