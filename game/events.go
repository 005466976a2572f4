/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package game

// Event is one input to the engine's apply loop.
type Event interface {
	eventName() string
}

// Joined registers a freshly accepted connection.
type Joined struct {
	ParticipantID string
	DisplayName   string
	Outbox        *Outbox
}

// Left is emitted exactly once per connection when it goes away.
type Left struct {
	ParticipantID string
}

type SubmitWord struct {
	ParticipantID string
	Text          string
}

type CancelAttempt struct {
	ParticipantID string
}

type SetDisplayName struct {
	ParticipantID string
	Name          string
}

// Preview carries the holder's partially typed word.
type Preview struct {
	ParticipantID string
	Text          string
}

type snapshotRequest struct {
	reply chan SnapshotMessage
}

func (Joined) eventName() string          { return "participant_joined" }
func (Left) eventName() string            { return "participant_left" }
func (SubmitWord) eventName() string      { return "submit_word" }
func (CancelAttempt) eventName() string   { return "cancel_attempt" }
func (SetDisplayName) eventName() string  { return "set_display_name" }
func (Preview) eventName() string         { return "preview" }
func (snapshotRequest) eventName() string { return "snapshot" }
