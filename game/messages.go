/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package game

// Message types sent to clients.
const (
	TypeSnapshot           = "full_state_snapshot"
	TypeWordCommitted      = "word_committed"
	TypePreviewUpdate      = "preview_update"
	TypeRoundSummary       = "round_summary"
	TypeParticipantJoined  = "participant_joined"
	TypeParticipantLeft    = "participant_left"
	TypeParticipantRenamed = "participant_renamed"
	TypeError              = "error"
)

// Message is anything the engine delivers to a participant's outbox.
type Message interface {
	MessageType() string
}

// ParticipantInfo is the wire view of a roster entry.
type ParticipantInfo struct {
	ID              string          `json:"id"`
	DisplayName     string          `json:"display_name"`
	Seq             uint64          `json:"seq"`
	ConnectionState ConnectionState `json:"connection_state"`
}

// SnapshotMessage carries the complete state, for late joiners and resyncs.
type SnapshotMessage struct {
	Type               string            `json:"type"` // "full_state_snapshot"
	Seq                uint64            `json:"seq"`
	Phase              Phase             `json:"phase"`
	RoundID            uint64            `json:"round_id"`
	Words              []string          `json:"words"`
	CurrentWordAttempt string            `json:"current_word_attempt"`
	TokenHolderID      string            `json:"token_holder_id"`
	Roster             []ParticipantInfo `json:"roster"`
	TargetWordCount    int               `json:"target_word_count"`
	You                string            `json:"you,omitempty"`
	Resync             bool              `json:"resync"`
}

func (SnapshotMessage) MessageType() string { return TypeSnapshot }

type WordCommittedMessage struct {
	Type              string `json:"type"` // "word_committed"
	Seq               uint64 `json:"seq"`
	RoundID           uint64 `json:"round_id"`
	Word              string `json:"word"`
	By                string `json:"by"`
	NextTokenHolderID string `json:"next_token_holder_id"`
	WordIndex         int    `json:"word_index"`
	TypingMillis      int64  `json:"typing_ms"`
}

func (WordCommittedMessage) MessageType() string { return TypeWordCommitted }

type PreviewUpdateMessage struct {
	Type        string `json:"type"` // "preview_update"
	Seq         uint64 `json:"seq"`
	PartialText string `json:"partial_text"`
	HolderID    string `json:"holder_id"`
}

func (PreviewUpdateMessage) MessageType() string { return TypePreviewUpdate }

// Contributor summarizes one participant's share of a finished round.
type Contributor struct {
	ID          string  `json:"id"`
	DisplayName string  `json:"display_name"`
	Words       int     `json:"words"`
	Chars       int     `json:"chars"`
	WPM         float64 `json:"wpm"`
}

type RoundSummaryMessage struct {
	Type         string        `json:"type"` // "round_summary"
	Seq          uint64        `json:"seq"`
	RoundID      uint64        `json:"round_id"`
	FinalWords   []string      `json:"final_words"`
	Reason       string        `json:"reason"` // "target" or "timeout"
	Contributors []Contributor `json:"contributors"`
	NextRoundID  uint64        `json:"next_round_id"`
}

func (RoundSummaryMessage) MessageType() string { return TypeRoundSummary }

// RosterMessage announces joins, leaves and renames.
type RosterMessage struct {
	Type          string          `json:"type"` // "participant_joined", "participant_left" or "participant_renamed"
	Seq           uint64          `json:"seq"`
	Participant   ParticipantInfo `json:"participant"`
	TokenHolderID string          `json:"token_holder_id"`
	Active        int             `json:"active"`
}

func (m RosterMessage) MessageType() string { return m.Type }

// ErrorMessage is only ever sent to the participant that caused it.
type ErrorMessage struct {
	Type    string `json:"type"` // "error"
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

func (ErrorMessage) MessageType() string { return TypeError }

// NewErrorMessage builds the error frame for err.
func NewErrorMessage(kind string, err error) ErrorMessage {
	return ErrorMessage{
		Type:    TypeError,
		Kind:    kind,
		Message: err.Error(),
	}
}

// withSeq stamps a broadcast with its sequence number.
func withSeq(m Message, seq uint64) Message {
	switch v := m.(type) {
	case SnapshotMessage:
		v.Seq = seq
		return v
	case WordCommittedMessage:
		v.Seq = seq
		return v
	case PreviewUpdateMessage:
		v.Seq = seq
		return v
	case RoundSummaryMessage:
		v.Seq = seq
		return v
	case RosterMessage:
		v.Seq = seq
		return v
	default:
		return m
	}
}
