/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package gateway

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Seednode/wordchain/game"
)

// Message types sent by clients.
const (
	TypeJoin          = "join"
	TypeSubmitWord    = "submit_word"
	TypeCancelAttempt = "cancel_attempt"
	TypePreview       = "preview"
	TypeHeartbeat     = "heartbeat"
)

// ClientMessage is the single frame shape clients send.
type ClientMessage struct {
	Type        string `json:"type"`                   // "join", "submit_word", "cancel_attempt", "preview", "heartbeat"
	DisplayName string `json:"display_name,omitempty"` // join
	Text        string `json:"text,omitempty"`         // submit_word
	PartialText string `json:"partial_text,omitempty"` // preview
}

// ProtocolError reports a frame that could not be decoded. The connection
// that sent it is dropped.
type ProtocolError struct {
	Reason string
	Err    error
}

func (e *ProtocolError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("protocol error: %s: %v", e.Reason, e.Err)
	}
	return "protocol error: " + e.Reason
}

func (e *ProtocolError) Unwrap() error { return e.Err }

// IsProtocolError reports whether err came from a malformed frame.
func IsProtocolError(err error) bool {
	var pe *ProtocolError
	return errors.As(err, &pe)
}

// Decode turns one frame into an engine event. Frames the engine does not
// need to see, heartbeats and joins without a name, decode to a nil event.
func Decode(participantID string, data []byte) (game.Event, error) {
	var msg ClientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, &ProtocolError{Reason: "invalid json", Err: err}
	}

	switch msg.Type {
	case TypeJoin:
		if msg.DisplayName == "" {
			return nil, nil
		}
		return game.SetDisplayName{ParticipantID: participantID, Name: msg.DisplayName}, nil
	case TypeSubmitWord:
		return game.SubmitWord{ParticipantID: participantID, Text: msg.Text}, nil
	case TypeCancelAttempt:
		return game.CancelAttempt{ParticipantID: participantID}, nil
	case TypePreview:
		return game.Preview{ParticipantID: participantID, Text: msg.PartialText}, nil
	case TypeHeartbeat:
		return nil, nil
	case "":
		return nil, &ProtocolError{Reason: "missing type"}
	default:
		return nil, &ProtocolError{Reason: fmt.Sprintf("unknown type %q", msg.Type)}
	}
}
