/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package game

import "errors"

var (
	ErrNotYourTurn        = errors.New("it is not your turn")
	ErrInvalidWord        = errors.New("a word must be a single non-empty token")
	ErrNameLocked         = errors.New("display name cannot change after contributing a word this round")
	ErrInvalidName        = errors.New("invalid display name")
	ErrUnknownParticipant = errors.New("unknown participant")
	ErrQueueExhausted     = errors.New("engine event queue exhausted")
	ErrEngineStopped      = errors.New("engine stopped")
)

// Error kinds sent to clients in error frames.
const (
	KindNotYourTurn             = "not_your_turn"
	KindInvalidWord             = "invalid_word"
	KindNameLocked              = "name_locked"
	KindInvalidName             = "invalid_name"
	KindProtocolError           = "protocol_error"
	KindConnectionLimitExceeded = "connection_limit_exceeded"
	KindInternal                = "internal_error"
)

// KindOf maps an engine error to the kind reported on the wire.
func KindOf(err error) string {
	switch {
	case errors.Is(err, ErrNotYourTurn):
		return KindNotYourTurn
	case errors.Is(err, ErrInvalidWord):
		return KindInvalidWord
	case errors.Is(err, ErrNameLocked):
		return KindNameLocked
	case errors.Is(err, ErrInvalidName):
		return KindInvalidName
	default:
		return KindInternal
	}
}
