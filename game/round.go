/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package game

import (
	"math"
	"time"
)

type Phase string

const (
	WaitingForPlayers Phase = "waiting_for_players"
	ActiveRound       Phase = "active_round"
	// RoundComplete is never observed from outside: a finished round is
	// replaced by the next one within the same event.
	RoundComplete     Phase = "round_complete"
)

type RoundState string

const (
	RoundActive    RoundState = "active"
	RoundCompleted RoundState = "completed"
)

// Reasons a round can end.
const (
	ReasonTarget  = "target"
	ReasonTimeout = "timeout"
)

// Round is one sentence-building session.
type Round struct {
	ID           uint64
	State        RoundState
	StartedAt    time.Time
	LastCommitAt time.Time
}

type contribution struct {
	participantID string
	displayName   string
	chars         int
	typing        time.Duration
}

// summarize folds the round's contributions into per-participant totals,
// in order of first contribution.
func summarize(contributions []contribution) []Contributor {
	out := make([]Contributor, 0)
	index := make(map[string]int)
	typing := make([]time.Duration, 0)

	for _, c := range contributions {
		i, ok := index[c.participantID]
		if !ok {
			i = len(out)
			index[c.participantID] = i
			out = append(out, Contributor{ID: c.participantID, DisplayName: c.displayName})
			typing = append(typing, 0)
		}
		out[i].Words++
		out[i].Chars += c.chars
		typing[i] += c.typing
	}

	for i := range out {
		out[i].WPM = wordsPerMinute(out[i].Chars, typing[i])
	}

	return out
}

// wordsPerMinute uses the usual five-characters-per-word convention.
func wordsPerMinute(chars int, d time.Duration) float64 {
	if d <= 0 || chars == 0 {
		return 0
	}
	wpm := (float64(chars) / 5) / d.Minutes()
	return math.Round(wpm*10) / 10
}

// maybeCompleteRound ends the round once the target word count is reached.
func (e *Engine) maybeCompleteRound() {
	if e.cfg.TargetWordCount > 0 && len(e.words) >= e.cfg.TargetWordCount {
		e.completeRound(ReasonTarget)
	}
}

// roundTimedOut fires when no word has been committed for the inactivity
// timeout. An empty round completes too, with no final words.
func (e *Engine) roundTimedOut() {
	if e.phase != ActiveRound {
		return
	}
	e.completeRound(ReasonTimeout)
}

func (e *Engine) completeRound(reason string) {
	now := e.now()

	finished := e.round
	finished.State = RoundCompleted
	final := append(make([]string, 0, len(e.words)), e.words...)
	contributors := summarize(e.contributions)

	// Reset before publishing so that a resync snapshot taken during the
	// broadcast already shows the next round.
	e.round = Round{
		ID:        finished.ID + 1,
		State:     RoundActive,
		StartedAt: now,
	}
	e.words = nil
	e.contributions = nil
	e.attempt = ""
	e.previewDirty = false

	if e.holder == nil || e.roster.len() == 0 {
		e.holder = nil
		e.phase = WaitingForPlayers
		e.disarmInactivity()
	} else {
		e.phase = ActiveRound
		e.turnStartedAt = now
		e.armInactivity()
	}

	e.dispatch.Publish(RoundSummaryMessage{
		Type:         TypeRoundSummary,
		RoundID:      finished.ID,
		FinalWords:   final,
		Reason:       reason,
		Contributors: contributors,
		NextRoundID:  e.round.ID,
	})

	e.log.Info().
		Uint64("round", finished.ID).
		Str("reason", reason).
		Int("words", len(final)).
		Dur("duration", now.Sub(finished.StartedAt)).
		Msg("round complete")
}
