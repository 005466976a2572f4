/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package game holds the single shared sentence and everything that mutates
// it. All state lives inside one Engine goroutine; connections only ever
// enqueue events and read from their own Outbox.
package game

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/Seednode/wordchain/game"

type Config struct {
	// TargetWordCount completes a round once this many words are committed.
	TargetWordCount int
	// InactivityTimeout completes the round when no word has been committed
	// for this long. Zero disables it.
	InactivityTimeout time.Duration
	// PreviewInterval coalesces live previews; only the latest one per
	// interval is broadcast. Zero broadcasts every preview.
	PreviewInterval time.Duration
	QueueSize       int
	// QueueTimeout bounds how long Enqueue waits on a full queue before
	// reporting ErrQueueExhausted.
	QueueTimeout time.Duration
	Policy       WordPolicy
}

func DefaultConfig() Config {
	return Config{
		TargetWordCount:   12,
		InactivityTimeout: 2 * time.Minute,
		PreviewInterval:   100 * time.Millisecond,
		QueueSize:         1024,
		QueueTimeout:      2 * time.Second,
		Policy:            SingleToken{},
	}
}

type Option func(*Engine)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// Engine is the session engine: the sole owner and mutator of the game state.
type Engine struct {
	cfg    Config
	log    zerolog.Logger
	tracer trace.Tracer
	now    func() time.Time

	events chan Event
	done   chan struct{}

	roster        *roster
	dispatch      *Dispatcher
	joinSeq       uint64
	phase         Phase
	round         Round
	words         []string
	contributions []contribution
	committed     uint64
	attempt       string
	previewDirty  bool
	holder        *Participant
	turnStartedAt time.Time

	inactivity *time.Timer
}

func New(cfg Config, log zerolog.Logger, opts ...Option) *Engine {
	if cfg.Policy == nil {
		cfg.Policy = SingleToken{}
	}
	if cfg.QueueSize < 1 {
		cfg.QueueSize = 1
	}

	e := &Engine{
		cfg:    cfg,
		log:    log.With().Str("component", "engine").Logger(),
		tracer: otel.Tracer(tracerName),
		now:    time.Now,
		events: make(chan Event, cfg.QueueSize),
		done:   make(chan struct{}),
		roster: newRoster(),
		phase:  WaitingForPlayers,
	}
	for _, opt := range opts {
		opt(e)
	}

	e.round = Round{ID: 1, State: RoundActive, StartedAt: e.now()}
	e.dispatch = NewDispatcher(e.log, e.snapshot)

	return e
}

// Enqueue hands ev to the apply loop. It returns ErrQueueExhausted if the
// queue stays full for the configured timeout, which callers must treat as a
// process-level fault.
func (e *Engine) Enqueue(ctx context.Context, ev Event) error {
	select {
	case <-e.done:
		return ErrEngineStopped
	default:
	}

	select {
	case e.events <- ev:
		return nil
	default:
	}

	var expired <-chan time.Time
	if e.cfg.QueueTimeout > 0 {
		t := time.NewTimer(e.cfg.QueueTimeout)
		defer t.Stop()
		expired = t.C
	}

	select {
	case e.events <- ev:
		return nil
	case <-e.done:
		return ErrEngineStopped
	case <-ctx.Done():
		return ctx.Err()
	case <-expired:
		e.log.Error().Str("event", ev.eventName()).Int("capacity", cap(e.events)).Msg("event queue exhausted")
		return fmt.Errorf("%w: %d events pending", ErrQueueExhausted, cap(e.events))
	}
}

// Snapshot reads the current state through the event queue.
func (e *Engine) Snapshot(ctx context.Context) (SnapshotMessage, error) {
	req := snapshotRequest{reply: make(chan SnapshotMessage, 1)}
	if err := e.Enqueue(ctx, req); err != nil {
		return SnapshotMessage{}, err
	}

	select {
	case snap := <-req.reply:
		return snap, nil
	case <-e.done:
		return SnapshotMessage{}, ErrEngineStopped
	case <-ctx.Done():
		return SnapshotMessage{}, ctx.Err()
	}
}

// Done is closed once Run has returned.
func (e *Engine) Done() <-chan struct{} { return e.done }

// Run drains the event queue until ctx is cancelled.
func (e *Engine) Run(ctx context.Context) error {
	defer close(e.done)

	e.inactivity = time.NewTimer(time.Hour)
	e.disarmInactivity()
	defer e.inactivity.Stop()

	var previews <-chan time.Time
	if e.cfg.PreviewInterval > 0 {
		ticker := time.NewTicker(e.cfg.PreviewInterval)
		defer ticker.Stop()
		previews = ticker.C
	}

	e.log.Info().
		Int("target_words", e.cfg.TargetWordCount).
		Dur("inactivity_timeout", e.cfg.InactivityTimeout).
		Msg("engine started")

	for {
		select {
		case <-ctx.Done():
			e.log.Info().Uint64("round", e.round.ID).Uint64("words_committed", e.committed).Msg("engine stopped")
			return nil
		case ev := <-e.events:
			e.apply(ctx, ev)
		case <-previews:
			e.flushPreview()
		case <-e.inactivity.C:
			e.roundTimedOut()
		}
	}
}

func (e *Engine) apply(ctx context.Context, ev Event) {
	_, span := e.tracer.Start(ctx, "engine.apply",
		trace.WithAttributes(attribute.String("event", ev.eventName())))
	defer span.End()

	var (
		from string
		err  error
	)

	switch ev := ev.(type) {
	case Joined:
		e.join(ev)
	case Left:
		e.leave(ev)
	case SubmitWord:
		from, err = ev.ParticipantID, e.submit(ev)
	case CancelAttempt:
		e.cancel(ev)
	case SetDisplayName:
		from, err = ev.ParticipantID, e.rename(ev)
	case Preview:
		e.preview(ev)
	case snapshotRequest:
		ev.reply <- e.snapshot()
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		e.log.Debug().Str("participant", from).Str("event", ev.eventName()).Err(err).Msg("event rejected")
		e.dispatch.Unicast(from, NewErrorMessage(KindOf(err), err))
		return
	}

	e.log.Debug().Str("event", ev.eventName()).Str("phase", string(e.phase)).Uint64("seq", e.dispatch.Seq()).Msg("event applied")
}

func (e *Engine) join(ev Joined) {
	if _, exists := e.roster.get(ev.ParticipantID); exists {
		e.log.Warn().Str("participant", ev.ParticipantID).Msg("duplicate join ignored")
		return
	}

	e.joinSeq++
	name := strings.TrimSpace(ev.DisplayName)
	if validateDisplayName(name) != nil {
		name = fmt.Sprintf("player-%d", e.joinSeq)
	}

	p := &Participant{
		ID:          ev.ParticipantID,
		DisplayName: name,
		Seq:         e.joinSeq,
		State:       Connected,
		JoinedAt:    e.now(),
	}
	e.roster.add(p)

	if e.phase == WaitingForPlayers {
		e.holder = p
		e.phase = ActiveRound
		e.turnStartedAt = e.now()
		e.armInactivity()
	}

	// Existing participants hear about the join first; the newcomer is
	// attached afterwards and starts from a snapshot that already includes it.
	e.dispatch.Publish(RosterMessage{
		Type:          TypeParticipantJoined,
		Participant:   p.info(),
		TokenHolderID: e.holderID(),
		Active:        e.roster.len(),
	})

	if ev.Outbox != nil {
		e.dispatch.Attach(p.ID, ev.Outbox)
		snap := e.snapshot()
		snap.You = p.ID
		e.dispatch.Unicast(p.ID, snap)
	}

	e.log.Info().Str("participant", p.ID).Str("name", p.DisplayName).Int("active", e.roster.len()).Msg("participant joined")
}

func (e *Engine) leave(ev Left) {
	p, ok := e.roster.remove(ev.ParticipantID)
	if !ok {
		return
	}
	e.dispatch.Detach(p.ID)

	if e.holder == p {
		e.attempt = ""
		e.previewDirty = false
		e.holder = nil
		if next, ok := e.roster.next(p.Seq); ok {
			e.holder = next
			e.turnStartedAt = e.now()
		}
	}

	if e.holder == nil {
		e.phase = WaitingForPlayers
		e.disarmInactivity()
	}

	e.dispatch.Publish(RosterMessage{
		Type:          TypeParticipantLeft,
		Participant:   p.info(),
		TokenHolderID: e.holderID(),
		Active:        e.roster.len(),
	})

	e.log.Info().Str("participant", p.ID).Str("token_holder", e.holderID()).Int("active", e.roster.len()).Msg("participant left")
}

func (e *Engine) submit(ev SubmitWord) error {
	p, ok := e.roster.get(ev.ParticipantID)
	if !ok {
		return ErrUnknownParticipant
	}
	if e.holder != p {
		return ErrNotYourTurn
	}
	if err := e.cfg.Policy.Validate(ev.Text); err != nil {
		return err
	}

	now := e.now()
	typing := now.Sub(e.turnStartedAt)
	index := len(e.words)

	e.words = append(e.words, ev.Text)
	e.contributions = append(e.contributions, contribution{
		participantID: p.ID,
		displayName:   p.DisplayName,
		chars:         len([]rune(ev.Text)),
		typing:        typing,
	})
	e.committed++
	e.attempt = ""
	e.previewDirty = false

	next, _ := e.roster.next(p.Seq)
	e.holder = next
	e.turnStartedAt = now
	e.round.LastCommitAt = now
	e.armInactivity()

	e.dispatch.Publish(WordCommittedMessage{
		Type:              TypeWordCommitted,
		RoundID:           e.round.ID,
		Word:              ev.Text,
		By:                p.ID,
		NextTokenHolderID: e.holderID(),
		WordIndex:         index,
		TypingMillis:      typing.Milliseconds(),
	})

	e.maybeCompleteRound()

	return nil
}

func (e *Engine) cancel(ev CancelAttempt) {
	if e.holder == nil || e.holder.ID != ev.ParticipantID {
		return
	}

	hadAttempt := e.attempt != "" || e.previewDirty
	e.attempt = ""
	e.previewDirty = false

	if hadAttempt {
		e.dispatch.Publish(PreviewUpdateMessage{
			Type:     TypePreviewUpdate,
			HolderID: e.holder.ID,
		})
	}
}

func (e *Engine) preview(ev Preview) {
	if e.holder == nil || e.holder.ID != ev.ParticipantID {
		return
	}
	if ev.Text == e.attempt {
		return
	}

	e.attempt = ev.Text
	e.previewDirty = true

	if e.cfg.PreviewInterval <= 0 {
		e.flushPreview()
	}
}

func (e *Engine) flushPreview() {
	if !e.previewDirty || e.holder == nil {
		return
	}
	e.previewDirty = false

	e.dispatch.Publish(PreviewUpdateMessage{
		Type:        TypePreviewUpdate,
		PartialText: e.attempt,
		HolderID:    e.holder.ID,
	})
}

func (e *Engine) rename(ev SetDisplayName) error {
	p, ok := e.roster.get(ev.ParticipantID)
	if !ok {
		return ErrUnknownParticipant
	}
	name := strings.TrimSpace(ev.Name)
	if err := validateDisplayName(name); err != nil {
		return err
	}
	if p.DisplayName == name {
		return nil
	}
	for _, c := range e.contributions {
		if c.participantID == p.ID {
			return ErrNameLocked
		}
	}

	p.DisplayName = name

	e.dispatch.Publish(RosterMessage{
		Type:          TypeParticipantRenamed,
		Participant:   p.info(),
		TokenHolderID: e.holderID(),
		Active:        e.roster.len(),
	})

	return nil
}

func (e *Engine) holderID() string {
	if e.holder == nil {
		return ""
	}
	return e.holder.ID
}

func (e *Engine) snapshot() SnapshotMessage {
	words := make([]string, len(e.words))
	copy(words, e.words)

	return SnapshotMessage{
		Type:               TypeSnapshot,
		Seq:                e.dispatch.Seq(),
		Phase:              e.phase,
		RoundID:            e.round.ID,
		Words:              words,
		CurrentWordAttempt: e.attempt,
		TokenHolderID:      e.holderID(),
		Roster:             e.roster.infos(),
		TargetWordCount:    e.cfg.TargetWordCount,
	}
}

func (e *Engine) armInactivity() {
	if e.inactivity == nil || e.cfg.InactivityTimeout <= 0 {
		return
	}
	e.inactivity.Reset(e.cfg.InactivityTimeout)
}

func (e *Engine) disarmInactivity() {
	if e.inactivity == nil {
		return
	}
	e.inactivity.Stop()
}
