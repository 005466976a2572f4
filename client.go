/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Seednode/wordchain/game"
	"github.com/Seednode/wordchain/gateway"
)

const clientHeartbeat = 20 * time.Second

// parseInput turns one line typed by the player into a frame. Blank lines
// produce nothing.
func parseInput(line string) (gateway.ClientMessage, bool) {
	line = strings.TrimRight(line, "\r\n")

	switch {
	case strings.TrimSpace(line) == "":
		return gateway.ClientMessage{}, false
	case line == "/cancel":
		return gateway.ClientMessage{Type: gateway.TypeCancelAttempt}, true
	case strings.HasPrefix(line, "/name "):
		return gateway.ClientMessage{Type: gateway.TypeJoin, DisplayName: strings.TrimSpace(strings.TrimPrefix(line, "/name "))}, true
	default:
		return gateway.ClientMessage{Type: gateway.TypeSubmitWord, Text: line}, true
	}
}

// view tracks enough state to print server frames as readable lines.
type view struct {
	self  string
	names map[string]string
}

func newView() *view {
	return &view{names: make(map[string]string)}
}

func (v *view) name(id string) string {
	if id == "" {
		return "nobody"
	}
	n, ok := v.names[id]
	if !ok {
		n = id
	}
	if id == v.self {
		n += " (you)"
	}
	return n
}

func (v *view) render(data []byte) (string, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return "", err
	}

	switch head.Type {
	case game.TypeSnapshot:
		var m game.SnapshotMessage
		if err := json.Unmarshal(data, &m); err != nil {
			return "", err
		}
		if m.You != "" {
			v.self = m.You
		}
		for _, p := range m.Roster {
			v.names[p.ID] = p.DisplayName
		}
		return fmt.Sprintf("round %d: %q (%d/%d words), %d players, turn: %s",
			m.RoundID, strings.Join(m.Words, " "), len(m.Words), m.TargetWordCount, len(m.Roster), v.name(m.TokenHolderID)), nil

	case game.TypeWordCommitted:
		var m game.WordCommittedMessage
		if err := json.Unmarshal(data, &m); err != nil {
			return "", err
		}
		return fmt.Sprintf("%s: %s (%.1fs), next: %s",
			v.name(m.By), m.Word, float64(m.TypingMillis)/1000, v.name(m.NextTokenHolderID)), nil

	case game.TypePreviewUpdate:
		var m game.PreviewUpdateMessage
		if err := json.Unmarshal(data, &m); err != nil {
			return "", err
		}
		if m.PartialText == "" {
			return "", nil
		}
		return fmt.Sprintf("%s is typing: %s", v.name(m.HolderID), m.PartialText), nil

	case game.TypeRoundSummary:
		var m game.RoundSummaryMessage
		if err := json.Unmarshal(data, &m); err != nil {
			return "", err
		}
		var b strings.Builder
		fmt.Fprintf(&b, "round %d complete (%s): %s", m.RoundID, m.Reason, strings.Join(m.FinalWords, " "))
		for _, c := range m.Contributors {
			fmt.Fprintf(&b, "\n  %s: %d words, %.1f wpm", c.DisplayName, c.Words, c.WPM)
		}
		return b.String(), nil

	case game.TypeParticipantJoined, game.TypeParticipantLeft, game.TypeParticipantRenamed:
		var m game.RosterMessage
		if err := json.Unmarshal(data, &m); err != nil {
			return "", err
		}
		before := v.name(m.Participant.ID)
		v.names[m.Participant.ID] = m.Participant.DisplayName

		switch m.Type {
		case game.TypeParticipantJoined:
			return fmt.Sprintf("%s joined (%d active)", v.name(m.Participant.ID), m.Active), nil
		case game.TypeParticipantLeft:
			return fmt.Sprintf("%s left (%d active), turn: %s", v.name(m.Participant.ID), m.Active, v.name(m.TokenHolderID)), nil
		default:
			return fmt.Sprintf("%s is now %s", before, m.Participant.DisplayName), nil
		}

	case game.TypeError:
		var m game.ErrorMessage
		if err := json.Unmarshal(data, &m); err != nil {
			return "", err
		}
		return fmt.Sprintf("error (%s): %s", m.Kind, m.Message), nil
	}

	return "", nil
}

func runClient(ctx context.Context, cfg *Config, in io.Reader, out io.Writer) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, cfg.server, nil)
	if err != nil {
		return fmt.Errorf("could not connect to %s: %w", cfg.server, err)
	}
	defer conn.Close()

	if cfg.name != "" {
		if err := conn.WriteJSON(gateway.ClientMessage{Type: gateway.TypeJoin, DisplayName: cfg.name}); err != nil {
			return err
		}
	}

	readErr := make(chan error, 1)
	go func() {
		v := newView()
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				readErr <- err
				return
			}
			line, err := v.render(data)
			if err != nil {
				readErr <- err
				return
			}
			if line != "" {
				fmt.Fprintln(out, line)
			}
		}
	}()

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	ticker := time.NewTicker(clientHeartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return closeClient(conn)
		case err := <-readErr:
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return err
		case line, ok := <-lines:
			if !ok {
				return closeClient(conn)
			}
			msg, ok := parseInput(line)
			if !ok {
				continue
			}
			if err := conn.WriteJSON(msg); err != nil {
				return err
			}
		case <-ticker.C:
			if err := conn.WriteJSON(gateway.ClientMessage{Type: gateway.TypeHeartbeat}); err != nil {
				return err
			}
		}
	}
}

func closeClient(conn *websocket.Conn) error {
	err := conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	if err != nil && !errors.Is(err, websocket.ErrCloseSent) {
		return err
	}
	return nil
}
