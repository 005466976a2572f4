/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package game

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// WordPolicy decides whether a submitted word may join the sentence.
type WordPolicy interface {
	Validate(text string) error
}

// SingleToken accepts any non-empty text without whitespace. A MaxLength
// of zero leaves the length unbounded.
type SingleToken struct {
	MaxLength int
}

func (p SingleToken) Validate(text string) error {
	if text == "" {
		return fmt.Errorf("%w: empty", ErrInvalidWord)
	}
	if strings.IndexFunc(text, unicode.IsSpace) >= 0 {
		return fmt.Errorf("%w: contains whitespace", ErrInvalidWord)
	}
	if !utf8.ValidString(text) {
		return fmt.Errorf("%w: not valid utf-8", ErrInvalidWord)
	}
	if p.MaxLength > 0 && utf8.RuneCountInString(text) > p.MaxLength {
		return fmt.Errorf("%w: longer than %d characters", ErrInvalidWord, p.MaxLength)
	}
	return nil
}

const maxDisplayNameLength = 32

// validateDisplayName expects a name already trimmed of surrounding space.
func validateDisplayName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty", ErrInvalidName)
	}
	if !utf8.ValidString(name) || utf8.RuneCountInString(name) > maxDisplayNameLength {
		return fmt.Errorf("%w: at most %d characters", ErrInvalidName, maxDisplayNameLength)
	}
	return nil
}
