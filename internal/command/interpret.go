// File: internal/command/interpret.go
package command

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrMalformedAction is returned when a reply matches a known grammar prefix
// but carries an unusable payload (for example "WAIT: soon"). Callers treat
// it as a logged no-op for the iteration, never as a run failure.
var ErrMalformedAction = errors.New("malformed action")

// Grammar prefixes, matched case-sensitively and in this order.
const (
	prefixClick = "CLICK:"
	prefixType  = "TYPE:"
	prefixWait  = "WAIT:"
	wordDone    = "DONE"
)

// Interpret maps one raw oracle reply to exactly one Action. It is a pure
// function: same input, same output, no side effects.
//
// CLICK: and TYPE: payloads are the remainder after the prefix, trimmed of
// surrounding whitespace and otherwise verbatim. WAIT: payloads must parse as
// a non-negative finite float. DONE must match exactly. Everything else is
// ActionUnrecognized with a nil error.
func Interpret(response string) (Action, error) {
	switch {
	case strings.HasPrefix(response, prefixClick):
		selector := strings.TrimSpace(strings.TrimPrefix(response, prefixClick))
		return Action{
			Type:         ActionClick,
			Selector:     selector,
			SelectorKind: KindOfSelector(selector),
		}, nil

	case strings.HasPrefix(response, prefixType):
		text := strings.TrimSpace(strings.TrimPrefix(response, prefixType))
		return Action{Type: ActionTypeText, Text: text}, nil

	case strings.HasPrefix(response, prefixWait):
		raw := strings.TrimSpace(strings.TrimPrefix(response, prefixWait))
		seconds, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return Action{}, fmt.Errorf("%w: wait duration %q is not a number", ErrMalformedAction, raw)
		}
		if seconds < 0 || math.IsInf(seconds, 0) || math.IsNaN(seconds) {
			return Action{}, fmt.Errorf("%w: wait duration %q must be non-negative and finite", ErrMalformedAction, raw)
		}
		return Action{Type: ActionWait, Seconds: seconds}, nil

	case response == wordDone:
		return Action{Type: ActionDone}, nil
	}

	return Action{Type: ActionUnrecognized}, nil
}

func containsXPathMarker(selector string) bool {
	return strings.Contains(selector, "//")
}
