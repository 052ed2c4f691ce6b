package jc

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors. Most callers compare with errors.Is; checkStaticEmission
// must additionally surface one of spec.md §8's literal phrases, wrapped via
// LiteralError so errors.Is
// keeps working against these sentinels even though Error() no longer
// returns the generic text below.
var (
	ErrUnboundEmitter          = errors.New("molecule is not bound to any reaction site")
	ErrStaticProtocolViolation = errors.New("static molecule protocol violation")
	ErrUnboundOutputs          = errors.New("reaction outputs are not bound to any site")
	ErrNoReply                 = errors.New("reaction finished without replying")
	ErrMultipleReply           = errors.New("multiple reply to the same molecule")
	ErrTimedOut                = errors.New("blocking emission timed out")
)

// LiteralError pairs an exact, spec-mandated message with a sentinel so
// errors.Is(err, sentinel) still holds even when Error() must return literal
// text rather than a generic template.
type LiteralError struct {
	Text     string
	Sentinel error
}

func (e *LiteralError) Error() string { return e.Text }
func (e *LiteralError) Unwrap() error { return e.Sentinel }

// ConfigError reports the errors an analyzer pass found while building a
// site. It never carries warnings; those are logged, not returned.
type ConfigError struct {
	Site   string
	Issues []string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("In %s: %s", e.Site, strings.Join(e.Issues, "; "))
}

// ValidationError accumulates issues the way internal/achem/validation.go's
// ValidationError does: callers Add() as they go and check HasIssues() once
// at the end, rather than returning on the first problem found.
type ValidationError struct {
	Issues []string
}

func (e *ValidationError) Add(issue string) {
	e.Issues = append(e.Issues, issue)
}

func (e *ValidationError) HasIssues() bool {
	return len(e.Issues) > 0
}

func (e *ValidationError) Error() string {
	return strings.Join(e.Issues, "; ")
}
