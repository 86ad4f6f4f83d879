// Package errors provides the sentinel errors shared by the chess server.
// Every failure a client can trigger maps onto one of these so the
// coordinator can turn it into a directed ERROR message with a stable code.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for the command failure taxonomy.
// Use these with errors.Is() to classify a failure.
var (
	// ErrUnauthorized indicates a missing or unknown auth token.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden indicates an action the caller is not allowed to take:
	// a taken role slot, acting out of turn, or an observer making a move.
	ErrForbidden = errors.New("forbidden")

	// ErrNotFound indicates an unknown game or square.
	ErrNotFound = errors.New("not found")

	// ErrInvalidMove indicates a move that fails legality checks.
	ErrInvalidMove = errors.New("invalid move")

	// ErrMalformedCommand indicates input that could not be parsed.
	ErrMalformedCommand = errors.New("malformed command")

	// ErrInvalidConfig indicates invalid configuration values.
	ErrInvalidConfig = errors.New("invalid configuration")
)

// ErrGameOver is returned for commands that need a live game after it ended.
// It wraps ErrForbidden so callers classifying by taxonomy see Forbidden.
var ErrGameOver = fmt.Errorf("game is over: %w", ErrForbidden)

// Wire codes reported in ERROR messages.
const (
	CodeUnauthorized     = "UNAUTHORIZED"
	CodeForbidden        = "FORBIDDEN"
	CodeNotFound         = "NOT_FOUND"
	CodeInvalidMove      = "INVALID_MOVE"
	CodeMalformedCommand = "MALFORMED_COMMAND"
	CodeInternal         = "INTERNAL"
)

// Code maps err onto the wire code of the first sentinel it wraps.
// Unclassified errors report CodeInternal.
func Code(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrUnauthorized):
		return CodeUnauthorized
	case errors.Is(err, ErrForbidden):
		return CodeForbidden
	case errors.Is(err, ErrNotFound):
		return CodeNotFound
	case errors.Is(err, ErrInvalidMove):
		return CodeInvalidMove
	case errors.Is(err, ErrMalformedCommand):
		return CodeMalformedCommand
	default:
		return CodeInternal
	}
}

// Is reports whether any error in err's chain matches target.
// It is a convenience so callers importing this package don't also need
// the standard errors package.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// Wrap adds context to an error while preserving the underlying error
// for inspection with errors.Is() and errors.As().
func Wrap(err error, context string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", context, err)
}

// Wrapf adds formatted context to an error while preserving the underlying
// error for inspection with errors.Is() and errors.As().
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return Wrap(err, fmt.Sprintf(format, args...))
}
