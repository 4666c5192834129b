// Package engineerr defines the error taxonomy shared by every pipeline stage.
package engineerr

import (
	"errors"
	"fmt"
)

// Kind categorizes engine errors so the boundary can map them to caller-visible statuses.
type Kind string

const (
	ParseFailure      Kind = "ParseFailure"
	TemplateFailure   Kind = "TemplateFailure"
	GenerationFailure Kind = "GenerationFailure"
	ArchiveFailure    Kind = "ArchiveFailure"
)

// Sentinels for errors.Is matching by kind.
var (
	ErrParse      = &Error{Kind: ParseFailure}
	ErrTemplate   = &Error{Kind: TemplateFailure}
	ErrGeneration = &Error{Kind: GenerationFailure}
	ErrArchive    = &Error{Kind: ArchiveFailure}
)

// Error is the root engine error. Message is the human-readable diagnostic; Cause is
// the underlying error when one exists.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string { return e.Message }
func (e *Error) Unwrap() error { return e.Cause }

// Is reports whether target is an engine error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// SafeMessage returns text that may be shown to the caller. Parse failures are the
// caller's fault and carry a precise message; everything else is an operator problem.
func (e *Error) SafeMessage() string {
	switch e.Kind {
	case ParseFailure:
		return e.Message
	case TemplateFailure:
		return "Failed to render project template."
	case GenerationFailure:
		return "Failed to generate project. Please try again."
	case ArchiveFailure:
		return "Failed to package the generated project."
	default:
		return "An unexpected error occurred."
	}
}

func newf(kind Kind, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// Parse builds a ParseFailure.
func Parse(cause error, format string, args ...any) *Error {
	return newf(ParseFailure, cause, format, args...)
}

// Template builds a TemplateFailure.
func Template(cause error, format string, args ...any) *Error {
	return newf(TemplateFailure, cause, format, args...)
}

// Generation builds a GenerationFailure.
func Generation(cause error, format string, args ...any) *Error {
	return newf(GenerationFailure, cause, format, args...)
}

// Archive builds an ArchiveFailure.
func Archive(cause error, format string, args ...any) *Error {
	return newf(ArchiveFailure, cause, format, args...)
}

// KindOf extracts the kind of the first engine error in err's chain.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}
