package flow

import (
	"errors"
	"fmt"

	"github.com/artisanhub/craft-ai-bridge/schema"
)

// ErrorKind tags an invocation failure. Validation never reaches the
// provider; the other three kinds classify what came back (or didn't).
type ErrorKind string

const (
	KindValidation          ErrorKind = "validation"
	KindProviderUnavailable ErrorKind = "provider_unavailable"
	KindContentBlocked      ErrorKind = "content_blocked"
	KindEmptyOutput         ErrorKind = "empty_output"
)

// Error is the typed failure of one flow invocation. Message is safe to
// show an end user; Err carries the raw cause and must only ever be
// logged server-side.
type Error struct {
	Kind    ErrorKind
	Flow    string
	Message string
	Fields  schema.FieldErrors
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("flow %s: %s: %v", e.Flow, e.Kind, e.Err)
	}
	if len(e.Fields) > 0 {
		return fmt.Sprintf("flow %s: %s: %v", e.Flow, e.Kind, e.Fields.Error())
	}
	return fmt.Sprintf("flow %s: %s: %s", e.Flow, e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// AsError extracts a flow error from an error chain.
func AsError(err error) (*Error, bool) {
	var fe *Error
	if errors.As(err, &fe) {
		return fe, true
	}
	return nil, false
}
