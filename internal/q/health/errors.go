package health

import (
	"errors"
	"strings"
)

// HealthErr is an error with a message, optional slog-style attributes, and an optional wrapped cause.
type HealthErr struct {
	Message string
	wrapped error
	attrs   []any
}

// Error renders the message, then the attributes in brackets, then the wrapped error after " via ".
func (e *HealthErr) Error() string {
	var b strings.Builder
	b.WriteString(e.Message)
	if len(e.attrs) > 0 {
		b.WriteString("[")
		writeAttrs(&b, e.attrs)
		b.WriteString("]")
	}
	if e.wrapped != nil {
		b.WriteString(" via ")
		b.WriteString(e.wrapped.Error())
	}
	return b.String()
}

func (e *HealthErr) Unwrap() error {
	return e.wrapped
}

// NewErr returns a new, unlogged error. args are key/value pairs or slog.Attrs, as accepted by slog.Logger.Info.
func NewErr(msg string, args ...any) error {
	return &HealthErr{Message: msg, attrs: args}
}

// Wrap returns a new error with cause wrapped. A nil cause is replaced with a placeholder error rather than dropped, so the mistake shows up in logs.
func Wrap(msg string, cause error, args ...any) error {
	if cause == nil {
		cause = errors.New("health.Wrap called with nil error")
	}
	return &HealthErr{Message: msg, wrapped: cause, attrs: args}
}

// HumanErr is a HealthErr with an additional message written for end users. Error returns only the human message; the embedded HealthErr is what gets logged.
type HumanErr struct {
	HumanMessage string
	HealthErr
}

// NewHumanErr returns a *HumanErr.
func NewHumanErr(humanMsg string, msg string, args ...any) error {
	return &HumanErr{HumanMessage: humanMsg, HealthErr: HealthErr{Message: msg, attrs: args}}
}

func (e *HumanErr) Error() string {
	if e.HumanMessage == "" {
		return e.HealthErr.Error()
	}
	return e.HumanMessage
}

// UserMessage returns the message to show a user for err: the human message of the first HumanErr in err's chain if there is one, and err.Error() otherwise.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var h *HumanErr
	if errors.As(err, &h) && h.HumanMessage != "" {
		return h.HumanMessage
	}
	return err.Error()
}
