package health

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
)

// LogErr logs err to logger, if both are non-nil, and returns err unchanged:
//
//	return health.LogErr(logger, health.NewErr("session: source failed", "seq", seq))
//
// For a HealthErr, the outermost message becomes the log message, its attributes are logged first, the wrapped error is logged under "via", and then args. A HumanErr
// is logged as its embedded HealthErr.
func LogErr(logger *slog.Logger, err error, args ...any) error {
	if logger == nil || err == nil {
		return err
	}

	var h *HealthErr
	switch e := err.(type) {
	case *HumanErr:
		h = &e.HealthErr
	case *HealthErr:
		h = e
	}
	if h == nil {
		logger.Error(err.Error(), args...)
		return err
	}

	all := make([]any, 0, len(h.attrs)+len(args)+1)
	all = append(all, h.attrs...)
	if h.wrapped != nil {
		all = append(all, slog.String("via", h.wrapped.Error()))
	}
	all = append(all, args...)
	logger.Error(h.Message, all...)
	return err
}

// LogNewErr is LogErr(logger, NewErr(msg, args...)).
func LogNewErr(logger *slog.Logger, msg string, args ...any) error {
	return LogErr(logger, NewErr(msg, args...))
}

// LogWrappedErr is LogErr(logger, Wrap(msg, cause, args...)). Context cancellation is not a failure worth logging: if cause is context.Canceled, it is wrapped
// but not logged.
func LogWrappedErr(logger *slog.Logger, msg string, cause error, args ...any) error {
	err := Wrap(msg, cause, args...)
	if errors.Is(cause, context.Canceled) {
		return err
	}
	return LogErr(logger, err)
}

// Ctx bundles a logger for code that logs and returns errors in many places.
type Ctx struct {
	Logger *slog.Logger
}

func NewCtx(logger *slog.Logger) Ctx {
	return Ctx{Logger: logger}
}

func (c Ctx) LogNewErr(msg string, args ...any) error {
	return LogNewErr(c.Logger, msg, args...)
}

func (c Ctx) LogWrappedErr(msg string, cause error, args ...any) error {
	return LogWrappedErr(c.Logger, msg, cause, args...)
}

// Log logs msg at info level.
func (c Ctx) Log(msg string, args ...any) {
	if c.Logger != nil {
		c.Logger.Info(msg, args...)
	}
}

// Debug logs msg at debug level.
func (c Ctx) Debug(msg string, args ...any) {
	if c.Logger != nil {
		c.Logger.Debug(msg, args...)
	}
}

// writeAttrs writes attrs to b in slog's text format (`num=3 str=hi`).
func writeAttrs(b *strings.Builder, attrs []any) {
	if len(attrs) == 0 {
		return
	}
	opts := &slog.HandlerOptions{
		Level: slog.LevelDebug,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey || a.Key == slog.LevelKey || a.Key == slog.MessageKey {
				return slog.Attr{}
			}
			return a
		},
	}
	logger := slog.New(slog.NewTextHandler(trimNewline{w: b}, opts))
	logger.Log(context.Background(), slog.LevelDebug, "", attrs...)
}

// trimNewline drops the trailing newline slog's text handler writes after each record.
type trimNewline struct {
	w io.Writer
}

func (t trimNewline) Write(p []byte) (int, error) {
	if n := len(p); n > 0 && p[n-1] == '\n' {
		if _, err := t.w.Write(p[:n-1]); err != nil {
			return 0, err
		}
		return n, nil
	}
	return t.w.Write(p)
}
