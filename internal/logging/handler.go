package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/getsentry/sentry-go"
	slogmulti "github.com/samber/slog-multi"
	slogsentry "github.com/samber/slog-sentry/v2"
)

// Options controls handler construction.
type Options struct {
	Development bool
	SentryDSN   string
	Out         io.Writer
}

// sentryInit is a seam for tests.
var sentryInit = sentry.Init

// NewHandler returns a text handler at debug level in development and a JSON
// handler at info level otherwise. When SentryDSN is set, error records are
// additionally fanned out to Sentry.
func NewHandler(o Options) (slog.Handler, error) {
	out := o.Out
	if out == nil {
		out = os.Stdout
	}

	var handlers []slog.Handler
	if o.Development {
		handlers = append(handlers, slog.NewTextHandler(out, &slog.HandlerOptions{Level: slog.LevelDebug}))
	} else {
		handlers = append(handlers, slog.NewJSONHandler(out, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}

	if o.SentryDSN != "" {
		if err := sentryInit(sentry.ClientOptions{Dsn: o.SentryDSN}); err != nil {
			return nil, fmt.Errorf("sentry init: %w", err)
		}
		handlers = append(handlers, slogsentry.Option{Level: slog.LevelError}.NewSentryHandler())
	}

	if len(handlers) == 1 {
		return handlers[0], nil
	}
	return slogmulti.Fanout(handlers...), nil
}

// New builds a Logger from Options.
func New(o Options) (*SlogLogger, error) {
	h, err := NewHandler(o)
	if err != nil {
		return nil, err
	}
	return NewSlogLogger(slog.New(h)), nil
}
