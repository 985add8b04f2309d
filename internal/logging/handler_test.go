package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/getsentry/sentry-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_DevelopmentWritesTextAtDebug(t *testing.T) {
	var buf bytes.Buffer
	log, err := New(Options{Development: true, Out: &buf})
	require.NoError(t, err)

	log.Debug(context.Background(), "dbg", "k", "v")

	out := buf.String()
	assert.Contains(t, out, "level=DEBUG")
	assert.Contains(t, out, "k=v")
}

func TestNew_ProductionWritesJSONAndDropsDebug(t *testing.T) {
	var buf bytes.Buffer
	log, err := New(Options{Out: &buf})
	require.NoError(t, err)

	ctx := context.Background()
	log.Debug(ctx, "hidden")
	log.Info(ctx, "shown", "k", "v")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)

	var rec map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &rec))
	assert.Equal(t, "INFO", rec["level"])
	assert.Equal(t, "shown", rec["msg"])
	assert.Equal(t, "v", rec["k"])
}

func TestNewHandler_SentryInitError(t *testing.T) {
	orig := sentryInit
	t.Cleanup(func() { sentryInit = orig })
	sentryInit = func(sentry.ClientOptions) error { return errors.New("bad dsn") }

	_, err := NewHandler(Options{SentryDSN: "whatever", Out: &bytes.Buffer{}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sentry init")
}

func TestNewHandler_SentryFanout(t *testing.T) {
	orig := sentryInit
	t.Cleanup(func() { sentryInit = orig })

	var got sentry.ClientOptions
	sentryInit = func(o sentry.ClientOptions) error { got = o; return nil }

	var buf bytes.Buffer
	h, err := NewHandler(Options{SentryDSN: "https://key@example.invalid/1", Out: &buf})
	require.NoError(t, err)
	require.NotNil(t, h)
	assert.Equal(t, "https://key@example.invalid/1", got.Dsn)
}
