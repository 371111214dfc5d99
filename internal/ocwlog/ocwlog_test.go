package ocwlog

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"bogus":   slog.LevelWarn,
	}
	for input, want := range cases {
		got, err := ParseLevel(input)
		assert.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestSimpleTextHandler_FormatsLevelAndMessage(t *testing.T) {
	var buf bytes.Buffer
	h := &simpleTextHandler{handler: slog.NewTextHandler(&buf, nil), writer: &buf}
	logger := slog.New(h)
	logger.Info("hello", "key", "value")

	out := buf.String()
	assert.Contains(t, out, "INFO")
	assert.Contains(t, out, "hello")
	assert.Contains(t, out, "key=value")
}

func TestFilteringHandler_SuppressesThirdPartyAboveDebug(t *testing.T) {
	var buf bytes.Buffer
	inner := &simpleTextHandler{handler: slog.NewTextHandler(&buf, nil), writer: &buf}
	h := &filteringHandler{handler: inner, minLevel: slog.LevelInfo}

	record := slog.Record{Level: slog.LevelInfo, Message: "from elsewhere"}
	require := h.Handle(nil, record) //nolint:staticcheck // nil context acceptable for this handler
	assert.NoError(t, require)
	assert.Empty(t, buf.String(), "a record with no identifiable caller PC is treated as third-party and dropped above debug")
}
