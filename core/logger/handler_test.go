package logger

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger(t *testing.T, format logFormat) (*slog.Logger, func() string) {
	t.Helper()
	buf := &bytes.Buffer{}
	aw := newAsyncWriter([]io.Writer{buf}, 1024)
	h := newStructuredHandler(handlerConfig{
		level:    slog.LevelDebug,
		writer:   aw,
		format:   format,
		keyOrder: append([]string(nil), defaultKeyOrder...),
	})
	read := func() string {
		require.NoError(t, aw.Flush())
		require.NoError(t, aw.Close())
		return strings.TrimSpace(buf.String())
	}
	return slog.New(h), read
}

func TestStructuredHandlerKVOrder(t *testing.T) {
	log, read := newTestLogger(t, formatKV)
	ctx := WithRID(context.Background(), "rid-123")
	ctx = WithUpdateMeta(ctx, 42, 7, 9)

	LogEvent(ctx, log.With("component", CompGate), slog.LevelInfo, "gate.decision",
		slog.String("status", "ok"),
		slog.String("decision", "forward"),
	)

	tokens := strings.Split(read(), " ")
	expected := []string{"ts=", "level=INFO", "component=gate", "event=gate.decision", "status=ok", "rid=rid-123", "update_id=42", "user_id=7", "chat_id=9", "decision=forward"}
	require.GreaterOrEqual(t, len(tokens), len(expected))
	for i, prefix := range expected {
		assert.True(t, strings.HasPrefix(tokens[i], prefix), "token %d = %s, want prefix %s", i, tokens[i], prefix)
	}
}

func TestStructuredHandlerJSONOrder(t *testing.T) {
	log, read := newTestLogger(t, formatJSON)
	ctx := WithRID(context.Background(), "rid-json")

	LogEvent(ctx, log.With("component", CompPayments), slog.LevelError, "payments.request",
		slog.String("status", "fail"),
		slog.String("op", "request_otp"),
		slog.Int("http_code", 502),
		Err(errors.New("bad gateway")),
	)

	line := read()
	require.True(t, strings.HasPrefix(line, "{"), line)
	prefixes := []string{`{"ts":`, `"level":"ERROR"`, `"component":"payments"`, `"event":"payments.request"`, `"status":"fail"`, `"rid":"rid-json"`, `"op":"request_otp"`, `"http_code":502`, `"err":"bad gateway"`}
	pos := -1
	for _, pref := range prefixes {
		idx := strings.Index(line, pref)
		require.Greater(t, idx, pos, "prefix %s out of order in %s", pref, line)
		pos = idx
	}
}

func TestStructuredHandlerCompactRID(t *testing.T) {
	t.Run("kv", func(t *testing.T) {
		log, read := newTestLogger(t, formatKV)
		ctx := WithRID(context.Background(), "123:456:789")
		LogEvent(ctx, log, slog.LevelInfo, "rid.test")
		line := read()
		assert.Contains(t, line, "rid="+CompactRID("123:456:789"))
		assert.NotContains(t, line, "rid_full=")
	})
	t.Run("json", func(t *testing.T) {
		log, read := newTestLogger(t, formatJSON)
		ctx := WithRID(context.Background(), "12:34:56")
		LogEvent(ctx, log, slog.LevelInfo, "rid.test")
		line := read()
		assert.Contains(t, line, `"rid":"c.y.1k"`)
		assert.Contains(t, line, `"rid_full":"12:34:56"`)
		assert.Contains(t, line, `"ts_unix_nano"`)
	})
}

func TestStructuredHandlerDurationsAndDefaults(t *testing.T) {
	log, read := newTestLogger(t, formatKV)
	log.LogAttrs(context.Background(), slog.LevelInfo, "fallback.event",
		slog.Duration("duration", 1500*time.Microsecond),
		slog.Duration("api_duration", 2*time.Second),
		slog.String("decision", "bogus"),
		slog.String("empty", ""),
	)
	line := read()
	assert.Contains(t, line, "component=app")
	assert.Contains(t, line, "event=fallback.event")
	assert.Contains(t, line, "duration_ms=2")
	assert.Contains(t, line, "api_duration_ms=2000")
	assert.NotContains(t, line, "decision=")
	assert.NotContains(t, line, "empty=")
}

func TestLevelThreshold(t *testing.T) {
	buf := &bytes.Buffer{}
	aw := newAsyncWriter([]io.Writer{buf}, 1024)
	log := slog.New(newStructuredHandler(handlerConfig{level: slog.LevelWarn, writer: aw, format: formatKV}))
	log.Info("dropped")
	log.Warn("kept")
	require.NoError(t, aw.Close())
	assert.NotContains(t, buf.String(), "dropped")
	assert.Contains(t, buf.String(), "event=kept")
}

func TestCompactRIDPassesThroughForeignValues(t *testing.T) {
	assert.Equal(t, "abc", CompactRID("abc"))
	assert.Equal(t, "1:x:3", CompactRID("1:x:3"))
	assert.Equal(t, "1.2.3", CompactRID("1:2:3"))
}

func TestRatioSampler(t *testing.T) {
	s := newRatioSampler(1, 3)
	got := []bool{s.Allow(), s.Allow(), s.Allow(), s.Allow()}
	assert.Equal(t, []bool{true, false, false, true}, got)

	s.Set(0, 0)
	assert.True(t, s.Allow())

	num, den := parseRatioSpec("10")
	assert.Equal(t, 1, num)
	assert.Equal(t, 10, den)
	num, den = parseRatioSpec("2/5")
	assert.Equal(t, 2, num)
	assert.Equal(t, 5, den)
}

func TestMaskEmailAndSanitize(t *testing.T) {
	assert.Equal(t, "a***@b.com", MaskEmail("alice@b.com"))
	assert.Equal(t, "***", MaskEmail("not-an-email"))
	assert.Equal(t, "ab\tc", Sanitize("a\x00b\tc\u200b"))
	assert.Equal(t, "héll", SanitizeLimit("héllo", 4))
}

func TestEventWithoutInitIsNoop(t *testing.T) {
	assert.NotPanics(t, func() {
		Info(context.Background(), CompSession, "noop")
	})
}
