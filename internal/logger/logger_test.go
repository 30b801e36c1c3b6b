package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureJSON(t *testing.T, level string) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	InitializeWithWriter(&buf, level, "json")
	t.Cleanup(func() { Initialize("info", "text") })
	return &buf
}

func lines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &m))
		out = append(out, m)
	}
	return out
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}

func TestTrackingRespectsLevel(t *testing.T) {
	buf := captureJSON(t, "info")

	EnterMethod("bookingService.AcceptBooking", "bookingID", "b-1")
	ExitMethodWithError("bookingService.AcceptBooking", errors.New("boom"), "bookingID", "b-1")

	got := lines(t, buf)
	require.Len(t, got, 1)
	assert.Equal(t, "ERROR", got[0]["level"])
	assert.Equal(t, "bookingService.AcceptBooking", got[0]["method"])
	assert.Equal(t, "boom", got[0]["error"])
	assert.Equal(t, "b-1", got[0]["bookingID"])
}

func TestExternalServiceResult(t *testing.T) {
	buf := captureJSON(t, "debug")

	ExternalServiceCall("payment", "charge", "amount", 1000)
	ExternalServiceResult("payment", "charge", nil)
	DatabaseResult("UPDATE", 0, errors.New("deadlock"))

	got := lines(t, buf)
	require.Len(t, got, 3)
	assert.Equal(t, "DEBUG", got[1]["level"])
	assert.Equal(t, "ERROR", got[2]["level"])
	assert.Equal(t, "deadlock", got[2]["error"])
}

func TestContextAttributes(t *testing.T) {
	buf := captureJSON(t, "info")

	ctx := WithAttrs(context.Background(), "request_id", "req-1")
	ctx = WithAttrs(ctx, "user_id", "u-1")
	WithBooking(ctx, "b-9").Info("Booking touched")
	FromContext(context.Background()).Info("Bare")

	got := lines(t, buf)
	require.Len(t, got, 2)
	assert.Equal(t, "req-1", got[0]["request_id"])
	assert.Equal(t, "u-1", got[0]["user_id"])
	assert.Equal(t, "b-9", got[0]["booking_id"])
	assert.NotContains(t, got[1], "request_id")
}
