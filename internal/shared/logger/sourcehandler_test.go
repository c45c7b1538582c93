package logger

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSourceHandler(t *testing.T) {
	tests := []struct {
		name       string
		minLevel   slog.Level
		logAt      slog.Level
		wantSource bool
	}{
		{"info below warn threshold", slog.LevelWarn, slog.LevelInfo, false},
		{"warn at threshold", slog.LevelWarn, slog.LevelWarn, true},
		{"error above threshold", slog.LevelWarn, slog.LevelError, true},
		{"debug threshold covers info", slog.LevelDebug, slog.LevelInfo, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			base := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
			log := slog.New(NewSourceHandler(base, tt.minLevel))

			log.Log(t.Context(), tt.logAt, "ticket updated", "ticket_id", "t-1")

			assert.Equal(t, tt.wantSource, bytes.Contains(buf.Bytes(), []byte("source=")), buf.String())
			assert.Contains(t, buf.String(), "ticket_id=t-1")
		})
	}
}

func TestSourceHandlerKeepsAttrsAndGroups(t *testing.T) {
	var buf bytes.Buffer
	base := slog.NewTextHandler(&buf, nil)
	log := slog.New(NewSourceHandler(base, slog.LevelError)).With("component", "lifecycle").WithGroup("ticket")

	log.Error("update failed", "id", "t-2")

	out := buf.String()
	assert.Contains(t, out, "component=lifecycle")
	assert.Contains(t, out, "ticket.id=t-2")
	assert.Contains(t, out, "source=")
}
