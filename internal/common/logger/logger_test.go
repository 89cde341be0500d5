package logger

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestZapAdapter_FieldsAndErrors(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := NewZapAdapter(zap.New(core)).WithFields(map[string]interface{}{"component": "lifecycle"})

	log.Info("applicant accepted", map[string]interface{}{"email": "a@x.com"})
	log.WithError(errors.New("smtp down")).Warn("notification failed", nil)

	entries := logs.All()
	require.Len(t, entries, 2)

	first := entries[0].ContextMap()
	assert.Equal(t, "lifecycle", first["component"])
	assert.Equal(t, "a@x.com", first["email"])

	second := entries[1].ContextMap()
	assert.Equal(t, "smtp down", second["error"])
	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
}

func TestZapAdapter_ErrorValuedField(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := NewZapAdapter(zap.New(core))

	log.Error("store fault", map[string]interface{}{"cause": errors.New("connection reset")})

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "connection reset", logs.All()[0].ContextMap()["cause"])
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"warn", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"", zapcore.InfoLevel},
		{"verbose", zapcore.InfoLevel},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, parseLevel(tt.in), tt.in)
	}
}

func TestNew_FallsBackOnBadOutput(t *testing.T) {
	l := New("info", "json", "/nonexistent-dir/for/sure/log.txt")
	assert.NotNil(t, l)
}
