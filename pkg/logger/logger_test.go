package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	log := New(Config{ServiceName: "realtime-gateway", InstanceID: "i-test"})
	assert.NotNil(t, log)
}

func TestLoggerOutput(t *testing.T) {
	var buf bytes.Buffer

	encoderConfig := zapcore.EncoderConfig{
		TimeKey:        "ts",
		LevelKey:       "level",
		MessageKey:     "msg",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.SecondsDurationEncoder,
	}

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderConfig),
		zapcore.AddSync(&buf),
		zapcore.InfoLevel,
	)

	log := zap.New(core).With(
		zap.String("service", "realtime-gateway"),
		zap.String("instance_id", "i-abc"),
	)

	log.Info("user connected",
		zap.String("user_id", "u1"),
		zap.Int("connections", 3),
	)

	var entry map[string]interface{}
	err := json.Unmarshal(buf.Bytes(), &entry)
	require.NoError(t, err)

	assert.Equal(t, "user connected", entry["msg"])
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "realtime-gateway", entry["service"])
	assert.Equal(t, "i-abc", entry["instance_id"])
	assert.Equal(t, "u1", entry["user_id"])
	assert.Equal(t, float64(3), entry["connections"]) // JSON numbers are float64
	assert.Contains(t, entry, "ts")
}

func TestLogLevels(t *testing.T) {
	tests := []struct {
		level string
		want  zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"info", zapcore.InfoLevel},
		{"warn", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"bogus", zapcore.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			assert.Equal(t, tt.want, getLogLevel(tt.level).Level())
		})
	}
}
