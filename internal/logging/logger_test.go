package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/allbin/serialstream/internal/config"
)

func TestSetupLoggerLevels(t *testing.T) {
	tests := []struct {
		level   string
		enabled zap.AtomicLevel
		wantErr bool
	}{
		{"debug", zap.NewAtomicLevelAt(zap.DebugLevel), false},
		{"INFO", zap.NewAtomicLevelAt(zap.InfoLevel), false},
		{"warning", zap.NewAtomicLevelAt(zap.WarnLevel), false},
		{"error", zap.NewAtomicLevelAt(zap.ErrorLevel), false},
		{"loud", zap.AtomicLevel{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			logger, err := SetupLogger(config.LogConfig{Level: tt.level, Format: "console"})
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, logger.Core().Enabled(tt.enabled.Level()))
			if tt.enabled.Level() > zap.DebugLevel {
				assert.False(t, logger.Core().Enabled(tt.enabled.Level()-1))
			}
		})
	}
}

func TestSetupLoggerFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "serialstream.log")
	logger, err := SetupLogger(config.LogConfig{Level: "info", Format: "json", File: path})
	require.NoError(t, err)

	logger.Info("port opened", zap.String("path", "/dev/ttyUSB0"))
	require.NoError(t, logger.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), `"msg":"port opened"`), string(data))
	assert.Contains(t, string(data), `"path":"/dev/ttyUSB0"`)
}

func TestSetupLoggerRotation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rotated.log")
	logger, err := SetupLogger(config.LogConfig{
		Level:  "debug",
		Format: "console",
		File:   path,
		Rotation: config.RotationConfig{
			Enable:    true,
			MaxSizeMB: 1,
		},
	})
	require.NoError(t, err)

	logger.Debug("next: reading", zap.Int("size", 16))
	_ = logger.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "next: reading")
}
