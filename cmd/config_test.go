package cmd

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfigConstants(t *testing.T) {
	assert.Equal(t, "gnatllvm", configBaseName)
	assert.Equal(t, "gnatllvm.yaml", configFileName)
	assert.Equal(t, ".", configFolderPath)
	assert.Equal(t, "output", outputFlagName)
	assert.Equal(t, "keep-artifacts", keepFlagName)
	assert.Equal(t, "compiler.command", compilerCommandKey)
	assert.Equal(t, "compiler.flags", compilerFlagsKey)
	assert.Equal(t, "workspace.keep", keepArtifactsKey)
	assert.Equal(t, "gnatmake", defaultCompilerCommand)
	assert.Equal(t, ".gnatllvm-reports", defaultReportsDir)
	assert.Equal(t, true, defaultKeepArtifacts)
	assert.Equal(t, "GNATLLVM", envPrefix)
}

func TestConfigVersionConstants(t *testing.T) {
	assert.Equal(t, "version", configVersionKey)
	assert.Equal(t, 1, currentConfigVersion)
}

func TestParseSlogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"", slog.LevelWarn},
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"-4", slog.LevelDebug},
		{"gibberish", slog.LevelWarn},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, parseSlogLevel(tt.in, slog.LevelWarn))
		})
	}
}
