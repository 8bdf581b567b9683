package logging

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		raw    string
		want   zerolog.Level
		wantOK bool
	}{
		{raw: "", want: zerolog.InfoLevel, wantOK: false},
		{raw: "TRACE", want: zerolog.TraceLevel, wantOK: true},
		{raw: " debug ", want: zerolog.DebugLevel, wantOK: true},
		{raw: "warning", want: zerolog.WarnLevel, wantOK: true},
		{raw: "off", want: zerolog.Disabled, wantOK: true},
		{raw: "loud", want: zerolog.InfoLevel, wantOK: false},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, ok := ParseLevel(tt.raw)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		EnvLogLevel:   "error",
		EnvLogNoColor: "true",
		EnvLogJSON:    "1",
	}
	cfg := DefaultConfig(ProfileRuntime)
	ApplyEnv(&cfg, func(k string) string { return env[k] })

	assert.Equal(t, zerolog.ErrorLevel, cfg.Level)
	assert.True(t, cfg.NoColor)
	assert.True(t, cfg.JSON)
	assert.True(t, cfg.Timestamp)
}

func TestApplyEnv_IgnoresInvalid(t *testing.T) {
	cfg := DefaultConfig(ProfileTest)
	ApplyEnv(&cfg, func(k string) string { return "garbage" })
	assert.Equal(t, DefaultConfig(ProfileTest), cfg)
}

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: zerolog.InfoLevel, JSON: true}, &buf)
	logger.Debug().Msg("hidden")
	logger.Info().Str("build", "A").Msg("shown")

	require.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"build":"A"`)
	assert.Contains(t, buf.String(), `"message":"shown"`)
}

func TestNew_Console(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: zerolog.DebugLevel, NoColor: true}, &buf)
	logger.Debug().Str("build", "A").Msg("listing")

	assert.Contains(t, buf.String(), "listing")
	assert.Contains(t, buf.String(), "build=A")
}
