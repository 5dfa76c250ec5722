package logcfg

import (
	"testing"

	logs "github.com/danmuck/smplog"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		raw  string
		want logs.Level
		ok   bool
	}{
		{"", logs.InfoLevel, false},
		{"debug", logs.DebugLevel, true},
		{" WARN ", logs.WarnLevel, true},
		{"warning", logs.WarnLevel, true},
		{"error", logs.ErrorLevel, true},
		{"loud", logs.InfoLevel, false},
	}
	for _, tc := range tests {
		got, ok := parseLevel(tc.raw)
		if got != tc.want || ok != tc.ok {
			t.Errorf("parseLevel(%q) = %v, %v; want %v, %v", tc.raw, got, ok, tc.want, tc.ok)
		}
	}
}

func TestEnvLevelOverride(t *testing.T) {
	t.Setenv(EnvConfigPath, "")
	t.Setenv("SMPLOG_CONFIG", "")
	t.Setenv(EnvLogLevel, "error")
	t.Setenv(EnvLogTimestamp, "false")

	cfg := Load()
	if cfg.Level != logs.ErrorLevel {
		t.Fatalf("level = %v, want error", cfg.Level)
	}
	if cfg.Timestamp {
		t.Fatalf("timestamp override not applied")
	}
}
