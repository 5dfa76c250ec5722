// Package logcfg builds the smplog configuration shared by the nftp binaries.
package logcfg

import (
	"os"
	"strconv"
	"strings"

	logs "github.com/danmuck/smplog"
)

const (
	EnvConfigPath   = "NFTP_LOG_CONFIG"
	EnvLogLevel     = "NFTP_LOG_LEVEL"
	EnvLogTimestamp = "NFTP_LOG_TIMESTAMP"

	envSmplogConfig = "SMPLOG_CONFIG"
)

// Load returns file-backed logging configuration when available, otherwise
// defaults, then applies the NFTP_LOG_* environment overrides.
func Load() logs.Config {
	cfg := fromFiles()
	applyEnvOverrides(&cfg)
	return cfg
}

func fromFiles() logs.Config {
	for _, env := range []string{EnvConfigPath, envSmplogConfig} {
		if path := os.Getenv(env); path != "" {
			if cfg, err := logs.ConfigFromFile(path); err == nil {
				return cfg
			}
		}
	}

	candidates := []string{
		"./nftp.log.toml",
		"./smplog.config.toml",
		"./local/smplog.config.toml",
	}
	for _, path := range candidates {
		if cfg, err := logs.ConfigFromFile(path); err == nil {
			return cfg
		}
	}

	return logs.DefaultConfig()
}

func applyEnvOverrides(cfg *logs.Config) {
	if lvl, ok := parseLevel(os.Getenv(EnvLogLevel)); ok {
		cfg.Level = lvl
	}
	if v, ok := parseBool(os.Getenv(EnvLogTimestamp)); ok {
		cfg.Timestamp = v
	}
}

func parseLevel(raw string) (logs.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "":
		return logs.InfoLevel, false
	case "trace":
		return logs.TraceLevel, true
	case "debug":
		return logs.DebugLevel, true
	case "info":
		return logs.InfoLevel, true
	case "warn", "warning":
		return logs.WarnLevel, true
	case "error":
		return logs.ErrorLevel, true
	default:
		return logs.InfoLevel, false
	}
}

func parseBool(raw string) (bool, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return false, false
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false
	}
	return v, true
}
