package main

import (
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/alnah/go-pdfmerge/internal/config"
)

// envConfig holds configuration from environment variables.
// Provides CI/CD-friendly defaults without requiring a config file.
type envConfig struct {
	ConfigPath    string        // PDFMERGE_CONFIG: config file name or path
	OutputPath    string        // PDFMERGE_OUTPUT: destination PDF
	MaxFileSizeMB float64       // PDFMERGE_MAX_SIZE_MB: size budget
	ColorProfile  string        // PDFMERGE_ICC_PROFILE: output intent profile
	RenderTimeout time.Duration // PDFMERGE_RENDER_TIMEOUT: Markdown render timeout
}

// envPrefix marks the variables this command reads.
const envPrefix = "PDFMERGE_"

// knownEnvVars lists valid PDFMERGE_* environment variables.
var knownEnvVars = map[string]bool{
	"PDFMERGE_CONFIG":         true,
	"PDFMERGE_OUTPUT":         true,
	"PDFMERGE_MAX_SIZE_MB":    true,
	"PDFMERGE_ICC_PROFILE":    true,
	"PDFMERGE_RENDER_TIMEOUT": true,
}

// loadEnvConfig reads configuration from environment variables.
// Unparsable numbers and durations are ignored.
func loadEnvConfig(getenv func(string) string) *envConfig {
	cfg := &envConfig{
		ConfigPath:   getenv("PDFMERGE_CONFIG"),
		OutputPath:   getenv("PDFMERGE_OUTPUT"),
		ColorProfile: getenv("PDFMERGE_ICC_PROFILE"),
	}

	if v := getenv("PDFMERGE_MAX_SIZE_MB"); v != "" {
		if mb, err := strconv.ParseFloat(v, 64); err == nil && mb > 0 {
			cfg.MaxFileSizeMB = mb
		}
	}

	if v := getenv("PDFMERGE_RENDER_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.RenderTimeout = d
		}
	}

	return cfg
}

// warnUnknownEnvVars logs a warning for each unrecognized PDFMERGE_* variable.
func warnUnknownEnvVars(logger *slog.Logger, environ []string) {
	for _, kv := range environ {
		if !strings.HasPrefix(kv, envPrefix) {
			continue
		}
		name, _, _ := strings.Cut(kv, "=")
		if !knownEnvVars[name] {
			logger.Warn("unknown environment variable (typo?)", "name", name)
		}
	}
}

// applyEnvConfig fills values the config file left empty.
// CLI flags are applied afterwards by mergeFlags and win over both.
func applyEnvConfig(env *envConfig, cfg *config.Config) {
	if env.OutputPath != "" && cfg.OutputPath == "" {
		cfg.OutputPath = env.OutputPath
	}
	if env.MaxFileSizeMB > 0 && cfg.MaxFileSizeMB == 0 {
		cfg.MaxFileSizeMB = env.MaxFileSizeMB
	}
	if env.ColorProfile != "" && cfg.ColorProfile == "" {
		cfg.ColorProfile = env.ColorProfile
	}
}
