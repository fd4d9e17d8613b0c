package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
)

// Sentinel errors for config operations.
var (
	ErrConfigNotFound  = errors.New("config file not found")
	ErrEmptyConfigName = errors.New("config name cannot be empty")
	ErrConfigParse     = errors.New("failed to parse config")
	ErrFieldTooLong    = errors.New("field exceeds maximum length")
	ErrInvalidValue    = errors.New("invalid config value")
)

// Field length limits.
const (
	MaxPathLength          = 4096 // PATH_MAX on Linux
	MaxFilenameLength      = 255  // NAME_MAX
	MaxDescriptionLength   = 500  // Attachment description
	MaxKeyLength           = 100  // Attachment key, metadata key
	MaxMetadataValueLength = 2000 // Title, Subject, Keywords, ...
	MaxMIMETypeLength      = 127  // RFC 6838 type/subtype
	MaxInvoiceFieldLength  = 50   // "EXTENDED", "INVOICE", "1.2"
)

// Allowed values for enumerated fields. Empty selects the default.
var (
	validationModes = []string{"relaxed", "strict"}
	pageLayouts     = []string{"fit", "full"}
)

// Config holds the parameters of one merge run.
type Config struct {
	OutputPath    string            `yaml:"outputPath"`
	InputFiles    []string          `yaml:"inputFiles"`
	MaxFileSizeMB float64           `yaml:"maxFileSizeMb"` // <= 0: unbounded
	Attachments   []Attachment      `yaml:"attachments"`
	Metadata      map[string]string `yaml:"metadata"`
	ColorProfile  string            `yaml:"colorProfile"` // ICC file; empty = built-in sRGB
	Validation    string            `yaml:"validation"`   // "relaxed" (default), "strict"
	PageLayout    string            `yaml:"pageLayout"`   // "fit" (default), "full"
	Markdown      bool              `yaml:"markdown"`     // render .md sources
	Invoice       InvoiceConfig     `yaml:"invoice"`
}

// Attachment describes a file embedded into every output document.
type Attachment struct {
	Key         string `yaml:"key"`
	FilePath    string `yaml:"filePath"`
	Filename    string `yaml:"filename"` // Empty = base name of FilePath
	Description string `yaml:"description"`
	MIMEType    string `yaml:"mimeType"` // Empty = derived from Filename
}

// InvoiceConfig overrides the hybrid-invoice XMP properties.
type InvoiceConfig struct {
	ConformanceLevel string `yaml:"conformanceLevel"`
	DocumentType     string `yaml:"documentType"`
	Version          string `yaml:"version"`
}

// Validate checks field values and lengths.
// Called automatically by LoadConfig, but available for consumers
// who construct Config manually.
func (c *Config) Validate() error {
	if math.IsNaN(c.MaxFileSizeMB) || math.IsInf(c.MaxFileSizeMB, 0) {
		return fmt.Errorf("%w: maxFileSizeMb must be a finite number", ErrInvalidValue)
	}

	if err := validateFieldLength("outputPath", c.OutputPath, MaxPathLength); err != nil {
		return err
	}
	for i, in := range c.InputFiles {
		if err := validateFieldLength(fmt.Sprintf("inputFiles[%d]", i), in, MaxPathLength); err != nil {
			return err
		}
	}
	if err := validateFieldLength("colorProfile", c.ColorProfile, MaxPathLength); err != nil {
		return err
	}

	if err := validateEnum("validation", c.Validation, validationModes); err != nil {
		return err
	}
	if err := validateEnum("pageLayout", c.PageLayout, pageLayouts); err != nil {
		return err
	}

	for i, a := range c.Attachments {
		if err := a.validate(fmt.Sprintf("attachments[%d]", i)); err != nil {
			return err
		}
	}

	for k, v := range c.Metadata {
		if err := validateFieldLength("metadata key", k, MaxKeyLength); err != nil {
			return err
		}
		if err := validateFieldLength("metadata."+k, v, MaxMetadataValueLength); err != nil {
			return err
		}
	}

	if err := validateFieldLength("invoice.conformanceLevel", c.Invoice.ConformanceLevel, MaxInvoiceFieldLength); err != nil {
		return err
	}
	if err := validateFieldLength("invoice.documentType", c.Invoice.DocumentType, MaxInvoiceFieldLength); err != nil {
		return err
	}
	return validateFieldLength("invoice.version", c.Invoice.Version, MaxInvoiceFieldLength)
}

func (a *Attachment) validate(field string) error {
	if strings.TrimSpace(a.FilePath) == "" {
		return fmt.Errorf("%w: %s.filePath is required", ErrInvalidValue, field)
	}
	checks := []struct {
		name  string
		value string
		max   int
	}{
		{"key", a.Key, MaxKeyLength},
		{"filePath", a.FilePath, MaxPathLength},
		{"filename", a.Filename, MaxFilenameLength},
		{"description", a.Description, MaxDescriptionLength},
		{"mimeType", a.MIMEType, MaxMIMETypeLength},
	}
	for _, c := range checks {
		if err := validateFieldLength(field+"."+c.name, c.value, c.max); err != nil {
			return err
		}
	}
	return nil
}

// validateFieldLength checks if a field exceeds its maximum allowed length.
func validateFieldLength(fieldName, value string, maxLength int) error {
	if len(value) > maxLength {
		return fmt.Errorf("%w: %s (%d chars, max %d)", ErrFieldTooLong, fieldName, len(value), maxLength)
	}
	return nil
}

func validateEnum(fieldName, value string, allowed []string) error {
	if value == "" {
		return nil
	}
	for _, a := range allowed {
		if strings.EqualFold(value, a) {
			return nil
		}
	}
	return fmt.Errorf("%w: %s %q (must be %s)", ErrInvalidValue, fieldName, value, strings.Join(allowed, " or "))
}

// DefaultConfig returns a configuration with every optional feature off.
func DefaultConfig() *Config {
	return &Config{
		Metadata:   make(map[string]string),
		Validation: "relaxed",
		PageLayout: "fit",
	}
}

// LoadConfig loads configuration from a file path or config name.
// If nameOrPath contains a path separator or a known extension, it's
// treated as a file path. Otherwise it's treated as a config name and
// searched in standard locations. YAML and JSON files are accepted.
// Returns error if the file is not found (no silent fallback).
func LoadConfig(nameOrPath string) (*Config, error) {
	if nameOrPath == "" {
		return nil, ErrEmptyConfigName
	}

	var configPath string
	var err error

	if isFilePath(nameOrPath) {
		configPath = nameOrPath
	} else {
		configPath, err = resolveConfigPath(nameOrPath)
		if err != nil {
			return nil, err
		}
	}

	data, err := os.ReadFile(configPath) // #nosec G304 -- config path is user-provided
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, configPath)
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := unmarshalStrict(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigParse, err)
	}
	if cfg.Metadata == nil {
		cfg.Metadata = make(map[string]string)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// configExtensions are tried in order when resolving a config name.
var configExtensions = []string{".yaml", ".yml", ".json"}

// isFilePath returns true if the string looks like a file path.
func isFilePath(s string) bool {
	if strings.ContainsAny(s, "/\\") {
		return true
	}
	ext := strings.ToLower(filepath.Ext(s))
	for _, e := range configExtensions {
		if ext == e {
			return true
		}
	}
	return false
}

// resolveConfigPath searches for a config file by name in standard locations.
// Tries locations in order: current directory, ~/.config/go-pdfmerge/
func resolveConfigPath(name string) (string, error) {
	triedPaths := make([]string, 0, len(configExtensions)*2) // 2 locations

	for _, ext := range configExtensions {
		localPath := name + ext
		if fileExists(localPath) {
			return localPath, nil
		}
		triedPaths = append(triedPaths, localPath)
	}

	userConfigDir, err := os.UserConfigDir()
	if err == nil {
		for _, ext := range configExtensions {
			userPath := filepath.Join(userConfigDir, "go-pdfmerge", name+ext)
			if fileExists(userPath) {
				return userPath, nil
			}
			triedPaths = append(triedPaths, userPath)
		}
	}

	return "", fmt.Errorf("%w: tried %s", ErrConfigNotFound, strings.Join(triedPaths, ", "))
}

// fileExists returns true if the path exists and is a regular file.
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}
