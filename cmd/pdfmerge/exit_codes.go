package main

import (
	"errors"
	"os"

	pdfmerge "github.com/alnah/go-pdfmerge"
	"github.com/alnah/go-pdfmerge/internal/config"
	"github.com/alnah/go-pdfmerge/internal/pdfa"
)

// Exit codes for the pdfmerge CLI.
// Follows Unix conventions: 0=success, 1=general, 2=usage, and custom codes < 126.
const (
	ExitSuccess     = 0 // All documents written
	ExitGeneral     = 1 // General/unexpected error
	ExitUsage       = 2 // Invalid flags, config, or options
	ExitIO          = 3 // Source or attachment missing, permission denied
	ExitDecode      = 4 // Source could not be decoded or rendered
	ExitConformance = 5 // Output failed PDF/A validation
)

// exitCodeFor returns the appropriate exit code for an error.
// It uses errors.Is to check wrapped errors, so callers must use fmt.Errorf("%w", err).
func exitCodeFor(err error) int {
	if err == nil {
		return ExitSuccess
	}

	// Decode errors (exit 4)
	if errors.Is(err, pdfmerge.ErrDecode) ||
		errors.Is(err, pdfmerge.ErrRender) {
		return ExitDecode
	}

	// Conformance errors (exit 5)
	if errors.Is(err, pdfmerge.ErrConformance) ||
		errors.Is(err, pdfmerge.ErrXMPMetadata) {
		return ExitConformance
	}

	// I/O errors (exit 3)
	if errors.Is(err, pdfmerge.ErrSourceNotFound) ||
		errors.Is(err, pdfmerge.ErrAttachmentNotFound) ||
		errors.Is(err, os.ErrNotExist) ||
		errors.Is(err, os.ErrPermission) {
		return ExitIO
	}

	// Usage/config/validation errors (exit 2)
	if errors.Is(err, ErrMissingArgs) ||
		errors.Is(err, ErrInvalidTimeout) ||
		errors.Is(err, pdfmerge.ErrNoInput) ||
		errors.Is(err, pdfmerge.ErrInvalidSizeBudget) ||
		errors.Is(err, pdfmerge.ErrInvalidOption) ||
		errors.Is(err, pdfmerge.ErrInvalidMetadata) ||
		errors.Is(err, pdfa.ErrColorProfile) ||
		errors.Is(err, config.ErrConfigNotFound) ||
		errors.Is(err, config.ErrEmptyConfigName) ||
		errors.Is(err, config.ErrConfigParse) ||
		errors.Is(err, config.ErrFieldTooLong) ||
		errors.Is(err, config.ErrInvalidValue) {
		return ExitUsage
	}

	return ExitGeneral
}
