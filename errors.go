package pdfmerge

import "errors"

// Sentinel errors for merge operations.
var (
	// Request validation errors.
	ErrNoInput           = errors.New("no input files")
	ErrInvalidSizeBudget = errors.New("invalid size budget")
	ErrInvalidOption     = errors.New("invalid option")
	ErrInvalidMetadata   = errors.New("invalid document metadata")

	// Pre-flight errors.
	ErrSourceNotFound     = errors.New("source file not found")
	ErrAttachmentNotFound = errors.New("attachment file not found")

	// Ingestion errors.
	ErrDecode   = errors.New("image decoding failed")
	ErrRender   = errors.New("markdown rendering failed")
	ErrPageCopy = errors.New("page copy failed")

	// Finalization errors.
	ErrConformance = errors.New("document does not conform to PDF/A-3b")
	ErrXMPMetadata = errors.New("invalid XMP metadata")
	ErrFinalize    = errors.New("document finalization failed")
)
