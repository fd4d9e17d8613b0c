package pdfa

import "errors"

// Sentinel errors for output documents.
var (
	ErrClosed        = errors.New("document already closed")
	ErrConformance   = errors.New("document does not conform to PDF/A-3b")
	ErrColorProfile  = errors.New("invalid ICC color profile")
	ErrMetadata      = errors.New("invalid XMP metadata")
	ErrPageSource    = errors.New("unreadable page source")
	ErrEmbeddedFile  = errors.New("invalid embedded file")
	ErrInvalidOption = errors.New("invalid document option")
)
