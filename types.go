package pdfmerge

import (
	"fmt"
	"math"
	"strings"

	"github.com/alnah/go-pdfmerge/internal/pdfa"
)

// InvoiceKey marks the attachment that carries a structured invoice.
// When a request contains an attachment with this key, every output
// document receives hybrid-invoice XMP metadata.
const InvoiceKey = "ZUGFeRD Invoice"

// Size budget bounds in megabytes. Budgets at or below zero, or at or
// above UnboundedSizeMB, disable splitting.
const (
	UnboundedSizeMB = 99999
	bytesPerMB      = 1024 * 1024
)

// Page layout constants for synthesized pages.
const (
	LayoutFit  PageLayout = "fit"  // A4 page, image centered and scaled to fit
	LayoutFull PageLayout = "full" // page size equals image size
)

// Validation mode constants.
const (
	ValidationRelaxed Validation = "relaxed"
	ValidationStrict  Validation = "strict"
)

// PageLayout selects how a raster image is placed on its page.
type PageLayout string

// Validation selects how strictly PDF sources are checked while
// conformance checking is on.
type Validation string

// Request describes one merge run.
type Request struct {
	OutputPath    string            // "" = timestamp name in the working directory
	InputFiles    []string          // blank entries are ignored
	MaxFileSizeMB float64           // <= 0 = unbounded
	Attachments   []Attachment      // embedded into every output document
	Metadata      map[string]string // document-information entries (optional)
}

// Attachment is a file embedded into every output document.
type Attachment struct {
	Key         string // InvoiceKey marks the invoice payload
	FilePath    string // source file (required)
	Filename    string // embedded name; "" = base name of FilePath
	Description string
	MIMEType    string // "" = derived from Filename
}

// InvoiceProfile holds the hybrid-invoice properties written to XMP.
type InvoiceProfile struct {
	ConformanceLevel string // "MINIMUM", "BASIC WL", "BASIC", "EN 16931", "EXTENDED", "XRECHNUNG"
	DocumentType     string // "INVOICE", "ORDER", ...
	Version          string
}

// DefaultInvoiceProfile returns the profile used when none is configured.
func DefaultInvoiceProfile() InvoiceProfile {
	return InvoiceProfile{
		ConformanceLevel: "EXTENDED",
		DocumentType:     "INVOICE",
		Version:          "1.2",
	}
}

// withDefaults fills empty fields from DefaultInvoiceProfile.
func (p InvoiceProfile) withDefaults() InvoiceProfile {
	def := DefaultInvoiceProfile()
	if p.ConformanceLevel == "" {
		p.ConformanceLevel = def.ConformanceLevel
	}
	if p.DocumentType == "" {
		p.DocumentType = def.DocumentType
	}
	if p.Version == "" {
		p.Version = def.Version
	}
	return p
}

// Result lists the documents written by a merge, in creation order.
type Result struct {
	Documents []OutputDocument
}

// OutputDocument describes one written PDF/A-3b file.
type OutputDocument struct {
	Path        string
	Pages       int      // pages copied from sources
	Sources     []string // inputs assigned to this document, skipped ones included
	Attachments int
}

// Pages returns the total number of source pages across all documents.
func (r *Result) Pages() int {
	n := 0
	for _, d := range r.Documents {
		n += d.Pages
	}
	return n
}

// ParsePageLayout converts a configuration value to a PageLayout.
// Matching is case-insensitive; "" selects LayoutFit.
func ParsePageLayout(s string) (PageLayout, error) {
	switch PageLayout(strings.ToLower(s)) {
	case "", LayoutFit:
		return LayoutFit, nil
	case LayoutFull:
		return LayoutFull, nil
	}
	return "", fmt.Errorf("%w: page layout %q", ErrInvalidOption, s)
}

// ParseValidation converts a configuration value to a Validation.
// Matching is case-insensitive; "" selects ValidationRelaxed.
func ParseValidation(s string) (Validation, error) {
	switch Validation(strings.ToLower(s)) {
	case "", ValidationRelaxed:
		return ValidationRelaxed, nil
	case ValidationStrict:
		return ValidationStrict, nil
	}
	return "", fmt.Errorf("%w: validation mode %q", ErrInvalidOption, s)
}

// budgetBytes returns the size budget in bytes and whether it is bounded.
func (r *Request) budgetBytes() (float64, bool) {
	mb := r.MaxFileSizeMB
	if mb <= 0 || mb >= UnboundedSizeMB {
		return 0, false
	}
	return mb * bytesPerMB, true
}

// validate checks the request shape. File existence is checked separately.
func (r *Request) validate() error {
	if math.IsNaN(r.MaxFileSizeMB) || math.IsInf(r.MaxFileSizeMB, 0) {
		return fmt.Errorf("%w: %v MB", ErrInvalidSizeBudget, r.MaxFileSizeMB)
	}
	for _, k := range []string{"CreationDate", "ModDate"} {
		if v := r.Metadata[k]; v != "" {
			if _, err := pdfa.ParseDate(v); err != nil {
				return fmt.Errorf("%w: %s: %v", ErrInvalidMetadata, k, err)
			}
		}
	}
	for _, in := range r.InputFiles {
		if strings.TrimSpace(in) != "" {
			return nil
		}
	}
	return ErrNoInput
}
