package pdfmerge

import (
	"context"
	"log/slog"
	"time"

	"github.com/alnah/go-pdfmerge/internal/render"
)

// Option configures a Merger.
type Option func(*Merger)

// mergerConfig holds internal configuration for Merger.
type mergerConfig struct {
	colorProfile []byte
	validation   Validation
	layout       PageLayout
	invoice      InvoiceProfile
}

// MarkdownRenderer renders a Markdown file to a complete PDF.
type MarkdownRenderer interface {
	RenderFile(ctx context.Context, path string) ([]byte, error)
	Close() error
}

// NewMarkdownRenderer returns a MarkdownRenderer backed by headless Chrome.
// The browser starts on the first render. A timeout <= 0 selects 30 seconds.
func NewMarkdownRenderer(timeout time.Duration) MarkdownRenderer {
	return render.New(timeout)
}

// WithLogger sets the logger for progress events. The default discards them.
func WithLogger(l *slog.Logger) Option {
	return func(m *Merger) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithColorProfile sets the ICC profile of every document's output intent.
// The profile must describe an RGB color space; NewMerger checks it.
func WithColorProfile(profile []byte) Option {
	return func(m *Merger) {
		m.cfg.colorProfile = profile
	}
}

// WithValidation sets how strictly PDF sources are checked.
// Panics on an unknown mode (programmer error); use ParseValidation for
// user input.
func WithValidation(v Validation) Option {
	mode, err := ParseValidation(string(v))
	if err != nil {
		panic("pdfmerge: " + err.Error())
	}
	return func(m *Merger) {
		m.cfg.validation = mode
	}
}

// WithPageLayout sets how images are placed on synthesized pages.
// Panics on an unknown layout (programmer error); use ParsePageLayout for
// user input.
func WithPageLayout(l PageLayout) Option {
	layout, err := ParsePageLayout(string(l))
	if err != nil {
		panic("pdfmerge: " + err.Error())
	}
	return func(m *Merger) {
		m.cfg.layout = layout
	}
}

// WithInvoiceProfile overrides the hybrid-invoice XMP properties.
// Empty fields keep their defaults.
func WithInvoiceProfile(p InvoiceProfile) Option {
	return func(m *Merger) {
		m.cfg.invoice = p.withDefaults()
	}
}

// WithMarkdownRenderer enables Markdown sources (.md, .markdown).
// Without it they are skipped like any unrecognized file. The caller keeps
// ownership of r and closes it.
func WithMarkdownRenderer(r MarkdownRenderer) Option {
	return func(m *Merger) {
		m.markdown = r
	}
}
