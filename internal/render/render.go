// Package render turns Markdown sources into PDF pages.
//
// Markdown is converted to a standalone HTML document with goldmark, written
// to a temporary file and printed to PDF by headless Chrome (go-rod). The
// browser starts on the first render and stays up until Close.
package render

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/alnah/go-pdfmerge/internal/fileutil"
)

// Sentinel errors for Markdown rendering.
var (
	ErrEmptyMarkdown  = errors.New("markdown content cannot be empty")
	ErrHTMLConversion = errors.New("HTML conversion failed")
	ErrBrowserConnect = errors.New("failed to connect to browser")
	ErrPageCreate     = errors.New("failed to create browser page")
	ErrPageLoad       = errors.New("failed to load page")
	ErrPDFGeneration  = errors.New("PDF generation failed")
)

// DefaultTimeout bounds a single page load when the caller's context has no deadline.
const DefaultTimeout = 30 * time.Second

// Renderer converts Markdown files to PDF.
// A Renderer is not safe for concurrent use.
type Renderer struct {
	html htmlConverter
	pdf  pdfRenderer
}

// New creates a Renderer backed by headless Chrome.
func New(timeout time.Duration) *Renderer {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Renderer{
		html: newGoldmarkConverter(),
		pdf:  newRodRenderer(timeout),
	}
}

// RenderFile reads the Markdown file at path and renders it to PDF bytes.
// The file's base name becomes the HTML title.
func (r *Renderer) RenderFile(ctx context.Context, path string) ([]byte, error) {
	content, err := os.ReadFile(path) // #nosec G304 -- path comes from the merge request
	if err != nil {
		return nil, err
	}
	title := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	pdf, err := r.Render(ctx, title, string(content))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return pdf, nil
}

// Render converts Markdown content to PDF bytes.
func (r *Renderer) Render(ctx context.Context, title, content string) ([]byte, error) {
	if fileutil.IsBlank(content) {
		return nil, ErrEmptyMarkdown
	}

	htmlContent, err := r.html.ToHTML(ctx, title, content)
	if err != nil {
		return nil, err
	}

	tmpPath, cleanup, err := fileutil.WriteTempFile(htmlContent, "html")
	if err != nil {
		return nil, err
	}
	defer cleanup()

	return r.pdf.RenderFromFile(ctx, tmpPath)
}

// Close releases the browser.
func (r *Renderer) Close() error {
	if r.pdf != nil {
		return r.pdf.Close()
	}
	return nil
}
