// Package pdfa writes PDF/A-3b documents with pdfcpu.
//
// A Document collects page sources (complete PDFs) in order. Nothing is
// assembled until Close: the sources are merged, the catalog receives the
// output intent, embedded files, XMP metadata and document information, and
// the result is written to the file opened by Create.
//
// Conformance checking is a per-document flag. While it is on, every
// appended source is validated on arrival and the assembled document is
// validated before it is written.
package pdfa

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"time"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// Validation selects how strictly pdfcpu validates page sources.
type Validation string

// Validation modes.
const (
	ValidationRelaxed Validation = "relaxed"
	ValidationStrict  Validation = "strict"
)

// ParseValidation converts a configuration value to a Validation.
// An empty string selects ValidationRelaxed.
func ParseValidation(s string) (Validation, error) {
	switch Validation(s) {
	case "", ValidationRelaxed:
		return ValidationRelaxed, nil
	case ValidationStrict:
		return ValidationStrict, nil
	}
	return "", fmt.Errorf("%w: validation mode %q", ErrInvalidOption, s)
}

func newConfiguration(v Validation) (*model.Configuration, error) {
	mode, err := ParseValidation(string(v))
	if err != nil {
		return nil, err
	}
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	if mode == ValidationStrict {
		conf.ValidationMode = model.ValidationStrict
	}
	return conf, nil
}

// Options configures a new Document.
type Options struct {
	// ColorProfile is the ICC profile of the output intent.
	// Nil selects DefaultColorProfile.
	ColorProfile []byte

	// Validation applies while conformance checking is enabled.
	Validation Validation

	// Now stamps document dates. Nil selects time.Now.
	Now func() time.Time
}

// EmbeddedFile is a payload attached to the document as an associated file.
type EmbeddedFile struct {
	Name         string
	Description  string
	MIMEType     string // derived from Name when empty
	Relationship string // RelationshipAlternative when empty
	Data         []byte
	ModTime      time.Time // document time when zero
}

// Document is one output PDF/A-3b file being assembled.
// A Document is not safe for concurrent use.
type Document struct {
	path    string
	out     *os.File
	profile []byte
	conf    *model.Configuration // validation while checking
	lenient *model.Configuration // page counting and merging
	now     func() time.Time

	sources  [][]byte
	pages    int
	files    []EmbeddedFile
	metadata []byte
	info     map[string]string
	infoKeys []string
	checking bool
	closed   bool
}

// Create opens path for writing and returns an empty document.
// Conformance checking starts enabled.
func Create(path string, opts Options) (*Document, error) {
	profile := opts.ColorProfile
	if profile == nil {
		profile = DefaultColorProfile
	} else if err := CheckColorProfile(profile); err != nil {
		return nil, err
	}

	conf, err := newConfiguration(opts.Validation)
	if err != nil {
		return nil, err
	}
	lenient, _ := newConfiguration(ValidationRelaxed)

	now := opts.Now
	if now == nil {
		now = time.Now
	}

	out, err := os.Create(path) // #nosec G304 -- output path chosen by the caller
	if err != nil {
		return nil, fmt.Errorf("creating %s: %w", path, err)
	}

	return &Document{
		path:     path,
		out:      out,
		profile:  profile,
		conf:     conf,
		lenient:  lenient,
		now:      now,
		info:     make(map[string]string),
		checking: true,
	}, nil
}

// Pages returns the number of pages appended so far.
func (d *Document) Pages() int { return d.pages }

// SetConformanceChecking turns conformance checking on or off.
func (d *Document) SetConformanceChecking(on bool) { d.checking = on }

// ConformanceChecking reports whether conformance checking is on.
func (d *Document) ConformanceChecking() bool { return d.checking }

// AppendPages reads a complete PDF from r and queues all of its pages, in
// order, after the pages already in the document. Returns the page count
// of the source.
func (d *Document) AppendPages(r io.Reader) (int, error) {
	if d.closed {
		return 0, ErrClosed
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrPageSource, err)
	}

	if d.checking {
		if err := api.Validate(bytes.NewReader(data), d.conf); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrConformance, err)
		}
	}

	n, err := api.PageCount(bytes.NewReader(data), d.lenient)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrPageSource, err)
	}

	d.sources = append(d.sources, data)
	d.pages += n
	return n, nil
}

// AttachFile queues f as an associated file of the document.
func (d *Document) AttachFile(f EmbeddedFile) error {
	if d.closed {
		return ErrClosed
	}
	if f.Name == "" {
		return fmt.Errorf("%w: missing file name", ErrEmbeddedFile)
	}
	d.files = append(d.files, f)
	return nil
}

// SetXMPMetadata replaces the document's XMP packet. The packet must parse
// and identify the document as PDF/A-3.
func (d *Document) SetXMPMetadata(data []byte) error {
	if d.closed {
		return ErrClosed
	}
	if err := checkMetadataPacket(data); err != nil {
		return err
	}
	d.metadata = append([]byte(nil), data...)
	return nil
}

// SetInfo sets a document-information entry. Keys are not validated;
// CreationDate and ModDate must be PDF date strings by Close.
func (d *Document) SetInfo(key, value string) {
	if _, ok := d.info[key]; !ok {
		d.infoKeys = append(d.infoKeys, key)
	}
	d.info[key] = value
}

// Close assembles the document and writes it. Producer, CreationDate and
// ModDate take requested values, or DefaultProducer and the document clock;
// the document information and the XMP packet carry the same values. The
// file handle is released on every path; on failure the incomplete file is
// removed.
func (d *Document) Close() (err error) {
	if d.closed {
		return ErrClosed
	}
	d.closed = true

	defer func() {
		if cerr := d.out.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("closing %s: %w", d.path, cerr)
		}
		if err != nil {
			_ = os.Remove(d.path)
		}
		d.release()
	}()

	ctx, st, err := d.assemble()
	if err != nil {
		return err
	}
	if err := api.WriteContext(ctx, d.out); err != nil {
		return fmt.Errorf("writing %s: %w", d.path, err)
	}
	if err := restamp(d.out, st); err != nil {
		return fmt.Errorf("writing %s: %w", d.path, err)
	}
	return nil
}

// Abort releases the document without writing it and removes the file.
// Calling Abort after Close is a no-op.
func (d *Document) Abort() error {
	if d.closed {
		return nil
	}
	d.closed = true
	defer d.release()

	cerr := d.out.Close()
	if err := os.Remove(d.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing %s: %w", d.path, err)
	}
	return cerr
}

func (d *Document) release() {
	d.sources = nil
	d.files = nil
	d.metadata = nil
}

func (d *Document) assemble() (*model.Context, stamp, error) {
	now := d.now()
	st, err := resolveStamp(d.info, now)
	if err != nil {
		return nil, stamp{}, err
	}

	content, err := d.mergedContent()
	if err != nil {
		return nil, stamp{}, err
	}

	ctx, err := api.ReadContext(bytes.NewReader(content), d.conf)
	if err != nil {
		return nil, stamp{}, fmt.Errorf("%w: %v", ErrPageSource, err)
	}
	if d.checking {
		if err := api.ValidateContext(ctx); err != nil {
			return nil, stamp{}, fmt.Errorf("%w: %v", ErrConformance, err)
		}
	}

	catalog, err := ctx.Catalog()
	if err != nil {
		return nil, stamp{}, fmt.Errorf("reading catalog: %w", err)
	}

	if err := addOutputIntent(ctx, catalog, d.profile); err != nil {
		return nil, stamp{}, err
	}
	if err := embedFiles(ctx, catalog, d.files, now); err != nil {
		return nil, stamp{}, err
	}

	metadata := d.metadata
	if metadata == nil {
		if metadata, err = defaultMetadata(d.info, st, now); err != nil {
			return nil, stamp{}, err
		}
	}
	if err := setMetadata(ctx, catalog, metadata); err != nil {
		return nil, stamp{}, err
	}
	if err := setInfo(ctx, d.info, d.infoKeys, st); err != nil {
		return nil, stamp{}, err
	}

	if d.checking {
		if err := checkStructure(ctx); err != nil {
			return nil, stamp{}, err
		}
	}
	return ctx, st, nil
}

// mergedContent concatenates the queued sources into one PDF.
func (d *Document) mergedContent() ([]byte, error) {
	switch len(d.sources) {
	case 0:
		return blankPage(d.lenient)
	case 1:
		return d.sources[0], nil
	}

	rsc := make([]io.ReadSeeker, len(d.sources))
	for i, src := range d.sources {
		rsc[i] = bytes.NewReader(src)
	}
	var buf bytes.Buffer
	if err := api.MergeRaw(rsc, &buf, false, d.lenient); err != nil {
		return nil, fmt.Errorf("%w: merging pages: %v", ErrPageSource, err)
	}
	return buf.Bytes(), nil
}

// blankPage returns a one-page PDF with a white A4 page. A file needs at
// least one page, so a document that received no sources gets this one.
func blankPage(conf *model.Configuration) ([]byte, error) {
	img := image.NewGray(image.Rect(0, 0, 1, 1))
	img.SetGray(0, 0, color.Gray{Y: 0xFF})

	var pix bytes.Buffer
	if err := png.Encode(&pix, img); err != nil {
		return nil, fmt.Errorf("encoding blank page: %w", err)
	}

	var buf bytes.Buffer
	imp := pdfcpu.DefaultImportConfig()
	if err := api.ImportImages(nil, &buf, []io.Reader{&pix}, imp, conf); err != nil {
		return nil, fmt.Errorf("creating blank page: %w", err)
	}
	return buf.Bytes(), nil
}
