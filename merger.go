package pdfmerge

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/alnah/go-pdfmerge/internal/fileutil"
	"github.com/alnah/go-pdfmerge/internal/pdfa"
	"github.com/alnah/go-pdfmerge/internal/render"
)

// Compile-time interface implementation checks.
var (
	_ document         = (*pdfa.Document)(nil)
	_ pageSynthesizer  = (*imageSynthesizer)(nil)
	_ MarkdownRenderer = (*render.Renderer)(nil)
)

// document is an open output document.
type document interface {
	conformanceChecker
	AppendPages(r io.Reader) (int, error)
	AttachFile(f pdfa.EmbeddedFile) error
	SetXMPMetadata(data []byte) error
	SetInfo(key, value string)
	Close() error
	Abort() error
}

// documentOpener creates the output document at path.
type documentOpener func(path string) (document, error)

// Merger merges source files into size-bounded PDF/A-3b documents.
// Create with NewMerger and call Merge once per request. A Merger holds no
// state between calls, but a single call must not run concurrently with
// another call writing the same output path.
type Merger struct {
	cfg      mergerConfig
	logger   *slog.Logger
	markdown MarkdownRenderer
	synth    pageSynthesizer
	open     documentOpener
	now      func() time.Time
	userName func() string
}

// NewMerger creates a Merger. Options customize validation, layout, the
// output intent profile, logging and Markdown support.
// Returns ErrInvalidOption if the configured color profile is unusable.
func NewMerger(opts ...Option) (*Merger, error) {
	m := &Merger{
		cfg: mergerConfig{
			validation: ValidationRelaxed,
			layout:     LayoutFit,
			invoice:    DefaultInvoiceProfile(),
		},
		logger:   slog.New(slog.DiscardHandler),
		now:      time.Now,
		userName: currentUserName,
	}

	for _, opt := range opts {
		opt(m)
	}

	if m.cfg.colorProfile != nil {
		if err := pdfa.CheckColorProfile(m.cfg.colorProfile); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidOption, err)
		}
	}

	// Create collaborators if not injected (e.g., by tests)
	if m.synth == nil {
		m.synth = newImageSynthesizer(m.cfg.layout)
	}
	if m.open == nil {
		m.open = m.createPDFA
	}

	return m, nil
}

func (m *Merger) createPDFA(path string) (document, error) {
	doc, err := pdfa.Create(path, pdfa.Options{
		ColorProfile: m.cfg.colorProfile,
		Validation:   pdfa.Validation(m.cfg.validation),
		Now:          m.now,
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// sourceFile is an input that passed the pre-flight existence check.
type sourceFile struct {
	path string
	size int64
}

// mergePlan is a validated request.
type mergePlan struct {
	output      string
	sources     []sourceFile
	budget      float64
	bounded     bool
	attachments []loadedAttachment
}

// batchState is owned by one Merge call. At most one document is open.
type batchState struct {
	doc     document
	current OutputDocument
	acc     int64 // bytes accumulated in the open document
	counter int   // sequence number of the next document, from 1
	base    string
}

// nextPath returns the file name of the next document: the base path for
// the first one, then base-2.pdf, base-3.pdf and so on.
func (s *batchState) nextPath() string {
	path := s.base
	if s.counter > 1 {
		path = fileutil.NumberedPath(s.base, s.counter)
	}
	s.counter++
	return path
}

// Merge writes the pages of req.InputFiles, in order, to one or more
// PDF/A-3b documents. A new document starts before a source whose size
// would push the open document past the budget; a single source is never
// split. Every document receives all attachments and metadata.
//
// All inputs and attachments are checked before any output is created.
// Any later failure aborts the call: the open document is removed, while
// documents finalized earlier stay on disk.
// Recovers from internal panics to prevent crashes from propagating to callers.
func (m *Merger) Merge(ctx context.Context, req Request) (result *Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("internal error: %v", r)
		}
	}()

	plan, err := m.preflight(req)
	if err != nil {
		return nil, err
	}
	if err := fileutil.EnsureParentDir(plan.output); err != nil {
		return nil, err
	}

	fin := &finalizer{
		attachments: plan.attachments,
		metadata:    req.Metadata,
		invoice:     m.cfg.invoice,
		now:         m.now,
		userName:    m.userName,
	}
	st := &batchState{counter: 1, base: plan.output}
	completed := false
	defer func() {
		if !completed {
			m.abort(st)
		}
	}()

	result = &Result{}
	for _, src := range plan.sources {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		newDoc := st.doc == nil
		if st.acc > 0 && plan.bounded && float64(st.acc+src.size) > plan.budget {
			newDoc = true
			st.acc = 0
		}
		// Counted before classification: skipped files take up budget too.
		st.acc += src.size

		if newDoc {
			if st.doc != nil {
				if err := m.finalize(st, fin, result); err != nil {
					return nil, err
				}
			}
			if err := m.openNext(st); err != nil {
				return nil, err
			}
		}
		st.current.Sources = append(st.current.Sources, src.path)

		strategy := m.classify(src.path)
		m.logger.Info("processing source", "path", src.path, "size", src.size, "strategy", strategy.String())
		if strategy == StrategySkip {
			m.logger.Debug("skipped source", "path", src.path)
			continue
		}

		n, err := m.ingest(ctx, st.doc, src.path, strategy)
		if err != nil {
			return nil, err
		}
		st.current.Pages += n
	}

	if st.doc != nil {
		if err := m.finalize(st, fin, result); err != nil {
			return nil, err
		}
	}
	completed = true
	return result, nil
}

// preflight validates req, resolves the output path, and checks that every
// input and attachment exists before anything is written.
func (m *Merger) preflight(req Request) (*mergePlan, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	output := req.OutputPath
	if fileutil.IsBlank(output) {
		output = fileutil.DefaultOutputName(m.now())
	}
	plan := &mergePlan{output: fileutil.NormalizePDFPath(output)}
	plan.budget, plan.bounded = req.budgetBytes()

	for _, in := range req.InputFiles {
		if fileutil.IsBlank(in) {
			continue
		}
		info, err := os.Stat(in)
		if err != nil || info.IsDir() {
			return nil, fmt.Errorf("%w: %s", ErrSourceNotFound, in)
		}
		plan.sources = append(plan.sources, sourceFile{path: in, size: info.Size()})
	}

	for _, a := range req.Attachments {
		la, err := loadAttachment(a)
		if err != nil {
			return nil, err
		}
		plan.attachments = append(plan.attachments, la)
	}
	return plan, nil
}

func (m *Merger) openNext(st *batchState) error {
	seq := st.counter
	path := st.nextPath()
	doc, err := m.open(path)
	if err != nil {
		return fmt.Errorf("opening output document: %w", err)
	}
	st.doc = doc
	st.current = OutputDocument{Path: path}
	m.logger.Info("opened output document", "path", path, "sequence", seq)
	return nil
}

// finalize closes the open document and records it in result. On failure
// the document stays in st so the deferred abort releases it.
func (m *Merger) finalize(st *batchState, fin *finalizer, result *Result) error {
	if err := fin.finalize(st.doc); err != nil {
		return fmt.Errorf("%s: %w", st.current.Path, err)
	}
	st.current.Attachments = len(fin.attachments)
	result.Documents = append(result.Documents, st.current)
	m.logger.Info("finalized output document",
		"path", st.current.Path, "pages", st.current.Pages, "attachments", st.current.Attachments)
	st.doc = nil
	st.current = OutputDocument{}
	return nil
}

func (m *Merger) abort(st *batchState) {
	if st.doc == nil {
		return
	}
	if err := st.doc.Abort(); err != nil {
		m.logger.Warn("aborting output document", "path", st.current.Path, "error", err)
	}
	st.doc = nil
}

// ingest appends the pages of one classified source to doc.
func (m *Merger) ingest(ctx context.Context, doc document, path string, s Strategy) (int, error) {
	switch s {
	case StrategyCopy:
		f, err := os.Open(path) // #nosec G304 -- path comes from the merge request
		if err != nil {
			return 0, err
		}
		defer f.Close()
		n, err := doc.AppendPages(f)
		if err != nil {
			return 0, appendError(path, err)
		}
		return n, nil

	case StrategyRender:
		data, err := m.markdown.RenderFile(ctx, path)
		if err != nil {
			return 0, fmt.Errorf("%w: %w", ErrRender, err)
		}
		return appendSynthesized(doc, path, data)

	default:
		data, err := m.synth.Synthesize(ctx, path, s)
		if err != nil {
			return 0, err
		}
		return appendSynthesized(doc, path, data)
	}
}

// appendSynthesized copies generated pages with conformance checking
// suspended.
func appendSynthesized(doc document, path string, data []byte) (int, error) {
	restore := suspendChecking(doc)
	defer restore()

	n, err := doc.AppendPages(bytes.NewReader(data))
	if err != nil {
		return 0, appendError(path, err)
	}
	return n, nil
}

func appendError(path string, err error) error {
	if errors.Is(err, pdfa.ErrConformance) {
		return fmt.Errorf("%w: %s: %v", ErrConformance, path, err)
	}
	return fmt.Errorf("%w: %s: %v", ErrPageCopy, path, err)
}
