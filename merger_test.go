package pdfmerge

// Notes:
// - Tests the batch splitter with a mock document opener and a mock page
//   synthesizer, so budgets can be exercised with sparse megabyte-sized
//   files that are not valid PDFs or images.
// - mockDocument returns one page per appended source, or one page per
//   "|"-separated segment for synthesized data.
// - Real pdfcpu output is covered in integration_test.go.

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/alnah/go-pdfmerge/internal/pdfa"
	"github.com/alnah/go-pdfmerge/internal/testutil"
)

const mb = 1 << 20

var testNow = time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)

// ---------------------------------------------------------------------------
// Mock Implementations
// ---------------------------------------------------------------------------

type mockDocument struct {
	path       string
	checking   bool
	appended   []string
	checkedAt  []bool // checking state at each AppendPages call
	files      []pdfa.EmbeddedFile
	xmp        []byte
	infoKeys   []string
	info       map[string]string
	appendErr  error
	closeErr   error
	closedWith bool // checking state at Close
	closed     bool
	aborted    bool
}

func (d *mockDocument) SetConformanceChecking(on bool) { d.checking = on }
func (d *mockDocument) ConformanceChecking() bool      { return d.checking }

func (d *mockDocument) AppendPages(r io.Reader) (int, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return 0, err
	}
	d.checkedAt = append(d.checkedAt, d.checking)
	if d.appendErr != nil {
		return 0, d.appendErr
	}
	d.appended = append(d.appended, string(data))
	return bytes.Count(data, []byte("|")) + 1, nil
}

func (d *mockDocument) AttachFile(f pdfa.EmbeddedFile) error {
	d.files = append(d.files, f)
	return nil
}

func (d *mockDocument) SetXMPMetadata(data []byte) error {
	d.xmp = data
	return nil
}

func (d *mockDocument) SetInfo(key, value string) {
	if d.info == nil {
		d.info = make(map[string]string)
	}
	d.infoKeys = append(d.infoKeys, key)
	d.info[key] = value
}

func (d *mockDocument) Close() error {
	d.closedWith = d.checking
	d.closed = true
	return d.closeErr
}

func (d *mockDocument) Abort() error {
	if !d.closed {
		d.aborted = true
	}
	return nil
}

// docRecorder opens mock documents and keeps them in creation order.
type docRecorder struct {
	docs []*mockDocument
	// configure, when set, adjusts the n-th (0-based) document before use.
	configure func(n int, d *mockDocument)
	openErr   error
}

func (r *docRecorder) open(path string) (document, error) {
	if r.openErr != nil {
		return nil, r.openErr
	}
	d := &mockDocument{path: path, checking: true}
	if r.configure != nil {
		r.configure(len(r.docs), d)
	}
	r.docs = append(r.docs, d)
	return d, nil
}

func (r *docRecorder) paths() []string {
	out := make([]string, len(r.docs))
	for i, d := range r.docs {
		out[i] = d.path
	}
	return out
}

type mockSynthesizer struct {
	frames map[string]int // frames per path; 1 when absent
	calls  []string
	err    error
	panic  bool
}

func (s *mockSynthesizer) Synthesize(ctx context.Context, path string, strategy Strategy) ([]byte, error) {
	if s.panic {
		panic("decoder exploded")
	}
	s.calls = append(s.calls, filepath.Base(path)+":"+strategy.String())
	if s.err != nil {
		return nil, s.err
	}
	n := s.frames[filepath.Base(path)]
	if n == 0 {
		n = 1
	}
	parts := make([]string, n)
	for i := range parts {
		parts[i] = fmt.Sprintf("%s#%d", filepath.Base(path), i+1)
	}
	return []byte(strings.Join(parts, "|")), nil
}

type mockMarkdown struct {
	paths []string
	err   error
}

func (m *mockMarkdown) RenderFile(ctx context.Context, path string) ([]byte, error) {
	m.paths = append(m.paths, path)
	return []byte("rendered"), m.err
}

func (m *mockMarkdown) Close() error { return nil }

func newTestMerger(t *testing.T, opts ...Option) (*Merger, *docRecorder, *mockSynthesizer) {
	t.Helper()
	m, err := NewMerger(opts...)
	if err != nil {
		t.Fatalf("NewMerger() error = %v", err)
	}
	rec := &docRecorder{}
	synth := &mockSynthesizer{frames: map[string]int{}}
	m.open = rec.open
	m.synth = synth
	m.now = func() time.Time { return testNow }
	m.userName = func() string { return "tester" }
	return m, rec, synth
}

// ---------------------------------------------------------------------------
// TestMerge_Batching - Size budget and document boundaries
// ---------------------------------------------------------------------------

func TestMerge_SizeBudgetScenario(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	a := testutil.WriteSized(t, dir, "a.pdf", 2*mb)
	b := testutil.WriteSized(t, dir, "b.png", 1*mb)
	c := testutil.WriteSized(t, dir, "c.tif", 3*mb)

	m, rec, synth := newTestMerger(t)
	synth.frames["c.tif"] = 3

	res, err := m.Merge(context.Background(), Request{
		OutputPath:    filepath.Join(dir, "out"),
		InputFiles:    []string{a, b, c},
		MaxFileSizeMB: 4,
	})
	if err != nil {
		t.Fatalf("Merge() error = %v", err)
	}

	want := []OutputDocument{
		{Path: filepath.Join(dir, "out.pdf"), Pages: 2, Sources: []string{a, b}},
		{Path: filepath.Join(dir, "out-2.pdf"), Pages: 3, Sources: []string{c}},
	}
	if diff := cmp.Diff(want, res.Documents); diff != "" {
		t.Errorf("documents mismatch (-want +got):\n%s", diff)
	}
	if res.Pages() != 5 {
		t.Errorf("Pages() = %d, want 5", res.Pages())
	}
	if got := rec.docs[1].appended; len(got) != 1 || got[0] != "c.tif#1|c.tif#2|c.tif#3" {
		t.Errorf("second document received %q, want the three frames in order", got)
	}
	for i, d := range rec.docs {
		if !d.closed || d.aborted {
			t.Errorf("document %d closed=%v aborted=%v", i, d.closed, d.aborted)
		}
	}
}

func TestMerge_Boundaries(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		budget float64
		sizes  []int64 // one .pdf source per entry
		want   [][]int // source indexes per document
	}{
		{"unbounded zero", 0, []int64{3 * mb, 3 * mb, 3 * mb}, [][]int{{0, 1, 2}}},
		{"unbounded negative", -5, []int64{3 * mb, 3 * mb}, [][]int{{0, 1}}},
		{"unbounded sentinel", UnboundedSizeMB, []int64{3 * mb, 3 * mb}, [][]int{{0, 1}}},
		{"exactly at budget stays", 2, []int64{mb, mb, 1}, [][]int{{0, 1}, {2}}},
		{"oversized single file is not split", 1, []int64{3 * mb, mb / 2, mb / 3}, [][]int{{0}, {1, 2}}},
		{"every file over budget", 1, []int64{2 * mb, 2 * mb, 2 * mb}, [][]int{{0}, {1}, {2}}},
		{"fractional budget", 0.5, []int64{mb / 4, mb / 4, mb / 4}, [][]int{{0, 1}, {2}}},
		{"empty files never split", 1, []int64{0, 0, 0}, [][]int{{0, 1, 2}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			dir := t.TempDir()
			inputs := make([]string, len(tt.sizes))
			for i, size := range tt.sizes {
				inputs[i] = testutil.WriteSized(t, dir, fmt.Sprintf("s%d.pdf", i), size)
			}

			m, _, _ := newTestMerger(t)
			res, err := m.Merge(context.Background(), Request{
				OutputPath:    filepath.Join(dir, "out.pdf"),
				InputFiles:    inputs,
				MaxFileSizeMB: tt.budget,
			})
			if err != nil {
				t.Fatalf("Merge() error = %v", err)
			}

			got := make([][]int, len(res.Documents))
			for i, d := range res.Documents {
				for _, src := range d.Sources {
					var n int
					fmt.Sscanf(filepath.Base(src), "s%d.pdf", &n)
					got[i] = append(got[i], n)
				}
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("batches mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestMerge_SkippedFilesCountTowardBudget(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	a := testutil.WriteSized(t, dir, "a.pdf", 600*1024)
	notes := testutil.WriteSized(t, dir, "notes.txt", 600*1024)
	b := testutil.WriteSized(t, dir, "b.pdf", 100*1024)

	m, rec, _ := newTestMerger(t)
	res, err := m.Merge(context.Background(), Request{
		OutputPath:    filepath.Join(dir, "out.pdf"),
		InputFiles:    []string{a, notes, b},
		MaxFileSizeMB: 1,
	})
	if err != nil {
		t.Fatalf("Merge() error = %v", err)
	}

	want := []OutputDocument{
		{Path: filepath.Join(dir, "out.pdf"), Pages: 1, Sources: []string{a}},
		{Path: filepath.Join(dir, "out-2.pdf"), Pages: 1, Sources: []string{notes, b}},
	}
	if diff := cmp.Diff(want, res.Documents); diff != "" {
		t.Errorf("documents mismatch (-want +got):\n%s", diff)
	}
	if n := len(rec.docs[1].appended); n != 1 {
		t.Errorf("second document got %d sources, want 1 (notes.txt skipped)", n)
	}
}

func TestMerge_OnlySkippedSources(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	notes := testutil.WriteSized(t, dir, "notes.txt", 10)

	m, rec, _ := newTestMerger(t)
	res, err := m.Merge(context.Background(), Request{
		OutputPath: filepath.Join(dir, "out"),
		InputFiles: []string{notes, "  "},
	})
	if err != nil {
		t.Fatalf("Merge() error = %v", err)
	}
	if len(res.Documents) != 1 || res.Documents[0].Pages != 0 {
		t.Errorf("documents = %+v, want one empty document", res.Documents)
	}
	if !rec.docs[0].closed {
		t.Error("empty document was not finalized")
	}
}

func TestMerge_OutputNaming(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		output func(dir string) string
		want   func(dir string) []string
	}{
		{
			name:   "extension appended",
			output: func(dir string) string { return filepath.Join(dir, "out") },
			want: func(dir string) []string {
				return []string{filepath.Join(dir, "out.pdf"), filepath.Join(dir, "out-2.pdf"), filepath.Join(dir, "out-3.pdf")}
			},
		},
		{
			name:   "upper case extension kept",
			output: func(dir string) string { return filepath.Join(dir, "OUT.PDF") },
			want: func(dir string) []string {
				return []string{filepath.Join(dir, "OUT.PDF"), filepath.Join(dir, "OUT-2.pdf"), filepath.Join(dir, "OUT-3.pdf")}
			},
		},
		{
			name:   "missing directory created",
			output: func(dir string) string { return filepath.Join(dir, "nested", "batch", "scan") },
			want: func(dir string) []string {
				base := filepath.Join(dir, "nested", "batch")
				return []string{filepath.Join(base, "scan.pdf"), filepath.Join(base, "scan-2.pdf"), filepath.Join(base, "scan-3.pdf")}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			dir := t.TempDir()
			src := t.TempDir()
			inputs := []string{
				testutil.WriteSized(t, src, "1.pdf", 2*mb),
				testutil.WriteSized(t, src, "2.pdf", 2*mb),
				testutil.WriteSized(t, src, "3.pdf", 2*mb),
			}

			m, rec, _ := newTestMerger(t)
			_, err := m.Merge(context.Background(), Request{
				OutputPath:    tt.output(dir),
				InputFiles:    inputs,
				MaxFileSizeMB: 3,
			})
			if err != nil {
				t.Fatalf("Merge() error = %v", err)
			}
			if diff := cmp.Diff(tt.want(dir), rec.paths()); diff != "" {
				t.Errorf("paths mismatch (-want +got):\n%s", diff)
			}
			if info, err := os.Stat(filepath.Dir(rec.paths()[0])); err != nil || !info.IsDir() {
				t.Errorf("output directory was not created: %v", err)
			}
		})
	}
}

func TestMerge_DefaultOutputName(t *testing.T) {
	t.Parallel()

	src := testutil.WriteSized(t, t.TempDir(), "a.pdf", 10)
	m, rec, _ := newTestMerger(t)
	if _, err := m.Merge(context.Background(), Request{InputFiles: []string{src}}); err != nil {
		t.Fatalf("Merge() error = %v", err)
	}
	want := "2025-03-14-09-26-53+0000.pdf"
	if got := rec.paths(); len(got) != 1 || got[0] != want {
		t.Errorf("paths = %v, want [%s]", got, want)
	}
}

// ---------------------------------------------------------------------------
// TestMerge_Preflight - Nothing is written for invalid requests
// ---------------------------------------------------------------------------

func TestMerge_PreflightErrors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	present := testutil.WriteSized(t, dir, "a.pdf", 10)
	missing := filepath.Join(dir, "missing.pdf")

	tests := []struct {
		name    string
		req     Request
		wantErr error
	}{
		{"no inputs", Request{OutputPath: "x"}, ErrNoInput},
		{"blank inputs only", Request{InputFiles: []string{"", "  "}}, ErrNoInput},
		{"NaN budget", Request{InputFiles: []string{present}, MaxFileSizeMB: math.NaN()}, ErrInvalidSizeBudget},
		{"missing source after present one", Request{InputFiles: []string{present, missing}}, ErrSourceNotFound},
		{"directory as source", Request{InputFiles: []string{dir}}, ErrSourceNotFound},
		{
			"missing attachment",
			Request{
				InputFiles:  []string{present},
				Attachments: []Attachment{{Key: InvoiceKey, FilePath: filepath.Join(dir, "factur-x.xml")}},
			},
			ErrAttachmentNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			m, rec, _ := newTestMerger(t)
			tt.req.OutputPath = filepath.Join(t.TempDir(), "out")
			_, err := m.Merge(context.Background(), tt.req)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Merge() error = %v, want %v", err, tt.wantErr)
			}
			if len(rec.docs) != 0 {
				t.Errorf("%d documents opened before pre-flight failed", len(rec.docs))
			}
		})
	}
}

// ---------------------------------------------------------------------------
// TestMerge_Ingestion - Strategies and the conformance gate
// ---------------------------------------------------------------------------

func TestMerge_StrategiesAndGate(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	inputs := []string{
		testutil.WriteSized(t, dir, "a.PDF", 10),
		testutil.WriteSized(t, dir, "b.jpg", 10),
		testutil.WriteSized(t, dir, "c.TIFF", 10),
		testutil.WriteSized(t, dir, "d.md", 10),
		testutil.WriteSized(t, dir, "e.pdf", 10),
	}

	m, rec, synth := newTestMerger(t)
	synth.frames["c.TIFF"] = 2
	res, err := m.Merge(context.Background(), Request{OutputPath: filepath.Join(dir, "out"), InputFiles: inputs})
	if err != nil {
		t.Fatalf("Merge() error = %v", err)
	}

	if diff := cmp.Diff([]string{"b.jpg:image", "c.TIFF:frames"}, synth.calls); diff != "" {
		t.Errorf("synthesizer calls mismatch (-want +got):\n%s", diff)
	}
	doc := rec.docs[0]
	// PDF copies run with checking on, synthesized pages with checking off.
	if diff := cmp.Diff([]bool{true, false, false, true}, doc.checkedAt); diff != "" {
		t.Errorf("checking state per append (-want +got):\n%s", diff)
	}
	if !doc.closedWith {
		t.Error("checking was off when the document closed")
	}
	if res.Documents[0].Pages != 5 {
		t.Errorf("Pages = %d, want 5 (1 + 1 + 2 + 1, markdown skipped)", res.Documents[0].Pages)
	}
}

func TestMerge_Markdown(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	md := testutil.WriteSized(t, dir, "notes.markdown", 10)
	renderer := &mockMarkdown{}

	m, rec, _ := newTestMerger(t, WithMarkdownRenderer(renderer))
	if _, err := m.Merge(context.Background(), Request{OutputPath: filepath.Join(dir, "out"), InputFiles: []string{md}}); err != nil {
		t.Fatalf("Merge() error = %v", err)
	}
	if len(renderer.paths) != 1 || renderer.paths[0] != md {
		t.Errorf("renderer paths = %v", renderer.paths)
	}
	doc := rec.docs[0]
	if diff := cmp.Diff([]string{"rendered"}, doc.appended); diff != "" {
		t.Errorf("appended mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]bool{false}, doc.checkedAt); diff != "" {
		t.Errorf("rendered pages should be copied with checking off (-want +got):\n%s", diff)
	}

	renderer.err = errors.New("chrome missing")
	_, err := m.Merge(context.Background(), Request{OutputPath: filepath.Join(dir, "out2"), InputFiles: []string{md}})
	if !errors.Is(err, ErrRender) {
		t.Errorf("error = %v, want ErrRender", err)
	}
}

// ---------------------------------------------------------------------------
// TestMerge_Finalization - Attachments, XMP and document information
// ---------------------------------------------------------------------------

func TestMerge_FinalizesEveryDocument(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	invoice := testutil.WriteFile(t, dir, "invoice-data.xml", []byte("<Invoice/>"))
	terms := testutil.WriteFile(t, dir, "terms.txt", []byte("net 30"))
	inputs := []string{
		testutil.WriteSized(t, dir, "a.pdf", 2*mb),
		testutil.WriteSized(t, dir, "b.pdf", 2*mb),
	}

	m, rec, _ := newTestMerger(t, WithInvoiceProfile(InvoiceProfile{ConformanceLevel: "EN 16931"}))
	res, err := m.Merge(context.Background(), Request{
		OutputPath:    filepath.Join(dir, "out"),
		InputFiles:    inputs,
		MaxFileSizeMB: 3,
		Attachments: []Attachment{
			{Key: InvoiceKey, FilePath: invoice, Filename: "factur-x.xml", Description: "factur-x"},
			{Key: "terms", FilePath: terms},
		},
		Metadata: map[string]string{"Title": "Delivery 7", "Author": "Accounts", "Keywords": "a & b"},
	})
	if err != nil {
		t.Fatalf("Merge() error = %v", err)
	}
	if len(rec.docs) != 2 {
		t.Fatalf("opened %d documents, want 2", len(rec.docs))
	}

	for i, doc := range rec.docs {
		if res.Documents[i].Attachments != 2 {
			t.Errorf("doc %d: Attachments = %d, want 2", i, res.Documents[i].Attachments)
		}
		var names []string
		for _, f := range doc.files {
			names = append(names, f.Name)
			if f.Relationship != pdfa.RelationshipAlternative {
				t.Errorf("doc %d: %s relationship = %q", i, f.Name, f.Relationship)
			}
		}
		if diff := cmp.Diff([]string{"factur-x.xml", "terms.txt"}, names); diff != "" {
			t.Errorf("doc %d: attachments mismatch (-want +got):\n%s", i, diff)
		}
		if string(doc.files[0].Data) != "<Invoice/>" || doc.files[0].Description != "factur-x" {
			t.Errorf("doc %d: invoice payload = %q / %q", i, doc.files[0].Data, doc.files[0].Description)
		}

		xmp := string(doc.xmp)
		for _, want := range []string{
			"<fx:DocumentFileName>factur-x.xml</fx:DocumentFileName>",
			"<fx:ConformanceLevel>EN 16931</fx:ConformanceLevel>",
			"<fx:DocumentType>INVOICE</fx:DocumentType>",
			"<rdf:li xml:lang=\"x-default\">Delivery 7</rdf:li>",
			"<rdf:li>Accounts</rdf:li>",
			"<pdf:Producer>go-pdfmerge</pdf:Producer>",
			"<pdf:Keywords>a &amp; b</pdf:Keywords>",
			"<xmp:CreateDate>2025-03-14T09:26:53Z</xmp:CreateDate>",
		} {
			if !strings.Contains(xmp, want) {
				t.Errorf("doc %d: XMP missing %q", i, want)
			}
		}

		wantKeys := []string{"Author", "CreationDate", "Keywords", "ModDate", "Producer", "Title"}
		if diff := cmp.Diff(wantKeys, doc.infoKeys); diff != "" {
			t.Errorf("doc %d: info keys mismatch (-want +got):\n%s", i, diff)
		}
		if doc.info["CreationDate"] != pdfa.FormatDate(testNow) || doc.info["Producer"] != pdfa.DefaultProducer {
			t.Errorf("doc %d: info = %v", i, doc.info)
		}
	}
}

func TestMerge_NoInvoiceNoXMP(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	att := testutil.WriteFile(t, dir, "data.json", []byte("{}"))
	src := testutil.WriteSized(t, dir, "a.pdf", 10)

	m, rec, _ := newTestMerger(t)
	_, err := m.Merge(context.Background(), Request{
		OutputPath:  filepath.Join(dir, "out"),
		InputFiles:  []string{src},
		Attachments: []Attachment{{Key: "data", FilePath: att}},
	})
	if err != nil {
		t.Fatalf("Merge() error = %v", err)
	}
	doc := rec.docs[0]
	if doc.xmp != nil {
		t.Error("XMP set without an invoice attachment")
	}
	if len(doc.files) != 1 || doc.files[0].Name != "data.json" {
		t.Errorf("files = %+v, want data.json named after its path", doc.files)
	}
	if diff := cmp.Diff([]string{"CreationDate", "ModDate", "Producer"}, doc.infoKeys); diff != "" {
		t.Errorf("info keys mismatch (-want +got):\n%s", diff)
	}
}

// ---------------------------------------------------------------------------
// TestMerge_Failures - Aborts and cleanup
// ---------------------------------------------------------------------------

func TestMerge_Failures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		configure  func(n int, d *mockDocument)
		synthErr   error
		wantErr    error
		wantClosed []bool // per opened document
	}{
		{
			name: "page copy failure in second document",
			configure: func(n int, d *mockDocument) {
				if n == 1 {
					d.appendErr = errors.New("broken xref")
				}
			},
			wantErr:    ErrPageCopy,
			wantClosed: []bool{true, false},
		},
		{
			name: "conformance failure on append",
			configure: func(n int, d *mockDocument) {
				d.appendErr = fmt.Errorf("%w: encrypted", pdfa.ErrConformance)
			},
			wantErr:    ErrConformance,
			wantClosed: []bool{false},
		},
		{
			name: "conformance failure at close",
			configure: func(n int, d *mockDocument) {
				d.closeErr = fmt.Errorf("%w: no output intent", pdfa.ErrConformance)
			},
			wantErr:    ErrConformance,
			wantClosed: []bool{true},
		},
		{
			name:       "decode failure",
			synthErr:   fmt.Errorf("%w: truncated", ErrDecode),
			wantErr:    ErrDecode,
			wantClosed: []bool{true, false},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			dir := t.TempDir()
			inputs := []string{
				testutil.WriteSized(t, dir, "a.pdf", 2*mb),
				testutil.WriteSized(t, dir, "b.png", 2*mb),
			}

			m, rec, synth := newTestMerger(t)
			rec.configure = tt.configure
			synth.err = tt.synthErr

			_, err := m.Merge(context.Background(), Request{
				OutputPath:    filepath.Join(dir, "out"),
				InputFiles:    inputs,
				MaxFileSizeMB: 3,
			})
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Merge() error = %v, want %v", err, tt.wantErr)
			}

			if len(rec.docs) != len(tt.wantClosed) {
				t.Fatalf("opened %d documents, want %d", len(rec.docs), len(tt.wantClosed))
			}
			for i, d := range rec.docs {
				if d.closed != tt.wantClosed[i] {
					t.Errorf("doc %d closed = %v, want %v", i, d.closed, tt.wantClosed[i])
				}
				if !d.closed && !d.aborted {
					t.Errorf("doc %d left open", i)
				}
			}
		})
	}
}

func TestMerge_OpenError(t *testing.T) {
	t.Parallel()

	src := testutil.WriteSized(t, t.TempDir(), "a.pdf", 10)
	m, rec, _ := newTestMerger(t)
	rec.openErr = errors.New("permission denied")

	_, err := m.Merge(context.Background(), Request{OutputPath: filepath.Join(t.TempDir(), "out"), InputFiles: []string{src}})
	if err == nil || !strings.Contains(err.Error(), "permission denied") {
		t.Errorf("error = %v, want open failure", err)
	}
}

func TestMerge_ContextCancelled(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	src := testutil.WriteSized(t, dir, "a.pdf", 10)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	m, rec, _ := newTestMerger(t)
	_, err := m.Merge(ctx, Request{OutputPath: filepath.Join(dir, "out"), InputFiles: []string{src}})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
	if len(rec.docs) != 0 {
		t.Errorf("%d documents opened after cancellation", len(rec.docs))
	}
}

func TestMerge_RecoversPanic(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	src := testutil.WriteSized(t, dir, "a.png", 10)

	m, rec, synth := newTestMerger(t)
	synth.panic = true

	_, err := m.Merge(context.Background(), Request{OutputPath: filepath.Join(dir, "out"), InputFiles: []string{src}})
	if err == nil || !strings.Contains(err.Error(), "internal error") {
		t.Fatalf("error = %v, want internal error", err)
	}
	if !rec.docs[0].aborted {
		t.Error("open document not aborted after panic")
	}
}

// ---------------------------------------------------------------------------
// TestNewMerger - Options
// ---------------------------------------------------------------------------

func TestNewMerger_Defaults(t *testing.T) {
	t.Parallel()

	m, err := NewMerger()
	if err != nil {
		t.Fatalf("NewMerger() error = %v", err)
	}
	if m.cfg.validation != ValidationRelaxed || m.cfg.layout != LayoutFit {
		t.Errorf("cfg = %+v", m.cfg)
	}
	if m.cfg.invoice != DefaultInvoiceProfile() {
		t.Errorf("invoice = %+v", m.cfg.invoice)
	}
	if m.open == nil || m.synth == nil || m.logger == nil {
		t.Error("collaborators not initialized")
	}
}

func TestNewMerger_ColorProfile(t *testing.T) {
	t.Parallel()

	if _, err := NewMerger(WithColorProfile(pdfa.DefaultColorProfile)); err != nil {
		t.Errorf("sRGB profile rejected: %v", err)
	}
	if _, err := NewMerger(WithColorProfile([]byte("not a profile"))); !errors.Is(err, ErrInvalidOption) {
		t.Errorf("error = %v, want ErrInvalidOption", err)
	}
}

func TestOptions_NormalizeCase(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		opts           []Option
		wantValidation Validation
		wantLayout     PageLayout
	}{
		{"lower case", []Option{WithValidation("strict"), WithPageLayout("full")}, ValidationStrict, LayoutFull},
		{"title case", []Option{WithValidation("Strict"), WithPageLayout("Full")}, ValidationStrict, LayoutFull},
		{"upper case", []Option{WithValidation("RELAXED"), WithPageLayout("FULL")}, ValidationRelaxed, LayoutFull},
		{"mixed fit", []Option{WithValidation("sTrIcT"), WithPageLayout("FiT")}, ValidationStrict, LayoutFit},
		{"empty", []Option{WithValidation(""), WithPageLayout("")}, ValidationRelaxed, LayoutFit},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			m, err := NewMerger(tt.opts...)
			if err != nil {
				t.Fatalf("NewMerger() error = %v", err)
			}
			if m.cfg.validation != tt.wantValidation {
				t.Errorf("validation = %q, want %q", m.cfg.validation, tt.wantValidation)
			}
			if m.cfg.layout != tt.wantLayout {
				t.Errorf("layout = %q, want %q", m.cfg.layout, tt.wantLayout)
			}
			synth, ok := m.synth.(*imageSynthesizer)
			if !ok {
				t.Fatalf("synth = %T, want *imageSynthesizer", m.synth)
			}
			if synth.layout != tt.wantLayout {
				t.Errorf("synthesizer layout = %q, want %q", synth.layout, tt.wantLayout)
			}
		})
	}
}

func TestOptions_PanicOnInvalid(t *testing.T) {
	t.Parallel()

	for name, fn := range map[string]func(){
		"validation": func() { WithValidation("pedantic") },
		"layout":     func() { WithPageLayout("tile") },
	} {
		t.Run(name, func(t *testing.T) {
			defer func() {
				if recover() == nil {
					t.Error("expected panic")
				}
			}()
			fn()
		})
	}
}
