package main

import (
	"io"
	"strings"

	flag "github.com/spf13/pflag"
)

// commonFlags holds flags that do not feed the merge itself.
type commonFlags struct {
	config  string
	quiet   bool
	verbose bool
	version bool
}

// ioFlags holds sources, destination and size budget.
type ioFlags struct {
	sources   []string // Each value may hold several paths separated by ';'
	dst       string
	zfxml     string
	maxSizeMB float64
	maxSizeOK bool // --max-size-mb was given
}

// metadataFlags holds document information dictionary entries.
type metadataFlags struct {
	title    string
	author   string
	subject  string
	keywords string
	creator  string
	producer string
}

// documentFlags holds conformance and page settings.
type documentFlags struct {
	iccProfile    string
	validation    string
	pageLayout    string
	markdown      bool
	renderTimeout string
}

// runFlags holds every flag of the pdfmerge command.
type runFlags struct {
	common   commonFlags
	io       ioFlags
	metadata metadataFlags
	document documentFlags
}

// addCommonFlags adds common flags to a FlagSet.
func addCommonFlags(fs *flag.FlagSet, f *commonFlags) {
	fs.StringVarP(&f.config, "config", "c", "", "config file name or path (YAML or JSON)")
	fs.BoolVarP(&f.quiet, "quiet", "q", false, "only show errors")
	fs.BoolVarP(&f.verbose, "verbose", "v", false, "log every source file")
	fs.BoolVar(&f.version, "version", false, "print version and exit")
}

// addIOFlags adds source and destination flags to a FlagSet.
func addIOFlags(fs *flag.FlagSet, f *ioFlags) {
	fs.StringArrayVarP(&f.sources, "src", "s", nil, "source files separated by ';' (pdf, jpg, png, gif, bmp, tif)")
	fs.StringVarP(&f.dst, "dst", "d", "", "destination PDF file")
	fs.StringVarP(&f.zfxml, "zfxml", "z", "", "ZUGFeRD/Factur-X invoice XML to embed")
	fs.Float64VarP(&f.maxSizeMB, "max-size-mb", "m", 0, "start a new output file past this many MB of input (<= 0 = unbounded)")
}

// addMetadataFlags adds document information flags to a FlagSet.
func addMetadataFlags(fs *flag.FlagSet, f *metadataFlags) {
	fs.StringVar(&f.title, "title", "", "metadata title")
	fs.StringVar(&f.author, "author", "", "metadata author")
	fs.StringVar(&f.subject, "subject", "", "metadata subject")
	fs.StringVar(&f.keywords, "keywords", "", "metadata keywords")
	fs.StringVar(&f.creator, "creator", "", "metadata creator")
	fs.StringVar(&f.producer, "producer", "", "metadata producer")
}

// addDocumentFlags adds conformance and layout flags to a FlagSet.
func addDocumentFlags(fs *flag.FlagSet, f *documentFlags) {
	fs.StringVar(&f.iccProfile, "icc-profile", "", "RGB ICC profile for the output intent (default: sRGB)")
	fs.StringVar(&f.validation, "validation", "", "PDF source validation: relaxed, strict")
	fs.StringVar(&f.pageLayout, "page-layout", "", "image placement: fit, full")
	fs.BoolVar(&f.markdown, "markdown", false, "render .md sources through headless Chrome")
	fs.StringVar(&f.renderTimeout, "render-timeout", "", "Markdown render timeout (e.g., 30s, 2m)")
}

// parseFlags parses command flags and returns positional args.
// Errors and help requests are returned to the caller, which prints usage.
func parseFlags(args []string) (*runFlags, []string, error) {
	fs := flag.NewFlagSet("pdfmerge", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.Usage = func() {}
	f := &runFlags{}

	addCommonFlags(fs, &f.common)
	addIOFlags(fs, &f.io)
	addMetadataFlags(fs, &f.metadata)
	addDocumentFlags(fs, &f.document)

	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}
	f.io.maxSizeOK = fs.Changed("max-size-mb")

	return f, fs.Args(), nil
}

// splitSources expands ';'-separated source lists and drops blank entries.
func splitSources(values []string) []string {
	var out []string
	for _, v := range values {
		for _, p := range strings.Split(v, ";") {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}
