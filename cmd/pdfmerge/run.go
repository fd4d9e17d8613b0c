package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	flag "github.com/spf13/pflag"

	pdfmerge "github.com/alnah/go-pdfmerge"
	"github.com/alnah/go-pdfmerge/internal/config"
	"github.com/alnah/go-pdfmerge/internal/hints"
	"github.com/alnah/go-pdfmerge/internal/pdfa"
	"github.com/alnah/go-pdfmerge/internal/render"
)

// Sentinel errors for the command line.
var (
	ErrMissingArgs    = errors.New("source files and destination are required")
	ErrInvalidTimeout = errors.New("invalid render timeout")
)

// Invoice attachment added by --zfxml.
const (
	invoiceFilename    = "factur-x.xml"
	invoiceDescription = "factur-x"
)

// run executes one merge and returns the exit code.
func run(ctx context.Context, args []string, env *Environment) int {
	flags, positional, err := parseFlags(args)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			printUsage(env.Stdout)
			return ExitSuccess
		}
		fmt.Fprintln(env.Stderr, "error:", err)
		printUsage(env.Stderr)
		return ExitUsage
	}

	if flags.common.version {
		fmt.Fprintf(env.Stdout, "pdfmerge %s\n", Version)
		return ExitSuccess
	}

	logger := newLogger(env.Stderr, flags.common)
	warnUnknownEnvVars(logger, env.Environ())

	start := env.Now()
	res, cfg, err := runMerge(ctx, positional, flags, env, logger)
	if err != nil {
		fmt.Fprintf(env.Stderr, "error: %v%s\n", err, errorHint(err, cfg, env.Getenv))
		if errors.Is(err, ErrMissingArgs) {
			printUsage(env.Stderr)
		}
		return exitCodeFor(err)
	}

	printResult(env.Stdout, res, flags.common, env.Now().Sub(start))
	return ExitSuccess
}

// newLogger builds the stderr logger. Verbose logs every source file.
func newLogger(w io.Writer, f commonFlags) *slog.Logger {
	level := slog.LevelInfo
	switch {
	case f.verbose:
		level = slog.LevelDebug
	case f.quiet:
		level = slog.LevelError
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// runMerge resolves the configuration and performs the merge.
// The resolved configuration is returned once loading succeeded.
func runMerge(ctx context.Context, positional []string, flags *runFlags, env *Environment, logger *slog.Logger) (*pdfmerge.Result, *config.Config, error) {
	envCfg := loadEnvConfig(env.Getenv)

	// Load configuration
	cfg := config.DefaultConfig()
	configPath := flags.common.config
	if configPath == "" {
		configPath = envCfg.ConfigPath
	}
	if configPath != "" {
		loaded, err := config.LoadConfig(configPath)
		if err != nil {
			return nil, nil, fmt.Errorf("loading config: %w", err)
		}
		cfg = loaded
	}

	// Environment fills gaps, CLI flags win
	applyEnvConfig(envCfg, cfg)
	mergeFlags(flags, positional, cfg)
	if err := cfg.Validate(); err != nil {
		return nil, cfg, err
	}
	if !hasInput(cfg.InputFiles) || strings.TrimSpace(cfg.OutputPath) == "" {
		return nil, cfg, ErrMissingArgs
	}

	timeout, err := resolveTimeout(flags.document.renderTimeout, envCfg)
	if err != nil {
		return nil, cfg, err
	}

	opts, closeFn, err := buildOptions(cfg, timeout, env, logger)
	if err != nil {
		return nil, cfg, err
	}
	defer closeFn()

	merger, err := pdfmerge.NewMerger(opts...)
	if err != nil {
		return nil, cfg, err
	}
	res, err := merger.Merge(ctx, buildRequest(cfg))
	return res, cfg, err
}

// mergeFlags merges CLI flags into config. CLI values override config values.
func mergeFlags(flags *runFlags, positional []string, cfg *config.Config) {
	// Sources: -s lists first, then positional arguments
	if inputs := append(splitSources(flags.io.sources), positional...); len(inputs) > 0 {
		cfg.InputFiles = inputs
	}
	if flags.io.dst != "" {
		cfg.OutputPath = flags.io.dst
	}
	if flags.io.maxSizeOK {
		cfg.MaxFileSizeMB = flags.io.maxSizeMB
	}
	if flags.io.zfxml != "" {
		setInvoiceAttachment(cfg, flags.io.zfxml)
	}

	// Metadata flags
	if cfg.Metadata == nil {
		cfg.Metadata = make(map[string]string)
	}
	for key, value := range map[string]string{
		"Title":    flags.metadata.title,
		"Author":   flags.metadata.author,
		"Subject":  flags.metadata.subject,
		"Keywords": flags.metadata.keywords,
		"Creator":  flags.metadata.creator,
		"Producer": flags.metadata.producer,
	} {
		if value != "" {
			cfg.Metadata[key] = value
		}
	}

	// Document flags
	if flags.document.iccProfile != "" {
		cfg.ColorProfile = flags.document.iccProfile
	}
	if flags.document.validation != "" {
		cfg.Validation = flags.document.validation
	}
	if flags.document.pageLayout != "" {
		cfg.PageLayout = flags.document.pageLayout
	}
	if flags.document.markdown {
		cfg.Markdown = true
	}
}

// errorHint suggests a fix for common failures. cfg may be nil.
func errorHint(err error, cfg *config.Config, getenv func(string) string) string {
	switch {
	case errors.Is(err, render.ErrBrowserConnect):
		return hints.ForBrowserConnect(getenv)
	case errors.Is(err, render.ErrPageLoad):
		return hints.ForRenderTimeout()
	case errors.Is(err, config.ErrConfigNotFound):
		return hints.ForConfigNotFound()
	case errors.Is(err, pdfmerge.ErrSourceNotFound):
		return hints.ForSourceNotFound()
	case errors.Is(err, pdfa.ErrColorProfile) && !errors.Is(err, os.ErrNotExist):
		return hints.ForColorProfile()
	case errors.Is(err, pdfmerge.ErrConformance):
		return hints.ForConformance(cfg != nil && strings.EqualFold(cfg.Validation, "strict"))
	}
	return ""
}

// setInvoiceAttachment replaces a configured invoice attachment or adds one.
func setInvoiceAttachment(cfg *config.Config, path string) {
	a := config.Attachment{
		Key:         pdfmerge.InvoiceKey,
		FilePath:    path,
		Filename:    invoiceFilename,
		Description: invoiceDescription,
	}
	for i := range cfg.Attachments {
		if cfg.Attachments[i].Key == pdfmerge.InvoiceKey {
			cfg.Attachments[i] = a
			return
		}
	}
	cfg.Attachments = append(cfg.Attachments, a)
}

func hasInput(files []string) bool {
	for _, f := range files {
		if strings.TrimSpace(f) != "" {
			return true
		}
	}
	return false
}

// resolveTimeout returns the Markdown render timeout.
// Priority: --render-timeout flag, then PDFMERGE_RENDER_TIMEOUT, then the renderer default.
func resolveTimeout(flagValue string, env *envConfig) (time.Duration, error) {
	if flagValue == "" {
		return env.RenderTimeout, nil
	}
	d, err := time.ParseDuration(flagValue)
	if err != nil {
		return 0, fmt.Errorf("%w: %q: %v", ErrInvalidTimeout, flagValue, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%w: %q must be positive", ErrInvalidTimeout, flagValue)
	}
	return d, nil
}

// buildOptions translates the configuration into merger options.
// The returned close function releases the Markdown renderer, if any.
func buildOptions(cfg *config.Config, timeout time.Duration, env *Environment, logger *slog.Logger) ([]pdfmerge.Option, func(), error) {
	validation, err := pdfmerge.ParseValidation(cfg.Validation)
	if err != nil {
		return nil, nil, err
	}
	layout, err := pdfmerge.ParsePageLayout(cfg.PageLayout)
	if err != nil {
		return nil, nil, err
	}

	opts := []pdfmerge.Option{
		pdfmerge.WithLogger(logger),
		pdfmerge.WithValidation(validation),
		pdfmerge.WithPageLayout(layout),
		pdfmerge.WithInvoiceProfile(pdfmerge.InvoiceProfile{
			ConformanceLevel: cfg.Invoice.ConformanceLevel,
			DocumentType:     cfg.Invoice.DocumentType,
			Version:          cfg.Invoice.Version,
		}),
	}

	if cfg.ColorProfile != "" {
		profile, err := pdfa.LoadColorProfile(cfg.ColorProfile)
		if err != nil {
			return nil, nil, err
		}
		opts = append(opts, pdfmerge.WithColorProfile(profile))
	}

	closeFn := func() {}
	if cfg.Markdown {
		r := env.NewRenderer(timeout)
		opts = append(opts, pdfmerge.WithMarkdownRenderer(r))
		closeFn = func() {
			if err := r.Close(); err != nil {
				logger.Warn("closing markdown renderer", "error", err)
			}
		}
	}

	return opts, closeFn, nil
}

// buildRequest converts the configuration into a merge request.
func buildRequest(cfg *config.Config) pdfmerge.Request {
	req := pdfmerge.Request{
		OutputPath:    cfg.OutputPath,
		InputFiles:    cfg.InputFiles,
		MaxFileSizeMB: cfg.MaxFileSizeMB,
		Metadata:      cfg.Metadata,
	}
	for _, a := range cfg.Attachments {
		req.Attachments = append(req.Attachments, pdfmerge.Attachment{
			Key:         a.Key,
			FilePath:    a.FilePath,
			Filename:    a.Filename,
			Description: a.Description,
			MIMEType:    a.MIMEType,
		})
	}
	return req
}

// printResult writes one line per output document.
func printResult(w io.Writer, res *pdfmerge.Result, f commonFlags, elapsed time.Duration) {
	if f.quiet {
		return
	}
	for _, d := range res.Documents {
		fmt.Fprintf(w, "%s: %d page(s) from %d source(s)\n", filepath.Clean(d.Path), d.Pages, len(d.Sources))
	}
	if f.verbose {
		fmt.Fprintf(w, "%d document(s), %d page(s) in %v\n", len(res.Documents), res.Pages(), elapsed.Round(time.Millisecond))
	}
}
