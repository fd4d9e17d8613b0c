package main

import (
	"fmt"
	"io"
)

// printUsage prints the command usage.
func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: pdfmerge -s <files> -d <output.pdf> [flags] [files...]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Merge PDF and image files into PDF/A-3b documents, optionally")
	fmt.Fprintln(w, "embedding a ZUGFeRD/Factur-X invoice.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Input/Output:")
	fmt.Fprintln(w, "  -s, --src <list>          Source files separated by ';' (repeatable)")
	fmt.Fprintln(w, "  -d, --dst <path>          Destination PDF; overflow files get -2, -3, ...")
	fmt.Fprintln(w, "  -z, --zfxml <path>        Invoice XML embedded as factur-x.xml")
	fmt.Fprintln(w, "  -m, --max-size-mb <f>     Input MB per output file (<= 0 = unbounded)")
	fmt.Fprintln(w, "  -c, --config <name>       Config file name or path (YAML or JSON)")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Metadata:")
	fmt.Fprintln(w, "      --title <s>           Document title")
	fmt.Fprintln(w, "      --author <s>          Document author")
	fmt.Fprintln(w, "      --subject <s>         Document subject")
	fmt.Fprintln(w, "      --keywords <s>        Document keywords")
	fmt.Fprintln(w, "      --creator <s>         Creating application")
	fmt.Fprintln(w, "      --producer <s>        Producing application")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Document:")
	fmt.Fprintln(w, "      --icc-profile <path>  RGB ICC profile for the output intent")
	fmt.Fprintln(w, "      --validation <s>      PDF source validation: relaxed, strict")
	fmt.Fprintln(w, "      --page-layout <s>     Image placement: fit, full")
	fmt.Fprintln(w, "      --markdown            Render .md sources through headless Chrome")
	fmt.Fprintln(w, "      --render-timeout <d>  Markdown render timeout (e.g., 30s, 2m)")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Output:")
	fmt.Fprintln(w, "  -q, --quiet               Only show errors")
	fmt.Fprintln(w, "  -v, --verbose             Log every source file")
	fmt.Fprintln(w, "      --version             Print version and exit")
	fmt.Fprintln(w, "  -h, --help                Show this help")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Environment:")
	fmt.Fprintln(w, "  PDFMERGE_CONFIG, PDFMERGE_OUTPUT, PDFMERGE_MAX_SIZE_MB,")
	fmt.Fprintln(w, "  PDFMERGE_ICC_PROFILE, PDFMERGE_RENDER_TIMEOUT")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Exit codes:")
	fmt.Fprintln(w, "  0 success, 1 general, 2 usage, 3 I/O, 4 decode, 5 conformance")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Example:")
	fmt.Fprintln(w, `  pdfmerge -s "invoice.pdf;scan.tif" -z zugferd.xml -d out.pdf -m 20`)
}
