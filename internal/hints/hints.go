// Package hints provides actionable error hints for common failure scenarios.
// Hints are formatted consistently as "\n  hint: <text>" for appending to error messages.
package hints

import (
	"strings"

	"github.com/alnah/go-pdfmerge/internal/fileutil"
)

// IsInContainer detects if running inside a Docker container or similar.
// Checks for /.dockerenv file which Docker creates automatically.
var IsInContainer = func() bool {
	return fileutil.FileExists("/.dockerenv")
}

// ForBrowserConnect returns hints for headless Chrome launch failures.
// getenv is usually os.Getenv.
func ForBrowserConnect(getenv func(string) string) string {
	var hints []string

	inCI := getenv("CI") != "" ||
		getenv("GITHUB_ACTIONS") != "" ||
		getenv("GITLAB_CI") != "" ||
		getenv("JENKINS_URL") != ""

	if (inCI || IsInContainer()) && getenv("ROD_NO_SANDBOX") != "1" {
		hints = append(hints, "set ROD_NO_SANDBOX=1 for Docker/CI")
	}
	if getenv("ROD_BROWSER_BIN") == "" {
		hints = append(hints, "set ROD_BROWSER_BIN to use an installed Chrome")
	}

	return formatHints(hints)
}

// ForRenderTimeout returns a hint about raising the Markdown render timeout.
func ForRenderTimeout() string {
	return format("for long Markdown files, use --render-timeout")
}

// ForConfigNotFound returns hints for config file not found errors.
func ForConfigNotFound() string {
	return format("use --config /path/to/file.yaml or set PDFMERGE_CONFIG")
}

// ForSourceNotFound returns a hint about the source list syntax.
func ForSourceNotFound() string {
	return format("separate source files with ';' and quote the list")
}

// ForColorProfile returns a hint for unusable ICC profiles.
func ForColorProfile() string {
	return format("the output intent needs an RGB profile such as sRGB IEC61966-2.1")
}

// ForConformance returns a hint for PDF sources rejected by validation.
func ForConformance(strict bool) string {
	if strict {
		return format("try --validation relaxed, or repair the source PDF")
	}
	return format("the source PDF is damaged; re-export it before merging")
}

// format creates a single hint string with consistent formatting.
func format(hint string) string {
	if hint == "" {
		return ""
	}
	return "\n  hint: " + hint
}

// formatHints joins multiple hints with consistent formatting.
func formatHints(hints []string) string {
	if len(hints) == 0 {
		return ""
	}
	return format(strings.Join(hints, "; "))
}
