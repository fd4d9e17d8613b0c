// Package fileutil provides file and path utility functions.
package fileutil

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Sentinel errors for file utility operations.
var (
	ErrExtensionEmpty         = errors.New("extension cannot be empty")
	ErrExtensionPathTraversal = errors.New("extension contains path separator or null byte")
)

// PDFExtension is the suffix every output document carries.
const PDFExtension = ".pdf"

// TimestampLayout names output files when the caller gives no output path.
const TimestampLayout = "2006-01-02-15-04-05-0700"

// dirPermissions is rwxr-x---: owner full, group read+execute.
const dirPermissions = 0o750

// WriteTempFile creates a temporary file with the given content and extension.
// Returns the file path and a cleanup function to remove the file.
func WriteTempFile(content, extension string) (path string, cleanup func(), err error) {
	if err := ValidateExtension(extension); err != nil {
		return "", nil, err
	}

	tmpFile, err := os.CreateTemp("", "pdfmerge-*."+extension)
	if err != nil {
		return "", nil, fmt.Errorf("creating temp file: %w", err)
	}

	path = tmpFile.Name()
	cleanup = func() { _ = os.Remove(path) }

	if _, writeErr := tmpFile.WriteString(content); writeErr != nil {
		_ = tmpFile.Close()
		cleanup()
		return "", nil, fmt.Errorf("writing temp file: %w", writeErr)
	}

	if closeErr := tmpFile.Close(); closeErr != nil {
		cleanup()
		return "", nil, fmt.Errorf("closing temp file: %w", closeErr)
	}

	return path, cleanup, nil
}

// ValidateExtension checks that the extension is safe for use in temp file names.
func ValidateExtension(extension string) error {
	if extension == "" {
		return ErrExtensionEmpty
	}
	if strings.ContainsAny(extension, "/\\\x00") {
		return ErrExtensionPathTraversal
	}
	return nil
}

// FileExists returns true if the path exists and is a regular file.
func FileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

// IsBlank reports whether s is empty or only whitespace.
func IsBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}

// NormalizePDFPath appends ".pdf" unless path already ends with it.
// The comparison ignores case, so "OUT.PDF" is kept as is.
func NormalizePDFPath(path string) string {
	if strings.HasSuffix(strings.ToLower(path), PDFExtension) {
		return path
	}
	return path + PDFExtension
}

// DefaultOutputName derives an output file name from t.
func DefaultOutputName(t time.Time) string {
	return t.Format(TimestampLayout) + PDFExtension
}

// NumberedPath returns the overflow name for the n-th output document.
// The extension after the last dot is dropped and "-<n>.pdf" appended:
//
//	NumberedPath("out/doc.pdf", 2) -> "out/doc-2.pdf"
func NumberedPath(path string, n int) string {
	base := path
	if i := strings.LastIndex(path, "."); i >= 0 {
		base = path[:i]
	}
	return base + "-" + strconv.Itoa(n) + PDFExtension
}

// EnsureParentDir creates the directory that will hold path.
// Paths without a directory component are left alone.
func EnsureParentDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, dirPermissions); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	return nil
}
