package main

import (
	"io"
	"os"
	"time"

	pdfmerge "github.com/alnah/go-pdfmerge"
)

// Environment holds injectable dependencies for testability.
// Includes I/O, time, process environment and the Markdown renderer factory.
type Environment struct {
	Now         func() time.Time
	Stdout      io.Writer
	Stderr      io.Writer
	Getenv      func(string) string
	Environ     func() []string
	NewRenderer func(timeout time.Duration) pdfmerge.MarkdownRenderer
}

// DefaultEnv returns the production environment.
func DefaultEnv() *Environment {
	return &Environment{
		Now:         time.Now,
		Stdout:      os.Stdout,
		Stderr:      os.Stderr,
		Getenv:      os.Getenv,
		Environ:     os.Environ,
		NewRenderer: pdfmerge.NewMarkdownRenderer,
	}
}
