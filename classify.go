package pdfmerge

import (
	"path/filepath"
	"strings"
)

// Strategy is the way a source file is turned into pages.
type Strategy int

// Ingestion strategies.
const (
	StrategySkip   Strategy = iota // unrecognized; contributes no pages
	StrategyCopy                   // PDF: copy every page
	StrategyImage                  // raster image: one synthesized page
	StrategyFrames                 // multi-frame raster: one page per frame
	StrategyRender                 // Markdown: rendered to PDF, then copied
)

var strategyNames = [...]string{"skip", "copy", "image", "frames", "render"}

func (s Strategy) String() string {
	if s < 0 || int(s) >= len(strategyNames) {
		return "unknown"
	}
	return strategyNames[s]
}

var extensionStrategies = map[string]Strategy{
	".pdf":  StrategyCopy,
	".jpeg": StrategyImage,
	".jpg":  StrategyImage,
	".png":  StrategyImage,
	".gif":  StrategyImage,
	".bmp":  StrategyImage,
	".tif":  StrategyFrames,
	".tiff": StrategyFrames,
}

var markdownExtensions = map[string]bool{
	".md":       true,
	".markdown": true,
}

// Classify picks the ingestion strategy for path from its extension,
// ignoring case. Unrecognized extensions yield StrategySkip. Markdown is
// only recognized by a Merger configured with a renderer.
func Classify(path string) Strategy {
	return extensionStrategies[strings.ToLower(filepath.Ext(path))]
}

// classify extends Classify with Markdown when rendering is enabled.
func (m *Merger) classify(path string) Strategy {
	s := Classify(path)
	if s == StrategySkip && m.markdown != nil && markdownExtensions[strings.ToLower(filepath.Ext(path))] {
		return StrategyRender
	}
	return s
}
