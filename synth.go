package pdfmerge

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"github.com/alnah/go-pdfmerge/internal/raster"
)

// pageSynthesizer turns a raster source into a transient PDF holding one
// page per image frame.
type pageSynthesizer interface {
	Synthesize(ctx context.Context, path string, s Strategy) ([]byte, error)
}

// imageSynthesizer places images on pages with pdfcpu's image import.
type imageSynthesizer struct {
	layout PageLayout
	conf   *model.Configuration
}

func newImageSynthesizer(layout PageLayout) *imageSynthesizer {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return &imageSynthesizer{layout: layout, conf: conf}
}

// Synthesize decodes the source at path and returns a PDF with its pages
// in frame order. Any decoding failure is returned as ErrDecode.
func (s *imageSynthesizer) Synthesize(ctx context.Context, path string, strategy Strategy) ([]byte, error) {
	var (
		images [][]byte
		err    error
	)
	switch strategy {
	case StrategyImage:
		images, err = singleImage(path)
	case StrategyFrames:
		images, err = frameImages(ctx, path)
	default:
		return nil, fmt.Errorf("%w: cannot synthesize pages for strategy %s", ErrPageCopy, strategy)
	}
	if err != nil {
		return nil, err
	}

	readers := make([]io.Reader, len(images))
	for i, img := range images {
		readers[i] = bytes.NewReader(img)
	}

	var buf bytes.Buffer
	if err := api.ImportImages(nil, &buf, readers, s.importConfig(), s.conf); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrDecode, path, err)
	}
	return buf.Bytes(), nil
}

func (s *imageSynthesizer) importConfig() *pdfcpu.Import {
	imp := pdfcpu.DefaultImportConfig()
	if s.layout == LayoutFull {
		imp.Pos = types.Full
		return imp
	}
	imp.Pos = types.Center
	imp.Scale = 1.0
	imp.ScaleAbs = false
	return imp
}

// singleImage returns the one page image of a single-frame source. JPEG
// data is kept as is; other formats are transcoded to PNG, which the
// importer reads losslessly.
func singleImage(path string) ([][]byte, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path comes from the merge request
	if err != nil {
		return nil, err
	}
	img, format, err := raster.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrDecode, path, err)
	}
	if format == "jpeg" {
		return [][]byte{data}, nil
	}
	png, err := raster.EncodePNG(img)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrDecode, path, err)
	}
	return [][]byte{png}, nil
}

// frameImages decodes every frame of a multi-page TIFF.
func frameImages(ctx context.Context, path string) ([][]byte, error) {
	frames, err := raster.FramesFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	out := make([][]byte, 0, len(frames))
	for i, frame := range frames {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		png, err := raster.EncodePNG(frame)
		if err != nil {
			return nil, fmt.Errorf("%w: %s frame %d: %v", ErrDecode, path, i+1, err)
		}
		out = append(out, png)
	}
	return out, nil
}
