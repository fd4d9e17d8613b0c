// Package testutil writes source fixtures for tests: raster images,
// multi-page TIFF files, small PDFs and files of an exact size.
package testutil

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/color"
	"image/gif"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"golang.org/x/image/bmp"
)

func init() {
	// Keep pdfcpu from creating a user config directory during tests.
	api.DisableConfigDir()
}

// Gradient returns a w x h RGBA image with a horizontal gradient.
func Gradient(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 255 / max(w, 1)), G: uint8(y * 255 / max(h, 1)), B: 128, A: 255})
		}
	}
	return img
}

// PNGBytes encodes a gradient of the given size as PNG.
func PNGBytes(tb testing.TB, w, h int) []byte {
	tb.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, Gradient(w, h)); err != nil {
		tb.Fatalf("encoding PNG: %v", err)
	}
	return buf.Bytes()
}

// WritePNG writes a w x h PNG image to dir/name and returns its path.
func WritePNG(tb testing.TB, dir, name string, w, h int) string {
	tb.Helper()
	return WriteFile(tb, dir, name, PNGBytes(tb, w, h))
}

// WriteGIF writes a w x h GIF image to dir/name and returns its path.
func WriteGIF(tb testing.TB, dir, name string, w, h int) string {
	tb.Helper()
	var buf bytes.Buffer
	if err := gif.Encode(&buf, Gradient(w, h), nil); err != nil {
		tb.Fatalf("encoding GIF: %v", err)
	}
	return WriteFile(tb, dir, name, buf.Bytes())
}

// WriteBMP writes a w x h BMP image to dir/name and returns its path.
func WriteBMP(tb testing.TB, dir, name string, w, h int) string {
	tb.Helper()
	var buf bytes.Buffer
	if err := bmp.Encode(&buf, Gradient(w, h)); err != nil {
		tb.Fatalf("encoding BMP: %v", err)
	}
	return WriteFile(tb, dir, name, buf.Bytes())
}

// TIFFPages builds an uncompressed little-endian grayscale TIFF with one
// page per width. Every page is h pixels high and filled with a shade
// derived from its index, so frame order shows in both size and pixel value.
func TIFFPages(widths []int, h int) []byte {
	const (
		typeShort = 3
		typeLong  = 4
		entries   = 9
		ifdSize   = 2 + entries*12 + 4
	)

	le := binary.LittleEndian
	buf := []byte{'I', 'I', 42, 0, 0, 0, 0, 0}
	nextPtr := 4 // where the pointer to the following IFD is stored

	for i, w := range widths {
		stripOff := len(buf)
		buf = append(buf, bytes.Repeat([]byte{byte(i * 40)}, w*h)...)
		if len(buf)%2 == 1 {
			buf = append(buf, 0)
		}

		ifdOff := len(buf)
		le.PutUint32(buf[nextPtr:], uint32(ifdOff))

		ifd := make([]byte, ifdSize)
		le.PutUint16(ifd[0:], entries)
		put := func(n int, tag, typ uint16, val uint32) {
			e := ifd[2+n*12:]
			le.PutUint16(e[0:], tag)
			le.PutUint16(e[2:], typ)
			le.PutUint32(e[4:], 1)
			le.PutUint32(e[8:], val)
		}
		put(0, 256, typeShort, uint32(w))       // ImageWidth
		put(1, 257, typeShort, uint32(h))       // ImageLength
		put(2, 258, typeShort, 8)               // BitsPerSample
		put(3, 259, typeShort, 1)               // Compression: none
		put(4, 262, typeShort, 1)               // PhotometricInterpretation: BlackIsZero
		put(5, 273, typeLong, uint32(stripOff)) // StripOffsets
		put(6, 277, typeShort, 1)               // SamplesPerPixel
		put(7, 278, typeShort, uint32(h))       // RowsPerStrip
		put(8, 279, typeLong, uint32(w*h))      // StripByteCounts

		buf = append(buf, ifd...)
		nextPtr = ifdOff + ifdSize - 4
	}
	return buf
}

// WriteTIFF writes a multi-page TIFF (see TIFFPages) and returns its path.
func WriteTIFF(tb testing.TB, dir, name string, widths []int, h int) string {
	tb.Helper()
	return WriteFile(tb, dir, name, TIFFPages(widths, h))
}

// PDFBytes builds a PDF with the given number of pages, one image per page.
func PDFBytes(tb testing.TB, pages int) []byte {
	tb.Helper()
	imgs := make([]io.Reader, pages)
	for i := range imgs {
		imgs[i] = bytes.NewReader(PNGBytes(tb, 20+10*i, 20))
	}
	var buf bytes.Buffer
	if err := api.ImportImages(nil, &buf, imgs, pdfcpu.DefaultImportConfig(), nil); err != nil {
		tb.Fatalf("building PDF fixture: %v", err)
	}
	return buf.Bytes()
}

// WritePDF writes a PDF with the given number of pages and returns its path.
func WritePDF(tb testing.TB, dir, name string, pages int) string {
	tb.Helper()
	return WriteFile(tb, dir, name, PDFBytes(tb, pages))
}

// WriteSized writes a file of exactly size bytes. The file is sparse where
// the platform allows it, so megabyte-sized fixtures stay cheap.
func WriteSized(tb testing.TB, dir, name string, size int64) string {
	tb.Helper()
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		tb.Fatalf("creating %s: %v", name, err)
	}
	defer f.Close()
	if err := f.Truncate(size); err != nil {
		tb.Fatalf("sizing %s: %v", name, err)
	}
	return path
}

// WriteFile writes data to dir/name and returns the path.
func WriteFile(tb testing.TB, dir, name string, data []byte) string {
	tb.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		tb.Fatalf("writing %s: %v", name, err)
	}
	return path
}
