// Package raster decodes source images into frames ready for page synthesis.
//
// Single-frame formats (JPEG, PNG, GIF, BMP) decode to one image. TIFF files
// may hold several pages; Frames walks the IFD chain and decodes each page in
// file order.
package raster

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // register GIF decoder
	_ "image/jpeg" // register JPEG decoder
	"image/png"
	"io"
	"os"

	_ "golang.org/x/image/bmp" // register BMP decoder
	"golang.org/x/image/tiff"
)

// Sentinel errors for raster decoding.
var (
	ErrDecode          = errors.New("image decoding failed")
	ErrNoFrames        = errors.New("image contains no frames")
	ErrUnsupportedTIFF = errors.New("unsupported TIFF layout")
)

// tiffHeaderSize covers byte order, magic number and first IFD offset.
const tiffHeaderSize = 8

// Decode decodes the first frame of an image in any registered format.
// Returns the format name reported by the image package.
func Decode(r io.Reader) (image.Image, string, error) {
	img, format, err := image.Decode(r)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return img, format, nil
}

// FramesFile reads a multi-page TIFF from path and decodes all of its frames.
func FramesFile(path string) ([]image.Image, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path comes from the merge request
	if err != nil {
		return nil, err
	}
	frames, err := Frames(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return frames, nil
}

// Frames decodes every page of a TIFF file, preserving page order.
// Any frame that fails to decode fails the whole call.
func Frames(data []byte) ([]image.Image, error) {
	order, offsets, err := ifdOffsets(data)
	if err != nil {
		return nil, err
	}

	frames := make([]image.Image, 0, len(offsets))
	for i, off := range offsets {
		img, err := tiff.Decode(newFrameReader(data, order, off))
		if err != nil {
			return nil, fmt.Errorf("%w: frame %d: %v", ErrDecode, i+1, err)
		}
		frames = append(frames, img)
	}
	return frames, nil
}

// ifdOffsets walks the main IFD chain and returns the offset of every IFD.
// BigTIFF is rejected; so are chains that loop or point outside the file.
func ifdOffsets(data []byte) (binary.ByteOrder, []uint32, error) {
	if len(data) < tiffHeaderSize {
		return nil, nil, fmt.Errorf("%w: short header", ErrUnsupportedTIFF)
	}

	var order binary.ByteOrder
	switch string(data[:2]) {
	case "II":
		order = binary.LittleEndian
	case "MM":
		order = binary.BigEndian
	default:
		return nil, nil, fmt.Errorf("%w: bad byte order mark %q", ErrUnsupportedTIFF, data[:2])
	}

	switch magic := order.Uint16(data[2:4]); magic {
	case 42:
	case 43:
		return nil, nil, fmt.Errorf("%w: BigTIFF", ErrUnsupportedTIFF)
	default:
		return nil, nil, fmt.Errorf("%w: bad magic number %d", ErrUnsupportedTIFF, magic)
	}

	size := int64(len(data))
	seen := make(map[uint32]bool)
	var offsets []uint32

	for off := order.Uint32(data[4:8]); off != 0; {
		if seen[off] {
			return nil, nil, fmt.Errorf("%w: IFD chain loops at offset %d", ErrUnsupportedTIFF, off)
		}
		seen[off] = true

		start := int64(off)
		if start+2 > size {
			return nil, nil, fmt.Errorf("%w: IFD offset %d out of range", ErrUnsupportedTIFF, off)
		}
		entries := int64(order.Uint16(data[start : start+2]))
		next := start + 2 + 12*entries
		if next+4 > size {
			return nil, nil, fmt.Errorf("%w: truncated IFD at offset %d", ErrUnsupportedTIFF, off)
		}

		offsets = append(offsets, off)
		off = order.Uint32(data[next : next+4])
	}

	if len(offsets) == 0 {
		return nil, nil, ErrNoFrames
	}
	return order, offsets, nil
}

// frameReader presents the TIFF data with the header's first-IFD pointer
// replaced, so a single-image decoder sees the selected page as page one.
// Strip and tile offsets in a TIFF are absolute, so nothing else moves.
type frameReader struct {
	*bytes.Reader
	header [tiffHeaderSize]byte
}

func newFrameReader(data []byte, order binary.ByteOrder, ifd uint32) *frameReader {
	fr := &frameReader{Reader: bytes.NewReader(data)}
	copy(fr.header[:], data[:tiffHeaderSize])
	order.PutUint32(fr.header[4:8], ifd)
	return fr
}

// ReadAt implements io.ReaderAt with the patched header overlaid.
func (fr *frameReader) ReadAt(p []byte, off int64) (int, error) {
	n, err := fr.Reader.ReadAt(p, off)
	for i := 0; i < n && off+int64(i) < tiffHeaderSize; i++ {
		p[i] = fr.header[off+int64(i)]
	}
	return n, err
}

// EncodePNG serializes img losslessly for handing to the PDF image importer.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encoding PNG: %w", err)
	}
	return buf.Bytes(), nil
}
