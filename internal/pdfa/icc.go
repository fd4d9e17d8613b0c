package pdfa

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"

	"seehuhn.de/go/icc"
)

// DefaultColorProfile is the sRGB IEC61966-2.1 profile used for the output
// intent when no profile file is configured. It is an ICC v2 display
// profile with D50 primaries and a sampled sRGB tone curve.
//
//go:embed icc/sRGB-v2.icc
var DefaultColorProfile []byte

// LoadColorProfile reads an ICC profile from path and checks that it
// describes an RGB color space.
func LoadColorProfile(path string) ([]byte, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path is user-provided
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrColorProfile, err)
	}
	if err := CheckColorProfile(data); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return data, nil
}

// CheckColorProfile decodes an ICC profile and checks that it describes
// an RGB color space.
func CheckColorProfile(data []byte) error {
	p, err := icc.Decode(bytes.Clone(data))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrColorProfile, err)
	}
	if p.ColorSpace != icc.RGBSpace {
		return fmt.Errorf("%w: output intent needs an RGB profile, got %d components",
			ErrColorProfile, p.ColorSpace.NumComponents())
	}
	return nil
}
