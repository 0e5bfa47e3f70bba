// Package imageprep normalizes uploaded photos before face extraction.
package imageprep

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp" // register WebP decoder
)

// ErrUndecodable is returned when the upload is not a supported image.
var ErrUndecodable = errors.New("image could not be decoded")

// JPEGQuality is the quality used when re-encoding normalized images.
const JPEGQuality = 92

// Normalize decodes data, applies EXIF orientation, shrinks it so the longest side is
// at most maxSize pixels (0 keeps the size) and re-encodes it as JPEG.
func Normalize(data []byte, maxSize int) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUndecodable, err)
	}

	b := img.Bounds()
	if maxSize > 0 && (b.Dx() > maxSize || b.Dy() > maxSize) {
		img = imaging.Fit(img, maxSize, maxSize, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(JPEGQuality)); err != nil {
		return nil, fmt.Errorf("encoding jpeg: %w", err)
	}
	return buf.Bytes(), nil
}
