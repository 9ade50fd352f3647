package utils

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/disintegration/imaging"
)

const (
	// MaxImageWidth bounds the stored poster width; narrower images keep their size.
	MaxImageWidth = 800
	// JPEGQuality is the re-encode quality for stored posters.
	JPEGQuality = 80
)

// ErrInvalidImage is returned when the upload cannot be decoded as an image.
var ErrInvalidImage = errors.New("invalid image")

// NormalizeImage decodes raw (JPEG, PNG, GIF, BMP or TIFF), honours EXIF
// orientation, scales it down to MaxImageWidth preserving aspect ratio and
// re-encodes it as JPEG.
func NormalizeImage(raw []byte) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(raw), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	if img.Bounds().Dx() > MaxImageWidth {
		img = imaging.Resize(img, MaxImageWidth, 0, imaging.Lanczos)
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(JPEGQuality)); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}
