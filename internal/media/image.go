package media

import (
	"errors"
	"fmt"
	"image"
	"io"

	// Image format decoders
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"  // BMP format support
	_ "golang.org/x/image/webp" // WebP format support

	"doggygallery/internal/logging"
)

const (
	// MaxImageDimension is the maximum width or height we'll keep in memory
	// after decoding. Larger images are downscaled before thumbnailing.
	MaxImageDimension = 4096

	// MaxImagePixels is the maximum total pixels (width * height) we'll
	// decode at all. A 100MP image is ~400MB in RGBA.
	MaxImagePixels = 100_000_000
)

// ErrImageTooLarge is returned for images whose header declares more
// pixels than we are willing to decode.
var ErrImageTooLarge = errors.New("image too large to decode")

// ImageDimensions holds image width and height
type ImageDimensions struct {
	Width  int
	Height int
}

// GetImageDimensions reads only the image header.
func GetImageDimensions(r io.Reader) (*ImageDimensions, error) {
	config, _, err := image.DecodeConfig(r)
	if err != nil {
		return nil, err
	}
	return &ImageDimensions{Width: config.Width, Height: config.Height}, nil
}

// LoadImageConstrained decodes an image after checking its header against
// maxPixels, then downscales it so neither side exceeds maxDimension.
func LoadImageConstrained(r io.ReadSeeker, name string, maxDimension, maxPixels int) (image.Image, error) {
	dims, err := GetImageDimensions(r)
	if err != nil {
		return nil, fmt.Errorf("read image header: %w", err)
	}
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("rewind image: %w", err)
	}

	pixels := dims.Width * dims.Height
	if pixels > maxPixels {
		return nil, fmt.Errorf("%s is %dx%d: %w", name, dims.Width, dims.Height, ErrImageTooLarge)
	}

	img, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	if dims.Width <= maxDimension && dims.Height <= maxDimension {
		return img, nil
	}

	logging.Debug("Constraining large image %s from %dx%d", name, dims.Width, dims.Height)
	return imaging.Fit(img, maxDimension, maxDimension, imaging.Lanczos), nil
}
