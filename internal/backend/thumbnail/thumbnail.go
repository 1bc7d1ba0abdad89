// Package thumbnail downloads source images and turns them into small JPEG data URLs.
package thumbnail

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"log/slog"
	"math"
	"strings"

	_ "image/gif"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

var (
	// ErrNetworkFailure is returned when the source image could not be downloaded.
	ErrNetworkFailure = errors.New("image download failed")
	// ErrThumbnailFailure is returned when the image could not be decoded or encoded.
	ErrThumbnailFailure = errors.New("thumbnail generation failed")
)

const (
	DefaultMaxWidth  = 300
	DefaultMaxHeight = 200
	DefaultQuality   = 80

	// maxSourcePixels bounds the decoded size of a source image.
	maxSourcePixels = 50_000_000
)

type Thumbnailer struct {
	maxWidth  int
	maxHeight int
	quality   int
}

func NewThumbnailer(maxWidth, maxHeight, quality int) (*Thumbnailer, error) {
	if maxWidth <= 0 {
		return nil, fmt.Errorf("maxWidth must be positive, got %d", maxWidth)
	}
	if maxHeight <= 0 {
		return nil, fmt.Errorf("maxHeight must be positive, got %d", maxHeight)
	}
	if quality < 1 || quality > 100 {
		return nil, fmt.Errorf("quality must be within 1..100, got %d", quality)
	}
	return &Thumbnailer{maxWidth: maxWidth, maxHeight: maxHeight, quality: quality}, nil
}

// Generate decodes imageData and returns a JPEG data URL that fits within the
// configured bounds. Images already small enough keep their size.
func (t *Thumbnailer) Generate(imageData []byte) (string, error) {
	slog.Debug("Thumbnailer: decoding image", "input_size_bytes", len(imageData))

	img, format, err := t.decode(imageData)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrThumbnailFailure, err)
	}

	bounds := img.Bounds()
	if bounds.Dx() == 0 || bounds.Dy() == 0 {
		return "", fmt.Errorf("%w: image has zero dimensions", ErrThumbnailFailure)
	}
	width, height := fitWithin(bounds.Dx(), bounds.Dy(), t.maxWidth, t.maxHeight)
	slog.Debug("Thumbnailer: scaling",
		"format", format,
		"original_width", bounds.Dx(),
		"original_height", bounds.Dy(),
		"width", width,
		"height", height)

	// JPEG has no alpha channel, so transparent pixels are composited onto white
	dst := whiteCanvas(width, height)
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: t.quality}); err != nil {
		return "", fmt.Errorf("%w: failed to encode jpeg: %w", ErrThumbnailFailure, err)
	}
	slog.Debug("Thumbnailer: thumbnail complete", "output_size_bytes", buf.Len())
	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

func (t *Thumbnailer) decode(data []byte) (image.Image, string, error) {
	if isSVGData(data) {
		w, h, ok := svgSize(data)
		if !ok {
			w, h = t.maxWidth, t.maxHeight
		}
		// vectors are rasterized at the target size, never at the declared one
		w, h = fitWithin(w, h, t.maxWidth, t.maxHeight)
		img, err := renderSVG(data, w, h)
		return img, "svg", err
	}

	config, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode image: %w", err)
	}
	if int64(config.Width)*int64(config.Height) > maxSourcePixels {
		return nil, format, fmt.Errorf("%s image of %dx%d exceeds the limit of %d pixels",
			format, config.Width, config.Height, maxSourcePixels)
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode image: %w", err)
	}
	return img, format, nil
}

// fitWithin shrinks width and height to the bounds, preserving aspect ratio.
func fitWithin(width, height, maxWidth, maxHeight int) (int, int) {
	if width > maxWidth {
		height = int(math.Round(float64(height) * float64(maxWidth) / float64(width)))
		width = maxWidth
	}
	if height > maxHeight {
		width = int(math.Round(float64(width) * float64(maxHeight) / float64(height)))
		height = maxHeight
	}
	return max(width, 1), max(height, 1)
}

// IsImageDataURL reports whether s is an embedded image (data:image/...).
func IsImageDataURL(s string) bool {
	return strings.HasPrefix(s, "data:image/")
}

// Fallback is the thumbnail to keep when generation fails: the raw image when it is
// already embedded, otherwise nothing.
func Fallback(imageURL string) string {
	if IsImageDataURL(imageURL) {
		return imageURL
	}
	return ""
}
