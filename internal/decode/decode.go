package decode

import (
	"fmt"
	"image"
	"os"

	// Image format decoders
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp" // WebP format support

	"photo-catalog/internal/logging"
	"photo-catalog/internal/photo"
)

const (
	// MaxImageDimension is the maximum width or height the high tier
	// will decode; larger images are downscaled.
	MaxImageDimension = 4096

	// MaxImagePixels caps total pixels for the high tier. 20MP in RGBA
	// is roughly 80MB, a safe ceiling for a handful of concurrent
	// decodes.
	MaxImagePixels = 20_000_000

	// DefaultLowSize is the low-tier proxy size when no host asked for
	// a specific one.
	DefaultLowSize = 512

	// MaxLowSize caps the low tier; anything bigger belongs to the
	// high tier.
	MaxLowSize = 1280
)

// Decoder implements the two-tier proxy decode.
type Decoder struct{}

// New returns a Decoder.
func New() *Decoder { return &Decoder{} }

// LowQuality produces the fast, small proxy. Vips decode-time
// shrinking is used when available, with a pure-Go fallback.
func (d *Decoder) LowQuality(path string, opts photo.HostOptions) (image.Image, error) {
	w, h := opts.Size.X, opts.Size.Y
	if w <= 0 || h <= 0 {
		w, h = DefaultLowSize, DefaultLowSize
	}
	if w > MaxLowSize {
		w = MaxLowSize
	}
	if h > MaxLowSize {
		h = MaxLowSize
	}

	if IsVipsAvailable() {
		img, err := loadWithVips(path, w, h)
		if err == nil {
			return img, nil
		}
		logging.Debug("Vips low-quality decode failed for %s, falling back: %v", path, err)
	}

	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to open image %s: %w", path, err)
	}
	return imaging.Fit(img, w, h, imaging.Lanczos), nil
}

// HighQuality produces the full decode, downscaled only when the file
// exceeds the memory limits.
func (d *Decoder) HighQuality(path string, opts photo.HostOptions) (image.Image, error) {
	img, err := loadConstrained(path, MaxImageDimension, MaxImagePixels)
	if err != nil {
		return nil, err
	}

	// Hosts that asked for a specific size get a fitted copy; the
	// default is the constrained full decode.
	if opts.Size.X > 0 && opts.Size.Y > 0 {
		bounds := img.Bounds()
		if bounds.Dx() > opts.Size.X || bounds.Dy() > opts.Size.Y {
			img = imaging.Fit(img, opts.Size.X, opts.Size.Y, imaging.Lanczos)
		}
	}
	return img, nil
}

// loadConstrained loads an image, downscaling if it exceeds the size
// limits. This prevents OOM when processing very large files.
func loadConstrained(path string, maxDimension, maxPixels int) (image.Image, error) {
	width, height, err := probeDimensions(path)
	if err != nil {
		logging.Debug("Could not probe dimensions of %s: %v, loading directly", path, err)
		return imaging.Open(path, imaging.AutoOrientation(true))
	}

	pixels := width * height
	if width <= maxDimension && height <= maxDimension && pixels <= maxPixels {
		return imaging.Open(path, imaging.AutoOrientation(true))
	}

	targetWidth, targetHeight := width, height
	if width > maxDimension || height > maxDimension {
		if width > height {
			targetWidth = maxDimension
			targetHeight = height * maxDimension / width
		} else {
			targetHeight = maxDimension
			targetWidth = width * maxDimension / height
		}
	}
	if targetWidth*targetHeight > maxPixels {
		scale := float64(maxPixels) / float64(targetWidth*targetHeight)
		targetWidth = int(float64(targetWidth) * scale)
		targetHeight = int(float64(targetHeight) * scale)
	}

	logging.Info("Constraining large image %s from %dx%d to %dx%d",
		path, width, height, targetWidth, targetHeight)

	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to open image %s: %w", path, err)
	}
	return imaging.Resize(img, targetWidth, targetHeight, imaging.Lanczos), nil
}

// probeDimensions returns image dimensions without fully decoding.
func probeDimensions(path string) (int, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, err
	}
	defer func() {
		if err := f.Close(); err != nil {
			logging.Warn("failed to close image file %s: %v", path, err)
		}
	}()

	config, _, err := image.DecodeConfig(f)
	if err != nil {
		return 0, 0, err
	}
	return config.Width, config.Height, nil
}
