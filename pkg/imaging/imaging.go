// Package imaging type-checks and shrinks photos before they are stored.
package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// Defaults used when Options leaves a field unset.
const (
	DefaultMaxEdge       = 1280
	DefaultQuality       = 70
	DefaultThreshold     = 1024 * 1024
	DefaultThumbnailEdge = 320
	DefaultMaxPixels     = 40_000_000
)

// ErrTooManyPixels is returned for images whose decoded size exceeds the
// pixel ceiling, however small the encoded file is.
var ErrTooManyPixels = errors.New("image dimensions exceed pixel limit")

var imageMIMEs = map[string]struct{}{
	"image/jpeg": {},
	"image/png":  {},
	"image/gif":  {},
	"image/webp": {},
}

// Options tunes Compress.
type Options struct {
	MaxEdge   int
	Quality   int
	Threshold int64
	MaxPixels int64
}

func (o Options) withDefaults() Options {
	if o.MaxEdge <= 0 {
		o.MaxEdge = DefaultMaxEdge
	}
	if o.Quality <= 0 || o.Quality > 100 {
		o.Quality = DefaultQuality
	}
	if o.Threshold <= 0 {
		o.Threshold = DefaultThreshold
	}
	if o.MaxPixels <= 0 {
		o.MaxPixels = DefaultMaxPixels
	}
	return o
}

// DetectMIME sniffs the content type from the leading bytes.
func DetectMIME(data []byte) string {
	mt, _, _ := strings.Cut(mimetype.Detect(data).String(), ";")
	return strings.TrimSpace(mt)
}

// IsImageMIME reports whether mt is one of the accepted photo formats.
func IsImageMIME(mt string) bool {
	_, ok := imageMIMEs[strings.ToLower(mt)]
	return ok
}

// Result is the outcome of Compress.
type Result struct {
	Data     []byte
	MIMEType string
	Width    int
	Height   int
	Changed  bool
}

// Compress resizes an image so its longer edge is at most MaxEdge and
// re-encodes it as JPEG at the configured quality. Images that are already
// under the size threshold and within the edge limit are returned untouched.
func Compress(data []byte, opts Options) (*Result, error) {
	opts = opts.withDefaults()
	mt := DetectMIME(data)
	if !IsImageMIME(mt) {
		return nil, fmt.Errorf("unsupported image type %q", mt)
	}
	cfg, err := decodeBounded(data, opts.MaxPixels)
	if err != nil {
		return nil, err
	}
	if int64(len(data)) <= opts.Threshold && longerEdge(cfg.Width, cfg.Height) <= opts.MaxEdge {
		return &Result{Data: data, MIMEType: mt, Width: cfg.Width, Height: cfg.Height}, nil
	}

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	out, w, h, err := encodeScaled(src, opts.MaxEdge, opts.Quality)
	if err != nil {
		return nil, err
	}
	return &Result{Data: out, MIMEType: "image/jpeg", Width: w, Height: h, Changed: true}, nil
}

// Thumbnail renders a small JPEG preview whose longer edge is edge pixels.
func Thumbnail(data []byte, edge int) ([]byte, error) {
	if edge <= 0 {
		edge = DefaultThumbnailEdge
	}
	if _, err := decodeBounded(data, DefaultMaxPixels); err != nil {
		return nil, err
	}
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	out, _, _, err := encodeScaled(src, edge, DefaultQuality)
	return out, err
}

// decodeBounded reads only the header and refuses images that would decode to
// more than maxPixels pixels.
func decodeBounded(data []byte, maxPixels int64) (image.Config, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return cfg, fmt.Errorf("decode image header: %w", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return cfg, fmt.Errorf("image has no pixels")
	}
	if int64(cfg.Width)*int64(cfg.Height) > maxPixels {
		return cfg, fmt.Errorf("%dx%d: %w", cfg.Width, cfg.Height, ErrTooManyPixels)
	}
	return cfg, nil
}

func encodeScaled(src image.Image, maxEdge, quality int) ([]byte, int, int, error) {
	b := src.Bounds()
	w, h := fit(b.Dx(), b.Dy(), maxEdge)
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	// JPEG has no alpha channel; flatten transparent pixels onto white.
	draw.Draw(dst, dst.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Over, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: quality}); err != nil {
		return nil, 0, 0, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), w, h, nil
}

func fit(w, h, maxEdge int) (int, int) {
	edge := longerEdge(w, h)
	if edge <= maxEdge || edge == 0 {
		return w, h
	}
	if w >= h {
		nh := h * maxEdge / w
		if nh < 1 {
			nh = 1
		}
		return maxEdge, nh
	}
	nw := w * maxEdge / h
	if nw < 1 {
		nw = 1
	}
	return nw, maxEdge
}

func longerEdge(w, h int) int {
	if w > h {
		return w
	}
	return h
}
