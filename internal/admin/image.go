package admin

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"path"
	"strings"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"github.com/iliyamo/lube-storefront/internal/apiclient"
)

// MaxImageSide bounds the longer edge of uploaded product images.
const MaxImageSide = 800

// MaxUploadBytes is the largest image accepted before decoding.
const MaxUploadBytes = 5 << 20

// MaxImagePixels bounds the declared dimensions checked before decoding.
const MaxImagePixels = 40_000_000

var ErrImageTooLarge = errors.New("image exceeds upload limit")

// Downscale re-encodes up so that neither side exceeds maxSide. Images
// already small enough are passed through untouched. PNG input stays PNG to
// keep transparency; everything else becomes JPEG.
func Downscale(up apiclient.Upload, maxSide int) (apiclient.Upload, error) {
	if len(up.Data) > MaxUploadBytes {
		return apiclient.Upload{}, ErrImageTooLarge
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(up.Data))
	if err != nil {
		return apiclient.Upload{}, fmt.Errorf("decode image: %w", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || cfg.Width*cfg.Height > MaxImagePixels {
		return apiclient.Upload{}, fmt.Errorf("%w: %dx%d", ErrImageTooLarge, cfg.Width, cfg.Height)
	}
	src, format, err := image.Decode(bytes.NewReader(up.Data))
	if err != nil {
		return apiclient.Upload{}, fmt.Errorf("decode image: %w", err)
	}
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= maxSide && h <= maxSide {
		if up.ContentType == "" {
			up.ContentType = "image/" + format
		}
		return up, nil
	}
	nw, nh := maxSide, maxSide
	if w >= h {
		nh = h * maxSide / w
	} else {
		nw = w * maxSide / h
	}
	if nw < 1 {
		nw = 1
	}
	if nh < 1 {
		nh = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Over, nil)

	var buf bytes.Buffer
	out := apiclient.Upload{Filename: up.Filename}
	if format == "png" {
		err = png.Encode(&buf, dst)
		out.ContentType = "image/png"
	} else {
		err = jpeg.Encode(&buf, dst, &jpeg.Options{Quality: 85})
		out.ContentType = "image/jpeg"
		out.Filename = strings.TrimSuffix(up.Filename, path.Ext(up.Filename)) + ".jpg"
	}
	if err != nil {
		return apiclient.Upload{}, fmt.Errorf("encode image: %w", err)
	}
	out.Data = buf.Bytes()
	return out, nil
}
