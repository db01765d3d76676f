package filehandler

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"

	"github.com/rs/zerolog/log"
	"golang.org/x/image/draw"
)

// downscaleJPEGQuality is the quality used when a resized JPEG is re-encoded.
const downscaleJPEGQuality = 90

// downscale shrinks an image so its longest edge is at most maxDimension,
// re-encoding it in the same format. The bool result is false when the image
// already fits and data is returned unchanged.
func downscale(data []byte, mimeType string, maxDimension int) ([]byte, bool, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, false, fmt.Errorf("decode image header: %w", err)
	}

	width, height := fitWithin(cfg.Width, cfg.Height, maxDimension)
	if width == cfg.Width && height == cfg.Height {
		return data, false, nil
	}

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, false, fmt.Errorf("decode image: %w", err)
	}

	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)

	var buf bytes.Buffer
	switch mimeType {
	case "image/png":
		err = png.Encode(&buf, dst)
	case "image/jpeg":
		err = jpeg.Encode(&buf, dst, &jpeg.Options{Quality: downscaleJPEGQuality})
	default:
		return nil, false, fmt.Errorf("%w: cannot re-encode %s", ErrUnsupportedFormat, mimeType)
	}
	if err != nil {
		return nil, false, fmt.Errorf("encode resized image: %w", err)
	}

	log.Debug().
		Int("original_width", cfg.Width).
		Int("original_height", cfg.Height).
		Int("width", width).
		Int("height", height).
		Int("bytes", buf.Len()).
		Msg("Image downscaled")

	return buf.Bytes(), true, nil
}

// fitWithin scales (w, h) down to fit a maxDimension square, preserving aspect ratio.
func fitWithin(w, h, maxDimension int) (int, int) {
	if w <= maxDimension && h <= maxDimension {
		return w, h
	}
	if w >= h {
		nh := h * maxDimension / w
		if nh < 1 {
			nh = 1
		}
		return maxDimension, nh
	}
	nw := w * maxDimension / h
	if nw < 1 {
		nw = 1
	}
	return nw, maxDimension
}
