package filehandler

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
)

// EncodeOptions tunes how an image is prepared for upload.
type EncodeOptions struct {
	// MaxDimension caps the longest edge in pixels. 0 sends the original bytes.
	MaxDimension int
}

// EncodedImage is an image ready to be sent inline to Gemini.
type EncodedImage struct {
	Name     string
	MIMEType string
	// Data holds the raw image bytes; the SDK handles wire encoding.
	Data []byte
	// Payload is the base64 (standard encoding) form of Data.
	Payload string
	Resized bool
}

// Encode reads an image from disk and returns its bytes, base64 payload and MIME type.
//
// Errors are one of ErrNotFound, ErrUnsupportedFormat or ErrRead (check with errors.Is).
func Encode(path string, opts EncodeOptions) (*EncodedImage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrRead, path, err)
	}

	ext := strings.ToLower(filepath.Ext(path))
	mimeType, err := GetMIMEType(ext)
	if err != nil {
		return nil, err
	}

	img := &EncodedImage{
		Name:     filepath.Base(path),
		MIMEType: mimeType,
		Data:     data,
	}

	if opts.MaxDimension > 0 {
		resized, changed, err := downscale(data, mimeType, opts.MaxDimension)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrRead, path, err)
		}
		if changed {
			img.Data = resized
			img.Resized = true
		}
	}

	img.Payload = base64.StdEncoding.EncodeToString(img.Data)

	log.Debug().
		Str("file", img.Name).
		Str("mime_type", mimeType).
		Int("original_bytes", len(data)).
		Int("payload_bytes", len(img.Payload)).
		Bool("resized", img.Resized).
		Msg("Image encoded")

	return img, nil
}
