// Package filehandler locates game-asset images on disk and prepares them
// for upload to Gemini.
//
// Only three formats are accepted: PNG, JPEG (.jpg) and JPEG (.jpeg). The
// extension decides the MIME type; file contents are never sniffed.
package filehandler

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog/log"
)

// SupportedImageExtensions maps the accepted (lower-case) extensions to their MIME type.
var SupportedImageExtensions = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
}

// Encoder failure kinds. Use errors.Is to test for them.
var (
	ErrNotFound          = errors.New("file not found")
	ErrUnsupportedFormat = errors.New("unsupported image format")
	ErrRead              = errors.New("failed to read image")
)

// AssetFile is an image discovered by ListAssets.
type AssetFile struct {
	Path     string
	Name     string
	MIMEType string
	Size     int64
}

// LoadAssetFile stats a single image and returns its AssetFile.
func LoadAssetFile(filePath string) (*AssetFile, error) {
	ext := strings.ToLower(filepath.Ext(filePath))
	mimeType, err := GetMIMEType(ext)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(filePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, filePath)
		}
		return nil, fmt.Errorf("%w: %v", ErrRead, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: path is a directory: %s", ErrRead, filePath)
	}

	log.Debug().
		Str("path", filePath).
		Str("mime_type", mimeType).
		Str("size", humanize.Bytes(uint64(info.Size()))).
		Msg("Asset file loaded")

	return &AssetFile{
		Path:     filePath,
		Name:     filepath.Base(filePath),
		MIMEType: mimeType,
		Size:     info.Size(),
	}, nil
}

// GetMIMEType returns the MIME type for a given file extension.
func GetMIMEType(ext string) (string, error) {
	if mimeType, ok := SupportedImageExtensions[strings.ToLower(ext)]; ok {
		return mimeType, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
}

// IsImage returns true if the file extension is one of the supported image types.
func IsImage(ext string) bool {
	_, ok := SupportedImageExtensions[strings.ToLower(ext)]
	return ok
}
