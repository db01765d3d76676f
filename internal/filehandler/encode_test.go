package filehandler

import (
	"bytes"
	"encoding/base64"
	"errors"
	"image"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func TestEncodeSupportedExtensions(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name     string
		write    func(t *testing.T, dir, name string, w, h int) string
		wantMIME string
	}{
		{"a.png", writePNG, "image/png"},
		{"b.PNG", writePNG, "image/png"},
		{"c.jpg", writeJPEG, "image/jpeg"},
		{"d.JPG", writeJPEG, "image/jpeg"},
		{"e.jpeg", writeJPEG, "image/jpeg"},
		{"f.JpEg", writeJPEG, "image/jpeg"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := tt.write(t, dir, tt.name, 3, 3)
			img, err := Encode(path, EncodeOptions{})
			if err != nil {
				t.Fatalf("Encode() error: %v", err)
			}
			if img.MIMEType != tt.wantMIME {
				t.Errorf("MIMEType = %q, want %q", img.MIMEType, tt.wantMIME)
			}
			if img.Payload == "" {
				t.Fatal("Payload is empty")
			}
			decoded, err := base64.StdEncoding.DecodeString(img.Payload)
			if err != nil {
				t.Fatalf("Payload is not valid base64: %v", err)
			}
			if !bytes.Equal(decoded, img.Data) {
				t.Error("Payload does not decode to Data")
			}
			raw, _ := os.ReadFile(path)
			if !bytes.Equal(img.Data, raw) {
				t.Error("Data differs from file contents without resizing")
			}
		})
	}
}

func TestEncodeUnsupportedFormat(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"readme.txt", "sprite.gif", "noext"} {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte("data"), 0o644); err != nil {
			t.Fatal(err)
		}
		img, err := Encode(path, EncodeOptions{})
		if !errors.Is(err, ErrUnsupportedFormat) {
			t.Errorf("Encode(%s) error = %v, want ErrUnsupportedFormat", name, err)
		}
		if img != nil {
			t.Errorf("Encode(%s) returned an encoding for an unsupported format", name)
		}
	}
}

func TestEncodeNotFound(t *testing.T) {
	_, err := Encode(filepath.Join(t.TempDir(), "ghost.png"), EncodeOptions{})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Encode() error = %v, want ErrNotFound", err)
	}
}

func TestEncodeReadError(t *testing.T) {
	dir := t.TempDir()

	// A directory with an image name cannot be read as a file.
	asDir := filepath.Join(dir, "folder.png")
	if err := os.Mkdir(asDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if _, err := Encode(asDir, EncodeOptions{}); !errors.Is(err, ErrRead) {
		t.Errorf("Encode(dir) error = %v, want ErrRead", err)
	}

	if runtime.GOOS == "windows" || os.Geteuid() == 0 {
		return
	}
	locked := writePNG(t, dir, "locked.png", 2, 2)
	if err := os.Chmod(locked, 0o000); err != nil {
		t.Fatal(err)
	}
	if _, err := Encode(locked, EncodeOptions{}); !errors.Is(err, ErrRead) {
		t.Errorf("Encode(unreadable) error = %v, want ErrRead", err)
	}
}

func TestEncodeDownscale(t *testing.T) {
	dir := t.TempDir()

	t.Run("png larger than limit", func(t *testing.T) {
		path := writePNG(t, dir, "wide.png", 400, 100)
		img, err := Encode(path, EncodeOptions{MaxDimension: 100})
		if err != nil {
			t.Fatalf("Encode() error: %v", err)
		}
		if !img.Resized {
			t.Fatal("Resized = false, want true")
		}
		cfg, format, err := image.DecodeConfig(bytes.NewReader(img.Data))
		if err != nil {
			t.Fatalf("decode resized: %v", err)
		}
		if format != "png" {
			t.Errorf("format = %q, want png", format)
		}
		if cfg.Width != 100 || cfg.Height != 25 {
			t.Errorf("size = %dx%d, want 100x25", cfg.Width, cfg.Height)
		}
	})

	t.Run("jpeg larger than limit", func(t *testing.T) {
		path := writeJPEG(t, dir, "tall.jpg", 50, 200)
		img, err := Encode(path, EncodeOptions{MaxDimension: 100})
		if err != nil {
			t.Fatalf("Encode() error: %v", err)
		}
		cfg, format, err := image.DecodeConfig(bytes.NewReader(img.Data))
		if err != nil {
			t.Fatalf("decode resized: %v", err)
		}
		if format != "jpeg" {
			t.Errorf("format = %q, want jpeg", format)
		}
		if cfg.Width != 25 || cfg.Height != 100 {
			t.Errorf("size = %dx%d, want 25x100", cfg.Width, cfg.Height)
		}
	})

	t.Run("already small", func(t *testing.T) {
		path := writePNG(t, dir, "small.png", 10, 10)
		img, err := Encode(path, EncodeOptions{MaxDimension: 100})
		if err != nil {
			t.Fatalf("Encode() error: %v", err)
		}
		if img.Resized {
			t.Error("Resized = true for an image within the limit")
		}
	})

	t.Run("corrupt image", func(t *testing.T) {
		path := filepath.Join(dir, "broken.png")
		if err := os.WriteFile(path, []byte("not a png"), 0o644); err != nil {
			t.Fatal(err)
		}
		if _, err := Encode(path, EncodeOptions{MaxDimension: 100}); !errors.Is(err, ErrRead) {
			t.Errorf("Encode(corrupt) error = %v, want ErrRead", err)
		}
	})
}

func TestFitWithin(t *testing.T) {
	tests := []struct {
		w, h, max    int
		wantW, wantH int
	}{
		{100, 50, 200, 100, 50},
		{400, 200, 200, 200, 100},
		{200, 400, 200, 100, 200},
		{1000, 1, 100, 100, 1},
		{300, 300, 150, 150, 150},
	}
	for _, tt := range tests {
		gotW, gotH := fitWithin(tt.w, tt.h, tt.max)
		if gotW != tt.wantW || gotH != tt.wantH {
			t.Errorf("fitWithin(%d, %d, %d) = (%d, %d), want (%d, %d)",
				tt.w, tt.h, tt.max, gotW, gotH, tt.wantW, tt.wantH)
		}
	}
}
