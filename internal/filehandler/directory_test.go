package filehandler

import (
	"os"
	"path/filepath"
	"testing"
)

func TestListAssetsFiltersByExtension(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, dir, "hero.png", 2, 2)
	writeJPEG(t, dir, "bg.jpg", 2, 2)
	if err := os.WriteFile(filepath.Join(dir, "readme.txt"), []byte("notes"), 0o644); err != nil {
		t.Fatal(err)
	}

	assets, err := ListAssets(dir)
	if err != nil {
		t.Fatalf("ListAssets() error: %v", err)
	}

	got := make(map[string]bool)
	for _, a := range assets {
		got[a.Name] = true
	}
	if len(got) != 2 || !got["hero.png"] || !got["bg.jpg"] {
		t.Errorf("ListAssets() = %v, want exactly {hero.png, bg.jpg}", got)
	}
}

func TestListAssetsCaseInsensitiveAndNoRecursion(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, dir, "ICON.PNG", 2, 2)
	writeJPEG(t, dir, "Tile.JpEg", 2, 2)

	sub := filepath.Join(dir, "nested.png")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	writePNG(t, sub, "deep.png", 2, 2)

	assets, err := ListAssets(dir)
	if err != nil {
		t.Fatalf("ListAssets() error: %v", err)
	}
	if len(assets) != 2 {
		t.Fatalf("ListAssets() returned %d assets, want 2", len(assets))
	}
	// os.ReadDir sorts by name.
	if assets[0].Name != "ICON.PNG" || assets[1].Name != "Tile.JpEg" {
		t.Errorf("order = [%s %s], want [ICON.PNG Tile.JpEg]", assets[0].Name, assets[1].Name)
	}
	if assets[1].MIMEType != "image/jpeg" {
		t.Errorf("MIMEType = %q, want image/jpeg", assets[1].MIMEType)
	}
}

func TestListAssetsEmptyDirectory(t *testing.T) {
	assets, err := ListAssets(t.TempDir())
	if err != nil {
		t.Fatalf("ListAssets() error: %v", err)
	}
	if len(assets) != 0 {
		t.Errorf("ListAssets() returned %d assets, want 0", len(assets))
	}
}

func TestListAssetsMissingDirectory(t *testing.T) {
	if _, err := ListAssets(filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Error("ListAssets() on missing directory should return an error")
	}
}

func TestListAssetsRejectsFile(t *testing.T) {
	path := writePNG(t, t.TempDir(), "hero.png", 2, 2)
	if _, err := ListAssets(path); err == nil {
		t.Error("ListAssets() on a file should return an error")
	}
}
