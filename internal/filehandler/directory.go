package filehandler

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
)

// ListAssets returns the supported images directly inside dirPath.
// Subdirectories are not descended into. Symlinks to files are followed;
// symlinks to directories are skipped. Order follows os.ReadDir (by name).
func ListAssets(dirPath string) ([]*AssetFile, error) {
	log.Debug().Str("path", dirPath).Msg("Scanning directory for assets")

	info, err := os.Stat(dirPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("directory not found: %s", dirPath)
		}
		return nil, fmt.Errorf("failed to stat directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("path is not a directory: %s", dirPath)
	}

	entries, err := os.ReadDir(dirPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}

	var assets []*AssetFile
	for _, entry := range entries {
		if entry.IsDir() || !IsImage(filepath.Ext(entry.Name())) {
			continue
		}

		path := filepath.Join(dirPath, entry.Name())

		if entry.Type()&fs.ModeSymlink != 0 {
			target, err := os.Stat(path)
			if err != nil {
				log.Warn().Err(err).Str("path", path).Msg("Failed to resolve symlink, skipping")
				continue
			}
			if target.IsDir() {
				log.Debug().Str("path", path).Msg("Skipping symlink to directory")
				continue
			}
		}

		asset, err := LoadAssetFile(path)
		if err != nil {
			log.Warn().Err(err).Str("file", entry.Name()).Msg("Failed to load asset file, skipping")
			continue
		}
		assets = append(assets, asset)
	}

	log.Info().
		Int("total_assets", len(assets)).
		Int("entries_seen", len(entries)).
		Str("directory", dirPath).
		Msg("Directory scan complete")

	return assets, nil
}
