package files

import (
	"errors"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/harrylevesque/csms/internal/utils"
)

// ErrAssetNotFound is returned when none of the candidate paths can be read.
var ErrAssetNotFound = errors.New("asset not found")

// Asset is a static file loaded from disk.
type Asset struct {
	Path        string
	Data        []byte
	ContentType string
}

// ReadAsset reads path relative to the project root.
func ReadAsset(path string) (Asset, error) {
	if path == "" {
		return Asset{}, ErrAssetNotFound
	}
	full := utils.ResolvePath(path)
	data, err := os.ReadFile(full)
	if errors.Is(err, os.ErrNotExist) {
		return Asset{}, fmt.Errorf("%w: %s", ErrAssetNotFound, path)
	}
	if err != nil {
		return Asset{}, err
	}
	return Asset{Path: full, Data: data, ContentType: ContentType(full)}, nil
}

// FirstAsset returns the first readable file among paths.
func FirstAsset(paths []string) (Asset, error) {
	for _, p := range paths {
		a, err := ReadAsset(p)
		if err == nil {
			return a, nil
		}
	}
	return Asset{}, ErrAssetNotFound
}

// ContentType guesses the MIME type from the file extension.
func ContentType(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".mp3":
		return "audio/mpeg"
	case ".wav":
		return "audio/wav"
	}
	if ct := mime.TypeByExtension(ext); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
