package render

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
)

const (
	shadersDir = "shaders"
	logoPath   = "images/logo.png"

	quadVertexFile       = "quad.vs"
	backgroundFile       = "background.fs"
	foregroundFile       = "foreground.fs"
	particleVertexFile   = "particle.vs"
	particleFragmentFile = "particle.fs"
)

// Sources holds the shader sources of one variant.
type Sources struct {
	QuadVertex       string
	Background       string
	Foreground       string
	ParticleVertex   string
	ParticleFragment string
}

// Assets is the on-disk input of one visualization run.
type Assets struct {
	Variant  string
	Shaders  Sources
	Logo     []byte
	LogoPath string
}

// AssetError reports a missing or unreadable asset.
type AssetError struct {
	Path string
	Err  error
}

func (e *AssetError) Error() string {
	if errors.Is(e.Err, fs.ErrNotExist) {
		return fmt.Sprintf("asset not found: %s", e.Path)
	}
	return fmt.Sprintf("asset %s: %v", e.Path, e.Err)
}

func (e *AssetError) Unwrap() error {
	return e.Err
}

// VariantDir returns the shader directory of variant under root.
func VariantDir(root, variant string) string {
	return filepath.Join(root, shadersDir, variant)
}

// ListVariants returns the sorted names of the variant directories under
// root. A missing shaders directory yields an empty list.
func ListVariants(root string) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(root, shadersDir))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("list variants: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// LoadAssets reads the shader sources of variant and the shared logo.
func LoadAssets(root, variant string) (*Assets, error) {
	dir := VariantDir(root, variant)
	read := func(path string) (string, error) {
		data, err := os.ReadFile(path)
		if err != nil {
			return "", &AssetError{Path: path, Err: err}
		}
		return string(data), nil
	}

	var (
		sources Sources
		err     error
	)
	targets := []struct {
		file string
		dst  *string
	}{
		{quadVertexFile, &sources.QuadVertex},
		{backgroundFile, &sources.Background},
		{foregroundFile, &sources.Foreground},
		{particleVertexFile, &sources.ParticleVertex},
		{particleFragmentFile, &sources.ParticleFragment},
	}
	for _, target := range targets {
		if *target.dst, err = read(filepath.Join(dir, target.file)); err != nil {
			return nil, err
		}
	}

	logo := filepath.Join(root, logoPath)
	data, err := os.ReadFile(logo)
	if err != nil {
		return nil, &AssetError{Path: logo, Err: err}
	}

	return &Assets{
		Variant:  variant,
		Shaders:  sources,
		Logo:     data,
		LogoPath: logo,
	}, nil
}
