// Package testutil provides helpers shared by the package tests.
package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/goleak"
)

// ShaderFiles are the files a variant directory holds.
var ShaderFiles = []string{"quad.vs", "background.fs", "foreground.fs", "particle.vs", "particle.fs"}

// VerifyNoLeaks should be deferred at the start of tests that spawn goroutines.
func VerifyNoLeaks(t *testing.T, opts ...goleak.Option) {
	t.Helper()
	goleak.VerifyNone(t, opts...)
}

// WriteAssets lays out a module root with placeholder shaders for every
// variant and a logo image, and returns the root.
func WriteAssets(t *testing.T, variants ...string) string {
	t.Helper()
	root := t.TempDir()
	for _, variant := range variants {
		dir := filepath.Join(root, "shaders", variant)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("create variant dir: %v", err)
		}
		for _, name := range ShaderFiles {
			src := "// " + variant + "/" + name + "\nvoid main() {}\n"
			if err := os.WriteFile(filepath.Join(dir, name), []byte(src), 0o644); err != nil {
				t.Fatalf("write shader: %v", err)
			}
		}
	}
	images := filepath.Join(root, "images")
	if err := os.MkdirAll(images, 0o755); err != nil {
		t.Fatalf("create images dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(images, "logo.png"), []byte("\x89PNG\r\n\x1a\n"), 0o644); err != nil {
		t.Fatalf("write logo: %v", err)
	}
	return root
}
