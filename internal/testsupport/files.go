package testsupport

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

// WriteAudio creates a stand-in audio file of size bytes at dir/name and
// returns its path. A size <= 0 writes a single byte.
func WriteAudio(t testing.TB, dir, name string, size int) string {
	t.Helper()

	if size <= 0 {
		size = 1
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", dir, err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, bytes.Repeat([]byte{0x42}, size), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}
