package testsupport

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// WriteLines writes lines joined by sep to path, creating parent directories.
func WriteLines(t testing.TB, path, sep string, lines ...string) string {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(strings.Join(lines, sep)), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}
