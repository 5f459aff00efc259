package testutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// CanonicalPage is the published index.html every default rule holds for.
const CanonicalPage = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>My CI/CD Test Site</title>
</head>
<body>
    <h1>🎉 Hello from GitHub Pages!</h1>
    <p>This is my first deployed website using GitHub Actions CI/CD.</p>
</body>
</html>
`

// WritePage writes content to dir/index.html and returns the path.
func WritePage(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "index.html")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write page: %v", err)
	}
	return path
}

// MutatedPage returns CanonicalPage with the first occurrence of from
// replaced by to. It fails the test if from does not occur.
func MutatedPage(t *testing.T, from, to string) string {
	t.Helper()
	if !strings.Contains(CanonicalPage, from) {
		t.Fatalf("canonical page does not contain %q", from)
	}
	return strings.Replace(CanonicalPage, from, to, 1)
}
