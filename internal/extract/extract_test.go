package extract

import (
	"archive/zip"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/epicrunze/evocable/internal/models"
)

func TestExtractTXTPlain(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "book.txt")
	if err := os.WriteFile(path, []byte("Hello, world."), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	got, err := Extract(path, models.FormatTXT)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if got != "Hello, world." {
		t.Fatalf("expected plain text unchanged, got %q", got)
	}
}

func TestExtractTXTStripsUTF8BOM(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "book.txt")
	withBOM := append([]byte{0xEF, 0xBB, 0xBF}, []byte("After the BOM.")...)
	if err := os.WriteFile(path, withBOM, 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	got, err := Extract(path, models.FormatTXT)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if got != "After the BOM." {
		t.Fatalf("expected BOM to be stripped, got %q", got)
	}
}

func TestExtractTXTFallsBackToStatisticalDetectionWithoutBOM(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "book.txt")
	// "café" encoded as Windows-1252/Latin-1 (0xE9 for é), no BOM and not
	// valid UTF-8, exercising the chardet-backed fallback path.
	latin1 := append([]byte("caf"), 0xE9)
	if err := os.WriteFile(path, latin1, 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	got, err := Extract(path, models.FormatTXT)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if !strings.Contains(got, "caf") {
		t.Fatalf("expected decoded text to retain the ASCII prefix, got %q", got)
	}
}

func TestExtractRejectsExtensionFormatMismatch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "book.txt")
	if err := os.WriteFile(path, []byte("irrelevant"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	if _, err := Extract(path, models.FormatPDF); err == nil {
		t.Fatal("expected an error when the declared format doesn't match the extension")
	}
}

func writeTestEPUB(t *testing.T, path string, docs map[string]string) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create epub fixture: %v", err)
	}
	defer f.Close()
	zw := zip.NewWriter(f)
	for name, content := range docs {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("create zip entry %s: %v", name, err)
		}
		if _, err := w.Write([]byte(content)); err != nil {
			t.Fatalf("write zip entry %s: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close epub fixture: %v", err)
	}
}

func TestExtractEPUBConcatenatesContentDocumentsInOrder(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "book.epub")
	writeTestEPUB(t, path, map[string]string{
		"OEBPS/chapter1.xhtml": "<html><body><p>Chapter one text.</p></body></html>",
		"OEBPS/chapter2.xhtml": "<html><body><p>Chapter two text.</p></body></html>",
	})

	got, err := Extract(path, models.FormatEPUB)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if !containsInOrder(got, "Chapter one text.", "Chapter two text.") {
		t.Fatalf("expected chapters concatenated in file-name order, got %q", got)
	}
}

func TestExtractEPUBSkipsScriptAndStyle(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "book.epub")
	writeTestEPUB(t, path, map[string]string{
		"OEBPS/chapter1.xhtml": `<html><head><style>.x{color:red}</style></head>
<body><script>alert('no')</script><p>Visible text only.</p></body></html>`,
	})

	got, err := Extract(path, models.FormatEPUB)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if !containsInOrder(got, "Visible text only.") {
		t.Fatalf("expected visible text, got %q", got)
	}
	if containsInOrder(got, "alert") || containsInOrder(got, "color:red") {
		t.Fatalf("expected script/style content to be stripped, got %q", got)
	}
}

func containsInOrder(haystack string, needles ...string) bool {
	pos := 0
	for _, n := range needles {
		idx := strings.Index(haystack[pos:], n)
		if idx < 0 {
			return false
		}
		pos += idx + len(n)
	}
	return true
}
