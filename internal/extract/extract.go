// Package extract dispatches book source files to a per-format extractor,
// grounded on content-service/document_chunker.go's ExtractTextByType
// dispatcher, upgraded per SPEC_FULL.md to pdfcpu and x/net/html-based
// extraction instead of the teacher's rsc.io/pdf and raw zip/string-search
// approach.
package extract

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/epicrunze/evocable/internal/models"
)

// Extract reads sourcePath (whose format must match declared) and returns
// the concatenated UTF-8 text artifact.
func Extract(sourcePath string, declared models.SourceFormat) (string, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(sourcePath), "."))

	switch declared {
	case models.FormatTXT:
		if ext != "txt" {
			return "", fmt.Errorf("extension .%s doesn't match format txt", ext)
		}
		return extractTXT(sourcePath)
	case models.FormatPDF:
		if ext != "pdf" {
			return "", fmt.Errorf("extension .%s doesn't match format pdf", ext)
		}
		return extractPDF(sourcePath)
	case models.FormatEPUB:
		if ext != "epub" {
			return "", fmt.Errorf("extension .%s doesn't match format epub", ext)
		}
		return extractEPUB(sourcePath)
	default:
		return "", fmt.Errorf("unsupported format %q", declared)
	}
}
