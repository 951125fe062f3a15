package extract

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/pdfcpu/pdfcpu/pkg/api"
)

// ocrBinary is overridable by the caller (extractor main) via SetOCRBinary,
// following the same "small overridable package var" pattern as the
// teacher's module-level jwtSecretKey, kept process-wide since the OCR
// engine is effectively static configuration.
var (
	ocrBinary = "tesseract"
)

// SetOCRBinary lets cmd/extractor wire TESSERACT_BIN from config.
func SetOCRBinary(bin string) {
	if bin != "" {
		ocrBinary = bin
	}
}

// rasterizePage extracts the images embedded in one PDF page with pdfcpu's
// image export and returns the path of the first file written, at the
// image's own resolution and format. The page itself is not rendered, so a
// page with no embedded image yields an error, and text drawn as vector
// paths is not captured.
func rasterizePage(pdfPath string, pageNum int) (string, error) {
	outDir, err := os.MkdirTemp("", "evocable-ocr-*")
	if err != nil {
		return "", err
	}
	if err := api.ExtractImagesFile(pdfPath, outDir, []string{fmt.Sprintf("%d", pageNum)}, nil); err != nil {
		return "", err
	}
	matches, err := filepath.Glob(filepath.Join(outDir, "*"))
	if err != nil || len(matches) == 0 {
		return "", fmt.Errorf("no rasterized image produced for page %d", pageNum)
	}
	return matches[0], nil
}

// ocrImage runs tesseract as a subprocess on a rasterized page image,
// matching the teacher's os/exec subprocess-invocation idiom (sound_effects.go)
// rather than an in-process OCR library/cgo binding.
func ocrImage(imagePath string) (string, error) {
	out, err := exec.Command(ocrBinary, imagePath, "stdout").CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("tesseract: %w: %s", err, string(out))
	}
	return string(out), nil
}
