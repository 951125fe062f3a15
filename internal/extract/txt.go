package extract

import (
	"os"
	"unicode/utf8"

	"github.com/saintfish/chardet"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// extractTXT decodes a plain-text file, preferring a BOM when present,
// passing through valid UTF-8 untouched, and otherwise falling back to
// statistical charset detection the way the original ingest service's
// chardet.detect(raw_data) did — generalizing content-service/utils/
// text_cleaner.go's CleanUTF8, which only handled the no-BOM UTF-8 case.
func extractTXT(path string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}

	if hasBOM(raw) {
		// unicode.BOMOverride sniffs the BOM and picks the matching decoder.
		decoder := unicode.BOMOverride(unicode.UTF8.NewDecoder())
		out, _, err := transform.Bytes(decoder, raw)
		if err == nil {
			return string(out), nil
		}
	}
	if utf8.Valid(raw) {
		return string(raw), nil
	}

	if dec := detectDecoder(raw); dec != nil {
		decoded, _, derr := transform.Bytes(dec.NewDecoder(), raw)
		if derr == nil {
			return string(decoded), nil
		}
	}

	// Last resort: decode as UTF-8, substituting the replacement
	// character for anything invalid, mirroring the original's
	// errors='replace' behavior.
	fallback, _, _ := transform.Bytes(unicode.UTF8.NewDecoder(), raw)
	return string(fallback), nil
}

func hasBOM(raw []byte) bool {
	switch {
	case len(raw) >= 3 && raw[0] == 0xEF && raw[1] == 0xBB && raw[2] == 0xBF:
		return true
	case len(raw) >= 2 && raw[0] == 0xFE && raw[1] == 0xFF:
		return true
	case len(raw) >= 2 && raw[0] == 0xFF && raw[1] == 0xFE:
		return true
	}
	return false
}

// detectDecoder runs statistical charset detection and resolves the best
// guess's IANA name to an x/text decoder, skipping anything that turns out
// to be UTF-8/ASCII (already handled above) or that ianaindex doesn't know.
func detectDecoder(raw []byte) encoding.Encoding {
	result, err := chardet.NewTextDetector().DetectBest(raw)
	if err != nil || result == nil {
		return nil
	}
	switch result.Charset {
	case "UTF-8", "ASCII", "":
		return nil
	}
	enc, err := ianaindex.IANA.Encoding(result.Charset)
	if err != nil || enc == nil {
		return nil
	}
	return enc
}
