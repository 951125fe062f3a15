package extract

import (
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// extractPDF extracts text page by page using pdfcpu, falling back to
// rasterize+OCR for any page whose content stream yields no text.
// Grounded on hazyhaar-chrc/docpipe/pdf.go's extractPDF/extractPageText,
// adapted to page-at-a-time processing with an OCR fallback path that
// pdfcpu's richer rendering API (vs. the teacher's rsc.io/pdf) makes
// possible.
func extractPDF(path string) (string, error) {
	ctx, err := api.ReadContextFile(path)
	if err != nil {
		return "", fmt.Errorf("parse pdf: %w", err)
	}

	pageCount := ctx.PageCount
	var sb strings.Builder

	for pageNum := 1; pageNum <= pageCount; pageNum++ {
		text, err := extractPageText(ctx, pageNum)
		if err != nil || strings.TrimSpace(text) == "" {
			rasterized, rerr := rasterizePage(path, pageNum)
			if rerr == nil {
				ocrText, oerr := ocrImage(rasterized)
				if oerr == nil {
					text = ocrText
				}
			}
		}
		if strings.TrimSpace(text) != "" {
			sb.WriteString(cleanPDFText(text))
			sb.WriteString("\n\n")
		}
	}

	return strings.TrimSpace(sb.String()), nil
}

// extractPageText pulls the raw content stream for a page and parses the
// text-showing operators (Tj, TJ, ', ") out of it.
func extractPageText(ctx *model.Context, pageNum int) (string, error) {
	r, err := pdfcpu.ExtractPageContent(ctx, pageNum)
	if err != nil {
		return "", err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	return extractTextFromStream(string(data)), nil
}

var (
	tjPattern            = regexp.MustCompile(`\(((?:[^()\\]|\\.)*)\)\s*Tj`)
	tjArrayPattern       = regexp.MustCompile(`\[((?:[^\[\]]|\\.)*)\]\s*TJ`)
	tjArrayStringPattern = regexp.MustCompile(`\(((?:[^()\\]|\\.)*)\)`)
)

// extractTextFromStream parses the subset of PDF content-stream text
// operators needed to recover visible text, mirroring hazyhaar-chrc's
// regex-based operator parser rather than a full PDF interpreter.
func extractTextFromStream(stream string) string {
	var sb strings.Builder
	for _, m := range tjPattern.FindAllStringSubmatch(stream, -1) {
		sb.WriteString(decodePDFString(m[1]))
		sb.WriteString(" ")
	}
	for _, m := range tjArrayPattern.FindAllStringSubmatch(stream, -1) {
		for _, s := range tjArrayStringPattern.FindAllStringSubmatch(m[1], -1) {
			sb.WriteString(decodePDFString(s[1]))
		}
		sb.WriteString(" ")
	}
	return sb.String()
}

// decodePDFString resolves the backslash escapes (\n, \r, \t, \(, \), \\,
// and octal \ddd) that PDF literal strings use.
func decodePDFString(s string) string {
	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] != '\\' || i == len(s)-1 {
			sb.WriteByte(s[i])
			continue
		}
		next := s[i+1]
		switch next {
		case 'n':
			sb.WriteByte('\n')
			i++
		case 'r':
			sb.WriteByte('\r')
			i++
		case 't':
			sb.WriteByte('\t')
			i++
		case '(', ')', '\\':
			sb.WriteByte(next)
			i++
		default:
			if next >= '0' && next <= '7' && i+3 < len(s) {
				if code, err := strconv.ParseInt(s[i+1:i+4], 8, 32); err == nil {
					sb.WriteByte(byte(code))
					i += 3
					continue
				}
			}
			sb.WriteByte(next)
			i++
		}
	}
	return sb.String()
}

func cleanPDFText(s string) string {
	fields := strings.Fields(s)
	return strings.Join(fields, " ")
}
