package extract

import (
	"archive/zip"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// sanitizePolicy strips scripting and styling markup from EPUB content
// documents before the node walk below even sees them — a defense-in-depth
// pass against malformed or hostile markup (onclick handlers, <iframe>,
// <script> smuggled past the skipTags walk via parser quirks) ahead of the
// SSML markup this text eventually feeds. Grounded on hazyhaar-chrc/go.mod's
// direct bluemonday dependency.
var sanitizePolicy = bluemonday.UGCPolicy()

// skipTags are subtrees whose visible text must never be emitted,
// grounded on hazyhaar-chrc/docpipe/html.go's node-walk skip list.
var skipTags = map[atom.Atom]bool{
	atom.Script:   true,
	atom.Style:    true,
	atom.Noscript: true,
	atom.Nav:      true,
	atom.Footer:   true,
	atom.Head:     true,
}

// extractEPUB iterates an EPUB's content documents sorted by file name,
// strips script/style subtrees, and concatenates visible text with
// paragraph breaks between items — replacing content-service/document_chunker.go's
// ExtractTextFromEPUB, which string-searched the raw zip instead of
// parsing the HTML tree.
func extractEPUB(path string) (string, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return "", err
	}
	defer r.Close()

	var docs []*zip.File
	for _, f := range r.File {
		lower := strings.ToLower(f.Name)
		if strings.HasSuffix(lower, ".xhtml") || strings.HasSuffix(lower, ".html") || strings.HasSuffix(lower, ".htm") {
			docs = append(docs, f)
		}
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].Name < docs[j].Name })

	var sb strings.Builder
	for _, f := range docs {
		text, err := extractContentDocument(f)
		if err != nil {
			continue
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		sb.WriteString(text)
		sb.WriteString("\n\n")
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("no content documents found in %s", path)
	}
	return strings.TrimSpace(sb.String()), nil
}

func extractContentDocument(f *zip.File) (string, error) {
	rc, err := f.Open()
	if err != nil {
		return "", err
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return "", err
	}

	sanitized := sanitizePolicy.Sanitize(string(data))

	doc, err := html.Parse(strings.NewReader(sanitized))
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	collectVisibleText(doc, &sb)
	return sb.String(), nil
}

// collectVisibleText walks the node tree depth-first, skipping script/
// style/noscript/nav/footer/head subtrees and emitting a paragraph break
// after block-level elements.
func collectVisibleText(n *html.Node, sb *strings.Builder) {
	if n.Type == html.ElementNode && skipTags[n.DataAtom] {
		return
	}
	if n.Type == html.TextNode {
		text := strings.TrimSpace(n.Data)
		if text != "" {
			if sb.Len() > 0 {
				sb.WriteByte(' ')
			}
			sb.WriteString(text)
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectVisibleText(c, sb)
	}
	if n.Type == html.ElementNode {
		switch n.DataAtom {
		case atom.P, atom.Div, atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6, atom.Li, atom.Br:
			sb.WriteString("\n\n")
		}
	}
}
