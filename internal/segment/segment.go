// Package segment splits extracted book text into sentence-bounded,
// character-budgeted chunks and renders each as prosody markup, grounded
// in behavior on original_source/services/segmenter/main.py's TODO
// (spaCy sentence tokenization, 800-char chunking, SSML generation) and
// implemented with github.com/clipperhouse/uax29/v2's UAX#29 sentence
// boundary detector instead of a Python NLP model.
package segment

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/clipperhouse/uax29/v2/sentences"
)

// Chunk is one packed unit of sentences: its metadata record plus the
// rendered SSML markup, per the filesystem layout in §6.
type Chunk struct {
	Seq       int
	Text      string
	CharCount int
	Markup    string
}

// DefaultBudget is CHUNK_SIZE_CHARS's documented default.
const DefaultBudget = 800

// Split tokenizes text into sentences and greedily packs them into chunks
// whose character count (including inter-sentence spaces) does not
// exceed budget. A sentence individually exceeding budget is kept whole
// as its own chunk, never split mid-sentence.
func Split(text string, budget int) []Chunk {
	if budget <= 0 {
		budget = DefaultBudget
	}

	var allSentences []string
	tokens := sentences.FromString(text)
	for tokens.Next() {
		s := strings.TrimSpace(tokens.Value())
		if s != "" {
			allSentences = append(allSentences, s)
		}
	}

	var chunks []Chunk
	var current []string
	currentLen := 0
	seq := 0

	flush := func() {
		if len(current) == 0 {
			return
		}
		text := strings.Join(current, " ")
		chunks = append(chunks, Chunk{
			Seq:       seq,
			Text:      text,
			CharCount: utf8.RuneCountInString(text),
			Markup:    renderSSML(current),
		})
		seq++
		current = nil
		currentLen = 0
	}

	for _, s := range allSentences {
		addLen := utf8.RuneCountInString(s)
		if currentLen > 0 {
			addLen++ // inter-sentence space
		}
		if currentLen > 0 && currentLen+addLen > budget {
			flush()
			addLen = utf8.RuneCountInString(s)
		}
		current = append(current, s)
		currentLen += addLen
	}
	flush()

	return chunks
}

// renderSSML wraps each sentence in <s>...</s>, joined by 0.3s breaks,
// inside one <speak> root, per §4.4.
func renderSSML(sents []string) string {
	var sb strings.Builder
	sb.WriteString("<speak>")
	for i, s := range sents {
		if i > 0 {
			sb.WriteString(`<break time="0.3s"/>`)
		}
		fmt.Fprintf(&sb, "<s>%s</s>", escapeSSML(s))
	}
	sb.WriteString("</speak>")
	return sb.String()
}

func escapeSSML(s string) string {
	r := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
	return r.Replace(s)
}
