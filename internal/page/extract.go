package page

import (
	"strings"

	"golang.org/x/net/html"
)

// Extract converts an ordered block sequence into the single plain-text
// representation used for embedding. Each block with non-empty HTML
// contributes its text content (markup stripped) followed by a newline;
// blocks without HTML contribute nothing. The result is empty when no block
// contributed any text.
//
// Extract never fails: the html tokenizer degrades to best-effort text on
// malformed markup rather than returning an error.
func Extract(blocks []ContentBlock) string {
	var b strings.Builder
	for _, blk := range blocks {
		if blk.HTML == "" {
			continue
		}
		text := stripMarkup(blk.HTML)
		if text == "" {
			continue
		}
		b.WriteString(text)
		b.WriteString("\n")
	}
	return strings.TrimSpace(b.String())
}

// stripMarkup returns the concatenated text content of the fragment,
// skipping script and style elements.
func stripMarkup(fragment string) string {
	tok := html.NewTokenizer(strings.NewReader(fragment))
	var b strings.Builder
	skipDepth := 0
	for {
		switch tok.Next() {
		case html.ErrorToken:
			// io.EOF or a parse error; either way we keep what was extracted.
			return strings.TrimSpace(b.String())
		case html.StartTagToken:
			name, _ := tok.TagName()
			if rawTextTag(string(name)) {
				skipDepth++
			}
		case html.EndTagToken:
			name, _ := tok.TagName()
			if rawTextTag(string(name)) && skipDepth > 0 {
				skipDepth--
			}
		case html.TextToken:
			if skipDepth == 0 {
				b.Write(tok.Text())
			}
		}
	}
}

// rawTextTag reports whether the element's text content is not user-visible
// prose and should be excluded from extraction.
func rawTextTag(name string) bool {
	return name == "script" || name == "style"
}
