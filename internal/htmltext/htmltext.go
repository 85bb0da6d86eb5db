// Package htmltext converts feed summary markup into plain text for the
// terminal.
package htmltext

import (
	"strings"

	xhtml "golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// blockElements end the current line when they open or close.
var blockElements = map[atom.Atom]bool{
	atom.P: true, atom.Div: true, atom.Br: true, atom.Li: true,
	atom.Ul: true, atom.Ol: true, atom.Tr: true, atom.Table: true,
	atom.H1: true, atom.H2: true, atom.H3: true, atom.H4: true, atom.H5: true, atom.H6: true,
	atom.Blockquote: true, atom.Pre: true, atom.Hr: true, atom.Section: true, atom.Article: true,
}

// skipElements have content that is never shown.
var skipElements = map[atom.Atom]bool{
	atom.Script: true, atom.Style: true, atom.Head: true, atom.Noscript: true, atom.Iframe: true,
}

// ToPlainText renders markup as plain text. Block elements become line
// breaks, list items get a bullet, runs of whitespace collapse, and at most
// one blank line separates paragraphs. Input without markup is returned
// with entities decoded and whitespace normalized.
func ToPlainText(markup string) string {
	if !strings.ContainsAny(markup, "<&") {
		return normalize(markup)
	}

	z := xhtml.NewTokenizer(strings.NewReader(markup))
	var b strings.Builder
	skipDepth := 0

	for {
		tt := z.Next()
		switch tt {
		case xhtml.ErrorToken:
			// io.EOF or malformed input; either way we keep what we have
			return normalize(b.String())

		case xhtml.TextToken:
			if skipDepth > 0 {
				continue
			}
			// Text is already entity-decoded by the tokenizer
			b.WriteString(strings.ReplaceAll(string(z.Text()), "\n", " "))

		case xhtml.StartTagToken, xhtml.SelfClosingTagToken:
			name, _ := z.TagName()
			a := atom.Lookup(name)
			if skipElements[a] {
				if tt == xhtml.StartTagToken {
					skipDepth++
				}
				continue
			}
			if blockElements[a] {
				b.WriteString("\n")
			}
			if a == atom.Li {
				b.WriteString("• ")
			}
			if a == atom.Img {
				if alt := attr(z, "alt"); alt != "" {
					b.WriteString("[" + alt + "]")
				}
			}

		case xhtml.EndTagToken:
			name, _ := z.TagName()
			a := atom.Lookup(name)
			if skipElements[a] {
				if skipDepth > 0 {
					skipDepth--
				}
				continue
			}
			if blockElements[a] && a != atom.Li {
				b.WriteString("\n")
			}
		}
	}
}

// attr returns the value of the named attribute of the current tag.
func attr(z *xhtml.Tokenizer, key string) string {
	for {
		k, v, more := z.TagAttr()
		if string(k) == key {
			return string(v)
		}
		if !more {
			return ""
		}
	}
}

// normalize collapses horizontal whitespace within lines and limits blank
// lines to one between paragraphs.
func normalize(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\u00a0", " ")

	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	blank := false
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line == "" {
			if len(out) > 0 && !blank {
				out = append(out, "")
			}
			blank = true
			continue
		}
		blank = false
		out = append(out, line)
	}

	for len(out) > 0 && out[len(out)-1] == "" {
		out = out[:len(out)-1]
	}
	return strings.Join(out, "\n")
}
