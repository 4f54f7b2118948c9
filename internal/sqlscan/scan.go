// Package sqlscan splits SQL source text into runnable statement blocks.
//
// The scanner works at the delimiter level only: it finds the top-level
// semicolons that separate statements while treating comments, string
// literals, quoted identifiers, and dollar-quoted bodies as opaque. It does
// not parse SQL grammar.
package sqlscan

import (
	"sort"
	"strings"
)

// Block is one runnable statement: its byte span in the document, the
// 0-based line/character range for editor decorations, and the raw text.
type Block struct {
	// Index is the 0-based position of the block in the document.
	Index int `json:"index"`
	// Start and End are byte offsets into the document, half-open.
	Start int `json:"start"`
	End   int `json:"end"`
	// StartLine/StartChar and EndLine/EndChar are 0-based editor positions.
	StartLine int `json:"startLine"`
	StartChar int `json:"startChar"`
	EndLine   int `json:"endLine"`
	EndChar   int `json:"endChar"`
	// Text is the statement text, including a trailing semicolon if present.
	Text string `json:"text"`
}

// LeadingKeyword returns the first bare word of the block, uppercased.
// Leading comments are already excluded from the block span.
func (b Block) LeadingKeyword() string {
	text := strings.TrimSpace(b.Text)
	end := 0
	for end < len(text) {
		c := text[end]
		if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c == '_' {
			end++
			continue
		}
		break
	}
	return strings.ToUpper(text[:end])
}

// IsQuery reports whether the block reads data rather than mutating it.
// Used to decide when an Explain lens makes sense.
func (b Block) IsQuery() bool {
	switch b.LeadingKeyword() {
	case "SELECT", "WITH", "SHOW", "DESCRIBE", "DESC", "EXPLAIN", "PRAGMA", "VALUES", "TABLE":
		return true
	default:
		return false
	}
}

// Scan splits text into statement blocks. Statements are separated by
// top-level semicolons; a trailing statement without a semicolon is still a
// block. Segments containing only whitespace and comments produce no block.
//
// Opaque regions: -- line comments, /* */ block comments (unnested),
// single-quoted strings with '' escaping, double-quoted and backtick-quoted
// identifiers, and $tag$ ... $tag$ dollar-quoted bodies.
func Scan(text string) []Block {
	var blocks []Block
	lines := lineIndex(text)

	n := len(text)
	start := -1 // offset of the current block's first significant byte
	end := -1   // offset just past the current block's last significant byte
	i := 0

	closeBlock := func(stop int) {
		if start < 0 {
			return
		}
		b := Block{
			Index: len(blocks),
			Start: start,
			End:   stop,
			Text:  text[start:stop],
		}
		b.StartLine, b.StartChar = position(lines, start)
		b.EndLine, b.EndChar = position(lines, stop)
		blocks = append(blocks, b)
		start, end = -1, -1
	}

	mark := func(stop int) {
		if start < 0 {
			start = i
		}
		end = stop
	}

	for i < n {
		c := text[i]

		// Line comment.
		if c == '-' && i+1 < n && text[i+1] == '-' {
			for i < n && text[i] != '\n' {
				i++
			}
			continue
		}

		// Block comment.
		if c == '/' && i+1 < n && text[i+1] == '*' {
			i += 2
			for i+1 < n && !(text[i] == '*' && text[i+1] == '/') {
				i++
			}
			if i+1 < n {
				i += 2
			} else {
				i = n
			}
			continue
		}

		// Whitespace outside opaque regions never starts a block.
		if c == ' ' || c == '\t' || c == '\r' || c == '\n' {
			i++
			continue
		}

		// Top-level statement separator. A separator with no significant
		// text before it (empty statement) produces no block.
		if c == ';' {
			if start >= 0 {
				end = i + 1
				closeBlock(end)
			}
			i++
			continue
		}

		// Single-quoted string, '' escapes a quote.
		if c == '\'' {
			j := i + 1
			for j < n {
				if text[j] == '\'' {
					if j+1 < n && text[j+1] == '\'' {
						j += 2
						continue
					}
					j++
					break
				}
				j++
			}
			mark(j)
			i = j
			continue
		}

		// Double-quoted or backtick-quoted identifier.
		if c == '"' || c == '`' {
			quote := c
			j := i + 1
			for j < n && text[j] != quote {
				j++
			}
			if j < n {
				j++
			}
			mark(j)
			i = j
			continue
		}

		// Dollar-quoted body: $tag$ ... $tag$ (tag may be empty).
		if c == '$' {
			if tag, ok := dollarTag(text[i:]); ok {
				if rel := strings.Index(text[i+len(tag):], tag); rel >= 0 {
					j := i + len(tag) + rel + len(tag)
					mark(j)
					i = j
					continue
				}
				// Unterminated dollar quote swallows the rest.
				mark(n)
				i = n
				continue
			}
		}

		mark(i + 1)
		i++
	}

	closeBlock(end)
	return blocks
}

// dollarTag returns the opening $tag$ delimiter at the start of s, if any.
func dollarTag(s string) (string, bool) {
	if len(s) < 2 || s[0] != '$' {
		return "", false
	}
	for j := 1; j < len(s); j++ {
		c := s[j]
		if c == '$' {
			return s[:j+1], true
		}
		if !((c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '_') {
			return "", false
		}
	}
	return "", false
}

// lineIndex returns the byte offset of the start of each line.
func lineIndex(text string) []int {
	starts := []int{0}
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			starts = append(starts, i+1)
		}
	}
	return starts
}

// position converts a byte offset to a 0-based (line, character) pair.
func position(lines []int, offset int) (int, int) {
	line := sort.Search(len(lines), func(i int) bool { return lines[i] > offset }) - 1
	return line, offset - lines[line]
}
