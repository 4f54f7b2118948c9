// Package codelens turns the statement blocks of a SQL document into code
// lens annotations for the editor: a Run lens on every runnable block, plus
// an Explain lens on blocks that read data.
package codelens

import (
	"github.com/pindamonhangaba/vscode-database-client/internal/sqlscan"
)

// Kind names the action a lens offers.
type Kind string

const (
	// KindRun executes the statement block.
	KindRun Kind = "run"
	// KindExplain shows the query plan for a read-only block.
	KindExplain Kind = "explain"
)

// Range is a 0-based line/character span in the document.
type Range struct {
	StartLine int `json:"startLine"`
	StartChar int `json:"startChar"`
	EndLine   int `json:"endLine"`
	EndChar   int `json:"endChar"`
}

// Lens is one code lens: the action kind, its title, the range it decorates,
// and the statement it applies to.
type Lens struct {
	Kind  Kind   `json:"kind"`
	Title string `json:"title"`
	Range Range  `json:"range"`
	// BlockIndex points at the statement block the lens belongs to.
	BlockIndex int `json:"blockIndex"`
	// Statement is the raw statement text the action runs.
	Statement string `json:"statement"`
}

// Provider produces lenses for SQL documents.
type Provider struct{}

// NewProvider returns a code lens provider.
func NewProvider() *Provider {
	return &Provider{}
}

// Lenses scans the document text and returns its lenses in document order.
// Every block gets a Run lens; query blocks additionally get an Explain lens
// on the same range.
func (p *Provider) Lenses(text string) []Lens {
	blocks := sqlscan.Scan(text)
	lenses := make([]Lens, 0, len(blocks))

	for _, b := range blocks {
		r := Range{
			StartLine: b.StartLine,
			StartChar: b.StartChar,
			EndLine:   b.EndLine,
			EndChar:   b.EndChar,
		}
		lenses = append(lenses, Lens{
			Kind:       KindRun,
			Title:      "▶ Run SQL",
			Range:      r,
			BlockIndex: b.Index,
			Statement:  b.Text,
		})
		if b.IsQuery() {
			lenses = append(lenses, Lens{
				Kind:       KindExplain,
				Title:      "Explain",
				Range:      r,
				BlockIndex: b.Index,
				Statement:  b.Text,
			})
		}
	}
	return lenses
}
