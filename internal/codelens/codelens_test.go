package codelens

import (
	"testing"
)

// TestLenses_RunOnEveryBlock verifies each statement gets a Run lens.
func TestLenses_RunOnEveryBlock(t *testing.T) {
	doc := "INSERT INTO t VALUES (1);\nINSERT INTO t VALUES (2);"

	lenses := NewProvider().Lenses(doc)
	if len(lenses) != 2 {
		t.Fatalf("Lenses() returned %d, want 2", len(lenses))
	}

	for i, l := range lenses {
		if l.Kind != KindRun {
			t.Errorf("lens %d Kind = %q, want %q", i, l.Kind, KindRun)
		}
		if l.BlockIndex != i {
			t.Errorf("lens %d BlockIndex = %d, want %d", i, l.BlockIndex, i)
		}
	}
}

// TestLenses_ExplainOnQueries verifies query blocks get a second Explain lens
// sharing the Run lens range.
func TestLenses_ExplainOnQueries(t *testing.T) {
	doc := "SELECT * FROM t;\nDELETE FROM t;"

	lenses := NewProvider().Lenses(doc)
	if len(lenses) != 3 {
		t.Fatalf("Lenses() returned %d, want 3 (run+explain, run)", len(lenses))
	}

	if lenses[0].Kind != KindRun || lenses[1].Kind != KindExplain {
		t.Errorf("first block lenses = %q,%q, want run,explain", lenses[0].Kind, lenses[1].Kind)
	}
	if lenses[0].Range != lenses[1].Range {
		t.Errorf("Explain range %+v differs from Run range %+v", lenses[1].Range, lenses[0].Range)
	}
	if lenses[2].Kind != KindRun {
		t.Errorf("second block lens = %q, want run", lenses[2].Kind)
	}
	if lenses[2].BlockIndex != 1 {
		t.Errorf("second block BlockIndex = %d, want 1", lenses[2].BlockIndex)
	}
}

// TestLenses_Ranges verifies lens ranges track statement positions.
func TestLenses_Ranges(t *testing.T) {
	doc := "-- header comment\nSELECT 1;\n\nUPDATE t SET a = 2;"

	lenses := NewProvider().Lenses(doc)
	if len(lenses) != 3 {
		t.Fatalf("Lenses() returned %d, want 3", len(lenses))
	}

	// First statement starts after the comment line.
	if lenses[0].Range.StartLine != 1 {
		t.Errorf("first Run StartLine = %d, want 1", lenses[0].Range.StartLine)
	}
	// UPDATE block is the last lens.
	last := lenses[len(lenses)-1]
	if last.Range.StartLine != 3 {
		t.Errorf("UPDATE StartLine = %d, want 3", last.Range.StartLine)
	}
	if last.Statement != "UPDATE t SET a = 2;" {
		t.Errorf("Statement = %q", last.Statement)
	}
}

// TestLenses_EmptyDocument verifies comment-only documents produce no lenses.
func TestLenses_EmptyDocument(t *testing.T) {
	for _, doc := range []string{"", "   \n\t", "-- nothing here\n/* or here */"} {
		if lenses := NewProvider().Lenses(doc); len(lenses) != 0 {
			t.Errorf("Lenses(%q) = %d lenses, want 0", doc, len(lenses))
		}
	}
}
