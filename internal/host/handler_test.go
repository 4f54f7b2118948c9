package host

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pindamonhangaba/vscode-database-client/internal/codelens"
	"github.com/pindamonhangaba/vscode-database-client/internal/history"
	"github.com/pindamonhangaba/vscode-database-client/internal/runner"
	"github.com/pindamonhangaba/vscode-database-client/internal/scriptfs"
	"github.com/pindamonhangaba/vscode-database-client/internal/tree"
)

func newTestHandler(t *testing.T) (*Handler, string) {
	t.Helper()
	root := t.TempDir()

	cfg := tree.DefaultConfig(root)
	cfg.Debounce = 20 * time.Millisecond
	tr, err := tree.New(cfg)
	if err != nil {
		t.Fatalf("tree.New() failed: %v", err)
	}
	t.Cleanup(func() { tr.Close() })

	return NewHandler(tr, nil, nil, nil), root
}

func dispatch(t *testing.T, h *Handler, op string, params any) any {
	t.Helper()
	raw, err := json.Marshal(params)
	if err != nil {
		t.Fatalf("marshal params: %v", err)
	}
	result, err := h.Dispatch(context.Background(), op, raw)
	if err != nil {
		t.Fatalf("Dispatch(%s) failed: %v", op, err)
	}
	return result
}

func dispatchErr(t *testing.T, h *Handler, op string, params any) error {
	t.Helper()
	raw, err := json.Marshal(params)
	if err != nil {
		t.Fatalf("marshal params: %v", err)
	}
	_, err = h.Dispatch(context.Background(), op, raw)
	if err == nil {
		t.Fatalf("Dispatch(%s) succeeded, want error", op)
	}
	return err
}

// TestDispatch_WriteReadStat exercises the file ops end to end.
func TestDispatch_WriteReadStat(t *testing.T) {
	h, _ := newTestHandler(t)

	dispatch(t, h, "writeFile", writeParams{
		Path:   "queries/a.sql",
		Data:   []byte("SELECT 1;"),
		Create: true,
	})

	result := dispatch(t, h, "readFile", pathParams{Path: "queries/a.sql"})
	payload := result.(map[string]any)["data"].([]byte)
	if string(payload) != "SELECT 1;" {
		t.Errorf("readFile = %q, want SELECT 1;", payload)
	}

	st := dispatch(t, h, "stat", pathParams{Path: "queries/a.sql"}).(scriptfs.Stat)
	if st.Type != scriptfs.TypeFile {
		t.Errorf("stat Type = %v, want TypeFile", st.Type)
	}
}

// TestDispatch_StatMissing verifies the error kind for a missing path.
func TestDispatch_StatMissing(t *testing.T) {
	h, _ := newTestHandler(t)

	err := dispatchErr(t, h, "stat", pathParams{Path: "nope.sql"})
	if scriptfs.ErrorKind(err) != "not_found" {
		t.Errorf("ErrorKind = %q, want not_found", scriptfs.ErrorKind(err))
	}
}

// TestDispatch_PathEscapeRejected verifies paths outside the root fail with
// the permission kind.
func TestDispatch_PathEscapeRejected(t *testing.T) {
	h, _ := newTestHandler(t)

	err := dispatchErr(t, h, "readFile", pathParams{Path: "../../etc/passwd"})
	if scriptfs.ErrorKind(err) != "permission" {
		t.Errorf("ErrorKind = %q, want permission", scriptfs.ErrorKind(err))
	}
}

// TestDispatch_ChildrenSorted verifies the children op returns presentation
// order.
func TestDispatch_ChildrenSorted(t *testing.T) {
	h, root := newTestHandler(t)

	if err := os.Mkdir(filepath.Join(root, "A"), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	for _, name := range []string{"b.sql", "a.sql"} {
		if err := os.WriteFile(filepath.Join(root, name), []byte("SELECT 1;"), 0644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}

	entries := dispatch(t, h, "children", pathParams{}).([]scriptfs.Entry)
	want := []string{"A", "a.sql", "b.sql"}
	if len(entries) != len(want) {
		t.Fatalf("children = %d entries, want %d", len(entries), len(want))
	}
	for i, name := range want {
		if entries[i].Name != name {
			t.Errorf("children[%d] = %q, want %q", i, entries[i].Name, name)
		}
	}
}

// TestDispatch_RenameDelete exercises rename and delete through the bridge.
func TestDispatch_RenameDelete(t *testing.T) {
	h, root := newTestHandler(t)

	dispatch(t, h, "writeFile", writeParams{Path: "old.sql", Data: []byte("SELECT 1;"), Create: true})
	dispatch(t, h, "rename", renameParams{OldPath: "old.sql", NewPath: "new.sql"})

	if _, err := os.Stat(filepath.Join(root, "new.sql")); err != nil {
		t.Errorf("renamed file missing: %v", err)
	}

	dispatch(t, h, "delete", pathParams{Path: "new.sql"})
	if _, err := os.Stat(filepath.Join(root, "new.sql")); !os.IsNotExist(err) {
		t.Errorf("file still present after delete")
	}
}

// TestDispatch_Lenses verifies the lenses op returns codelens annotations.
func TestDispatch_Lenses(t *testing.T) {
	h, _ := newTestHandler(t)

	lenses := dispatch(t, h, "lenses", textParams{Text: "SELECT 1;\nDELETE FROM t;"}).([]codelens.Lens)
	if len(lenses) != 3 {
		t.Fatalf("lenses = %d, want 3", len(lenses))
	}
	if lenses[0].Kind != codelens.KindRun || lenses[1].Kind != codelens.KindExplain {
		t.Errorf("lens kinds = %q,%q", lenses[0].Kind, lenses[1].Kind)
	}
}

// TestDispatch_RunAndHistory wires a runner and history store through the
// bridge ops.
func TestDispatch_RunAndHistory(t *testing.T) {
	root := t.TempDir()
	cfg := tree.DefaultConfig(root)
	tr, err := tree.New(cfg)
	if err != nil {
		t.Fatalf("tree.New() failed: %v", err)
	}
	defer tr.Close()

	hist, err := history.Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("history.Open() failed: %v", err)
	}
	defer hist.Close()

	conns := map[string]runner.Connection{
		"local": {Driver: "sqlite3", DSN: "file:" + filepath.Join(t.TempDir(), "dev.db")},
	}
	h := NewHandler(tr, runner.New(conns, hist, nil), hist, nil)

	names := dispatch(t, h, "connections", nil).([]string)
	if len(names) != 1 || names[0] != "local" {
		t.Errorf("connections = %v", names)
	}

	dispatch(t, h, "run", runParams{Connection: "local", Statement: "CREATE TABLE t (a INTEGER);"})
	result := dispatch(t, h, "run", runParams{Connection: "local", Statement: "SELECT 1 AS one;"}).(*runner.Result)
	if len(result.Rows) != 1 || result.Rows[0][0] != "1" {
		t.Errorf("run result = %+v", result)
	}

	runs := dispatch(t, h, "history", historyParams{Limit: 10}).([]history.Run)
	if len(runs) != 2 {
		t.Errorf("history = %d runs, want 2", len(runs))
	}
}

// TestDispatch_UnknownOp verifies unknown operations fail.
func TestDispatch_UnknownOp(t *testing.T) {
	h, _ := newTestHandler(t)

	if _, err := h.Dispatch(context.Background(), "format", nil); err == nil {
		t.Fatal("Dispatch(unknown op) succeeded, want error")
	}
}
