package runner

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pindamonhangaba/vscode-database-client/internal/history"
	"github.com/pindamonhangaba/vscode-database-client/internal/sqlscan"
)

func testConnections(t *testing.T) map[string]Connection {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "dev.db")
	return map[string]Connection{
		"local":  {Driver: "sqlite3", DSN: "file:" + dbPath},
		"remote": {Driver: "postgres", DSN: "postgres://example/db"},
	}
}

func scanOne(t *testing.T, stmt string) sqlscan.Block {
	t.Helper()
	blocks := sqlscan.Scan(stmt)
	if len(blocks) != 1 {
		t.Fatalf("Scan(%q) returned %d blocks", stmt, len(blocks))
	}
	return blocks[0]
}

// TestRun_ExecAndQuery verifies DDL/DML execution and query output against
// the embedded driver.
func TestRun_ExecAndQuery(t *testing.T) {
	r := New(testConnections(t), nil, nil)
	ctx := context.Background()

	if _, err := r.Run(ctx, "local", scanOne(t, "CREATE TABLE users (id INTEGER, name TEXT);")); err != nil {
		t.Fatalf("Run(create) failed: %v", err)
	}

	res, err := r.Run(ctx, "local", scanOne(t, "INSERT INTO users VALUES (1, 'ada'), (2, NULL);"))
	if err != nil {
		t.Fatalf("Run(insert) failed: %v", err)
	}
	if res.RowsAffected != 2 {
		t.Errorf("RowsAffected = %d, want 2", res.RowsAffected)
	}

	res, err = r.Run(ctx, "local", scanOne(t, "SELECT id, name FROM users ORDER BY id;"))
	if err != nil {
		t.Fatalf("Run(select) failed: %v", err)
	}
	if len(res.Columns) != 2 || res.Columns[0] != "id" || res.Columns[1] != "name" {
		t.Errorf("Columns = %v", res.Columns)
	}
	if len(res.Rows) != 2 {
		t.Fatalf("Rows = %d, want 2", len(res.Rows))
	}
	if res.Rows[0][1] != "ada" {
		t.Errorf("row 0 name = %q, want ada", res.Rows[0][1])
	}
	if res.Rows[1][1] != "NULL" {
		t.Errorf("row 1 name = %q, want NULL", res.Rows[1][1])
	}
}

// TestRun_UnknownConnection verifies a clear error for a missing name.
func TestRun_UnknownConnection(t *testing.T) {
	r := New(testConnections(t), nil, nil)

	_, err := r.Run(context.Background(), "nope", scanOne(t, "SELECT 1;"))
	if err == nil || !strings.Contains(err.Error(), "unknown connection") {
		t.Errorf("Run(unknown) error = %v", err)
	}
}

// TestRun_NonEmbeddedDriver verifies non-sqlite drivers are rejected.
func TestRun_NonEmbeddedDriver(t *testing.T) {
	r := New(testConnections(t), nil, nil)

	_, err := r.Run(context.Background(), "remote", scanOne(t, "SELECT 1;"))
	if err == nil || !strings.Contains(err.Error(), "not embedded") {
		t.Errorf("Run(remote) error = %v", err)
	}
}

// TestRun_RecordsHistory verifies successes and failures both land in the
// history store.
func TestRun_RecordsHistory(t *testing.T) {
	hist, err := history.Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("history.Open() failed: %v", err)
	}
	defer hist.Close()

	r := New(testConnections(t), hist, nil)
	ctx := context.Background()

	if _, err := r.Run(ctx, "local", scanOne(t, "CREATE TABLE t (a INTEGER);")); err != nil {
		t.Fatalf("Run(create) failed: %v", err)
	}
	if _, err := r.Run(ctx, "local", scanOne(t, "SELECT * FROM missing;")); err == nil {
		t.Fatal("Run(bad select) succeeded, want error")
	}

	runs, err := hist.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent() failed: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("Recent() returned %d runs, want 2", len(runs))
	}
	if runs[0].Err == "" {
		t.Errorf("newest run Err = empty, want failure message")
	}
	if runs[1].Err != "" {
		t.Errorf("older run Err = %q, want empty", runs[1].Err)
	}
}

// TestLoadConnections verifies the TOML round trip.
func TestLoadConnections(t *testing.T) {
	path := filepath.Join(t.TempDir(), "connections.toml")
	content := `
[connections.local]
driver = "sqlite3"
dsn = "file:dev.db"

[connections.warehouse]
driver = "postgres"
dsn = "postgres://wh/analytics"
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write connections: %v", err)
	}

	conns, err := LoadConnections(path)
	if err != nil {
		t.Fatalf("LoadConnections() failed: %v", err)
	}
	if len(conns) != 2 {
		t.Fatalf("connections = %d, want 2", len(conns))
	}
	if conns["local"].Driver != "sqlite3" || conns["local"].DSN != "file:dev.db" {
		t.Errorf("local = %+v", conns["local"])
	}

	names := Names(conns)
	if len(names) != 2 || names[0] != "local" || names[1] != "warehouse" {
		t.Errorf("Names() = %v", names)
	}
}

// TestLoadConnections_Missing verifies a missing file fails.
func TestLoadConnections_Missing(t *testing.T) {
	_, err := LoadConnections(filepath.Join(t.TempDir(), "absent.toml"))
	if err == nil {
		t.Fatal("LoadConnections(missing) succeeded, want error")
	}
}
