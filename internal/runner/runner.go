// Package runner executes statement blocks against named connections and
// records each run in the history store.
//
// The daemon embeds only sqlite; statements aimed at other drivers are
// rejected with a clear error, since real server connections live in the
// editor's connection layer, not here.
package runner

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/pindamonhangaba/vscode-database-client/internal/history"
	"github.com/pindamonhangaba/vscode-database-client/internal/sqlscan"
)

// Result is the outcome of one statement run.
type Result struct {
	// Columns and Rows carry query output; Rows values are stringified,
	// with NULL rendered as "NULL".
	Columns []string   `json:"columns,omitempty"`
	Rows    [][]string `json:"rows,omitempty"`
	// RowsAffected is set for non-query statements.
	RowsAffected int64 `json:"rowsAffected"`
	// Duration is the wall time of the statement.
	Duration time.Duration `json:"duration"`
}

// Runner executes blocks and records history.
type Runner struct {
	conns  map[string]Connection
	hist   *history.Store
	logger *log.Logger
}

// New creates a runner over the given connections. hist may be nil to skip
// history recording.
func New(conns map[string]Connection, hist *history.Store, logger *log.Logger) *Runner {
	if logger == nil {
		logger = log.New(os.Stderr, "[run] ", log.LstdFlags)
	}
	if conns == nil {
		conns = make(map[string]Connection)
	}
	return &Runner{conns: conns, hist: hist, logger: logger}
}

// Connections returns the names of the configured connections, sorted.
func (r *Runner) Connections() []string {
	return Names(r.conns)
}

// Run executes one statement block against the named connection. Query-type
// blocks return columns and rows; everything else returns the affected row
// count. The run is recorded in history whether it succeeds or fails.
func (r *Runner) Run(ctx context.Context, connName string, block sqlscan.Block) (*Result, error) {
	conn, ok := r.conns[connName]
	if !ok {
		return nil, fmt.Errorf("unknown connection %q", connName)
	}
	if conn.Driver != "sqlite3" {
		return nil, fmt.Errorf("driver %q is not embedded in the daemon; run %q through the editor connection", conn.Driver, connName)
	}

	started := time.Now()
	result, runErr := r.execute(ctx, conn, block)
	elapsed := time.Since(started)

	if r.hist != nil {
		rec := history.Run{
			Connection: connName,
			Statement:  block.Text,
			StartedAt:  started,
			Duration:   elapsed,
		}
		if runErr != nil {
			rec.Err = runErr.Error()
		} else if result.Rows != nil {
			rec.Rows = int64(len(result.Rows))
		} else {
			rec.Rows = result.RowsAffected
		}
		if _, err := r.hist.Record(ctx, rec); err != nil {
			r.logger.Printf("failed to record run: %v", err)
		}
	}

	if runErr != nil {
		return nil, runErr
	}
	result.Duration = elapsed
	return result, nil
}

func (r *Runner) execute(ctx context.Context, conn Connection, block sqlscan.Block) (*Result, error) {
	db, err := sql.Open("sqlite3", conn.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open connection: %w", err)
	}
	defer db.Close()

	if block.IsQuery() {
		return queryResult(ctx, db, block.Text)
	}

	res, err := db.ExecContext(ctx, block.Text)
	if err != nil {
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		affected = 0
	}
	return &Result{RowsAffected: affected}, nil
}

func queryResult(ctx context.Context, db *sql.DB, stmt string) (*Result, error) {
	rows, err := db.QueryContext(ctx, stmt)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read columns: %w", err)
	}

	result := &Result{Columns: cols, Rows: [][]string{}}
	values := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range values {
		ptrs[i] = &values[i]
	}

	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		row := make([]string, len(cols))
		for i, v := range values {
			row[i] = stringify(v)
		}
		result.Rows = append(result.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func stringify(v any) string {
	switch x := v.(type) {
	case nil:
		return "NULL"
	case []byte:
		return string(x)
	case time.Time:
		return x.Format(time.RFC3339)
	default:
		return fmt.Sprintf("%v", x)
	}
}
