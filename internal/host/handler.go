// Package host exposes the scripts filesystem, tree, code lenses, and runner
// to the editor frontend over a WebSocket bridge.
//
// Requests are JSON frames {id, op, params} answered by {id, ok, result} or
// {id, ok:false, error:{kind, message}}; the error kind is the classified
// taxonomy name so the editor's filesystem layer can map it back onto its own
// error types. Change events and refresh signals are pushed as unsolicited
// {event, ...} frames.
package host

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"path/filepath"
	"strings"

	"github.com/pindamonhangaba/vscode-database-client/internal/codelens"
	"github.com/pindamonhangaba/vscode-database-client/internal/history"
	"github.com/pindamonhangaba/vscode-database-client/internal/runner"
	"github.com/pindamonhangaba/vscode-database-client/internal/scriptfs"
	"github.com/pindamonhangaba/vscode-database-client/internal/sqlscan"
	"github.com/pindamonhangaba/vscode-database-client/internal/tree"
)

// Handler dispatches bridge operations onto the underlying components.
type Handler struct {
	tree   *tree.Tree
	lenses *codelens.Provider
	runner *runner.Runner
	hist   *history.Store
	logger *log.Logger
}

// NewHandler creates a handler. runner and hist may be nil when the daemon
// runs without connections or history.
func NewHandler(t *tree.Tree, r *runner.Runner, hist *history.Store, logger *log.Logger) *Handler {
	if logger == nil {
		logger = log.Default()
	}
	return &Handler{
		tree:   t,
		lenses: codelens.NewProvider(),
		runner: r,
		hist:   hist,
		logger: logger,
	}
}

// resolve maps a bridge path onto the scripts root. Relative paths resolve
// against the root; absolute paths must stay inside it.
func (h *Handler) resolve(path string) (string, error) {
	root := h.tree.Root()
	if path == "" || path == "." || path == "/" {
		return root, nil
	}

	abs := path
	if !filepath.IsAbs(abs) {
		abs = filepath.Join(root, abs)
	}
	abs = filepath.Clean(abs)

	if abs != root && !strings.HasPrefix(abs, root+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s is outside the scripts root", scriptfs.ErrPermission, path)
	}
	return abs, nil
}

type pathParams struct {
	Path string `json:"path"`
}

type writeParams struct {
	Path      string `json:"path"`
	Data      []byte `json:"data"`
	Create    bool   `json:"create"`
	Overwrite bool   `json:"overwrite"`
}

type renameParams struct {
	OldPath   string `json:"oldPath"`
	NewPath   string `json:"newPath"`
	Overwrite bool   `json:"overwrite"`
}

type textParams struct {
	Text string `json:"text"`
}

type runParams struct {
	Connection string `json:"connection"`
	Statement  string `json:"statement"`
}

type historyParams struct {
	Limit int `json:"limit"`
}

// Dispatch executes one operation and returns its JSON-marshalable result.
func (h *Handler) Dispatch(ctx context.Context, op string, params json.RawMessage) (any, error) {
	switch op {
	case "stat":
		var p pathParams
		if err := unmarshal(params, &p); err != nil {
			return nil, err
		}
		path, err := h.resolve(p.Path)
		if err != nil {
			return nil, err
		}
		return scriptfs.StatPath(path)

	case "readDirectory":
		var p pathParams
		if err := unmarshal(params, &p); err != nil {
			return nil, err
		}
		path, err := h.resolve(p.Path)
		if err != nil {
			return nil, err
		}
		return scriptfs.List(path)

	case "readFile":
		var p pathParams
		if err := unmarshal(params, &p); err != nil {
			return nil, err
		}
		path, err := h.resolve(p.Path)
		if err != nil {
			return nil, err
		}
		data, err := scriptfs.ReadFile(path)
		if err != nil {
			return nil, err
		}
		return map[string]any{"data": data}, nil

	case "writeFile":
		var p writeParams
		if err := unmarshal(params, &p); err != nil {
			return nil, err
		}
		path, err := h.resolve(p.Path)
		if err != nil {
			return nil, err
		}
		opts := scriptfs.WriteOptions{Create: p.Create, Overwrite: p.Overwrite}
		if err := scriptfs.WriteFile(path, p.Data, opts); err != nil {
			return nil, err
		}
		return okResult(), nil

	case "createDirectory":
		var p pathParams
		if err := unmarshal(params, &p); err != nil {
			return nil, err
		}
		path, err := h.resolve(p.Path)
		if err != nil {
			return nil, err
		}
		if err := scriptfs.CreateDirectory(path); err != nil {
			return nil, err
		}
		return okResult(), nil

	case "delete":
		var p pathParams
		if err := unmarshal(params, &p); err != nil {
			return nil, err
		}
		path, err := h.resolve(p.Path)
		if err != nil {
			return nil, err
		}
		if err := scriptfs.Delete(path); err != nil {
			return nil, err
		}
		return okResult(), nil

	case "rename":
		var p renameParams
		if err := unmarshal(params, &p); err != nil {
			return nil, err
		}
		oldPath, err := h.resolve(p.OldPath)
		if err != nil {
			return nil, err
		}
		newPath, err := h.resolve(p.NewPath)
		if err != nil {
			return nil, err
		}
		opts := scriptfs.RenameOptions{Overwrite: p.Overwrite}
		if err := scriptfs.Rename(oldPath, newPath, opts); err != nil {
			return nil, err
		}
		return okResult(), nil

	case "children":
		var p pathParams
		if err := unmarshal(params, &p); err != nil {
			return nil, err
		}
		var entry *scriptfs.Entry
		if p.Path != "" {
			path, err := h.resolve(p.Path)
			if err != nil {
				return nil, err
			}
			st, err := scriptfs.StatPath(path)
			if err != nil {
				return nil, err
			}
			entry = &scriptfs.Entry{Name: filepath.Base(path), Path: path, Type: st.Type}
		}
		return h.tree.Children(entry)

	case "item":
		var p pathParams
		if err := unmarshal(params, &p); err != nil {
			return nil, err
		}
		path, err := h.resolve(p.Path)
		if err != nil {
			return nil, err
		}
		st, err := scriptfs.StatPath(path)
		if err != nil {
			return nil, err
		}
		entry := scriptfs.Entry{Name: filepath.Base(path), Path: path, Type: st.Type}
		return h.tree.Item(entry), nil

	case "scan":
		var p textParams
		if err := unmarshal(params, &p); err != nil {
			return nil, err
		}
		return sqlscan.Scan(p.Text), nil

	case "lenses":
		var p textParams
		if err := unmarshal(params, &p); err != nil {
			return nil, err
		}
		return h.lenses.Lenses(p.Text), nil

	case "connections":
		if h.runner == nil {
			return []string{}, nil
		}
		return h.runner.Connections(), nil

	case "run":
		if h.runner == nil {
			return nil, fmt.Errorf("no connections configured")
		}
		var p runParams
		if err := unmarshal(params, &p); err != nil {
			return nil, err
		}
		blocks := sqlscan.Scan(p.Statement)
		if len(blocks) == 0 {
			return nil, fmt.Errorf("statement is empty")
		}
		return h.runner.Run(ctx, p.Connection, blocks[0])

	case "history":
		if h.hist == nil {
			return []history.Run{}, nil
		}
		var p historyParams
		if err := unmarshal(params, &p); err != nil {
			return nil, err
		}
		return h.hist.Recent(ctx, p.Limit)

	default:
		return nil, fmt.Errorf("unknown operation %q", op)
	}
}

func unmarshal(params json.RawMessage, v any) error {
	if len(params) == 0 {
		return nil
	}
	if err := json.Unmarshal(params, v); err != nil {
		return fmt.Errorf("invalid params: %w", err)
	}
	return nil
}

func okResult() map[string]bool {
	return map[string]bool{"done": true}
}
