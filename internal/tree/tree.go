// Package tree keeps a sorted view of the scripts root consistent with the
// underlying directory, reacting to watcher events and root reconfiguration.
//
// The tree does not cache listings: a refresh signal tells the host view to
// re-query children, and each query lists the directory fresh. Listings may
// interleave with concurrent renames or deletes; callers get an eventually
// consistent view, never a serialized one.
package tree

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/pindamonhangaba/vscode-database-client/internal/scriptfs"
)

// Item is the displayable projection of one entry for the host tree view.
type Item struct {
	// Label is the text shown for the node.
	Label string `json:"label"`
	// Path is the absolute path backing the node.
	Path string `json:"path"`
	// Collapsible marks directory nodes.
	Collapsible bool `json:"collapsible"`
	// Context tags the node kind for host-side menus: "folder", "script",
	// "file", or "symlink".
	Context string `json:"context"`
	// Command names the host command to invoke on click, empty for none.
	Command string `json:"command,omitempty"`
}

// Config holds tree configuration.
type Config struct {
	// Root is the directory presented as the tree base.
	Root string

	// Recursive watches subdirectories of the root as well.
	Recursive bool

	// Debounce batches rapid change events into one refresh signal.
	Debounce time.Duration

	// Logger for tree activity.
	Logger *log.Logger
}

// DefaultConfig returns sensible defaults rooted at dir.
func DefaultConfig(dir string) Config {
	return Config{
		Root:     dir,
		Debounce: 100 * time.Millisecond,
		Logger:   log.New(os.Stderr, "[tree] ", log.LstdFlags),
	}
}

// Tree presents the sorted children of the active root and signals the host
// when the view must be re-queried. Exactly one root is active at a time;
// Reconfigure swaps it atomically, disposing the old watcher before events
// from the new root are considered.
type Tree struct {
	logger   *log.Logger
	debounce time.Duration
	coll     *collate.Collator

	mu        sync.Mutex
	root      string
	recursive bool
	watcher   *scriptfs.Watcher
	sub       *scriptfs.Subscription
	closed    bool

	refresh chan struct{}
	changes chan scriptfs.Event

	wg sync.WaitGroup
}

// New creates a tree rooted at cfg.Root and starts watching it. The root
// directory is created if missing so a fresh workspace starts with an empty
// tree rather than an error.
func New(cfg Config) (*Tree, error) {
	if cfg.Logger == nil {
		cfg.Logger = log.New(os.Stderr, "[tree] ", log.LstdFlags)
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = 100 * time.Millisecond
	}

	if err := scriptfs.CreateDirectory(cfg.Root); err != nil {
		return nil, fmt.Errorf("failed to prepare root %s: %w", cfg.Root, err)
	}

	t := &Tree{
		logger:   cfg.Logger,
		debounce: cfg.Debounce,
		coll:     collate.New(language.Und, collate.IgnoreCase),
		refresh:  make(chan struct{}, 1),
		changes:  make(chan scriptfs.Event, 64),
	}

	if err := t.attach(cfg.Root, cfg.Recursive); err != nil {
		return nil, err
	}
	return t, nil
}

// attach points the tree at root, replacing any active watcher. Callers must
// not hold t.mu.
func (t *Tree) attach(root string, recursive bool) error {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return fmt.Errorf("failed to resolve root %s: %w", root, err)
	}

	w, err := scriptfs.NewWatcher(absRoot, scriptfs.WatcherOptions{
		Recursive: recursive,
		Logger:    t.logger,
	})
	if err != nil {
		return err
	}
	sub := w.Subscribe()

	t.mu.Lock()
	oldWatcher := t.watcher
	oldSub := t.sub
	t.root = absRoot
	t.recursive = recursive
	t.watcher = w
	t.sub = sub
	t.mu.Unlock()

	// Dispose the previous watch before events from the new root count;
	// Close guarantees the old subscription delivers nothing afterwards.
	if oldSub != nil {
		oldSub.Close()
	}
	if oldWatcher != nil {
		if err := oldWatcher.Close(); err != nil {
			t.logger.Printf("error closing previous watcher: %v", err)
		}
	}

	t.wg.Add(1)
	go t.pump(sub)

	return nil
}

// Reconfigure swaps the active root at runtime. The old watcher is disposed
// and a new one issued against the new root before further change events are
// considered valid; a refresh is signalled so the host re-queries from the
// new base.
func (t *Tree) Reconfigure(root string, recursive bool) error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return fmt.Errorf("tree is closed")
	}
	same := t.root == root && t.recursive == recursive
	t.mu.Unlock()
	if same {
		return nil
	}

	if err := scriptfs.CreateDirectory(root); err != nil {
		return fmt.Errorf("failed to prepare root %s: %w", root, err)
	}
	if err := t.attach(root, recursive); err != nil {
		return err
	}

	t.logger.Printf("root changed to %s", root)
	t.signalRefresh()
	return nil
}

// Root returns the active root directory.
func (t *Tree) Root() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.root
}

// Refresh returns a coalesced signal channel: a receive means the tree may
// have changed and children should be re-queried.
func (t *Tree) Refresh() <-chan struct{} {
	return t.refresh
}

// Changes returns the stream of individual change events, debounce-batched.
// Slow consumers lose events but never miss the accompanying refresh signal.
func (t *Tree) Changes() <-chan scriptfs.Event {
	return t.changes
}

// Children lists the immediate children of entry, or of the root when entry
// is nil, in presentation order: directories first, then files, each group
// sorted case-insensitively by name with locale-aware collation. Per-child
// stat failures propagate.
func (t *Tree) Children(entry *scriptfs.Entry) ([]scriptfs.Entry, error) {
	dir := t.Root()
	if entry != nil {
		if !entry.IsDir() {
			return nil, nil
		}
		dir = entry.Path
	}

	entries, err := scriptfs.List(dir)
	if err != nil {
		return nil, err
	}

	sort.SliceStable(entries, func(i, j int) bool {
		di, dj := entries[i].IsDir(), entries[j].IsDir()
		if di != dj {
			return di
		}
		return t.coll.CompareString(entries[i].Name, entries[j].Name) < 0
	})
	return entries, nil
}

// Item returns the displayable projection of one entry.
func (t *Tree) Item(entry scriptfs.Entry) Item {
	item := Item{
		Label:       entry.Name,
		Path:        entry.Path,
		Collapsible: entry.IsDir(),
	}

	switch entry.Type {
	case scriptfs.TypeDirectory:
		item.Context = "folder"
	case scriptfs.TypeSymbolicLink:
		item.Context = "symlink"
	case scriptfs.TypeFile:
		if strings.EqualFold(filepath.Ext(entry.Name), ".sql") {
			item.Context = "script"
			item.Command = "openScript"
		} else {
			item.Context = "file"
		}
	default:
		item.Context = "file"
	}
	return item
}

// Close disposes the active watcher and stops all signalling.
func (t *Tree) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	sub := t.sub
	w := t.watcher
	t.sub = nil
	t.watcher = nil
	t.mu.Unlock()

	if sub != nil {
		sub.Close()
	}
	var err error
	if w != nil {
		err = w.Close()
	}
	t.wg.Wait()
	return err
}

// pump forwards one subscription's events into the tree's outward channels,
// batching bursts into a single refresh signal. It exits when the
// subscription stops delivering (root swap or close).
func (t *Tree) pump(sub *scriptfs.Subscription) {
	defer t.wg.Done()

	var timer *time.Timer
	var timerC <-chan time.Time
	pending := 0

	for {
		select {
		case ev, ok := <-sub.Events():
			if !ok {
				return
			}
			select {
			case t.changes <- ev:
			default:
			}
			pending++
			if timer == nil {
				timer = time.NewTimer(t.debounce)
				timerC = timer.C
			}

		case <-timerC:
			if pending > 0 {
				t.signalRefresh()
			}
			pending = 0
			timer = nil
			timerC = nil

		case err, ok := <-sub.Errors():
			if !ok {
				return
			}
			t.logger.Printf("watch error: %v", err)
		}
	}
}

func (t *Tree) signalRefresh() {
	select {
	case t.refresh <- struct{}{}:
	default:
	}
}
