package scriptfs

import (
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// EventKind is the detected kind of a filesystem mutation.
type EventKind int

const (
	// Created indicates a path appeared under the watched root.
	Created EventKind = iota
	// Changed indicates an existing path's contents changed.
	Changed
	// Deleted indicates a path disappeared from the watched root.
	Deleted
)

// String returns a human-readable representation of the event kind.
func (k EventKind) String() string {
	switch k {
	case Created:
		return "created"
	case Changed:
		return "changed"
	case Deleted:
		return "deleted"
	default:
		return "unknown"
	}
}

// Event is one detected filesystem mutation: a kind plus the absolute path
// it applies to.
type Event struct {
	Kind EventKind `json:"kind"`
	Path string    `json:"path"`
}

// WatcherOptions configures a Watcher.
type WatcherOptions struct {
	// Recursive watches existing subdirectories of the root and any
	// directories created later.
	Recursive bool
	// Logger for watcher activity. Defaults to a stderr logger.
	Logger *log.Logger
}

// Watcher observes one root directory and emits classified change events to
// its subscriptions. It owns the underlying fsnotify handle exclusively and
// releases it exactly once on Close.
//
// Native notifications conflate create/delete/rename on several platforms,
// so the raw tag is never trusted for those: the watcher re-probes whether
// the path exists at event time and classifies Created or Deleted from the
// probe. A write-tagged notification is always Changed (a changed file must
// exist). The probe can race with a delete/recreate between notification and
// probe; that is accepted as best-effort, not a correctness guarantee.
type Watcher struct {
	fsw       *fsnotify.Watcher
	root      string
	recursive bool
	logger    *log.Logger

	mu     sync.Mutex
	subs   map[*Subscription]struct{}
	closed bool

	wg sync.WaitGroup
}

// Subscription is one consumer's handle on a watcher's event stream. Close
// guarantees no further delivery: once Close returns, neither channel
// receives another value for this subscription.
type Subscription struct {
	events chan Event
	errors chan error

	mu     sync.Mutex
	closed bool

	detach func(*Subscription)
}

// Events returns the channel carrying classified change events.
func (s *Subscription) Events() <-chan Event {
	return s.events
}

// Errors returns the channel carrying watcher errors.
func (s *Subscription) Errors() <-chan error {
	return s.errors
}

// Close detaches the subscription and closes its channels. Safe to call more
// than once. No event or error is delivered after Close returns: delivery
// holds the same lock, so a send in flight completes before Close proceeds
// and nothing is sent afterwards.
func (s *Subscription) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	close(s.events)
	close(s.errors)
	s.mu.Unlock()

	if s.detach != nil {
		s.detach(s)
	}
}

// emit delivers an event unless the subscription is closed. The lock is held
// across the send so Close cannot return while a delivery is in flight.
func (s *Subscription) emit(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.events <- ev:
	default:
		// Slow consumer; drop rather than block the watch loop.
	}
}

func (s *Subscription) emitErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.errors <- err:
	default:
	}
}

// NewWatcher starts watching root. The returned watcher delivers events to
// subscriptions created with Subscribe until Close is called.
func NewWatcher(root string, opts WatcherOptions) (*Watcher, error) {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(os.Stderr, "[watch] ", log.LstdFlags)
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve root %s: %w", root, err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	w := &Watcher{
		fsw:       fsw,
		root:      absRoot,
		recursive: opts.Recursive,
		logger:    logger,
		subs:      make(map[*Subscription]struct{}),
	}

	if err := fsw.Add(absRoot); err != nil {
		fsw.Close()
		return nil, Classify(absRoot, err)
	}

	if opts.Recursive {
		if err := w.addSubdirs(absRoot); err != nil {
			fsw.Close()
			return nil, err
		}
	}

	w.wg.Add(1)
	go w.loop()

	return w, nil
}

// Root returns the absolute path of the watched root.
func (w *Watcher) Root() string {
	return w.root
}

// Subscribe returns a new subscription on the watcher's event stream.
// Subscribing to a closed watcher returns a subscription whose channels
// never receive.
func (w *Watcher) Subscribe() *Subscription {
	sub := &Subscription{
		events: make(chan Event, 64),
		errors: make(chan error, 8),
		detach: w.remove,
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.closed {
		w.subs[sub] = struct{}{}
	} else {
		sub.closed = true
		close(sub.events)
		close(sub.errors)
	}
	return sub
}

// Close releases the native watch handle and closes every subscription. It
// blocks until the event loop has exited; after Close returns no
// subscription receives further events. Safe to call more than once.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	subs := make([]*Subscription, 0, len(w.subs))
	for sub := range w.subs {
		subs = append(subs, sub)
	}
	w.subs = make(map[*Subscription]struct{})
	w.mu.Unlock()

	err := w.fsw.Close()
	w.wg.Wait()

	for _, sub := range subs {
		sub.Close()
	}

	if err != nil {
		return fmt.Errorf("failed to close watcher: %w", err)
	}
	return nil
}

func (w *Watcher) remove(sub *Subscription) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.subs, sub)
}

// addSubdirs registers watches for every existing directory under root.
func (w *Watcher) addSubdirs(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return Classify(path, err)
		}
		if d.IsDir() && path != root {
			if err := w.fsw.Add(path); err != nil {
				return fmt.Errorf("failed to watch %s: %w", path, err)
			}
		}
		return nil
	})
}

// loop drains the fsnotify channels, classifies each native notification,
// and fans events out to the live subscriptions.
func (w *Watcher) loop() {
	defer w.wg.Done()

	for {
		select {
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if event, ok := w.classify(ev); ok {
				w.fanout(event)
			}

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.mu.Lock()
			subs := make([]*Subscription, 0, len(w.subs))
			for sub := range w.subs {
				subs = append(subs, sub)
			}
			w.mu.Unlock()
			for _, sub := range subs {
				sub.emitErr(err)
			}
		}
	}
}

// classify turns a native notification into an Event. Write-tagged
// notifications are Changed unconditionally; create/rename/remove tags are
// disambiguated by probing whether the path currently exists.
func (w *Watcher) classify(ev fsnotify.Event) (Event, bool) {
	path := ev.Name
	if !filepath.IsAbs(path) {
		path = filepath.Join(w.root, path)
	}

	switch {
	case ev.Has(fsnotify.Write):
		return Event{Kind: Changed, Path: path}, true

	case ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename) || ev.Has(fsnotify.Remove):
		info, err := os.Lstat(path)
		if err != nil {
			return Event{Kind: Deleted, Path: path}, true
		}
		if w.recursive && info.IsDir() {
			if err := w.fsw.Add(path); err != nil {
				w.logger.Printf("failed to watch new directory %s: %v", path, err)
			}
		}
		return Event{Kind: Created, Path: path}, true

	default:
		// Chmod and anything else carries no tree-visible change.
		return Event{}, false
	}
}

func (w *Watcher) fanout(ev Event) {
	w.mu.Lock()
	subs := make([]*Subscription, 0, len(w.subs))
	for sub := range w.subs {
		subs = append(subs, sub)
	}
	w.mu.Unlock()

	for _, sub := range subs {
		sub.emit(ev)
	}
}
