package ingest

import (
	"context"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/hpungsan/asesor/internal/document"
	"github.com/hpungsan/asesor/internal/logging"
)

// Appender receives documents discovered at runtime.
type Appender interface {
	Add(docs ...document.Document)
}

// Event reports one ingested (or failed) file.
type Event struct {
	Path       string
	DocumentID string
	Err        error
}

// DefaultSettle is how long a file must go without events before it is ingested.
const DefaultSettle = 500 * time.Millisecond

// Watcher appends .txt/.md files created or written in a directory to a store.
// A file is ingested once it has been quiet for the settle period, so a file
// written in several chunks is appended once with its full content. Files are
// never deduplicated; rewriting a file later appends it again.
type Watcher struct {
	fs     *fsnotify.Watcher
	store  Appender
	logger *zap.Logger
	settle time.Duration

	mu     sync.Mutex
	timers map[string]*time.Timer
}

// NewWatcher creates a watcher feeding store.
func NewWatcher(store Appender, logger *zap.Logger) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		fs:     w,
		store:  store,
		logger: logging.OrNop(logger),
		settle: DefaultSettle,
		timers: make(map[string]*time.Timer),
	}, nil
}

// Watch starts monitoring dir. Each handled file produces one Event; the
// channel closes when ctx is cancelled or the watcher is stopped.
func (w *Watcher) Watch(ctx context.Context, dir string) (<-chan Event, error) {
	if err := w.fs.Add(dir); err != nil {
		return nil, err
	}

	events := make(chan Event, 100)
	ready := make(chan string)

	go func() {
		defer close(events)
		defer w.stopTimers()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-w.fs.Events:
				if !ok {
					return
				}
				if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
					continue
				}
				if !Supported(ev.Name) {
					continue
				}
				w.schedule(ctx, ev.Name, ready)
			case path := <-ready:
				out := w.ingest(path)
				if out.Err == nil && out.DocumentID == "" {
					// Still empty; a later write reschedules it
					continue
				}
				select {
				case events <- out:
				case <-ctx.Done():
					return
				}
			case err, ok := <-w.fs.Errors:
				if !ok {
					return
				}
				w.logger.Warn("watcher error", zap.Error(err))
			}
		}
	}()

	return events, nil
}

// schedule (re)starts the settle timer for path. When it fires the path is
// handed back to the watch loop through ready.
func (w *Watcher) schedule(ctx context.Context, path string, ready chan<- string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if t, ok := w.timers[path]; ok {
		t.Stop()
	}
	var t *time.Timer
	t = time.AfterFunc(w.settle, func() {
		w.mu.Lock()
		if w.timers[path] == t {
			delete(w.timers, path)
		}
		w.mu.Unlock()

		select {
		case ready <- path:
		case <-ctx.Done():
		}
	})
	w.timers[path] = t
}

func (w *Watcher) stopTimers() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for path, t := range w.timers {
		t.Stop()
		delete(w.timers, path)
	}
}

func (w *Watcher) ingest(path string) Event {
	doc, ok, err := LoadFile(path)
	if err != nil {
		w.logger.Warn("failed to ingest file", zap.String("path", path), zap.Error(err))
		return Event{Path: path, Err: err}
	}
	if !ok {
		return Event{Path: path}
	}
	w.store.Add(doc)
	w.logger.Info("document ingested", zap.String("path", path), zap.String("id", doc.ID))
	return Event{Path: path, DocumentID: doc.ID}
}

// Stop stops the watcher.
func (w *Watcher) Stop() error {
	return w.fs.Close()
}
