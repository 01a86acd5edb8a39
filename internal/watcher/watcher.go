package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Operation represents a file system operation type.
type Operation int

const (
	// OpCreate indicates the file was created.
	OpCreate Operation = iota
	// OpModify indicates the file was written.
	OpModify
	// OpDelete indicates the file was removed.
	OpDelete
	// OpRename indicates the file was renamed away.
	OpRename
)

// String returns a human-readable representation of the operation.
func (op Operation) String() string {
	switch op {
	case OpCreate:
		return "CREATE"
	case OpModify:
		return "MODIFY"
	case OpDelete:
		return "DELETE"
	case OpRename:
		return "RENAME"
	default:
		return "UNKNOWN"
	}
}

// FileEvent represents a change to the watched file or one of its sidecars.
type FileEvent struct {
	// Path is the absolute path of the changed file.
	Path string

	// Operation is the type of file system operation.
	Operation Operation

	// Timestamp is when the event was detected.
	Timestamp time.Time
}

// Options configures the watcher behavior.
type Options struct {
	// DebounceWindow is the quiet time before a batch of changes is reported.
	// Default: 2s
	DebounceWindow time.Duration
}

// DefaultOptions returns the default watcher options.
func DefaultOptions() Options {
	return Options{DebounceWindow: 2 * time.Second}
}

// WithDefaults returns options with defaults applied for zero values.
func (o Options) WithDefaults() Options {
	if o.DebounceWindow <= 0 {
		o.DebounceWindow = DefaultOptions().DebounceWindow
	}
	return o
}

// sidecarSuffixes are the files SQLite writes next to a database.
var sidecarSuffixes = []string{"", "-wal", "-journal", "-shm"}

// FileWatcher reports debounced changes of one database file.
type FileWatcher struct {
	fsWatcher *fsnotify.Watcher
	debouncer *Debouncer
	opts      Options

	mu      sync.Mutex
	stopped bool
}

// New creates a FileWatcher.
func New(opts Options) (*FileWatcher, error) {
	opts = opts.WithDefaults()

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}
	return &FileWatcher{
		fsWatcher: fsw,
		debouncer: NewDebouncer(opts.DebounceWindow),
		opts:      opts,
	}, nil
}

// Run watches path until ctx is done or Stop is called, calling fn once per
// debounced batch. Errors from fn are logged and watching continues.
func (w *FileWatcher) Run(ctx context.Context, path string, fn func(context.Context, []FileEvent) error) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve absolute path: %w", err)
	}
	if err := w.fsWatcher.Add(filepath.Dir(absPath)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(absPath), err)
	}

	slog.Info("watcher_started",
		slog.String("path", absPath),
		slog.Duration("debounce", w.opts.DebounceWindow))

	for {
		select {
		case <-ctx.Done():
			_ = w.Stop()
			return nil
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return nil
			}
			if fe, keep := convertEvent(absPath, event); keep {
				w.debouncer.Add(fe)
			}
		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return nil
			}
			slog.Warn("watcher_error", slog.String("error", err.Error()))
		case events, ok := <-w.debouncer.Output():
			if !ok {
				return nil
			}
			if len(events) == 0 {
				continue
			}
			slog.Debug("watcher_batch", slog.Int("events", len(events)))
			if err := fn(ctx, events); err != nil {
				slog.Error("watcher_handler_failed", slog.String("error", err.Error()))
			}
		}
	}
}

// convertEvent keeps events of the database and its sidecars.
func convertEvent(dbPath string, event fsnotify.Event) (FileEvent, bool) {
	if !IsDatabaseFile(dbPath, event.Name) {
		return FileEvent{}, false
	}

	var op Operation
	switch {
	case event.Op&fsnotify.Create != 0:
		op = OpCreate
	case event.Op&fsnotify.Write != 0:
		op = OpModify
	case event.Op&fsnotify.Remove != 0:
		op = OpDelete
	case event.Op&fsnotify.Rename != 0:
		op = OpRename
	default:
		return FileEvent{}, false
	}
	return FileEvent{Path: event.Name, Operation: op, Timestamp: time.Now()}, true
}

// IsDatabaseFile reports whether name is dbPath or one of its SQLite sidecars.
func IsDatabaseFile(dbPath, name string) bool {
	name = filepath.Clean(name)
	for _, suffix := range sidecarSuffixes {
		if name == dbPath+suffix {
			return true
		}
	}
	return strings.HasPrefix(name, dbPath+"-mj")
}

// Stop stops watching. Safe to call multiple times.
func (w *FileWatcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stopped {
		return nil
	}
	w.stopped = true
	w.debouncer.Stop()
	return w.fsWatcher.Close()
}
