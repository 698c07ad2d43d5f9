package dataset

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/dd0wney/cluso-semnet/pkg/logging"
)

// DefaultDebounce is how long a Watcher waits after the last change to a
// dataset file before reporting it.
const DefaultDebounce = 500 * time.Millisecond

// ChangeFunc is called once per settled change of the watched file.
type ChangeFunc func(ctx context.Context) error

// Watcher reports edits of a dataset file. It watches the containing
// directory so that editors replacing the file by rename are seen too.
type Watcher struct {
	path     string
	debounce time.Duration
	onChange ChangeFunc
	logger   logging.Logger
	watcher  *fsnotify.Watcher

	mu      sync.Mutex
	changes int
	failed  int
}

// NewWatcher watches path and calls onChange after each burst of writes.
func NewWatcher(path string, debounce time.Duration, onChange ChangeFunc, logger logging.Logger) (*Watcher, error) {
	if path == "" || path == BuiltinMedical {
		return nil, errors.New("dataset: the built-in base cannot be watched")
	}
	if onChange == nil {
		return nil, errors.New("dataset: change callback is required")
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fw.Add(filepath.Dir(abs)); err != nil {
		fw.Close()
		return nil, err
	}
	return &Watcher{
		path:     abs,
		debounce: debounce,
		onChange: onChange,
		logger:   logger.With(logging.Component("dataset-watcher"), logging.Path(abs)),
		watcher:  fw,
	}, nil
}

// Run delivers changes until ctx is cancelled, then closes the watcher.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.watcher.Close()

	timer := time.NewTimer(w.debounce)
	timer.Stop()

	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if !w.relevant(event) {
				continue
			}
			w.logger.Debug("dataset file event", logging.String("op", event.Op.String()))
			timer.Reset(w.debounce)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("dataset watcher error", logging.Error(err))

		case <-timer.C:
			w.fire(ctx)
		}
	}
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if filepath.Clean(event.Name) != w.path {
		return false
	}
	return event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) != 0
}

func (w *Watcher) fire(ctx context.Context) {
	err := w.onChange(ctx)

	w.mu.Lock()
	w.changes++
	if err != nil {
		w.failed++
	}
	w.mu.Unlock()

	if err != nil {
		w.logger.Error("dataset change not applied", logging.Error(err))
		return
	}
	w.logger.Info("dataset change applied")
}

// Stats returns the number of reported changes and how many of them the
// callback rejected.
func (w *Watcher) Stats() (changes, failed int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.changes, w.failed
}
