// Package watcher notifies the dashboard when the active data file changes
// on disk, so an edit from another terminal or a sync daemon shows up
// without restarting the TUI.
//
// fsnotify watches the file's parent directory rather than the file:
// editors and the JSONL writer save atomically via rename, which replaces
// the inode and would detach a watch on the file itself. On filesystems
// where inotify drops events (NFS, SMB, SSHFS, FUSE) the watcher falls
// back to periodic stat polling. GL_FORCE_POLLING=1 forces the fallback
// everywhere.
package watcher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/vanderheijden86/gramline/pkg/debug"
)

// DefaultPollInterval is how often fallback mode stats the file.
const DefaultPollInterval = 2 * time.Second

var (
	ErrFileRemoved    = errors.New("watched file was removed")
	ErrPermission     = errors.New("permission denied")
	ErrAlreadyStarted = errors.New("watcher already started")
)

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounceDuration sets the window inside which bursts of filesystem
// events collapse into one notification.
func WithDebounceDuration(d time.Duration) Option {
	return func(w *Watcher) { w.debounce = d }
}

// WithPollInterval sets the stat interval for fallback mode.
func WithPollInterval(d time.Duration) Option {
	return func(w *Watcher) { w.poll = d }
}

// WithOnChange sets the callback invoked after each debounced change.
func WithOnChange(fn func()) Option {
	return func(w *Watcher) { w.onChange = fn }
}

// WithOnError sets the callback invoked when watching fails.
func WithOnError(fn func(error)) Option {
	return func(w *Watcher) { w.onError = fn }
}

// WithForcePoll skips fsnotify and polls unconditionally.
func WithForcePoll(force bool) Option {
	return func(w *Watcher) { w.forcePoll = force }
}

// fileStamp is the polled identity of the file. A change in either field
// counts as a modification.
type fileStamp struct {
	mtime time.Time
	size  int64
}

// Watcher reports changes to one file through an OnChange callback and a
// buffered Changed channel. One Watcher serves one path.
type Watcher struct {
	path      string
	debounce  time.Duration
	poll      time.Duration
	onChange  func()
	onError   func(error)
	forcePoll bool

	mu      sync.RWMutex
	started bool
	polling bool
	fsType  FilesystemType
	last    fileStamp
	notify  *fsnotify.Watcher
	cancel  context.CancelFunc

	debouncer *Debouncer
	changes   chan struct{}
}

// NewWatcher prepares a watcher for path. Nothing runs until Start.
func NewWatcher(path string, opts ...Option) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		path:     abs,
		debounce: DefaultDebounceDuration,
		poll:     DefaultPollInterval,
		onChange: func() {},
		onError:  func(error) {},
		changes:  make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.debouncer = NewDebouncer(w.debounce)
	return w, nil
}

// Start begins delivery. The fsnotify-versus-polling decision is made
// fresh on every Start, so a watcher stopped and restarted against a
// different mount re-classifies its filesystem.
func (w *Watcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.started {
		return ErrAlreadyStarted
	}
	ctx, cancel := context.WithCancel(context.Background())
	w.cancel = cancel

	w.fsType = detectFilesystemTypeFunc(w.path)
	w.polling = w.forcePoll ||
		envBool("GL_FORCE_POLLING") || envBool("GL_FORCE_POLL") ||
		isRemoteFilesystem(w.fsType)

	info, err := os.Stat(w.path)
	switch {
	case err == nil:
		w.last = fileStamp{mtime: info.ModTime(), size: info.Size()}
	case os.IsPermission(err):
		return ErrPermission
	default:
		// Not on disk yet. The first write will be reported as a change.
		w.last = fileStamp{}
	}

	if !w.polling {
		if err := w.subscribe(); err != nil {
			debug.Log("watcher: inotify unavailable for %s (%v), polling instead", w.path, err)
			w.polling = true
		}
	}

	if w.polling {
		debug.Log("watcher: polling %s every %v (fs=%s)", w.path, w.poll, w.fsType)
		go w.runPoll(ctx)
	} else {
		debug.Log("watcher: inotify on %s (fs=%s)", w.path, w.fsType)
		go w.runEvents(ctx)
	}

	w.started = true
	return nil
}

// subscribe attaches fsnotify to the parent directory. Watching the
// directory keeps notifications flowing across atomic saves, which
// replace the file's inode.
func (w *Watcher) subscribe() error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := fsw.Add(filepath.Dir(w.path)); err != nil {
		fsw.Close()
		return err
	}
	w.notify = fsw
	return nil
}

// Stop halts delivery. The Changed channel stays open: a reader blocked
// on it belongs to the exiting program, and closing it would race with a
// concurrent fire.
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.started {
		return
	}
	w.cancel()
	if w.notify != nil {
		w.notify.Close()
		w.notify = nil
	}
	w.debouncer.Cancel()
	w.started = false
}

// IsPolling reports whether fallback polling is active.
func (w *Watcher) IsPolling() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.polling
}

// IsStarted reports whether the watcher is running.
func (w *Watcher) IsStarted() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.started
}

// Changed returns the notification channel. The buffer holds one pending
// change; further changes coalesce until the reader catches up.
func (w *Watcher) Changed() <-chan struct{} {
	return w.changes
}

// Path returns the absolute path being watched.
func (w *Watcher) Path() string {
	return w.path
}

// FilesystemType returns the classification the last Start made for the
// watched path.
func (w *Watcher) FilesystemType() FilesystemType {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.fsType
}

// PollInterval returns the stat interval used in fallback mode.
func (w *Watcher) PollInterval() time.Duration {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.poll
}

// envBool reports whether an environment variable holds an affirmative
// value (1, true, yes, y, on; any case).
func envBool(name string) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(name))) {
	case "1", "true", "yes", "y", "on":
		return true
	}
	return false
}

// runEvents consumes fsnotify events until the context ends or the
// underlying watcher closes.
func (w *Watcher) runEvents(ctx context.Context) {
	// Snapshot the pointer: Stop nils out w.notify, but the channels stay
	// valid until Close, which ends this loop via the closed-channel reads.
	w.mu.RLock()
	fsw := w.notify
	w.mu.RUnlock()
	if fsw == nil {
		return
	}

	base := filepath.Base(w.path)
	for {
		select {
		case <-ctx.Done():
			return

		case ev, ok := <-fsw.Events:
			if !ok {
				return
			}
			if filepath.Base(ev.Name) != base {
				continue // sibling file in the same directory
			}
			switch {
			case ev.Op&fsnotify.Remove != 0:
				w.onError(ErrFileRemoved)
			case ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0:
				w.debouncer.Trigger(w.fire)
			}

		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			w.onError(err)
		}
	}
}

// runPoll stats the file on a ticker until the context ends.
func (w *Watcher) runPoll(ctx context.Context) {
	tick := time.NewTicker(w.poll)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
			w.pollOnce()
		}
	}
}

// pollOnce reports a change when the file's mtime or size moved since the
// previous poll. Removal is reported once; the stamp then resets so a
// recreated file registers as a fresh change.
func (w *Watcher) pollOnce() {
	info, err := os.Stat(w.path)
	if err != nil {
		switch {
		case os.IsNotExist(err):
			w.mu.Lock()
			existed := !w.last.mtime.IsZero()
			w.last = fileStamp{}
			w.mu.Unlock()
			if existed {
				w.onError(ErrFileRemoved)
			}
		case os.IsPermission(err):
			w.onError(ErrPermission)
		default:
			w.onError(err)
		}
		return
	}

	now := fileStamp{mtime: info.ModTime(), size: info.Size()}
	w.mu.Lock()
	changed := now.mtime.After(w.last.mtime) || now.size != w.last.size
	if changed {
		w.last = now
	}
	w.mu.Unlock()

	if changed {
		w.debouncer.Trigger(w.fire)
	}
}

// fire delivers one debounced change: callback first, then a non-blocking
// channel send so a slow reader coalesces rather than queues.
func (w *Watcher) fire() {
	w.mu.RLock()
	live := w.started
	w.mu.RUnlock()
	if !live {
		// A timer can win the race against Cancel during Stop; callbacks
		// are idempotent so dropping the event here is enough.
		return
	}

	w.onChange()
	select {
	case w.changes <- struct{}{}:
	default:
	}
}
