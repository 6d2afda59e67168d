package reload

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/gogpu/shader"
	"github.com/gogpu/shader/shaderfile"
)

// DefaultDebounce is the quiet period after the last file event before a
// reload runs. Editors often write a file in several steps.
const DefaultDebounce = 100 * time.Millisecond

// Watcher errors.
var (
	ErrRunning = errors.New("reload: watcher already running")
	ErrClosed  = errors.New("reload: watcher closed")
)

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets the quiet period before a reload. Zero reloads on the
// first event.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) { w.debounce = d }
}

// WithLogger sets the watcher's logger. The default is shader.Logger().
func WithLogger(l *slog.Logger) Option {
	return func(w *Watcher) { w.logger = l }
}

// OnReload registers a callback run after a successful reload, with the
// watcher lock held. The previous shader is already destroyed.
func OnReload(fn func(*shader.Shader)) Option {
	return func(w *Watcher) { w.onReload = fn }
}

// OnError registers a callback run when a reload fails. The previous
// shader stays current.
func OnError(fn func(error)) Option {
	return func(w *Watcher) { w.onError = fn }
}

// Watcher keeps one Shader in sync with its description file and the
// stage files it references.
type Watcher struct {
	path     string
	device   shader.Device
	debounce time.Duration
	logger   *slog.Logger
	onReload func(*shader.Shader)
	onError  func(error)

	mu      sync.Mutex
	current *shader.Shader
	files   map[string]bool // cleaned paths that trigger a reload
	dirs    map[string]bool // watched directories
	fsw     *fsnotify.Watcher
	running bool
	closed  bool
	stopCh  chan struct{}
	doneCh  chan struct{}
	reloads int
}

// New loads the description at path and initializes it on dev. It fails
// if the initial load fails; there is no previous shader to fall back on.
func New(path string, dev shader.Device, opts ...Option) (*Watcher, error) {
	w := &Watcher{
		path:     filepath.Clean(path),
		device:   dev,
		debounce: DefaultDebounce,
		logger:   shader.Logger(),
		files:    make(map[string]bool),
		dirs:     make(map[string]bool),
	}
	for _, opt := range opts {
		opt(w)
	}

	f, s, err := w.build()
	if err != nil {
		return nil, err
	}
	w.current = s
	w.track(f)
	return w, nil
}

// Start begins watching. It is non-blocking; the event loop runs until
// ctx is done or Stop is called. A watcher whose loop has ended can be
// started again.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrClosed
	}
	if w.running {
		return ErrRunning
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("reload: %w", err)
	}
	for dir := range w.dirs {
		if err := fsw.Add(dir); err != nil {
			_ = fsw.Close()
			return fmt.Errorf("reload: watch %s: %w", dir, err)
		}
	}

	w.fsw = fsw
	w.running = true
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})
	go w.run(ctx, fsw, w.stopCh, w.doneCh)

	w.logger.Debug("reload: watching", "path", w.path, "dirs", len(w.dirs))
	return nil
}

// Stop ends the event loop and waits for it. It does nothing if the
// watcher is not running. The current shader is kept.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	fsw, stopCh, doneCh := w.fsw, w.stopCh, w.doneCh
	w.fsw = nil
	w.mu.Unlock()

	close(stopCh)
	<-doneCh
	if err := fsw.Close(); err != nil {
		w.logger.Warn("reload: closing watcher", "err", err)
	}
	w.logger.Debug("reload: stopped", "path", w.path)
}

// Running reports whether the event loop is active.
func (w *Watcher) Running() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

// Close stops the watcher and destroys the current shader.
func (w *Watcher) Close() {
	w.Stop()

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	w.closed = true
	if w.current != nil {
		w.current.Destroy()
		w.current = nil
	}
}

// Current returns the current shader. It stays valid until the next
// successful reload; use Use to read it without racing a reload.
func (w *Watcher) Current() *shader.Shader {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.current
}

// Use runs fn with the current shader while holding the watcher lock.
func (w *Watcher) Use(fn func(*shader.Shader)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	fn(w.current)
}

// Reloads returns the number of successful reloads since New.
func (w *Watcher) Reloads() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.reloads
}

// Reload rebuilds the shader now. On failure the previous shader stays
// current and the error is returned and passed to OnError.
func (w *Watcher) Reload() error {
	f, s, err := w.build()

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		if s != nil {
			s.Destroy()
		}
		return ErrClosed
	}
	if err != nil {
		w.logger.Warn("reload: keeping previous shader", "path", w.path, "err", err)
		if w.onError != nil {
			w.onError(err)
		}
		return err
	}

	prev := w.current
	w.current = s
	w.reloads++
	if prev != nil {
		prev.Destroy()
	}
	w.track(f)
	w.logger.Info("reload: shader reloaded", "shader", s.Name(), "reloads", w.reloads)
	if w.onReload != nil {
		w.onReload(s)
	}
	return nil
}

// build loads the description and initializes a fresh shader from it.
func (w *Watcher) build() (*shaderfile.File, *shader.Shader, error) {
	f, err := shaderfile.Open(w.path)
	if err != nil {
		return nil, nil, err
	}
	s := shader.New(shader.WithDevice(w.device))
	if err := s.Initialize(f.Info); err != nil {
		return nil, nil, err
	}
	return f, s, nil
}

// track records the files of f and watches any new directory. Callers
// hold w.mu or have not published w yet.
func (w *Watcher) track(f *shaderfile.File) {
	clear(w.files)
	w.files[f.Path] = true
	for _, src := range f.Sources {
		w.files[src] = true
	}
	for path := range w.files {
		dir := filepath.Dir(path)
		if w.dirs[dir] {
			continue
		}
		w.dirs[dir] = true
		if w.fsw != nil {
			if err := w.fsw.Add(dir); err != nil {
				w.logger.Warn("reload: watch directory", "dir", dir, "err", err)
			}
		}
	}
}

// exited releases the state of a loop that ended without Stop, on context
// cancellation or a closed event channel.
func (w *Watcher) exited(fsw *fsnotify.Watcher) {
	w.mu.Lock()
	if !w.running || w.fsw != fsw {
		// Stopped; Stop closes fsw.
		w.mu.Unlock()
		return
	}
	w.running = false
	w.fsw = nil
	w.mu.Unlock()

	if err := fsw.Close(); err != nil {
		w.logger.Warn("reload: closing watcher", "err", err)
	}
	w.logger.Debug("reload: loop ended", "path", w.path)
}

func (w *Watcher) relevant(ev fsnotify.Event) bool {
	if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
		return false
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.files[filepath.Clean(ev.Name)]
}

func (w *Watcher) run(ctx context.Context, fsw *fsnotify.Watcher, stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer close(doneCh)
	defer w.exited(fsw)

	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-stopCh:
			return

		case ev, ok := <-fsw.Events:
			if !ok {
				return
			}
			if !w.relevant(ev) {
				continue
			}
			w.logger.Debug("reload: change", "file", ev.Name, "op", ev.Op.String())
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("reload: watcher error", "err", err)

		case <-fire:
			fire = nil
			_ = w.Reload()
		}
	}
}
