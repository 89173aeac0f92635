package gen

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long the watcher waits after the last event of a
// burst before regenerating.
const DefaultDebounce = 100 * time.Millisecond

// Watcher regenerates a pipeline's outputs when its resource files change.
// Events are coalesced by a single timer that every event resets; the timer
// firing is the only trigger of a run. Run errors are logged and the watcher
// keeps going.
type Watcher struct {
	pipeline  *Pipeline
	watcher   *fsnotify.Watcher
	debouncer *debouncer
	logger    *slog.Logger
	onRun     func(Result, error)

	stop chan struct{}
	wg   sync.WaitGroup
}

// NewWatcher returns a watcher for p with the default debounce delay.
func NewWatcher(p *Pipeline) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create file watcher: %w", err)
	}
	w := &Watcher{
		pipeline: p,
		watcher:  fw,
		logger:   p.log(),
		stop:     make(chan struct{}),
	}
	w.debouncer = newDebouncer(DefaultDebounce, w.flush)
	return w, nil
}

// WithDebounce sets the debounce delay.
func (w *Watcher) WithDebounce(d time.Duration) *Watcher {
	w.debouncer.delay = d
	return w
}

// OnRun sets a function called after every run.
func (w *Watcher) OnRun(fn func(Result, error)) *Watcher {
	w.onRun = fn
	return w
}

// Start watches the pipeline directory in the background.
func (w *Watcher) Start() error {
	if err := w.watcher.Add(w.pipeline.Dir()); err != nil {
		return fmt.Errorf("watch %s: %w", w.pipeline.Dir(), err)
	}
	w.logger.Info("watching resources", slog.String("dir", w.pipeline.Dir()))
	w.wg.Add(1)
	go w.loop()
	return nil
}

// Stop ends watching. Pending events are dropped; a run already in progress
// finishes before Stop returns.
func (w *Watcher) Stop() error {
	select {
	case <-w.stop:
		return nil
	default:
		close(w.stop)
	}
	w.wg.Wait()
	w.debouncer.stop()
	return w.watcher.Close()
}

// Run starts the watcher and blocks until ctx is done.
func (w *Watcher) Run(ctx context.Context) error {
	if err := w.Start(); err != nil {
		return err
	}
	<-ctx.Done()
	return w.Stop()
}

func (w *Watcher) loop() {
	defer w.wg.Done()
	for {
		select {
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !w.relevant(ev) {
				continue
			}
			w.logger.Debug("resource file event", slog.String("file", ev.Name), slog.String("op", ev.Op.String()))
			w.debouncer.add(ev.Name)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("watch error", slog.Any("error", err))

		case <-w.stop:
			return
		}
	}
}

func (w *Watcher) relevant(ev fsnotify.Event) bool {
	base := filepath.Base(ev.Name)
	if strings.HasPrefix(base, ".") || !strings.HasSuffix(base, w.pipeline.Suffix()) {
		return false
	}
	return ev.Has(fsnotify.Create) || ev.Has(fsnotify.Write) || ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename)
}

func (w *Watcher) flush(files []string) {
	res, err := w.pipeline.Update(context.Background(), files)
	if err != nil {
		w.logger.Error("generation failed", slog.Any("error", err))
	} else if len(res.Written) > 0 || len(res.Scaffolded) > 0 || len(res.Synced) > 0 {
		w.logger.Info("regenerated resources",
			slog.Int("resources", len(res.Resources)),
			slog.Any("written", res.Written))
	}
	if w.onRun != nil {
		w.onRun(res, err)
	}
}

// debouncer collects file names and hands them over once no new name has
// arrived for delay.
type debouncer struct {
	delay time.Duration
	fn    func([]string)

	mu      sync.Mutex
	timer   *time.Timer
	files   map[string]struct{}
	stopped bool
	running sync.WaitGroup
}

func newDebouncer(delay time.Duration, fn func([]string)) *debouncer {
	return &debouncer{delay: delay, fn: fn, files: make(map[string]struct{})}
}

func (d *debouncer) add(file string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	d.files[file] = struct{}{}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, d.fire)
}

func (d *debouncer) fire() {
	d.mu.Lock()
	if d.stopped || len(d.files) == 0 {
		d.mu.Unlock()
		return
	}
	files := make([]string, 0, len(d.files))
	for f := range d.files {
		files = append(files, f)
	}
	d.files = make(map[string]struct{})
	d.running.Add(1)
	d.mu.Unlock()
	defer d.running.Done()

	slices.Sort(files)
	d.fn(files)
}

// stop cancels the pending batch and waits for a batch already handed to fn.
func (d *debouncer) stop() {
	d.mu.Lock()
	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
	}
	d.mu.Unlock()
	d.running.Wait()
}
