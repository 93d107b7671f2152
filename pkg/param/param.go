package param

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// DefaultDir is the base directory shared with the painless server.
const DefaultDir = "/tmp/painless"

// Value is the set of types a Parameter can hold.
type Value interface {
	~string | ~bool |
		~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 |
		~float32 | ~float64
}

// Option configures New.
type Option func(*options)

type options struct {
	dir    string
	logger *slog.Logger
}

// WithDir stores the parameter file in dir instead of DefaultDir.
func WithDir(dir string) Option {
	return func(o *options) { o.dir = dir }
}

// WithLogger sets the logger used for reload diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// Parameter is a value of type T kept in sync with its file.
type Parameter[T Value] struct {
	name   string
	path   string
	def    T
	logger *slog.Logger

	mu  sync.RWMutex
	cur T

	refs    int // guarded by registryMu
	watcher *fsnotify.Watcher
	done    chan struct{}
}

var (
	registryMu sync.Mutex
	registry   = map[string]any{}
)

// New declares the parameter name with default value def. If the name is
// already declared in this process (in the same directory) the existing
// parameter is returned and the file is left alone.
func New[T Value](name string, def T, opts ...Option) (*Parameter[T], error) {
	o := options{dir: DefaultDir, logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	if err := ValidName(name); err != nil {
		return nil, fmt.Errorf("param: %w", err)
	}

	path := filepath.Join(o.dir, name)

	registryMu.Lock()
	defer registryMu.Unlock()

	if existing, ok := registry[path]; ok {
		p, ok := existing.(*Parameter[T])
		if !ok {
			return nil, fmt.Errorf("param: %q already declared as %T", name, existing)
		}
		p.refs++
		return p, nil
	}

	p := &Parameter[T]{
		name:   name,
		path:   path,
		def:    def,
		cur:    def,
		logger: o.logger.With("parameter", name),
		refs:   1,
		done:   make(chan struct{}),
	}

	if err := os.MkdirAll(o.dir, 0o777); err != nil {
		return nil, fmt.Errorf("param: create %q: %w", o.dir, err)
	}
	if err := p.writeDefault(); err != nil {
		return nil, err
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("param: create watcher: %w", err)
	}
	// The directory is watched rather than the file so that atomic saves
	// (write to a temp file, rename over ours) are seen as well.
	if err := w.Add(o.dir); err != nil {
		w.Close()
		return nil, fmt.Errorf("param: watch %q: %w", o.dir, err)
	}
	p.watcher = w

	registry[path] = p
	go p.watch()

	return p, nil
}

// Name returns the parameter name.
func (p *Parameter[T]) Name() string {
	return p.name
}

// Default returns the declared default value.
func (p *Parameter[T]) Default() T {
	return p.def
}

// Value returns the current value.
func (p *Parameter[T]) Value() T {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.cur
}

// String formats the current value.
func (p *Parameter[T]) String() string {
	return format(p.Value())
}

// Done is closed when the parameter stops following its file, either after
// the last Close or because the file was removed.
func (p *Parameter[T]) Done() <-chan struct{} {
	return p.done
}

// Close releases this declaration. The last Close stops watching and
// removes the file.
func (p *Parameter[T]) Close() error {
	registryMu.Lock()
	p.refs--
	last := p.refs == 0
	if last && registry[p.path] == any(p) {
		delete(registry, p.path)
	}
	registryMu.Unlock()

	if !last {
		return nil
	}

	var err error
	select {
	case <-p.done:
		// File already removed; the path may belong to a newer declaration.
	default:
		err = os.Remove(p.path)
		if errors.Is(err, os.ErrNotExist) {
			err = nil
		}
	}
	p.watcher.Close()
	<-p.done
	if err != nil {
		return fmt.Errorf("param: remove %q: %w", p.path, err)
	}
	return nil
}

// writeDefault creates the file with the default value and a short header.
func (p *Parameter[T]) writeDefault() error {
	content := fmt.Sprintf("%s\n# Parameter '%s'\n# Default value: '%s'\n",
		format(p.def), p.name, format(p.def))
	if err := os.WriteFile(p.path, []byte(content), 0o666); err != nil {
		return fmt.Errorf("param: write %q: %w", p.path, err)
	}
	return nil
}

// watch follows file events until the file disappears or the watcher is
// closed.
func (p *Parameter[T]) watch() {
	defer close(p.done)

	for {
		select {
		case event, ok := <-p.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != p.path {
				continue
			}
			switch {
			case event.Has(fsnotify.Write), event.Has(fsnotify.Create):
				p.reload()
			case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
				if _, err := os.Stat(p.path); errors.Is(err, os.ErrNotExist) {
					p.logger.Debug("param: file removed, no longer watching", "path", p.path)
					p.unregister()
					p.watcher.Close()
					return
				}
			}

		case err, ok := <-p.watcher.Errors:
			if !ok {
				return
			}
			p.logger.Error("param: watcher error", "err", err)
		}
	}
}

// unregister drops the parameter from the registry after its file was
// removed externally, so that a later New starts over.
func (p *Parameter[T]) unregister() {
	registryMu.Lock()
	if cur, ok := registry[p.path]; ok && cur == any(p) {
		delete(registry, p.path)
	}
	registryMu.Unlock()
}

// reload reads the first line and updates the current value. Unreadable or
// unparsable content yields the default.
func (p *Parameter[T]) reload() {
	v := p.def
	line, err := readFirstLine(p.path)
	if err != nil {
		p.logger.Warn("param: read failed, using default", "path", p.path, "err", err)
	} else if parsed, ok := parse[T](line); ok {
		v = parsed
	} else {
		p.logger.Debug("param: cannot parse value, using default", "input", line)
	}

	p.mu.Lock()
	p.cur = v
	p.mu.Unlock()
}

func readFirstLine(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	line, err := bufio.NewReader(f).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
