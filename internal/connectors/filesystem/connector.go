// Package filesystem walks and watches a local directory tree for
// ingestable text files.
package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/time/rate"

	"github.com/custodia-labs/weft/internal/core/domain"
	"github.com/custodia-labs/weft/internal/core/ports/driven"
	"github.com/custodia-labs/weft/internal/logger"
)

// Ensure Connector implements the interface.
var _ driven.Source = (*Connector)(nil)

// ErrClosed is returned by Watch after Close.
var ErrClosed = errors.New("connector closed")

// Connector implements driven.Source for a local directory.
type Connector struct {
	rootPath   string
	extensions []string
	limiter    *rate.Limiter

	mu      sync.Mutex
	watcher *fsnotify.Watcher
	closed  bool
}

// Option configures a Connector.
type Option func(*Connector)

// WithExtensions sets the file extensions picked up by walk and watch.
// An empty list accepts every file.
func WithExtensions(exts ...string) Option {
	return func(c *Connector) {
		c.extensions = exts
	}
}

// WithRate caps the number of changes emitted per second.
// A non-positive rate disables throttling.
func WithRate(perSecond float64) Option {
	return func(c *Connector) {
		if perSecond <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
	}
}

// New creates a connector for rootPath.
func New(rootPath string, opts ...Option) *Connector {
	defaults := domain.DefaultAppSettings().Watch
	c := &Connector{
		rootPath:   rootPath,
		extensions: defaults.Extensions,
		limiter:    rate.NewLimiter(rate.Limit(defaults.Rate), 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Root returns the watched directory.
func (c *Connector) Root() string {
	return c.rootPath
}

// Validate checks that the root exists and is a directory.
func (c *Connector) Validate(_ context.Context) error {
	info, err := os.Stat(c.rootPath)
	if err != nil {
		return fmt.Errorf("root path error: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: root path is not a directory: %s", domain.ErrInvalidInput, c.rootPath)
	}
	return nil
}

// FullSync emits every ingestable file below the root. Unreadable files
// are reported on the error channel and the walk continues.
func (c *Connector) FullSync(ctx context.Context) (<-chan domain.RawDocument, <-chan error) {
	docs := make(chan domain.RawDocument)
	errs := make(chan error, 1)

	go func() {
		defer close(docs)
		defer close(errs)

		if err := c.Validate(ctx); err != nil {
			errs <- err
			return
		}

		err := filepath.WalkDir(c.rootPath, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if c.hidden(path) {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if d.IsDir() || !c.accepts(path) {
				return nil
			}

			content, err := os.ReadFile(path)
			if err != nil {
				logger.Warn("Skipping %s: %v", path, err)
				select {
				case errs <- fmt.Errorf("reading %s: %w", path, err):
				default:
				}
				return nil
			}

			select {
			case docs <- domain.RawDocument{SourcePath: path, Content: content}:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
		if err != nil {
			select {
			case errs <- fmt.Errorf("walking %s: %w", c.rootPath, err):
			default:
			}
		}
	}()

	return docs, errs
}

// Watch emits changes to ingestable files until ctx is done or Close is
// called. New subdirectories are watched as they appear.
func (c *Connector) Watch(ctx context.Context) (<-chan domain.SourceChange, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, ErrClosed
	}
	if err := c.Validate(ctx); err != nil {
		return nil, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}
	if err := c.addTree(watcher, c.rootPath); err != nil {
		watcher.Close()
		return nil, err
	}
	c.watcher = watcher

	changes := make(chan domain.SourceChange)
	go c.watchLoop(ctx, watcher, changes)
	return changes, nil
}

func (c *Connector) watchLoop(ctx context.Context, watcher *fsnotify.Watcher, changes chan<- domain.SourceChange) {
	defer close(changes)
	defer watcher.Close()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if event.Has(fsnotify.Create) && !c.hidden(event.Name) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := c.addTree(watcher, event.Name); err != nil {
						logger.Warn("Watching %s: %v", event.Name, err)
					}
					continue
				}
			}

			change := c.handleFsEvent(event)
			if change == nil {
				continue
			}
			if err := c.limiter.Wait(ctx); err != nil {
				return
			}
			select {
			case changes <- *change:
			case <-ctx.Done():
				return
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			logger.Warn("Watcher error: %v", err)
		}
	}
}

// addTree watches dir and every non-hidden directory below it.
func (c *Connector) addTree(watcher *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if c.hidden(path) {
			return filepath.SkipDir
		}
		if err := watcher.Add(path); err != nil {
			return fmt.Errorf("watching %s: %w", path, err)
		}
		return nil
	})
}

// handleFsEvent converts an fsnotify event into a change, or nil when the
// event is not about an ingestable file.
func (c *Connector) handleFsEvent(event fsnotify.Event) *domain.SourceChange {
	if c.hidden(event.Name) || !c.accepts(event.Name) {
		return nil
	}

	switch {
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		return &domain.SourceChange{Type: domain.ChangeDeleted, Path: event.Name}

	case event.Has(fsnotify.Create), event.Has(fsnotify.Write):
		info, err := os.Stat(event.Name)
		if err != nil || info.IsDir() {
			return nil
		}
		content, err := os.ReadFile(event.Name)
		if err != nil {
			logger.Warn("Reading %s: %v", event.Name, err)
			return nil
		}
		changeType := domain.ChangeUpdated
		if event.Has(fsnotify.Create) {
			changeType = domain.ChangeCreated
		}
		return &domain.SourceChange{Type: changeType, Path: event.Name, Content: content}

	default:
		return nil
	}
}

// Close stops the watcher. It is idempotent.
func (c *Connector) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	if c.watcher != nil {
		return c.watcher.Close()
	}
	return nil
}

// hidden reports whether path is hidden relative to the root.
func (c *Connector) hidden(path string) bool {
	rel, err := filepath.Rel(c.rootPath, path)
	if err != nil {
		rel = path
	}
	return isHidden(rel)
}

func (c *Connector) accepts(path string) bool {
	if len(c.extensions) == 0 {
		return true
	}
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range c.extensions {
		if strings.ToLower(e) == ext {
			return true
		}
	}
	return false
}

// isHidden checks if any component of path starts with a dot.
// The "." and ".." components are not hidden.
func isHidden(path string) bool {
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if part == "" || part == "." || part == ".." {
			continue
		}
		if strings.HasPrefix(part, ".") {
			return true
		}
	}
	return false
}
