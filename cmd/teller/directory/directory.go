package directory

import (
	"context"
	"iter"
	"strings"
	"sync"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

type Entry interface {
	Label() string
	Identifier() string
}

type Fetcher[T Entry] func(ctx context.Context) ([]T, error)

type Directory[T Entry] struct {
	name    string
	fetch   Fetcher[T]
	mu      sync.RWMutex
	entries []T
	loaded  bool
	loads   int
	gen     uint64
	pending sync.WaitGroup
}

func New[T Entry](name string, fetch Fetcher[T]) *Directory[T] {
	return &Directory[T]{name: name, fetch: fetch}
}

// Load fetches the full list. On failure the directory is left empty and the
// error is returned for the caller to surface. Calling it again reloads.
func (d *Directory[T]) Load(ctx context.Context) error {
	return d.load(ctx, true)
}

// Reload fetches the full list but keeps the cached entries when the fetch
// fails.
func (d *Directory[T]) Reload(ctx context.Context) error {
	return d.load(ctx, false)
}

func (d *Directory[T]) Refresh(ctx context.Context) {
	d.pending.Add(1)
	go func() {
		defer d.pending.Done()

		if err := d.load(ctx, false); err != nil {
			log.WithError(err).WithField("directory", d.name).Warn("failed to refresh directory, keeping cached entries")
		}
	}()
}

// load applies a result only while no later fetch has started.
func (d *Directory[T]) load(ctx context.Context, clearOnFailure bool) error {
	d.mu.Lock()
	d.gen++
	gen := d.gen
	d.mu.Unlock()

	entries, err := d.fetch(ctx)

	d.mu.Lock()
	defer d.mu.Unlock()

	d.loads++

	if gen != d.gen {
		log.WithFields(log.Fields{"directory": d.name, "generation": gen}).Debug("discarding superseded directory fetch")
		if err != nil {
			return errors.Wrapf(err, "load %s", d.name)
		}
		return nil
	}

	if err != nil {
		if clearOnFailure {
			d.entries = nil
			d.loaded = false
			log.WithError(err).WithField("directory", d.name).Error("failed to load directory")
		}
		return errors.Wrapf(err, "load %s", d.name)
	}

	d.entries = entries
	d.loaded = true
	log.WithFields(log.Fields{"directory": d.name, "count": len(entries)}).Debug("directory loaded")
	return nil
}

func (d *Directory[T]) Wait() {
	d.pending.Wait()
}

func (d *Directory[T]) snapshot() []T {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.entries
}

func (d *Directory[T]) Search(term string) iter.Seq[T] {
	needle := strings.ToLower(strings.TrimSpace(term))

	return func(yield func(T) bool) {
		for _, e := range d.snapshot() {
			if needle != "" &&
				!strings.Contains(strings.ToLower(e.Label()), needle) &&
				!strings.Contains(strings.ToLower(e.Identifier()), needle) {
				continue
			}
			if !yield(e) {
				return
			}
		}
	}
}

func (d *Directory[T]) ResolveExact(term string) (T, bool) {
	term = strings.TrimSpace(term)

	for _, e := range d.snapshot() {
		if term != "" && (e.Identifier() == term || e.Label() == term) {
			return e, true
		}
	}

	var zero T
	return zero, false
}

func (d *Directory[T]) Entries() []T {
	s := d.snapshot()
	return append(make([]T, 0, len(s)), s...)
}

func (d *Directory[T]) Loaded() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.loaded
}

func (d *Directory[T]) Loads() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.loads
}
