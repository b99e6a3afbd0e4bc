// Package dedupe remembers client request ids so a retried pass submission is
// applied once.
package dedupe

import (
	"container/list"
	"context"
	"sync"
)

// Deduper records request ids for at-most-once pass logging.
type Deduper interface {
	// SeenAndRecord reports whether id was already recorded and records it if not.
	SeenAndRecord(ctx context.Context, id string) bool
	// Unrecord forgets id so the same request may be applied again, e.g. after
	// the pass it produced was undone or failed validation.
	Unrecord(ctx context.Context, id string)
	// Reset forgets every id.
	Reset(ctx context.Context)
	// Size is the number of ids currently remembered.
	Size() int64
}

// window is a Deduper that forgets its oldest id once full.
type window struct {
	mu      sync.Mutex
	maxSize int
	order   *list.List // oldest at front
	seen    map[string]*list.Element
}

// NewInMemoryDeduper returns a Deduper holding up to WithMaxSize ids. A max
// size of zero or less disables eviction.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &window{maxSize: 10000}
	for _, opt := range opts {
		opt(d)
	}
	d.order = list.New()
	d.seen = make(map[string]*list.Element)
	return d
}

func (d *window) SeenAndRecord(_ context.Context, id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.seen[id]; ok {
		return true
	}
	if d.maxSize > 0 && d.order.Len() >= d.maxSize {
		oldest := d.order.Front()
		d.order.Remove(oldest)
		delete(d.seen, oldest.Value.(string))
	}
	d.seen[id] = d.order.PushBack(id)
	return false
}

func (d *window) Unrecord(_ context.Context, id string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if e, ok := d.seen[id]; ok {
		d.order.Remove(e)
		delete(d.seen, id)
	}
}

func (d *window) Reset(_ context.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.order.Init()
	clear(d.seen)
}

func (d *window) Size() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return int64(d.order.Len())
}
