package source

import (
	"context"
	"sync"
)

// Index caches the date index. It is loaded once and re-fetched on Refresh.
type Index struct {
	indexer Indexer

	mu     sync.RWMutex
	dates  []string
	loaded bool
}

// NewIndex wraps an Indexer with a cache.
func NewIndex(indexer Indexer) *Index {
	return &Index{indexer: indexer}
}

// LoadIndex implements Indexer, loading on first use.
func (x *Index) LoadIndex(ctx context.Context) []string {
	x.mu.RLock()
	if x.loaded {
		dates := x.dates
		x.mu.RUnlock()
		return dates
	}
	x.mu.RUnlock()
	return x.Refresh(ctx)
}

// Refresh re-fetches the index from the backing Indexer.
func (x *Index) Refresh(ctx context.Context) []string {
	dates := x.indexer.LoadIndex(ctx)
	if dates == nil {
		dates = []string{}
	}

	x.mu.Lock()
	x.dates = dates
	x.loaded = true
	x.mu.Unlock()
	return dates
}

// Newest returns the index newest first without touching the cache.
func Newest(dates []string) []string {
	out := make([]string, len(dates))
	for i, d := range dates {
		out[len(dates)-1-i] = d
	}
	return out
}
