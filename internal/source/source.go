// Package source loads briefing documents and the date index from a directory,
// an HTTP endpoint or the local database. Every failure is logged and reported
// as absence; nothing here returns an error to the caller.
package source

import (
	"context"

	"github.com/TobiSchelling/morningbrief/internal/briefing"
)

// Loader fetches the document for a date key. A nil document means absent.
type Loader interface {
	LoadDocument(ctx context.Context, dateKey string) *briefing.Document
}

// Indexer lists the date keys that have documents, oldest first.
type Indexer interface {
	LoadIndex(ctx context.Context) []string
}

// Source is a Loader and an Indexer over the same backing store.
type Source interface {
	Loader
	Indexer
}

// LoaderFunc adapts a function to Loader.
type LoaderFunc func(ctx context.Context, dateKey string) *briefing.Document

// LoadDocument implements Loader.
func (f LoaderFunc) LoadDocument(ctx context.Context, dateKey string) *briefing.Document {
	return f(ctx, dateKey)
}

// LoadOrSample loads dateKey, falling back to the sample document. The second
// return value reports whether the sample was used.
func LoadOrSample(ctx context.Context, l Loader, dateKey string) (*briefing.Document, bool) {
	if doc := l.LoadDocument(ctx, dateKey); doc != nil {
		return doc, false
	}
	if doc := l.LoadDocument(ctx, briefing.SampleKey); doc != nil {
		return doc, true
	}
	return nil, false
}
