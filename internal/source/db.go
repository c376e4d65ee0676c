package source

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gobwas/glob"

	"github.com/TobiSchelling/morningbrief/internal/briefing"
	"github.com/TobiSchelling/morningbrief/internal/database"
)

// DB serves documents previously imported into the local database.
type DB struct {
	db *database.DB
}

// NewDB creates a database-backed source.
func NewDB(db *database.DB) *DB {
	return &DB{db: db}
}

// LoadDocument implements Loader.
func (s *DB) LoadDocument(_ context.Context, dateKey string) *briefing.Document {
	stored, err := s.db.GetDocument(dateKey)
	if err != nil {
		log.Printf("Failed to read briefing %s: %v", dateKey, err)
		return nil
	}
	if stored == nil {
		return nil
	}

	doc, err := briefing.Decode([]byte(stored.Body))
	if err != nil {
		log.Printf("Failed to load briefing %s: %v", dateKey, err)
		return nil
	}
	return doc
}

// LoadIndex implements Indexer.
func (s *DB) LoadIndex(_ context.Context) []string {
	dates, err := s.db.ListDocumentDates()
	if err != nil {
		log.Printf("Failed to load index: %v", err)
		return []string{}
	}
	return dates
}

// ImportResult holds the results of an import run.
type ImportResult struct {
	Imported  int
	Skipped   int
	Unmatched int
	Dates     []string
}

// Import validates JSON documents and stores them in the database. Paths may
// be files named <date>.json or directories containing them; index.json is
// ignored because the index is derived from the table. A non-empty match is a
// glob over date keys, e.g. "2024-0[1-3]-*" or "{2024-01-*,2024-02-*}".
func Import(db *database.DB, paths []string, match string) (*ImportResult, error) {
	var g glob.Glob
	if match != "" {
		var err error
		if g, err = glob.Compile(match); err != nil {
			return nil, fmt.Errorf("invalid match pattern %q: %w", match, err)
		}
	}

	var files []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", p, err)
		}
		if !info.IsDir() {
			files = append(files, p)
			continue
		}
		matches, err := filepath.Glob(filepath.Join(p, "*.json"))
		if err != nil {
			return nil, fmt.Errorf("listing %s: %w", p, err)
		}
		files = append(files, matches...)
	}

	r := &ImportResult{}
	for _, f := range files {
		key := strings.TrimSuffix(filepath.Base(f), ".json")
		if key == strings.TrimSuffix(IndexFile, ".json") {
			continue
		}
		if !briefing.ValidKey(key) {
			log.Printf("Skipping %s: not named <YYYY-MM-DD>.json", f)
			r.Skipped++
			continue
		}
		if g != nil && !g.Match(key) {
			r.Unmatched++
			continue
		}

		data, err := os.ReadFile(f)
		if err != nil {
			log.Printf("Skipping %s: %v", f, err)
			r.Skipped++
			continue
		}
		doc, err := briefing.Decode(data)
		if err != nil {
			log.Printf("Skipping %s: %v", f, err)
			r.Skipped++
			continue
		}

		var generatedAt *string
		if !doc.GeneratedAt.IsZero() {
			ts := doc.GeneratedAt.UTC().Format(time.RFC3339)
			generatedAt = &ts
		}
		items := 0
		for _, sec := range doc.Sections {
			items += len(sec.Items)
		}

		if err := db.UpsertDocument(key, generatedAt, string(data), len(doc.Sections), items); err != nil {
			return r, fmt.Errorf("storing %s: %w", key, err)
		}
		r.Imported++
		r.Dates = append(r.Dates, key)
	}
	sort.Strings(r.Dates)
	return r, nil
}
