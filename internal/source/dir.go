package source

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/TobiSchelling/morningbrief/internal/briefing"
)

// IndexFile is the name of the optional index listing in a document directory.
const IndexFile = "index.json"

// Dir reads <date>.json documents and index.json from a directory.
type Dir struct {
	Root string
}

// NewDir creates a directory source rooted at root.
func NewDir(root string) *Dir {
	return &Dir{Root: root}
}

// LoadDocument implements Loader.
func (d *Dir) LoadDocument(_ context.Context, dateKey string) *briefing.Document {
	if !briefing.ValidKey(dateKey) {
		log.Printf("Rejecting invalid date key %q", dateKey)
		return nil
	}

	data, err := os.ReadFile(filepath.Join(d.Root, dateKey+".json"))
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("Failed to read briefing %s: %v", dateKey, err)
		}
		return nil
	}

	doc, err := briefing.Decode(data)
	if err != nil {
		log.Printf("Failed to load briefing %s: %v", dateKey, err)
		return nil
	}
	return doc
}

// LoadIndex implements Indexer. index.json is authoritative when present;
// otherwise the directory is scanned for dated documents.
func (d *Dir) LoadIndex(_ context.Context) []string {
	data, err := os.ReadFile(filepath.Join(d.Root, IndexFile))
	if err == nil {
		dates, err := briefing.DecodeIndex(data)
		if err != nil {
			log.Printf("Failed to load index: %v", err)
			return []string{}
		}
		return dates
	}
	if !os.IsNotExist(err) {
		log.Printf("Failed to read index: %v", err)
		return []string{}
	}
	return d.scan()
}

func (d *Dir) scan() []string {
	entries, err := os.ReadDir(d.Root)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("Failed to scan %s: %v", d.Root, err)
		}
		return []string{}
	}

	dates := []string{}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		key := strings.TrimSuffix(e.Name(), ".json")
		if key == briefing.SampleKey || !briefing.ValidKey(key) {
			continue
		}
		dates = append(dates, key)
	}
	sort.Strings(dates)
	return dates
}
