package source

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/TobiSchelling/morningbrief/internal/briefing"
)

// maxBody caps how much of a response is read.
const maxBody = 8 << 20

// HTTP fetches <base>/<date>.json and <base>/index.json.
type HTTP struct {
	BaseURL string
	client  *http.Client
}

// NewHTTP creates an HTTP source. A zero timeout defaults to 10 seconds.
func NewHTTP(baseURL string, timeout time.Duration) *HTTP {
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &HTTP{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

// LoadDocument implements Loader.
func (h *HTTP) LoadDocument(ctx context.Context, dateKey string) *briefing.Document {
	if !briefing.ValidKey(dateKey) {
		log.Printf("Rejecting invalid date key %q", dateKey)
		return nil
	}

	data, err := h.get(ctx, dateKey+".json")
	if err != nil {
		log.Printf("Failed to fetch briefing %s: %v", dateKey, err)
		return nil
	}
	if data == nil {
		return nil
	}

	doc, err := briefing.Decode(data)
	if err != nil {
		log.Printf("Failed to load briefing %s: %v", dateKey, err)
		return nil
	}
	return doc
}

// LoadIndex implements Indexer.
func (h *HTTP) LoadIndex(ctx context.Context) []string {
	data, err := h.get(ctx, IndexFile)
	if err != nil {
		log.Printf("Failed to fetch index: %v", err)
		return []string{}
	}
	if data == nil {
		return []string{}
	}

	dates, err := briefing.DecodeIndex(data)
	if err != nil {
		log.Printf("Failed to load index: %v", err)
		return []string{}
	}
	return dates
}

// get returns nil, nil for a 404.
func (h *HTTP) get(ctx context.Context, name string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.BaseURL+"/"+name, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxBody))
}
