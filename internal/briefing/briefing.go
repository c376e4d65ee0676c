package briefing

import (
	"encoding/json"
	"fmt"
	"time"
)

// Priority is the urgency tag attached to an item.
type Priority string

const (
	PriorityNone Priority = ""
	PriorityLow  Priority = "low"
	PriorityHigh Priority = "high"
)

const (
	// DefaultType is the item type assumed when a document omits it.
	DefaultType = "status"
	// DefaultSourceLabel is shown for items that carry a URL but no label.
	DefaultSourceLabel = "Source"
	// DefaultIcon is used for sections whose icon is missing or unknown.
	DefaultIcon = "info"
	// SampleKey names the demo document shown when today's is missing.
	SampleKey = "sample"
)

// knownIcons are the section icons the UI can draw.
var knownIcons = map[string]bool{
	"target":         true,
	"globe":          true,
	"link":           true,
	"activity":       true,
	"inbox":          true,
	"megaphone":      true,
	"message-circle": true,
	"check-square":   true,
	"mail":           true,
	"calendar":       true,
	"info":           true,
}

// Item is a single checklist entry. ID is the completion key.
type Item struct {
	ID          string   `json:"id"`
	Summary     string   `json:"summary"`
	Priority    Priority `json:"priority,omitempty"`
	Type        string   `json:"type,omitempty"`
	SourceURL   string   `json:"source_url,omitempty"`
	SourceLabel string   `json:"source_label,omitempty"`
	Prep        string   `json:"prep,omitempty"`
}

// Section is a titled, ordered group of items.
type Section struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Icon  string `json:"icon,omitempty"`
	Items []Item `json:"items"`
}

// Document is the briefing for one date key. It is never mutated after Decode.
type Document struct {
	GeneratedAt time.Time `json:"generated_at"`
	Sections    []Section `json:"sections"`
}

// timestampLayouts are tried in order for generated_at.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseTimestamp(s string) time.Time {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// Decode parses a document and fills presentation defaults. A missing or
// unreadable generated_at leaves GeneratedAt zero.
func Decode(data []byte) (*Document, error) {
	var raw struct {
		GeneratedAt any       `json:"generated_at"`
		Sections    []Section `json:"sections"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing briefing: %w", err)
	}

	doc := Document{Sections: raw.Sections}
	if ts, ok := raw.GeneratedAt.(string); ok {
		doc.GeneratedAt = parseTimestamp(ts)
	}
	for i := range doc.Sections {
		s := &doc.Sections[i]
		if !knownIcons[s.Icon] {
			s.Icon = DefaultIcon
		}
		for j := range s.Items {
			it := &s.Items[j]
			if it.Type == "" {
				it.Type = DefaultType
			}
			if it.Priority != PriorityHigh && it.Priority != PriorityLow {
				it.Priority = PriorityNone
			}
		}
	}
	return &doc, nil
}

// DecodeIndex parses an index listing of date keys.
func DecodeIndex(data []byte) ([]string, error) {
	var dates []string
	if err := json.Unmarshal(data, &dates); err != nil {
		return nil, fmt.Errorf("parsing index: %w", err)
	}
	if dates == nil {
		dates = []string{}
	}
	return dates, nil
}

// HasContent reports whether the document has any sections at all.
// A document with only empty sections still has content.
func (d *Document) HasContent() bool {
	return d != nil && len(d.Sections) > 0
}

// Label returns the text shown for the item's source link.
func (it Item) Label() string {
	if it.SourceLabel != "" {
		return it.SourceLabel
	}
	if it.SourceURL != "" {
		return DefaultSourceLabel
	}
	return ""
}

// ShowType reports whether the type badge should be displayed.
func (it Item) ShowType() bool {
	return it.Type != "" && it.Type != DefaultType
}
