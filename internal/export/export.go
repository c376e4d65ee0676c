// Package export renders a plain-text checklist report over a date range.
//
// The report looks like:
//
//	# Impact Review Export
//	# Monday 1 January 2024 to Tuesday 2 January 2024
//	# Filtered: tasks
//	# Generated: 2024-01-03T08:00:00.000Z
//
//	## Monday 1 January 2024
//
//	### Tasks
//	- [x] File expenses (https://example.com/expenses)
//	- [ ] Renew passport
//
// Dates are selected by plain string comparison against the index, so keys must
// be zero-padded YYYY-MM-DD. Sections without items are left out; the live
// checklist keeps them.
package export

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/TobiSchelling/morningbrief/internal/briefing"
	"github.com/TobiSchelling/morningbrief/internal/checklist"
	"github.com/TobiSchelling/morningbrief/internal/source"
)

// FilterAll disables section filtering.
const FilterAll = "all"

const generatedLayout = "2006-01-02T15:04:05.000Z"

// Request describes one export.
type Request struct {
	Start  string
	End    string
	Filter string
}

// Options tune how a report is composed.
type Options struct {
	// Workers bounds concurrent document loads. Values below 2 load serially.
	Workers int
	// Now stamps the Generated header. Defaults to time.Now.
	Now func() time.Time
}

// Compose loads every indexed date within [Start, End] and renders the report.
// It never fails: a date whose document cannot be loaded is skipped, and an
// empty or inverted range produces the header alone. checks is only read.
func Compose(ctx context.Context, req Request, index []string, loader source.Loader, checks checklist.Checker, opts Options) string {
	filter := req.Filter
	if filter == "" {
		filter = FilterAll
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	var b strings.Builder
	writeHeader(&b, req.Start, req.End, filter, now())

	dates := datesInRange(index, req)
	if len(dates) == 0 {
		return b.String()
	}

	docs := loadAll(ctx, loader, dates, opts.Workers)
	for i, date := range dates {
		if docs[i] == nil {
			continue
		}
		writeDate(&b, date, docs[i], filter, checks)
	}
	return b.String()
}

// SectionIDs lists the distinct section ids found in the documents of the
// request's range, in first-seen order. Sections without items are included.
func SectionIDs(ctx context.Context, req Request, index []string, loader source.Loader, workers int) []string {
	dates := datesInRange(index, req)
	seen := make(map[string]bool)
	ids := []string{}
	for _, doc := range loadAll(ctx, loader, dates, workers) {
		if doc == nil {
			continue
		}
		for _, s := range doc.Sections {
			if s.ID == "" || seen[s.ID] {
				continue
			}
			seen[s.ID] = true
			ids = append(ids, s.ID)
		}
	}
	return ids
}

func datesInRange(index []string, req Request) []string {
	if req.Start == "" || req.End == "" || req.Start > req.End {
		return nil
	}
	var dates []string
	for _, d := range index {
		if briefing.InRange(d, req.Start, req.End) {
			dates = append(dates, d)
		}
	}
	return dates
}

func writeHeader(b *strings.Builder, start, end, filter string, generated time.Time) {
	b.WriteString("# Impact Review Export\n")
	b.WriteString("# " + briefing.FormatLong(start) + " to " + briefing.FormatLong(end) + "\n")
	if filter != FilterAll {
		b.WriteString("# Filtered: " + filter + "\n")
	}
	b.WriteString("# Generated: " + generated.UTC().Format(generatedLayout) + "\n\n")
}

func writeDate(b *strings.Builder, date string, doc *briefing.Document, filter string, checks checklist.Checker) {
	b.WriteString("## " + briefing.FormatLong(date) + "\n\n")
	for _, s := range doc.Sections {
		if filter != FilterAll && s.ID != filter {
			continue
		}
		if len(s.Items) == 0 {
			continue
		}

		b.WriteString("### " + s.Title + "\n")
		for _, it := range s.Items {
			mark := "[ ]"
			if checks != nil && checks.IsDone(it.ID) {
				mark = "[x]"
			}
			b.WriteString("- " + mark + " " + it.Summary)
			if it.SourceURL != "" {
				b.WriteString(" (" + it.SourceURL + ")")
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}
}

// loadAll returns documents positionally aligned with dates.
func loadAll(ctx context.Context, loader source.Loader, dates []string, workers int) []*briefing.Document {
	docs := make([]*briefing.Document, len(dates))
	if workers < 2 || len(dates) < 2 {
		for i, d := range dates {
			docs[i] = loader.LoadDocument(ctx, d)
		}
		return docs
	}

	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup
	for i, d := range dates {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, d string) {
			defer wg.Done()
			defer func() { <-sem }()
			docs[i] = loader.LoadDocument(ctx, d)
		}(i, d)
	}
	wg.Wait()
	return docs
}
