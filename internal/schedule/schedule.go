// Package schedule writes export reports to disk on a cron schedule.
package schedule

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/TobiSchelling/morningbrief/internal/briefing"
	"github.com/TobiSchelling/morningbrief/internal/checklist"
	"github.com/TobiSchelling/morningbrief/internal/completion"
	"github.com/TobiSchelling/morningbrief/internal/export"
	"github.com/TobiSchelling/morningbrief/internal/source"
)

// Job describes a recurring export of the last Days days.
type Job struct {
	Days    int
	Filter  string
	Dir     string
	Workers int
}

// Exporter runs Job against a source and completion state.
type Exporter struct {
	job    Job
	index  source.Indexer
	loader source.Loader
	checks checklist.Checker
	now    func() time.Time

	cron     *cron.Cron
	mu       sync.Mutex
	entryID  cron.EntryID
	location *time.Location
}

// New creates an Exporter whose schedule runs in the given timezone.
func New(job Job, index source.Indexer, loader source.Loader, checks checklist.Checker, timezone string) (*Exporter, error) {
	if timezone == "" {
		timezone = "Local"
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("loading timezone %q: %w", timezone, err)
	}
	if job.Days < 1 {
		job.Days = 1
	}
	if job.Filter == "" {
		job.Filter = export.FilterAll
	}

	return &Exporter{
		job:      job,
		index:    index,
		loader:   loader,
		checks:   checks,
		now:      time.Now,
		cron:     cron.New(cron.WithLocation(loc)),
		location: loc,
	}, nil
}

// Schedule registers the export under a standard five-field cron expression,
// replacing any earlier schedule.
func (e *Exporter) Schedule(spec string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.entryID != 0 {
		e.cron.Remove(e.entryID)
	}

	id, err := e.cron.AddFunc(spec, func() {
		path, err := e.RunOnce(context.Background())
		if err != nil {
			log.Printf("Scheduled export failed: %v", err)
			return
		}
		log.Printf("Scheduled export written to %s", path)
	})
	if err != nil {
		return fmt.Errorf("adding cron entry %q: %w", spec, err)
	}
	e.entryID = id
	log.Printf("Export scheduled: %q (%s, last %d days)", spec, e.location, e.job.Days)
	return nil
}

// Start begins the cron scheduler.
func (e *Exporter) Start() {
	e.cron.Start()
}

// Stop halts the scheduler and waits for a running export to finish.
func (e *Exporter) Stop() {
	<-e.cron.Stop().Done()
}

// Range returns the start and end keys for an export run at now.
func (e *Exporter) Range(now time.Time) (string, string) {
	end := briefing.DateKey(now.In(e.location))
	return briefing.StartOfRange(end, e.job.Days), end
}

// RunOnce composes the report for the current range and writes it to the
// export directory, returning the file path.
func (e *Exporter) RunOnce(ctx context.Context) (string, error) {
	now := e.now()
	start, end := e.Range(now)
	req := export.Request{Start: start, End: end, Filter: e.job.Filter}

	checks := e.checks
	if s, ok := checks.(interface{ Snapshot() completion.Snapshot }); ok {
		checks = s.Snapshot()
	}

	report := export.Compose(ctx, req, e.index.LoadIndex(ctx), e.loader, checks, export.Options{
		Workers: e.job.Workers,
		Now:     func() time.Time { return now },
	})

	if err := os.MkdirAll(e.job.Dir, 0o755); err != nil {
		return "", fmt.Errorf("creating export directory: %w", err)
	}
	path := filepath.Join(e.job.Dir, FileName(start, end, e.job.Filter))
	if err := os.WriteFile(path, []byte(report), 0o644); err != nil {
		return "", fmt.Errorf("writing export: %w", err)
	}
	return path, nil
}

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9_-]+`)

// FileName names an export file for a range and filter.
func FileName(start, end, filter string) string {
	if filter == "" || filter == export.FilterAll {
		return fmt.Sprintf("impact-%s_%s.txt", start, end)
	}
	return fmt.Sprintf("impact-%s_%s-%s.txt", start, end, unsafeName.ReplaceAllString(filter, "_"))
}
