package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/TobiSchelling/morningbrief/internal/briefing"
	"github.com/TobiSchelling/morningbrief/internal/checklist"
	"github.com/TobiSchelling/morningbrief/internal/completion"
	"github.com/TobiSchelling/morningbrief/internal/config"
	"github.com/TobiSchelling/morningbrief/internal/database"
	"github.com/TobiSchelling/morningbrief/internal/export"
	"github.com/TobiSchelling/morningbrief/internal/schedule"
	"github.com/TobiSchelling/morningbrief/internal/server"
	"github.com/TobiSchelling/morningbrief/internal/source"
)

var version = "dev"

var (
	verbose    bool
	configPath string
	cfg        *config.Config
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "morningbrief",
	Short:   "Morning briefing checklist",
	Long:    "morningbrief shows daily briefing documents as a checklist, remembers what you ticked off, and exports impact reviews.",
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		log.SetFlags(log.LstdFlags)

		// Skip config loading for init and version
		if cmd.Name() == "init" || cmd.Name() == "version" {
			return nil
		}

		path, err := config.ResolveConfigPath(configPath)
		if err != nil {
			return err
		}
		cfg, err = config.Load(path)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		if verbose || strings.EqualFold(cfg.Logging.Level, "debug") {
			log.SetFlags(log.LstdFlags | log.Lshortfile)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(uncheckCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(pruneCmd)
	rootCmd.AddCommand(serveCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("morningbrief", version)
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration in ~/.config/morningbrief/",
	RunE: func(cmd *cobra.Command, args []string) error {
		target := filepath.Join(config.ConfigDir(), "config.yaml")
		if _, err := os.Stat(target); err == nil {
			fmt.Printf("Config already exists: %s\n", target)
			return nil
		}

		if err := os.MkdirAll(config.ConfigDir(), 0o755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}

		if err := os.WriteFile(target, config.DefaultConfigYAML, 0o644); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}

		docs := config.Default().GetDocumentsDir()
		if err := os.MkdirAll(docs, 0o755); err != nil {
			return fmt.Errorf("creating documents directory: %w", err)
		}

		fmt.Printf("Created config: %s\n", target)
		fmt.Printf("Drop briefing documents (YYYY-MM-DD.json) into %s\n", docs)
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show document source and completion status",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession()
		if err != nil {
			return err
		}
		defer s.Close()

		ctx := context.Background()
		dates := s.src.LoadIndex(ctx)
		today := briefing.Today()

		fmt.Printf("Today: %s\n\n", briefing.FormatLong(today))
		fmt.Println("Documents:")
		fmt.Printf("  Source: %s\n", describeSource())
		fmt.Printf("  Indexed dates: %s\n", humanize.Comma(int64(len(dates))))
		if n := len(dates); n > 0 {
			fmt.Printf("  Range: %s to %s\n", dates[0], dates[n-1])
		}
		if doc := s.src.LoadDocument(ctx, today); doc != nil && !doc.GeneratedAt.IsZero() {
			fmt.Printf("  Today's briefing generated %s\n", humanize.Time(doc.GeneratedAt))
		} else {
			fmt.Println("  No briefing for today yet")
		}

		fmt.Println("\nCompletion:")
		fmt.Printf("  Items done: %s\n", humanize.Comma(int64(s.store.Len())))

		if s.db != nil {
			stats, err := s.db.GetStats()
			if err != nil {
				return fmt.Errorf("getting stats: %w", err)
			}
			fmt.Println("\nDatabase:")
			fmt.Printf("  Path: %s\n", s.db.Path())
			fmt.Printf("  Imported documents: %s (%s items)\n",
				humanize.Comma(int64(stats.Documents)), humanize.Comma(int64(stats.Items)))
			if stats.Documents > 0 {
				fmt.Printf("  Imported range: %s to %s\n", stats.FirstDate, stats.LastDate)
			}
		}
		return nil
	},
}

// --- show command ---

var showCmd = &cobra.Command{
	Use:   "show [date]",
	Short: "Print a briefing as a checklist (defaults to today)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession()
		if err != nil {
			return err
		}
		defer s.Close()

		ctx := context.Background()
		var (
			dateKey string
			doc     *briefing.Document
			sample  bool
		)
		if len(args) == 1 {
			dateKey = args[0]
			if !briefing.ValidKey(dateKey) {
				return fmt.Errorf("invalid date %q (want YYYY-MM-DD)", dateKey)
			}
			doc = s.src.LoadDocument(ctx, dateKey)
			if doc == nil {
				fmt.Printf("No briefing found for %s\n", dateKey)
				return nil
			}
		} else {
			dateKey = briefing.Today()
			doc, sample = source.LoadOrSample(ctx, s.src, dateKey)
		}

		v := checklist.Reconcile(doc, s.store)
		if showSection != "" && !v.NoData {
			sec := v.Section(showSection)
			if sec == nil {
				return fmt.Errorf("no section %q in briefing for %s", showSection, dateKey)
			}
			v.Sections = []checklist.SectionView{*sec}
		}

		printView(os.Stdout, dateKey, doc, v, sample)
		return nil
	},
}

var showSection string

func init() {
	showCmd.Flags().StringVarP(&showSection, "section", "s", "", "Only print the section with this id")
}

func printView(w io.Writer, dateKey string, doc *briefing.Document, v checklist.View, sample bool) {
	fmt.Fprintln(w, briefing.FormatLong(dateKey))
	if sample {
		fmt.Fprintln(w, "(sample briefing: no document for today yet)")
	}
	if v.NoData {
		fmt.Fprintln(w, "\nNo briefing available.")
		return
	}
	if doc != nil && !doc.GeneratedAt.IsZero() {
		fmt.Fprintf(w, "Generated %s (%s)\n", v.GeneratedAt, humanize.Time(doc.GeneratedAt))
	}

	summary := []string{fmt.Sprintf("%d of %d done", v.Stats.Done, v.Stats.Total)}
	if v.Stats.Pending > 0 {
		summary = append(summary, fmt.Sprintf("%d remaining", v.Stats.Pending))
	}
	if v.Stats.High > 0 {
		summary = append(summary, fmt.Sprintf("%d high priority", v.Stats.High))
	}
	fmt.Fprintln(w, strings.Join(summary, ", "))

	for _, sec := range v.Sections {
		fmt.Fprintf(w, "\n%s [%d/%d]\n", sec.Title, sec.Done, sec.Total)
		if sec.Empty {
			fmt.Fprintln(w, "  Nothing here today")
			continue
		}
		for _, it := range sec.Items {
			mark := " "
			if it.Done {
				mark = "x"
			}
			line := fmt.Sprintf("  [%s] %s  (%s)", mark, it.Summary, it.ID)
			if it.Priority != briefing.PriorityNone {
				line += " !" + string(it.Priority)
			}
			if it.ShowType() {
				line += " #" + it.Type
			}
			fmt.Fprintln(w, line)
			if it.SourceURL != "" {
				fmt.Fprintf(w, "      %s: %s\n", it.Label(), it.SourceURL)
			} else if it.SourceLabel != "" {
				fmt.Fprintf(w, "      %s\n", it.SourceLabel)
			}
		}
	}
}

// --- check / uncheck commands ---

var checkCmd = &cobra.Command{
	Use:   "check <id>...",
	Short: "Mark items done",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setDone(args, true)
	},
}

var uncheckAll bool

var uncheckCmd = &cobra.Command{
	Use:   "uncheck <id>...",
	Short: "Mark items pending",
	Args: func(cmd *cobra.Command, args []string) error {
		if uncheckAll {
			return cobra.NoArgs(cmd, args)
		}
		return cobra.MinimumNArgs(1)(cmd, args)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		if !uncheckAll {
			return setDone(args, false)
		}

		s, err := openSession()
		if err != nil {
			return err
		}
		defer s.Close()

		n := s.store.Clear()
		fmt.Printf("Cleared %s done %s\n", humanize.Comma(int64(n)), pluralize(n, "item"))
		return nil
	},
}

func init() {
	uncheckCmd.Flags().BoolVar(&uncheckAll, "all", false, "Mark every item pending")
}

func pluralize(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}

func setDone(ids []string, done bool) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	state := "pending"
	if done {
		state = "done"
	}
	for _, id := range ids {
		s.store.SetDone(id, done)
		fmt.Printf("%s: %s\n", id, state)
	}
	return nil
}

// --- history command ---

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List available briefings, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession()
		if err != nil {
			return err
		}
		defer s.Close()

		ctx := context.Background()
		dates := source.Newest(s.src.LoadIndex(ctx))
		if len(dates) == 0 {
			fmt.Println("No briefings yet.")
			return nil
		}

		for _, d := range dates {
			v := checklist.Reconcile(s.src.LoadDocument(ctx, d), s.store)
			if v.NoData {
				fmt.Printf("  %s  %-28s  unavailable\n", d, briefing.FormatLong(d))
				continue
			}
			fmt.Printf("  %s  %-28s  %d/%d done\n", d, briefing.FormatLong(d), v.Stats.Done, v.Stats.Total)
		}
		return nil
	},
}

// --- export command ---

var (
	exportStart  string
	exportEnd    string
	exportDays   int
	exportFilter string
	exportOut    string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Compose an impact review report for a date range",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession()
		if err != nil {
			return err
		}
		defer s.Close()

		days := exportDays
		if days < 1 {
			days = cfg.Export.Days
		}
		end := exportEnd
		if end == "" {
			end = briefing.Today()
		}
		start := exportStart
		if start == "" {
			start = briefing.StartOfRange(end, days)
		}
		filter := exportFilter
		if filter == "" {
			filter = cfg.Export.Filter
		}

		ctx := context.Background()
		req := export.Request{Start: start, End: end, Filter: filter}
		report := export.Compose(ctx, req, s.src.LoadIndex(ctx), s.src, s.store.Snapshot(), export.Options{
			Workers: cfg.Export.Workers,
		})

		if exportOut == "" {
			fmt.Print(report)
			return nil
		}

		out := exportOut
		if info, err := os.Stat(out); err == nil && info.IsDir() {
			out = filepath.Join(out, schedule.FileName(start, end, filter))
		}
		if err := os.WriteFile(out, []byte(report), 0o644); err != nil {
			return fmt.Errorf("writing export: %w", err)
		}
		fmt.Printf("Export written to %s\n", out)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportStart, "start", "", "First date (YYYY-MM-DD), defaults to end minus days")
	exportCmd.Flags().StringVar(&exportEnd, "end", "", "Last date (YYYY-MM-DD), defaults to today")
	exportCmd.Flags().IntVar(&exportDays, "days", 0, "Range length when --start is omitted (default from config)")
	exportCmd.Flags().StringVar(&exportFilter, "filter", "", "Section id to include, or 'all'")
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "Write to file or directory instead of stdout")
}

// --- import command ---

var importMatch string

var importCmd = &cobra.Command{
	Use:   "import <file|dir>...",
	Short: "Import briefing documents into the database",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		result, err := source.Import(db, args, importMatch)
		if err != nil {
			return err
		}

		fmt.Println("Import complete:")
		fmt.Printf("  Imported: %d\n", result.Imported)
		fmt.Printf("  Skipped: %d\n", result.Skipped)
		if importMatch != "" {
			fmt.Printf("  Not matching %q: %d\n", importMatch, result.Unmatched)
		}
		if n := len(result.Dates); n > 0 {
			fmt.Printf("  Dates: %s to %s\n", result.Dates[0], result.Dates[n-1])
		}
		if cfg.Documents.Source != config.SourceDB {
			fmt.Printf("\nSet documents.source to %q to read imported documents.\n", config.SourceDB)
		}
		return nil
	},
}

func init() {
	importCmd.Flags().StringVar(&importMatch, "match", "", "Only import date keys matching this glob, e.g. '{2024-01-*,2024-02-*}'")
}

// --- prune command ---

var pruneCmd = &cobra.Command{
	Use:   "prune <date>...",
	Short: "Remove imported briefing documents from the database",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, d := range args {
			if !briefing.ValidKey(d) {
				return fmt.Errorf("invalid date %q (want YYYY-MM-DD)", d)
			}
		}

		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		for _, d := range args {
			if err := db.DeleteDocument(d); err != nil {
				return fmt.Errorf("removing %s: %w", d, err)
			}
			fmt.Printf("Removed %s\n", d)
		}
		return nil
	},
}

// --- serve command ---

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the local web server",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession()
		if err != nil {
			return err
		}
		defer s.Close()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		idx := source.NewIndex(s.src)

		if cfg.Documents.Source == config.SourceDir {
			stopWatch, err := source.Watch(cfg.GetDocumentsDir(), idx)
			if err != nil {
				log.Printf("Document watcher disabled: %v", err)
			} else {
				defer stopWatch()
			}
		}

		if cfg.Export.Schedule != "" {
			exporter, err := schedule.New(schedule.Job{
				Days:    cfg.Export.Days,
				Filter:  cfg.Export.Filter,
				Dir:     cfg.GetExportDir(),
				Workers: cfg.Export.Workers,
			}, idx, s.src, s.store, cfg.Export.Timezone)
			if err != nil {
				return err
			}
			if err := exporter.Schedule(cfg.Export.Schedule); err != nil {
				return err
			}
			exporter.Start()
			defer exporter.Stop()
		}

		srv, err := server.New(s.src, idx, s.store, server.Options{
			ExportDays: cfg.Export.Days,
			Workers:    cfg.Export.Workers,
		})
		if err != nil {
			return err
		}

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}
		fmt.Printf("Starting server at http://localhost:%d\n", port)
		fmt.Println("Press Ctrl+C to stop")
		return server.Serve(ctx, srv, port)
	},
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Port to run server on (default from config)")
}

// session bundles the document source and completion store a command needs.
type session struct {
	db    *database.DB
	src   source.Source
	store *completion.Store
}

// openSession opens the database for completion state and the configured
// document source. If the database cannot be opened, completion state lives
// in memory for this run unless the documents themselves come from it.
func openSession() (*session, error) {
	s := &session{}

	db, err := openDB()
	if err != nil {
		if cfg.Documents.Source == config.SourceDB {
			return nil, err
		}
		log.Printf("Completion state will not be saved: %v", err)
		s.store = completion.Load(completion.NewMemoryStorage())
	} else {
		s.db = db
		s.store = completion.Load(db)
	}

	switch cfg.Documents.Source {
	case config.SourceHTTP:
		s.src = source.NewHTTP(cfg.Documents.URL, cfg.Timeout())
	case config.SourceDB:
		s.src = source.NewDB(s.db)
	default:
		s.src = source.NewDir(cfg.GetDocumentsDir())
	}
	return s, nil
}

func (s *session) Close() {
	if s.db != nil {
		s.db.Close()
	}
}

func describeSource() string {
	switch cfg.Documents.Source {
	case config.SourceHTTP:
		return fmt.Sprintf("http (%s, timeout %s)", cfg.Documents.URL, cfg.Timeout())
	case config.SourceDB:
		return "db (imported documents)"
	default:
		return fmt.Sprintf("dir (%s)", cfg.GetDocumentsDir())
	}
}

func openDB() (*database.DB, error) {
	dataDir := cfg.GetDataDir()
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	return database.Open(cfg.GetDBPath())
}

