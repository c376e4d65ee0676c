package server

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/yuin/goldmark"

	"github.com/TobiSchelling/morningbrief/internal/briefing"
	"github.com/TobiSchelling/morningbrief/internal/checklist"
	"github.com/TobiSchelling/morningbrief/internal/completion"
	"github.com/TobiSchelling/morningbrief/internal/export"
	"github.com/TobiSchelling/morningbrief/internal/source"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static/*
var staticFS embed.FS

var md = goldmark.New()

// Options configure a Server.
type Options struct {
	// ExportDays is the default export range length.
	ExportDays int
	// Workers bounds concurrent loads during an export.
	Workers int
	// Now is the clock used for today's key and export stamps.
	Now func() time.Time
}

// Server is the HTTP server for the briefing checklist.
type Server struct {
	loader source.Loader
	index  *source.Index
	store  *completion.Store
	opts   Options
	pages  map[string]*template.Template
	mux    *http.ServeMux
}

// New creates a new Server.
func New(loader source.Loader, index *source.Index, store *completion.Store, opts Options) (*Server, error) {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.ExportDays < 1 {
		opts.ExportDays = 7
	}

	funcMap := template.FuncMap{
		"markdown":   renderMarkdown,
		"formatDate": briefing.FormatLong,
		"icon":       icon,
		"ago":        humanize.Time,
		"pathEscape": url.PathEscape,
		"plural": func(n int, word string) string {
			if n == 1 {
				return fmt.Sprintf("%d %s", n, word)
			}
			return fmt.Sprintf("%d %ss", n, word)
		},
	}

	// Parse base template first
	base, err := template.New("base.html").Funcs(funcMap).ParseFS(templateFS, "templates/base.html")
	if err != nil {
		return nil, fmt.Errorf("parsing base template: %w", err)
	}

	// For each page template, clone the base and parse the page into the clone.
	// This gives each page its own {{define "content"}} and {{define "title"}}.
	pageNames := []string{"briefing.html", "history.html", "export.html"}
	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		clone, err := base.Clone()
		if err != nil {
			return nil, fmt.Errorf("cloning base for %s: %w", name, err)
		}
		_, err = clone.ParseFS(templateFS, "templates/"+name)
		if err != nil {
			return nil, fmt.Errorf("parsing template %s: %w", name, err)
		}
		pages[name] = clone
	}

	s := &Server{
		loader: loader,
		index:  index,
		store:  store,
		opts:   opts,
		pages:  pages,
		mux:    http.NewServeMux(),
	}
	s.routes()
	return s, nil
}

// Handler returns the HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) routes() {
	// Static files
	staticSub, _ := fs.Sub(staticFS, "static")
	s.mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.FS(staticSub))))

	// Routes
	s.mux.HandleFunc("/", s.handleToday)
	s.mux.HandleFunc("/briefing/", s.handleBriefing)
	s.mux.HandleFunc("/history", s.handleHistory)
	s.mux.HandleFunc("/check/", s.handleCheck)
	s.mux.HandleFunc("/export", s.handleExport)
	s.mux.HandleFunc("/export.txt", s.handleExportText)
}

func (s *Server) today() string {
	return briefing.DateKey(s.opts.Now())
}

// briefingPage is the data behind briefing.html.
type briefingPage struct {
	DateKey   string
	Heading   string
	View      checklist.View
	Generated time.Time
	Sample    bool
	Missing   string
	Today     bool
}

func (s *Server) handleToday(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	today := s.today()
	doc, sample := source.LoadOrSample(r.Context(), s.loader, today)
	s.render(w, "briefing.html", s.briefingPage(today, doc, sample, true))
}

func (s *Server) handleBriefing(w http.ResponseWriter, r *http.Request) {
	dateKey := strings.TrimPrefix(r.URL.Path, "/briefing/")
	if dateKey == "" {
		http.Redirect(w, r, "/history", http.StatusFound)
		return
	}
	if !briefing.ValidKey(dateKey) {
		http.NotFound(w, r)
		return
	}

	doc := s.loader.LoadDocument(r.Context(), dateKey)
	s.render(w, "briefing.html", s.briefingPage(dateKey, doc, false, false))
}

func (s *Server) briefingPage(dateKey string, doc *briefing.Document, sample, today bool) briefingPage {
	p := briefingPage{
		DateKey: dateKey,
		Heading: briefing.FormatLong(dateKey),
		View:    checklist.Reconcile(doc, s.store),
		Sample:  sample,
		Today:   today,
	}
	if doc != nil {
		p.Generated = doc.GeneratedAt
	} else if !today {
		p.Missing = dateKey
	}
	return p
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if date := strings.TrimSpace(r.URL.Query().Get("date")); date != "" {
		http.Redirect(w, r, "/briefing/"+date, http.StatusFound)
		return
	}
	if r.URL.Query().Get("refresh") != "" {
		s.index.Refresh(r.Context())
	}

	dates := s.index.LoadIndex(r.Context())
	s.render(w, "history.html", map[string]any{
		"Dates": source.Newest(dates),
	})
}

func (s *Server) handleCheck(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/check/")
	back := safeReturn(r.FormValue("return"))
	if id == "" {
		http.Redirect(w, r, back, http.StatusFound)
		return
	}

	switch r.FormValue("done") {
	case "1", "true", "on":
		s.store.SetDone(id, true)
	case "0", "false", "off":
		s.store.SetDone(id, false)
	default:
		s.store.Toggle(id)
	}

	http.Redirect(w, r, back+"#item-"+url.PathEscape(id), http.StatusFound)
}

// safeReturn keeps redirects on this host.
func safeReturn(path string) string {
	if !strings.HasPrefix(path, "/") || strings.HasPrefix(path, "//") || strings.Contains(path, "\\") {
		return "/"
	}
	return path
}

func (s *Server) exportRequest(r *http.Request) (export.Request, bool) {
	q := r.URL.Query()
	end := strings.TrimSpace(q.Get("end"))
	start := strings.TrimSpace(q.Get("start"))
	filter := strings.TrimSpace(q.Get("filter"))
	submitted := q.Has("start") || q.Has("end")

	if end == "" && !submitted {
		end = s.today()
	}
	if start == "" && !submitted {
		start = briefing.StartOfRange(end, s.opts.ExportDays)
	}
	if filter == "" {
		filter = export.FilterAll
	}
	return export.Request{Start: start, End: end, Filter: filter}, submitted
}

func (s *Server) compose(ctx context.Context, req export.Request) string {
	return export.Compose(ctx, req, s.index.LoadIndex(ctx), s.loader, s.store.Snapshot(), export.Options{
		Workers: s.opts.Workers,
		Now:     s.opts.Now,
	})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	req, submitted := s.exportRequest(r)

	data := map[string]any{
		"Request":  req,
		"Sections": export.SectionIDs(r.Context(), req, s.index.LoadIndex(r.Context()), s.loader, s.opts.Workers),
	}
	if submitted {
		data["Report"] = s.compose(r.Context(), req)
	}
	s.render(w, "export.html", data)
}

func (s *Server) handleExportText(w http.ResponseWriter, r *http.Request) {
	req, _ := s.exportRequest(r)
	report := s.compose(r.Context(), req)

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q",
		fmt.Sprintf("impact-%s_%s.txt", req.Start, req.End)))
	if _, err := w.Write([]byte(report)); err != nil {
		log.Printf("Error writing export: %v", err)
	}
}

func (s *Server) render(w http.ResponseWriter, name string, data any) {
	tmpl, ok := s.pages[name]
	if !ok {
		log.Printf("Template %s not found", name)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "base.html", data); err != nil {
		log.Printf("Error rendering template %s: %v", name, err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	buf.WriteTo(w)
}

func renderMarkdown(text string) template.HTML {
	var buf bytes.Buffer
	if err := md.Convert([]byte(text), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(text))
	}
	return template.HTML(buf.String()) //nolint: gosec
}

// Serve starts the HTTP server on the given port and shuts it down when ctx
// is cancelled.
func Serve(ctx context.Context, srv *Server, port int) error {
	addr := fmt.Sprintf("127.0.0.1:%d", port)
	httpSrv := &http.Server{Addr: addr, Handler: srv.Handler()}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Server listening on http://%s", addr)
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	}
}
