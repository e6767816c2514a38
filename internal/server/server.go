// Package server is the review dashboard: runs, suggestions, permit
// decisions and the site architecture map in one place.
package server

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"io/fs"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/yuin/goldmark"

	"github.com/linkscout/linkscout/internal/cache"
	"github.com/linkscout/linkscout/internal/config"
	"github.com/linkscout/linkscout/internal/database"
	"github.com/linkscout/linkscout/internal/report"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static/*
var staticFS embed.FS

var md = goldmark.New()

// Server is the HTTP server for the review dashboard.
type Server struct {
	db    *database.DB
	cache *cache.Cache
	pages map[string]*template.Template
	mux   *http.ServeMux
}

// New creates a new Server. cacheTTL bounds how stale the JSON analysis
// endpoint may get.
func New(db *database.DB, cacheTTL time.Duration) (*Server, error) {
	funcMap := template.FuncMap{
		"markdown": renderMarkdown,
		"deref": func(s *string) string {
			if s == nil {
				return ""
			}
			return *s
		},
	}

	// Parse base template first
	base, err := template.New("base.html").Funcs(funcMap).ParseFS(templateFS, "templates/base.html")
	if err != nil {
		return nil, fmt.Errorf("parsing base template: %w", err)
	}

	// For each page template, clone the base and parse the page into the clone.
	// This gives each page its own {{define "content"}} and {{define "title"}}.
	pageNames := []string{"index.html", "run.html"}
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
		db:    db,
		cache: cache.New(0, cacheTTL),
		pages: pages,
		mux:   http.NewServeMux(),
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
	s.mux.HandleFunc("/", s.handleIndex)
	s.mux.HandleFunc("/run/", s.handleRun)
	s.mux.HandleFunc("/suggestions/", s.handleSuggestionAction)
	s.mux.HandleFunc("/api/analysis/", s.handleAnalysisJSON)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	reports, err := s.db.GetAllReports()
	if err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	stats, err := s.db.GetStats()
	if err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	s.render(w, "index.html", map[string]any{
		"Reports": reports,
		"Stats":   stats,
	})
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	runID := strings.TrimPrefix(r.URL.Path, "/run/")
	if runID == "" {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}

	suggestions, _ := s.db.GetSuggestionsForRun(runID)
	permits, _ := s.db.GetPermitDecisionsForRun(runID)
	architecture, _ := s.db.GetArchitectureForRun(runID)

	s.render(w, "run.html", map[string]any{
		"RunID":        runID,
		"Suggestions":  suggestions,
		"Permits":      permits,
		"Architecture": architecture,
		"Checklist":    report.Checklist(runID, suggestions, permits, architecture),
	})
}

// handleSuggestionAction flips a suggestion to applied or rejected and
// sends the reviewer back to the run page.
func (s *Server) handleSuggestionAction(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/suggestions/")
	parts := strings.SplitN(path, "/", 2)
	if len(parts) != 2 {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}

	id, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}

	switch parts[1] {
	case "apply":
		s.db.UpdateSuggestionStatus(id, "applied")
	case "reject":
		s.db.UpdateSuggestionStatus(id, "rejected")
	case "reset":
		s.db.UpdateSuggestionStatus(id, "pending")
	default:
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}
	s.cache.Clear()

	target := "/"
	if runID := strings.TrimSpace(r.FormValue("run_id")); runID != "" {
		target = "/run/" + runID
	}
	http.Redirect(w, r, target, http.StatusFound)
}

// analysisPayload is the JSON shape of one run's results.
type analysisPayload struct {
	RunID        string                     `json:"run_id"`
	Suggestions  []database.Suggestion      `json:"suggestions"`
	Permits      []database.PermitRecord    `json:"permit_decisions"`
	Architecture []database.ArchitectureRow `json:"architecture"`
}

// handleAnalysisJSON serves a run's full analysis as JSON, cached until the
// TTL lapses or a suggestion changes status.
func (s *Server) handleAnalysisJSON(w http.ResponseWriter, r *http.Request) {
	runID := strings.TrimPrefix(r.URL.Path, "/api/analysis/")
	if runID == "" {
		http.Error(w, "run id required", http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if payload, ok := s.cache.Get(runID); ok {
		w.Header().Set("X-Cache", "hit")
		w.Write(payload)
		return
	}

	suggestions, err := s.db.GetSuggestionsForRun(runID)
	if err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	permits, _ := s.db.GetPermitDecisionsForRun(runID)
	architecture, _ := s.db.GetArchitectureForRun(runID)

	payload, err := json.Marshal(analysisPayload{
		RunID:        runID,
		Suggestions:  suggestions,
		Permits:      permits,
		Architecture: architecture,
	})
	if err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	s.cache.Set(runID, payload)
	w.Header().Set("X-Cache", "miss")
	w.Write(payload)
}

func (s *Server) render(w http.ResponseWriter, name string, data any) {
	tmpl, ok := s.pages[name]
	if !ok {
		log.Printf("Template %s not found", name)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.ExecuteTemplate(w, "base.html", data); err != nil {
		log.Printf("Error rendering template %s: %v", name, err)
	}
}

func renderMarkdown(text string) template.HTML {
	var buf bytes.Buffer
	if err := md.Convert([]byte(text), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(text))
	}
	return template.HTML(buf.String()) //nolint: gosec
}

// Serve starts the HTTP server on the configured port.
func Serve(cfg *config.Config, db *database.DB) error {
	srv, err := New(db, time.Duration(cfg.Server.CacheTTL)*time.Second)
	if err != nil {
		return err
	}

	addr := fmt.Sprintf("127.0.0.1:%d", cfg.Server.Port)
	log.Printf("Dashboard listening on http://%s", addr)
	return http.ListenAndServe(addr, srv.Handler())
}
