// Package server exposes the analysis pipeline over HTTP: a small form
// front end, report downloads and a JSON listing.
package server

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"log"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/lmarchal/adscope/internal/config"
	"github.com/lmarchal/adscope/internal/pipeline"
	"github.com/lmarchal/adscope/internal/report"
)

//go:embed templates/*.html
var templateFS embed.FS

// Runner is the slice of the pipeline the server needs.
type Runner interface {
	Run(ctx context.Context, brand, country string, maxAds int) *pipeline.Result
	ReportsDir() string
}

// Server is the HTTP server for running analyses and serving reports.
type Server struct {
	cfg      *config.Config
	pipeline Runner
	pages    map[string]*template.Template
	mux      *http.ServeMux
}

// New creates a new Server.
func New(cfg *config.Config, p Runner) (*Server, error) {
	// Parse base template first
	base, err := template.New("base.html").ParseFS(templateFS, "templates/base.html")
	if err != nil {
		return nil, fmt.Errorf("parsing base template: %w", err)
	}

	// For each page template, clone the base and parse the page into the
	// clone. This gives each page its own {{define "content"}}.
	pageNames := []string{"index.html", "error.html"}
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

	s := &Server{cfg: cfg, pipeline: p, pages: pages, mux: http.NewServeMux()}
	s.routes()
	return s, nil
}

// Handler returns the HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) routes() {
	s.mux.HandleFunc("/", s.handleIndex)
	s.mux.HandleFunc("/analyze", s.handleAnalyze)
	s.mux.HandleFunc("/reports", s.handleReports)
	s.mux.HandleFunc("/reports/", s.handleReportFile)
	s.mux.HandleFunc("/health", s.handleHealth)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	entries, err := report.List(s.pipeline.ReportsDir())
	if err != nil {
		log.Printf("Listing reports: %v", err)
	}
	if len(entries) > 10 {
		entries = entries[:10]
	}

	s.render(w, "index.html", map[string]any{
		"Reports":        entries,
		"DefaultCountry": s.cfg.Extraction.Country,
		"DefaultMaxAds":  s.cfg.Extraction.MaxAds,
	})
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}

	brand := strings.TrimSpace(r.FormValue("brand"))
	if brand == "" {
		s.renderError(w, http.StatusBadRequest, "A brand name is required.")
		return
	}

	country := strings.TrimSpace(r.FormValue("country"))
	if country == "" {
		country = s.cfg.Extraction.Country
	}

	maxAds := s.cfg.Extraction.MaxAds
	if v := r.FormValue("max_ads"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			s.renderError(w, http.StatusBadRequest, "max_ads must be a positive number.")
			return
		}
		maxAds = n
	}

	result := s.pipeline.Run(r.Context(), brand, country, maxAds)
	if result.Failed() {
		for _, step := range result.Steps {
			if step.Err != nil {
				s.renderError(w, http.StatusBadGateway, fmt.Sprintf("%s step failed: %v", step.Name, step.Err))
				return
			}
		}
	}

	http.ServeFile(w, r, result.Paths.HTML)
}

func (s *Server) handleReports(w http.ResponseWriter, r *http.Request) {
	entries, err := report.List(s.pipeline.ReportsDir())
	if err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if entries == nil {
		entries = []report.Entry{}
	}
	writeJSON(w, map[string]any{"reports": entries})
}

func (s *Server) handleReportFile(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimPrefix(r.URL.Path, "/reports/")
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		http.Error(w, "Invalid report name", http.StatusBadRequest)
		return
	}

	switch filepath.Ext(name) {
	case ".html":
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
	case ".csv":
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	case ".json":
		w.Header().Set("Content-Type", "application/json")
	default:
		http.Error(w, "Unsupported report type", http.StatusBadRequest)
		return
	}

	http.ServeFile(w, r, filepath.Join(s.pipeline.ReportsDir(), name))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{
		"status":  "healthy",
		"service": "adscope",
	})
}

func writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("Encoding JSON response: %v", err)
	}
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

func (s *Server) renderError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	tmpl := s.pages["error.html"]
	if err := tmpl.ExecuteTemplate(w, "base.html", map[string]any{"Message": message}); err != nil {
		log.Printf("Error rendering error page: %v", err)
	}
}

// Serve starts the HTTP server on the given port.
func Serve(cfg *config.Config, p Runner, port int) error {
	srv, err := New(cfg, p)
	if err != nil {
		return err
	}

	addr := fmt.Sprintf("127.0.0.1:%d", port)
	log.Printf("Server listening on http://%s", addr)
	return http.ListenAndServe(addr, srv.Handler())
}
