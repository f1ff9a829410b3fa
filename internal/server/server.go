package server

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"log"
	"net/http"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/BuzzBytz/bb-linkedin-feed-analyzer/internal/config"
	"github.com/BuzzBytz/bb-linkedin-feed-analyzer/internal/database"
	"github.com/BuzzBytz/bb-linkedin-feed-analyzer/internal/enrich"
	"github.com/BuzzBytz/bb-linkedin-feed-analyzer/internal/feed"
	"github.com/BuzzBytz/bb-linkedin-feed-analyzer/internal/llm"
	"github.com/BuzzBytz/bb-linkedin-feed-analyzer/internal/pipeline"
	"github.com/BuzzBytz/bb-linkedin-feed-analyzer/internal/shortlist"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static/*
var staticFS embed.FS

var md = goldmark.New(goldmark.WithExtensions(extension.Table))

// maxBodyBytes bounds request bodies; a full capture of 500 posts fits easily.
const maxBodyBytes = 16 << 20

// Server serves the JSON API used by the browser extension and the dashboard.
type Server struct {
	cfg      *config.Config
	db       *database.DB
	provider llm.Provider
	pages    map[string]*template.Template
	mux      *http.ServeMux
}

// New creates a new Server. provider may be nil, in which case enrichment
// returns default suggestions.
func New(cfg *config.Config, db *database.DB, provider llm.Provider) (*Server, error) {
	funcMap := template.FuncMap{
		"markdown": renderMarkdown,
		"deref": func(s *string) string {
			if s == nil {
				return ""
			}
			return *s
		},
	}

	base, err := template.New("base.html").Funcs(funcMap).ParseFS(templateFS, "templates/base.html")
	if err != nil {
		return nil, fmt.Errorf("parsing base template: %w", err)
	}

	// Each page gets its own clone so {{define "content"}} does not collide.
	pageNames := []string{"index.html"}
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

	s := &Server{cfg: cfg, db: db, provider: provider, pages: pages, mux: http.NewServeMux()}
	s.routes()
	return s, nil
}

// Handler returns the HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	return s.cors(s.mux)
}

func (s *Server) routes() {
	staticSub, _ := fs.Sub(staticFS, "static")
	s.mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.FS(staticSub))))

	s.mux.HandleFunc("/", s.handleIndex)
	s.mux.HandleFunc("/api/analyze", s.handleAnalyze)
	s.mux.HandleFunc("/api/enrich", s.handleEnrich)
	s.mux.HandleFunc("/api/feed-import", s.handleFeedImport)
	s.mux.HandleFunc("/api/feed-import/config", s.handleExtensionConfig)
}

// cors lets the browser extension call the API from a LinkedIn tab.
func (s *Server) cors(next http.Handler) http.Handler {
	origin := s.cfg.Server.CORSOrigin
	if origin == "" {
		origin = "*"
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", origin)
		h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	stats, err := s.db.GetStats()
	if err != nil {
		log.Printf("Error loading stats: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	captures, _ := s.db.ListCaptures(s.cfg.Captures.Retention)
	analysis, _ := s.db.LatestAnalysis()

	s.render(w, "index.html", map[string]any{
		"Stats":    stats,
		"Captures": captures,
		"Analysis": analysis,
		"Model":    llm.Label(s.provider),
	})
}

type analyzeRequest struct {
	Posts  json.RawMessage `json:"posts"`
	Config json.RawMessage `json:"config"`
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}

	var req analyzeRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if len(bytes.TrimSpace(req.Posts)) == 0 || bytes.TrimSpace(req.Posts)[0] != '[' {
		writeError(w, fmt.Errorf("%w: expected { posts: [...], config: {...} }", feed.ErrInvalidInput))
		return
	}
	posts, err := feed.DecodePosts(req.Posts)
	if err != nil {
		writeError(w, err)
		return
	}
	cfg, err := feed.DecodeRuleConfig(req.Config, s.cfg.Rules)
	if err != nil {
		writeError(w, err)
		return
	}

	result := shortlist.Analyze(posts, cfg)
	log.Printf("Analyzed %d posts: %d shortlisted", result.TotalAnalyzed, len(result.Shortlisted))
	writeJSON(w, http.StatusOK, result)
}

// enrichRequest ignores any rules config the extension sends along;
// enrichment options come from the server config.
type enrichRequest struct {
	Shortlisted json.RawMessage `json:"shortlisted"`
	Stream      bool            `json:"stream"`
}

// logEvent and doneEvent are the NDJSON lines of a streamed enrichment.
type logEvent struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type doneEvent struct {
	Type        string            `json:"type"`
	Enrichments []feed.Enrichment `json:"enrichments"`
}

func (s *Server) handleEnrich(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}

	var req enrichRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	matches, err := feed.DecodeMatches(req.Shortlisted)
	if err != nil {
		writeError(w, err)
		return
	}

	enricher := enrich.NewEnricher(s.provider, pipeline.EnrichOptions(s.cfg))
	start := fmt.Sprintf("Model: %s. Enriching %d post(s).", llm.Label(s.provider), len(matches))
	log.Print(start)

	if !req.Stream {
		enrichments := enricher.Enrich(r.Context(), matches, func(p enrich.Progress) {
			log.Print(p.String())
		})
		writeJSON(w, http.StatusOK, map[string]any{"enrichments": enrichments})
		return
	}

	w.Header().Set("Content-Type", "application/x-ndjson; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	flusher, _ := w.(http.Flusher)
	enc := json.NewEncoder(w)
	emit := func(ev any) {
		if err := enc.Encode(ev); err != nil {
			log.Printf("Error writing enrich stream: %v", err)
			return
		}
		if flusher != nil {
			flusher.Flush()
		}
	}

	emit(logEvent{Type: "log", Message: start})
	enrichments := enricher.Enrich(r.Context(), matches, func(p enrich.Progress) {
		log.Print(p.String())
		emit(logEvent{Type: "log", Message: p.String()})
	})
	emit(logEvent{Type: "log", Message: fmt.Sprintf("All %d post(s) done.", len(matches))})
	emit(doneEvent{Type: "done", Enrichments: enrichments})
}

func (s *Server) handleFeedImport(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		capture, err := s.db.LatestCapture()
		if err != nil {
			log.Printf("Error loading latest capture: %v", err)
		}
		posts := []feed.Post{}
		if capture != nil && capture.Posts != nil {
			posts = capture.Posts
		}
		writeJSON(w, http.StatusOK, map[string]any{"posts": posts})

	case http.MethodPost:
		var body struct {
			Posts json.RawMessage `json:"posts"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, err)
			return
		}
		posts := []feed.Post{}
		if raw := bytes.TrimSpace(body.Posts); len(raw) > 0 && raw[0] == '[' {
			decoded, err := feed.DecodePosts(raw)
			if err != nil {
				writeError(w, err)
				return
			}
			posts = decoded
		}
		id, err := s.db.SaveCapture("extension", posts)
		if err != nil {
			log.Printf("Error saving capture: %v", err)
			writeJSON(w, http.StatusInternalServerError, map[string]any{"success": false, "message": "Failed to save"})
			return
		}
		log.Printf("Saved capture %s with %d posts", id, len(posts))
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "count": len(posts), "savedTo": id})

	default:
		methodNotAllowed(w, http.MethodGet+", "+http.MethodPost)
	}
}

func (s *Server) handleExtensionConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	ext := s.cfg.Extension
	writeJSON(w, http.StatusOK, map[string]any{
		"maxPosts":         ext.MaxPosts,
		"scrollPauseMs":    ext.ScrollPauseMs,
		"noNewPostsExit":   ext.NoNewPostsExit,
		"maxPostsFallback": ext.MaxPostsFallback,
		"appOrigin":        s.cfg.AppOrigin(),
	})
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

func decodeBody(r *http.Request, v any) error {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("reading request body: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return fmt.Errorf("%w: empty request body", feed.ErrInvalidInput)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %v", feed.ErrInvalidInput, err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Error writing response: %v", err)
	}
}

// writeError maps input errors to 400 and everything else to 500.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	if errors.Is(err, feed.ErrInvalidInput) {
		status = http.StatusBadRequest
	} else {
		log.Printf("Request failed: %v", err)
	}
	writeJSON(w, status, map[string]string{"message": err.Error()})
}

func methodNotAllowed(w http.ResponseWriter, allow string) {
	w.Header().Set("Allow", allow)
	writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"message": "method not allowed"})
}

func renderMarkdown(text string) template.HTML {
	var buf bytes.Buffer
	if err := md.Convert([]byte(text), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(text))
	}
	return template.HTML(buf.String()) //nolint: gosec
}

// Serve starts the HTTP server on the configured port.
func Serve(cfg *config.Config, db *database.DB, provider llm.Provider) error {
	srv, err := New(cfg, db, provider)
	if err != nil {
		return err
	}

	addr := fmt.Sprintf("127.0.0.1:%d", cfg.Server.Port)
	log.Printf("Server listening on http://%s", addr)
	return http.ListenAndServe(addr, srv.Handler())
}
