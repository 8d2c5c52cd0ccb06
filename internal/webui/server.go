// Package webui serves a small browser front end over a single workflow
// controller: two upload slots with previews, submit, reset and the result.
package webui

import (
	"context"
	"embed"
	"encoding/json"
	"html/template"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/spherical-ai/spherical/libs/idcard-ocr/internal/observability"
	"github.com/spherical-ai/spherical/libs/idcard-ocr/internal/upload"
	"github.com/spherical-ai/spherical/libs/idcard-ocr/internal/workflow"
)

//go:embed templates/*.html
var templateFS embed.FS

// Config configures a Server.
type Config struct {
	// MaxFileSize bounds how much of an uploaded file is buffered. Larger
	// files are still handed to the controller, by metadata only, so the
	// validator can reject them with its own message.
	MaxFileSize int64

	// BaseContext parents submissions started from the UI. Request contexts
	// are not used because a submission outlives the POST that started it.
	BaseContext context.Context
}

// Server is the HTTP front end for one controller.
type Server struct {
	ctrl    *workflow.Controller
	logger  *observability.Logger
	tmpl    *template.Template
	maxSize int64
	baseCtx context.Context
}

// NewServer creates a server for ctrl.
func NewServer(ctrl *workflow.Controller, logger *observability.Logger, cfg Config) (*Server, error) {
	tmpl, err := template.New("").Funcs(template.FuncMap{
		"previewURL": previewURL,
		"sizeKB":     formatKB,
	}).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}

	if cfg.MaxFileSize <= 0 {
		cfg.MaxFileSize = upload.MaxFileSize
	}
	if cfg.BaseContext == nil {
		cfg.BaseContext = context.Background()
	}

	return &Server{
		ctrl:    ctrl,
		logger:  observability.OrNop(logger).WithComponent("webui"),
		tmpl:    tmpl,
		maxSize: cfg.MaxFileSize,
		baseCtx: cfg.BaseContext,
	}, nil
}

// Routes returns the HTTP handler.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(chimiddleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "healthy", "service": "idcard-ocr-ui"})
	})

	r.Get("/", s.index)
	r.Get("/state", s.state)
	r.Get("/previews/{id}", s.preview)

	r.Post("/slots/{side}", s.selectSlot)
	r.Post("/slots/{side}/clear", s.clearSlot)
	r.Post("/submit", s.submit)
	r.Post("/reset", s.reset)

	return r
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Str("request_id", chimiddleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}

// respond answers a mutating request. Browsers posting the HTML forms are
// redirected back to the page; API clients get the state as JSON.
func (s *Server) respond(w http.ResponseWriter, r *http.Request, status int) {
	if wantsJSON(r) {
		writeJSON(w, status, s.ctrl.State())
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func previewURL(h upload.Handle) string {
	if h.IsZero() {
		return ""
	}
	return "/previews/" + h.ID()
}
