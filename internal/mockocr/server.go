// Package mockocr is an in-process stand-in for the OCR backend. It serves the
// same endpoint the real service does and can be scripted to fail.
package mockocr

import (
	"encoding/json"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/spherical-ai/spherical/libs/idcard-ocr/internal/domain"
	"github.com/spherical-ai/spherical/libs/idcard-ocr/internal/observability"
	"github.com/spherical-ai/spherical/libs/idcard-ocr/internal/transport"
)

const maxUploadMemory = 32 << 20

// Part describes one received multipart file.
type Part struct {
	Field       string
	Filename    string
	ContentType string
	Size        int64
}

// Failure scripts an error response. An empty Message sends no JSON body.
type Failure struct {
	Status  int
	Message string
}

// Server is a scriptable fake OCR backend.
type Server struct {
	mu       sync.Mutex
	result   domain.OcrResult
	failure  *Failure
	delay    time.Duration
	requests int
	lastRecv []Part
	logger   *observability.Logger
}

// SampleResult is returned until SetResult is called.
var SampleResult = domain.OcrResult{
	Name:        "Asha Verma",
	IDNumber:    "2345 6789 0123",
	DateOfBirth: "14/08/1990",
	Address:     "12 MG Road, Bengaluru, Karnataka 560001",
}

// New creates a server that answers every well-formed request with SampleResult.
func New(logger *observability.Logger) *Server {
	return &Server{
		result: SampleResult,
		logger: observability.OrNop(logger).WithComponent("mockocr"),
	}
}

// Routes returns the HTTP handler.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)
	r.Use(CORS(nil))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "healthy", "service": "mock-ocr"})
	})
	r.Post(transport.ProcessPath, s.process)

	return r
}

// SetResult changes the payload returned on success.
func (s *Server) SetResult(res domain.OcrResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.result = res
}

// FailWith makes every following request fail with f.
func (s *Server) FailWith(f Failure) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failure = &f
}

// Succeed clears any scripted failure.
func (s *Server) Succeed() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failure = nil
}

// SetDelay holds every response for d, or until the client goes away.
func (s *Server) SetDelay(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delay = d
}

// Requests returns how many process requests have arrived.
func (s *Server) Requests() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests
}

// LastParts returns the files received by the most recent well-formed request.
func (s *Server) LastParts() []Part {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Part(nil), s.lastRecv...)
}

func (s *Server) process(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.requests++
	failure := s.failure
	result := s.result
	delay := s.delay
	s.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-r.Context().Done():
			return
		}
	}

	if failure != nil {
		s.logger.Debug().Int("status", failure.Status).Str("message", failure.Message).Msg("Scripted failure")
		if failure.Message == "" {
			w.WriteHeader(failure.Status)
			return
		}
		writeJSON(w, failure.Status, map[string]string{"error": failure.Message})
		return
	}

	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Request must be multipart/form-data"})
		return
	}
	defer r.MultipartForm.RemoveAll()

	var parts []Part
	for _, field := range []string{transport.FieldFront, transport.FieldBack} {
		file, header, err := r.FormFile(field)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Both front and back images are required"})
			return
		}
		n, _ := io.Copy(io.Discard, file)
		file.Close()
		parts = append(parts, Part{
			Field:       field,
			Filename:    header.Filename,
			ContentType: header.Header.Get("Content-Type"),
			Size:        n,
		})
	}

	s.mu.Lock()
	s.lastRecv = parts
	s.mu.Unlock()

	s.logger.Debug().
		Str("front", parts[0].Filename).
		Str("back", parts[1].Filename).
		Msg("Processed mock OCR request")
	writeJSON(w, http.StatusOK, result)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
