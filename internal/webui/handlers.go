package webui

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/spherical-ai/spherical/libs/idcard-ocr/internal/domain"
	"github.com/spherical-ai/spherical/libs/idcard-ocr/internal/upload"
	"github.com/spherical-ai/spherical/libs/idcard-ocr/internal/workflow"
)

const formMemory = 8 << 20

type pageData struct {
	State workflow.State
	Sides []domain.Side
}

// index handles GET /.
func (s *Server) index(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	data := pageData{State: s.ctrl.State(), Sides: domain.Sides}
	if err := s.tmpl.ExecuteTemplate(w, "index.html", data); err != nil {
		s.logger.Error().Err(err).Msg("Failed to render page")
	}
}

// state handles GET /state.
func (s *Server) state(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.ctrl.State())
}

// preview handles GET /previews/{id}. Revoked handles are gone.
func (s *Server) preview(w http.ResponseWriter, r *http.Request) {
	f, ok := s.ctrl.Previews().Resolve(upload.HandleFromID(chi.URLParam(r, "id")))
	if !ok {
		http.NotFound(w, r)
		return
	}

	rc, err := f.Open()
	if err != nil {
		s.logger.Error().Err(err).Str("name", f.Name).Msg("Failed to open preview")
		writeError(w, http.StatusInternalServerError, "preview unavailable")
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", f.MIMEType)
	w.Header().Set("Cache-Control", "no-store")
	if f.Size > 0 {
		w.Header().Set("Content-Length", fmt.Sprint(f.Size))
	}
	_, _ = io.Copy(w, rc)
}

// selectSlot handles POST /slots/{side} with the image in multipart field "file".
func (s *Server) selectSlot(w http.ResponseWriter, r *http.Request) {
	side, err := domain.ParseSide(chi.URLParam(r, "side"))
	if err != nil {
		writeError(w, http.StatusNotFound, errorText(err))
		return
	}

	if err := r.ParseMultipartForm(formMemory); err != nil {
		writeError(w, http.StatusBadRequest, "expected a multipart form")
		return
	}
	part, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer part.Close()

	f, err := s.readUpload(part, header)
	if err != nil {
		s.logger.Error().Err(err).Str("name", header.Filename).Msg("Failed to read upload")
		writeError(w, http.StatusBadRequest, "could not read uploaded file")
		return
	}

	err = s.ctrl.Select(side, f)
	var rej *upload.Rejection
	switch {
	case err == nil:
		s.respond(w, r, http.StatusOK)
	case errors.As(err, &rej):
		s.respond(w, r, http.StatusUnprocessableEntity)
	case errors.Is(err, workflow.ErrRequestInFlight):
		s.respond(w, r, http.StatusConflict)
	case domain.IsType(err, domain.ErrorTypeValidation):
		writeError(w, http.StatusBadRequest, errorText(err))
	default:
		s.logger.Error().Err(err).Str("side", string(side)).Msg("Select failed")
		writeError(w, http.StatusInternalServerError, errorText(err))
	}
}

// errorText prefers the display text a domain error carries.
func errorText(err error) string {
	var de *domain.DomainError
	if errors.As(err, &de) {
		if msg := de.UserMessage(); msg != "" {
			return msg
		}
	}
	return err.Error()
}

// readUpload buffers the content of files small enough to be accepted. Larger
// ones keep their declared size but no content; the validator rejects them.
func (s *Server) readUpload(part multipart.File, header *multipart.FileHeader) (*upload.File, error) {
	mimeType := header.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = upload.MIMETypeByName(header.Filename)
	}

	if header.Size > s.maxSize {
		return upload.NewFileFromOpener(header.Filename, mimeType, header.Size, func() (io.ReadCloser, error) {
			return nil, domain.IOError("upload was not retained: "+header.Filename, nil)
		}), nil
	}

	data, err := io.ReadAll(io.LimitReader(part, s.maxSize+1))
	if err != nil {
		return nil, err
	}
	return upload.NewFile(header.Filename, mimeType, data), nil
}

// clearSlot handles POST /slots/{side}/clear.
func (s *Server) clearSlot(w http.ResponseWriter, r *http.Request) {
	side, err := domain.ParseSide(chi.URLParam(r, "side"))
	if err != nil {
		writeError(w, http.StatusNotFound, errorText(err))
		return
	}

	if err := s.ctrl.Clear(side); err != nil {
		s.respond(w, r, http.StatusConflict)
		return
	}
	s.respond(w, r, http.StatusOK)
}

// submit handles POST /submit. The request runs in the background; clients
// poll /state (the page refreshes itself while loading).
func (s *Server) submit(w http.ResponseWriter, r *http.Request) {
	_, err := s.ctrl.SubmitAsync(s.baseCtx)
	switch {
	case err == nil:
		s.respond(w, r, http.StatusAccepted)
	case errors.Is(err, workflow.ErrIncompleteSelection):
		s.respond(w, r, http.StatusBadRequest)
	case errors.Is(err, workflow.ErrRequestInFlight):
		s.respond(w, r, http.StatusConflict)
	default:
		writeError(w, http.StatusInternalServerError, errorText(err))
	}
}

// reset handles POST /reset.
func (s *Server) reset(w http.ResponseWriter, r *http.Request) {
	s.ctrl.Reset()
	s.respond(w, r, http.StatusOK)
}

func formatKB(n int64) string {
	return fmt.Sprintf("%.1f KB", float64(n)/1024)
}
