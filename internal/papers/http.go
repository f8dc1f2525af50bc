package papers

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/gokatarajesh/paper-builder/internal/auth"
	"github.com/gokatarajesh/paper-builder/internal/paper"
	httperrors "github.com/gokatarajesh/paper-builder/pkg/http/errors"
)

// HTTPHandler exposes the paper gateway as REST endpoints.
type HTTPHandler struct {
	svc    *Service
	logger zerolog.Logger
}

func NewHTTPHandler(svc *Service, logger zerolog.Logger) *HTTPHandler {
	return &HTTPHandler{svc: svc, logger: logger}
}

// DocumentView is a paper with its derived totals and choice notes.
type DocumentView struct {
	Paper  paper.Document      `json:"paper"`
	Totals paper.Totals        `json:"totals"`
	Notes  []paper.SectionNote `json:"notes"`
}

// NewDocumentView projects doc for responses.
func NewDocumentView(doc paper.Document) DocumentView {
	notes := doc.SectionNotes()
	if notes == nil {
		notes = []paper.SectionNote{}
	}
	return DocumentView{Paper: doc, Totals: doc.Totals(), Notes: notes}
}

// Register attaches the routes to mux behind the given auth wrapper.
func (h *HTTPHandler) Register(mux *http.ServeMux, protect func(http.Handler) http.Handler) {
	mux.Handle("GET /v1/papers", protect(http.HandlerFunc(h.List)))
	mux.Handle("POST /v1/papers", protect(http.HandlerFunc(h.Create)))
	mux.Handle("GET /v1/papers/{id}", protect(http.HandlerFunc(h.Get)))
	mux.Handle("PUT /v1/papers/{id}", protect(http.HandlerFunc(h.Update)))
	mux.Handle("DELETE /v1/papers/{id}", protect(http.HandlerFunc(h.Delete)))
}

// List handles GET /v1/papers
func (h *HTTPHandler) List(w http.ResponseWriter, r *http.Request) {
	session, _ := auth.SessionFrom(r.Context())
	list, err := h.svc.ListByOwner(r.Context(), session)
	if err != nil {
		httperrors.RespondFailure(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]interface{}{"papers": list})
}

// Create handles POST /v1/papers
func (h *HTTPHandler) Create(w http.ResponseWriter, r *http.Request) {
	session, _ := auth.SessionFrom(r.Context())
	var doc paper.Document
	if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "Invalid paper document")
		return
	}
	id, err := h.svc.Create(r.Context(), session, doc)
	if err != nil {
		httperrors.RespondFailure(w, err)
		return
	}
	h.respondJSON(w, http.StatusCreated, map[string]interface{}{"id": id})
}

// Get handles GET /v1/papers/{id}
func (h *HTTPHandler) Get(w http.ResponseWriter, r *http.Request) {
	session, _ := auth.SessionFrom(r.Context())
	doc, err := h.svc.Get(r.Context(), session, r.PathValue("id"))
	if err != nil {
		httperrors.RespondFailure(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, NewDocumentView(doc))
}

// Update handles PUT /v1/papers/{id}
func (h *HTTPHandler) Update(w http.ResponseWriter, r *http.Request) {
	session, _ := auth.SessionFrom(r.Context())
	var doc paper.Document
	if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "Invalid paper document")
		return
	}
	saved, err := h.svc.Update(r.Context(), session, r.PathValue("id"), doc)
	if err != nil {
		httperrors.RespondFailure(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, NewDocumentView(saved))
}

// Delete handles DELETE /v1/papers/{id}
func (h *HTTPHandler) Delete(w http.ResponseWriter, r *http.Request) {
	session, _ := auth.SessionFrom(r.Context())
	if err := h.svc.Delete(r.Context(), session, r.PathValue("id")); err != nil {
		httperrors.RespondFailure(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *HTTPHandler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error().Err(err).Msg("failed to encode JSON response")
	}
}
