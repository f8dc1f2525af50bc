package workspace

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/gokatarajesh/paper-builder/internal/auth"
	"github.com/gokatarajesh/paper-builder/internal/failure"
	"github.com/gokatarajesh/paper-builder/internal/logging"
	"github.com/gokatarajesh/paper-builder/internal/paper"
	"github.com/gokatarajesh/paper-builder/internal/paper/scoring"
	"github.com/gokatarajesh/paper-builder/internal/papers"
	"github.com/gokatarajesh/paper-builder/internal/selection"
	httperrors "github.com/gokatarajesh/paper-builder/pkg/http/errors"
)

// HTTPHandler exposes draft editing as REST endpoints.
type HTTPHandler struct {
	svc    *Service
	logger zerolog.Logger
}

func NewHTTPHandler(svc *Service, logger zerolog.Logger) *HTTPHandler {
	return &HTTPHandler{svc: svc, logger: logger}
}

// DraftView is the editor's full picture of a draft.
type DraftView struct {
	ID      string `json:"id"`
	PaperID string `json:"paperId,omitempty"`
	papers.DocumentView
	Selection selection.View `json:"selection"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

func newDraftView(d *Draft) DraftView {
	return DraftView{
		ID:           d.ID,
		PaperID:      d.PaperID,
		DocumentView: papers.NewDocumentView(d.Document),
		Selection:    d.Selection.View(true),
		UpdatedAt:    d.UpdatedAt,
	}
}

// Register attaches the draft routes to mux behind the given auth wrapper.
func (h *HTTPHandler) Register(mux *http.ServeMux, protect func(http.Handler) http.Handler) {
	routes := map[string]http.HandlerFunc{
		"POST /v1/drafts":                                   h.NewDraft,
		"POST /v1/drafts/load":                              h.LoadDraft,
		"GET /v1/drafts/{id}":                               h.GetDraft,
		"DELETE /v1/drafts/{id}":                            h.Discard,
		"PATCH /v1/drafts/{id}/header":                      h.UpdateHeader,
		"POST /v1/drafts/{id}/selection":                    h.OpenSelection,
		"GET /v1/drafts/{id}/selection":                     h.ViewSelection,
		"DELETE /v1/drafts/{id}/selection":                  h.CloseSelection,
		"POST /v1/drafts/{id}/selection/edit":               h.EditBatch,
		"POST /v1/drafts/{id}/selection/toggle":             h.Toggle,
		"POST /v1/drafts/{id}/selection/random":             h.Random,
		"POST /v1/drafts/{id}/selection/config":             h.Configure,
		"POST /v1/drafts/{id}/selection/commit":             h.Commit,
		"DELETE /v1/drafts/{id}/questions/{tempID}":         h.RemoveQuestion,
		"DELETE /v1/drafts/{id}/batches/{category}/{index}": h.RemoveBatch,
		"PATCH /v1/drafts/{id}/questions/text":              h.EditQuestionText,
		"PATCH /v1/drafts/{id}/questions/option":            h.EditOption,
		"POST /v1/drafts/{id}/save":                         h.Save,
	}
	for pattern, fn := range routes {
		mux.Handle(pattern, protect(fn))
	}
}

// NewDraft handles POST /v1/drafts
func (h *HTTPHandler) NewDraft(w http.ResponseWriter, r *http.Request) {
	var req Header
	if !h.decode(w, r, &req) {
		return
	}
	d, err := h.svc.NewDraft(r.Context(), session(r), req)
	h.respondDraft(w, r, http.StatusCreated, d, err)
}

// LoadDraft handles POST /v1/drafts/load
func (h *HTTPHandler) LoadDraft(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PaperID string `json:"paperId"`
	}
	if !h.decode(w, r, &req) {
		return
	}
	d, err := h.svc.LoadDraft(r.Context(), session(r), req.PaperID)
	h.respondDraft(w, r, http.StatusCreated, d, err)
}

// GetDraft handles GET /v1/drafts/{id}
func (h *HTTPHandler) GetDraft(w http.ResponseWriter, r *http.Request) {
	d, err := h.svc.GetDraft(r.Context(), session(r), r.PathValue("id"))
	h.respondDraft(w, r, http.StatusOK, d, err)
}

// Discard handles DELETE /v1/drafts/{id}
func (h *HTTPHandler) Discard(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Discard(r.Context(), session(r), r.PathValue("id")); err != nil {
		httperrors.RespondFailure(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UpdateHeader handles PATCH /v1/drafts/{id}/header
func (h *HTTPHandler) UpdateHeader(w http.ResponseWriter, r *http.Request) {
	var req Header
	if !h.decode(w, r, &req) {
		return
	}
	d, err := h.svc.UpdateHeader(r.Context(), session(r), r.PathValue("id"), req)
	h.respondDraft(w, r, http.StatusOK, d, err)
}

// OpenSelection handles POST /v1/drafts/{id}/selection
func (h *HTTPHandler) OpenSelection(w http.ResponseWriter, r *http.Request) {
	var req OpenRequest
	if !h.decode(w, r, &req) {
		return
	}
	res, err := h.svc.OpenSelection(r.Context(), session(r), r.PathValue("id"), req)
	h.respondSelection(w, r, res, err)
}

// ViewSelection handles GET /v1/drafts/{id}/selection?only_selected=
func (h *HTTPHandler) ViewSelection(w http.ResponseWriter, r *http.Request) {
	only, _ := strconv.ParseBool(r.URL.Query().Get("only_selected"))
	res, err := h.svc.View(r.Context(), session(r), r.PathValue("id"), only)
	h.respondSelection(w, r, res, err)
}

// CloseSelection handles DELETE /v1/drafts/{id}/selection
func (h *HTTPHandler) CloseSelection(w http.ResponseWriter, r *http.Request) {
	d, err := h.svc.CloseSelection(r.Context(), session(r), r.PathValue("id"))
	h.respondDraft(w, r, http.StatusOK, d, err)
}

// EditBatch handles POST /v1/drafts/{id}/selection/edit
func (h *HTTPHandler) EditBatch(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Category   string `json:"category"`
		BatchIndex int    `json:"batchIndex"`
	}
	if !h.decode(w, r, &req) {
		return
	}
	c, ok := h.category(w, req.Category)
	if !ok {
		return
	}
	res, err := h.svc.EditBatch(r.Context(), session(r), r.PathValue("id"), c, req.BatchIndex)
	h.respondSelection(w, r, res, err)
}

// Toggle handles POST /v1/drafts/{id}/selection/toggle
func (h *HTTPHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TempID string `json:"tempId"`
	}
	if !h.decode(w, r, &req) {
		return
	}
	res, err := h.svc.Toggle(r.Context(), session(r), r.PathValue("id"), req.TempID)
	h.respondSelection(w, r, res, err)
}

// Random handles POST /v1/drafts/{id}/selection/random
func (h *HTTPHandler) Random(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Count int `json:"count"`
	}
	if !h.decode(w, r, &req) {
		return
	}
	res, err := h.svc.Random(r.Context(), session(r), r.PathValue("id"), req.Count)
	h.respondSelection(w, r, res, err)
}

// Configure handles POST /v1/drafts/{id}/selection/config. The field "required"
// resizes the round; every other field is a config override.
func (h *HTTPHandler) Configure(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Field string `json:"field"`
		Value int    `json:"value"`
	}
	if !h.decode(w, r, &req) {
		return
	}
	var (
		res *SelectionResult
		err error
	)
	if req.Field == "required" {
		res, err = h.svc.SetRequired(r.Context(), session(r), r.PathValue("id"), req.Value)
	} else {
		res, err = h.svc.Override(r.Context(), session(r), r.PathValue("id"), scoring.Field(req.Field), req.Value)
	}
	h.respondSelection(w, r, res, err)
}

// Commit handles POST /v1/drafts/{id}/selection/commit
func (h *HTTPHandler) Commit(w http.ResponseWriter, r *http.Request) {
	d, err := h.svc.Commit(r.Context(), session(r), r.PathValue("id"))
	h.respondDraft(w, r, http.StatusOK, d, err)
}

// RemoveQuestion handles DELETE /v1/drafts/{id}/questions/{tempID}
func (h *HTTPHandler) RemoveQuestion(w http.ResponseWriter, r *http.Request) {
	d, err := h.svc.RemoveQuestion(r.Context(), session(r), r.PathValue("id"), r.PathValue("tempID"))
	h.respondDraft(w, r, http.StatusOK, d, err)
}

// RemoveBatch handles DELETE /v1/drafts/{id}/batches/{category}/{index}
func (h *HTTPHandler) RemoveBatch(w http.ResponseWriter, r *http.Request) {
	c, ok := h.category(w, r.PathValue("category"))
	if !ok {
		return
	}
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		httperrors.RespondValidationError(w, httperrors.ErrCodeInvalidRequest, "batch index must be a number", "index")
		return
	}
	d, err := h.svc.RemoveBatch(r.Context(), session(r), r.PathValue("id"), c, index)
	h.respondDraft(w, r, http.StatusOK, d, err)
}

// EditQuestionText handles PATCH /v1/drafts/{id}/questions/text
func (h *HTTPHandler) EditQuestionText(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Category      string `json:"category"`
		BatchIndex    int    `json:"batchIndex"`
		QuestionIndex int    `json:"questionIndex"`
		Text          string `json:"text"`
	}
	if !h.decode(w, r, &req) {
		return
	}
	c, ok := h.category(w, req.Category)
	if !ok {
		return
	}
	d, err := h.svc.EditQuestionText(r.Context(), session(r), r.PathValue("id"), c, req.BatchIndex, req.QuestionIndex, req.Text)
	h.respondDraft(w, r, http.StatusOK, d, err)
}

// EditOption handles PATCH /v1/drafts/{id}/questions/option
func (h *HTTPHandler) EditOption(w http.ResponseWriter, r *http.Request) {
	var req struct {
		BatchIndex    int    `json:"batchIndex"`
		QuestionIndex int    `json:"questionIndex"`
		Key           string `json:"key"`
		Text          string `json:"text"`
	}
	if !h.decode(w, r, &req) {
		return
	}
	d, err := h.svc.EditOption(r.Context(), session(r), r.PathValue("id"), req.BatchIndex, req.QuestionIndex, req.Key, req.Text)
	h.respondDraft(w, r, http.StatusOK, d, err)
}

// Save handles POST /v1/drafts/{id}/save
func (h *HTTPHandler) Save(w http.ResponseWriter, r *http.Request) {
	d, err := h.svc.Save(r.Context(), session(r), r.PathValue("id"))
	h.respondDraft(w, r, http.StatusOK, d, err)
}

func session(r *http.Request) auth.Session {
	s, _ := auth.SessionFrom(r.Context())
	return s
}

func (h *HTTPHandler) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "Invalid JSON payload")
		return false
	}
	return true
}

func (h *HTTPHandler) category(w http.ResponseWriter, raw string) (paper.Category, bool) {
	c, err := paper.ParseCategory(raw)
	if err != nil {
		httperrors.RespondValidationError(w, httperrors.ErrCodeValidationFailed, err.Error(), "category")
		return "", false
	}
	return c, true
}

func (h *HTTPHandler) respondDraft(w http.ResponseWriter, r *http.Request, status int, d *Draft, err error) {
	if err != nil {
		h.logFailure(r, err)
		httperrors.RespondFailure(w, err)
		return
	}
	h.respondJSON(w, status, newDraftView(d))
}

func (h *HTTPHandler) respondSelection(w http.ResponseWriter, r *http.Request, res *SelectionResult, err error) {
	if err != nil {
		h.logFailure(r, err)
		httperrors.RespondFailure(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, res)
}

// logFailure records server-side faults on the request logger, which carries the
// request and staff ids.
func (h *HTTPHandler) logFailure(r *http.Request, err error) {
	logger := logging.FromContext(r.Context())
	switch failure.KindOf(err) {
	case failure.KindTransport, failure.KindUnexpected:
		logger.Error().Err(err).Str("path", r.URL.Path).Msg("draft request failed")
	default:
		logger.Debug().Err(err).Msg("draft request rejected")
	}
}

func (h *HTTPHandler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error().Err(err).Msg("failed to encode JSON response")
	}
}
