package bank

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/gokatarajesh/paper-builder/internal/paper"
	httperrors "github.com/gokatarajesh/paper-builder/pkg/http/errors"
)

// HTTPHandler previews candidate pools without opening a draft.
type HTTPHandler struct {
	svc    *Service
	logger zerolog.Logger
}

func NewHTTPHandler(svc *Service, logger zerolog.Logger) *HTTPHandler {
	return &HTTPHandler{svc: svc, logger: logger}
}

type poolResponse struct {
	Count      int              `json:"count"`
	Candidates []paper.Question `json:"candidates"`
}

// Resolve handles POST /v1/pool/resolve
func (h *HTTPHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	var q Query
	if err := json.NewDecoder(r.Body).Decode(&q); err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "Invalid JSON payload")
		return
	}
	if q.Category != "" {
		c, err := paper.ParseCategory(string(q.Category))
		if err != nil {
			httperrors.RespondValidationError(w, httperrors.ErrCodeValidationFailed, err.Error(), "category")
			return
		}
		q.Category = c
	}

	questions, err := h.svc.Resolve(r.Context(), q)
	if err != nil {
		httperrors.RespondFailure(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(poolResponse{Count: len(questions), Candidates: questions}); err != nil {
		h.logger.Error().Err(err).Msg("failed to encode JSON response")
	}
}
