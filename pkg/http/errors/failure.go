package errors

import (
	"net/http"

	"github.com/gokatarajesh/paper-builder/internal/failure"
)

// NoticeResponse is the body for lookups that succeeded but found nothing.
type NoticeResponse struct {
	Notice  string `json:"notice"`
	Message string `json:"message"`
}

// RespondFailure maps a classified failure to its HTTP status and user notice.
// Empty results are not errors: they answer 200 with a notice.
func RespondFailure(w http.ResponseWriter, err error) {
	msg := failure.Message(err)
	switch failure.KindOf(err) {
	case failure.KindNotFound:
		RespondNotFound(w, ErrCodeNotFound, msg)
	case failure.KindEmpty:
		write(w, http.StatusOK, NoticeResponse{Notice: ErrCodeNoQuestions, Message: msg})
	case failure.KindConstraint:
		RespondError(w, http.StatusUnprocessableEntity, ErrCodeConstraintViolation, msg)
	case failure.KindTransport:
		RespondError(w, http.StatusBadGateway, ErrCodeUpstreamError, msg)
	default:
		RespondInternalError(w, msg)
	}
}
