package http

import (
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/neomorfeo/docsign/internal/domain"
)

var kindStatus = map[domain.Kind]int{
	domain.KindNotFound:         http.StatusNotFound,
	domain.KindOwnership:        http.StatusForbidden,
	domain.KindForbidden:        http.StatusForbidden,
	domain.KindQuotaExceeded:    http.StatusPaymentRequired,
	domain.KindInvalidState:     http.StatusConflict,
	domain.KindValidationFailed: http.StatusUnprocessableEntity,
	domain.KindExpired:          http.StatusGone,
	domain.KindUpstream:         http.StatusBadGateway,
}

// toHumaError translates domain errors to Huma HTTP errors. The stable code is
// reported as the first error detail so clients can branch on it.
func toHumaError(err error) error {
	code := domain.CodeOf(err)
	if code == "" {
		return huma.Error500InternalServerError("internal server error")
	}

	status, ok := kindStatus[domain.KindOf(err)]
	if !ok {
		status = http.StatusInternalServerError
	}

	details := []error{&huma.ErrorDetail{
		Message:  string(code),
		Location: "code",
		Value:    string(code),
	}}

	var batchErr *domain.BatchError
	if errors.As(err, &batchErr) {
		details = append(details, &huma.ErrorDetail{
			Message:  "failing item",
			Location: "index",
			Value:    batchErr.Index,
		})
		for _, id := range batchErr.Committed {
			details = append(details, &huma.ErrorDetail{
				Message:  "committed",
				Location: "committed",
				Value:    id,
			})
		}
	}

	return huma.NewError(status, err.Error(), details...)
}
