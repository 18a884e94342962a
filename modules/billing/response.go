package billing

import (
	"encoding/json"
	"net/http"

	"github.com/dmitrymomot/billingkit/svc/subscription"
)

// envelope is the tagged response union: success carries data, failure
// carries the typed error.
type envelope struct {
	Success bool           `json:"success"`
	Data    any            `json:"data,omitempty"`
	Error   *errorResponse `json:"error,omitempty"`
}

type errorResponse struct {
	Code        subscription.Code `json:"code"`
	Description string            `json:"description"`
	Meta        map[string]any    `json:"meta,omitempty"`
}

// statusByCode maps error codes to HTTP statuses. Codes missing from the
// table answer 500.
var statusByCode = map[subscription.Code]int{
	subscription.CodeInvalidRequest:              http.StatusBadRequest,
	subscription.CodeUnauthorized:                http.StatusUnauthorized,
	subscription.CodeForbidden:                   http.StatusForbidden,
	subscription.CodeUserNotFound:                http.StatusNotFound,
	subscription.CodePlanNotFound:                http.StatusNotFound,
	subscription.CodeSubscriptionNotFound:        http.StatusNotFound,
	subscription.CodeSubscriptionDisabled:        http.StatusServiceUnavailable,
	subscription.CodeAlreadySubscribed:           http.StatusConflict,
	subscription.CodeInvalidState:                http.StatusConflict,
	subscription.CodeSignatureVerificationFailed: http.StatusBadRequest,
	subscription.CodeNetworkError:                http.StatusBadGateway,
	subscription.CodeTimeoutError:                http.StatusGatewayTimeout,
	subscription.CodeRazorpayError:               http.StatusBadGateway,
	subscription.CodeUnknownError:                http.StatusInternalServerError,
}

func respondData(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{Success: true, Data: data})
}

func respondError(w http.ResponseWriter, err error) {
	e := subscription.Classify(err)
	status, ok := statusByCode[e.Code]
	if !ok {
		status = http.StatusInternalServerError
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{
		Success: false,
		Error: &errorResponse{
			Code:        e.Code,
			Description: e.Description,
			Meta:        e.Meta,
		},
	})
}
