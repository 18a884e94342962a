package billing

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/dmitrymomot/billingkit/pkg/webhook"
	"github.com/dmitrymomot/billingkit/svc/subscription"
)

type principalKey struct{}

// requireSession resolves the caller's session and stores the principal in
// the request context. Requests without a valid session get the error
// envelope instead of reaching a handler.
func (m *Module) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal, err := m.session.Principal(r)
		if err != nil || principal.ID == "" {
			respondError(w, subscription.E(subscription.CodeUnauthorized, "authentication required"))
			return
		}
		ctx := context.WithValue(r.Context(), principalKey{}, principal)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func principalFrom(ctx context.Context) subscription.Principal {
	p, _ := ctx.Value(principalKey{}).(subscription.Principal)
	return p
}

// decodeJSON reads a request body into dst. An empty body decodes into the
// zero value so handlers with all-optional fields do not force clients to
// send "{}".
func decodeJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return nil
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if err == io.EOF {
			return nil
		}
		return subscription.E(subscription.CodeInvalidRequest, "request body is not valid JSON")
	}
	return nil
}

func (m *Module) getPlans(w http.ResponseWriter, r *http.Request) {
	withPrices := r.URL.Query().Get("prices") == "true"
	plans, err := m.svc.Plans(r.Context(), withPrices)
	if err != nil {
		respondError(w, err)
		return
	}
	respondData(w, http.StatusOK, plans)
}

type createOrUpdateRequest struct {
	Plan           string `json:"plan"`
	Annual         bool   `json:"annual"`
	Seats          int    `json:"seats"`
	SubscriptionID string `json:"subscriptionId"`
	ReferenceID    string `json:"referenceId"`
	GroupID        string `json:"groupId"`
	SuccessURL     string `json:"successUrl"`
	// DisableRedirect is accepted for client compatibility; a JSON API
	// never redirects, the client decides what to do with checkoutUrl.
	DisableRedirect bool `json:"disableRedirect"`
	Embed           bool `json:"embed"`
}

func (m *Module) createOrUpdate(w http.ResponseWriter, r *http.Request) {
	var req createOrUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}

	res, err := m.svc.CreateOrUpdate(r.Context(), principalFrom(r.Context()), subscription.CreateOrUpdateParams{
		Plan:           req.Plan,
		Annual:         req.Annual,
		Seats:          req.Seats,
		SubscriptionID: req.SubscriptionID,
		ReferenceID:    req.ReferenceID,
		GroupID:        req.GroupID,
		SuccessURL:     req.SuccessURL,
		Embed:          req.Embed,
	})
	if err != nil {
		respondError(w, err)
		return
	}
	respondData(w, http.StatusOK, res)
}

func (m *Module) listSubscriptions(w http.ResponseWriter, r *http.Request) {
	recs, err := m.svc.List(r.Context(), principalFrom(r.Context()), r.URL.Query().Get("referenceId"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondData(w, http.StatusOK, recs)
}

type cancelRequest struct {
	SubscriptionID string `json:"subscriptionId"`
	Immediately    bool   `json:"immediately"`
}

func (m *Module) cancel(w http.ResponseWriter, r *http.Request) {
	var req cancelRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}

	res, err := m.svc.Cancel(r.Context(), principalFrom(r.Context()), subscription.CancelParams{
		SubscriptionID: req.SubscriptionID,
		Immediately:    req.Immediately,
	})
	if err != nil {
		respondError(w, err)
		return
	}
	respondData(w, http.StatusOK, res)
}

type restoreRequest struct {
	SubscriptionID string `json:"subscriptionId"`
}

func (m *Module) restore(w http.ResponseWriter, r *http.Request) {
	var req restoreRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}

	res, err := m.svc.Restore(r.Context(), principalFrom(r.Context()), req.SubscriptionID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondData(w, http.StatusOK, res)
}

func (m *Module) verifyPayment(w http.ResponseWriter, r *http.Request) {
	var req subscription.VerifyPaymentParams
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}

	res, err := m.svc.VerifyPayment(r.Context(), req)
	if err != nil {
		respondError(w, err)
		return
	}
	respondData(w, http.StatusOK, res)
}

// handleWebhook reads the raw body before any parsing so the signature is
// checked against exactly what the provider sent.
func (m *Module) handleWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		m.log.WarnContext(r.Context(), "webhook body read failed", slog.Any("error", err))
		respondError(w, subscription.E(subscription.CodeInvalidRequest, "failed to read request body"))
		return
	}

	res := m.svc.HandleWebhook(r.Context(), body, r.Header.Get(webhook.SignatureHeader))
	status := http.StatusOK
	if !res.Success {
		status = http.StatusBadRequest
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(res)
}
