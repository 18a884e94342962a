package billing

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/billingkit/svc/subscription"
)

// SessionResolver bridges the host application's session layer. It returns
// the authenticated principal for a request or an error when the request
// carries no valid session.
type SessionResolver interface {
	Principal(r *http.Request) (subscription.Principal, error)
}

// SessionResolverFunc adapts a function to SessionResolver.
type SessionResolverFunc func(r *http.Request) (subscription.Principal, error)

func (f SessionResolverFunc) Principal(r *http.Request) (subscription.Principal, error) {
	return f(r)
}

// maxWebhookBody caps webhook request bodies; provider deliveries are small.
const maxWebhookBody = 1 << 20

// Module is the HTTP surface of the billing service: plan listing and the
// webhook receiver are public, everything else requires a session.
type Module struct {
	svc     *subscription.Service
	session SessionResolver
	log     *slog.Logger
}

// Option customizes a Module.
type Option func(*Module)

// WithLogger sets the structured logger for request-level failures.
func WithLogger(log *slog.Logger) Option {
	return func(m *Module) {
		if log != nil {
			m.log = log
		}
	}
}

// New creates the billing HTTP module. The service and session resolver are
// mandatory; panics on missing dependencies to fail fast during wiring.
//
// Example:
//
//	r := chi.NewRouter()
//	r.Mount("/billing", billing.New(svc, sessions).Handle())
func New(svc *subscription.Service, session SessionResolver, opts ...Option) *Module {
	if svc == nil {
		panic("billing: subscription service is required")
	}
	if session == nil {
		panic("billing: session resolver is required")
	}
	m := &Module{svc: svc, session: session, log: slog.Default()}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Handle returns the module router.
func (m *Module) Handle() http.Handler {
	r := chi.NewRouter()

	// Public surface.
	r.Get("/get-plans", m.getPlans)
	r.Post("/webhook", m.handleWebhook)

	// Session-scoped surface.
	r.Group(func(r chi.Router) {
		r.Use(m.requireSession)

		r.Get("/subscription/list", m.listSubscriptions)
		r.Post("/subscription/create-or-update", m.createOrUpdate)
		r.Post("/subscription/cancel", m.cancel)
		r.Post("/subscription/restore", m.restore)

		if m.svc.PaymentVerificationEnabled() {
			r.Post("/verify-payment", m.verifyPayment)
		}
	})

	return r
}
