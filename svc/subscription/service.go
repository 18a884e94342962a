package subscription

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/billingkit/pkg/razorpay"
	"github.com/dmitrymomot/billingkit/pkg/webhook"
)

// Config carries the billing service settings, loadable from the
// environment via pkg/config.
type Config struct {
	KeyID                  string `env:"RAZORPAY_KEY_ID,required"`
	KeySecret              string `env:"RAZORPAY_KEY_SECRET,required"`
	WebhookSecret          string `env:"RAZORPAY_WEBHOOK_SECRET"`
	Environment            string `env:"BILLING_ENVIRONMENT" envDefault:"development"`
	SubscriptionsEnabled   bool   `env:"BILLING_SUBSCRIPTIONS_ENABLED" envDefault:"true"`
	CreateCustomerOnSignUp bool   `env:"BILLING_CREATE_CUSTOMER_ON_SIGNUP" envDefault:"false"`
	TrialPlan              string `env:"BILLING_TRIAL_PLAN"`
}

// Service orchestrates the subscription lifecycle: checkout, cancellation,
// restoration, webhook reconciliation, and customer provisioning.
type Service struct {
	cfg    Config
	api    razorpay.API
	store  *Store
	users  *UserStore
	plans  PlanSource
	hooks  Hooks
	locker ReferenceLocker
	log    *slog.Logger
	newID  func() string
	now    func() time.Time
}

// Option customizes a Service.
type Option func(*Service)

// WithHooks installs the host application's extension points.
func WithHooks(h Hooks) Option {
	return func(s *Service) { s.hooks = h }
}

// WithLocker replaces the in-process reference locker, typically with the
// Redis-backed one for multi-instance deployments.
func WithLocker(l ReferenceLocker) Option {
	return func(s *Service) {
		if l != nil {
			s.locker = l
		}
	}
}

// WithLogger sets the structured logger.
func WithLogger(log *slog.Logger) Option {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

// WithIDGenerator overrides local record ID generation. Used in tests.
func WithIDGenerator(fn func() string) Option {
	return func(s *Service) {
		if fn != nil {
			s.newID = fn
		}
	}
}

// WithClock overrides the time source. Used in tests.
func WithClock(fn func() time.Time) Option {
	return func(s *Service) {
		if fn != nil {
			s.now = fn
		}
	}
}

// New creates the billing service. The provider client, persistence adapter
// (wrapped as stores), and plan source are mandatory; everything else has a
// default. Panics on missing dependencies to fail fast during wiring.
func New(cfg Config, api razorpay.API, store *Store, users *UserStore, plans PlanSource, opts ...Option) *Service {
	if api == nil {
		panic("subscription: provider API is required")
	}
	if store == nil || users == nil {
		panic("subscription: stores are required")
	}
	if plans == nil {
		panic("subscription: plan source is required")
	}

	s := &Service{
		cfg:    cfg,
		api:    api,
		store:  store,
		users:  users,
		plans:  plans,
		locker: NewMutexLocker(),
		log:    slog.Default(),
		newID:  uuid.NewString,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) production() bool {
	return s.cfg.Environment == "production"
}

// present prepares a typed error for the caller. In production the
// debugging meta is stripped and provider error text is replaced with a
// generic description so upstream identifiers never leak.
func (s *Service) present(e *Error) *Error {
	if e == nil || !s.production() {
		return e
	}
	out := &Error{Code: e.Code, Description: e.Description}
	switch e.Code {
	case CodeRazorpayError:
		out.Description = "the payment provider rejected the request"
	case CodeNetworkError, CodeTimeoutError:
		out.Description = "the payment provider is unreachable, try again later"
	case CodeUnknownError:
		out.Description = "something went wrong, try again later"
	}
	return out
}

// fail classifies, logs, and presents a failure in one step.
func (s *Service) fail(ctx context.Context, op string, err error) *Error {
	e := Classify(err)
	s.log.ErrorContext(ctx, "billing operation failed",
		slog.String("op", op),
		slog.String("code", string(e.Code)),
		slog.String("description", e.Description),
		slog.Any("meta", e.Meta),
	)
	return s.present(e)
}

// PaymentVerificationEnabled reports whether the client-side payment
// verification endpoint can operate. It needs the API key secret, which
// signs the payment confirmation payload.
func (s *Service) PaymentVerificationEnabled() bool {
	return s.cfg.KeySecret != ""
}

// List returns the live subscription records owned by a reference, after
// the caller has been authorized for that reference. Terminal records
// (cancelled, completed, expired) are billing history and stay out of the
// listing.
func (s *Service) List(ctx context.Context, principal Principal, referenceID string) ([]*Record, error) {
	if referenceID == "" {
		referenceID = principal.ID
	}
	if err := s.authorize(ctx, principal, referenceID); err != nil {
		return nil, s.present(Classify(err))
	}
	recs, err := s.store.ListByReference(ctx, referenceID)
	if err != nil {
		return nil, s.fail(ctx, "list", err)
	}
	live := make([]*Record, 0, len(recs))
	for _, rec := range recs {
		if rec.Status.Live() {
			live = append(live, rec)
		}
	}
	return live, nil
}

// authorize checks that the principal may act for the reference. Without a
// host hook the only permitted reference is the principal itself.
func (s *Service) authorize(ctx context.Context, principal Principal, referenceID string) error {
	if s.hooks.AuthorizeReference != nil {
		if err := s.hooks.AuthorizeReference(ctx, principal, referenceID); err != nil {
			var typed *Error
			if errors.As(err, &typed) {
				return typed
			}
			return E(CodeForbidden, "not allowed to manage billing for this reference").
				WithMeta("cause", err.Error())
		}
		return nil
	}
	if referenceID != principal.ID {
		return E(CodeForbidden, "not allowed to manage billing for this reference")
	}
	return nil
}

// PlanInfo is a catalog entry enriched with provider pricing when
// requested.
type PlanInfo struct {
	PlanConfig
	Prices map[string]PlanPrice `json:"prices,omitempty"`
}

// PlanPrice is the provider-side price of one billing interval.
type PlanPrice struct {
	PlanID   string `json:"planId"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Period   string `json:"period"`
}

// Plans returns the configured catalog. With withPrices set, provider
// pricing is attached per interval; price lookups are best effort and a
// failed lookup leaves the entry without that interval rather than failing
// the whole listing.
func (s *Service) Plans(ctx context.Context, withPrices bool) ([]PlanInfo, error) {
	catalog, err := s.plans.Load(ctx)
	if err != nil {
		return nil, s.fail(ctx, "plans", err)
	}

	out := make([]PlanInfo, 0, len(catalog))
	for _, p := range catalog {
		info := PlanInfo{PlanConfig: p}
		if withPrices {
			info.Prices = make(map[string]PlanPrice)
			s.attachPrice(ctx, info.Prices, "monthly", p.MonthlyPlanID)
			s.attachPrice(ctx, info.Prices, "annual", p.AnnualPlanID)
		}
		out = append(out, info)
	}
	return out, nil
}

func (s *Service) attachPrice(ctx context.Context, prices map[string]PlanPrice, interval, planID string) {
	if planID == "" {
		return
	}
	plan, err := s.api.PlanFetch(ctx, planID)
	if err != nil {
		s.log.WarnContext(ctx, "plan price lookup failed",
			slog.String("planId", planID),
			slog.Any("error", err),
		)
		return
	}
	prices[interval] = PlanPrice{
		PlanID:   plan.ID,
		Amount:   plan.Item.Amount,
		Currency: plan.Item.Currency,
		Period:   plan.Period,
	}
}

// VerifyPaymentParams are the identifiers the checkout widget hands back
// after a successful payment.
type VerifyPaymentParams struct {
	PaymentID      string `json:"razorpay_payment_id"`
	SubscriptionID string `json:"razorpay_subscription_id"`
	Signature      string `json:"razorpay_signature"`
}

// VerifyPaymentResult is the payment snapshot returned after successful
// client-side verification.
type VerifyPaymentResult struct {
	Message        string `json:"message"`
	PaymentID      string `json:"payment_id"`
	SubscriptionID string `json:"subscription_id"`
	Amount         int64  `json:"amount,omitempty"`
	Currency       string `json:"currency,omitempty"`
}

// VerifyPayment checks the HMAC signature the checkout widget returns and,
// on success, returns a snapshot of the payment and refreshes the local
// record from the provider. The webhook remains the source of truth; the
// refresh only shortens the window where the UI shows a stale status.
func (s *Service) VerifyPayment(ctx context.Context, params VerifyPaymentParams) (*VerifyPaymentResult, error) {
	if params.PaymentID == "" || params.SubscriptionID == "" || params.Signature == "" {
		return nil, s.present(E(CodeInvalidRequest, "payment ID, subscription ID, and signature are required"))
	}
	if !s.PaymentVerificationEnabled() {
		return nil, s.present(E(CodeInvalidRequest, "payment verification is not configured"))
	}

	if err := webhook.VerifyPayment(s.cfg.KeySecret, params.PaymentID, params.SubscriptionID, params.Signature); err != nil {
		return nil, s.present(E(CodeSignatureVerificationFailed, "payment signature verification failed"))
	}

	result := &VerifyPaymentResult{
		Message:        "payment verified",
		PaymentID:      params.PaymentID,
		SubscriptionID: params.SubscriptionID,
	}

	// Snapshot and refresh are best effort: the signature already proved
	// the payment, so provider hiccups past this point do not fail the
	// verification itself.
	if payment, err := s.api.PaymentFetch(ctx, params.PaymentID); err == nil {
		result.Amount = payment.Amount
		result.Currency = payment.Currency
	} else {
		s.log.WarnContext(ctx, "post-verification payment fetch failed",
			slog.String("paymentId", params.PaymentID),
			slog.Any("error", err),
		)
	}

	s.refreshRecord(ctx, params.SubscriptionID)
	return result, nil
}

// refreshRecord pulls the provider subscription and syncs the local record.
// Failures are logged only; the webhook will reconcile eventually.
func (s *Service) refreshRecord(ctx context.Context, providerSubID string) {
	rec, err := s.store.FindByProviderSubscriptionID(ctx, providerSubID)
	if err != nil {
		s.log.WarnContext(ctx, "verified payment for unknown subscription",
			slog.String("razorpaySubscriptionId", providerSubID),
		)
		return
	}

	sub, err := s.api.SubscriptionFetch(ctx, providerSubID)
	if err != nil {
		s.log.WarnContext(ctx, "post-verification subscription refresh failed",
			slog.String("razorpaySubscriptionId", providerSubID),
			slog.Any("error", err),
		)
		return
	}

	rec.Status = StatusFromProvider(sub.Status)
	rec.PeriodStart = sub.CurrentStartTime()
	rec.PeriodEnd = sub.CurrentEndTime()
	rec.UpdatedAt = s.now().UTC()
	if _, err := s.store.Save(ctx, rec); err != nil {
		s.log.WarnContext(ctx, "post-verification record save failed",
			slog.String("subscriptionId", rec.ID),
			slog.Any("error", err),
		)
	}
}
