package subscription

import (
	"context"
	"log/slog"

	"github.com/dmitrymomot/billingkit/pkg/razorpay"
)

// Billing cycle counts requested from the provider. Monthly subscriptions
// renew for a year of cycles before requiring re-authorization; annual
// subscriptions charge once per authorization.
const (
	monthlyCycleCount = 12
	annualCycleCount  = 1
)

// CreateOrUpdateParams describe a checkout request.
type CreateOrUpdateParams struct {
	// Plan selects a catalog entry by display name or provider plan ID.
	Plan string
	// Annual picks the annual interval when the plan offers one.
	Annual bool
	// Seats is the subscription quantity; zero means one.
	Seats int
	// SubscriptionID, when set, re-fetches the checkout state of an
	// existing record instead of creating a new provider subscription.
	SubscriptionID string
	// ReferenceID is the billed entity; empty means the principal itself.
	ReferenceID string
	// GroupID optionally tags the record with a host-defined grouping.
	GroupID string
	// SuccessURL is where the client wants to land after checkout. Stored
	// in the provider notes so post-payment pages can read it back.
	SuccessURL string
	// Embed suppresses the hosted checkout URL for clients that render the
	// provider's embedded widget themselves.
	Embed bool
}

// CreateOrUpdateResult is the checkout handle returned to the client.
type CreateOrUpdateResult struct {
	SubscriptionID         string `json:"subscriptionId"`
	RazorpaySubscriptionID string `json:"razorpaySubscriptionId,omitempty"`
	Status                 Status `json:"status"`
	CheckoutURL            string `json:"checkoutUrl,omitempty"`
}

// CreateOrUpdate runs the checkout flow: it validates the plan and caller,
// enforces the one-live-subscription rule, provisions the provider customer
// on first use, creates the provider subscription, and persists the local
// record. A local sign-up trial for the same reference is upgraded in place
// rather than duplicated.
//
// All validation and authorization happens before any provider call, so a
// rejected request never leaves stray provider state behind.
func (s *Service) CreateOrUpdate(ctx context.Context, principal Principal, params CreateOrUpdateParams) (*CreateOrUpdateResult, error) {
	if !s.cfg.SubscriptionsEnabled {
		return nil, s.present(E(CodeSubscriptionDisabled, "subscriptions are disabled"))
	}
	if params.Plan == "" {
		return nil, s.present(E(CodeInvalidRequest, "plan is required"))
	}

	catalog, err := s.plans.Load(ctx)
	if err != nil {
		return nil, s.fail(ctx, "create", err)
	}
	plan, ok := ResolvePlan(catalog, params.Plan)
	if !ok {
		return nil, s.present(E(CodePlanNotFound, "plan not found").WithMeta("plan", params.Plan))
	}

	referenceID := params.ReferenceID
	if referenceID == "" {
		referenceID = principal.ID
	}
	if err := s.authorize(ctx, principal, referenceID); err != nil {
		return nil, s.present(Classify(err))
	}

	user, err := s.users.FindByID(ctx, principal.ID)
	if err != nil {
		return nil, s.fail(ctx, "create", err)
	}

	if params.SubscriptionID != "" {
		return s.refreshCheckout(ctx, referenceID, params)
	}

	release, err := s.locker.Acquire(ctx, "billing:create:"+referenceID)
	if err != nil {
		return nil, s.fail(ctx, "create", err)
	}
	defer release()

	existing, err := s.store.ListByReference(ctx, referenceID)
	if err != nil {
		return nil, s.fail(ctx, "create", err)
	}
	var trial *Record
	for _, rec := range existing {
		if rec.IsLivePaid() {
			return nil, s.present(E(CodeAlreadySubscribed, "an active subscription already exists").
				WithMeta("subscriptionId", rec.ID))
		}
		if rec.IsLocalTrial() {
			trial = rec
		}
	}

	customerID, err := s.ensureCustomer(ctx, user)
	if err != nil {
		return nil, s.fail(ctx, "create", err)
	}

	createParams := razorpay.SubscriptionCreateParams{
		PlanID:         plan.ProviderPlanID(params.Annual),
		TotalCount:     monthlyCycleCount,
		Quantity:       params.Seats,
		CustomerNotify: true,
		Notes: map[string]any{
			"referenceId": referenceID,
			"plan":        plan.Name,
		},
		Extra: map[string]any{
			"customer_id": customerID,
		},
	}
	if params.SuccessURL != "" {
		createParams.Notes["successUrl"] = params.SuccessURL
	}
	if params.Annual {
		createParams.TotalCount = annualCycleCount
	}
	if s.hooks.SubscriptionParams != nil {
		extra, err := s.hooks.SubscriptionParams(ctx, principal, plan)
		if err != nil {
			return nil, s.fail(ctx, "create", err)
		}
		for k, v := range extra {
			// Hook-contributed notes merge with the built ones instead of
			// replacing them wholesale.
			if k == "notes" {
				if notes, ok := v.(map[string]any); ok {
					for nk, nv := range notes {
						createParams.Notes[nk] = nv
					}
					continue
				}
			}
			createParams.Extra[k] = v
		}
	}

	sub, err := s.api.SubscriptionCreate(ctx, createParams)
	if err != nil {
		return nil, s.fail(ctx, "create", err)
	}

	now := s.now().UTC()
	var rec *Record
	if trial != nil {
		// Upgrade the sign-up trial in place so the reference keeps a
		// single record across the trial-to-paid transition.
		trial.Plan = plan.Name
		trial.PlanID = sub.PlanID
		trial.RazorpayCustomerID = customerID
		trial.RazorpaySubscriptionID = sub.ID
		trial.Status = StatusFromProvider(sub.Status)
		trial.Seats = params.Seats
		trial.GroupID = params.GroupID
		// The trial window closes at upgrade time; billing periods come
		// from the provider from here on.
		trial.TrialEnd = &now
		trial.PeriodStart = sub.CurrentStartTime()
		trial.PeriodEnd = sub.CurrentEndTime()
		trial.UpdatedAt = now
		rec, err = s.store.Save(ctx, trial)
	} else {
		rec, err = s.store.Create(ctx, &Record{
			ID:                     s.newID(),
			Plan:                   plan.Name,
			PlanID:                 sub.PlanID,
			ReferenceID:            referenceID,
			RazorpayCustomerID:     customerID,
			RazorpaySubscriptionID: sub.ID,
			Status:                 StatusFromProvider(sub.Status),
			Seats:                  params.Seats,
			GroupID:                params.GroupID,
			CreatedAt:              now,
			UpdatedAt:              now,
		})
	}
	if err != nil {
		// Provider subscription exists but the local write failed; the
		// webhook reconciliation path cannot recover a record that was
		// never stored, so surface loudly.
		s.log.ErrorContext(ctx, "provider subscription created but local record write failed",
			slog.String("razorpaySubscriptionId", sub.ID),
			slog.String("referenceId", referenceID),
			slog.Any("error", err),
		)
		return nil, s.fail(ctx, "create", err)
	}

	if s.hooks.OnSubscriptionCreated != nil {
		safeHook(ctx, s.log, "OnSubscriptionCreated", func() {
			s.hooks.OnSubscriptionCreated(ctx, rec)
		})
	}

	result := &CreateOrUpdateResult{
		SubscriptionID:         rec.ID,
		RazorpaySubscriptionID: sub.ID,
		Status:                 rec.Status,
	}
	if !params.Embed {
		result.CheckoutURL = sub.ShortURL
	}
	return result, nil
}

// refreshCheckout re-reads an existing record's checkout state from the
// provider, letting a client resume an abandoned checkout without creating
// a duplicate provider subscription.
func (s *Service) refreshCheckout(ctx context.Context, referenceID string, params CreateOrUpdateParams) (*CreateOrUpdateResult, error) {
	rec, err := s.store.FindByID(ctx, params.SubscriptionID)
	if err != nil {
		return nil, s.fail(ctx, "create", err)
	}
	if rec.ReferenceID != referenceID {
		return nil, s.present(E(CodeForbidden, "subscription belongs to a different reference").
			WithMeta("subscriptionId", rec.ID))
	}
	if rec.RazorpaySubscriptionID == "" {
		return nil, s.present(E(CodeInvalidState, "subscription has no provider checkout to resume").
			WithMeta("subscriptionId", rec.ID))
	}

	sub, err := s.api.SubscriptionFetch(ctx, rec.RazorpaySubscriptionID)
	if err != nil {
		return nil, s.fail(ctx, "create", err)
	}

	rec.Status = StatusFromProvider(sub.Status)
	rec.PeriodStart = sub.CurrentStartTime()
	rec.PeriodEnd = sub.CurrentEndTime()
	rec.UpdatedAt = s.now().UTC()
	if rec, err = s.store.Save(ctx, rec); err != nil {
		return nil, s.fail(ctx, "create", err)
	}

	result := &CreateOrUpdateResult{
		SubscriptionID:         rec.ID,
		RazorpaySubscriptionID: sub.ID,
		Status:                 rec.Status,
	}
	if !params.Embed {
		result.CheckoutURL = sub.ShortURL
	}
	return result, nil
}

// ensureCustomer returns the user's provider customer ID, creating the
// provider customer on first use and persisting the link.
func (s *Service) ensureCustomer(ctx context.Context, user *User) (string, error) {
	if user.RazorpayCustomerID != "" {
		return user.RazorpayCustomerID, nil
	}

	createParams := razorpay.CustomerCreateParams{
		Name:  user.Name,
		Email: user.Email,
		Notes: map[string]any{"userId": user.ID},
	}
	if s.hooks.CustomerParams != nil {
		extra, err := s.hooks.CustomerParams(ctx, user)
		if err != nil {
			return "", err
		}
		createParams.Extra = extra
	}

	customer, err := s.api.CustomerCreate(ctx, createParams)
	if err != nil {
		return "", err
	}
	if err := s.users.SetCustomerID(ctx, user.ID, customer.ID); err != nil {
		return "", err
	}
	user.RazorpayCustomerID = customer.ID
	return customer.ID, nil
}
