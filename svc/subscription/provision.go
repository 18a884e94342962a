package subscription

import (
	"context"
	"log/slog"
	"time"
)

// OnSignUp provisions billing state for a freshly-registered user: a
// provider customer record when enabled, and a local trial subscription
// when a trial plan is configured. Sign-up must never fail because of
// billing, so every error here is logged and swallowed.
func (s *Service) OnSignUp(ctx context.Context, user *User) {
	if user == nil || user.ID == "" {
		return
	}

	if !s.cfg.CreateCustomerOnSignUp {
		return
	}
	if _, err := s.ensureCustomer(ctx, user); err != nil {
		s.log.ErrorContext(ctx, "customer provisioning on sign-up failed",
			slog.String("userId", user.ID),
			slog.Any("error", err),
		)
	}

	// The trial needs both the provisioning flag and a configured trial
	// plan; either alone does nothing.
	if s.cfg.TrialPlan == "" {
		return
	}
	if err := s.startTrial(ctx, user); err != nil {
		s.log.ErrorContext(ctx, "trial provisioning on sign-up failed",
			slog.String("userId", user.ID),
			slog.String("plan", s.cfg.TrialPlan),
			slog.Any("error", err),
		)
	}
}

// startTrial creates a local trial record for the configured trial plan.
// The trial is app-level only: no provider subscription exists until the
// user upgrades, at which point the record is converted in place.
func (s *Service) startTrial(ctx context.Context, user *User) error {
	catalog, err := s.plans.Load(ctx)
	if err != nil {
		return err
	}
	plan, ok := ResolvePlan(catalog, s.cfg.TrialPlan)
	if !ok {
		return E(CodePlanNotFound, "trial plan not found").WithMeta("plan", s.cfg.TrialPlan)
	}
	if plan.FreeTrialDays <= 0 {
		return E(CodeInvalidState, "trial plan has no free trial days configured").
			WithMeta("plan", plan.Name)
	}

	existing, err := s.store.ListByReference(ctx, user.ID)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		// Already has billing history; sign-up trials are first-time only.
		return nil
	}

	now := s.now().UTC()
	trialEnd := now.Add(time.Duration(plan.FreeTrialDays) * 24 * time.Hour)
	_, err = s.store.Create(ctx, &Record{
		ID:                 s.newID(),
		Plan:               plan.Name,
		ReferenceID:        user.ID,
		RazorpayCustomerID: user.RazorpayCustomerID,
		Status:             StatusTrialing,
		TrialStart:         &now,
		TrialEnd:           &trialEnd,
		CreatedAt:          now,
		UpdatedAt:          now,
	})
	return err
}
