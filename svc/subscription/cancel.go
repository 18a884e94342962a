package subscription

import (
	"context"
	"time"
)

// CancelParams describe a cancellation request.
type CancelParams struct {
	SubscriptionID string
	// Immediately ends the subscription now instead of at the end of the
	// current billing cycle.
	Immediately bool
}

// CancelResult reports the post-cancellation state.
type CancelResult struct {
	ID                string     `json:"id"`
	Status            Status     `json:"status"`
	PlanID            string     `json:"plan_id,omitempty"`
	CancelAtPeriodEnd bool       `json:"cancel_at_period_end"`
	CurrentEnd        *time.Time `json:"current_end,omitempty"`
	EndedAt           *time.Time `json:"ended_at,omitempty"`
}

// Cancel stops a subscription. The default is cancel-at-cycle-end: the
// provider schedules the cancellation and the record only gets flagged; the
// status change itself arrives later through the webhook. An immediate
// cancel updates the local status from the provider's response right away.
func (s *Service) Cancel(ctx context.Context, principal Principal, params CancelParams) (*CancelResult, error) {
	if params.SubscriptionID == "" {
		return nil, s.present(E(CodeInvalidRequest, "subscription ID is required"))
	}

	rec, err := s.store.FindByID(ctx, params.SubscriptionID)
	if err != nil {
		return nil, s.fail(ctx, "cancel", err)
	}
	if err := s.authorize(ctx, principal, rec.ReferenceID); err != nil {
		return nil, s.present(Classify(err))
	}
	if rec.RazorpaySubscriptionID == "" {
		return nil, s.present(E(CodeInvalidState, "subscription has no provider counterpart to cancel").
			WithMeta("subscriptionId", rec.ID))
	}

	sub, err := s.api.SubscriptionCancel(ctx, rec.RazorpaySubscriptionID, !params.Immediately)
	if err != nil {
		return nil, s.fail(ctx, "cancel", err)
	}

	now := s.now().UTC()
	if params.Immediately {
		rec.Status = StatusFromProvider(sub.Status)
		rec.PeriodStart = sub.CurrentStartTime()
		rec.PeriodEnd = sub.CurrentEndTime()
		rec.CancelAtPeriodEnd = false
	} else {
		// Status stays live until the provider confirms the cancellation
		// through the webhook at cycle end.
		rec.CancelAtPeriodEnd = true
	}
	rec.UpdatedAt = now
	if rec, err = s.store.Save(ctx, rec); err != nil {
		return nil, s.fail(ctx, "cancel", err)
	}

	// The response echoes the provider snapshot, not the local record: on a
	// scheduled cancel the record stays on its pre-cancel status until the
	// webhook confirms, while the provider already reports the cancellation
	// outcome.
	result := &CancelResult{
		ID:                sub.ID,
		Status:            StatusFromProvider(sub.Status),
		PlanID:            sub.PlanID,
		CancelAtPeriodEnd: rec.CancelAtPeriodEnd,
		CurrentEnd:        sub.CurrentEndTime(),
	}
	if sub.EndedAt != nil && *sub.EndedAt > 0 {
		t := time.Unix(*sub.EndedAt, 0).UTC()
		result.EndedAt = &t
	}
	return result, nil
}

// Restore undoes a pending cancellation. Two provider operations apply
// depending on the record's state: a scheduled cancel-at-cycle-end is
// revoked, and a halted subscription is resumed. Anything else is not
// restorable.
func (s *Service) Restore(ctx context.Context, principal Principal, subscriptionID string) (*CancelResult, error) {
	if subscriptionID == "" {
		return nil, s.present(E(CodeInvalidRequest, "subscription ID is required"))
	}

	rec, err := s.store.FindByID(ctx, subscriptionID)
	if err != nil {
		return nil, s.fail(ctx, "restore", err)
	}
	if err := s.authorize(ctx, principal, rec.ReferenceID); err != nil {
		return nil, s.present(Classify(err))
	}
	if rec.RazorpaySubscriptionID == "" {
		return nil, s.present(E(CodeInvalidState, "subscription has no provider counterpart to restore").
			WithMeta("subscriptionId", rec.ID))
	}

	switch {
	case rec.CancelAtPeriodEnd:
		sub, err := s.api.SubscriptionCancelScheduledChanges(ctx, rec.RazorpaySubscriptionID)
		if err != nil {
			return nil, s.fail(ctx, "restore", err)
		}
		rec.Status = StatusFromProvider(sub.Status)
		rec.PeriodStart = sub.CurrentStartTime()
		rec.PeriodEnd = sub.CurrentEndTime()
	case rec.Status == StatusHalted:
		sub, err := s.api.SubscriptionResume(ctx, rec.RazorpaySubscriptionID)
		if err != nil {
			return nil, s.fail(ctx, "restore", err)
		}
		rec.Status = StatusFromProvider(sub.Status)
		rec.PeriodStart = sub.CurrentStartTime()
		rec.PeriodEnd = sub.CurrentEndTime()
	default:
		return nil, s.present(E(CodeInvalidState, "subscription has no pending cancellation to restore").
			WithMeta("subscriptionId", rec.ID).
			WithMeta("status", string(rec.Status)))
	}

	rec.CancelAtPeriodEnd = false
	rec.UpdatedAt = s.now().UTC()
	if rec, err = s.store.Save(ctx, rec); err != nil {
		return nil, s.fail(ctx, "restore", err)
	}

	return &CancelResult{
		ID:                rec.ID,
		Status:            rec.Status,
		PlanID:            rec.PlanID,
		CancelAtPeriodEnd: rec.CancelAtPeriodEnd,
		CurrentEnd:        rec.PeriodEnd,
	}, nil
}
