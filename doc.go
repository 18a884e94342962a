// Package billingkit provides a mountable Razorpay subscription billing
// plugin for Go HTTP applications.
//
// The module bridges a host application's user and session store with
// Razorpay's recurring-billing API: it exposes HTTP endpoints for creating,
// cancelling, and restoring subscriptions, keeps a locally-owned record of
// every subscription, and reconciles those records against provider state
// through signature-verified webhooks.
//
// Layout:
//
//   - svc/subscription — the billing core: lifecycle orchestration, status
//     reconciliation, plan catalog, hooks, error taxonomy
//   - modules/billing — chi router exposing the HTTP surface
//   - pkg/razorpay — typed client over the official Razorpay SDK
//   - pkg/storage — persistence adapter boundary (in-memory and Postgres)
//   - pkg/webhook — HMAC signature utilities
//   - pkg/config, pkg/logger, pkg/pg, pkg/redis — supporting infrastructure
//
// Minimal wiring:
//
//	adapter := storage.NewMemoryAdapter()
//	svc := subscription.New(cfg, razorpay.NewClient(cfg.KeyID, cfg.KeySecret),
//		subscription.NewStore(adapter), subscription.NewUserStore(adapter),
//		subscription.StaticPlans(plans...))
//
//	r := chi.NewRouter()
//	r.Mount("/billing", billing.New(svc, sessions).Handle())
package billingkit
