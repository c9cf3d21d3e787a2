// Package entitlements provides a subscription entitlement reconciliation
// engine for multi-tenant applications.
//
// The engine keeps each tenant's authorization tier consistent with an
// external payment provider's asynchronous, at-least-once, possibly
// out-of-order event stream. It is designed as a library, not a service:
// import it directly and mount its webhook handler on your own router. It
// provides:
//
//   - Idempotent billing event processing (Stripe built-in, pluggable)
//   - Effective tier resolution from stored state plus promotional grants
//   - Per-tier resource limit enforcement with human-readable denials
//   - Safe forced downgrades: audited soft deletion, never silent loss
//   - Pluggable storage (memory, SQLite, Postgres, MongoDB)
//
// # Quick Start
//
// Create an engine with your preferred store:
//
//	import (
//	    entitlements "github.com/cwinhagen-sys/spell-school-sub003"
//	    "github.com/cwinhagen-sys/spell-school-sub003/billing/stripeprovider"
//	    "github.com/cwinhagen-sys/spell-school-sub003/store/postgres"
//	)
//
//	st, err := postgres.New(databaseURL)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	sp := stripeprovider.New(apiKey, webhookSecret)
//	eng := entitlements.New(st,
//	    entitlements.WithProvider(sp),
//	    entitlements.WithPriceTable(prices),
//	)
//
//	if err := eng.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer eng.Stop()
//
//	mux.Handle("POST /billing/webhook", eng.WebhookHandler(sp))
//
// # Core Concepts
//
// Tiers are a closed enum (free, premium, pro) with a static limit table.
// The stored tier changes only through billing events, an explicit
// upgrade confirmation, or a committed downgrade. The effective tier adds
// promotional grant expiry on top:
//
//	t, err := eng.EffectiveTier(ctx, tenantID)
//
// Limit checks run against fresh counts and return a decision, not an
// error, when the action is denied:
//
//	d, err := eng.CanPerform(ctx, tenantID, entitlements.Action{
//	    Kind: entitlements.ActionCreateClass,
//	})
//	if !d.Allowed {
//	    // d.Reason names the tier and the breached limit
//	}
//
// Downgrades never destroy data silently. When a tenant's inventory fits
// the lower tier the downgrade commits immediately; otherwise the full
// inventory is surfaced for an operator-chosen keep-set and pruning is
// soft deletion with an append-only audit record per row.
//
// # TypeID
//
// Resource entities use TypeID for globally unique, type-safe
// identifiers:
//
//	class_01h2xcejqtf2nbrexx3vqjhp41  // Class ID
//	wset_01h2xcejqtf2nbrexx3vqjhp41   // Word set ID
//	grant_01h455vb4pex5vsknk084sn02q  // Promo grant ID
//
// TypeIDs are K-sortable, providing natural time-ordering of entities.
package entitlements
