package audithook

// Action constants for audit events.
const (
	// Billing event actions
	ActionWebhookReceived = "webhook.received"
	ActionEventProcessed  = "event.processed"

	// Tier actions
	ActionTierChanged  = "tier.changed"
	ActionGrantExpired = "grant.expired"

	// Entitlement actions
	ActionEntitlementChecked = "entitlement.checked"
	ActionQuotaDenied        = "quota.denied"

	// Downgrade actions
	ActionDowngradePlanned = "downgrade.planned"
	ActionResourcePruned   = "resource.pruned"
)

// Resource constants for audit events.
const (
	ResourceProfile     = "profile"
	ResourceGrant       = "grant"
	ResourceEntitlement = "entitlement"
	ResourceInventory   = "inventory"
	ResourceWebhook     = "webhook"
)

// Category constants for audit events.
const (
	CategoryBilling   = "billing"
	CategoryAccess    = "access"
	CategoryRetention = "retention"
)

// Severity levels for audit events.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityError    = "error"
	SeverityCritical = "critical"
)

// Outcome values for audit events.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomePartial = "partial"
)
