package billing

import "github.com/cwinhagen-sys/spell-school-sub003/tier"

// Subscription statuses as reported by the payment provider.
const (
	StatusActive     = "active"
	StatusTrialing   = "trialing"
	StatusPastDue    = "past_due"
	StatusCanceled   = "canceled"
	StatusUnpaid     = "unpaid"
	StatusIncomplete = "incomplete"
)

// Event kinds.
const (
	KindCheckoutCompleted    = "checkout.completed"
	KindSubscriptionUpdated  = "subscription.updated"
	KindSubscriptionDeleted  = "subscription.deleted"
	KindInvoicePaid          = "invoice.paid"
	KindInvoicePaymentFailed = "invoice.payment_failed"
	KindUnknown              = "unknown"
)

// Event is a normalized billing notification. The set of implementations
// is closed; providers translate their wire formats into one of these and
// anything unrecognized becomes an Unknown event.
type Event interface {
	Kind() string
	isEvent()
}

// CheckoutCompleted reports a finished checkout session. TenantID and
// TierHint come from session metadata; either ref may be empty when the
// provider expands them lazily.
type CheckoutCompleted struct {
	TenantID        string
	TierHint        tier.Tier
	CustomerRef     string
	SubscriptionRef string
}

func (CheckoutCompleted) Kind() string { return KindCheckoutCompleted }
func (CheckoutCompleted) isEvent()     {}

// SubscriptionUpdated reports a lifecycle change on an existing
// subscription. TenantID and TierHint are best-effort from metadata and
// may be empty; the subscription ref is the reliable join key.
type SubscriptionUpdated struct {
	SubscriptionRef   string
	CustomerRef       string
	Status            string
	CancelAtPeriodEnd bool
	TenantID          string
	TierHint          tier.Tier
	PriceID           string
}

func (SubscriptionUpdated) Kind() string { return KindSubscriptionUpdated }
func (SubscriptionUpdated) isEvent()     {}

// SubscriptionDeleted reports the final removal of a subscription at the
// end of its last paid period.
type SubscriptionDeleted struct {
	SubscriptionRef string
	TenantID        string
}

func (SubscriptionDeleted) Kind() string { return KindSubscriptionDeleted }
func (SubscriptionDeleted) isEvent()     {}

// InvoicePaid reports a successful renewal charge.
type InvoicePaid struct {
	SubscriptionRef string
	TenantID        string
	TierHint        tier.Tier
	PriceID         string
}

func (InvoicePaid) Kind() string { return KindInvoicePaid }
func (InvoicePaid) isEvent()     {}

// InvoicePaymentFailed reports a failed renewal charge. Access is kept
// through the provider's retry window; only a terminal status change or
// deletion revokes it.
type InvoicePaymentFailed struct {
	SubscriptionRef string
	TenantID        string
}

func (InvoicePaymentFailed) Kind() string { return KindInvoicePaymentFailed }
func (InvoicePaymentFailed) isEvent()     {}

// UnknownEvent is any provider event type the engine does not act on.
// Carried so handlers can acknowledge without branching on nil.
type UnknownEvent struct {
	Type string
}

func (UnknownEvent) Kind() string { return KindUnknown }
func (UnknownEvent) isEvent()     {}
