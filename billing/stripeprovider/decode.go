package stripeprovider

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/stripe/stripe-go/v82/webhook"

	"github.com/cwinhagen-sys/spell-school-sub003/billing"
	"github.com/cwinhagen-sys/spell-school-sub003/tier"
)

// Wire payloads decoded from event.Data.Raw. Only the fields the engine
// acts on are declared; everything else in the raw object is ignored.

type checkoutSessionPayload struct {
	Customer     string            `json:"customer"`
	Subscription string            `json:"subscription"`
	Metadata     map[string]string `json:"metadata"`
}

type subscriptionPayload struct {
	ID                string            `json:"id"`
	Customer          string            `json:"customer"`
	Status            string            `json:"status"`
	CancelAtPeriodEnd bool              `json:"cancel_at_period_end"`
	Metadata          map[string]string `json:"metadata"`
	Items             struct {
		Data []struct {
			Price struct {
				ID string `json:"id"`
			} `json:"price"`
		} `json:"data"`
	} `json:"items"`
}

type invoicePayload struct {
	Subscription string `json:"subscription"`
	Parent       struct {
		SubscriptionDetails struct {
			Subscription string            `json:"subscription"`
			Metadata     map[string]string `json:"metadata"`
		} `json:"subscription_details"`
	} `json:"parent"`
	SubscriptionDetails struct {
		Metadata map[string]string `json:"metadata"`
	} `json:"subscription_details"`
	Lines struct {
		Data []struct {
			Price struct {
				ID string `json:"id"`
			} `json:"price"`
		} `json:"data"`
	} `json:"lines"`
}

// Decode verifies the Stripe signature against the raw payload, then maps
// the event onto the engine's normalized union. Event types the engine
// does not act on come back as UnknownEvent with a nil error so handlers
// can acknowledge them.
func (p *Provider) Decode(payload []byte, header http.Header) (billing.Event, error) {
	event, err := webhook.ConstructEventWithOptions(payload, header.Get("Stripe-Signature"), p.webhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, fmt.Errorf("stripeprovider: signature verification: %w", err)
	}

	switch event.Type {
	case "checkout.session.completed":
		var sess checkoutSessionPayload
		if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
			return nil, fmt.Errorf("stripeprovider: parse checkout session: %w", err)
		}
		return billing.CheckoutCompleted{
			TenantID:        sess.Metadata["tenant_id"],
			TierHint:        tierHint(sess.Metadata["tier"]),
			CustomerRef:     sess.Customer,
			SubscriptionRef: sess.Subscription,
		}, nil

	case "customer.subscription.updated":
		sub, err := parseSubscription(event.Data.Raw)
		if err != nil {
			return nil, err
		}
		return billing.SubscriptionUpdated{
			SubscriptionRef:   sub.ID,
			CustomerRef:       sub.Customer,
			Status:            sub.Status,
			CancelAtPeriodEnd: sub.CancelAtPeriodEnd,
			TenantID:          sub.Metadata["tenant_id"],
			TierHint:          tierHint(sub.Metadata["tier"]),
			PriceID:           sub.priceID(),
		}, nil

	case "customer.subscription.deleted":
		sub, err := parseSubscription(event.Data.Raw)
		if err != nil {
			return nil, err
		}
		return billing.SubscriptionDeleted{
			SubscriptionRef: sub.ID,
			TenantID:        sub.Metadata["tenant_id"],
		}, nil

	case "invoice.paid":
		inv, err := parseInvoice(event.Data.Raw)
		if err != nil {
			return nil, err
		}
		return billing.InvoicePaid{
			SubscriptionRef: inv.subscriptionRef(),
			TenantID:        inv.metadata()["tenant_id"],
			TierHint:        tierHint(inv.metadata()["tier"]),
			PriceID:         inv.priceID(),
		}, nil

	case "invoice.payment_failed":
		inv, err := parseInvoice(event.Data.Raw)
		if err != nil {
			return nil, err
		}
		return billing.InvoicePaymentFailed{
			SubscriptionRef: inv.subscriptionRef(),
			TenantID:        inv.metadata()["tenant_id"],
		}, nil
	}

	return billing.UnknownEvent{Type: string(event.Type)}, nil
}

// tierHint derives a best-effort tier from a metadata value. An absent or
// corrupted value yields the zero tier, which never grants access.
func tierHint(raw string) tier.Tier {
	t, _ := tier.FromMetadata(raw)()
	return t
}

func parseSubscription(raw json.RawMessage) (*subscriptionPayload, error) {
	var sub subscriptionPayload
	if err := json.Unmarshal(raw, &sub); err != nil {
		return nil, fmt.Errorf("stripeprovider: parse subscription: %w", err)
	}
	return &sub, nil
}

func parseInvoice(raw json.RawMessage) (*invoicePayload, error) {
	var inv invoicePayload
	if err := json.Unmarshal(raw, &inv); err != nil {
		return nil, fmt.Errorf("stripeprovider: parse invoice: %w", err)
	}
	return &inv, nil
}

func (s *subscriptionPayload) priceID() string {
	if len(s.Items.Data) > 0 {
		return s.Items.Data[0].Price.ID
	}
	return ""
}

// subscriptionRef prefers the legacy top-level field and falls back to
// the parent envelope newer API versions nest it under.
func (i *invoicePayload) subscriptionRef() string {
	if i.Subscription != "" {
		return i.Subscription
	}
	return i.Parent.SubscriptionDetails.Subscription
}

func (i *invoicePayload) metadata() map[string]string {
	if len(i.SubscriptionDetails.Metadata) > 0 {
		return i.SubscriptionDetails.Metadata
	}
	return i.Parent.SubscriptionDetails.Metadata
}

func (i *invoicePayload) priceID() string {
	if len(i.Lines.Data) > 0 {
		return i.Lines.Data[0].Price.ID
	}
	return ""
}
