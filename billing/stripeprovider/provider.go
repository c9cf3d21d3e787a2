// Package stripeprovider adapts Stripe webhooks and API lookups to the
// engine's normalized billing surface.
package stripeprovider

import (
	"context"
	"fmt"

	stripe "github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/customer"
	"github.com/stripe/stripe-go/v82/subscription"

	"github.com/cwinhagen-sys/spell-school-sub003/billing"
)

// Provider implements billing.Provider and billing.EventDecoder against
// the Stripe API.
type Provider struct {
	webhookSecret string
}

// New configures the Stripe client with the given API key and returns a
// provider verifying webhooks with the given endpoint secret.
func New(apiKey, webhookSecret string) *Provider {
	stripe.Key = apiKey
	return &Provider{webhookSecret: webhookSecret}
}

// RetrieveSubscription fetches a subscription and flattens the fields the
// engine reads.
func (p *Provider) RetrieveSubscription(_ context.Context, subscriptionRef string) (*billing.ProviderSubscription, error) {
	sub, err := subscription.Get(subscriptionRef, nil)
	if err != nil {
		return nil, fmt.Errorf("stripeprovider: retrieve subscription %s: %w", subscriptionRef, err)
	}
	out := &billing.ProviderSubscription{
		ID:       sub.ID,
		Status:   string(sub.Status),
		Metadata: sub.Metadata,
	}
	if sub.Customer != nil {
		out.CustomerRef = sub.Customer.ID
	}
	if sub.Items != nil && len(sub.Items.Data) > 0 && sub.Items.Data[0].Price != nil {
		out.PriceID = sub.Items.Data[0].Price.ID
	}
	return out, nil
}

// RetrieveCustomer fetches a customer record.
func (p *Provider) RetrieveCustomer(_ context.Context, customerRef string) (*billing.ProviderCustomer, error) {
	c, err := customer.Get(customerRef, nil)
	if err != nil {
		return nil, fmt.Errorf("stripeprovider: retrieve customer %s: %w", customerRef, err)
	}
	return &billing.ProviderCustomer{ID: c.ID, Metadata: c.Metadata}, nil
}
