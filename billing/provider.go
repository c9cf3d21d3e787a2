package billing

import (
	"context"
	"net/http"
)

// ProviderSubscription is the subset of a provider subscription the
// engine reads when an event arrives without expanded references.
type ProviderSubscription struct {
	ID          string
	CustomerRef string
	Status      string
	PriceID     string
	Metadata    map[string]string
}

// ProviderCustomer is the subset of a provider customer record used to
// recover tenant identity from customer metadata.
type ProviderCustomer struct {
	ID       string
	Metadata map[string]string
}

// Provider is the outbound payment-provider API surface. Implementations
// wrap a concrete SDK; tests use MockProvider.
type Provider interface {
	RetrieveSubscription(ctx context.Context, subscriptionRef string) (*ProviderSubscription, error)
	RetrieveCustomer(ctx context.Context, customerRef string) (*ProviderCustomer, error)
}

// EventDecoder turns a raw webhook delivery into a normalized Event.
// Decode must verify the payload signature against the raw body before
// parsing anything from it.
type EventDecoder interface {
	Decode(payload []byte, header http.Header) (Event, error)
}
