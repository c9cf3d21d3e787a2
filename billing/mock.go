package billing

import (
	"context"
	"fmt"
	"sync"
)

// MockProvider is an in-memory Provider for tests. Register subscriptions
// and customers up front; lookups for anything else fail.
type MockProvider struct {
	mu            sync.Mutex
	subscriptions map[string]*ProviderSubscription
	customers     map[string]*ProviderCustomer
	calls         []string
}

// NewMockProvider creates an empty mock provider.
func NewMockProvider() *MockProvider {
	return &MockProvider{
		subscriptions: make(map[string]*ProviderSubscription),
		customers:     make(map[string]*ProviderCustomer),
	}
}

// AddSubscription registers a subscription for retrieval.
func (m *MockProvider) AddSubscription(s *ProviderSubscription) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subscriptions[s.ID] = s
}

// AddCustomer registers a customer for retrieval.
func (m *MockProvider) AddCustomer(c *ProviderCustomer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.customers[c.ID] = c
}

// Calls returns the retrieval calls made so far, in order.
func (m *MockProvider) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

func (m *MockProvider) RetrieveSubscription(_ context.Context, subscriptionRef string) (*ProviderSubscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, "subscription:"+subscriptionRef)
	s, ok := m.subscriptions[subscriptionRef]
	if !ok {
		return nil, fmt.Errorf("mock provider: no subscription %s", subscriptionRef)
	}
	return s, nil
}

func (m *MockProvider) RetrieveCustomer(_ context.Context, customerRef string) (*ProviderCustomer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, "customer:"+customerRef)
	c, ok := m.customers[customerRef]
	if !ok {
		return nil, fmt.Errorf("mock provider: no customer %s", customerRef)
	}
	return c, nil
}
