package billing

import (
	"context"
	"testing"
)

func TestEventKinds(t *testing.T) {
	tests := []struct {
		event Event
		want  string
	}{
		{CheckoutCompleted{}, KindCheckoutCompleted},
		{SubscriptionUpdated{}, KindSubscriptionUpdated},
		{SubscriptionDeleted{}, KindSubscriptionDeleted},
		{InvoicePaid{}, KindInvoicePaid},
		{InvoicePaymentFailed{}, KindInvoicePaymentFailed},
		{UnknownEvent{Type: "charge.refunded"}, KindUnknown},
	}
	for _, tt := range tests {
		if got := tt.event.Kind(); got != tt.want {
			t.Errorf("Kind() = %q, want %q", got, tt.want)
		}
	}
}

func TestMockProviderLookup(t *testing.T) {
	ctx := context.Background()
	m := NewMockProvider()
	m.AddSubscription(&ProviderSubscription{
		ID:          "sub_123",
		CustomerRef: "cus_456",
		Status:      StatusActive,
		Metadata:    map[string]string{"tenant_id": "t1"},
	})

	s, err := m.RetrieveSubscription(ctx, "sub_123")
	if err != nil {
		t.Fatalf("RetrieveSubscription() error = %v", err)
	}
	if s.CustomerRef != "cus_456" {
		t.Errorf("CustomerRef = %q, want cus_456", s.CustomerRef)
	}
	if s.Metadata["tenant_id"] != "t1" {
		t.Errorf("Metadata[tenant_id] = %q, want t1", s.Metadata["tenant_id"])
	}

	if _, err := m.RetrieveSubscription(ctx, "sub_missing"); err == nil {
		t.Error("expected error for unknown subscription")
	}

	calls := m.Calls()
	if len(calls) != 2 || calls[0] != "subscription:sub_123" {
		t.Errorf("Calls() = %v", calls)
	}
}

func TestMockProviderCustomer(t *testing.T) {
	ctx := context.Background()
	m := NewMockProvider()
	m.AddCustomer(&ProviderCustomer{ID: "cus_9", Metadata: map[string]string{"tenant_id": "t9"}})

	c, err := m.RetrieveCustomer(ctx, "cus_9")
	if err != nil {
		t.Fatalf("RetrieveCustomer() error = %v", err)
	}
	if c.Metadata["tenant_id"] != "t9" {
		t.Errorf("Metadata[tenant_id] = %q, want t9", c.Metadata["tenant_id"])
	}
}
