package entitlements_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/cwinhagen-sys/spell-school-sub003/billing"
	"github.com/cwinhagen-sys/spell-school-sub003/tier"
)

// fakeDecoder stands in for a provider decoder. It "verifies" by
// requiring a fixed signature header, mirroring the raw-body-first
// contract without real crypto.
type fakeDecoder struct {
	event billing.Event
}

func (d *fakeDecoder) Decode(payload []byte, header http.Header) (billing.Event, error) {
	if header.Get("Stripe-Signature") != "valid" {
		return nil, errors.New("signature mismatch")
	}
	if len(payload) == 0 {
		return nil, errors.New("empty payload")
	}
	return d.event, nil
}

func postWebhook(t *testing.T, h http.Handler, signature string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/billing/webhook", strings.NewReader(`{"some":"payload"}`))
	if signature != "" {
		req.Header.Set("Stripe-Signature", signature)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestWebhookBadSignature(t *testing.T) {
	e, st, _ := newTestEngine(t)
	registerTenant(t, e, "t1")
	h := e.WebhookHandler(&fakeDecoder{event: billingCheckout("t1", tier.Pro)})

	rec := postWebhook(t, h, "forged")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
	wantTier(t, st, "t1", tier.Free)
}

func TestWebhookAppliesEvent(t *testing.T) {
	e, st, _ := newTestEngine(t)
	registerTenant(t, e, "t1")
	h := e.WebhookHandler(&fakeDecoder{event: billingCheckout("t1", tier.Premium)})

	rec := postWebhook(t, h, "valid")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", rec.Code, rec.Body)
	}
	wantTier(t, st, "t1", tier.Premium)
}

func TestWebhookMissingMetadataIs400(t *testing.T) {
	e, _, _ := newTestEngine(t)
	registerTenant(t, e, "t1")
	h := e.WebhookHandler(&fakeDecoder{event: billing.CheckoutCompleted{TenantID: "t1"}})

	rec := postWebhook(t, h, "valid")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 for missing tier metadata", rec.Code)
	}
}

func TestWebhookUnknownEventAcknowledged(t *testing.T) {
	e, _, _ := newTestEngine(t)
	h := e.WebhookHandler(&fakeDecoder{event: billing.UnknownEvent{Type: "product.created"}})

	rec := postWebhook(t, h, "valid")
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200 for safely ignored event", rec.Code)
	}
}

func TestWebhookUnknownTenantIs400(t *testing.T) {
	e, _, _ := newTestEngine(t)
	h := e.WebhookHandler(&fakeDecoder{event: billingCheckout("ghost", tier.Pro)})

	rec := postWebhook(t, h, "valid")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 for unknown tenant", rec.Code)
	}
}

// Engine lifecycle smoke test: start migrates and launches the worker,
// stop drains it.
func TestEngineStartStop(t *testing.T) {
	e, _, _ := newTestEngine(t)
	if err := e.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := e.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
}
