package entitlements

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/cwinhagen-sys/spell-school-sub003/billing"
)

// WebhookHandler returns an HTTP handler for provider webhook deliveries.
// The raw body stays unparsed until the decoder has verified its
// signature; verification needs the exact byte payload. Responses: 400 on
// signature or required-metadata failure, 500 on a store failure so the
// provider re-delivers, 200 for everything else including event types the
// engine safely ignores.
func (e *Engine) WebhookHandler(dec billing.EventDecoder) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, `{"error":"failed to read body"}`, http.StatusBadRequest)
			return
		}

		ev, err := dec.Decode(body, r.Header)
		if err != nil {
			e.logger.Warn("webhook rejected", "error", err)
			http.Error(w, `{"error":"invalid payload"}`, http.StatusBadRequest)
			return
		}

		ctx := r.Context()
		e.plugins.EmitWebhookReceived(ctx, ev.Kind(), body)

		if err := e.ProcessEvent(ctx, ev); err != nil {
			if IsValidation(err) || IsNotFound(err) {
				e.logger.Warn("webhook event rejected",
					"kind", ev.Kind(),
					"error", err,
				)
				http.Error(w, `{"error":"event rejected"}`, http.StatusBadRequest)
				return
			}
			e.logger.Error("webhook event processing failed",
				"kind", ev.Kind(),
				"error", err,
			)
			http.Error(w, `{"error":"processing failed"}`, http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})
}
