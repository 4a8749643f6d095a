package handler

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/FACorreiaa/promptveo-api/internal/domain/billing"
)

// MaxWebhookBody caps the size of a Stripe webhook payload.
const MaxWebhookBody = 64 << 10

// NewWebhookHandler serves POST /api/billing/webhook. Processing failures
// answer 500 so Stripe redelivers the event.
func NewWebhookHandler(svc billing.Service, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", http.MethodPost)
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxWebhookBody))
		if err != nil {
			logger.WarnContext(r.Context(), "Webhook body rejected", slog.Any("error", err))
			http.Error(w, "payload too large or unreadable", http.StatusRequestEntityTooLarge)
			return
		}

		err = svc.HandleWebhook(r.Context(), payload, r.Header.Get("Stripe-Signature"))
		switch {
		case errors.Is(err, billing.ErrWebhookSignature):
			http.Error(w, "invalid signature", http.StatusBadRequest)
		case err != nil:
			http.Error(w, "webhook processing failed", http.StatusInternalServerError)
		default:
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"received":true}`))
		}
	})
}
