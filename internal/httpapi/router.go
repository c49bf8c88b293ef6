package httpapi

import (
	"log/slog"
	"net/http"
)

// NewRouter assembles the API mux. Webhook credentials are optional; without
// them the endpoint accepts unauthenticated callbacks, which is loudly
// logged because it is a real trust gap.
func NewRouter(h *Handler, webhookLogin, webhookPassword string, logger *slog.Logger) http.Handler {
	if webhookLogin == "" {
		logger.Warn("Webhook Basic-Auth is not configured: the endpoint accepts unauthenticated callbacks")
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/create-payment", h.CreatePayment)
	mux.Handle("POST /api/yookassa/webhook",
		withBasicAuth(webhookLogin, webhookPassword, http.HandlerFunc(h.Webhook)))
	mux.HandleFunc("POST /api/refund-payment", h.RefundPayment)
	mux.HandleFunc("POST /api/refund-game-completion", h.RefundGameCompletion)

	return withObservability(logger, mux)
}
