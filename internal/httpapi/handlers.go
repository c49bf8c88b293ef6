package httpapi

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"intogame-backend/internal/apperr"
	"intogame-backend/internal/stories/games"
	"intogame-backend/internal/stories/payments"
	"intogame-backend/internal/stories/refunds"
)

// Webhook bodies are small; anything bigger is garbage.
const maxWebhookBody = 1 << 20

// Handler serves the payment API endpoints.
type Handler struct {
	payments PaymentCreator
	webhook  WebhookProcessor
	refunds  Refunder
	logger   *slog.Logger
}

func NewHandler(paymentCreator PaymentCreator, webhookProcessor WebhookProcessor, refunder Refunder, logger *slog.Logger) *Handler {
	return &Handler{
		payments: paymentCreator,
		webhook:  webhookProcessor,
		refunds:  refunder,
		logger:   logger,
	}
}

func (h *Handler) CreatePayment(w http.ResponseWriter, r *http.Request) {
	var req createPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperr.New(http.StatusBadRequest, "Некорректное тело запроса"))
		return
	}
	if req.Amount == nil {
		writeError(w, apperr.New(http.StatusBadRequest, "Некорректная сумма платежа"))
		return
	}

	result, err := h.payments.CreatePayment(r.Context(), payments.CreateRequest{
		UserID:      req.Metadata.UserID,
		GameID:      req.Metadata.GameID,
		Amount:      *req.Amount,
		Description: req.Description,
		ReturnURL:   req.ReturnURL,
	})
	if err != nil {
		h.logError(r, "create payment", err)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, createPaymentResponse{
		PaymentID:       result.PaymentID,
		Status:          result.Status,
		Paid:            result.Paid,
		ConfirmationURL: result.ConfirmationURL,
		Quantity:        result.Quantity,
		PricePerPlayer:  result.PricePerPlayer,
	})
}

// Webhook always answers 200: локальный сбой не должен заставлять шлюз
// бомбить нас повторными доставками.
func (h *Handler) Webhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		h.logger.Error("Failed to read webhook body", "error", err)
		writeJSON(w, http.StatusOK, webhookAck{Received: true})
		return
	}

	if err := h.webhook.Process(r.Context(), body); err != nil {
		h.logger.Error("Webhook processing failed", "error", err)
	}

	writeJSON(w, http.StatusOK, webhookAck{Received: true})
}

func (h *Handler) RefundPayment(w http.ResponseWriter, r *http.Request) {
	var req refundPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperr.New(http.StatusBadRequest, "Некорректное тело запроса"))
		return
	}

	result, err := h.refunds.RefundPayment(r.Context(), refunds.RefundRequest{
		PaymentID: req.PaymentID.value,
		Amount:    req.Amount,
	})
	if err != nil {
		h.logError(r, "refund payment", err)
		writeError(w, err)
		return
	}

	resp := refundResponse{Success: true}
	resp.Refund.ID = result.RefundID
	resp.Refund.PaymentID = result.PaymentID
	resp.Refund.Amount = result.Amount
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) RefundGameCompletion(w http.ResponseWriter, r *http.Request) {
	var req refundCompletionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperr.New(http.StatusBadRequest, "Некорректное тело запроса"))
		return
	}

	summary, err := h.refunds.RefundGameCompletion(r.Context(), refunds.CompletionRequest{
		GameID:     req.GameID,
		GameStatus: games.Status(req.GameStatus),
	})
	if err != nil {
		h.logError(r, "refund game completion", err)
		writeError(w, err)
		return
	}

	resp := refundCompletionResponse{
		Success:           true,
		FullRefund:        summary.FullRefund,
		SuccessfulRefunds: summary.SuccessfulRefunds,
		FailedRefunds:     summary.FailedRefunds,
		TotalRefunded:     summary.TotalRefunded,
		Refunds:           make([]refundRecordResponse, 0, len(summary.Refunds)),
		Failed:            make([]failedRefundResponse, 0, len(summary.Failed)),
	}
	for _, rec := range summary.Refunds {
		resp.Refunds = append(resp.Refunds, refundRecordResponse(rec))
	}
	for _, f := range summary.Failed {
		resp.Failed = append(resp.Failed, failedRefundResponse(f))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) logError(r *http.Request, op string, err error) {
	appErr := apperr.From(err)
	if appErr.Status >= http.StatusInternalServerError {
		h.logger.Error("Request failed", "op", op, "path", r.URL.Path, "error", err)
	} else {
		h.logger.Warn("Request rejected", "op", op, "path", r.URL.Path, "error", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, err error) {
	appErr := apperr.From(err)
	writeJSON(w, appErr.Status, errorResponse{
		Error:   appErr.Message,
		Details: appErr.Details,
	})
}
