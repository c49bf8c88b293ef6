package httpapi

import (
	"encoding/json"
	"errors"
)

type createPaymentRequest struct {
	Amount      *float64 `json:"amount"`
	Description string   `json:"description"`
	ReturnURL   string   `json:"returnUrl"`
	Metadata    struct {
		UserID int64 `json:"userId"`
		GameID int64 `json:"gameId"`
	} `json:"metadata"`
}

type createPaymentResponse struct {
	PaymentID       string  `json:"paymentId"`
	Status          string  `json:"status"`
	Paid            bool    `json:"paid"`
	ConfirmationURL string  `json:"confirmationUrl"`
	Quantity        int64   `json:"quantity"`
	PricePerPlayer  float64 `json:"pricePerPlayer"`
}

// paymentIDField accepts both a bare string and an object carrying
// payment_id — клиенты исторически присылают оба варианта.
type paymentIDField struct {
	value string
}

func (f *paymentIDField) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		f.value = s
		return nil
	}

	var obj struct {
		PaymentID string `json:"payment_id"`
	}
	if err := json.Unmarshal(data, &obj); err == nil {
		f.value = obj.PaymentID
		return nil
	}

	return errors.New("paymentId must be a string or an object with payment_id")
}

type refundPaymentRequest struct {
	PaymentID paymentIDField `json:"paymentId"`
	Amount    *float64       `json:"amount"`
}

type refundResponse struct {
	Success bool `json:"success"`
	Refund  struct {
		ID        string  `json:"id"`
		PaymentID string  `json:"paymentId"`
		Amount    float64 `json:"amount"`
	} `json:"refund"`
}

type refundCompletionRequest struct {
	GameID     int64  `json:"gameId"`
	GameStatus string `json:"gameStatus"`
}

type refundRecordResponse struct {
	PaymentID string  `json:"paymentId"`
	UserID    int64   `json:"userId"`
	Amount    float64 `json:"amount"`
}

type failedRefundResponse struct {
	PaymentID string `json:"paymentId"`
	UserID    int64  `json:"userId"`
	Error     string `json:"error"`
}

type refundCompletionResponse struct {
	Success           bool                   `json:"success"`
	FullRefund        bool                   `json:"fullRefund"`
	SuccessfulRefunds int                    `json:"successfulRefunds"`
	FailedRefunds     int                    `json:"failedRefunds"`
	TotalRefunded     float64                `json:"totalRefunded"`
	Refunds           []refundRecordResponse `json:"refunds"`
	Failed            []failedRefundResponse `json:"failed"`
}

type errorResponse struct {
	Error   string      `json:"error"`
	Details interface{} `json:"details,omitempty"`
}

type webhookAck struct {
	Received bool `json:"received"`
}
