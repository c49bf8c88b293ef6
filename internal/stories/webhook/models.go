package webhook

import (
	"encoding/json"

	"intogame-backend/internal/infra/yookassa"
)

// Notification is the gateway's callback envelope. Historically the payment
// object arrived under "object", under "payment", or as the bare body, so all
// three shapes are accepted.
type Notification struct {
	Type    string          `json:"type"`
	Event   string          `json:"event"`
	Object  json.RawMessage `json:"object"`
	Payment json.RawMessage `json:"payment"`
}

// ExtractPayment pulls the payment object out of a webhook body. Returns nil
// when the body carries no recognizable payment — the caller acknowledges and
// does nothing.
func ExtractPayment(body []byte) *yookassa.Payment {
	var notification Notification
	if err := json.Unmarshal(body, &notification); err != nil {
		return nil
	}

	raw := notification.Object
	if len(raw) == 0 || string(raw) == "null" {
		raw = notification.Payment
	}
	if len(raw) == 0 || string(raw) == "null" {
		raw = body
	}

	var payment yookassa.Payment
	if err := json.Unmarshal(raw, &payment); err != nil {
		return nil
	}
	if payment.ID == "" {
		return nil
	}

	return &payment
}
