package yookassa

import (
	"fmt"
	"strconv"
)

// Статусы платежа в ЮKassa.
const (
	StatusPending           = "pending"
	StatusWaitingForCapture = "waiting_for_capture"
	StatusSucceeded         = "succeeded"
	StatusCanceled          = "canceled"
)

// Типы способов оплаты без карточных реквизитов.
const (
	MethodBankCard  = "bank_card"
	MethodApplePay  = "apple_pay"
	MethodGooglePay = "google_pay"
	MethodSBP       = "sbp"
)

type Amount struct {
	Value    string `json:"value"`
	Currency string `json:"currency"`
}

// NewAmount formats a money value the way the gateway expects: two decimal
// places, dot separator.
func NewAmount(value float64, currency string) *Amount {
	return &Amount{
		Value:    fmt.Sprintf("%.2f", value),
		Currency: currency,
	}
}

// Float parses the amount value. A nil or malformed amount reads as zero.
func (a *Amount) Float() float64 {
	if a == nil {
		return 0
	}
	v, err := strconv.ParseFloat(a.Value, 64)
	if err != nil {
		return 0
	}
	return v
}

type Confirmation struct {
	Type            string `json:"type"`
	ReturnURL       string `json:"return_url,omitempty"`
	ConfirmationURL string `json:"confirmation_url,omitempty"`
}

type ReceiptCustomer struct {
	Email string `json:"email"`
}

type ReceiptItem struct {
	Description string  `json:"description"`
	Quantity    string  `json:"quantity"`
	Amount      *Amount `json:"amount"`
	VATCode     int     `json:"vat_code"`
}

type Receipt struct {
	Customer *ReceiptCustomer `json:"customer"`
	Items    []ReceiptItem    `json:"items"`
}

type Card struct {
	First6      string `json:"first6,omitempty"`
	Last4       string `json:"last4,omitempty"`
	Number      string `json:"number,omitempty"`
	CardType    string `json:"card_type,omitempty"`
	IssuerName  string `json:"issuer_name,omitempty"`
	ExpiryYear  string `json:"expiry_year,omitempty"`
	ExpiryMonth string `json:"expiry_month,omitempty"`
}

type PaymentMethod struct {
	Type  string `json:"type"`
	ID    string `json:"id,omitempty"`
	Saved bool   `json:"saved,omitempty"`
	Title string `json:"title,omitempty"`
	Card  *Card  `json:"card,omitempty"`
}

type CancellationDetails struct {
	Party  string `json:"party"`
	Reason string `json:"reason"`
}

type CreatePaymentRequest struct {
	Amount       *Amount           `json:"amount"`
	Capture      bool              `json:"capture"`
	Confirmation *Confirmation     `json:"confirmation,omitempty"`
	Description  string            `json:"description,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	Receipt      *Receipt          `json:"receipt,omitempty"`
}

// Payment is the gateway's payment object, shared by the create/get
// responses and by webhook notifications.
type Payment struct {
	ID                  string                 `json:"id"`
	Status              string                 `json:"status"`
	Paid                bool                   `json:"paid"`
	Test                bool                   `json:"test,omitempty"`
	Amount              *Amount                `json:"amount,omitempty"`
	IncomeAmount        *Amount                `json:"income_amount,omitempty"`
	RefundableAmount    *Amount                `json:"refundable_amount,omitempty"`
	RefundedAmount      *Amount                `json:"refunded_amount,omitempty"`
	Confirmation        *Confirmation          `json:"confirmation,omitempty"`
	Description         string                 `json:"description,omitempty"`
	Metadata            map[string]interface{} `json:"metadata,omitempty"`
	PaymentMethod       *PaymentMethod         `json:"payment_method,omitempty"`
	CancellationDetails *CancellationDetails   `json:"cancellation_details,omitempty"`
	CreatedAt           string                 `json:"created_at,omitempty"`
	CapturedAt          string                 `json:"captured_at,omitempty"`
}

// MetadataString returns the metadata value for key as a string. The gateway
// usually echoes metadata values back as strings, but numbers happen too.
func (p *Payment) MetadataString(key string) string {
	if p == nil || p.Metadata == nil {
		return ""
	}
	v, ok := p.Metadata[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

type CreateRefundRequest struct {
	PaymentID   string   `json:"payment_id"`
	Amount      *Amount  `json:"amount"`
	Description string   `json:"description,omitempty"`
	Receipt     *Receipt `json:"receipt,omitempty"`
}

type Refund struct {
	ID        string  `json:"id"`
	PaymentID string  `json:"payment_id"`
	Status    string  `json:"status"`
	Amount    *Amount `json:"amount"`
	CreatedAt string  `json:"created_at,omitempty"`
}
