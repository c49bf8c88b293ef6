package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"intogame-backend/internal/stories/payments"
)

const paymentsTable = "payments"

var paymentRowFields = fields(paymentRow{})

type paymentRow struct {
	ID                        string     `db:"id"`
	VoteID                    *int64     `db:"vote_id"`
	Amount                    *float64   `db:"amount"`
	Currency                  *string    `db:"currency"`
	Status                    string     `db:"status"`
	PaymentMethod             *string    `db:"payment_method"`
	CardLast4                 *string    `db:"card_last4"`
	RefundedAmount            *float64   `db:"refunded_amount"`
	CancellationReasonCode    *string    `db:"cancellation_reason_code"`
	CancellationReasonMessage *string    `db:"cancellation_reason_message"`
	PaidAt                    *time.Time `db:"paid_at"`
	CanceledAt                *time.Time `db:"canceled_at"`
	RefundedAt                *time.Time `db:"refunded_at"`
	CreatedAt                 time.Time  `db:"created_at"`
	UpdatedAt                 time.Time  `db:"updated_at"`
}

func (p paymentRow) ToModel() *payments.Payment {
	m := &payments.Payment{
		ID:                        p.ID,
		Status:                    payments.Status(p.Status),
		PaymentMethod:             p.PaymentMethod,
		CardLast4:                 p.CardLast4,
		RefundedAmount:            p.RefundedAmount,
		CancellationReasonCode:    p.CancellationReasonCode,
		CancellationReasonMessage: p.CancellationReasonMessage,
		PaidAt:                    p.PaidAt,
		CanceledAt:                p.CanceledAt,
		RefundedAt:                p.RefundedAt,
		CreatedAt:                 p.CreatedAt,
		UpdatedAt:                 p.UpdatedAt,
	}
	if p.VoteID != nil {
		m.VoteID = *p.VoteID
	}
	if p.Amount != nil {
		m.Amount = *p.Amount
	}
	if p.Currency != nil {
		m.Currency = *p.Currency
	}
	return m
}

// UpsertPayment inserts or overwrites a payment row keyed by the gateway
// payment id. Переповтор вебхука перезаписывает строку, а не дублирует её;
// NULL в необязательных полях не затирает уже известные значения.
func (s *storageImpl) UpsertPayment(ctx context.Context, params payments.UpsertParams) (*payments.Payment, error) {
	now := s.now()
	insert := map[string]interface{}{
		"id":                          params.ID,
		"vote_id":                     params.VoteID,
		"amount":                      params.Amount,
		"currency":                    params.Currency,
		"status":                      string(params.Status),
		"payment_method":              params.PaymentMethod,
		"card_last4":                  params.CardLast4,
		"paid_at":                     params.PaidAt,
		"canceled_at":                 params.CanceledAt,
		"cancellation_reason_code":    params.CancellationReasonCode,
		"cancellation_reason_message": params.CancellationReasonMessage,
		"created_at":                  now,
		"updated_at":                  now,
	}

	q, args, err := s.stmpBuilder().
		Insert(paymentsTable).
		SetMap(insert).
		Suffix(`ON CONFLICT (id) DO UPDATE SET
			vote_id = COALESCE(EXCLUDED.vote_id, payments.vote_id),
			amount = COALESCE(EXCLUDED.amount, payments.amount),
			currency = COALESCE(EXCLUDED.currency, payments.currency),
			status = EXCLUDED.status,
			payment_method = COALESCE(EXCLUDED.payment_method, payments.payment_method),
			card_last4 = COALESCE(EXCLUDED.card_last4, payments.card_last4),
			paid_at = COALESCE(EXCLUDED.paid_at, payments.paid_at),
			canceled_at = COALESCE(EXCLUDED.canceled_at, payments.canceled_at),
			cancellation_reason_code = COALESCE(EXCLUDED.cancellation_reason_code, payments.cancellation_reason_code),
			cancellation_reason_message = COALESCE(EXCLUDED.cancellation_reason_message, payments.cancellation_reason_message),
			updated_at = EXCLUDED.updated_at`).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build sql query: %w", err)
	}

	_, err = s.db.ExecContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("db.ExecContext: %w", err)
	}

	return s.GetPayment(ctx, payments.GetCriteria{ID: &params.ID})
}

func (s *storageImpl) GetPayment(ctx context.Context, criteria payments.GetCriteria) (*payments.Payment, error) {
	query := s.stmpBuilder().
		Select(paymentRowFields).
		From(paymentsTable).
		Limit(1)

	if criteria.ID != nil {
		query = query.Where(sq.Eq{"id": *criteria.ID})
	}
	if criteria.VoteID != nil {
		query = query.Where(sq.Eq{"vote_id": *criteria.VoteID})
	}

	q, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build sql query: %w", err)
	}

	var p paymentRow
	err = s.db.GetContext(ctx, &p, q, args...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("db.GetContext: %w", err)
	}

	return p.ToModel(), nil
}

func (s *storageImpl) ListPayments(ctx context.Context, criteria payments.ListCriteria) ([]*payments.Payment, error) {
	query := s.stmpBuilder().
		Select(paymentRowFields).
		From(paymentsTable).
		OrderBy("created_at ASC")

	if len(criteria.VoteIDs) > 0 {
		query = query.Where(sq.Eq{"vote_id": criteria.VoteIDs})
	}
	if criteria.Status != nil {
		query = query.Where(sq.Eq{"status": string(*criteria.Status)})
	}
	if criteria.CreatedBefore != nil {
		query = query.Where(sq.Lt{"created_at": *criteria.CreatedBefore})
	}

	q, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build sql query: %w", err)
	}

	var rows []paymentRow
	if err := s.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, fmt.Errorf("db.SelectContext: %w", err)
	}

	result := make([]*payments.Payment, 0, len(rows))
	for _, p := range rows {
		result = append(result, p.ToModel())
	}

	return result, nil
}

func (s *storageImpl) UpdatePayment(ctx context.Context, paymentID string, params payments.UpdateParams) (*payments.Payment, error) {
	query := s.stmpBuilder().
		Update(paymentsTable).
		Set("updated_at", s.now()).
		Where(sq.Eq{"id": paymentID})

	if params.Status != nil {
		query = query.Set("status", string(*params.Status))
	}
	if params.RefundedAmount != nil {
		query = query.Set("refunded_amount", *params.RefundedAmount)
	}
	if params.RefundedAt != nil {
		query = query.Set("refunded_at", *params.RefundedAt)
	}

	q, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build sql query: %w", err)
	}

	_, err = s.db.ExecContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("db.ExecContext: %w", err)
	}

	return s.GetPayment(ctx, payments.GetCriteria{ID: &paymentID})
}
