package webhook

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"time"

	"log/slog"

	"intogame-backend/internal/infra/yookassa"
	"intogame-backend/internal/localization"
	"intogame-backend/internal/stories/payments"
	"intogame-backend/internal/stories/pricing"

	"github.com/samber/lo"
)

// Masked card numbers look like "555555******4444".
var cardLast4Pattern = regexp.MustCompile(`(\d{4})$`)

// Service ingests asynchronous payment status callbacks from YooKassa and
// mirrors them into the local payments table.
type Service struct {
	storage Storage
	loc     *localization.Service
	logger  *slog.Logger
	now     func() time.Time
}

func NewService(storage Storage, loc *localization.Service, logger *slog.Logger) *Service {
	return &Service{
		storage: storage,
		loc:     loc,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Process applies one webhook body. A returned error is for logging only:
// the HTTP layer acknowledges with 200 regardless, so the gateway never
// retries because of a local fault.
func (s *Service) Process(ctx context.Context, body []byte) error {
	payment := ExtractPayment(body)
	if payment == nil {
		s.logger.Warn("Webhook without payment object, acknowledging as no-op")
		return nil
	}

	s.logger.Info("Processing payment webhook",
		"payment_id", payment.ID,
		"status", payment.Status,
	)

	return s.Apply(ctx, payment)
}

// Apply mirrors one gateway payment object into the local table. Shared by
// webhook delivery and by the reconcile worker polling stale payments.
func (s *Service) Apply(ctx context.Context, payment *yookassa.Payment) error {
	voteID, err := s.resolveVoteID(ctx, payment)
	if err != nil {
		return fmt.Errorf("resolve vote id: %w", err)
	}

	method, cardLast4 := extractMethod(payment.PaymentMethod)

	switch payment.Status {
	case yookassa.StatusSucceeded:
		return s.applySucceeded(ctx, payment, voteID, method, cardLast4)
	case yookassa.StatusCanceled:
		return s.applyCanceled(ctx, payment, voteID, method, cardLast4)
	default:
		// pending / waiting_for_capture — нечего фиксировать
		s.logger.Info("Ignoring non-terminal payment status",
			"payment_id", payment.ID,
			"status", payment.Status,
		)
		return nil
	}
}

func (s *Service) applySucceeded(ctx context.Context, payment *yookassa.Payment, voteID *int64, method, cardLast4 *string) error {
	params := payments.UpsertParams{
		ID:            payment.ID,
		VoteID:        voteID,
		Status:        payments.StatusSucceeded,
		PaidAt:        lo.ToPtr(s.now()),
		PaymentMethod: method,
		CardLast4:     cardLast4,
	}
	if payment.Amount != nil {
		params.Amount = lo.ToPtr(payment.Amount.Float())
		params.Currency = lo.ToPtr(payment.Amount.Currency)
	} else {
		params.Currency = lo.ToPtr(pricing.Currency)
	}

	if _, err := s.storage.UpsertPayment(ctx, params); err != nil {
		return fmt.Errorf("upsert succeeded payment: %w", err)
	}

	s.logger.Info("Payment succeeded", "payment_id", payment.ID)
	return nil
}

func (s *Service) applyCanceled(ctx context.Context, payment *yookassa.Payment, voteID *int64, method, cardLast4 *string) error {
	params := payments.UpsertParams{
		ID:            payment.ID,
		VoteID:        voteID,
		Status:        payments.StatusCanceled,
		CanceledAt:    lo.ToPtr(s.now()),
		PaymentMethod: method,
		CardLast4:     cardLast4,
	}
	if payment.CancellationDetails != nil && payment.CancellationDetails.Reason != "" {
		code := payment.CancellationDetails.Reason
		params.CancellationReasonCode = &code
		params.CancellationReasonMessage = lo.ToPtr(s.loc.CancellationReason(code))
	} else {
		params.CancellationReasonMessage = lo.ToPtr(s.loc.CancellationReason(""))
	}

	if _, err := s.storage.UpsertPayment(ctx, params); err != nil {
		return fmt.Errorf("upsert canceled payment: %w", err)
	}

	s.logger.Info("Payment canceled",
		"payment_id", payment.ID,
		"reason", lo.FromPtr(params.CancellationReasonCode),
	)
	return nil
}

// resolveVoteID takes the vote id echoed back in the payment metadata, or
// falls back to the local row written at creation time.
func (s *Service) resolveVoteID(ctx context.Context, payment *yookassa.Payment) (*int64, error) {
	if raw := payment.MetadataString("vote_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err == nil && id > 0 {
			return &id, nil
		}
		s.logger.Warn("Unparsable vote_id in payment metadata",
			"payment_id", payment.ID,
			"vote_id", raw,
		)
	}

	existing, err := s.storage.GetPayment(ctx, payments.GetCriteria{ID: &payment.ID})
	if err != nil {
		return nil, err
	}
	if existing != nil && existing.VoteID > 0 {
		return &existing.VoteID, nil
	}
	return nil, nil
}

// extractMethod reports the payment method type and, for bank cards, the last
// four digits parsed off the masked card number. Wallet methods carry no card
// digits.
func extractMethod(method *yookassa.PaymentMethod) (*string, *string) {
	if method == nil || method.Type == "" {
		return nil, nil
	}

	methodType := method.Type
	if methodType != yookassa.MethodBankCard || method.Card == nil {
		return &methodType, nil
	}

	if method.Card.Last4 != "" {
		return &methodType, &method.Card.Last4
	}
	if m := cardLast4Pattern.FindStringSubmatch(method.Card.Number); m != nil {
		return &methodType, &m[1]
	}
	return &methodType, nil
}
