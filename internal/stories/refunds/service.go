package refunds

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"

	"intogame-backend/internal/apperr"
	"intogame-backend/internal/infra/yookassa"
	"intogame-backend/internal/localization"
	"intogame-backend/internal/stories/games"
	"intogame-backend/internal/stories/payments"
	"intogame-backend/internal/stories/pricing"
	"intogame-backend/internal/stories/users"
	"intogame-backend/internal/stories/votes"

	"github.com/samber/lo"
)

// Service orchestrates single-payment refunds and bulk game-completion
// settlement against YooKassa.
type Service struct {
	storage Storage
	gateway Gateway
	loc     *localization.Service
	logger  *slog.Logger
	now     func() time.Time
}

func NewService(storage Storage, gateway Gateway, loc *localization.Service, logger *slog.Logger) *Service {
	return &Service{
		storage: storage,
		gateway: gateway,
		loc:     loc,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// RefundPayment refunds a single payment, clamped to what the gateway still
// reports as refundable.
func (s *Service) RefundPayment(ctx context.Context, req RefundRequest) (*RefundResult, error) {
	if s.gateway == nil {
		return nil, apperr.New(http.StatusInternalServerError, "Платёжный сервис не настроен")
	}
	if req.PaymentID == "" {
		return nil, apperr.New(http.StatusBadRequest, "Не указан идентификатор платежа")
	}

	s.logger.Info("Refunding payment", "payment_id", req.PaymentID)

	// Актуальное состояние платежа берём из шлюза, а не из локального кэша
	gatewayPayment, err := s.gateway.GetPayment(ctx, req.PaymentID)
	if err != nil {
		var apiErr *yookassa.APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
			return nil, apperr.New(http.StatusNotFound, "Платёж не найден в платёжном сервисе").WithCause(err)
		}
		return nil, payments.GatewayError(err)
	}

	if !gatewayPayment.Paid || gatewayPayment.Status != yookassa.StatusSucceeded {
		return nil, apperr.New(http.StatusBadRequest, "Платёж не оплачен или уже отменён").
			WithDetails(map[string]interface{}{"статус": gatewayPayment.Status})
	}

	refundableMax := gatewayPayment.Amount.Float()
	if gatewayPayment.RefundableAmount != nil {
		refundableMax = gatewayPayment.RefundableAmount.Float()
	}
	if refundableMax <= 0 {
		return nil, apperr.New(http.StatusBadRequest, "По этому платежу нечего возвращать")
	}

	amount := refundableMax
	if req.Amount != nil {
		amount = *req.Amount
		if amount <= 0 || math.IsNaN(amount) || math.IsInf(amount, 0) {
			return nil, apperr.New(http.StatusBadRequest, "Некорректная сумма возврата")
		}
		if amount > refundableMax {
			return nil, apperr.New(http.StatusBadRequest, "Сумма возврата превышает доступную").
				WithDetails(map[string]interface{}{
					"максимальная_сумма": refundableMax,
					"запрошено":          amount,
				})
		}
	}

	voteID, err := s.resolveVoteID(ctx, gatewayPayment)
	if err != nil {
		return nil, fmt.Errorf("resolve vote id: %w", err)
	}
	if voteID == 0 {
		return nil, apperr.New(http.StatusNotFound, "Не найдена бронь, связанная с платежом")
	}

	vote, err := s.storage.GetVote(ctx, votes.GetCriteria{ID: &voteID})
	if err != nil {
		return nil, fmt.Errorf("get vote: %w", err)
	}
	if vote == nil {
		return nil, apperr.New(http.StatusNotFound, "Не найдена бронь, связанная с платежом")
	}

	user, game, err := s.resolveReceiptParties(ctx, vote)
	if err != nil {
		return nil, err
	}

	refund, err := s.issueRefund(ctx, req.PaymentID, amount, user, game)
	if err != nil {
		return nil, err
	}

	// Локальная запись и бронь — после успешного возврата в шлюзе. Каскад из
	// платежа в бронь выполняем явно, без опоры на триггер БД.
	s.markRefunded(ctx, req.PaymentID, vote.ID, amount, payments.StatusCanceled, true)

	s.logger.Info("Payment refunded",
		"payment_id", req.PaymentID,
		"refund_id", refund.ID,
		"amount", amount,
	)

	return &RefundResult{
		RefundID:  refund.ID,
		PaymentID: req.PaymentID,
		Amount:    amount,
	}, nil
}

// RefundGameCompletion settles every succeeded payment of a finished or
// cancelled game. Cancelled games and under-quorum completions refund in
// full; quorum completions refund only the pro-rating surplus.
func (s *Service) RefundGameCompletion(ctx context.Context, req CompletionRequest) (*CompletionSummary, error) {
	if s.gateway == nil {
		return nil, apperr.New(http.StatusInternalServerError, "Платёжный сервис не настроен")
	}
	if req.GameStatus != games.StatusCompleted && req.GameStatus != games.StatusCancelled {
		return nil, apperr.Newf(http.StatusBadRequest,
			"Недопустимый статус игры для возврата: %q", string(req.GameStatus))
	}

	s.logger.Info("Refunding game completion",
		"game_id", req.GameID,
		"game_status", string(req.GameStatus),
	)

	game, err := s.storage.GetGame(ctx, req.GameID)
	if err != nil {
		return nil, fmt.Errorf("get game: %w", err)
	}
	if game == nil {
		return nil, apperr.New(http.StatusNotFound, "Игра не найдена")
	}
	if game.Price == nil || game.PlayersMin == nil {
		return nil, apperr.New(http.StatusBadRequest,
			"Для игры не настроены стоимость или минимальное число игроков")
	}

	confirmedVotes, err := s.storage.ListVotes(ctx, votes.ListCriteria{
		GameID: &req.GameID,
		Status: lo.ToPtr(votes.StatusConfirmed),
	})
	if err != nil {
		return nil, fmt.Errorf("list votes: %w", err)
	}

	summary := &CompletionSummary{
		Refunds: []RefundRecord{},
		Failed:  []FailedRefund{},
	}
	if len(confirmedVotes) == 0 {
		s.logger.Info("No confirmed votes, nothing to refund", "game_id", req.GameID)
		return summary, nil
	}

	confirmedCount := lo.SumBy(confirmedVotes, func(v *votes.Vote) int64 {
		if v.Quantity <= 0 {
			return 1
		}
		return v.Quantity
	})

	voteByID := lo.KeyBy(confirmedVotes, func(v *votes.Vote) int64 { return v.ID })
	voteIDs := lo.Map(confirmedVotes, func(v *votes.Vote, _ int) int64 { return v.ID })

	succeeded, err := s.storage.ListPayments(ctx, payments.ListCriteria{
		VoteIDs: voteIDs,
		Status:  lo.ToPtr(payments.StatusSucceeded),
	})
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}

	isFullRefund := req.GameStatus == games.StatusCancelled || confirmedCount < *game.PlayersMin
	summary.FullRefund = isFullRefund

	// Цена, которую игроки должны были бы заплатить по фактической явке
	actualPerPlayer := *game.Price / float64(confirmedCount)

	s.logger.Info("Refund mode decided",
		"game_id", req.GameID,
		"full_refund", isFullRefund,
		"confirmed_count", confirmedCount,
		"players_min", *game.PlayersMin,
		"payments", len(succeeded),
	)

	// Возвраты идут строго последовательно: это ограничивает частоту
	// запросов к шлюзу на больших играх.
	for _, p := range succeeded {
		s.processCompletionRefund(ctx, p, voteByID[p.VoteID], isFullRefund, actualPerPlayer, summary)
	}

	s.logger.Info("Game completion refunds finished",
		"game_id", req.GameID,
		"successful", summary.SuccessfulRefunds,
		"failed", summary.FailedRefunds,
		"total_refunded", summary.TotalRefunded,
	)

	return summary, nil
}

// processCompletionRefund handles one payment of the batch. Failures go into
// the summary, never abort the loop.
func (s *Service) processCompletionRefund(
	ctx context.Context,
	p *payments.Payment,
	vote *votes.Vote,
	isFullRefund bool,
	actualPerPlayer float64,
	summary *CompletionSummary,
) {
	if vote == nil {
		summary.FailedRefunds++
		summary.Failed = append(summary.Failed, FailedRefund{
			PaymentID: p.ID,
			Error:     "бронь платежа не входит в подтверждённые",
		})
		return
	}

	quantity := vote.Quantity
	if quantity <= 0 {
		quantity = 1
	}

	refundAmount := p.Amount
	if !isFullRefund {
		shouldHavePaid := actualPerPlayer * float64(quantity)
		refundAmount = pricing.Round2(math.Max(0, p.Amount-shouldHavePaid))
	}
	if refundAmount < pricing.MinRefund {
		// Шлюз отклоняет возвраты меньше копейки
		s.logger.Info("Skipping refund below minimum",
			"payment_id", p.ID,
			"amount", refundAmount,
		)
		return
	}

	fail := func(userID int64, err error) {
		s.logger.Error("Completion refund failed",
			"payment_id", p.ID,
			"user_id", userID,
			"error", err,
		)
		summary.FailedRefunds++
		summary.Failed = append(summary.Failed, FailedRefund{
			PaymentID: p.ID,
			UserID:    userID,
			Error:     err.Error(),
		})
	}

	// Сверяемся с фактически доступной к возврату суммой
	gatewayPayment, err := s.gateway.GetPayment(ctx, p.ID)
	if err != nil {
		fail(0, err)
		return
	}
	if gatewayPayment.RefundableAmount != nil {
		if refundable := gatewayPayment.RefundableAmount.Float(); refundAmount > refundable {
			refundAmount = refundable
		}
	}
	if refundAmount < pricing.MinRefund {
		s.logger.Info("Nothing left to refund at the gateway", "payment_id", p.ID)
		return
	}

	game, gameErr := s.storage.GetGame(ctx, vote.GameID)
	if gameErr != nil || game == nil {
		if gameErr == nil {
			gameErr = errors.New("игра не найдена")
		}
		fail(vote.UserID, gameErr)
		return
	}

	user, err := s.storage.GetUser(ctx, vote.UserID)
	if err != nil {
		fail(vote.UserID, err)
		return
	}
	if user == nil || user.Email == nil || *user.Email == "" {
		fail(vote.UserID, errors.New("не найден email пользователя для чека возврата"))
		return
	}

	if _, err := s.issueRefund(ctx, p.ID, refundAmount, user, game); err != nil {
		fail(vote.UserID, err)
		return
	}

	finalStatus := payments.StatusSucceeded
	if isFullRefund {
		finalStatus = payments.StatusCanceled
	}
	s.markRefunded(ctx, p.ID, vote.ID, refundAmount, finalStatus, isFullRefund)

	summary.SuccessfulRefunds++
	summary.TotalRefunded = pricing.Round2(summary.TotalRefunded + refundAmount)
	summary.Refunds = append(summary.Refunds, RefundRecord{
		PaymentID: p.ID,
		UserID:    vote.UserID,
		Amount:    refundAmount,
	})
}

// issueRefund calls the gateway refund endpoint with a receipt mirroring the
// original payment purpose.
func (s *Service) issueRefund(ctx context.Context, paymentID string, amount float64, user *users.User, game *games.Game) (*yookassa.Refund, error) {
	description := s.loc.Get("ru", "payment.refund_description",
		map[string]interface{}{"game": game.Name})

	refund, err := s.gateway.CreateRefund(ctx, &yookassa.CreateRefundRequest{
		PaymentID:   paymentID,
		Amount:      yookassa.NewAmount(amount, pricing.Currency),
		Description: description,
		Receipt: &yookassa.Receipt{
			Customer: &yookassa.ReceiptCustomer{Email: *user.Email},
			Items: []yookassa.ReceiptItem{
				{
					Description: description,
					Quantity:    "1.00",
					Amount:      yookassa.NewAmount(amount, pricing.Currency),
					VATCode:     1,
				},
			},
		},
	})
	if err != nil {
		return nil, payments.GatewayError(err)
	}
	return refund, nil
}

// markRefunded records the refund locally. The gateway refund has already
// happened, so write failures are logged and swallowed: the reconcile worker
// and webhooks are the backstop.
func (s *Service) markRefunded(ctx context.Context, paymentID string, voteID int64, amount float64, status payments.Status, cancelVote bool) {
	_, err := s.storage.UpdatePayment(ctx, paymentID, payments.UpdateParams{
		Status:         &status,
		RefundedAmount: &amount,
		RefundedAt:     lo.ToPtr(s.now()),
	})
	if err != nil {
		s.logger.Error("Failed to record refund locally",
			"payment_id", paymentID,
			"error", err,
		)
	}

	if cancelVote {
		if err := s.storage.UpdateVoteStatus(ctx, voteID, votes.StatusCancelled); err != nil {
			s.logger.Error("Failed to cancel vote after full refund",
				"vote_id", voteID,
				"payment_id", paymentID,
				"error", err,
			)
		}
	}
}

func (s *Service) resolveVoteID(ctx context.Context, gatewayPayment *yookassa.Payment) (int64, error) {
	if raw := gatewayPayment.MetadataString("vote_id"); raw != "" {
		if id, err := strconv.ParseInt(raw, 10, 64); err == nil && id > 0 {
			return id, nil
		}
	}

	local, err := s.storage.GetPayment(ctx, payments.GetCriteria{ID: &gatewayPayment.ID})
	if err != nil {
		return 0, err
	}
	if local != nil {
		return local.VoteID, nil
	}
	return 0, nil
}

func (s *Service) resolveReceiptParties(ctx context.Context, vote *votes.Vote) (*users.User, *games.Game, error) {
	game, err := s.storage.GetGame(ctx, vote.GameID)
	if err != nil {
		return nil, nil, fmt.Errorf("get game: %w", err)
	}
	if game == nil {
		return nil, nil, apperr.New(http.StatusNotFound, "Игра не найдена")
	}

	user, err := s.storage.GetUser(ctx, vote.UserID)
	if err != nil {
		return nil, nil, fmt.Errorf("get user: %w", err)
	}
	if user == nil || user.Email == nil || *user.Email == "" {
		return nil, nil, apperr.New(http.StatusBadRequest,
			"Не найден email пользователя для чека возврата")
	}

	return user, game, nil
}
