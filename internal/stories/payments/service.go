package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"

	"intogame-backend/internal/apperr"
	"intogame-backend/internal/infra/yookassa"
	"intogame-backend/internal/localization"
	"intogame-backend/internal/stories/pricing"
	"intogame-backend/internal/stories/votes"

	"github.com/samber/lo"
)

// Service provides business logic for payment creation
type Service struct {
	storage   Storage
	gateway   Gateway
	loc       *localization.Service
	logger    *slog.Logger
	returnURL string
}

// NewService creates a new payments service. A nil gateway is allowed: it
// means the shop credentials are not configured and the endpoint degrades to
// an error response instead of crashing the process.
func NewService(storage Storage, gateway Gateway, loc *localization.Service, returnURL string, logger *slog.Logger) *Service {
	return &Service{
		storage:   storage,
		gateway:   gateway,
		loc:       loc,
		logger:    logger,
		returnURL: returnURL,
	}
}

// CreatePayment validates a pending vote, verifies the client-submitted
// amount against the server-side price, creates a payment in YooKassa and
// best-effort records it locally.
func (s *Service) CreatePayment(ctx context.Context, req CreateRequest) (*CreateResult, error) {
	s.logger.Info("Creating payment",
		"user_id", req.UserID,
		"game_id", req.GameID,
		"amount", req.Amount,
	)

	if s.gateway == nil {
		return nil, apperr.New(http.StatusInternalServerError, "Платёжный сервис не настроен")
	}

	// 1. Валидация суммы
	if req.Amount <= 0 || math.IsNaN(req.Amount) || math.IsInf(req.Amount, 0) {
		return nil, apperr.New(http.StatusBadRequest, "Некорректная сумма платежа")
	}

	// 2. Ищем активную бронь пользователя на игру
	vote, err := s.storage.GetVote(ctx, votes.GetCriteria{
		UserID: &req.UserID,
		GameID: &req.GameID,
		Status: lo.ToPtr(votes.StatusPending),
	})
	if err != nil {
		return nil, fmt.Errorf("get vote: %w", err)
	}
	if vote == nil {
		return nil, apperr.New(http.StatusNotFound,
			"Бронь не найдена или время её удержания истекло. Забронируйте место заново")
	}

	quantity := vote.Quantity
	if quantity <= 0 {
		quantity = 1
	}

	// 3. Пересчитываем ожидаемую сумму на сервере
	game, err := s.storage.GetGame(ctx, req.GameID)
	if err != nil {
		return nil, fmt.Errorf("get game: %w", err)
	}
	if game == nil {
		return nil, apperr.New(http.StatusNotFound, "Игра не найдена")
	}
	if game.Price == nil || game.PlayersMin == nil {
		return nil, apperr.New(http.StatusInternalServerError,
			"Для игры не настроены стоимость или минимальное число игроков")
	}

	perPlayer, ok := pricing.PerPlayer(*game.Price, *game.PlayersMin)
	if !ok {
		return nil, apperr.New(http.StatusInternalServerError,
			"Для игры не настроены стоимость или минимальное число игроков")
	}
	expected := perPlayer * float64(quantity)

	// 4. Клиентская сумма обязана совпасть с серверной — защита от подмены
	if !pricing.AmountsMatch(req.Amount, expected) {
		return nil, apperr.New(http.StatusBadRequest, "Сумма платежа не совпадает с ожидаемой").
			WithDetails(map[string]interface{}{
				"ожидается": expected,
				"получено":  req.Amount,
			})
	}

	// 5. Email обязателен для чека
	user, err := s.storage.GetUser(ctx, req.UserID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if user == nil || user.Email == nil || *user.Email == "" {
		return nil, apperr.New(http.StatusBadRequest, "Не найден email пользователя для отправки чека")
	}

	description := req.Description
	if description == "" {
		description = s.loc.Get("ru", "payment.game_description",
			map[string]interface{}{"game": game.Name})
	}
	returnURL := req.ReturnURL
	if returnURL == "" {
		returnURL = s.returnURL
	}

	// 6. Создаём платёж в ЮKassa
	gatewayPayment, err := s.gateway.CreatePayment(ctx, &yookassa.CreatePaymentRequest{
		Amount:  yookassa.NewAmount(req.Amount, pricing.Currency),
		Capture: true,
		Confirmation: &yookassa.Confirmation{
			Type:      "redirect",
			ReturnURL: returnURL,
		},
		Description: description,
		Metadata: map[string]string{
			"user_id": fmt.Sprintf("%d", req.UserID),
			"game_id": fmt.Sprintf("%d", req.GameID),
			"vote_id": fmt.Sprintf("%d", vote.ID),
		},
		Receipt: &yookassa.Receipt{
			Customer: &yookassa.ReceiptCustomer{Email: *user.Email},
			Items: []yookassa.ReceiptItem{
				{
					Description: description,
					Quantity:    fmt.Sprintf("%d.00", quantity),
					Amount:      yookassa.NewAmount(perPlayer, pricing.Currency),
					VATCode:     1,
				},
			},
		},
	})
	if err != nil {
		return nil, GatewayError(err)
	}

	// 7. Без ссылки на оплату пользователю некуда идти
	confirmationURL := ""
	if gatewayPayment.Confirmation != nil {
		confirmationURL = gatewayPayment.Confirmation.ConfirmationURL
	}
	if confirmationURL == "" {
		return nil, apperr.New(http.StatusBadGateway, "Платёжный сервис не вернул ссылку на оплату")
	}

	// 8. Запись в БД — best effort: платёж в шлюзе уже создан, пользователя
	// надо перенаправить на оплату, а локальную запись при сбое восстановит
	// вебхук.
	_, err = s.storage.UpsertPayment(ctx, UpsertParams{
		ID:       gatewayPayment.ID,
		VoteID:   &vote.ID,
		Amount:   &req.Amount,
		Currency: lo.ToPtr(pricing.Currency),
		Status:   StatusFromGateway(gatewayPayment.Status),
	})
	if err != nil {
		s.logger.Error("Failed to persist payment row, webhook will reconcile",
			"error", err,
			"payment_id", gatewayPayment.ID,
			"vote_id", vote.ID,
		)
	}

	s.logger.Info("Payment created",
		"payment_id", gatewayPayment.ID,
		"status", gatewayPayment.Status,
		"vote_id", vote.ID,
	)

	return &CreateResult{
		PaymentID:       gatewayPayment.ID,
		Status:          gatewayPayment.Status,
		Paid:            gatewayPayment.Paid,
		ConfirmationURL: confirmationURL,
		Quantity:        quantity,
		PricePerPlayer:  perPlayer,
	}, nil
}

// StatusFromGateway maps a YooKassa payment status to the local one.
func StatusFromGateway(status string) Status {
	switch status {
	case yookassa.StatusSucceeded:
		return StatusSucceeded
	case yookassa.StatusCanceled:
		return StatusCanceled
	default:
		return StatusPending
	}
}

// GatewayError turns a YooKassa call failure into a 502 with the raw gateway
// answer attached for diagnosis.
func GatewayError(err error) error {
	var apiErr *yookassa.APIError
	if errors.As(err, &apiErr) {
		var details interface{}
		if len(apiErr.RawBody) > 0 && json.Valid(apiErr.RawBody) {
			details = json.RawMessage(apiErr.RawBody)
		} else {
			details = apiErr.Error()
		}
		return apperr.New(http.StatusBadGateway, "Ошибка платёжного сервиса").
			WithDetails(details).
			WithCause(err)
	}
	return apperr.New(http.StatusBadGateway, "Платёжный сервис недоступен").WithCause(err)
}
