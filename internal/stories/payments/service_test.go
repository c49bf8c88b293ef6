package payments

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"testing"

	"intogame-backend/internal/apperr"
	"intogame-backend/internal/infra/yookassa"
	"intogame-backend/internal/localization"
	"intogame-backend/internal/stories/games"
	"intogame-backend/internal/stories/users"
	"intogame-backend/internal/stories/votes"

	"github.com/samber/lo"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func testLocalization(t *testing.T) *localization.Service {
	t.Helper()
	loc, err := localization.NewService()
	if err != nil {
		t.Fatalf("localization.NewService() error: %v", err)
	}
	return loc
}

func happyStorage() *MockStorage {
	return &MockStorage{
		Vote: &votes.Vote{ID: 7, GameID: 42, UserID: 1, Quantity: 1, Status: votes.StatusPending},
		Game: &games.Game{
			ID:         42,
			Name:       "Пятничный футбол",
			Price:      lo.ToPtr(1000.0),
			PlayersMin: lo.ToPtr(int64(10)),
			Status:     games.StatusActive,
		},
		User: &users.User{ID: 1, Email: lo.ToPtr("player@example.com")},
	}
}

func gatewayPayment() *yookassa.Payment {
	return &yookassa.Payment{
		ID:     "2e8f3a1b-000f-5000-8000-18db351245c7",
		Status: yookassa.StatusPending,
		Confirmation: &yookassa.Confirmation{
			Type:            "redirect",
			ConfirmationURL: "https://yoomoney.ru/checkout/payments/v2/contract?orderId=abc",
		},
	}
}

func wantStatus(t *testing.T, err error, status int) *apperr.Error {
	t.Helper()
	var appErr *apperr.Error
	if !errors.As(err, &appErr) {
		t.Fatalf("error %v is not *apperr.Error", err)
	}
	if appErr.Status != status {
		t.Fatalf("error status = %d, want %d (message %q)", appErr.Status, status, appErr.Message)
	}
	return appErr
}

func TestCreatePaymentSuccess(t *testing.T) {
	storage := happyStorage()
	gateway := &MockGateway{Payment: gatewayPayment()}
	svc := NewService(storage, gateway, testLocalization(t), "https://intogame.ru/payment-result", testLogger())

	result, err := svc.CreatePayment(context.Background(), CreateRequest{
		UserID: 1,
		GameID: 42,
		Amount: 100.0,
	})
	if err != nil {
		t.Fatalf("CreatePayment() error: %v", err)
	}

	if result.PaymentID != "2e8f3a1b-000f-5000-8000-18db351245c7" {
		t.Errorf("PaymentID = %q", result.PaymentID)
	}
	if result.ConfirmationURL == "" {
		t.Error("ConfirmationURL is empty")
	}
	if result.PricePerPlayer != 100.0 {
		t.Errorf("PricePerPlayer = %v, want 100", result.PricePerPlayer)
	}

	if len(gateway.Requests) != 1 {
		t.Fatalf("gateway received %d requests, want 1", len(gateway.Requests))
	}
	req := gateway.Requests[0]
	if req.Receipt == nil || req.Receipt.Customer.Email != "player@example.com" {
		t.Error("receipt customer email not set")
	}
	if req.Metadata["vote_id"] != "7" || req.Metadata["game_id"] != "42" {
		t.Errorf("metadata = %v", req.Metadata)
	}
	if !req.Capture {
		t.Error("payment must be created with capture=true")
	}

	if len(storage.UpsertedParams) != 1 {
		t.Fatalf("upserted %d rows, want 1", len(storage.UpsertedParams))
	}
	row := storage.UpsertedParams[0]
	if row.ID != result.PaymentID {
		t.Errorf("stored under id %q, want gateway id %q", row.ID, result.PaymentID)
	}
	if row.VoteID == nil || *row.VoteID != 7 {
		t.Errorf("stored vote_id = %v, want 7", row.VoteID)
	}
}

func TestCreatePaymentCeilPricing(t *testing.T) {
	// 1000 / 3 = 333.33..., округляется вверх до копейки не в пользу клиента
	storage := happyStorage()
	storage.Game.PlayersMin = lo.ToPtr(int64(3))
	storage.Vote.Quantity = 3
	gateway := &MockGateway{Payment: gatewayPayment()}
	svc := NewService(storage, gateway, testLocalization(t), "", testLogger())

	result, err := svc.CreatePayment(context.Background(), CreateRequest{
		UserID: 1,
		GameID: 42,
		Amount: 1002.0, // 334 за место * 3 места
	})
	if err != nil {
		t.Fatalf("CreatePayment() error: %v", err)
	}
	if result.PricePerPlayer != 334.0 {
		t.Errorf("PricePerPlayer = %v, want 334", result.PricePerPlayer)
	}
	if result.Quantity != 3 {
		t.Errorf("Quantity = %d, want 3", result.Quantity)
	}
}

func TestCreatePaymentAmountWithinTolerance(t *testing.T) {
	storage := happyStorage()
	gateway := &MockGateway{Payment: gatewayPayment()}
	svc := NewService(storage, gateway, testLocalization(t), "", testLogger())

	// расхождение на копейку проходит, на две - нет
	if _, err := svc.CreatePayment(context.Background(), CreateRequest{
		UserID: 1, GameID: 42, Amount: 100.01,
	}); err != nil {
		t.Errorf("amount within tolerance rejected: %v", err)
	}

	_, err := svc.CreatePayment(context.Background(), CreateRequest{
		UserID: 1, GameID: 42, Amount: 100.02,
	})
	appErr := wantStatus(t, err, http.StatusBadRequest)
	if appErr.Details == nil {
		t.Error("amount mismatch error must carry expected/actual details")
	}
}

func TestCreatePaymentErrors(t *testing.T) {
	tests := []struct {
		name       string
		setup      func(s *MockStorage, g *MockGateway)
		amount     float64
		nilGateway bool
		wantStatus int
	}{
		{
			name:       "gateway not configured",
			setup:      func(s *MockStorage, g *MockGateway) {},
			amount:     100,
			nilGateway: true,
			wantStatus: http.StatusInternalServerError,
		},
		{
			name:       "non-positive amount",
			setup:      func(s *MockStorage, g *MockGateway) {},
			amount:     0,
			wantStatus: http.StatusBadRequest,
		},
		{
			name: "no pending vote",
			setup: func(s *MockStorage, g *MockGateway) {
				s.Vote = nil
			},
			amount:     100,
			wantStatus: http.StatusNotFound,
		},
		{
			name: "game not found",
			setup: func(s *MockStorage, g *MockGateway) {
				s.Game = nil
			},
			amount:     100,
			wantStatus: http.StatusNotFound,
		},
		{
			name: "game without price",
			setup: func(s *MockStorage, g *MockGateway) {
				s.Game.Price = nil
			},
			amount:     100,
			wantStatus: http.StatusInternalServerError,
		},
		{
			name: "zero players_min",
			setup: func(s *MockStorage, g *MockGateway) {
				s.Game.PlayersMin = lo.ToPtr(int64(0))
			},
			amount:     100,
			wantStatus: http.StatusInternalServerError,
		},
		{
			name: "user without email",
			setup: func(s *MockStorage, g *MockGateway) {
				s.User.Email = nil
			},
			amount:     100,
			wantStatus: http.StatusBadRequest,
		},
		{
			name: "gateway failure",
			setup: func(s *MockStorage, g *MockGateway) {
				g.Err = &yookassa.APIError{StatusCode: 400, Code: "invalid_request", Description: "Invalid parameter"}
			},
			amount:     100,
			wantStatus: http.StatusBadGateway,
		},
		{
			name: "no confirmation url",
			setup: func(s *MockStorage, g *MockGateway) {
				g.Payment = &yookassa.Payment{ID: "x", Status: yookassa.StatusPending}
			},
			amount:     100,
			wantStatus: http.StatusBadGateway,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			storage := happyStorage()
			gateway := &MockGateway{Payment: gatewayPayment()}
			tt.setup(storage, gateway)

			var gw Gateway
			if !tt.nilGateway {
				gw = gateway
			}
			svc := NewService(storage, gw, testLocalization(t), "", testLogger())

			_, err := svc.CreatePayment(context.Background(), CreateRequest{
				UserID: 1, GameID: 42, Amount: tt.amount,
			})
			if err == nil {
				t.Fatal("expected error")
			}
			wantStatus(t, err, tt.wantStatus)
		})
	}
}

func TestCreatePaymentUpsertFailureIsNotFatal(t *testing.T) {
	storage := happyStorage()
	storage.UpsertErr = errors.New("connection refused")
	gateway := &MockGateway{Payment: gatewayPayment()}
	svc := NewService(storage, gateway, testLocalization(t), "", testLogger())

	// Платёж в шлюзе создан, пользователя надо перенаправить на оплату
	result, err := svc.CreatePayment(context.Background(), CreateRequest{
		UserID: 1, GameID: 42, Amount: 100,
	})
	if err != nil {
		t.Fatalf("CreatePayment() error: %v", err)
	}
	if result.ConfirmationURL == "" {
		t.Error("ConfirmationURL is empty")
	}
}

func TestStatusFromGateway(t *testing.T) {
	tests := []struct {
		gateway string
		want    Status
	}{
		{yookassa.StatusSucceeded, StatusSucceeded},
		{yookassa.StatusCanceled, StatusCanceled},
		{yookassa.StatusPending, StatusPending},
		{yookassa.StatusWaitingForCapture, StatusPending},
	}
	for _, tt := range tests {
		if got := StatusFromGateway(tt.gateway); got != tt.want {
			t.Errorf("StatusFromGateway(%q) = %q, want %q", tt.gateway, got, tt.want)
		}
	}
}
