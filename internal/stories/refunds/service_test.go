package refunds

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"testing"
	"time"

	"intogame-backend/internal/apperr"
	"intogame-backend/internal/infra/yookassa"
	"intogame-backend/internal/localization"
	"intogame-backend/internal/stories/games"
	"intogame-backend/internal/stories/payments"
	"intogame-backend/internal/stories/users"
	"intogame-backend/internal/stories/votes"

	"github.com/samber/lo"
)

func testService(t *testing.T, storage *MockStorage, gateway Gateway) *Service {
	t.Helper()
	loc, err := localization.NewService()
	if err != nil {
		t.Fatalf("localization.NewService() error: %v", err)
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	svc := NewService(storage, gateway, loc, logger)
	svc.now = func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }
	return svc
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

func succeededGatewayPayment(id string, amount, refundable float64, voteID string) *yookassa.Payment {
	p := &yookassa.Payment{
		ID:     id,
		Status: yookassa.StatusSucceeded,
		Paid:   true,
		Amount: yookassa.NewAmount(amount, "RUB"),
	}
	if refundable > 0 {
		p.RefundableAmount = yookassa.NewAmount(refundable, "RUB")
	}
	if voteID != "" {
		p.Metadata = map[string]interface{}{"vote_id": voteID}
	}
	return p
}

func TestRefundPaymentFull(t *testing.T) {
	storage := NewMockStorage()
	storage.Vote = &votes.Vote{ID: 7, GameID: 42, UserID: 1, Status: votes.StatusConfirmed}
	storage.Games[42] = &games.Game{ID: 42, Name: "Пятничный футбол", Price: lo.ToPtr(1000.0), PlayersMin: lo.ToPtr(int64(10))}
	storage.Users[1] = &users.User{ID: 1, Email: lo.ToPtr("player@example.com")}

	gateway := NewMockGateway()
	gateway.Payments["pay-1"] = succeededGatewayPayment("pay-1", 100, 100, "7")

	svc := testService(t, storage, gateway)

	result, err := svc.RefundPayment(context.Background(), RefundRequest{PaymentID: "pay-1"})
	if err != nil {
		t.Fatalf("RefundPayment() error: %v", err)
	}
	if result.Amount != 100 {
		t.Errorf("refunded %v, want full 100", result.Amount)
	}
	if result.RefundID == "" {
		t.Error("RefundID is empty")
	}

	if len(gateway.RefundRequests) != 1 {
		t.Fatalf("gateway received %d refund requests, want 1", len(gateway.RefundRequests))
	}
	req := gateway.RefundRequests[0]
	if req.PaymentID != "pay-1" {
		t.Errorf("refund payment_id = %q", req.PaymentID)
	}
	if req.Receipt == nil || req.Receipt.Customer.Email != "player@example.com" {
		t.Error("refund receipt customer email not set")
	}

	// платёж помечен отменённым, бронь снята
	params, ok := storage.UpdatedPayments["pay-1"]
	if !ok {
		t.Fatal("payment row was not updated")
	}
	if params.Status == nil || *params.Status != payments.StatusCanceled {
		t.Errorf("payment status = %v, want canceled", params.Status)
	}
	if params.RefundedAmount == nil || *params.RefundedAmount != 100 {
		t.Errorf("refunded amount = %v, want 100", params.RefundedAmount)
	}
	if storage.UpdatedVoteStatus[7] != votes.StatusCancelled {
		t.Errorf("vote status = %q, want cancelled", storage.UpdatedVoteStatus[7])
	}
}

func TestRefundPaymentPartialAlreadyRefunded(t *testing.T) {
	// Шлюз сообщает, что к возврату осталось меньше полной суммы
	storage := NewMockStorage()
	storage.Vote = &votes.Vote{ID: 7, GameID: 42, UserID: 1}
	storage.Games[42] = &games.Game{ID: 42, Name: "Игра", Price: lo.ToPtr(1000.0), PlayersMin: lo.ToPtr(int64(10))}
	storage.Users[1] = &users.User{ID: 1, Email: lo.ToPtr("player@example.com")}

	gateway := NewMockGateway()
	gateway.Payments["pay-1"] = succeededGatewayPayment("pay-1", 100, 40, "7")

	svc := testService(t, storage, gateway)

	// без явной суммы возвращаем всё доступное
	result, err := svc.RefundPayment(context.Background(), RefundRequest{PaymentID: "pay-1"})
	if err != nil {
		t.Fatalf("RefundPayment() error: %v", err)
	}
	if result.Amount != 40 {
		t.Errorf("refunded %v, want remaining 40", result.Amount)
	}

	// явная сумма сверх доступной отклоняется с деталями
	_, err = svc.RefundPayment(context.Background(), RefundRequest{
		PaymentID: "pay-1",
		Amount:    lo.ToPtr(50.0),
	})
	appErr := wantStatus(t, err, http.StatusBadRequest)
	if appErr.Details == nil {
		t.Error("over-refund error must carry max/requested details")
	}
}

func TestRefundPaymentErrors(t *testing.T) {
	tests := []struct {
		name       string
		setup      func(s *MockStorage, g *MockGateway)
		req        RefundRequest
		wantStatus int
	}{
		{
			name:       "empty payment id",
			setup:      func(s *MockStorage, g *MockGateway) {},
			req:        RefundRequest{},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "payment not found at gateway",
			setup:      func(s *MockStorage, g *MockGateway) {},
			req:        RefundRequest{PaymentID: "missing"},
			wantStatus: http.StatusNotFound,
		},
		{
			name: "payment not paid",
			setup: func(s *MockStorage, g *MockGateway) {
				g.Payments["pay-1"] = &yookassa.Payment{
					ID:     "pay-1",
					Status: yookassa.StatusPending,
					Amount: yookassa.NewAmount(100, "RUB"),
				}
			},
			req:        RefundRequest{PaymentID: "pay-1"},
			wantStatus: http.StatusBadRequest,
		},
		{
			name: "nothing refundable",
			setup: func(s *MockStorage, g *MockGateway) {
				p := succeededGatewayPayment("pay-1", 100, 0, "7")
				p.RefundableAmount = yookassa.NewAmount(0, "RUB")
				g.Payments["pay-1"] = p
			},
			req:        RefundRequest{PaymentID: "pay-1"},
			wantStatus: http.StatusBadRequest,
		},
		{
			name: "negative explicit amount",
			setup: func(s *MockStorage, g *MockGateway) {
				g.Payments["pay-1"] = succeededGatewayPayment("pay-1", 100, 100, "7")
			},
			req:        RefundRequest{PaymentID: "pay-1", Amount: lo.ToPtr(-5.0)},
			wantStatus: http.StatusBadRequest,
		},
		{
			name: "no vote behind payment",
			setup: func(s *MockStorage, g *MockGateway) {
				g.Payments["pay-1"] = succeededGatewayPayment("pay-1", 100, 100, "")
			},
			req:        RefundRequest{PaymentID: "pay-1"},
			wantStatus: http.StatusNotFound,
		},
		{
			name: "user without email",
			setup: func(s *MockStorage, g *MockGateway) {
				g.Payments["pay-1"] = succeededGatewayPayment("pay-1", 100, 100, "7")
				s.Vote = &votes.Vote{ID: 7, GameID: 42, UserID: 1}
				s.Games[42] = &games.Game{ID: 42, Name: "Игра"}
				s.Users[1] = &users.User{ID: 1}
			},
			req:        RefundRequest{PaymentID: "pay-1"},
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			storage := NewMockStorage()
			gateway := NewMockGateway()
			tt.setup(storage, gateway)
			svc := testService(t, storage, gateway)

			_, err := svc.RefundPayment(context.Background(), tt.req)
			if err == nil {
				t.Fatal("expected error")
			}
			wantStatus(t, err, tt.wantStatus)
		})
	}
}

func TestRefundPaymentNilGateway(t *testing.T) {
	svc := testService(t, NewMockStorage(), nil)
	_, err := svc.RefundPayment(context.Background(), RefundRequest{PaymentID: "pay-1"})
	wantStatus(t, err, http.StatusInternalServerError)

	_, err = svc.RefundGameCompletion(context.Background(), CompletionRequest{GameID: 1, GameStatus: games.StatusCompleted})
	wantStatus(t, err, http.StatusInternalServerError)
}

// completionFixture: игра за 1000 с минимумом 4, за место взято 250.
func completionFixture(confirmed int) (*MockStorage, *MockGateway) {
	storage := NewMockStorage()
	storage.Games[42] = &games.Game{
		ID:         42,
		Name:       "Пятничный футбол",
		Price:      lo.ToPtr(1000.0),
		PlayersMin: lo.ToPtr(int64(4)),
	}

	gateway := NewMockGateway()
	for i := 1; i <= confirmed; i++ {
		voteID := int64(i)
		userID := int64(100 + i)
		paymentID := "pay-" + string(rune('a'+i-1))

		storage.VotesByGame = append(storage.VotesByGame, &votes.Vote{
			ID:       voteID,
			GameID:   42,
			UserID:   userID,
			Quantity: 1,
			Status:   votes.StatusConfirmed,
		})
		storage.Users[userID] = &users.User{ID: userID, Email: lo.ToPtr("p@example.com")}
		storage.PaymentList = append(storage.PaymentList, &payments.Payment{
			ID:     paymentID,
			VoteID: voteID,
			Amount: 250,
			Status: payments.StatusSucceeded,
		})
		gateway.Payments[paymentID] = succeededGatewayPayment(paymentID, 250, 250, "")
	}
	return storage, gateway
}

func TestRefundGameCompletionInvalidStatus(t *testing.T) {
	storage, gateway := completionFixture(4)
	svc := testService(t, storage, gateway)

	_, err := svc.RefundGameCompletion(context.Background(), CompletionRequest{
		GameID:     42,
		GameStatus: games.StatusActive,
	})
	wantStatus(t, err, http.StatusBadRequest)
}

func TestRefundGameCompletionCancelledRefundsInFull(t *testing.T) {
	storage, gateway := completionFixture(5)
	svc := testService(t, storage, gateway)

	summary, err := svc.RefundGameCompletion(context.Background(), CompletionRequest{
		GameID:     42,
		GameStatus: games.StatusCancelled,
	})
	if err != nil {
		t.Fatalf("RefundGameCompletion() error: %v", err)
	}

	if !summary.FullRefund {
		t.Error("cancelled game must refund in full")
	}
	if summary.SuccessfulRefunds != 5 || summary.FailedRefunds != 0 {
		t.Errorf("successful = %d, failed = %d", summary.SuccessfulRefunds, summary.FailedRefunds)
	}
	if summary.TotalRefunded != 1250 {
		t.Errorf("total refunded = %v, want 1250", summary.TotalRefunded)
	}
	for _, rec := range summary.Refunds {
		if rec.Amount != 250 {
			t.Errorf("refund %q amount = %v, want 250", rec.PaymentID, rec.Amount)
		}
	}
	// все брони сняты, платежи отменены
	if len(storage.UpdatedVoteStatus) != 5 {
		t.Errorf("cancelled %d votes, want 5", len(storage.UpdatedVoteStatus))
	}
	for id, params := range storage.UpdatedPayments {
		if params.Status == nil || *params.Status != payments.StatusCanceled {
			t.Errorf("payment %q status = %v, want canceled", id, params.Status)
		}
	}
}

func TestRefundGameCompletionUnderQuorumRefundsInFull(t *testing.T) {
	storage, gateway := completionFixture(3) // минимум 4
	svc := testService(t, storage, gateway)

	summary, err := svc.RefundGameCompletion(context.Background(), CompletionRequest{
		GameID:     42,
		GameStatus: games.StatusCompleted,
	})
	if err != nil {
		t.Fatalf("RefundGameCompletion() error: %v", err)
	}

	if !summary.FullRefund {
		t.Error("under-quorum completion must refund in full")
	}
	if summary.TotalRefunded != 750 {
		t.Errorf("total refunded = %v, want 750", summary.TotalRefunded)
	}
	if len(storage.UpdatedVoteStatus) != 3 {
		t.Errorf("cancelled %d votes, want 3", len(storage.UpdatedVoteStatus))
	}
	for id, status := range storage.UpdatedVoteStatus {
		if status != votes.StatusCancelled {
			t.Errorf("vote %d status = %q, want cancelled", id, status)
		}
	}
}

func TestRefundGameCompletionOverQuorumRefundsSurplus(t *testing.T) {
	// 5 пришедших при минимуме 4: каждый должен был заплатить 200, взято 250
	storage, gateway := completionFixture(5)
	svc := testService(t, storage, gateway)

	summary, err := svc.RefundGameCompletion(context.Background(), CompletionRequest{
		GameID:     42,
		GameStatus: games.StatusCompleted,
	})
	if err != nil {
		t.Fatalf("RefundGameCompletion() error: %v", err)
	}

	if summary.FullRefund {
		t.Error("quorum completion must refund the surplus only")
	}
	if summary.SuccessfulRefunds != 5 {
		t.Errorf("successful = %d, want 5", summary.SuccessfulRefunds)
	}
	for _, rec := range summary.Refunds {
		if rec.Amount != 50 {
			t.Errorf("refund %q amount = %v, want 50", rec.PaymentID, rec.Amount)
		}
	}
	if summary.TotalRefunded != 250 {
		t.Errorf("total refunded = %v, want 250", summary.TotalRefunded)
	}
	// частичный возврат не отменяет ни платёж, ни бронь
	if len(storage.UpdatedVoteStatus) != 0 {
		t.Errorf("partial refund cancelled %d votes, want none", len(storage.UpdatedVoteStatus))
	}
	for id, params := range storage.UpdatedPayments {
		if params.Status == nil || *params.Status != payments.StatusSucceeded {
			t.Errorf("payment %q status = %v, want succeeded", id, params.Status)
		}
	}
}

func TestRefundGameCompletionExactQuorumRefundsNothing(t *testing.T) {
	// явка равна минимуму: переплаты нет, возвраты не создаются
	storage, gateway := completionFixture(4)
	svc := testService(t, storage, gateway)

	summary, err := svc.RefundGameCompletion(context.Background(), CompletionRequest{
		GameID:     42,
		GameStatus: games.StatusCompleted,
	})
	if err != nil {
		t.Fatalf("RefundGameCompletion() error: %v", err)
	}

	if summary.SuccessfulRefunds != 0 || summary.FailedRefunds != 0 {
		t.Errorf("summary = %+v, want no refunds at all", summary)
	}
	if len(gateway.RefundRequests) != 0 {
		t.Errorf("gateway received %d refund requests, want none", len(gateway.RefundRequests))
	}
}

func TestRefundGameCompletionMultiSeatVote(t *testing.T) {
	// одна бронь на 2 места: должник за два места, переплата двойная
	storage := NewMockStorage()
	storage.Games[42] = &games.Game{
		ID:         42,
		Name:       "Игра",
		Price:      lo.ToPtr(1000.0),
		PlayersMin: lo.ToPtr(int64(4)),
	}
	storage.VotesByGame = []*votes.Vote{
		{ID: 1, GameID: 42, UserID: 101, Quantity: 2, Status: votes.StatusConfirmed},
		{ID: 2, GameID: 42, UserID: 102, Quantity: 1, Status: votes.StatusConfirmed},
		{ID: 3, GameID: 42, UserID: 103, Quantity: 1, Status: votes.StatusConfirmed},
		{ID: 4, GameID: 42, UserID: 104, Quantity: 1, Status: votes.StatusConfirmed},
	}
	for _, id := range []int64{101, 102, 103, 104} {
		storage.Users[id] = &users.User{ID: id, Email: lo.ToPtr("p@example.com")}
	}
	gateway := NewMockGateway()
	// бронь на 2 места оплачена как 2 * 250
	storage.PaymentList = []*payments.Payment{
		{ID: "pay-a", VoteID: 1, Amount: 500, Status: payments.StatusSucceeded},
		{ID: "pay-b", VoteID: 2, Amount: 250, Status: payments.StatusSucceeded},
		{ID: "pay-c", VoteID: 3, Amount: 250, Status: payments.StatusSucceeded},
		{ID: "pay-d", VoteID: 4, Amount: 250, Status: payments.StatusSucceeded},
	}
	for _, p := range storage.PaymentList {
		gateway.Payments[p.ID] = succeededGatewayPayment(p.ID, p.Amount, p.Amount, "")
	}

	svc := testService(t, storage, gateway)

	// всего подтверждено 5 мест при минимуме 4: по факту место стоит 200
	summary, err := svc.RefundGameCompletion(context.Background(), CompletionRequest{
		GameID:     42,
		GameStatus: games.StatusCompleted,
	})
	if err != nil {
		t.Fatalf("RefundGameCompletion() error: %v", err)
	}
	if summary.FullRefund {
		t.Error("5 seats over minimum 4 is a quorum completion")
	}

	byPayment := map[string]float64{}
	for _, rec := range summary.Refunds {
		byPayment[rec.PaymentID] = rec.Amount
	}
	if byPayment["pay-a"] != 100 {
		t.Errorf("two-seat vote refund = %v, want 100", byPayment["pay-a"])
	}
	if byPayment["pay-b"] != 50 {
		t.Errorf("single-seat vote refund = %v, want 50", byPayment["pay-b"])
	}
	if summary.TotalRefunded != 250 {
		t.Errorf("total refunded = %v, want 250", summary.TotalRefunded)
	}
}

func TestRefundGameCompletionPartialFailure(t *testing.T) {
	storage, gateway := completionFixture(3) // полный возврат
	gateway.RefundErrs["pay-b"] = &yookassa.APIError{
		StatusCode:  400,
		Code:        "invalid_request",
		Description: "Refund already in progress",
	}
	svc := testService(t, storage, gateway)

	summary, err := svc.RefundGameCompletion(context.Background(), CompletionRequest{
		GameID:     42,
		GameStatus: games.StatusCancelled,
	})
	if err != nil {
		t.Fatalf("RefundGameCompletion() error: %v", err)
	}

	if summary.SuccessfulRefunds != 2 {
		t.Errorf("successful = %d, want 2", summary.SuccessfulRefunds)
	}
	if summary.FailedRefunds != 1 {
		t.Errorf("failed = %d, want 1", summary.FailedRefunds)
	}
	if len(summary.Failed) != 1 || summary.Failed[0].PaymentID != "pay-b" {
		t.Errorf("failed list = %+v", summary.Failed)
	}
	if summary.TotalRefunded != 500 {
		t.Errorf("total refunded = %v, want 500", summary.TotalRefunded)
	}
	// упавший платёж не помечен возвращённым
	if _, ok := storage.UpdatedPayments["pay-b"]; ok {
		t.Error("failed refund must not update the payment row")
	}
}

func TestRefundGameCompletionClampsToGatewayRefundable(t *testing.T) {
	storage, gateway := completionFixture(3) // полный возврат по 250
	// по одному платежу уже вернули 200, доступно только 50
	gateway.Payments["pay-a"].RefundableAmount = yookassa.NewAmount(50, "RUB")
	svc := testService(t, storage, gateway)

	summary, err := svc.RefundGameCompletion(context.Background(), CompletionRequest{
		GameID:     42,
		GameStatus: games.StatusCancelled,
	})
	if err != nil {
		t.Fatalf("RefundGameCompletion() error: %v", err)
	}

	byPayment := map[string]float64{}
	for _, rec := range summary.Refunds {
		byPayment[rec.PaymentID] = rec.Amount
	}
	if byPayment["pay-a"] != 50 {
		t.Errorf("clamped refund = %v, want 50", byPayment["pay-a"])
	}
	if summary.TotalRefunded != 550 {
		t.Errorf("total refunded = %v, want 550", summary.TotalRefunded)
	}
}

func TestRefundGameCompletionNoConfirmedVotes(t *testing.T) {
	storage := NewMockStorage()
	storage.Games[42] = &games.Game{ID: 42, Name: "Игра", Price: lo.ToPtr(1000.0), PlayersMin: lo.ToPtr(int64(4))}
	svc := testService(t, storage, NewMockGateway())

	summary, err := svc.RefundGameCompletion(context.Background(), CompletionRequest{
		GameID:     42,
		GameStatus: games.StatusCancelled,
	})
	if err != nil {
		t.Fatalf("RefundGameCompletion() error: %v", err)
	}
	if summary.SuccessfulRefunds != 0 || len(summary.Refunds) != 0 {
		t.Errorf("summary = %+v, want empty", summary)
	}
}
