package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"intogame-backend/internal/infra/yookassa"
	"intogame-backend/internal/stories/payments"

	"github.com/robfig/cron/v3"
	"github.com/samber/lo"
)

// Worker is the explicit backstop for the webhook: payment creation and the
// local insert are not atomic, and a webhook can be lost. The worker polls
// payments stuck in pending and applies the gateway's answer.
type Worker struct {
	storage       Storage
	gateway       Gateway
	applier       StatusApplier
	logger        *slog.Logger
	cron          *cron.Cron
	interval      time.Duration
	pendingMaxAge time.Duration

	// Guards against reprocessing a payment that is still in flight
	processing sync.Map
}

func NewWorker(
	storage Storage,
	gateway Gateway,
	applier StatusApplier,
	interval time.Duration,
	pendingMaxAge time.Duration,
	logger *slog.Logger,
) *Worker {
	return &Worker{
		storage:       storage,
		gateway:       gateway,
		applier:       applier,
		logger:        logger,
		cron:          cron.New(),
		interval:      interval,
		pendingMaxAge: pendingMaxAge,
	}
}

// Name returns the worker name
func (w *Worker) Name() string {
	return "payment-reconcile"
}

// Start starts the reconcile worker
func (w *Worker) Start() error {
	if w.gateway == nil {
		w.logger.Info("Gateway is not configured, skipping payment reconcile worker")
		return nil
	}

	_, err := w.cron.AddFunc(fmt.Sprintf("@every %s", w.interval), func() {
		defer func() {
			if r := recover(); r != nil {
				w.logger.Error("Panic in payment reconcile worker", "panic", r)
			}
		}()
		ctx := context.Background()
		if err := w.run(ctx); err != nil {
			w.logger.Error("Payment reconcile worker failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule payment reconcile worker: %w", err)
	}

	w.cron.Start()
	w.logger.Info("Payment reconcile worker started", "interval", w.interval)
	return nil
}

// Stop stops the worker
func (w *Worker) Stop() {
	w.logger.Info("Stopping payment reconcile worker")
	w.cron.Stop()
}

func (w *Worker) run(ctx context.Context) error {
	cutoff := time.Now().UTC().Add(-w.pendingMaxAge)

	stale, err := w.storage.ListPayments(ctx, payments.ListCriteria{
		Status:        lo.ToPtr(payments.StatusPending),
		CreatedBefore: &cutoff,
	})
	if err != nil {
		return fmt.Errorf("list stale payments: %w", err)
	}
	if len(stale) == 0 {
		return nil
	}

	w.logger.Info("Reconciling stale pending payments", "count", len(stale))

	for _, p := range stale {
		if _, loaded := w.processing.LoadOrStore(p.ID, true); loaded {
			continue
		}

		go func(p *payments.Payment) {
			defer w.processing.Delete(p.ID)

			if err := w.reconcile(ctx, p); err != nil {
				w.logger.Error("Failed to reconcile payment",
					"payment_id", p.ID,
					"error", err)
			}
		}(p)
	}

	return nil
}

func (w *Worker) reconcile(ctx context.Context, p *payments.Payment) error {
	gatewayPayment, err := w.gateway.GetPayment(ctx, p.ID)
	if err != nil {
		return fmt.Errorf("get payment from gateway: %w", err)
	}

	switch gatewayPayment.Status {
	case yookassa.StatusSucceeded, yookassa.StatusCanceled:
		w.logger.Info("Applying reconciled terminal status",
			"payment_id", p.ID,
			"status", gatewayPayment.Status)
		return w.applier.Apply(ctx, gatewayPayment)
	default:
		// Всё ещё pending на стороне шлюза — проверим в следующий раз
		return nil
	}
}
