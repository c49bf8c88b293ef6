package environment

import (
	"context"
	"log/slog"
	"net/http"

	"intogame-backend/internal/config"
	"intogame-backend/internal/httpapi"
	"intogame-backend/internal/localization"
	"intogame-backend/internal/storage"
	"intogame-backend/internal/stories/payments"
	"intogame-backend/internal/stories/refunds"
	"intogame-backend/internal/stories/webhook"
	"intogame-backend/internal/workers"
	"intogame-backend/internal/workers/reconcile"

	"github.com/pkg/errors"
)

type Services struct {
	APIRouter     http.Handler
	WorkerManager *workers.Manager
}

func newServices(_ context.Context, clients *Clients, cfg *config.Config, logger *slog.Logger) (*Services, error) {
	var s Services

	storageImpl := storage.New(clients.PostgresDB.DB)

	loc, err := localization.NewService()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create localization service")
	}

	// Nil-интерфейсы оставляем настоящими nil: typed nil сломал бы проверку
	// "шлюз не настроен" внутри сервисов.
	var createGateway payments.Gateway
	var refundGateway refunds.Gateway
	if clients.YooKassa != nil {
		createGateway = clients.YooKassa
		refundGateway = clients.YooKassa
	}

	paymentsService := payments.NewService(storageImpl, createGateway, loc, cfg.YooKassa.ReturnURL, logger)
	webhookService := webhook.NewService(storageImpl, loc, logger)
	refundsService := refunds.NewService(storageImpl, refundGateway, loc, logger)

	handler := httpapi.NewHandler(paymentsService, webhookService, refundsService, logger)
	s.APIRouter = httpapi.NewRouter(handler, cfg.YooKassa.WebhookLogin, cfg.YooKassa.WebhookPassword, logger)

	var workerList []workers.Worker
	if cfg.Reconcile.Enabled && clients.YooKassa != nil {
		workerList = append(workerList, reconcile.NewWorker(
			storageImpl,
			clients.YooKassa,
			webhookService,
			cfg.Reconcile.Interval,
			cfg.Reconcile.PendingMaxAge,
			logger,
		))
	}
	s.WorkerManager = workers.NewManager(logger, workerList...)

	return &s, nil
}
