package worker

import (
	"context"
	"time"

	"github.com/hibiken/asynq"

	"crm-calendar-api/core/config"
	"crm-calendar-api/core/constants"
	"crm-calendar-api/core/errors"
	"crm-calendar-api/core/logger"
	"crm-calendar-api/modules/calendar/repository"
	"crm-calendar-api/modules/calendar/service"
)

// Connections whose token expires within this horizon get refreshed
// proactively, so interactive requests mostly hit the fast path.
const refreshHorizon = 15 * time.Minute

// Worker runs the scheduled proactive token refresh. Refresh is
// last-write-wins against request-triggered refreshes; a provider-issued
// token value is always self-consistent.
type Worker struct {
	server    *asynq.Server
	scheduler *asynq.Scheduler
	mux       *asynq.ServeMux
}

func New(cfg config.RedisConfig, repo repository.CalendarRepository, tokens service.TokenService) *Worker {
	redisOpt := asynq.RedisClientOpt{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}

	server := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: 1,
	})

	mux := asynq.NewServeMux()
	mux.HandleFunc(constants.TaskRefreshTokens, refreshHandler(repo, tokens))

	scheduler := asynq.NewScheduler(redisOpt, nil)
	if _, err := scheduler.Register("@every 10m", asynq.NewTask(constants.TaskRefreshTokens, nil)); err != nil {
		logger.Error("Worker:New:RegisterSchedule:Error", "error", err)
	}

	return &Worker{server: server, scheduler: scheduler, mux: mux}
}

// Start launches the task server and scheduler. Non-blocking.
func (w *Worker) Start() error {
	if err := w.server.Start(w.mux); err != nil {
		return err
	}
	return w.scheduler.Start()
}

func (w *Worker) Shutdown() {
	w.scheduler.Shutdown()
	w.server.Shutdown()
}

// refreshHandler walks connections expiring inside the horizon and
// refreshes each. Per-connection failures are recorded on the row and do
// not fail the task run.
func refreshHandler(repo repository.CalendarRepository, tokens service.TokenService) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		deadline := time.Now().Add(refreshHorizon)
		connections, err := repo.ListConnectionsExpiringBefore(ctx, deadline)
		if err != nil {
			logger.Error("Worker:RefreshTokens:List:Error", "error", err)
			return err
		}

		logger.Info("Worker:RefreshTokens:Start", "count", len(connections))

		for i := range connections {
			conn := connections[i]
			if _, err := tokens.EnsureValidToken(ctx, &conn); err != nil {
				// Revoked grants are expected here; the member has to reconnect.
				if errors.IsAuthError(err) {
					logger.Warn("Worker:RefreshTokens:ReauthorizationRequired",
						"connection_id", conn.ID, "member_id", conn.MemberID)
				} else {
					logger.Error("Worker:RefreshTokens:Refresh:Error",
						"error", err, "connection_id", conn.ID, "member_id", conn.MemberID)
				}
				if recErr := repo.RecordSyncError(ctx, conn.ID, err.Error()); recErr != nil {
					logger.Error("Worker:RefreshTokens:RecordSyncError:Error", "error", recErr, "connection_id", conn.ID)
				}
			}
		}

		return nil
	}
}
