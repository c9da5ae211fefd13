package queue

import (
	"time"

	"github.com/hibiken/asynq"

	"autoparts-returns-backend/internal/config"
	"autoparts-returns-backend/internal/shared"
	"autoparts-returns-backend/pkg/logger"
)

type Scheduler struct {
	scheduler *asynq.Scheduler
	policy    config.ReturnPolicyConfig
}

func NewScheduler(redisCfg config.RedisConfig, policy config.ReturnPolicyConfig) *Scheduler {
	scheduler := asynq.NewScheduler(
		asynq.RedisClientOpt{
			Addr:     redisCfg.Host,
			Password: redisCfg.Password,
			DB:       redisCfg.DB,
		},
		&asynq.SchedulerOpts{
			Location: time.UTC,
			LogLevel: asynq.InfoLevel,
		},
	)

	return &Scheduler{
		scheduler: scheduler,
		policy:    policy,
	}
}

func (s *Scheduler) RegisterPeriodicJobs() error {
	if err := s.registerReconcileRefundsJob(); err != nil {
		return err
	}

	if err := s.registerPickupSLACheckJob(); err != nil {
		return err
	}

	if err := s.registerCleanupWebhookLogJob(); err != nil {
		return err
	}

	return nil
}

// ================================================
// JOB 1: Reconcile Processing Refunds (Every 30 minutes)
// ================================================
// Settlement webhooks can be lost; this sweep asks the processor for
// the current state of every refund still marked processing.
func (s *Scheduler) registerReconcileRefundsJob() error {
	task := asynq.NewTask(shared.TypeReconcileRefunds, nil)

	_, err := s.scheduler.Register(
		"*/30 * * * *", // every 30 minutes
		task,
		asynq.Queue(shared.QueueDefault),
		asynq.MaxRetry(2),
		asynq.Timeout(5*time.Minute),
	)

	if err != nil {
		logger.Error("Failed to register ReconcileRefunds job", err)
		return err
	}

	logger.Info("✓ Registered ReconcileRefunds: every 30 minutes", map[string]interface{}{})
	return nil
}

// ================================================
// JOB 2: Pickup SLA Check (Hourly)
// ================================================
// Flags returns whose scheduled pickup has been sitting incomplete past
// the configured SLA so operations can chase the partner.
func (s *Scheduler) registerPickupSLACheckJob() error {
	task := asynq.NewTask(shared.TypePickupSLACheck, nil)

	_, err := s.scheduler.Register(
		"0 * * * *", // hourly at minute 0
		task,
		asynq.Queue(shared.QueueLow),
		asynq.MaxRetry(1),
		asynq.Timeout(5*time.Minute),
	)

	if err != nil {
		logger.Error("Failed to register PickupSLACheck job", err)
		return err
	}

	logger.Info("✓ Registered PickupSLACheck: hourly", map[string]interface{}{
		"sla_days": s.policy.PickupSLADays,
	})
	return nil
}

// ================================================
// JOB 3: Cleanup Webhook Log (Daily at 3 AM)
// ================================================
// Low traffic time; keeps the processed-webhook table from growing
// without bound.
func (s *Scheduler) registerCleanupWebhookLogJob() error {
	task := asynq.NewTask(shared.TypeCleanupWebhookLog, nil)

	_, err := s.scheduler.Register(
		"0 3 * * *", // daily at 3 AM
		task,
		asynq.Queue(shared.QueueLow),
		asynq.MaxRetry(2),
		asynq.Timeout(10*time.Minute),
	)

	if err != nil {
		logger.Error("Failed to register CleanupWebhookLog job", err)
		return err
	}

	logger.Info("✓ Registered CleanupWebhookLog: daily at 3 AM", map[string]interface{}{})
	return nil
}

func (s *Scheduler) Start() error {
	return s.scheduler.Run()
}

func (s *Scheduler) Shutdown() {
	s.scheduler.Shutdown()
}
