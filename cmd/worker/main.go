// Package main provides a pacing worker that drains queued outreach actions
// through the safety controller, honoring delays and batch breaks.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/account-safety/internal/config"
	"github.com/account-safety/internal/logging"
	"github.com/account-safety/internal/retry"
	"github.com/account-safety/internal/safety"
	"github.com/account-safety/internal/storage"
	"github.com/account-safety/internal/types"
)

func main() {
	var (
		accountID  = flag.String("account", "", "Account to pace actions for")
		actionName = flag.String("action", string(types.ActionConnectionRequest), "Action type to perform")
		count      = flag.Int("count", 10, "Number of actions to attempt")
	)
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		logging.GetGlobalLogger().WithError(err).Fatal("Failed to load configuration")
	}

	logging.InitGlobalLogger(
		logging.ParseLogLevel(cfg.Logging.Level),
		logging.ParseLogFormat(cfg.Logging.Format),
	)
	logger := logging.GetGlobalLogger()

	if *accountID == "" {
		logger.Fatal("-account is required")
	}
	actionType := types.ActionType(*actionName)
	if !actionType.Valid() {
		logger.WithField("action", *actionName).Fatal("Unknown action type")
	}

	postgres, err := storage.NewPostgresDB(&cfg.Database.Postgres)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to Postgres")
	}
	defer postgres.Close()

	redisStore, err := storage.NewRedisStore(&cfg.Database.Redis)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to Redis")
	}
	defer redisStore.Close()

	ledger, err := safety.NewUsageLedger(&safety.UsageLedgerConfig{
		Redis: redisStore.Client(),
	})
	if err != nil {
		logger.WithError(err).Fatal("Failed to create usage ledger")
	}

	controller, err := safety.NewController(&safety.ControllerConfig{
		Profiles: storage.NewProfileRepository(postgres),
		Ledger:   ledger,
		Safety:   safety.LoadFromEnv(),
		Logger:   logger,
	})
	if err != nil {
		logger.WithError(err).Fatal("Failed to create safety controller")
	}

	ctx, cancel := context.WithCancel(logging.WithLogger(context.Background(), logger))
	defer cancel()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-quit
		logger.Info("Shutdown signal received, stopping worker")
		cancel()
	}()

	if err := runPacingLoop(ctx, controller, *accountID, actionType, *count, logger); err != nil {
		logger.WithError(err).Fatal("Pacing loop failed")
	}
	logger.Info("Worker finished")
}

// runPacingLoop attempts count actions for the account, asking the controller
// before each one and honoring its delay and batch-break advisories.
func runPacingLoop(
	ctx context.Context,
	controller *safety.Controller,
	accountID string,
	actionType types.ActionType,
	count int,
	logger *logging.Logger,
) error {
	performed := 0

	for performed < count {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		decision, err := controller.CanPerformAction(ctx, accountID, actionType)
		if err != nil {
			return err
		}
		if !decision.Allowed {
			logger.WithFields(map[string]interface{}{
				"accountId":  accountID,
				"actionType": string(actionType),
				"reason":     decision.Reason,
				"constraint": decision.BindingConstraint,
			}).Warn("Action denied, stopping for this run")
			return nil
		}

		delay, err := controller.NextDelay(ctx, accountID)
		if err != nil {
			return err
		}
		logger.WithFields(map[string]interface{}{
			"accountId": accountID,
			"delay":     delay.String(),
			"remaining": decision.RemainingToday,
		}).Info("Waiting before next action")

		if !sleepCtx(ctx, delay) {
			return ctx.Err()
		}

		// The action itself happens outside this service. Recording it is the
		// part that must not be lost, so transient store errors are retried.
		err = retry.Do(ctx, retry.DefaultConfig(), func(ctx context.Context, attempt int) error {
			return controller.RecordAction(ctx, accountID, actionType, true, "")
		})
		if err != nil {
			return err
		}
		controller.RecordActionForBatch(accountID)
		performed++

		due, pause, err := controller.ShouldTakeBatchBreak(ctx, accountID)
		if err != nil {
			return err
		}
		if due {
			logger.WithFields(map[string]interface{}{
				"accountId": accountID,
				"pause":     pause.String(),
			}).Info("Batch complete, taking a break")
			if !sleepCtx(ctx, pause) {
				return ctx.Err()
			}
			controller.ResetBatchCounter(accountID)
		}
	}

	logger.WithFields(map[string]interface{}{
		"accountId": accountID,
		"performed": performed,
	}).Info("All requested actions performed")
	return nil
}

// sleepCtx sleeps for d unless the context is cancelled first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	select {
	case <-time.After(d):
		return true
	case <-ctx.Done():
		return false
	}
}
