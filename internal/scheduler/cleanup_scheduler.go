package scheduler

import (
	"github.com/robfig/cron/v3"

	"github.com/unimarket/unimarket-backend/internal/app/service"
	"github.com/unimarket/unimarket-backend/pkg/logger"
)

// CleanupScheduler purges decided verification requests past the
// retention window once a day.
type CleanupScheduler struct {
	cron                *cron.Cron
	verificationService service.VerificationService
}

func NewCleanupScheduler(verificationService service.VerificationService) *CleanupScheduler {
	return &CleanupScheduler{
		cron:                cron.New(),
		verificationService: verificationService,
	}
}

// Start registers the daily job. Runs at 03:00 server time, when the
// queue is quietest.
func (s *CleanupScheduler) Start() error {
	_, err := s.cron.AddFunc("0 3 * * *", func() {
		logger.Info("Starting scheduled verification retention cleanup", nil)

		deleted, err := s.verificationService.Cleanup(0)
		if err != nil {
			logger.Error("Scheduled verification cleanup failed", err)
			return
		}

		logger.Info("Scheduled verification cleanup finished", map[string]interface{}{
			"deleted": deleted,
		})
	})

	if err != nil {
		logger.Error("Failed to register verification cleanup job", err)
		return err
	}

	s.cron.Start()
	logger.Info("Verification cleanup scheduler started (daily at 3:00 AM)", nil)

	return nil
}

func (s *CleanupScheduler) Stop() {
	logger.Info("Stopping verification cleanup scheduler...", nil)
	s.cron.Stop()
	logger.Info("Verification cleanup scheduler stopped", nil)
}
