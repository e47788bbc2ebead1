package worker

import (
	"context"
	"sync"
	"time"

	"github.com/unimarket/unimarket-backend/config"
	"github.com/unimarket/unimarket-backend/internal/app/service"
	"github.com/unimarket/unimarket-backend/pkg/logger"
)

// VerificationWorker drains the pending verification queue on a fixed
// interval. One instance per process; batches never overlap because the
// loop waits for each batch to finish before sleeping.
type VerificationWorker struct {
	verificationService service.VerificationService
	cfgFn               func() config.VerificationConfig

	started  bool
	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// NewVerificationWorker creates a worker. cfgFn may be nil, in which
// case the environment-backed config is used.
func NewVerificationWorker(verificationService service.VerificationService, cfgFn func() config.VerificationConfig) *VerificationWorker {
	if cfgFn == nil {
		cfgFn = config.LoadVerificationConfig
	}
	return &VerificationWorker{
		verificationService: verificationService,
		cfgFn:               cfgFn,
		stop:                make(chan struct{}),
		done:                make(chan struct{}),
	}
}

// Start launches the polling loop in its own goroutine. The first batch
// runs immediately so a restart does not leave submissions waiting a
// full interval.
func (w *VerificationWorker) Start() {
	w.started = true
	interval := time.Duration(w.cfgFn().QueuePollingIntervalMs) * time.Millisecond
	if interval <= 0 {
		interval = 30 * time.Second
	}

	logger.Info("Verification worker started", map[string]interface{}{
		"polling_interval": interval.String(),
	})

	go func() {
		defer close(w.done)

		w.RunOnce(context.Background())

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-w.stop:
				return
			case <-ticker.C:
				w.RunOnce(context.Background())
			}
		}
	}()
}

// RunOnce processes a single batch. Exposed so callers can drain the
// queue on demand without waiting for the ticker.
func (w *VerificationWorker) RunOnce(ctx context.Context) {
	timeout := time.Duration(w.cfgFn().ProcessingTimeoutMs) * time.Millisecond
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	stats, err := w.verificationService.ProcessBatch(ctx)
	if err != nil {
		logger.Error("Verification batch failed", err)
		return
	}
	if stats.Processed == 0 {
		return
	}

	logger.Info("Verification batch completed", map[string]interface{}{
		"processed":              stats.Processed,
		"auto_approved":          stats.AutoApproved,
		"needs_review":           stats.NeedsReview,
		"rejected":               stats.Rejected,
		"errors":                 stats.Errors,
		"avg_processing_time_ms": stats.AvgProcessingTimeMs,
	})
}

// Stop signals the loop to exit and waits for the in-flight batch.
func (w *VerificationWorker) Stop() {
	w.stopOnce.Do(func() {
		close(w.stop)
	})
	if w.started {
		<-w.done
	}
	logger.Info("Verification worker stopped", nil)
}
