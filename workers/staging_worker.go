// workers/staging_worker.go
package workers

import (
	"context"
	"log"
	"time"

	"voisss-backend/models"
	"voisss-backend/services"
)

// StagingWorker retries staged uploads on a ticker and whenever Trigger is called.
type StagingWorker struct {
	staging  *services.TempStorage
	uploader services.Uploader
	interval time.Duration
	trigger  chan struct{}
}

func NewStagingWorker(staging *services.TempStorage, uploader services.Uploader, interval time.Duration) *StagingWorker {
	if interval <= 0 {
		interval = time.Minute
	}
	return &StagingWorker{
		staging:  staging,
		uploader: uploader,
		interval: interval,
		trigger:  make(chan struct{}, 1),
	}
}

// Trigger asks for a sweep soon. It never blocks; bursts collapse into one sweep.
func (w *StagingWorker) Trigger() {
	select {
	case w.trigger <- struct{}{}:
	default:
	}
}

// Run blocks until ctx is done.
func (w *StagingWorker) Run(ctx context.Context) error {
	log.Printf("🔁 Starting staging worker (every %s)…", w.interval)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.RunOnce(ctx)
		case <-w.trigger:
			w.RunOnce(ctx)
		case <-ctx.Done():
			log.Println("⏹️ Staging worker stopped")
			return nil
		}
	}
}

func (w *StagingWorker) RunOnce(ctx context.Context) models.SweepReport {
	rep, err := w.staging.Sweep(ctx, w.uploader)
	if err != nil {
		log.Printf("❌ [STAGING] sweep failed: %v", err)
		return rep
	}
	if rep.Retried > 0 || rep.Expired > 0 {
		log.Printf("✅ [STAGING] sweep: scanned=%d retried=%d uploaded=%d failed=%d expired=%d",
			rep.Scanned, rep.Retried, rep.Uploaded, rep.Failed, rep.Expired)
	}
	return rep
}
