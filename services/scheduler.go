// services/scheduler.go
package services

import (
	"context"
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// StartMaintenanceScheduler runs the periodic housekeeping jobs: security
// cleanup and mission expiry. Shut the returned scheduler down on exit.
func StartMaintenanceScheduler(sec *SecurityService, missions *MissionService, cleanupEvery, expiryEvery time.Duration) (gocron.Scheduler, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}

	if _, err := sched.NewJob(
		gocron.DurationJob(cleanupEvery),
		gocron.NewTask(func() {
			sec.Cleanup(time.Now())
		}),
		gocron.WithName("security-cleanup"),
	); err != nil {
		return nil, err
	}

	if _, err := sched.NewJob(
		gocron.DurationJob(expiryEvery),
		gocron.NewTask(func() {
			n, err := missions.DeactivateExpired(context.Background())
			if err != nil {
				log.Printf("[Scheduler] mission expiry error: %v", err)
				return
			}
			if n > 0 {
				log.Printf("✅ [Scheduler] deactivated %d expired missions", n)
			}
		}),
		gocron.WithName("mission-expiry"),
	); err != nil {
		return nil, err
	}

	sched.Start()
	return sched, nil
}
