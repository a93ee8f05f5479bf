package claim

import (
	"context"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

// ExpiryJob periodically expires overdue claims. The sweep is the single
// authority for the expired transition; client-side countdowns only predict
// it. Cadence comes from EXPIRY_SWEEP_SCHEDULE (default every 30s).
type ExpiryJob struct {
	svc       *Service
	schedule  string
	scheduler *cron.Cron
}

func NewExpiryJob(svc *Service, schedule string) *ExpiryJob {
	return &ExpiryJob{
		svc:       svc,
		schedule:  schedule,
		scheduler: cron.New(),
	}
}

// SetupAndStart schedules the sweep and starts the scheduler.
func (j *ExpiryJob) SetupAndStart() error {
	if _, err := j.scheduler.AddFunc(j.schedule, j.run); err != nil {
		return err
	}

	log.Printf("claim: expiry sweep scheduled spec=%q", j.schedule)
	j.scheduler.Start()
	return nil
}

func (j *ExpiryJob) run() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	n, err := j.svc.ExpireOverdue(ctx)
	if err != nil {
		log.Printf("claim: expiry sweep failed: %v", err)
		return
	}
	if n > 0 {
		log.Printf("claim: expiry sweep expired %d claim(s)", n)
	}
}

// Stop waits for a running sweep to finish and halts the scheduler.
func (j *ExpiryJob) Stop() {
	stopCtx := j.scheduler.Stop()
	select {
	case <-stopCtx.Done():
	case <-time.After(5 * time.Second):
		log.Println("claim: expiry sweep did not stop in time")
	}
}
