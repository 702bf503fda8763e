package workers

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/caretrack/followup-api/internal/database"
	"github.com/caretrack/followup-api/internal/models"
	"github.com/caretrack/followup-api/internal/queue"
)

// ScheduleChecker processes schedule check jobs. Each job evaluates one
// plan step once per interval: a lapsed window completes the step, a day
// without a check-in records a miss, and a still-live step re-arms its
// own next check. The chain ends only when the step leaves pending.
type ScheduleChecker struct {
	stepRepo database.StepRepositoryInterface
	jobQueue queue.JobQueue
}

// NewScheduleChecker creates a new schedule checker
func NewScheduleChecker(stepRepo database.StepRepositoryInterface, jobQueue queue.JobQueue) *ScheduleChecker {
	return &ScheduleChecker{
		stepRepo: stepRepo,
		jobQueue: jobQueue,
	}
}

// ProcessScheduleCheckJob processes a schedule check job
func (c *ScheduleChecker) ProcessScheduleCheckJob(ctx context.Context, job *queue.Job) error {
	if job.StepID == nil {
		return fmt.Errorf("step_id is required for schedule check job")
	}

	now := time.Now()
	rearm := false

	_, err := c.stepRepo.Mutate(ctx, *job.StepID, func(step *models.ActionableStep) error {
		if step.IsResolved() {
			// Completed or cancelled since the check was armed. Nothing
			// to evaluate, and the chain ends here.
			log.Printf("Schedule check for step %s: already %s, chain ends", step.ID, step.Status)
			return nil
		}

		if step.Schedule == nil {
			// A pending step without a schedule is a checklist item (or a
			// malformed plan); nothing recurs, so nothing to check.
			log.Printf("Schedule check for step %s: no schedule, chain ends", step.ID)
			return nil
		}

		if step.Schedule.Lapsed(now) {
			step.Status = models.StepStatusCompleted
			log.Printf("Schedule check for step %s: window lapsed, marking completed", step.ID)
			return nil
		}

		if !step.Schedule.CheckedInOn(now) && !step.Schedule.MissedOn(now) {
			step.Schedule = step.Schedule.RecordMiss(now)
			log.Printf("Schedule check for step %s: no check-in today, recorded miss %d", step.ID, len(step.Schedule.Missed))
		}

		rearm = true
		return nil
	})
	if err != nil {
		// The step may have been created by a transaction that never
		// committed, or removed out of band. Either way there is nothing
		// to check and nothing to re-arm.
		if errors.Is(err, sql.ErrNoRows) {
			log.Printf("Schedule check for step %s: step does not exist, chain ends", *job.StepID)
			return nil
		}
		return fmt.Errorf("failed to evaluate step %s: %w", *job.StepID, err)
	}

	if !rearm {
		return nil
	}

	next := queue.NewScheduleCheckJob(*job.StepID, now.Add(ScheduleCheckInterval))
	if err := c.jobQueue.Enqueue(ctx, next); err != nil {
		// Failing here keeps the message unacked so the check is retried;
		// the miss append above is guarded against double-counting.
		return fmt.Errorf("failed to re-arm schedule check for step %s: %w", *job.StepID, err)
	}

	return nil
}
