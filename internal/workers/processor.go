package workers

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/caretrack/followup-api/internal/queue"
	"github.com/caretrack/followup-api/internal/services/extract"
)

// JobProcessor routes queue messages to the worker that handles each job
// type and owns the ack/nack/retry decisions.
type JobProcessor struct {
	intake   *NoteIntake
	checker  *ScheduleChecker
	jobQueue queue.JobQueue // for re-enqueueing jobs with delays
}

// NewJobProcessor creates a new job processor
func NewJobProcessor(intake *NoteIntake, checker *ScheduleChecker, jobQueue queue.JobQueue) *JobProcessor {
	return &JobProcessor{
		intake:   intake,
		checker:  checker,
		jobQueue: jobQueue,
	}
}

// ProcessJob processes a job based on its type
func (p *JobProcessor) ProcessJob(ctx context.Context, msg *queue.Message) error {
	job := msg.Job

	if job.IsExpired() {
		log.Printf("Job %s expired (NotAfter: %v), dropping", job.ID, job.NotAfter)
		if ackErr := msg.Ack(); ackErr != nil {
			log.Printf("Failed to ack expired job: %v", ackErr)
		}
		return nil
	}

	switch job.Type {
	case queue.JobTypeNoteIntake:
		if err := p.intake.ProcessNoteIntakeJob(ctx, job); err != nil {
			return p.handleJobError(ctx, msg, job, err, "note intake")
		}
		if ackErr := msg.Ack(); ackErr != nil {
			return fmt.Errorf("failed to ack job: %w", ackErr)
		}
		return nil

	case queue.JobTypeScheduleCheck:
		if err := p.checker.ProcessScheduleCheckJob(ctx, job); err != nil {
			return p.handleJobError(ctx, msg, job, err, "schedule check")
		}
		if ackErr := msg.Ack(); ackErr != nil {
			return fmt.Errorf("failed to ack job: %w", ackErr)
		}
		return nil

	default:
		if nackErr := msg.Nack(false); nackErr != nil { // Unknown job type, send to DLQ
			log.Printf("Failed to nack unknown job type: %v", nackErr)
		}
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
}

// handleJobError handles errors from job processing. Quota and rate limit
// errors from the extraction provider are re-enqueued with a delay via
// the delayed exchange; other errors use nack-requeue until the retry
// budget runs out, then go to the DLQ.
func (p *JobProcessor) handleJobError(ctx context.Context, msg *queue.Message, job *queue.Job, err error, jobType string) error {
	if extract.IsQuotaError(err) || extract.IsRateLimitError(err) {
		retryDelay := extract.GetRetryDelay(err, job.RetryCount)
		notBefore := time.Now().Add(retryDelay)

		if !job.CanRetry() {
			log.Printf("%s job %s rate/quota limited after %d retries, sending to DLQ: %v", jobType, job.ID, job.MaxRetries, err)
			if nackErr := msg.Nack(false); nackErr != nil {
				log.Printf("Failed to nack job to DLQ: %v", nackErr)
			}
			return fmt.Errorf("job failed (max retries): %w", err)
		}

		delayed := &queue.Job{
			ID:         job.ID,
			Type:       job.Type,
			NoteID:     job.NoteID,
			StepID:     job.StepID,
			NotBefore:  &notBefore,
			NotAfter:   job.NotAfter,
			Metadata:   job.Metadata,
			CreatedAt:  job.CreatedAt,
			RetryCount: job.RetryCount + 1,
			MaxRetries: job.MaxRetries,
		}

		if ackErr := msg.Ack(); ackErr != nil {
			log.Printf("Failed to ack job before re-enqueue: %v", ackErr)
		}

		if enqueueErr := p.jobQueue.Enqueue(ctx, delayed); enqueueErr != nil {
			log.Printf("Failed to re-enqueue %s job %s with delay: %v", jobType, job.ID, enqueueErr)
			return fmt.Errorf("provider limited, failed to re-enqueue: %w", enqueueErr)
		}

		log.Printf("Provider limited: re-enqueued %s job %s for retry at %v (delay: %v)",
			jobType, job.ID, notBefore, retryDelay)
		return nil
	}

	if job.CanRetry() {
		job.IncrementRetry()
		log.Printf("%s job %s failed (attempt %d/%d): %v, will retry", jobType, job.ID, job.RetryCount, job.MaxRetries, err)
		if nackErr := msg.Nack(true); nackErr != nil {
			log.Printf("Failed to nack job: %v", nackErr)
		}
		return fmt.Errorf("job failed (will retry): %w", err)
	}

	log.Printf("%s job %s failed after %d retries: %v, sending to DLQ", jobType, job.ID, job.MaxRetries, err)
	if nackErr := msg.Nack(false); nackErr != nil {
		log.Printf("Failed to nack job to DLQ: %v", nackErr)
	}
	return fmt.Errorf("job failed (max retries): %w", err)
}
