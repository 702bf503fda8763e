package workers

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/caretrack/followup-api/internal/database"
	"github.com/caretrack/followup-api/internal/models"
	"github.com/caretrack/followup-api/internal/queue"
	"github.com/caretrack/followup-api/internal/services/extract"
	"github.com/google/uuid"
)

const (
	// DefaultPlanDurationDays is used when extraction omits a duration
	DefaultPlanDurationDays = 7
	// ScheduleCheckInterval is how far ahead each schedule check is armed
	ScheduleCheckInterval = 24 * time.Hour
)

// NoteIntake processes note intake jobs: it supersedes the patient's
// earlier pending steps, extracts obligations from the new note, and
// materializes them as actionable steps.
type NoteIntake struct {
	extractor extract.Extractor
	noteRepo  database.NoteRepositoryInterface
	stepRepo  database.StepRepositoryInterface
	jobQueue  queue.JobQueue // for arming the first schedule check per plan step
}

// NewNoteIntake creates a new note intake worker
func NewNoteIntake(
	extractor extract.Extractor,
	noteRepo database.NoteRepositoryInterface,
	stepRepo database.StepRepositoryInterface,
	jobQueue queue.JobQueue,
) *NoteIntake {
	return &NoteIntake{
		extractor: extractor,
		noteRepo:  noteRepo,
		stepRepo:  stepRepo,
		jobQueue:  jobQueue,
	}
}

// ProcessNoteIntakeJob processes a note intake job
func (w *NoteIntake) ProcessNoteIntakeJob(ctx context.Context, job *queue.Job) error {
	if job.NoteID == nil {
		return fmt.Errorf("note_id is required for note intake job")
	}

	note, err := w.noteRepo.GetByID(ctx, *job.NoteID)
	if err != nil {
		return fmt.Errorf("failed to get note: %w", err)
	}

	// The newest note supersedes earlier guidance: cancel every pending
	// step from the patient's other notes before creating new ones.
	cancelled, err := w.stepRepo.CancelPendingForPatient(ctx, note.PatientID, note.ID)
	if err != nil {
		return fmt.Errorf("failed to cancel superseded steps: %w", err)
	}
	if cancelled > 0 {
		log.Printf("Note %s superseded %d pending steps for patient %s", note.ID, cancelled, note.PatientID)
	}

	extraction, err := w.extractor.Extract(ctx, note.Text)
	if err != nil {
		// Rate limit and quota errors are worth retrying later; anything
		// else fails soft to zero obligations so the note still lands.
		if extract.IsRateLimitError(err) || extract.IsQuotaError(err) {
			return fmt.Errorf("extraction deferred: %w", err)
		}
		log.Printf("Extraction failed for note %s, creating no steps: %v", note.ID, err)
		extraction = extract.FailedExtraction()
	}

	steps := w.buildSteps(note.ID, extraction)
	if len(steps) == 0 {
		log.Printf("Note %s produced no actionable steps", note.ID)
		return nil
	}

	if err := w.stepRepo.CreateBatch(ctx, steps); err != nil {
		return fmt.Errorf("failed to create steps: %w", err)
	}

	// Arm the recurrence chain: each plan step gets its first schedule
	// check one interval out. Enqueue failures are logged rather than
	// failing the job, since the steps already exist.
	plans := 0
	for _, step := range steps {
		if step.Kind != models.StepKindPlan {
			continue
		}
		plans++
		checkJob := queue.NewScheduleCheckJob(step.ID, time.Now().Add(ScheduleCheckInterval))
		if err := w.jobQueue.Enqueue(ctx, checkJob); err != nil {
			log.Printf("Failed to arm schedule check for step %s: %v", step.ID, err)
		}
	}

	log.Printf("Note %s produced %d steps (%d plans)", note.ID, len(steps), plans)
	return nil
}

// buildSteps converts an extraction into actionable steps. Plan items
// with no stated cadence or duration get the defaults; a plan item whose
// cadence is unrecognized is dropped rather than stored broken.
func (w *NoteIntake) buildSteps(noteID uuid.UUID, extraction *extract.Extraction) []*models.ActionableStep {
	steps := make([]*models.ActionableStep, 0, len(extraction.Checklist)+len(extraction.Plan))

	for _, item := range extraction.Checklist {
		steps = append(steps, &models.ActionableStep{
			ID:          uuid.New(),
			NoteID:      noteID,
			Kind:        models.StepKindChecklist,
			Description: item.Description,
			Status:      models.StepStatusPending,
		})
	}

	for _, item := range extraction.Plan {
		frequency := models.Frequency(strings.ToLower(strings.TrimSpace(item.Frequency)))
		if frequency == "" {
			frequency = models.FrequencyDaily
		}
		duration := item.Duration
		if duration <= 0 {
			duration = DefaultPlanDurationDays
		}

		schedule, err := models.NewSchedule(frequency, duration)
		if err != nil {
			log.Printf("Dropping plan item for note %s: %v", noteID, err)
			continue
		}

		steps = append(steps, &models.ActionableStep{
			ID:          uuid.New(),
			NoteID:      noteID,
			Kind:        models.StepKindPlan,
			Description: item.Description,
			Status:      models.StepStatusPending,
			Schedule:    schedule,
		})
	}

	return steps
}
