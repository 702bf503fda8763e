package queue

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func timePtr(t time.Time) *time.Time {
	return &t
}

func TestNewNoteIntakeJob(t *testing.T) {
	t.Parallel()

	noteID := uuid.New()
	job := NewNoteIntakeJob(noteID)

	if job.ID == uuid.Nil {
		t.Error("Expected job ID to be set")
	}
	if job.Type != JobTypeNoteIntake {
		t.Errorf("Expected job type to be %s, got %s", JobTypeNoteIntake, job.Type)
	}
	if job.NoteID == nil || *job.NoteID != noteID {
		t.Errorf("Expected note ID to be %s, got %v", noteID, job.NoteID)
	}
	if job.NotBefore != nil {
		t.Error("Expected note intake jobs to run immediately")
	}
	if job.MaxRetries != 3 {
		t.Errorf("Expected max retries to be 3, got %d", job.MaxRetries)
	}
}

func TestNewScheduleCheckJob(t *testing.T) {
	t.Parallel()

	stepID := uuid.New()
	runAt := time.Now().Add(24 * time.Hour)
	job := NewScheduleCheckJob(stepID, runAt)

	if job.Type != JobTypeScheduleCheck {
		t.Errorf("Expected job type to be %s, got %s", JobTypeScheduleCheck, job.Type)
	}
	if job.StepID == nil || *job.StepID != stepID {
		t.Errorf("Expected step ID to be %s, got %v", stepID, job.StepID)
	}
	if job.NotBefore == nil || !job.NotBefore.Equal(runAt) {
		t.Errorf("Expected NotBefore %v, got %v", runAt, job.NotBefore)
	}
	if job.ShouldProcess() {
		t.Error("A check armed for tomorrow must not be processable now")
	}
}

func TestJob_ShouldProcess(t *testing.T) {
	t.Parallel()

	now := time.Now()

	tests := []struct {
		name      string
		notBefore *time.Time
		notAfter  *time.Time
		want      bool
	}{
		{name: "no time constraints", want: true},
		{name: "not before in past", notBefore: timePtr(now.Add(-1 * time.Hour)), want: true},
		{name: "not before in future", notBefore: timePtr(now.Add(1 * time.Hour)), want: false},
		{name: "not after in past", notAfter: timePtr(now.Add(-1 * time.Hour)), want: false},
		{name: "not after in future", notAfter: timePtr(now.Add(1 * time.Hour)), want: true},
		{
			name:      "within time window",
			notBefore: timePtr(now.Add(-1 * time.Hour)),
			notAfter:  timePtr(now.Add(1 * time.Hour)),
			want:      true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			job := &Job{
				ID:        uuid.New(),
				Type:      JobTypeScheduleCheck,
				NotBefore: tt.notBefore,
				NotAfter:  tt.notAfter,
			}
			if got := job.ShouldProcess(); got != tt.want {
				t.Errorf("ShouldProcess() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestJob_Retry(t *testing.T) {
	t.Parallel()

	job := NewNoteIntakeJob(uuid.New())

	for i := 0; i < job.MaxRetries; i++ {
		if !job.CanRetry() {
			t.Fatalf("expected retry %d to be allowed", i)
		}
		job.IncrementRetry()
	}
	if job.CanRetry() {
		t.Error("expected retries to be exhausted")
	}
}

func TestJob_IsExpired(t *testing.T) {
	t.Parallel()

	job := NewNoteIntakeJob(uuid.New())
	if job.IsExpired() {
		t.Error("job with no NotAfter must not expire")
	}

	past := time.Now().Add(-time.Minute)
	job.NotAfter = &past
	if !job.IsExpired() {
		t.Error("job with NotAfter in the past must be expired")
	}
}
