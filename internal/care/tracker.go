package care

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/agustinboza/CuralisPatientMobile/internal/api"
	"github.com/agustinboza/CuralisPatientMobile/internal/model"
)

var (
	ErrExamNotFound     = errors.New("exam not found")
	ErrNoPendingCheckIn = errors.New("no pending follow-up")
)

// Service is the slice of the API the tracker needs.
type Service interface {
	Procedures(ctx context.Context) ([]model.Procedure, error)
	UpdateExamStatus(ctx context.Context, examID uuid.UUID, status model.ExamStatus) (*model.Exam, error)
	FollowUps(ctx context.Context) ([]model.FollowUp, error)
	SubmitFollowUp(ctx context.Context, id uuid.UUID, req api.SubmitFollowUpRequest) (*model.FollowUp, error)
}

// Tracker holds the patient's procedure/exam view state. Exam status toggles
// are optimistic: the displayed status flips immediately and reverts if the
// server call fails.
type Tracker struct {
	svc Service

	mu         sync.Mutex
	procedures []model.Procedure
}

func NewTracker(svc Service) *Tracker {
	return &Tracker{svc: svc}
}

// Load refreshes the procedure list from the server.
func (t *Tracker) Load(ctx context.Context) error {
	procs, err := t.svc.Procedures(ctx)
	if err != nil {
		return fmt.Errorf("load procedures: %w", err)
	}

	t.mu.Lock()
	t.procedures = procs
	t.mu.Unlock()
	return nil
}

// Procedures returns a copy of the current view state.
func (t *Tracker) Procedures() []model.Procedure {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]model.Procedure, len(t.procedures))
	copy(out, t.procedures)
	return out
}

// ExamStatus reports the currently displayed status for an exam.
func (t *Tracker) ExamStatus(examID uuid.UUID) (model.ExamStatus, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	exam := t.findExamLocked(examID)
	if exam == nil {
		return "", ErrExamNotFound
	}
	return exam.Status, nil
}

// ToggleExam flips an exam's status optimistically. On any server failure
// the displayed status reverts to what it was and the error is returned for
// the caller to surface.
func (t *Tracker) ToggleExam(ctx context.Context, examID uuid.UUID, next model.ExamStatus) error {
	t.mu.Lock()
	exam := t.findExamLocked(examID)
	if exam == nil {
		t.mu.Unlock()
		return ErrExamNotFound
	}
	prev := exam.Status
	exam.Status = next
	t.mu.Unlock()

	updated, err := t.svc.UpdateExamStatus(ctx, examID, next)
	if err != nil {
		t.mu.Lock()
		if e := t.findExamLocked(examID); e != nil {
			e.Status = prev
		}
		t.mu.Unlock()
		return fmt.Errorf("update exam status: %w", err)
	}

	t.mu.Lock()
	if e := t.findExamLocked(examID); e != nil {
		*e = *updated
	}
	t.mu.Unlock()
	return nil
}

// PendingFollowUp returns the earliest follow-up still awaiting submission.
func (t *Tracker) PendingFollowUp(ctx context.Context) (*model.FollowUp, error) {
	fus, err := t.svc.FollowUps(ctx)
	if err != nil {
		return nil, fmt.Errorf("load follow-ups: %w", err)
	}

	var pending []model.FollowUp
	for _, fu := range fus {
		if fu.Status == model.FollowUpPending {
			pending = append(pending, fu)
		}
	}
	if len(pending) == 0 {
		return nil, ErrNoPendingCheckIn
	}

	sort.Slice(pending, func(i, j int) bool {
		return pending[i].ScheduledFor.Before(pending[j].ScheduledFor)
	})
	fu := pending[0]
	return &fu, nil
}

// SubmitFollowUp completes a scheduled health check-in.
func (t *Tracker) SubmitFollowUp(ctx context.Context, id uuid.UUID, req api.SubmitFollowUpRequest) (*model.FollowUp, error) {
	fu, err := t.svc.SubmitFollowUp(ctx, id, req)
	if err != nil {
		return nil, fmt.Errorf("submit follow-up: %w", err)
	}
	return fu, nil
}

func (t *Tracker) findExamLocked(examID uuid.UUID) *model.Exam {
	for pi := range t.procedures {
		for ei := range t.procedures[pi].Exams {
			if t.procedures[pi].Exams[ei].ID == examID {
				return &t.procedures[pi].Exams[ei]
			}
		}
	}
	return nil
}
