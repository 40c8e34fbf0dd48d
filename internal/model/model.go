package model

import (
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RolePatient Role = "patient"
	RoleDoctor  Role = "doctor"
)

type ProcedureStatus string

const (
	ProcedureActive    ProcedureStatus = "active"
	ProcedureCompleted ProcedureStatus = "completed"
	ProcedureCancelled ProcedureStatus = "cancelled"
)

type ExamStatus string

const (
	ExamPending   ExamStatus = "pending"
	ExamUploaded  ExamStatus = "uploaded"
	ExamCompleted ExamStatus = "completed"
)

type FollowUpStatus string

const (
	FollowUpPending   FollowUpStatus = "pending"
	FollowUpCompleted FollowUpStatus = "completed"
)

type AppointmentStatus string

const (
	AppointmentScheduled AppointmentStatus = "scheduled"
	AppointmentCheckedIn AppointmentStatus = "checked-in"
	AppointmentCompleted AppointmentStatus = "completed"
	AppointmentCancelled AppointmentStatus = "cancelled"
)

// ConsentStatus tracks how far a patient has progressed through onboarding
// consent. Complete implies both the signature and email verification.
type ConsentStatus struct {
	SignatureDone bool `json:"signature_done"`
	EmailVerified bool `json:"email_verified"`
	Complete      bool `json:"complete"`
}

type User struct {
	ID        uuid.UUID     `json:"id"`
	Role      Role          `json:"role"`
	Name      string        `json:"name"`
	Email     string        `json:"email"`
	Phone     string        `json:"phone,omitempty"`
	BirthDate *time.Time    `json:"birth_date,omitempty"`
	Specialty string        `json:"specialty,omitempty"` // doctors only
	Consent   ConsentStatus `json:"consent"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// ExamResult is an uploaded file reference plus whatever structured values
// the server's extraction pipeline pulled out of it.
type ExamResult struct {
	ID         uuid.UUID         `json:"id"`
	ExamID     uuid.UUID         `json:"exam_id"`
	FileURL    string            `json:"file_url"`
	FileName   string            `json:"file_name,omitempty"`
	Extracted  map[string]string `json:"extracted,omitempty"`
	UploadedAt time.Time         `json:"uploaded_at"`
}

type Exam struct {
	ID          uuid.UUID    `json:"id"`
	ProcedureID uuid.UUID    `json:"procedure_id"`
	Name        string       `json:"name"`
	Status      ExamStatus   `json:"status"`
	DueDate     *time.Time   `json:"due_date,omitempty"`
	Results     []ExamResult `json:"results,omitempty"`
}

// Procedure is a treatment plan assigned to a patient grouping its required
// exams. Exams keep server order.
type Procedure struct {
	ID        uuid.UUID       `json:"id"`
	PatientID uuid.UUID       `json:"patient_id"`
	DoctorID  uuid.UUID       `json:"doctor_id"`
	Name      string          `json:"name"`
	Type      string          `json:"type"`
	Status    ProcedureStatus `json:"status"`
	Exams     []Exam          `json:"exams"`
	CreatedAt time.Time       `json:"created_at"`
}

type FollowUp struct {
	ID            uuid.UUID      `json:"id"`
	PatientID     uuid.UUID      `json:"patient_id"`
	ProcedureID   *uuid.UUID     `json:"procedure_id,omitempty"`
	Status        FollowUpStatus `json:"status"`
	ScheduledFor  time.Time      `json:"scheduled_for"`
	WeightKg      float64        `json:"weight_kg,omitempty"`
	WellnessScore int            `json:"wellness_score,omitempty"` // 1..10
	ProteinGrams  float64        `json:"protein_grams,omitempty"`
	ExerciseHours float64        `json:"exercise_hours,omitempty"`
	Notes         string         `json:"notes,omitempty"`
	CompletedAt   *time.Time     `json:"completed_at,omitempty"`
}

type Appointment struct {
	ID            uuid.UUID         `json:"id"`
	PatientID     uuid.UUID         `json:"patient_id"`
	DoctorID      uuid.UUID         `json:"doctor_id"`
	ProcedureType string            `json:"procedure_type,omitempty"`
	StartTime     time.Time         `json:"start_time"`
	EndTime       time.Time         `json:"end_time"`
	Status        AppointmentStatus `json:"status"`
	CreatedAt     time.Time         `json:"created_at"`
}

// AvailabilitySlot is a candidate bookable window. Slots are never persisted
// client-side; they only live in the booking calendar's view state.
type AvailabilitySlot struct {
	DoctorID  uuid.UUID `json:"doctor_id"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
}

// Signature is a client-captured set of pen-stroke path strings in SVG path
// syntax, plus the canvas dimensions they were drawn on.
type Signature struct {
	Paths      []string  `json:"paths"`
	Width      int       `json:"width"`
	Height     int       `json:"height"`
	CapturedAt time.Time `json:"captured_at"`
}
