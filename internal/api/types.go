package api

import (
	"github.com/agustinboza/CuralisPatientMobile/internal/model"
)

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type SignupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Phone    string `json:"phone,omitempty"`
}

type AuthResponse struct {
	Token string     `json:"token"`
	User  model.User `json:"user"`
}

type UpdateProfileRequest struct {
	Name  string `json:"name,omitempty"`
	Phone string `json:"phone,omitempty"`
}

type UpdateExamStatusRequest struct {
	Status model.ExamStatus `json:"status"`
}

type UploadExamResultRequest struct {
	FileName string `json:"file_name"`
	FileURL  string `json:"file_url"`
}

type SubmitFollowUpRequest struct {
	WeightKg      float64 `json:"weight_kg"`
	WellnessScore int     `json:"wellness_score"`
	ProteinGrams  float64 `json:"protein_grams"`
	ExerciseHours float64 `json:"exercise_hours"`
	Notes         string  `json:"notes,omitempty"`
}

type BookAppointmentRequest struct {
	DoctorID      string `json:"doctor_id"`
	StartTime     string `json:"start_time"` // RFC3339
	EndTime       string `json:"end_time"`   // RFC3339
	ProcedureType string `json:"procedure_type,omitempty"`
}

// AvailabilitySummary maps a day-of-month string ("01".."31") to the number
// of open slots, backing the calendar's month dot indicators.
type AvailabilitySummary map[string]int

type AvatarToken struct {
	Token     string `json:"token"`
	ServerURL string `json:"server_url,omitempty"`
}
