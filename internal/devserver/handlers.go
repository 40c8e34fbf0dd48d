package devserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/agustinboza/CuralisPatientMobile/internal/model"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type signupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Phone    string `json:"phone"`
}

type authResponse struct {
	Token string     `json:"token"`
	User  model.User `json:"user"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
		return
	}

	user, err := s.store.Authenticate(req.Email, req.Password)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_credentials", "invalid email or password")
		return
	}

	token, err := s.mintToken(user.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, authResponse{Token: token, User: *user})
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
		return
	}
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "missing_fields", "email and password are required")
		return
	}

	user, err := s.store.CreateUser(model.User{
		Role:  model.RolePatient,
		Name:  req.Name,
		Email: req.Email,
		Phone: req.Phone,
	}, req.Password)
	if err != nil {
		if errors.Is(err, ErrEmailTaken) {
			writeError(w, http.StatusConflict, "email_taken", err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
		return
	}

	token, err := s.mintToken(user.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, authResponse{Token: token, User: *user})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	// Tokens are stateless; logout is client-side. Acknowledge anyway.
	writeJSON(w, http.StatusOK, nil)
}

// Profile and consent

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	user, err := s.store.GetUser(requestUserID(r.Context()))
	if err != nil {
		writeError(w, http.StatusNotFound, "user_not_found", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name  string `json:"name"`
		Phone string `json:"phone"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
		return
	}

	user, err := s.store.UpdateUser(requestUserID(r.Context()), req.Name, req.Phone)
	if err != nil {
		writeError(w, http.StatusNotFound, "user_not_found", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (s *Server) handleSubmitSignature(w http.ResponseWriter, r *http.Request) {
	var sig model.Signature
	if err := json.NewDecoder(r.Body).Decode(&sig); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
		return
	}
	if len(sig.Paths) == 0 || sig.Width <= 0 || sig.Height <= 0 {
		writeError(w, http.StatusBadRequest, "invalid_signature", "paths and canvas dimensions are required")
		return
	}

	consent, err := s.store.SaveSignature(requestUserID(r.Context()), sig)
	if err != nil {
		writeError(w, http.StatusNotFound, "user_not_found", err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, consent)
}

func (s *Server) handleConsent(w http.ResponseWriter, r *http.Request) {
	consent, err := s.store.Consent(requestUserID(r.Context()))
	if err != nil {
		writeError(w, http.StatusNotFound, "user_not_found", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, consent)
}

// Procedures and exams

func (s *Server) handleProcedures(w http.ResponseWriter, r *http.Request) {
	procs := s.store.ProceduresForPatient(requestUserID(r.Context()))
	if procs == nil {
		procs = []model.Procedure{}
	}
	writeJSON(w, http.StatusOK, procs)
}

func (s *Server) handleProcedure(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_procedure_id", "id must be a valid UUID")
		return
	}

	proc, err := s.store.GetProcedure(id)
	if err != nil {
		writeError(w, http.StatusNotFound, "procedure_not_found", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, proc)
}

func (s *Server) handleUpdateExamStatus(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_exam_id", "id must be a valid UUID")
		return
	}

	var req struct {
		Status model.ExamStatus `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
		return
	}
	switch req.Status {
	case model.ExamPending, model.ExamUploaded, model.ExamCompleted:
	default:
		writeError(w, http.StatusBadRequest, "invalid_status", "unknown exam status")
		return
	}

	exam, err := s.store.UpdateExamStatus(id, req.Status)
	if err != nil {
		writeError(w, http.StatusNotFound, "exam_not_found", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, exam)
}

func (s *Server) handleUploadExamResult(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_exam_id", "id must be a valid UUID")
		return
	}

	var req struct {
		FileName string `json:"file_name"`
		FileURL  string `json:"file_url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
		return
	}

	res, err := s.store.AddExamResult(id, req.FileName, req.FileURL)
	if err != nil {
		writeError(w, http.StatusNotFound, "exam_not_found", err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

// Follow-ups

func (s *Server) handleFollowUps(w http.ResponseWriter, r *http.Request) {
	fus := s.store.FollowUpsForPatient(requestUserID(r.Context()))
	if fus == nil {
		fus = []model.FollowUp{}
	}
	writeJSON(w, http.StatusOK, fus)
}

func (s *Server) handleCompleteFollowUp(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_followup_id", "id must be a valid UUID")
		return
	}

	var req struct {
		WeightKg      float64 `json:"weight_kg"`
		WellnessScore int     `json:"wellness_score"`
		ProteinGrams  float64 `json:"protein_grams"`
		ExerciseHours float64 `json:"exercise_hours"`
		Notes         string  `json:"notes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
		return
	}

	fu, err := s.store.CompleteFollowUp(id, req.WeightKg, req.WellnessScore, req.ProteinGrams, req.ExerciseHours, req.Notes)
	if err != nil {
		writeError(w, http.StatusNotFound, "followup_not_found", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, fu)
}

// Appointments and availability

func (s *Server) handleAppointments(w http.ResponseWriter, r *http.Request) {
	appts := s.store.AppointmentsForPatient(requestUserID(r.Context()))
	if appts == nil {
		appts = []model.Appointment{}
	}
	writeJSON(w, http.StatusOK, appts)
}

func (s *Server) handleBookAppointment(w http.ResponseWriter, r *http.Request) {
	var req struct {
		DoctorID      string `json:"doctor_id"`
		StartTime     string `json:"start_time"`
		EndTime       string `json:"end_time"`
		ProcedureType string `json:"procedure_type"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
		return
	}

	doctorID, err := uuid.Parse(req.DoctorID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_doctor_id", "doctor_id must be a valid UUID")
		return
	}
	start, err := time.Parse(time.RFC3339, req.StartTime)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_start_time", "start_time must be RFC3339")
		return
	}
	end, err := time.Parse(time.RFC3339, req.EndTime)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_end_time", "end_time must be RFC3339")
		return
	}

	appt, err := s.store.BookAppointment(requestUserID(r.Context()), doctorID, start.UTC(), end.UTC(), req.ProcedureType)
	if err != nil {
		switch {
		case errors.Is(err, ErrSlotTaken):
			writeError(w, http.StatusConflict, "slot_taken", err.Error())
		case errors.Is(err, ErrSlotUnknown):
			writeError(w, http.StatusConflict, "slot_not_bookable", err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
		}
		return
	}

	writeJSON(w, http.StatusCreated, appt)
}

func (s *Server) handleAppointmentStatus(next model.AppointmentStatus) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
			return
		}

		appt, err := s.store.SetAppointmentStatus(id, next)
		if err != nil {
			writeError(w, http.StatusNotFound, "appointment_not_found", err.Error())
			return
		}
		writeJSON(w, http.StatusOK, appt)
	}
}

func (s *Server) handleAvailability(w http.ResponseWriter, r *http.Request) {
	doctorID, err := uuid.Parse(r.URL.Query().Get("doctor_id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_doctor_id", "doctor_id must be a valid UUID")
		return
	}
	date, err := time.Parse("2006-01-02", r.URL.Query().Get("date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_date", "date must be YYYY-MM-DD")
		return
	}

	slots := s.store.Availability(doctorID, date)
	if slots == nil {
		slots = []model.AvailabilitySlot{}
	}
	writeJSON(w, http.StatusOK, slots)
}

func (s *Server) handleAvailabilitySummary(w http.ResponseWriter, r *http.Request) {
	doctorID, err := uuid.Parse(r.URL.Query().Get("doctor_id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_doctor_id", "doctor_id must be a valid UUID")
		return
	}
	month, err := time.Parse("2006-01", r.URL.Query().Get("month"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_month", "month must be YYYY-MM")
		return
	}

	summary := s.store.AvailabilitySummary(doctorID, month.Year(), month.Month())
	writeJSON(w, http.StatusOK, summary)
}

// Avatar token proxy

func (s *Server) handleAvatarToken(w http.ResponseWriter, r *http.Request) {
	if !s.avatarTokens {
		writeError(w, http.StatusServiceUnavailable, "avatar_unavailable", "no avatar session available")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"token":      uuid.NewString(),
		"server_url": "wss://avatar.invalid/session",
	})
}

// Health

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "env": "dev"})
}
