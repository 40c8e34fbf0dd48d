package devserver

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/agustinboza/CuralisPatientMobile/internal/model"
)

var (
	ErrUserNotFound        = errors.New("user not found")
	ErrEmailTaken          = errors.New("email already registered")
	ErrBadCredentials      = errors.New("invalid email or password")
	ErrProcedureNotFound   = errors.New("procedure not found")
	ErrExamNotFound        = errors.New("exam not found")
	ErrFollowUpNotFound    = errors.New("follow-up not found")
	ErrAppointmentNotFound = errors.New("appointment not found")
	ErrSlotTaken           = errors.New("slot already has an appointment")
	ErrSlotUnknown         = errors.New("slot is not bookable")
)

type userRecord struct {
	user      model.User
	password  string
	signature *model.Signature
}

// Store is the simulator's in-memory state. One mutex guards everything;
// booking re-checks the slot inside the critical section so concurrent
// requests for the same slot cannot both succeed.
type Store struct {
	mu sync.Mutex

	users        map[uuid.UUID]*userRecord
	byEmail      map[string]uuid.UUID
	doctors      []uuid.UUID
	procedures   map[uuid.UUID]*model.Procedure
	followUps    map[uuid.UUID]*model.FollowUp
	appointments map[uuid.UUID]*model.Appointment
	bookedSlots  map[string]uuid.UUID // doctorID|start → appointment id
}

func NewStore() *Store {
	return &Store{
		users:        make(map[uuid.UUID]*userRecord),
		byEmail:      make(map[string]uuid.UUID),
		procedures:   make(map[uuid.UUID]*model.Procedure),
		followUps:    make(map[uuid.UUID]*model.FollowUp),
		appointments: make(map[uuid.UUID]*model.Appointment),
		bookedSlots:  make(map[string]uuid.UUID),
	}
}

func slotKey(doctorID uuid.UUID, start time.Time) string {
	return fmt.Sprintf("%s|%s", doctorID, start.UTC().Format(time.RFC3339))
}

// Users

func (s *Store) CreateUser(u model.User, password string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.byEmail[u.Email]; taken {
		return nil, ErrEmailTaken
	}

	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	now := time.Now()
	u.CreatedAt = now
	u.UpdatedAt = now

	s.users[u.ID] = &userRecord{user: u, password: password}
	s.byEmail[u.Email] = u.ID
	if u.Role == model.RoleDoctor {
		s.doctors = append(s.doctors, u.ID)
	}

	out := u
	return &out, nil
}

func (s *Store) Authenticate(email, password string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byEmail[email]
	if !ok {
		return nil, ErrBadCredentials
	}
	rec := s.users[id]
	if rec.password != password {
		return nil, ErrBadCredentials
	}
	out := rec.user
	return &out, nil
}

func (s *Store) GetUser(id uuid.UUID) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	out := rec.user
	return &out, nil
}

func (s *Store) UpdateUser(id uuid.UUID, name, phone string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	if name != "" {
		rec.user.Name = name
	}
	if phone != "" {
		rec.user.Phone = phone
	}
	rec.user.UpdatedAt = time.Now()

	out := rec.user
	return &out, nil
}

// Consent

func (s *Store) SaveSignature(userID uuid.UUID, sig model.Signature) (*model.ConsentStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.users[userID]
	if !ok {
		return nil, ErrUserNotFound
	}

	rec.signature = &sig
	rec.user.Consent.SignatureDone = true
	rec.user.Consent.Complete = rec.user.Consent.SignatureDone && rec.user.Consent.EmailVerified
	rec.user.UpdatedAt = time.Now()

	out := rec.user.Consent
	return &out, nil
}

func (s *Store) Consent(userID uuid.UUID) (*model.ConsentStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.users[userID]
	if !ok {
		return nil, ErrUserNotFound
	}
	out := rec.user.Consent
	return &out, nil
}

// Procedures and exams

func (s *Store) AddProcedure(p model.Procedure) *model.Procedure {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	p.CreatedAt = time.Now()
	for i := range p.Exams {
		if p.Exams[i].ID == uuid.Nil {
			p.Exams[i].ID = uuid.New()
		}
		p.Exams[i].ProcedureID = p.ID
	}

	cp := p
	s.procedures[p.ID] = &cp
	out := p
	return &out
}

func (s *Store) ProceduresForPatient(patientID uuid.UUID) []model.Procedure {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []model.Procedure
	for _, p := range s.procedures {
		if p.PatientID == patientID {
			out = append(out, *p)
		}
	}
	return out
}

func (s *Store) GetProcedure(id uuid.UUID) (*model.Procedure, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.procedures[id]
	if !ok {
		return nil, ErrProcedureNotFound
	}
	out := *p
	return &out, nil
}

func (s *Store) UpdateExamStatus(examID uuid.UUID, status model.ExamStatus) (*model.Exam, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range s.procedures {
		for i := range p.Exams {
			if p.Exams[i].ID == examID {
				p.Exams[i].Status = status
				out := p.Exams[i]
				return &out, nil
			}
		}
	}
	return nil, ErrExamNotFound
}

func (s *Store) AddExamResult(examID uuid.UUID, fileName, fileURL string) (*model.ExamResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range s.procedures {
		for i := range p.Exams {
			if p.Exams[i].ID == examID {
				res := model.ExamResult{
					ID:         uuid.New(),
					ExamID:     examID,
					FileName:   fileName,
					FileURL:    fileURL,
					UploadedAt: time.Now(),
				}
				p.Exams[i].Results = append(p.Exams[i].Results, res)
				if p.Exams[i].Status == model.ExamPending {
					p.Exams[i].Status = model.ExamUploaded
				}
				return &res, nil
			}
		}
	}
	return nil, ErrExamNotFound
}

// Follow-ups

func (s *Store) AddFollowUp(fu model.FollowUp) *model.FollowUp {
	s.mu.Lock()
	defer s.mu.Unlock()

	if fu.ID == uuid.Nil {
		fu.ID = uuid.New()
	}
	cp := fu
	s.followUps[fu.ID] = &cp
	out := fu
	return &out
}

func (s *Store) FollowUpsForPatient(patientID uuid.UUID) []model.FollowUp {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []model.FollowUp
	for _, fu := range s.followUps {
		if fu.PatientID == patientID {
			out = append(out, *fu)
		}
	}
	return out
}

func (s *Store) CompleteFollowUp(id uuid.UUID, weight float64, wellness int, protein, exercise float64, notes string) (*model.FollowUp, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	fu, ok := s.followUps[id]
	if !ok {
		return nil, ErrFollowUpNotFound
	}

	now := time.Now()
	fu.Status = model.FollowUpCompleted
	fu.WeightKg = weight
	fu.WellnessScore = wellness
	fu.ProteinGrams = protein
	fu.ExerciseHours = exercise
	fu.Notes = notes
	fu.CompletedAt = &now

	out := *fu
	return &out, nil
}

// Appointments and availability

// BookAppointment reserves a slot. The re-check of bookedSlots happens under
// the store lock, which is this single-instance simulator's version of the
// per-slot critical section.
func (s *Store) BookAppointment(patientID, doctorID uuid.UUID, start, end time.Time, procedureType string) (*model.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.slotExistsLocked(doctorID, start, end) {
		return nil, ErrSlotUnknown
	}

	key := slotKey(doctorID, start)
	if _, taken := s.bookedSlots[key]; taken {
		return nil, ErrSlotTaken
	}

	appt := &model.Appointment{
		ID:            uuid.New(),
		PatientID:     patientID,
		DoctorID:      doctorID,
		ProcedureType: procedureType,
		StartTime:     start,
		EndTime:       end,
		Status:        model.AppointmentScheduled,
		CreatedAt:     time.Now(),
	}
	s.appointments[appt.ID] = appt
	s.bookedSlots[key] = appt.ID

	out := *appt
	return &out, nil
}

func (s *Store) AppointmentsForPatient(patientID uuid.UUID) []model.Appointment {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []model.Appointment
	for _, a := range s.appointments {
		if a.PatientID == patientID {
			out = append(out, *a)
		}
	}
	return out
}

func (s *Store) GetAppointment(id uuid.UUID) (*model.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.appointments[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	out := *a
	return &out, nil
}

func (s *Store) SetAppointmentStatus(id uuid.UUID, status model.AppointmentStatus) (*model.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.appointments[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	a.Status = status
	if status == model.AppointmentCancelled {
		delete(s.bookedSlots, slotKey(a.DoctorID, a.StartTime))
	}

	out := *a
	return &out, nil
}

// Availability returns the free 30-minute business-hour slots for one
// doctor on one day. Slots are generated, not stored: weekdays 09:00-12:00,
// minus whatever is already booked.
func (s *Store) Availability(doctorID uuid.UUID, date time.Time) []model.AvailabilitySlot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.availabilityLocked(doctorID, date)
}

// AvailabilitySummary counts free slots per day of the given month.
func (s *Store) AvailabilitySummary(doctorID uuid.UUID, year int, month time.Month) map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]int)
	day := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	for day.Month() == month {
		if free := len(s.availabilityLocked(doctorID, day)); free > 0 {
			out[fmt.Sprintf("%02d", day.Day())] = free
		}
		day = day.AddDate(0, 0, 1)
	}
	return out
}

func (s *Store) availabilityLocked(doctorID uuid.UUID, date time.Time) []model.AvailabilitySlot {
	if wd := date.Weekday(); wd == time.Saturday || wd == time.Sunday {
		return nil
	}

	var out []model.AvailabilitySlot
	start := time.Date(date.Year(), date.Month(), date.Day(), 9, 0, 0, 0, time.UTC)
	for i := 0; i < 6; i++ {
		slotStart := start.Add(time.Duration(i) * 30 * time.Minute)
		if _, taken := s.bookedSlots[slotKey(doctorID, slotStart)]; taken {
			continue
		}
		out = append(out, model.AvailabilitySlot{
			DoctorID:  doctorID,
			StartTime: slotStart,
			EndTime:   slotStart.Add(30 * time.Minute),
		})
	}
	return out
}

func (s *Store) slotExistsLocked(doctorID uuid.UUID, start, end time.Time) bool {
	if wd := start.Weekday(); wd == time.Saturday || wd == time.Sunday {
		return false
	}
	if end.Sub(start) != 30*time.Minute {
		return false
	}
	dayStart := time.Date(start.Year(), start.Month(), start.Day(), 9, 0, 0, 0, time.UTC)
	offset := start.Sub(dayStart)
	if offset < 0 || offset >= 3*time.Hour {
		return false
	}
	return offset%(30*time.Minute) == 0
}

// Doctors lists the seeded doctor users.
func (s *Store) Doctors() []model.User {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []model.User
	for _, id := range s.doctors {
		out = append(out, s.users[id].user)
	}
	return out
}
