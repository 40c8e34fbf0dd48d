package devserver

import (
	"fmt"
	"time"

	"github.com/brianvoe/gofakeit/v7"

	"github.com/agustinboza/CuralisPatientMobile/internal/model"
)

// SeedResult hands tests and the CLI the identities the seed created.
type SeedResult struct {
	Patient         model.User
	PatientPassword string
	Doctors         []model.User
	Procedure       model.Procedure
	FollowUp        model.FollowUp
}

var specialties = []string{
	"Bariatric Surgery",
	"Endocrinology",
	"General Practice",
	"Nutrition",
	"Cardiology",
}

// Seed populates the store with one demo patient, a handful of doctors, an
// active procedure with its required exams and a pending follow-up.
func Seed(store *Store, doctorCount int) (*SeedResult, error) {
	if doctorCount <= 0 {
		doctorCount = 3
	}

	result := &SeedResult{PatientPassword: "curalis-demo"}

	patient, err := store.CreateUser(model.User{
		Role:  model.RolePatient,
		Name:  gofakeit.Name(),
		Email: "demo@curalis.dev",
		Phone: gofakeit.Phone(),
	}, result.PatientPassword)
	if err != nil {
		return nil, fmt.Errorf("seed patient: %w", err)
	}
	result.Patient = *patient

	for i := 0; i < doctorCount; i++ {
		doctor, err := store.CreateUser(model.User{
			Role:      model.RoleDoctor,
			Name:      "Dr. " + gofakeit.Name(),
			Email:     gofakeit.Email(),
			Specialty: specialties[i%len(specialties)],
		}, gofakeit.Password(true, true, true, false, false, 16))
		if err != nil {
			return nil, fmt.Errorf("seed doctor %d: %w", i, err)
		}
		result.Doctors = append(result.Doctors, *doctor)
	}

	due := time.Now().AddDate(0, 0, 14)
	proc := store.AddProcedure(model.Procedure{
		PatientID: patient.ID,
		DoctorID:  result.Doctors[0].ID,
		Name:      "Post-operative follow-up plan",
		Type:      "bariatric",
		Status:    model.ProcedureActive,
		Exams: []model.Exam{
			{Name: "Complete blood count", Status: model.ExamPending, DueDate: &due},
			{Name: "Vitamin B12 panel", Status: model.ExamPending, DueDate: &due},
			{Name: "Abdominal ultrasound", Status: model.ExamPending},
		},
	})
	result.Procedure = *proc

	fu := store.AddFollowUp(model.FollowUp{
		PatientID:    patient.ID,
		ProcedureID:  &proc.ID,
		Status:       model.FollowUpPending,
		ScheduledFor: time.Now().AddDate(0, 0, 7),
	})
	result.FollowUp = *fu

	return result, nil
}
