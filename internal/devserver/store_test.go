package devserver

import (
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agustinboza/CuralisPatientMobile/internal/model"
)

func TestConcurrentBookingSingleWinner(t *testing.T) {
	store := NewStore()
	doctorID := uuid.New()
	start := time.Date(2024, 6, 3, 9, 30, 0, 0, time.UTC)
	end := start.Add(30 * time.Minute)

	const attempts = 16
	var wg sync.WaitGroup
	results := make(chan error, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.BookAppointment(uuid.New(), doctorID, start, end, "")
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	won := 0
	for err := range results {
		if err == nil {
			won++
		} else {
			assert.ErrorIs(t, err, ErrSlotTaken)
		}
	}
	assert.Equal(t, 1, won)
}

func TestSlotGridValidation(t *testing.T) {
	store := NewStore()
	doctorID := uuid.New()
	monday := time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)

	cases := []struct {
		name  string
		start time.Time
		end   time.Time
		want  error
	}{
		{"first slot", monday.Add(9 * time.Hour), monday.Add(9*time.Hour + 30*time.Minute), nil},
		{"last slot", monday.Add(11*time.Hour + 30*time.Minute), monday.Add(12 * time.Hour), nil},
		{"off grid", monday.Add(9*time.Hour + 15*time.Minute), monday.Add(9*time.Hour + 45*time.Minute), ErrSlotUnknown},
		{"after hours", monday.Add(12 * time.Hour), monday.Add(12*time.Hour + 30*time.Minute), ErrSlotUnknown},
		{"wrong length", monday.Add(10 * time.Hour), monday.Add(11 * time.Hour), ErrSlotUnknown},
		{"weekend", monday.AddDate(0, 0, -2).Add(9 * time.Hour), monday.AddDate(0, 0, -2).Add(9*time.Hour + 30*time.Minute), ErrSlotUnknown},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := store.BookAppointment(uuid.New(), doctorID, tc.start, tc.end, "")
			if tc.want == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tc.want)
			}
		})
	}
}

func TestCancelReleasesSlotKey(t *testing.T) {
	store := NewStore()
	doctorID := uuid.New()
	start := time.Date(2024, 6, 3, 10, 0, 0, 0, time.UTC)

	appt, err := store.BookAppointment(uuid.New(), doctorID, start, start.Add(30*time.Minute), "")
	require.NoError(t, err)
	require.Len(t, store.Availability(doctorID, start), 5)

	_, err = store.SetAppointmentStatus(appt.ID, model.AppointmentCancelled)
	require.NoError(t, err)
	assert.Len(t, store.Availability(doctorID, start), 6)
}
