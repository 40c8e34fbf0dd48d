package booking

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agustinboza/CuralisPatientMobile/internal/api"
	"github.com/agustinboza/CuralisPatientMobile/internal/model"
)

type fakeService struct {
	slots   map[string][]model.AvailabilitySlot
	summary api.AvailabilitySummary

	bookErr   error
	booked    []api.BookAppointmentRequest
	dayLoads  int
	monthLoad int
}

func (f *fakeService) Availability(_ context.Context, _ uuid.UUID, date string) ([]model.AvailabilitySlot, error) {
	f.dayLoads++
	return f.slots[date], nil
}

func (f *fakeService) AvailabilityMonth(_ context.Context, _ uuid.UUID, _ string) (api.AvailabilitySummary, error) {
	f.monthLoad++
	return f.summary, nil
}

func (f *fakeService) BookAppointment(_ context.Context, req api.BookAppointmentRequest) (*model.Appointment, error) {
	if f.bookErr != nil {
		return nil, f.bookErr
	}
	f.booked = append(f.booked, req)
	start, _ := time.Parse(time.RFC3339, req.StartTime)
	return &model.Appointment{ID: uuid.New(), StartTime: start, Status: model.AppointmentScheduled}, nil
}

func slotAt(t *testing.T, value string) model.AvailabilitySlot {
	t.Helper()
	start, err := time.Parse(time.RFC3339, value)
	require.NoError(t, err)
	return model.AvailabilitySlot{StartTime: start, EndTime: start.Add(30 * time.Minute)}
}

func newTestCalendar(t *testing.T) (*Calendar, *fakeService) {
	t.Helper()
	svc := &fakeService{
		slots: map[string][]model.AvailabilitySlot{
			"2024-06-03": {
				slotAt(t, "2024-06-03T09:00:00Z"),
				slotAt(t, "2024-06-03T09:30:00Z"),
				slotAt(t, "2024-06-03T10:00:00Z"),
			},
		},
		summary: api.AvailabilitySummary{"03": 3},
	}
	return NewCalendar(svc, uuid.New()), svc
}

func TestBookRemovesSlotAndReconciles(t *testing.T) {
	cal, svc := newTestCalendar(t)
	ctx := context.Background()

	slots, err := cal.LoadDay(ctx, "2024-06-03")
	require.NoError(t, err)
	require.Len(t, slots, 3)
	_, err = cal.LoadMonth(ctx, "2024-06")
	require.NoError(t, err)

	// After booking, the server's view of the day no longer has the slot.
	svc.slots["2024-06-03"] = slots[1:]

	appt, err := cal.Book(ctx, slots[0], "bariatric")
	require.NoError(t, err)
	require.NotNil(t, appt)
	require.Len(t, svc.booked, 1)
	assert.Equal(t, "2024-06-03T09:00:00Z", svc.booked[0].StartTime)

	assert.Len(t, cal.DaySlots("2024-06-03"), 2)

	// Reconciliation re-fetched both views: one initial + one reconcile each.
	assert.Equal(t, 2, svc.dayLoads)
	assert.Equal(t, 2, svc.monthLoad)
}

func TestBookRollsBackOnFailure(t *testing.T) {
	cal, svc := newTestCalendar(t)
	ctx := context.Background()

	slots, err := cal.LoadDay(ctx, "2024-06-03")
	require.NoError(t, err)
	_, err = cal.LoadMonth(ctx, "2024-06")
	require.NoError(t, err)

	svc.bookErr = api.ErrConflict

	_, err = cal.Book(ctx, slots[0], "")
	require.ErrorIs(t, err, api.ErrConflict)

	// Day list and month count are both back where they started, in order.
	restored := cal.DaySlots("2024-06-03")
	require.Len(t, restored, 3)
	assert.True(t, restored[0].StartTime.Equal(slots[0].StartTime))

	summary, ok := cal.MonthSummary("2024-06")
	require.True(t, ok)
	assert.Equal(t, 3, summary["03"])

	// No reconcile fetch happened on the failure path.
	assert.Equal(t, 1, svc.dayLoads)
	assert.Equal(t, 1, svc.monthLoad)
}

func TestBookRollsBackOnTransportError(t *testing.T) {
	cal, svc := newTestCalendar(t)
	ctx := context.Background()

	slots, err := cal.LoadDay(ctx, "2024-06-03")
	require.NoError(t, err)

	svc.bookErr = api.ErrNetwork

	_, err = cal.Book(ctx, slots[1], "")
	require.ErrorIs(t, err, api.ErrNetwork)
	assert.Len(t, cal.DaySlots("2024-06-03"), 3)
}

func TestMonthCountNeverGoesNegative(t *testing.T) {
	cal, svc := newTestCalendar(t)
	ctx := context.Background()

	svc.summary = api.AvailabilitySummary{"03": 0}
	_, err := cal.LoadMonth(ctx, "2024-06")
	require.NoError(t, err)

	slot := slotAt(t, "2024-06-03T09:00:00Z")
	cal.removeSlot("2024-06-03", "2024-06", slot)

	summary, ok := cal.MonthSummary("2024-06")
	require.True(t, ok)
	assert.Equal(t, 0, summary["03"])
}

func TestRestoreSlotIsIdempotent(t *testing.T) {
	cal, _ := newTestCalendar(t)
	ctx := context.Background()

	slots, err := cal.LoadDay(ctx, "2024-06-03")
	require.NoError(t, err)

	slot := slots[0]
	cal.restoreSlot("2024-06-03", "2024-06", slot)
	cal.restoreSlot("2024-06-03", "2024-06", slot)

	assert.Len(t, cal.DaySlots("2024-06-03"), 3)
}
