package devserver

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agustinboza/CuralisPatientMobile/internal/api"
	"github.com/agustinboza/CuralisPatientMobile/internal/booking"
	"github.com/agustinboza/CuralisPatientMobile/internal/care"
	"github.com/agustinboza/CuralisPatientMobile/internal/model"
)

type testEnv struct {
	srv    *httptest.Server
	server *Server
	seed   *SeedResult
	client *api.Client
	token  string
}

// newTestEnv boots the simulator, seeds it and logs the demo patient in
// through the real client.
func newTestEnv(t *testing.T, opts ...Option) *testEnv {
	t.Helper()

	store := NewStore()
	seed, err := Seed(store, 2)
	require.NoError(t, err)

	server := New(store, opts...)
	srv := httptest.NewServer(server.Handler())
	t.Cleanup(srv.Close)

	env := &testEnv{srv: srv, server: server, seed: seed}
	env.client = api.NewClient(srv.URL,
		api.WithTokenSource(api.TokenFunc(func() string { return env.token })),
	)

	resp, err := env.client.Login(context.Background(), seed.Patient.Email, seed.PatientPassword)
	require.NoError(t, err)
	env.token = resp.Token
	return env
}

func TestLoginAndProfile(t *testing.T) {
	env := newTestEnv(t)

	user, err := env.client.Profile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, env.seed.Patient.Email, user.Email)
	assert.Equal(t, model.RolePatient, user.Role)
	assert.False(t, user.Consent.Complete)
}

func TestLoginBadCredentials(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.client.Login(context.Background(), env.seed.Patient.Email, "wrong")
	assert.ErrorIs(t, err, api.ErrAPIRejected)
}

func TestSignupDuplicateEmailConflicts(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.client.Signup(context.Background(), api.SignupRequest{
		Name:     "Someone Else",
		Email:    env.seed.Patient.Email,
		Password: "pw",
	})
	assert.ErrorIs(t, err, api.ErrConflict)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	env := newTestEnv(t)
	anon := api.NewClient(env.srv.URL)

	_, err := anon.Profile(context.Background())
	assert.ErrorIs(t, err, api.ErrUnauthorized)
}

func TestUpdateProfile(t *testing.T) {
	env := newTestEnv(t)

	user, err := env.client.UpdateProfile(context.Background(), api.UpdateProfileRequest{Phone: "+34 600 000 000"})
	require.NoError(t, err)
	assert.Equal(t, "+34 600 000 000", user.Phone)
}

func TestSignatureFlowUpdatesConsent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	status, err := env.client.SubmitSignature(ctx, model.Signature{
		Paths:      []string{"M10,10 L50,40"},
		Width:      300,
		Height:     150,
		CapturedAt: time.Now(),
	})
	require.NoError(t, err)
	assert.True(t, status.SignatureDone)

	fetched, err := env.client.ConsentStatus(ctx)
	require.NoError(t, err)
	assert.True(t, fetched.SignatureDone)
}

func TestSignatureRejectsEmptyPaths(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.client.SubmitSignature(context.Background(), model.Signature{Width: 300, Height: 150})
	assert.ErrorIs(t, err, api.ErrAPIRejected)
}

func TestExamToggleThroughTracker(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	tracker := care.NewTracker(env.client)
	require.NoError(t, tracker.Load(ctx))

	procs := tracker.Procedures()
	require.Len(t, procs, 1)
	examID := procs[0].Exams[0].ID

	require.NoError(t, tracker.ToggleExam(ctx, examID, model.ExamCompleted))

	// The server agrees after a fresh load.
	require.NoError(t, tracker.Load(ctx))
	status, err := tracker.ExamStatus(examID)
	require.NoError(t, err)
	assert.Equal(t, model.ExamCompleted, status)
}

func TestExamStatusRejectsUnknownValue(t *testing.T) {
	env := newTestEnv(t)

	examID := env.seed.Procedure.Exams[0].ID
	_, err := env.client.UpdateExamStatus(context.Background(), examID, model.ExamStatus("bogus"))
	assert.ErrorIs(t, err, api.ErrAPIRejected)
}

func TestUploadExamResultMarksUploaded(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	examID := env.seed.Procedure.Exams[0].ID
	res, err := env.client.UploadExamResult(ctx, examID, api.UploadExamResultRequest{
		FileName: "cbc.pdf",
		FileURL:  "file:///tmp/cbc.pdf",
	})
	require.NoError(t, err)
	assert.Equal(t, examID, res.ExamID)

	proc, err := env.client.Procedure(ctx, env.seed.Procedure.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ExamUploaded, proc.Exams[0].Status)
}

func TestCompletePendingFollowUp(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	tracker := care.NewTracker(env.client)
	pending, err := tracker.PendingFollowUp(ctx)
	require.NoError(t, err)
	assert.Equal(t, env.seed.FollowUp.ID, pending.ID)

	fu, err := tracker.SubmitFollowUp(ctx, pending.ID, api.SubmitFollowUpRequest{
		WeightKg:      82.5,
		WellnessScore: 8,
		ProteinGrams:  90,
		ExerciseHours: 3,
		Notes:         "feeling good",
	})
	require.NoError(t, err)
	assert.Equal(t, model.FollowUpCompleted, fu.Status)
	require.NotNil(t, fu.CompletedAt)

	_, err = tracker.PendingFollowUp(ctx)
	assert.ErrorIs(t, err, care.ErrNoPendingCheckIn)
}

func TestAvailabilityGeneratesBusinessHourSlots(t *testing.T) {
	env := newTestEnv(t)
	doctorID := env.seed.Doctors[0].ID

	// Monday: six half-hour slots starting 09:00 UTC.
	slots, err := env.client.Availability(context.Background(), doctorID, "2024-06-03")
	require.NoError(t, err)
	require.Len(t, slots, 6)
	assert.Equal(t, "2024-06-03T09:00:00Z", slots[0].StartTime.Format(time.RFC3339))
	assert.Equal(t, "2024-06-03T11:30:00Z", slots[5].StartTime.Format(time.RFC3339))

	// Saturday: nothing.
	weekend, err := env.client.Availability(context.Background(), doctorID, "2024-06-01")
	require.NoError(t, err)
	assert.Empty(t, weekend)
}

func TestDoubleBookingConflicts(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	doctorID := env.seed.Doctors[0].ID

	req := api.BookAppointmentRequest{
		DoctorID:  doctorID.String(),
		StartTime: "2024-06-03T09:00:00Z",
		EndTime:   "2024-06-03T09:30:00Z",
	}

	appt, err := env.client.BookAppointment(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentScheduled, appt.Status)

	_, err = env.client.BookAppointment(ctx, req)
	assert.ErrorIs(t, err, api.ErrConflict)

	// The booked slot no longer shows as available.
	slots, err := env.client.Availability(ctx, doctorID, "2024-06-03")
	require.NoError(t, err)
	assert.Len(t, slots, 5)
}

func TestBookingRejectsOffGridSlot(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.client.BookAppointment(context.Background(), api.BookAppointmentRequest{
		DoctorID:  env.seed.Doctors[0].ID.String(),
		StartTime: "2024-06-03T09:15:00Z",
		EndTime:   "2024-06-03T09:45:00Z",
	})
	assert.ErrorIs(t, err, api.ErrConflict)
}

func TestCancelFreesSlot(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	doctorID := env.seed.Doctors[0].ID

	appt, err := env.client.BookAppointment(ctx, api.BookAppointmentRequest{
		DoctorID:  doctorID.String(),
		StartTime: "2024-06-03T10:00:00Z",
		EndTime:   "2024-06-03T10:30:00Z",
	})
	require.NoError(t, err)

	require.NoError(t, env.client.CancelAppointment(ctx, appt.ID))

	slots, err := env.client.Availability(ctx, doctorID, "2024-06-03")
	require.NoError(t, err)
	assert.Len(t, slots, 6)
}

func TestCheckInTransitionsAppointment(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	appt, err := env.client.BookAppointment(ctx, api.BookAppointmentRequest{
		DoctorID:  env.seed.Doctors[0].ID.String(),
		StartTime: "2024-06-03T11:00:00Z",
		EndTime:   "2024-06-03T11:30:00Z",
	})
	require.NoError(t, err)

	updated, err := env.client.CheckInAppointment(ctx, appt.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentCheckedIn, updated.Status)
}

// TestCalendarBookingEndToEnd runs the optimistic booking flow against the
// real server: the slot disappears locally, the month count drops, and the
// reconcile fetch agrees with the server.
func TestCalendarBookingEndToEnd(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	doctorID := env.seed.Doctors[0].ID

	cal := booking.NewCalendar(env.client, doctorID)

	slots, err := cal.LoadDay(ctx, "2024-06-03")
	require.NoError(t, err)
	require.Len(t, slots, 6)

	summary, err := cal.LoadMonth(ctx, "2024-06")
	require.NoError(t, err)
	assert.Equal(t, 6, summary["03"])

	appt, err := cal.Book(ctx, slots[0], "bariatric")
	require.NoError(t, err)
	assert.Equal(t, "bariatric", appt.ProcedureType)

	assert.Len(t, cal.DaySlots("2024-06-03"), 5)
	reconciled, ok := cal.MonthSummary("2024-06")
	require.True(t, ok)
	assert.Equal(t, 5, reconciled["03"])
}

func TestAvailabilityMonthSummary(t *testing.T) {
	env := newTestEnv(t)

	summary, err := env.client.AvailabilityMonth(context.Background(), env.seed.Doctors[0].ID, "2024-06")
	require.NoError(t, err)

	// June 2024: weekdays carry six slots, weekends none.
	assert.Equal(t, 6, summary["03"])
	assert.Equal(t, 6, summary["28"])
	assert.NotContains(t, summary, "01")
	assert.NotContains(t, summary, "02")
}

func TestAvatarTokenProxy(t *testing.T) {
	env := newTestEnv(t)

	tok, err := env.client.AvatarSessionToken(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, tok.Token)
}

func TestAvatarTokenProxyDisabled(t *testing.T) {
	env := newTestEnv(t, WithoutAvatarTokens())

	_, err := env.client.AvatarSessionToken(context.Background())
	assert.ErrorIs(t, err, api.ErrAPIRejected)
}
