package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/google/uuid"

	"github.com/agustinboza/CuralisPatientMobile/internal/model"
)

// Auth

func (c *Client) Login(ctx context.Context, email, password string) (*AuthResponse, error) {
	var out AuthResponse
	err := c.do(ctx, http.MethodPost, "/auth/login", LoginRequest{Email: email, Password: password}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Signup(ctx context.Context, req SignupRequest) (*AuthResponse, error) {
	var out AuthResponse
	if err := c.do(ctx, http.MethodPost, "/auth/signup", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/auth/logout", nil, nil)
}

// Profile and consent

func (c *Client) Profile(ctx context.Context) (*model.User, error) {
	var out model.User
	if err := c.do(ctx, http.MethodGet, "/profile", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateProfile(ctx context.Context, req UpdateProfileRequest) (*model.User, error) {
	var out model.User
	if err := c.do(ctx, http.MethodPut, "/profile", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) SubmitSignature(ctx context.Context, sig model.Signature) (*model.ConsentStatus, error) {
	var out model.ConsentStatus
	if err := c.do(ctx, http.MethodPost, "/signatures", sig, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ConsentStatus(ctx context.Context) (*model.ConsentStatus, error) {
	var out model.ConsentStatus
	if err := c.do(ctx, http.MethodGet, "/consent", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Procedures and exams

func (c *Client) Procedures(ctx context.Context) ([]model.Procedure, error) {
	var out []model.Procedure
	if err := c.do(ctx, http.MethodGet, "/procedures", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Procedure(ctx context.Context, id uuid.UUID) (*model.Procedure, error) {
	var out model.Procedure
	if err := c.do(ctx, http.MethodGet, "/procedures/"+id.String(), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateExamStatus(ctx context.Context, examID uuid.UUID, status model.ExamStatus) (*model.Exam, error) {
	var out model.Exam
	path := fmt.Sprintf("/exams/%s/status", examID)
	if err := c.do(ctx, http.MethodPatch, path, UpdateExamStatusRequest{Status: status}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UploadExamResult(ctx context.Context, examID uuid.UUID, req UploadExamResultRequest) (*model.ExamResult, error) {
	var out model.ExamResult
	path := fmt.Sprintf("/exams/%s/results", examID)
	if err := c.do(ctx, http.MethodPost, path, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Follow-ups

func (c *Client) FollowUps(ctx context.Context) ([]model.FollowUp, error) {
	var out []model.FollowUp
	if err := c.do(ctx, http.MethodGet, "/followups", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) SubmitFollowUp(ctx context.Context, id uuid.UUID, req SubmitFollowUpRequest) (*model.FollowUp, error) {
	var out model.FollowUp
	path := fmt.Sprintf("/followups/%s/complete", id)
	if err := c.do(ctx, http.MethodPost, path, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Appointments and availability

func (c *Client) Appointments(ctx context.Context) ([]model.Appointment, error) {
	var out []model.Appointment
	if err := c.do(ctx, http.MethodGet, "/appointments", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) BookAppointment(ctx context.Context, req BookAppointmentRequest) (*model.Appointment, error) {
	var out model.Appointment
	if err := c.do(ctx, http.MethodPost, "/appointments", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CheckInAppointment(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	var out model.Appointment
	path := fmt.Sprintf("/appointments/%s/checkin", id)
	if err := c.do(ctx, http.MethodPost, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CancelAppointment(ctx context.Context, id uuid.UUID) error {
	path := fmt.Sprintf("/appointments/%s/cancel", id)
	return c.do(ctx, http.MethodPost, path, nil, nil)
}

// Availability returns the free slots for one doctor on one day. date is
// formatted YYYY-MM-DD.
func (c *Client) Availability(ctx context.Context, doctorID uuid.UUID, date string) ([]model.AvailabilitySlot, error) {
	q := url.Values{}
	q.Set("doctor_id", doctorID.String())
	q.Set("date", date)

	var out []model.AvailabilitySlot
	if err := c.do(ctx, http.MethodGet, "/availability?"+q.Encode(), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// AvailabilityMonth returns per-day open slot counts for a doctor. month is
// formatted YYYY-MM.
func (c *Client) AvailabilityMonth(ctx context.Context, doctorID uuid.UUID, month string) (AvailabilitySummary, error) {
	q := url.Values{}
	q.Set("doctor_id", doctorID.String())
	q.Set("month", month)

	var out AvailabilitySummary
	if err := c.do(ctx, http.MethodGet, "/availability/summary?"+q.Encode(), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Avatar token proxy

func (c *Client) AvatarSessionToken(ctx context.Context) (*AvatarToken, error) {
	var out AvatarToken
	if err := c.do(ctx, http.MethodPost, "/avatar/token", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
