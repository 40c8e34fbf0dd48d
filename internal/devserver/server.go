package devserver

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/agustinboza/CuralisPatientMobile/internal/model"
)

// Server simulates the Curalis backend: the full REST surface the mobile
// client consumes plus the ai-realtime websocket namespace, all in-process
// so tests and local development need no external infrastructure.
type Server struct {
	store        *Store
	secret       []byte
	avatarTokens bool
	interview    InterviewScript
	upgrader     websocket.Upgrader
}

type Option func(*Server)

// WithoutAvatarTokens makes the avatar token proxy refuse, simulating a
// deployment with no avatar vendor configured.
func WithoutAvatarTokens() Option {
	return func(s *Server) { s.avatarTokens = false }
}

func WithInterview(script InterviewScript) Option {
	return func(s *Server) { s.interview = script }
}

func New(store *Store, opts ...Option) *Server {
	s := &Server{
		store:        store,
		secret:       []byte(uuid.NewString()),
		avatarTokens: true,
		interview:    DefaultInterview(),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	// The websocket route stays outside the logging middleware: the wrapped
	// ResponseWriter cannot be hijacked for the upgrade.
	r.HandleFunc("/ai-realtime", s.handleRealtime)

	r.Group(func(r chi.Router) {
		r.Use(requestIDMiddleware)
		r.Use(loggingMiddleware)

		r.Get("/health/live", s.handleHealth)

		r.Post("/auth/login", s.handleLogin)
		r.Post("/auth/signup", s.handleSignup)

		r.Group(func(r chi.Router) {
			r.Use(s.requireAuth)

			r.Post("/auth/logout", s.handleLogout)

			r.Get("/profile", s.handleProfile)
			r.Put("/profile", s.handleUpdateProfile)
			r.Post("/signatures", s.handleSubmitSignature)
			r.Get("/consent", s.handleConsent)

			r.Get("/procedures", s.handleProcedures)
			r.Get("/procedures/{id}", s.handleProcedure)
			r.Patch("/exams/{id}/status", s.handleUpdateExamStatus)
			r.Post("/exams/{id}/results", s.handleUploadExamResult)

			r.Get("/followups", s.handleFollowUps)
			r.Post("/followups/{id}/complete", s.handleCompleteFollowUp)

			r.Get("/appointments", s.handleAppointments)
			r.Post("/appointments", s.handleBookAppointment)
			r.Post("/appointments/{id}/checkin", s.handleAppointmentStatus(model.AppointmentCheckedIn))
			r.Post("/appointments/{id}/cancel", s.handleAppointmentStatus(model.AppointmentCancelled))

			r.Get("/availability", s.handleAvailability)
			r.Get("/availability/summary", s.handleAvailabilitySummary)

			r.Post("/avatar/token", s.handleAvatarToken)
		})
	})

	return r
}
