package checkin

import (
	"context"

	"github.com/google/uuid"

	"github.com/agustinboza/CuralisPatientMobile/internal/avatar"
	"github.com/agustinboza/CuralisPatientMobile/internal/realtime"
)

// Channel is the bidirectional realtime transport. Events closes when the
// transport drops; the session treats that as a terminal disconnect.
type Channel interface {
	Start(appointmentID uuid.UUID, procedureType string) error
	SendAudioChunk(b64, mimeType string, isFinal bool) error
	Events() <-chan realtime.Event
	Close() error
}

// Recorder is the microphone. Start must fail with an error wrapping
// ErrPermissionDenied when capture permission is missing; Stop returns the
// buffered audio for the turn.
type Recorder interface {
	Start() error
	Stop() ([]byte, error)
	MimeType() string
}

// Player plays synthesized assistant audio. Play must not block: done is
// invoked once playback finishes or fails.
type Player interface {
	Play(audio []byte, mimeType string, done func(error))
}

// Avatar is the optional talking-head widget. Speak completion arrives on
// Events as TaskDone or TaskError.
type Avatar interface {
	Attach(ctx context.Context) error
	Speak(text string) error
	Events() <-chan avatar.Event
	Close() error
}

// EventSink receives UI-facing session events. Implementations must not call
// back into the Session; callbacks run with the session lock held so their
// ordering matches the transition order exactly.
type EventSink interface {
	StateChanged(state State, avatarState AvatarState)
	QuestionReceived(text string)
	TranscriptUpdated(text string)
	AssistantSaid(text string)
	SessionError(kind error, detail string)
	Completed(message string)
}

type noopSink struct{}

func (noopSink) StateChanged(State, AvatarState) {}
func (noopSink) QuestionReceived(string)         {}
func (noopSink) TranscriptUpdated(string)        {}
func (noopSink) AssistantSaid(string)            {}
func (noopSink) SessionError(error, string)      {}
func (noopSink) Completed(string)                {}
