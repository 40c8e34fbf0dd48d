package checkin

import (
	"errors"

	"github.com/agustinboza/CuralisPatientMobile/internal/avatar"
)

// State models the interview lifecycle. All transitions happen inside the
// session's reducer; nothing outside this package mutates state.
type State string

const (
	StateConnecting          State = "connecting"
	StateIdle                State = "idle"
	StateListening           State = "listening"
	StateSending             State = "sending"
	StateAssistantGenerating State = "assistant_generating"
	StateAssistantSpeaking   State = "assistant_speaking"
	StateDone                State = "done"
)

// AvatarState is the parallel sub-state tracking avatar attachment. Detached
// is terminal: once the avatar is gone the session never re-attempts it.
type AvatarState string

const (
	AvatarNone      AvatarState = "none"
	AvatarAttaching AvatarState = "attaching"
	AvatarReady     AvatarState = "ready"
	AvatarSpeaking  AvatarState = "speaking"
	AvatarDetached  AvatarState = "detached"
)

var (
	ErrSessionDone      = errors.New("check-in session is done")
	ErrMicClosed        = errors.New("microphone is closed")
	ErrNotIdle          = errors.New("interview cannot start in this state")
	ErrPermissionDenied = errors.New("microphone permission denied")
	ErrTransportClosed  = errors.New("realtime transport closed")

	// ErrAvatarUnavailable covers both "no token" and "ready timeout";
	// the session does not distinguish them beyond the log line.
	ErrAvatarUnavailable = avatar.ErrUnavailable
)
