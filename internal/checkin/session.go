package checkin

import (
	"context"
	"encoding/base64"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/agustinboza/CuralisPatientMobile/internal/avatar"
	"github.com/agustinboza/CuralisPatientMobile/internal/realtime"
)

const minPacedTick = 15 * time.Millisecond

type Config struct {
	MinTurnBytes   int           // audio turns shorter than this are dropped
	DedupeWindow   time.Duration // identical text inside this window is spoken once
	AvatarTimeout  time.Duration // bounded wait for avatar attachment
	TypewriterTick time.Duration // per-rune reveal interval without avatar pacing
}

func (c Config) withDefaults() Config {
	if c.MinTurnBytes <= 0 {
		c.MinTurnBytes = 1024
	}
	if c.DedupeWindow <= 0 {
		c.DedupeWindow = 2 * time.Second
	}
	if c.AvatarTimeout <= 0 {
		c.AvatarTimeout = 30 * time.Second
	}
	if c.TypewriterTick <= 0 {
		c.TypewriterTick = 30 * time.Millisecond
	}
	return c
}

// Session drives one voice interview turn-by-turn. Every mutation goes
// through methods that hold mu, so events from the channel, the avatar, the
// typewriter timer and user intents are applied strictly one at a time in
// arrival order.
type Session struct {
	cfg    Config
	ch     Channel
	rec    Recorder
	player Player
	av     Avatar // nil when no avatar was requested
	sink   EventSink

	mu      sync.Mutex
	state   State
	avState AvatarState

	canSpeak    bool // push-to-talk gate, the session's only concurrency control
	recording   bool
	pendingTurn bool // turn_ready arrived while the assistant was still speaking

	pendingText []rune // full transcript target being revealed
	revealed    int    // runes currently shown
	typeTick    time.Duration
	typeTimer   *time.Timer

	audioBuf  []byte // accumulated ai_audio_chunk payload
	audioMime string

	speakQueue   []string // texts waiting for the avatar to finish attaching
	lastSpoken   string
	lastSpokenAt time.Time

	permissionSurfaced bool
	attachCancel       context.CancelFunc
	closed             bool
}

// NewSession wires the collaborators together. The channel must already be
// dialed; the session owns it from here and closes it on teardown. av may be
// nil for an avatar-less interview.
func NewSession(cfg Config, ch Channel, rec Recorder, player Player, av Avatar, sink EventSink) *Session {
	if sink == nil {
		sink = noopSink{}
	}
	s := &Session{
		cfg:     cfg.withDefaults(),
		ch:      ch,
		rec:     rec,
		player:  player,
		av:      av,
		sink:    sink,
		state:   StateConnecting,
		avState: AvatarNone,
	}
	if av != nil {
		s.avState = AvatarAttaching
	}
	return s
}

// Run pumps channel and avatar events into the reducer until the transport
// closes or ctx is cancelled. Callers run it in its own goroutine.
func (s *Session) Run(ctx context.Context) {
	if s.av != nil {
		attachCtx, cancel := context.WithTimeout(ctx, s.cfg.AvatarTimeout)
		s.mu.Lock()
		s.attachCancel = cancel
		s.mu.Unlock()

		go func() {
			err := s.av.Attach(attachCtx)
			cancel()
			s.onAvatarAttached(err)
		}()
	}

	chEvents := s.ch.Events()
	var avEvents <-chan avatar.Event
	if s.av != nil {
		avEvents = s.av.Events()
	}

	for chEvents != nil || avEvents != nil {
		select {
		case <-ctx.Done():
			s.Close()
			return

		case ev, ok := <-chEvents:
			if !ok {
				chEvents = nil
				s.onTransportClosed()
				continue
			}
			s.handleChannelEvent(ev)

		case ev, ok := <-avEvents:
			if !ok {
				avEvents = nil
				continue
			}
			s.handleAvatarEvent(ev)
		}
	}
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) AvatarState() AvatarState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.avState
}

// Transcript returns the currently revealed portion of the assistant text.
func (s *Session) Transcript() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return string(s.pendingText[:s.revealed])
}

// Start begins the interview. Valid only once the channel has reported ready.
func (s *Session) Start(appointmentID uuid.UUID, procedureType string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateDone {
		return ErrSessionDone
	}
	if s.state != StateIdle {
		return ErrNotIdle
	}
	if err := s.ch.Start(appointmentID, procedureType); err != nil {
		return err
	}

	s.canSpeak = true
	s.setState(StateListening)
	return nil
}

// PressTalk arms the microphone. It is refused whenever the push-to-talk
// gate is closed; pressing while the assistant is talking or the avatar is
// still attaching is a no-op by contract.
func (s *Session) PressTalk() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateDone {
		return ErrSessionDone
	}
	if !s.canSpeak || s.state != StateListening || s.avState == AvatarAttaching || s.recording {
		return ErrMicClosed
	}

	if err := s.rec.Start(); err != nil {
		if errors.Is(err, ErrPermissionDenied) {
			s.fatalPermission(err)
		}
		return err
	}

	s.recording = true
	return nil
}

// ReleaseTalk finalizes the turn. Releasing without a prior successful press
// is a no-op. Turns below the minimum byte threshold are dropped so
// near-empty captures never reach the server.
func (s *Session) ReleaseTalk() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.recording {
		return nil
	}
	s.recording = false

	data, err := s.rec.Stop()
	if err != nil {
		s.sink.SessionError(ErrMicClosed, err.Error())
		return err
	}

	if len(data) < s.cfg.MinTurnBytes {
		log.Printf("checkin: dropping short turn bytes=%d min=%d", len(data), s.cfg.MinTurnBytes)
		return nil
	}

	b64 := base64.StdEncoding.EncodeToString(data)
	if err := s.ch.SendAudioChunk(b64, s.rec.MimeType(), true); err != nil {
		s.sink.SessionError(ErrTransportClosed, err.Error())
		return err
	}

	s.canSpeak = false
	s.setState(StateSending)
	return nil
}

// Close tears down the session: timers cancelled, transport and avatar
// closed. Idempotent.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.stopTypewriter()
	if s.attachCancel != nil {
		s.attachCancel()
	}
	if s.state != StateDone {
		s.setState(StateDone)
	}
	s.mu.Unlock()

	_ = s.ch.Close()
	if s.av != nil {
		_ = s.av.Close()
	}
}

// Reducer: channel events

func (s *Session) handleChannelEvent(ev realtime.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateDone {
		return
	}

	switch ev.Type {
	case realtime.TypeReady:
		if s.state == StateConnecting {
			s.setState(StateIdle)
		}

	case realtime.TypeQuestion:
		s.sink.QuestionReceived(ev.Text)
		s.speakText(ev.Text)

	case realtime.TypeAssistantDelta:
		if s.state == StateSending || s.state == StateListening {
			s.setState(StateAssistantGenerating)
		}
		if ev.Text != "" {
			s.pendingText = []rune(ev.Text)
		} else {
			s.pendingText = append(s.pendingText, []rune(ev.Delta)...)
		}
		// Without an avatar there is nothing to pace against, show it now.
		if s.avState == AvatarNone || s.avState == AvatarDetached {
			s.revealAll()
		}

	case realtime.TypeFinal, realtime.TypeClarify:
		s.speakText(ev.Text)

	case realtime.TypeTurnReady:
		if s.state == StateAssistantSpeaking || s.avState == AvatarSpeaking || s.avState == AvatarAttaching {
			s.pendingTurn = true
		} else {
			s.openMic()
		}

	case realtime.TypeAIAudioChunk:
		chunk, err := base64.StdEncoding.DecodeString(ev.Base64)
		if err != nil {
			log.Printf("checkin: bad ai_audio_chunk payload: %v", err)
			return
		}
		s.audioBuf = append(s.audioBuf, chunk...)
		s.audioMime = ev.MimeType

	case realtime.TypeAIAudioDone:
		s.playBuffered()

	case realtime.TypeTTS:
		data, err := base64.StdEncoding.DecodeString(ev.Base64)
		if err != nil {
			log.Printf("checkin: bad tts payload: %v", err)
			return
		}
		s.audioBuf = data
		s.audioMime = ev.MimeType
		s.playBuffered()

	case realtime.TypeDone:
		msg := ev.Text
		if msg == "" {
			msg = "Check-in complete. Thank you."
		}
		s.revealAll()
		s.setState(StateDone)
		s.sink.Completed(msg)

	case realtime.TypeError:
		// Socket-level errors are non-fatal alerts; the session keeps going.
		s.sink.SessionError(ErrTransportClosed, ev.Message)
	}
}

// Reducer: avatar events

func (s *Session) handleAvatarEvent(ev avatar.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateDone || s.avState == AvatarDetached {
		return
	}

	switch ev.Kind {
	case avatar.TaskOK:
		s.paceTypewriter(ev.Duration)

	case avatar.TaskDone:
		s.avState = AvatarReady
		s.revealAll()
		if len(s.speakQueue) > 0 {
			next := s.speakQueue[0]
			s.speakQueue = s.speakQueue[1:]
			s.dispatchAvatarSpeak(next)
			return
		}
		s.openMic()

	case avatar.TaskError:
		s.detachAvatar(ev.Reason)
	}
}

func (s *Session) onAvatarAttached(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || s.state == StateDone || s.avState != AvatarAttaching {
		return
	}

	if err != nil {
		// No token and ready-timeout land here alike: one unavailable
		// outcome, interview proceeds without the avatar.
		log.Printf("checkin: avatar attach failed, falling back to tts: %v", err)
		s.detachAvatar(err.Error())
		return
	}

	s.avState = AvatarReady
	s.sink.StateChanged(s.state, s.avState)

	if len(s.speakQueue) > 0 {
		next := s.speakQueue[0]
		s.speakQueue = s.speakQueue[1:]
		s.dispatchAvatarSpeak(next)
	} else if s.pendingTurn {
		s.openMic()
	}
}

func (s *Session) onTransportClosed() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || s.state == StateDone {
		return
	}
	s.revealAll()
	s.setState(StateDone)
	s.sink.SessionError(ErrTransportClosed, "realtime channel disconnected")
}

func (s *Session) onPlaybackDone(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateDone {
		return
	}
	if err != nil {
		s.sink.SessionError(ErrTransportClosed, "playback failed: "+err.Error())
	}
	s.openMic()
}

// Internal transitions. All callers hold mu.

func (s *Session) setState(next State) {
	if s.state == next {
		return
	}
	s.state = next
	s.sink.StateChanged(s.state, s.avState)
}

func (s *Session) openMic() {
	if s.state == StateDone {
		return
	}
	s.pendingTurn = false
	s.canSpeak = true
	s.setState(StateListening)
}

// speakText routes finalized assistant text to the avatar, the attach queue,
// or the immediate-reveal fallback. The dedupe guard suppresses server
// retries of identical text inside the configured window.
func (s *Session) speakText(text string) {
	if text == "" {
		return
	}

	now := time.Now()
	if text == s.lastSpoken && now.Sub(s.lastSpokenAt) < s.cfg.DedupeWindow {
		log.Printf("checkin: suppressing duplicate speech within window")
		return
	}
	s.lastSpoken = text
	s.lastSpokenAt = now

	s.pendingText = []rune(text)
	s.revealed = 0
	s.sink.AssistantSaid(text)

	switch s.avState {
	case AvatarReady:
		s.dispatchAvatarSpeak(text)

	case AvatarAttaching:
		// Not ready yet: hold the text, keep the mic closed until the
		// attach resolves one way or the other.
		s.speakQueue = append(s.speakQueue, text)
		s.canSpeak = false

	default:
		// No avatar: transcript shows immediately, voice arrives as tts /
		// ai_audio events and the mic reopens when playback finishes.
		s.revealAll()
	}
}

func (s *Session) dispatchAvatarSpeak(text string) {
	if s.avState != AvatarReady {
		return
	}

	s.pendingText = []rune(text)
	s.revealed = 0

	if err := s.av.Speak(text); err != nil {
		s.detachAvatar(err.Error())
		return
	}

	s.avState = AvatarSpeaking
	s.canSpeak = false
	s.setState(StateAssistantSpeaking)
	s.startTypewriter(s.cfg.TypewriterTick)
}

// detachAvatar is a one-way downgrade: every later turn uses local TTS and
// no avatar call is ever attempted again this session.
func (s *Session) detachAvatar(reason string) {
	if s.avState == AvatarDetached {
		return
	}
	s.avState = AvatarDetached
	s.stopTypewriter()

	if s.av != nil {
		go s.av.Close()
	}

	// Anything queued for the avatar is shown as plain transcript.
	for _, text := range s.speakQueue {
		s.pendingText = []rune(text)
	}
	s.speakQueue = nil
	s.revealAll()

	s.sink.SessionError(ErrAvatarUnavailable, reason)
	s.sink.StateChanged(s.state, s.avState)

	if s.pendingTurn || s.state == StateAssistantSpeaking {
		s.openMic()
	}
}

func (s *Session) fatalPermission(err error) {
	if s.permissionSurfaced {
		return
	}
	s.permissionSurfaced = true
	s.sink.SessionError(ErrPermissionDenied, err.Error())
	s.setState(StateDone)
}

func (s *Session) playBuffered() {
	if len(s.audioBuf) == 0 {
		return
	}
	if s.avState == AvatarReady || s.avState == AvatarSpeaking {
		// The avatar voices this turn, drop the synthesized audio.
		s.audioBuf = nil
		return
	}

	data := s.audioBuf
	mime := s.audioMime
	s.audioBuf = nil

	s.canSpeak = false
	s.setState(StateAssistantSpeaking)
	go s.player.Play(data, mime, s.onPlaybackDone)
}

// Typewriter pacing. The reveal runs on AfterFunc steps so retuning the
// interval mid-flight (TASK_OK carries the real spoken duration) only
// affects the not-yet-revealed remainder.

func (s *Session) startTypewriter(tick time.Duration) {
	s.stopTypewriter()
	s.typeTick = tick
	s.typeTimer = time.AfterFunc(tick, s.typeStep)
}

func (s *Session) paceTypewriter(spoken time.Duration) {
	remaining := len(s.pendingText) - s.revealed
	if remaining <= 0 || spoken <= 0 {
		return
	}
	tick := spoken / time.Duration(remaining)
	if tick < minPacedTick {
		tick = minPacedTick
	}
	s.startTypewriter(tick)
}

func (s *Session) stopTypewriter() {
	if s.typeTimer != nil {
		s.typeTimer.Stop()
		s.typeTimer = nil
	}
}

func (s *Session) typeStep() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || s.revealed >= len(s.pendingText) {
		return
	}
	s.revealed++
	s.sink.TranscriptUpdated(string(s.pendingText[:s.revealed]))

	if s.revealed < len(s.pendingText) && s.typeTimer != nil {
		s.typeTimer = time.AfterFunc(s.typeTick, s.typeStep)
	}
}

func (s *Session) revealAll() {
	s.stopTypewriter()
	if s.revealed >= len(s.pendingText) {
		return
	}
	s.revealed = len(s.pendingText)
	s.sink.TranscriptUpdated(string(s.pendingText))
}
