package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/agustinboza/CuralisPatientMobile/internal/checkin"
	"github.com/agustinboza/CuralisPatientMobile/internal/realtime"
)

// stubRecorder stands in for the device microphone: each press/release cycle
// yields a fixed-size pseudo-audio buffer so turns clear the minimum byte
// threshold.
type stubRecorder struct {
	recording bool
}

func (r *stubRecorder) Start() error {
	r.recording = true
	return nil
}

func (r *stubRecorder) Stop() ([]byte, error) {
	if !r.recording {
		return nil, nil
	}
	r.recording = false

	buf := make([]byte, 4096)
	for i := range buf {
		buf[i] = byte(i % 251)
	}
	return buf, nil
}

func (r *stubRecorder) MimeType() string { return "audio/webm" }

// consolePlayer "plays" assistant audio by waiting a beat, keeping the
// push-to-talk gating observable on the terminal.
type consolePlayer struct{}

func (consolePlayer) Play(audio []byte, mimeType string, done func(error)) {
	fmt.Printf("  [assistant voice: %d bytes %s]\n", len(audio), mimeType)
	go func() {
		time.Sleep(300 * time.Millisecond)
		done(nil)
	}()
}

// consoleSink prints the session's view of the interview.
type consoleSink struct {
	done chan struct{}
}

func (s *consoleSink) StateChanged(state checkin.State, av checkin.AvatarState) {
	fmt.Printf("  [state=%s avatar=%s]\n", state, av)
}

func (s *consoleSink) QuestionReceived(text string)  { fmt.Printf("assistant: %s\n", text) }
func (s *consoleSink) TranscriptUpdated(text string) {}
func (s *consoleSink) AssistantSaid(text string)     { fmt.Printf("assistant: %s\n", text) }

func (s *consoleSink) SessionError(kind error, detail string) {
	fmt.Fprintf(os.Stderr, "session error: %v (%s)\n", kind, detail)
}

func (s *consoleSink) Completed(message string) {
	fmt.Printf("assistant: %s\n", message)
	close(s.done)
}

// checkin runs a voice interview for an appointment. Each line entered on
// stdin simulates one press-and-hold turn.
func (a *app) checkin(args []string) error {
	if len(args) < 1 {
		usage()
	}
	appointmentID, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid appointment id: %w", err)
	}
	procedureType := ""
	if len(args) > 1 {
		procedureType = args[1]
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dialCtx, dialCancel := context.WithTimeout(ctx, a.cfg.HTTPTimeout)
	conn, err := realtime.Dial(dialCtx, a.cfg.RealtimeURL, a.store.Token())
	dialCancel()
	if err != nil {
		return err
	}

	sink := &consoleSink{done: make(chan struct{})}
	sess := checkin.NewSession(checkin.Config{
		MinTurnBytes:   a.cfg.MinTurnBytes,
		DedupeWindow:   a.cfg.DedupeWindow,
		AvatarTimeout:  a.cfg.AvatarTimeout,
		TypewriterTick: a.cfg.TypewriterTick,
	}, conn, &stubRecorder{}, consolePlayer{}, nil, sink)

	go sess.Run(ctx)
	defer sess.Close()

	// Wait for the channel to come up before starting the interview.
	for sess.State() == checkin.StateConnecting {
		time.Sleep(50 * time.Millisecond)
	}
	if err := sess.Start(appointmentID, procedureType); err != nil {
		return err
	}

	fmt.Println("interview started; press enter to speak a turn, 'quit' to leave")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		select {
		case <-sink.done:
			return nil
		default:
		}

		if !scanner.Scan() {
			return scanner.Err()
		}
		if scanner.Text() == "quit" {
			return nil
		}

		if err := sess.PressTalk(); err != nil {
			fmt.Fprintf(os.Stderr, "cannot speak right now: %v\n", err)
			continue
		}
		time.Sleep(200 * time.Millisecond) // hold the button
		if err := sess.ReleaseTalk(); err != nil {
			fmt.Fprintf(os.Stderr, "turn failed: %v\n", err)
		}

		// Give the assistant a moment to answer before prompting again.
		for sess.State() != checkin.StateListening && sess.State() != checkin.StateDone {
			time.Sleep(50 * time.Millisecond)
		}
		if sess.State() == checkin.StateDone {
			return nil
		}
	}
}
