package avatar

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"
)

// ErrUnavailable covers every way the avatar can fail to come up: no session
// token, transport refusal, or a ready timeout. Callers are expected to fall
// back to plain TTS and not distinguish the cause.
var ErrUnavailable = errors.New("avatar unavailable")

type EventKind int

const (
	TaskOK    EventKind = iota // task accepted, carries spoken duration
	TaskDone                   // avatar finished speaking
	TaskError                  // task failed, carries reason
)

type Event struct {
	Kind     EventKind
	Duration time.Duration // TaskOK only
	Reason   string        // TaskError only
}

// Port is the transport to the embedded avatar surface: commands go out as
// JSON messages, status comes back as free-text lines.
type Port interface {
	Send(msg []byte) error
	Lines() <-chan string
	Close() error
}

// TokenFetcher obtains an avatar session token from the API's token proxy.
type TokenFetcher func(ctx context.Context) (string, error)

type command struct {
	Type  string `json:"type"` // "prepare" or "speak"
	Token string `json:"token,omitempty"`
	Text  string `json:"text,omitempty"`
}

// Bridge drives one avatar surface for one check-in session. The surface
// reports state as unstructured status lines which the bridge pattern
// matches; everything it recognises is forwarded as a typed Event.
type Bridge struct {
	port       Port
	fetchToken TokenFetcher

	events chan Event
	ready  chan struct{}

	mu        sync.Mutex
	sessionID string
	sdkReady  bool
	attached  bool
	closed    bool
}

func NewBridge(port Port, fetch TokenFetcher) *Bridge {
	b := &Bridge{
		port:       port,
		fetchToken: fetch,
		events:     make(chan Event, 8),
		ready:      make(chan struct{}),
	}
	go b.readLines()
	return b
}

func (b *Bridge) Events() <-chan Event {
	return b.events
}

// SessionID reports the surface's session id once it has announced one.
func (b *Bridge) SessionID() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sessionID
}

// Attach fetches a session token, hands it to the surface and waits for the
// stream to come up. The wait is bounded by ctx; on any failure the caller
// gets ErrUnavailable and should not retry.
func (b *Bridge) Attach(ctx context.Context) error {
	token, err := b.fetchToken(ctx)
	if err != nil || token == "" {
		return fmt.Errorf("%w: no session token", ErrUnavailable)
	}

	raw, err := json.Marshal(command{Type: "prepare", Token: token})
	if err != nil {
		return fmt.Errorf("%w: encode prepare: %v", ErrUnavailable, err)
	}
	if err := b.port.Send(raw); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	select {
	case <-b.ready:
		b.mu.Lock()
		b.attached = true
		b.mu.Unlock()
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%w: ready timeout", ErrUnavailable)
	}
}

// Speak asks the surface to voice text. Completion arrives later as a
// TaskDone or TaskError event.
func (b *Bridge) Speak(text string) error {
	b.mu.Lock()
	attached := b.attached
	b.mu.Unlock()
	if !attached {
		return fmt.Errorf("%w: not attached", ErrUnavailable)
	}

	raw, err := json.Marshal(command{Type: "speak", Text: text})
	if err != nil {
		return fmt.Errorf("encode speak: %w", err)
	}
	if err := b.port.Send(raw); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func (b *Bridge) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.attached = false
	b.mu.Unlock()
	return b.port.Close()
}

// readLines pattern-matches the surface's status lines. Unrecognised lines
// are ignored; the grammar is vendor-defined and noisy.
func (b *Bridge) readLines() {
	defer close(b.events)

	for line := range b.port.Lines() {
		line = strings.TrimSpace(line)

		switch {
		case line == "sdk ready":
			b.mu.Lock()
			b.sdkReady = true
			b.mu.Unlock()

		case line == "STREAM_READY":
			b.signalReady()

		case strings.HasPrefix(line, "session_id:"):
			b.mu.Lock()
			b.sessionID = strings.TrimPrefix(line, "session_id:")
			b.mu.Unlock()

		case strings.HasPrefix(line, "TASK_OK:"):
			ms, err := strconv.Atoi(strings.TrimPrefix(line, "TASK_OK:"))
			if err != nil {
				ms = 0
			}
			b.events <- Event{Kind: TaskOK, Duration: time.Duration(ms) * time.Millisecond}

		case line == "TASK_DONE":
			b.events <- Event{Kind: TaskDone}

		case strings.HasPrefix(line, "TASK_ERROR:"):
			b.events <- Event{Kind: TaskError, Reason: strings.TrimPrefix(line, "TASK_ERROR:")}
		}
	}
}

func (b *Bridge) signalReady() {
	select {
	case <-b.ready:
	default:
		close(b.ready)
	}
}
