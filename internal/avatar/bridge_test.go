package avatar

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePort struct {
	mu     sync.Mutex
	sent   [][]byte
	lines  chan string
	closed bool
}

func newFakePort() *fakePort {
	return &fakePort{lines: make(chan string, 16)}
}

func (p *fakePort) Send(msg []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sent = append(p.sent, msg)
	return nil
}

func (p *fakePort) Lines() <-chan string { return p.lines }

func (p *fakePort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.closed {
		p.closed = true
		close(p.lines)
	}
	return nil
}

func (p *fakePort) sentCommands(t *testing.T) []command {
	t.Helper()
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]command, 0, len(p.sent))
	for _, raw := range p.sent {
		var cmd command
		require.NoError(t, json.Unmarshal(raw, &cmd))
		out = append(out, cmd)
	}
	return out
}

func staticToken(token string) TokenFetcher {
	return func(context.Context) (string, error) { return token, nil }
}

func TestAttachWaitsForStreamReady(t *testing.T) {
	port := newFakePort()
	b := NewBridge(port, staticToken("tok-1"))
	defer b.Close()

	port.lines <- "sdk ready"
	port.lines <- "STREAM_READY"
	port.lines <- "session_id:sess-42"

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, b.Attach(ctx))

	cmds := port.sentCommands(t)
	require.Len(t, cmds, 1)
	assert.Equal(t, "prepare", cmds[0].Type)
	assert.Equal(t, "tok-1", cmds[0].Token)

	assert.Eventually(t, func() bool {
		return b.SessionID() == "sess-42"
	}, time.Second, 5*time.Millisecond)
}

func TestAttachFailsWithoutToken(t *testing.T) {
	port := newFakePort()
	b := NewBridge(port, staticToken(""))
	defer b.Close()

	err := b.Attach(context.Background())
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestAttachFailsOnFetchError(t *testing.T) {
	port := newFakePort()
	b := NewBridge(port, func(context.Context) (string, error) {
		return "", errors.New("token proxy down")
	})
	defer b.Close()

	err := b.Attach(context.Background())
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestAttachTimesOutWhenStreamNeverComesUp(t *testing.T) {
	port := newFakePort()
	b := NewBridge(port, staticToken("tok-1"))
	defer b.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := b.Attach(ctx)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestSpeakRequiresAttachment(t *testing.T) {
	port := newFakePort()
	b := NewBridge(port, staticToken("tok-1"))
	defer b.Close()

	err := b.Speak("hello")
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestStatusLineGrammar(t *testing.T) {
	port := newFakePort()
	b := NewBridge(port, staticToken("tok-1"))

	port.lines <- "STREAM_READY"
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, b.Attach(ctx))
	require.NoError(t, b.Speak("How are you feeling?"))

	port.lines <- "TASK_OK:1200"
	port.lines <- "some vendor noise line"
	port.lines <- "TASK_DONE"
	port.lines <- "TASK_ERROR:stream dropped"
	port.Close()

	var got []Event
	for ev := range b.Events() {
		got = append(got, ev)
	}

	require.Len(t, got, 3)
	assert.Equal(t, Event{Kind: TaskOK, Duration: 1200 * time.Millisecond}, got[0])
	assert.Equal(t, Event{Kind: TaskDone}, got[1])
	assert.Equal(t, Event{Kind: TaskError, Reason: "stream dropped"}, got[2])

	cmds := port.sentCommands(t)
	require.Len(t, cmds, 2)
	assert.Equal(t, "speak", cmds[1].Type)
	assert.Equal(t, "How are you feeling?", cmds[1].Text)
}

func TestMalformedTaskOKDurationDefaultsToZero(t *testing.T) {
	port := newFakePort()
	b := NewBridge(port, staticToken("tok-1"))

	port.lines <- "TASK_OK:not-a-number"
	port.Close()

	ev, ok := <-b.Events()
	require.True(t, ok)
	assert.Equal(t, Event{Kind: TaskOK}, ev)
}
