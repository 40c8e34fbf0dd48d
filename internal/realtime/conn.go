package realtime

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var ErrClosed = errors.New("realtime connection closed")

// Conn is a websocket connection to the ai-realtime namespace. One reader
// goroutine decodes frames onto Events; the channel closes when the
// transport drops for any reason.
type Conn struct {
	ws     *websocket.Conn
	events chan Event

	writeMu   sync.Mutex
	closeOnce sync.Once
}

// Dial connects and authenticates with the bearer token. The server's
// "ready" event arrives on Events once the session is accepted.
func Dial(ctx context.Context, url, token string) (*Conn, error) {
	header := http.Header{}
	if token != "" {
		header.Set("Authorization", "Bearer "+token)
	}

	ws, resp, err := websocket.DefaultDialer.DialContext(ctx, url, header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial realtime: %w (status %d)", err, resp.StatusCode)
		}
		return nil, fmt.Errorf("dial realtime: %w", err)
	}

	c := &Conn{
		ws:     ws,
		events: make(chan Event, 16),
	}
	go c.readLoop()

	return c, nil
}

func (c *Conn) Events() <-chan Event {
	return c.events
}

// Start announces the interview context for this session.
func (c *Conn) Start(appointmentID uuid.UUID, procedureType string) error {
	return c.writeJSON(startFrame{
		Type:          TypeStart,
		AppointmentID: appointmentID.String(),
		ProcedureType: procedureType,
	})
}

// SendAudioChunk uploads one captured turn. isFinal marks the end of the
// patient's utterance.
func (c *Conn) SendAudioChunk(b64, mimeType string, isFinal bool) error {
	return c.writeJSON(audioChunkFrame{
		Type:     TypeAudioChunk,
		Base64:   b64,
		MimeType: mimeType,
		IsFinal:  isFinal,
	})
}

func (c *Conn) writeJSON(v any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := c.ws.WriteJSON(v); err != nil {
		return fmt.Errorf("%w: %v", ErrClosed, err)
	}
	return nil
}

func (c *Conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.writeMu.Lock()
		_ = c.ws.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		c.writeMu.Unlock()
		err = c.ws.Close()
	})
	return err
}

func (c *Conn) readLoop() {
	defer close(c.events)

	for {
		var ev Event
		if err := c.ws.ReadJSON(&ev); err != nil {
			return
		}
		c.events <- ev
	}
}
