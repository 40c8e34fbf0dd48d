package devserver

import (
	"encoding/base64"
	"log"
	"net/http"
	"strings"
)

// InterviewScript is the canned conversation the realtime endpoint runs.
// One reply is consumed per finalized patient turn; when they run out the
// session ends with the closing message.
type InterviewScript struct {
	Question string
	Replies  []string
	Closing  string
}

func DefaultInterview() InterviewScript {
	return InterviewScript{
		Question: "Hello! How have you been feeling since your procedure?",
		Replies: []string{
			"Thank you for sharing that. Have you had any pain or swelling around the treated area?",
			"Good to know. Are you keeping up with the prescribed exercises and protein intake?",
		},
		Closing: "That covers everything for today. Your care team will review your answers. Take care!",
	}
}

type wireEvent struct {
	Type     string `json:"type"`
	Text     string `json:"text,omitempty"`
	Delta    string `json:"delta,omitempty"`
	Base64   string `json:"base64,omitempty"`
	MimeType string `json:"mime_type,omitempty"`
	Message  string `json:"message,omitempty"`
}

type wireFrame struct {
	Type          string `json:"type"`
	AppointmentID string `json:"appointment_id,omitempty"`
	ProcedureType string `json:"procedure_type,omitempty"`
	Base64        string `json:"base64,omitempty"`
	MimeType      string `json:"mime_type,omitempty"`
	IsFinal       bool   `json:"is_final,omitempty"`
}

// fakeTTS builds a tiny opaque payload standing in for synthesized speech.
func fakeTTS(text string) string {
	return base64.StdEncoding.EncodeToString([]byte("fake-voice:" + text))
}

// handleRealtime runs one scripted interview per connection: ready on
// attach, the opening question after start, then one scripted reply per
// finalized audio turn, then done.
func (s *Server) handleRealtime(w http.ResponseWriter, r *http.Request) {
	if _, err := s.authenticate(r); err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing or invalid bearer token")
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("devserver: realtime upgrade: %v", err)
		return
	}
	defer conn.Close()

	send := func(ev wireEvent) bool {
		if err := conn.WriteJSON(ev); err != nil {
			log.Printf("devserver: realtime write: %v", err)
			return false
		}
		return true
	}

	if !send(wireEvent{Type: "ready"}) {
		return
	}

	turn := 0
	for {
		var frame wireFrame
		if err := conn.ReadJSON(&frame); err != nil {
			return
		}

		switch frame.Type {
		case "start":
			if !send(wireEvent{Type: "question", Text: s.interview.Question}) {
				return
			}
			s.speak(send, s.interview.Question)
			if !send(wireEvent{Type: "turn_ready"}) {
				return
			}

		case "audio_chunk":
			if !frame.IsFinal {
				continue
			}
			if turn >= len(s.interview.Replies) {
				send(wireEvent{Type: "done", Text: s.interview.Closing})
				return
			}

			reply := s.interview.Replies[turn]
			turn++

			// Stream the reply word by word, the way the production
			// assistant emits text deltas.
			for _, word := range strings.SplitAfter(reply, " ") {
				if !send(wireEvent{Type: "assistant_text_delta", Delta: word}) {
					return
				}
			}
			if !send(wireEvent{Type: "final_transcript", Text: reply}) {
				return
			}
			s.speak(send, reply)
			if !send(wireEvent{Type: "turn_ready"}) {
				return
			}

		default:
			send(wireEvent{Type: "error", Message: "unknown frame type " + frame.Type})
		}
	}
}

func (s *Server) speak(send func(wireEvent) bool, text string) {
	send(wireEvent{Type: "tts", Base64: fakeTTS(text), MimeType: "audio/mp3"})
}
