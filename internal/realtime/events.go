package realtime

// EventType enumerates the ai-realtime wire events. Client-emitted types are
// TypeStart and TypeAudioChunk; the rest arrive from the server.
type EventType string

const (
	TypeStart      EventType = "start"
	TypeAudioChunk EventType = "audio_chunk"

	TypeReady          EventType = "ready"
	TypeQuestion       EventType = "question"
	TypeAssistantDelta EventType = "assistant_text_delta"
	TypeFinal          EventType = "final_transcript"
	TypeTurnReady      EventType = "turn_ready"
	TypeAIAudioChunk   EventType = "ai_audio_chunk"
	TypeAIAudioDone    EventType = "ai_audio_done"
	TypeTTS            EventType = "tts"
	TypeClarify        EventType = "clarify"
	TypeDone           EventType = "done"
	TypeError          EventType = "error"
)

// Event is one decoded frame. Fields are populated per type; unused fields
// stay zero.
type Event struct {
	Type     EventType `json:"type"`
	Text     string    `json:"text,omitempty"`
	Delta    string    `json:"delta,omitempty"`
	Base64   string    `json:"base64,omitempty"`
	MimeType string    `json:"mime_type,omitempty"`
	Message  string    `json:"message,omitempty"`
}

type startFrame struct {
	Type          EventType `json:"type"`
	AppointmentID string    `json:"appointment_id"`
	ProcedureType string    `json:"procedure_type,omitempty"`
}

type audioChunkFrame struct {
	Type     EventType `json:"type"`
	Base64   string    `json:"base64"`
	MimeType string    `json:"mime_type"`
	IsFinal  bool      `json:"is_final"`
}
