package server

// Message type tags of the voice session protocol. One JSON message per
// WebSocket frame, discriminated by the "type" field.
const (
	// Inbound.
	msgAudioChunk = "audio_chunk"
	msgControl    = "control"

	// Outbound.
	msgConnectionEstablished = "connection_established"
	msgSpeechStarted         = "speech_started"
	msgSpeechEnded           = "speech_ended"
	msgProcessingStart       = "processing_start"
	msgProcessingEnd         = "processing_end"
	msgTranscript            = "transcript"
	msgResponseText          = "response_text"
	msgAudioStart            = "audio_start"
	msgAudioEnd              = "audio_end"
	msgPing                  = "ping"
	msgError                 = "error"
)

// actionStopSpeech asks the server to stop the current synthesis pass at
// the next sentence or chunk boundary.
const actionStopSpeech = "stop_speech"

// inboundMessage is the envelope for client messages. Fields beyond Type
// are populated depending on the message kind.
type inboundMessage struct {
	Type string `json:"type"`

	// Audio carries one base64-encoded PCM16 mono frame for audio_chunk
	// messages.
	Audio string `json:"audio,omitempty"`

	// Action is the control verb for control messages.
	Action string `json:"action,omitempty"`
}

// outboundMessage is the envelope for server messages.
type outboundMessage struct {
	Type string `json:"type"`

	// SessionID is set on connection_established.
	SessionID string `json:"session_id,omitempty"`

	// Language is the session's reply language, set on
	// connection_established.
	Language string `json:"language,omitempty"`

	// Text carries transcript and response_text payloads.
	Text string `json:"text,omitempty"`

	// Audio carries base64-encoded PCM16 for audio_chunk messages.
	Audio string `json:"audio,omitempty"`

	// Message carries the human-readable error description.
	Message string `json:"message,omitempty"`
}
