package live

import "github.com/lukasbauer/fishaudio/tts"

// Outbound event names.
const (
	eventStart = "start"
	eventText  = "text"
	eventFlush = "flush"
	eventStop  = "stop"
)

// Inbound event names.
const (
	eventAudio  = "audio"
	eventFinish = "finish"
	eventLog    = "log"
	eventError  = "error"
)

// Finish reasons.
const (
	reasonStop  = "stop"
	reasonError = "error"
)

// clientEvent is a frame sent to the service.
type clientEvent struct {
	Event   string       `json:"event"`
	Request *tts.Request `json:"request,omitempty"`
	Text    string       `json:"text,omitempty"`
}

// serverEvent is a frame received from the service.
type serverEvent struct {
	Event   string `json:"event"`
	Audio   []byte `json:"audio,omitempty"`
	Reason  string `json:"reason,omitempty"`
	Message string `json:"message,omitempty"`
	Detail  string `json:"detail,omitempty"`
}

// detail returns the most specific human-readable text in the event.
func (e *serverEvent) detail() string {
	if e.Detail != "" {
		return e.Detail
	}
	return e.Message
}
