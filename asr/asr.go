// Package asr binds the speech recognition endpoint. Requests and results
// travel as MessagePack so audio is sent as raw bytes.
package asr

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/lukasbauer/fishaudio/transport"
	"github.com/lukasbauer/fishaudio/wire"
	"go.uber.org/zap"
)

// Path is the recognition endpoint.
const Path = "/v1/asr"

// ErrEmptyAudio is returned before sending a request without audio.
var ErrEmptyAudio = errors.New("asr: audio is empty")

// Transcriber converts speech to text.
type Transcriber interface {
	Transcribe(ctx context.Context, req Request) (*Result, error)
}

// Request is one recognition call.
type Request struct {
	Audio []byte `json:"audio"`

	// Language is an optional hint such as "en" or "zh".
	Language string `json:"language,omitempty"`

	// IgnoreTimestamps skips segment timing in the result.
	IgnoreTimestamps bool `json:"ignore_timestamps"`
}

// Segment is a timed span of the transcript. Offsets are in seconds.
type Segment struct {
	Text  string  `json:"text"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Result is the transcript of one request.
type Result struct {
	Text     string    `json:"text"`
	Duration float64   `json:"duration"` // seconds
	Segments []Segment `json:"segments"`
}

// AudioDuration returns Duration as a time.Duration.
func (r *Result) AudioDuration() time.Duration {
	return time.Duration(r.Duration * float64(time.Second))
}

// Service implements Transcriber over the request/response transport.
type Service struct {
	transport *transport.Client
	logger    *zap.Logger
}

var _ Transcriber = (*Service)(nil)

// NewService creates a recognition service on top of t.
func NewService(t *transport.Client, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{transport: t, logger: logger}
}

// Transcribe sends audio for recognition and waits for the full result.
func (s *Service) Transcribe(ctx context.Context, req Request) (*Result, error) {
	if len(req.Audio) == 0 {
		return nil, ErrEmptyAudio
	}

	s.logger.Debug("transcribe",
		zap.Int("audio_bytes", len(req.Audio)),
		zap.String("language", req.Language),
	)

	var result Result
	err := s.transport.Do(ctx, &transport.Request{
		Method: http.MethodPost,
		Path:   Path,
		Body:   req,
		Codec:  wire.MsgPack,
	}, &result)
	if err != nil {
		return nil, err
	}

	return &result, nil
}
