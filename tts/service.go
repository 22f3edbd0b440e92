package tts

import (
	"bytes"
	"context"
	"errors"
	"net/http"

	"github.com/lukasbauer/fishaudio/transport"
	"github.com/lukasbauer/fishaudio/wire"
	"go.uber.org/zap"
)

// Path is the synthesis endpoint.
const Path = "/v1/tts"

// ErrInlineReferences is returned when inline reference audio would have to
// be embedded in a textual body.
var ErrInlineReferences = errors.New("tts: inline references require the msgpack encoding")

// Service implements Synthesizer over the request/response transport.
type Service struct {
	transport *transport.Client
	codec     wire.Codec
	logger    *zap.Logger
}

var _ Synthesizer = (*Service)(nil)

// Option configures a Service.
type Option func(*Service)

// WithCodec sets the request body encoding. The default is JSON.
func WithCodec(codec wire.Codec) Option {
	return func(s *Service) {
		if codec != nil {
			s.codec = codec
		}
	}
}

// WithLogger sets the service logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewService creates a synthesis service on top of t.
func NewService(t *transport.Client, opts ...Option) *Service {
	s := &Service{
		transport: t,
		codec:     wire.JSON,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Synthesize converts text to speech and returns the whole audio.
func (s *Service) Synthesize(ctx context.Context, req Request) ([]byte, error) {
	stream, err := s.SynthesizeStream(ctx, req)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if _, err := stream.WriteTo(&buf); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// SynthesizeStream converts text to speech and streams audio chunks in the
// order the service produces them.
func (s *Service) SynthesizeStream(ctx context.Context, req Request) (*transport.Stream, error) {
	if req.Text == "" {
		return nil, ErrEmptyText
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if len(req.References) > 0 && s.codec == wire.JSON {
		return nil, ErrInlineReferences
	}

	header := http.Header{}
	header.Set("Accept", "*/*")
	if req.Backend != "" {
		header.Set(HeaderBackend, req.Backend)
	}

	s.logger.Debug("synthesize",
		zap.Int("text_len", len(req.Text)),
		zap.String("format", string(req.Format)),
		zap.String("backend", req.Backend),
	)

	return s.transport.Stream(ctx, &transport.Request{
		Method: http.MethodPost,
		Path:   Path,
		Body:   req,
		Codec:  s.codec,
		Header: header,
	})
}
