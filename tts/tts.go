// Package tts binds the text-to-speech endpoint. The request type is shared
// with the live streaming session, whose handshake mirrors it.
package tts

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/lukasbauer/fishaudio/transport"
)

// Synthesizer converts text to speech.
type Synthesizer interface {
	// Synthesize returns the complete audio for req.
	Synthesize(ctx context.Context, req Request) ([]byte, error)

	// SynthesizeStream returns audio chunks as the service produces them.
	SynthesizeStream(ctx context.Context, req Request) (*transport.Stream, error)
}

// Format is the output audio container.
type Format string

const (
	FormatWAV  Format = "wav"
	FormatPCM  Format = "pcm"
	FormatMP3  Format = "mp3"
	FormatOpus Format = "opus"
)

// Latency trades quality for time to first audio.
type Latency string

const (
	LatencyNormal   Latency = "normal"
	LatencyBalanced Latency = "balanced"
)

// Reference is an inline voice sample used instead of a stored model.
type Reference struct {
	Audio []byte `json:"audio"`
	Text  string `json:"text"`
}

// Prosody adjusts speaking rate and loudness.
type Prosody struct {
	Speed  float64 `json:"speed"`
	Volume float64 `json:"volume"`
}

// Request is a synthesis request. Zero-valued optional fields are left to
// the service defaults.
type Request struct {
	Text        string      `json:"text"`
	ChunkLength int         `json:"chunk_length,omitempty"`
	Format      Format      `json:"format,omitempty"`
	SampleRate  int         `json:"sample_rate,omitempty"`
	MP3Bitrate  int         `json:"mp3_bitrate,omitempty"`
	OpusBitrate int         `json:"opus_bitrate,omitempty"`
	References  []Reference `json:"references,omitempty"`
	ReferenceID string      `json:"reference_id,omitempty"`
	Normalize   *bool       `json:"normalize,omitempty"`
	Latency     Latency     `json:"latency,omitempty"`
	Prosody     *Prosody    `json:"prosody,omitempty"`
	TopP        *float64    `json:"top_p,omitempty"`
	Temperature *float64    `json:"temperature,omitempty"`

	// Backend selects the synthesis model and travels as the "model" header.
	Backend string `json:"-"`
}

// HeaderBackend carries Request.Backend.
const HeaderBackend = "model"

var (
	mp3Bitrates  = []int{64, 128, 192}
	opusBitrates = []int{-1000, 24, 32, 48, 64}
)

// ErrEmptyText is returned when a one-shot synthesis has no input text.
var ErrEmptyText = errors.New("tts: text is empty")

// Validate checks the encoding-specific parameter ranges.
func (r Request) Validate() error {
	switch r.Format {
	case "", FormatWAV, FormatPCM, FormatMP3, FormatOpus:
	default:
		return fmt.Errorf("tts: unsupported format %q", r.Format)
	}

	if r.MP3Bitrate != 0 && !slices.Contains(mp3Bitrates, r.MP3Bitrate) {
		return fmt.Errorf("tts: mp3 bitrate %d not in %v", r.MP3Bitrate, mp3Bitrates)
	}
	if r.OpusBitrate != 0 && !slices.Contains(opusBitrates, r.OpusBitrate) {
		return fmt.Errorf("tts: opus bitrate %d not in %v", r.OpusBitrate, opusBitrates)
	}
	if r.ChunkLength != 0 && (r.ChunkLength < 100 || r.ChunkLength > 300) {
		return fmt.Errorf("tts: chunk length %d outside 100..300", r.ChunkLength)
	}
	if r.SampleRate < 0 {
		return fmt.Errorf("tts: negative sample rate %d", r.SampleRate)
	}

	switch r.Latency {
	case "", LatencyNormal, LatencyBalanced:
	default:
		return fmt.Errorf("tts: unsupported latency mode %q", r.Latency)
	}

	if r.Prosody != nil && r.Prosody.Speed < 0 {
		return fmt.Errorf("tts: negative prosody speed %v", r.Prosody.Speed)
	}
	if r.TopP != nil && (*r.TopP < 0 || *r.TopP > 1) {
		return fmt.Errorf("tts: top_p %v outside 0..1", *r.TopP)
	}
	if r.Temperature != nil && (*r.Temperature < 0 || *r.Temperature > 1) {
		return fmt.Errorf("tts: temperature %v outside 0..1", *r.Temperature)
	}

	return nil
}

// WithDefaults fills unset quality parameters with the defaults the
// service documents.
func (r Request) WithDefaults() Request {
	if r.Format == "" {
		r.Format = FormatMP3
	}
	if r.ChunkLength == 0 {
		r.ChunkLength = 200
	}
	if r.Format == FormatMP3 && r.MP3Bitrate == 0 {
		r.MP3Bitrate = 128
	}
	if r.Format == FormatOpus && r.OpusBitrate == 0 {
		r.OpusBitrate = -1000
	}
	if r.Latency == "" {
		r.Latency = LatencyBalanced
	}
	return r
}
