package tts

import (
	"strings"
	"testing"
)

func ptr[T any](v T) *T { return &v }

func TestRequestValidate(t *testing.T) {
	tests := []struct {
		name    string
		req     Request
		wantErr string
	}{
		{name: "zero value", req: Request{}},
		{name: "mp3 with bitrate", req: Request{Format: FormatMP3, MP3Bitrate: 192}},
		{name: "opus auto bitrate", req: Request{Format: FormatOpus, OpusBitrate: -1000}},
		{name: "chunk length bounds", req: Request{ChunkLength: 100}},
		{name: "prosody", req: Request{Prosody: &Prosody{Speed: 1.2, Volume: -3}}},
		{name: "bad format", req: Request{Format: "flac"}, wantErr: "unsupported format"},
		{name: "bad mp3 bitrate", req: Request{MP3Bitrate: 96}, wantErr: "mp3 bitrate"},
		{name: "bad opus bitrate", req: Request{OpusBitrate: 128}, wantErr: "opus bitrate"},
		{name: "chunk too short", req: Request{ChunkLength: 99}, wantErr: "chunk length"},
		{name: "chunk too long", req: Request{ChunkLength: 301}, wantErr: "chunk length"},
		{name: "bad latency", req: Request{Latency: "instant"}, wantErr: "latency"},
		{name: "negative sample rate", req: Request{SampleRate: -1}, wantErr: "sample rate"},
		{name: "top_p range", req: Request{TopP: ptr(1.5)}, wantErr: "top_p"},
		{name: "temperature range", req: Request{Temperature: ptr(-0.1)}, wantErr: "temperature"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() = %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestWithDefaults(t *testing.T) {
	got := Request{Text: "hi"}.WithDefaults()

	if got.Format != FormatMP3 {
		t.Errorf("Format = %q, want %q", got.Format, FormatMP3)
	}
	if got.ChunkLength != 200 {
		t.Errorf("ChunkLength = %d, want 200", got.ChunkLength)
	}
	if got.MP3Bitrate != 128 {
		t.Errorf("MP3Bitrate = %d, want 128", got.MP3Bitrate)
	}
	if got.Latency != LatencyBalanced {
		t.Errorf("Latency = %q, want %q", got.Latency, LatencyBalanced)
	}
	if got.Text != "hi" {
		t.Errorf("Text = %q, want %q", got.Text, "hi")
	}
}

func TestWithDefaultsKeepsExplicitValues(t *testing.T) {
	got := Request{Format: FormatOpus, ChunkLength: 150, Latency: LatencyNormal}.WithDefaults()

	if got.Format != FormatOpus {
		t.Errorf("Format = %q, want %q", got.Format, FormatOpus)
	}
	if got.ChunkLength != 150 {
		t.Errorf("ChunkLength = %d, want 150", got.ChunkLength)
	}
	if got.OpusBitrate != -1000 {
		t.Errorf("OpusBitrate = %d, want -1000", got.OpusBitrate)
	}
	if got.MP3Bitrate != 0 {
		t.Errorf("MP3Bitrate = %d, want 0 for opus", got.MP3Bitrate)
	}
	if got.Latency != LatencyNormal {
		t.Errorf("Latency = %q, want %q", got.Latency, LatencyNormal)
	}
}
