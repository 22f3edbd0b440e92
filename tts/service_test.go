package tts

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/lukasbauer/fishaudio/apierror"
	"github.com/lukasbauer/fishaudio/transport"
	"github.com/lukasbauer/fishaudio/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mp3Frames is an ID3v2 header followed by one MPEG-1 Layer III frame header.
var mp3Frames = [][]byte{
	{'I', 'D', '3', 0x04, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00},
	{0xFF, 0xFB, 0x90, 0x64},
	make([]byte, 413),
}

func isMP3(data []byte) bool {
	if len(data) >= 3 && string(data[:3]) == "ID3" {
		return true
	}
	return len(data) >= 2 && data[0] == 0xFF && data[1]&0xE0 == 0xE0
}

func newTestService(t *testing.T, handler http.HandlerFunc, opts ...Option) *Service {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client := transport.New(transport.Identity{APIKey: "k", BaseURL: srv.URL, DeveloperID: "d"})
	t.Cleanup(func() { client.Close() })

	return NewService(client, opts...)
}

func TestSynthesizeStreamHelloWorld(t *testing.T) {
	var got map[string]any
	var backend string

	s := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, Path, r.URL.Path)
		assert.Equal(t, wire.ContentTypeJSON, r.Header.Get("Content-Type"))
		backend = r.Header.Get(HeaderBackend)
		body, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(body, &got))

		w.Header().Set("Content-Type", "audio/mpeg")
		for _, frame := range mp3Frames {
			w.Write(frame)
			w.(http.Flusher).Flush()
		}
	})

	stream, err := s.SynthesizeStream(context.Background(), Request{
		Text:    "Hello, world!",
		Format:  FormatMP3,
		Backend: "speech-1.5",
	})
	require.NoError(t, err)

	var audio []byte
	chunks := 0
	for chunk, err := range stream.All() {
		require.NoError(t, err)
		audio = append(audio, chunk...)
		chunks++
	}

	assert.GreaterOrEqual(t, chunks, 1)
	assert.True(t, isMP3(audio), "audio should start with an mp3 header")
	assert.Equal(t, "Hello, world!", got["text"])
	assert.Equal(t, "mp3", got["format"])
	assert.NotContains(t, got, "Backend")
	assert.Equal(t, "speech-1.5", backend)
}

func TestSynthesizeBuffers(t *testing.T) {
	s := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		for _, frame := range mp3Frames {
			w.Write(frame)
		}
	})

	audio, err := s.Synthesize(context.Background(), Request{Text: "hi"})
	require.NoError(t, err)
	assert.Len(t, audio, 10+4+413)
}

func TestSynthesizeRejectsBeforeSending(t *testing.T) {
	called := false
	s := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
	})

	_, err := s.SynthesizeStream(context.Background(), Request{})
	assert.ErrorIs(t, err, ErrEmptyText)

	_, err = s.SynthesizeStream(context.Background(), Request{Text: "x", Format: "flac"})
	assert.Error(t, err)

	_, err = s.SynthesizeStream(context.Background(), Request{
		Text:       "x",
		References: []Reference{{Audio: []byte{1, 2, 3}, Text: "ref"}},
	})
	assert.ErrorIs(t, err, ErrInlineReferences)

	assert.False(t, called)
}

func TestSynthesizeReferencesOverMsgPack(t *testing.T) {
	var got Request

	s := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		assert.NoError(t, wire.MsgPack.Unmarshal(body, &got))
		w.Write([]byte("RIFF"))
	}, WithCodec(wire.MsgPack))

	audio, err := s.Synthesize(context.Background(), Request{
		Text:       "x",
		Format:     FormatWAV,
		References: []Reference{{Audio: []byte{1, 2, 3}, Text: "ref"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "RIFF", string(audio))
	require.Len(t, got.References, 1)
	assert.Equal(t, []byte{1, 2, 3}, got.References[0].Audio)
}

func TestSynthesizePaymentRequired(t *testing.T) {
	s := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusPaymentRequired)
		w.Write([]byte(`{"detail":"No credit left"}`))
	})

	_, err := s.Synthesize(context.Background(), Request{Text: "hi"})
	assert.ErrorIs(t, err, apierror.ErrPayment)
}
