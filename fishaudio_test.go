package fishaudio

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/lukasbauer/fishaudio/apierror"
	"github.com/lukasbauer/fishaudio/live"
	"github.com/lukasbauer/fishaudio/tts"
	"github.com/lukasbauer/fishaudio/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	upgrader := websocket.Upgrader{}
	mux := http.NewServeMux()

	mux.HandleFunc("POST /v1/tts", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("developer-id") != "studio" || r.Header.Get("Authorization") != "Bearer secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "audio/mpeg")
		w.Write([]byte("ID3audio"))
	})

	mux.HandleFunc("GET /wallet/self/package", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"_id":"p","balance":7}`))
	})

	mux.HandleFunc("GET "+live.Path, func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var ev map[string]any
			if err := wire.MsgPack.Unmarshal(data, &ev); err != nil {
				return
			}
			if ev["event"] == "stop" {
				out, _ := wire.MsgPack.Marshal(map[string]any{"event": "audio", "audio": []byte("live")})
				conn.WriteMessage(websocket.BinaryMessage, out)
				out, _ = wire.MsgPack.Marshal(map[string]any{"event": "finish", "reason": "stop"})
				conn.WriteMessage(websocket.BinaryMessage, out)
			}
		}
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestClientWiring(t *testing.T) {
	srv := newTestServer(t)

	client := New("secret",
		WithBaseURL(srv.URL),
		WithLiveBaseURL(srv.URL),
		WithDeveloperID("studio"),
	)
	defer client.Close()

	audio, err := client.TTS.Synthesize(context.Background(), tts.Request{Text: "Hello, world!"})
	require.NoError(t, err)
	assert.Equal(t, "ID3audio", string(audio))

	pkg, err := client.Wallet.Package(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 7, pkg.Balance)

	s, err := client.Live.Open(context.Background(), tts.Request{})
	require.NoError(t, err)
	require.NoError(t, s.FinishInput())

	chunk, err := s.Next()
	require.NoError(t, err)
	assert.Equal(t, "live", string(chunk))

	_, err = s.Next()
	assert.Equal(t, io.EOF, err)
}

func TestClientClose(t *testing.T) {
	srv := newTestServer(t)

	client := New("secret", WithBaseURL(srv.URL), WithLiveBaseURL(srv.URL), WithDeveloperID("studio"))

	s, err := client.Live.Open(context.Background(), tts.Request{})
	require.NoError(t, err)

	require.NoError(t, client.Close())
	require.NoError(t, client.Close())

	assert.Equal(t, live.StateClosed, s.State())

	_, err = client.TTS.Synthesize(context.Background(), tts.Request{Text: "late"})
	assert.ErrorIs(t, err, apierror.ErrClientClosed)

	_, err = client.Live.Open(context.Background(), tts.Request{})
	assert.ErrorIs(t, err, apierror.ErrClientClosed)
}

func TestDefaults(t *testing.T) {
	client := New("k", WithLogger(nil))
	defer client.Close()
	assert.NotNil(t, client.TTS)
	assert.NotNil(t, client.Live)
}
