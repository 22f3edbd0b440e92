package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/lukasbauer/fishaudio/apierror"
	"github.com/lukasbauer/fishaudio/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c := New(Identity{APIKey: "test-key", BaseURL: srv.URL + "/", DeveloperID: "dev-123"})
	t.Cleanup(func() { c.Close() })

	return c
}

func TestDoInjectsAuthHeaders(t *testing.T) {
	var got http.Header

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ok":true}`))
	})

	var out struct {
		OK bool `json:"ok"`
	}

	err := c.Do(context.Background(), &Request{
		Method: http.MethodGet,
		Path:   "/model",
		Header: http.Header{
			"Authorization": []string{"Bearer caller-supplied"},
			"X-Trace":       []string{"abc"},
		},
	}, &out)

	require.NoError(t, err)
	assert.True(t, out.OK)
	assert.Equal(t, "Bearer test-key", got.Get("Authorization"))
	assert.Equal(t, "dev-123", got.Get("developer-id"))
	assert.Equal(t, "abc", got.Get("X-Trace"))
	assert.Equal(t, "application/json", got.Get("Accept"))
}

func TestDoClassifiesStatus(t *testing.T) {
	tests := []struct {
		status   int
		sentinel error
	}{
		{http.StatusUnauthorized, apierror.ErrAuthentication},
		{http.StatusPaymentRequired, apierror.ErrPayment},
		{http.StatusNotFound, apierror.ErrNotFound},
		{http.StatusBadRequest, apierror.ErrHTTP},
		{http.StatusTooManyRequests, apierror.ErrHTTP},
		{http.StatusBadGateway, apierror.ErrHTTP},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				fmt.Fprintf(w, `{"message":"failure %d"}`, tt.status)
			})

			err := c.Do(context.Background(), &Request{Path: "/model/x"}, &struct{}{})
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.sentinel)

			var apiErr *apierror.Error
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tt.status, apiErr.StatusCode)
			assert.Equal(t, fmt.Sprintf("failure %d", tt.status), apiErr.Detail)
			assert.NotContains(t, apiErr.Error(), "test-key")
		})
	}
}

func TestDoDecodeFailure(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"total": "not`))
	})

	var out Page[string]
	err := c.Do(context.Background(), &Request{Path: "/model"}, &out)
	assert.ErrorIs(t, err, apierror.ErrDecode)
	assert.NotErrorIs(t, err, apierror.ErrHTTP)
}

func TestDoMsgPackIsSymmetric(t *testing.T) {
	type echo struct {
		Audio []byte `json:"audio"`
		Text  string `json:"text"`
	}

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Content-Type") != wire.ContentTypeMsgPack {
			http.Error(w, "wrong content type", http.StatusUnsupportedMediaType)
			return
		}
		body, _ := io.ReadAll(r.Body)

		var in echo
		if err := wire.MsgPack.Unmarshal(body, &in); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		data, _ := wire.MsgPack.Marshal(echo{Text: fmt.Sprintf("%d bytes", len(in.Audio))})
		w.Header().Set("Content-Type", wire.ContentTypeMsgPack)
		w.Write(data)
	})

	var out echo
	err := c.Do(context.Background(), &Request{
		Method: http.MethodPost,
		Path:   "/v1/asr",
		Body:   echo{Audio: make([]byte, 100)},
		Codec:  wire.MsgPack,
	}, &out)

	require.NoError(t, err)
	assert.Equal(t, "100 bytes", out.Text)
}

func TestDoRawBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		assert.Equal(t, "multipart/form-data; boundary=xyz", r.Header.Get("Content-Type"))
		assert.Equal(t, "payload", string(body))
		w.Write([]byte(`{}`))
	})

	err := c.Do(context.Background(), &Request{
		Method: http.MethodPost,
		Path:   "/model",
		Body:   &RawBody{ContentType: "multipart/form-data; boundary=xyz", Reader: bytes.NewBufferString("payload")},
	}, &struct{}{})
	require.NoError(t, err)
}

func TestDoSendsTranslatedQuery(t *testing.T) {
	var rawQuery string

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		rawQuery = r.URL.RawQuery
		w.Write([]byte(`{"total":0,"items":[]}`))
	})

	var out Page[struct{}]
	err := c.Do(context.Background(), &Request{
		Path:  "/model",
		Query: Query{"pageSize": 10, "pageNumber": 1},
	}, &out)

	require.NoError(t, err)
	assert.Equal(t, "page_number=1&page_size=10", rawQuery)
}

func TestCloseIsIdempotentAndTerminal(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(`{}`))
	})

	require.NoError(t, c.Do(context.Background(), &Request{Path: "/model"}, nil))

	require.NoError(t, c.Close())
	require.NoError(t, c.Close())
	assert.True(t, c.Closed())

	err := c.Do(context.Background(), &Request{Path: "/model"}, nil)
	assert.ErrorIs(t, err, apierror.ErrClientClosed)

	_, err = c.Stream(context.Background(), &Request{Path: "/v1/tts"})
	assert.ErrorIs(t, err, apierror.ErrClientClosed)

	assert.Equal(t, int32(1), calls.Load())
}

func TestCloseUnblocksInFlightStream(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("first"))
		w.(http.Flusher).Flush()
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})

	s, err := c.Stream(context.Background(), &Request{Method: http.MethodPost, Path: "/v1/tts"})
	require.NoError(t, err)

	chunk, err := s.Next()
	require.NoError(t, err)
	assert.Equal(t, "first", string(chunk))

	done := make(chan error, 1)
	go func() {
		_, err := s.Next()
		done <- err
	}()

	time.Sleep(50 * time.Millisecond)
	c.Close()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, apierror.ErrClientClosed)
	case <-time.After(5 * time.Second):
		t.Fatal("Next did not return after Close")
	}
}

func TestTransportFailureIsConnectionLost(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := New(Identity{APIKey: "k", BaseURL: url, DeveloperID: "d"})
	defer c.Close()

	err := c.Do(context.Background(), &Request{Path: "/model"}, nil)
	assert.ErrorIs(t, err, apierror.ErrConnectionLost)
}

func TestCallerCancellation(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := c.Do(ctx, &Request{Path: "/model"}, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}
