// Package live implements the duplex synthesis session: text fragments go
// out and audio fragments come back over one WebSocket connection, with no
// fixed correspondence between the two.
package live

import (
	"context"
	"io"
	"iter"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/lukasbauer/fishaudio/apierror"
	"github.com/lukasbauer/fishaudio/transport"
	"github.com/lukasbauer/fishaudio/tts"
	"github.com/lukasbauer/fishaudio/wire"
	"go.uber.org/zap"
)

// Path is the live synthesis endpoint.
const Path = "/v1/tts/live"

// DefaultPingInterval is how often an idle session pings the service.
const DefaultPingInterval = 20 * time.Second

// Client opens live sessions. Every session it opens is closed by Close.
type Client struct {
	identity     transport.Identity
	url          string
	dialer       *websocket.Dialer
	codec        wire.Codec
	pingInterval time.Duration
	logger       *zap.Logger

	mu       sync.Mutex
	sessions map[*Session]struct{}
	closed   bool
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the client logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithCodec sets the frame encoding. MessagePack travels in binary frames,
// JSON in text frames.
func WithCodec(codec wire.Codec) Option {
	return func(c *Client) {
		if codec != nil {
			c.codec = codec
		}
	}
}

// WithPingInterval sets the keep-alive interval. Zero or negative disables
// pings.
func WithPingInterval(d time.Duration) Option {
	return func(c *Client) {
		c.pingInterval = d
	}
}

// WithDialer replaces the WebSocket dialer.
func WithDialer(d *websocket.Dialer) Option {
	return func(c *Client) {
		if d != nil {
			c.dialer = d
		}
	}
}

// NewClient creates a live client. identity.BaseURL uses the ws or wss
// scheme; http and https are mapped to them.
func NewClient(identity transport.Identity, opts ...Option) *Client {
	identity.BaseURL = strings.TrimRight(identity.BaseURL, "/")

	c := &Client{
		identity: identity,
		url:      websocketURL(identity.BaseURL) + Path,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: 10 * time.Second,
		},
		codec:        wire.MsgPack,
		pingInterval: DefaultPingInterval,
		logger:       zap.NewNop(),
		sessions:     make(map[*Session]struct{}),
	}

	for _, opt := range opts {
		opt(c)
	}

	c.logger = c.logger.With(zap.String("component", "live"))

	return c
}

// Open dials the service and sends the session configuration. When
// req.Text is set it is sent as the first text fragment. ctx bounds the
// handshake only; the session lives until Close or a terminal frame.
func (c *Client) Open(ctx context.Context, req tts.Request) (*Session, error) {
	if c.isClosed() {
		return nil, apierror.ErrClientClosed
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if len(req.References) > 0 && c.codec.ContentType() == wire.ContentTypeJSON {
		return nil, tts.ErrInlineReferences
	}

	header := http.Header{}
	header.Set(transport.HeaderAuthorization, "Bearer "+c.identity.APIKey)
	header.Set(transport.HeaderDeveloperID, c.identity.DeveloperID)
	if req.Backend != "" {
		header.Set(tts.HeaderBackend, req.Backend)
	}

	conn, resp, err := c.dialer.DialContext(ctx, c.url, header)
	if err != nil {
		if resp != nil {
			if resp.Body != nil {
				defer resp.Body.Close()
			}
			if resp.StatusCode != http.StatusSwitchingProtocols {
				return nil, apierror.FromResponse(resp)
			}
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, apierror.ConnectionLost(err)
	}

	s := newSession(conn, c.codec, c.logger.With(zap.String("session_id", uuid.NewString())))

	s.onClose = func() { c.deregister(s) }
	s.start(c.pingInterval)
	if !c.register(s) {
		s.Close()
		return nil, apierror.ErrClientClosed
	}

	first := req.Text
	req.Text = ""
	if err := s.write(clientEvent{Event: eventStart, Request: &req}); err != nil {
		s.Close()
		return nil, err
	}
	if first != "" {
		if err := s.Send(first); err != nil {
			s.Close()
			return nil, err
		}
	}

	s.logger.Debug("session opened",
		zap.String("format", string(req.Format)),
		zap.String("latency", string(req.Latency)),
		zap.String("backend", req.Backend),
	)

	return s, nil
}

// Synthesize opens a session, feeds it texts from a separate goroutine and
// yields audio until the service finishes. Breaking out of the loop or
// cancelling ctx closes the session.
func (c *Client) Synthesize(ctx context.Context, req tts.Request, texts iter.Seq[string]) iter.Seq2[[]byte, error] {
	return func(yield func([]byte, error) bool) {
		s, err := c.Open(ctx, req)
		if err != nil {
			yield(nil, err)
			return
		}
		defer s.Close()

		stop := context.AfterFunc(ctx, func() { s.Close() })
		defer stop()

		go func() {
			for text := range texts {
				if err := s.Send(text); err != nil {
					return
				}
			}
			if err := s.FinishInput(); err != nil {
				s.logger.Debug("finish input failed", zap.Error(err))
			}
		}()

		for {
			chunk, err := s.Next()
			if err == io.EOF {
				return
			}
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					err = ctxErr
				}
				yield(nil, err)
				return
			}
			if !yield(chunk, nil) {
				return
			}
		}
	}
}

// Close closes every open session. Open fails afterwards with
// apierror.ErrClientClosed. Close is idempotent.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	sessions := make([]*Session, 0, len(c.sessions))
	for s := range c.sessions {
		sessions = append(sessions, s)
	}
	c.mu.Unlock()

	for _, s := range sessions {
		s.Close()
	}

	c.logger.Debug("client closed", zap.Int("sessions", len(sessions)))
	return nil
}

func (c *Client) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *Client) register(s *Session) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	c.sessions[s] = struct{}{}
	return true
}

func (c *Client) deregister(s *Session) {
	c.mu.Lock()
	delete(c.sessions, s)
	c.mu.Unlock()
}

func (c *Client) openSessions() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sessions)
}

func websocketURL(base string) string {
	switch {
	case strings.HasPrefix(base, "https://"):
		return "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		return "ws://" + strings.TrimPrefix(base, "http://")
	}
	return base
}
