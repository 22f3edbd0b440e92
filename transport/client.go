// Package transport is the pooled request/response channel to the speech
// service. A Client owns its connection pool, injects authentication and
// attribution headers, and converts every failure into an *apierror.Error.
package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lukasbauer/fishaudio/apierror"
	"github.com/lukasbauer/fishaudio/wire"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

// Header names sent on every request.
const (
	HeaderAuthorization = "Authorization"
	HeaderDeveloperID   = "developer-id"
)

// Identity is the credential and routing information of a client. It is
// fixed at construction.
type Identity struct {
	APIKey      string
	BaseURL     string
	DeveloperID string
}

// Client performs request/response calls over a private connection pool.
type Client struct {
	identity Identity
	pool     *http.Transport
	http     *http.Client
	logger   *zap.Logger

	ctx       context.Context // cancelled by Close
	cancel    context.CancelFunc
	closed    atomic.Bool
	closeOnce sync.Once
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger used for per-request debug output.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates a client for one upstream endpoint.
func New(identity Identity, opts ...Option) *Client {
	identity.BaseURL = strings.TrimRight(identity.BaseURL, "/")

	pool := newPool()
	ctx, cancel := context.WithCancel(context.Background())

	c := &Client{
		identity: identity,
		pool:     pool,
		http:     &http.Client{Transport: otelhttp.NewTransport(pool)},
		logger:   zap.NewNop(),
		ctx:      ctx,
		cancel:   cancel,
	}

	for _, opt := range opts {
		opt(c)
	}

	c.logger = c.logger.With(zap.String("component", "transport"))

	return c
}

// newPool keeps TCP connections alive between calls to the single upstream
// host. There is no overall timeout: streamed bodies may be long-lived.
func newPool() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
}

// Close releases every pooled connection and aborts in-flight calls. Calls
// made afterwards fail with apierror.ErrClientClosed. Close is idempotent.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		c.cancel()
		c.pool.CloseIdleConnections()
		c.logger.Debug("client closed")
	})
	return nil
}

// Closed reports whether Close has been called.
func (c *Client) Closed() bool {
	return c.closed.Load()
}

// Request describes one call.
type Request struct {
	Method string
	Path   string
	Query  Query

	// Body is encoded with Codec, unless it is a *RawBody which is sent
	// verbatim.
	Body any

	// Codec is the encoding of Body and of the structured response.
	// Nil means wire.JSON.
	Codec wire.Codec

	Header http.Header
}

// RawBody is a pre-encoded request body such as a multipart form.
type RawBody struct {
	ContentType string
	Reader      io.Reader
}

func (r *Request) codec() wire.Codec {
	if r.Codec == nil {
		return wire.JSON
	}
	return r.Codec
}

// Do performs one request/response cycle and decodes the response into out.
// A nil out discards the body.
func (c *Client) Do(ctx context.Context, req *Request, out any) error {
	resp, release, err := c.send(ctx, req)
	if err != nil {
		return err
	}
	defer release()
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return c.transportError(err)
	}

	if out == nil {
		return nil
	}

	if len(bytes.TrimSpace(data)) == 0 {
		return apierror.Decode(fmt.Errorf("empty %s response body", req.Path))
	}

	if err := req.codec().Unmarshal(data, out); err != nil {
		return apierror.Decode(err)
	}

	return nil
}

// Stream performs one request and returns the response body as a lazy
// sequence of chunks. The caller must Close the stream, or drain it to the
// end.
func (c *Client) Stream(ctx context.Context, req *Request) (*Stream, error) {
	resp, release, err := c.send(ctx, req)
	if err != nil {
		return nil, err
	}

	return newStream(resp, release, c.closed.Load), nil
}

func (c *Client) send(ctx context.Context, req *Request) (*http.Response, func(), error) {
	if c.closed.Load() {
		return nil, nil, apierror.ErrClientClosed
	}

	ctx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(c.ctx, cancel)
	release := func() {
		stop()
		cancel()
	}

	httpReq, err := c.newRequest(ctx, req)
	if err != nil {
		release()
		return nil, nil, err
	}

	start := time.Now()

	resp, err := c.http.Do(httpReq)
	if err != nil {
		release()
		return nil, nil, c.transportError(err)
	}

	c.logger.Debug("request",
		zap.String("method", httpReq.Method),
		zap.String("path", req.Path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := apierror.FromResponse(resp)
		resp.Body.Close()
		release()
		return nil, nil, apiErr
	}

	return resp, release, nil
}

func (c *Client) newRequest(ctx context.Context, req *Request) (*http.Request, error) {
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	url := c.identity.BaseURL + "/" + strings.TrimLeft(req.Path, "/")
	if values := req.Query.Encode(); len(values) > 0 {
		url += "?" + values.Encode()
	}

	var body io.Reader
	var contentType string

	switch b := req.Body.(type) {
	case nil:
	case *RawBody:
		body = b.Reader
		contentType = b.ContentType
	default:
		data, err := req.codec().Marshal(b)
		if err != nil {
			return nil, fmt.Errorf("failed to encode %s request: %w", req.Path, err)
		}
		body = bytes.NewReader(data)
		contentType = req.codec().ContentType()
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	for key, values := range req.Header {
		for _, v := range values {
			httpReq.Header.Add(key, v)
		}
	}

	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	if httpReq.Header.Get("Accept") == "" {
		httpReq.Header.Set("Accept", req.codec().ContentType())
	}

	httpReq.Header.Set(HeaderAuthorization, "Bearer "+c.identity.APIKey)
	httpReq.Header.Set(HeaderDeveloperID, c.identity.DeveloperID)

	return httpReq, nil
}

func (c *Client) transportError(err error) error {
	if c.closed.Load() {
		return apierror.ErrClientClosed
	}
	return apierror.ConnectionLost(err)
}
