// Package fishaudio is a client for the Fish Audio speech service: one-shot
// and streamed text-to-speech, speech recognition, voice model management,
// wallet queries and live duplex synthesis.
//
//	client := fishaudio.New(os.Getenv("FISH_API_KEY"))
//	defer client.Close()
//
//	audio, err := client.TTS.Synthesize(ctx, tts.Request{Text: "Hello, world!"})
package fishaudio

import (
	"github.com/lukasbauer/fishaudio/asr"
	"github.com/lukasbauer/fishaudio/live"
	"github.com/lukasbauer/fishaudio/model"
	"github.com/lukasbauer/fishaudio/transport"
	"github.com/lukasbauer/fishaudio/tts"
	"github.com/lukasbauer/fishaudio/wallet"
	"go.uber.org/zap"
)

const (
	DefaultBaseURL     = "https://api.fish.audio"
	DefaultLiveURL     = "wss://api.fish.audio"
	DefaultDeveloperID = "fishaudio-go"
)

// Client bundles the services of one account. The request/response services
// share one connection pool; live sessions each own their socket.
type Client struct {
	TTS    *tts.Service
	ASR    *asr.Service
	Models *model.Service
	Wallet *wallet.Service
	Live   *live.Client

	transport *transport.Client
}

type options struct {
	baseURL     string
	liveURL     string
	developerID string
	logger      *zap.Logger
	liveOpts    []live.Option
}

// Option configures a Client.
type Option func(*options)

// WithBaseURL overrides the HTTP endpoint.
func WithBaseURL(url string) Option {
	return func(o *options) { o.baseURL = url }
}

// WithLiveBaseURL overrides the WebSocket endpoint.
func WithLiveBaseURL(url string) Option {
	return func(o *options) { o.liveURL = url }
}

// WithDeveloperID sets the attribution header sent with every call.
func WithDeveloperID(id string) Option {
	return func(o *options) { o.developerID = id }
}

// WithLogger sets the logger shared by every service.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithLiveOptions passes options through to the live client.
func WithLiveOptions(opts ...live.Option) Option {
	return func(o *options) { o.liveOpts = append(o.liveOpts, opts...) }
}

// New creates a client authenticated with apiKey.
func New(apiKey string, opts ...Option) *Client {
	o := options{
		baseURL:     DefaultBaseURL,
		liveURL:     DefaultLiveURL,
		developerID: DefaultDeveloperID,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}

	t := transport.New(transport.Identity{
		APIKey:      apiKey,
		BaseURL:     o.baseURL,
		DeveloperID: o.developerID,
	}, transport.WithLogger(o.logger))

	liveOpts := append([]live.Option{live.WithLogger(o.logger)}, o.liveOpts...)

	return &Client{
		TTS:    tts.NewService(t, tts.WithLogger(o.logger)),
		ASR:    asr.NewService(t, o.logger),
		Models: model.NewService(t, o.logger),
		Wallet: wallet.NewService(t),
		Live: live.NewClient(transport.Identity{
			APIKey:      apiKey,
			BaseURL:     o.liveURL,
			DeveloperID: o.developerID,
		}, liveOpts...),
		transport: t,
	}
}

// Close releases the connection pool and closes every live session.
func (c *Client) Close() error {
	c.Live.Close()
	return c.transport.Close()
}
