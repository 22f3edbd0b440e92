package app

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lukasbauer/fishaudio"
	"github.com/lukasbauer/fishaudio/internal/costs"
	"github.com/lukasbauer/fishaudio/internal/eventlog"
	"github.com/lukasbauer/fishaudio/live"
	"github.com/lukasbauer/fishaudio/tts"
	"github.com/lukasbauer/fishaudio/wire"
	"go.uber.org/zap"
)

type App struct {
	cfg      Config
	logger   *zap.Logger
	db       *pgxpool.Pool
	client   *fishaudio.Client
	eventLog *eventlog.Logger
}

func New(ctx context.Context, cfg Config, logger *zap.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	var db *pgxpool.Pool
	if cfg.DatabaseURL != "" {
		ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()

		var err error
		db, err = pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to open usage ledger: %w", err)
		}
		if err := db.Ping(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to reach usage ledger: %w", err)
		}
	}

	// The ledger schema (eventlog.Schema) is applied by the operator.

	codec := wire.MsgPack
	if cfg.LiveCodec == "json" {
		codec = wire.JSON
	}

	client := fishaudio.New(cfg.APIKey,
		fishaudio.WithBaseURL(cfg.BaseURL),
		fishaudio.WithLiveBaseURL(cfg.LiveURL),
		fishaudio.WithDeveloperID(cfg.DeveloperID),
		fishaudio.WithLogger(logger),
		fishaudio.WithLiveOptions(
			live.WithCodec(codec),
			live.WithPingInterval(cfg.PingInterval),
		),
	)

	return &App{
		cfg:      cfg,
		logger:   logger,
		db:       db,
		client:   client,
		eventLog: eventlog.New(db),
	}, nil
}

func (a *App) Client() *fishaudio.Client { return a.client }

func (a *App) EventLog() *eventlog.Logger { return a.eventLog }

func (a *App) Logger() *zap.Logger { return a.logger }

func (a *App) Rates() costs.Rates { return a.cfg.Rates() }

// SynthesisRequest applies the configured synthesis defaults to text.
func (a *App) SynthesisRequest(text string, format tts.Format) tts.Request {
	return tts.Request{
		Text:        text,
		Format:      format,
		ChunkLength: a.cfg.ChunkLength,
		ReferenceID: a.cfg.ReferenceID,
		Backend:     a.cfg.Backend,
	}.WithDefaults()
}

func (a *App) Close() error {
	err := a.client.Close()
	if a.db != nil {
		a.db.Close()
	}
	return err
}

// NewLogger builds the process logger. Production environments log JSON.
func NewLogger(level, environment string) (*zap.Logger, error) {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	cfg := zap.NewDevelopmentConfig()
	if environment == "production" {
		cfg = zap.NewProductionConfig()
	}
	cfg.Level = lvl
	cfg.OutputPaths = []string{"stderr"}

	return cfg.Build()
}
