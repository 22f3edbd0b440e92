// Package eventlog records a usage ledger of CLI calls to the speech service.
package eventlog

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// EventType is the kind of usage event.
type EventType string

const (
	EventSynthesis     EventType = "tts_synthesis"
	EventLiveSession   EventType = "live_session"
	EventTranscription EventType = "asr_transcription"
	EventModelCreated  EventType = "model_created"
	EventModelUpdated  EventType = "model_updated"
	EventModelDeleted  EventType = "model_deleted"
	EventCreditChecked EventType = "credit_checked"
	EventCallFailed    EventType = "call_failed"
)

// Schema creates the ledger table. It is applied by the operator, not at
// startup.
const Schema = `
CREATE TABLE IF NOT EXISTS usage_events (
	id          BIGSERIAL PRIMARY KEY,
	request_id  TEXT        NOT NULL,
	event_type  TEXT        NOT NULL,
	event_data  JSONB       NOT NULL DEFAULT '{}',
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// Execer is the subset of *pgxpool.Pool the ledger needs.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Logger writes usage events to Postgres. A Logger without a database is a
// no-op.
type Logger struct {
	db Execer
}

// New creates a ledger on top of a pool. db may be nil.
func New(db *pgxpool.Pool) *Logger {
	if db == nil {
		return &Logger{}
	}
	return &Logger{db: db}
}

// NewWithExecer creates a ledger on top of any Execer.
func NewWithExecer(db Execer) *Logger {
	return &Logger{db: db}
}

// Log writes an event synchronously.
func (l *Logger) Log(ctx context.Context, requestID string, eventType EventType, data map[string]any) error {
	if l.db == nil || requestID == "" {
		return nil
	}

	dataJSON, err := json.Marshal(data)
	if err != nil {
		dataJSON = []byte("{}")
	}

	_, err = l.db.Exec(ctx, `
		INSERT INTO usage_events (request_id, event_type, event_data)
		VALUES ($1, $2, $3)
	`, requestID, string(eventType), dataJSON)

	return err
}

// LogAsync writes an event without blocking the caller. The returned
// channel is closed once the write has finished.
func (l *Logger) LogAsync(requestID string, eventType EventType, data map[string]any) <-chan struct{} {
	done := make(chan struct{})
	if l.db == nil || requestID == "" {
		close(done)
		return done
	}

	go func() {
		defer close(done)
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = l.Log(ctx, requestID, eventType, data)
	}()

	return done
}
