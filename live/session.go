package live

import (
	"errors"
	"fmt"
	"io"
	"iter"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/lukasbauer/fishaudio/apierror"
	"github.com/lukasbauer/fishaudio/wire"
	"go.uber.org/zap"
)

// writeWait bounds control frame writes.
const writeWait = 5 * time.Second

// ErrInputFinished is returned by Send and Flush after FinishInput.
var ErrInputFinished = errors.New("live: input already finished")

// State is the connection state of a session.
type State int32

const (
	StateConnecting State = iota
	StateOpen
	StateClosing
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// Session is one live synthesis session. Send, Flush and FinishInput may be
// called concurrently with Next; a session is used by a single caller and
// never reopened once closed.
type Session struct {
	conn   *websocket.Conn
	codec  wire.Codec
	logger *zap.Logger

	state atomic.Int32
	done  chan struct{}
	wg    sync.WaitGroup // keep-alive goroutine

	writeMu sync.Mutex
	readMu  sync.Mutex // one reader at a time

	inputFinished  atomic.Bool
	outputFinished atomic.Bool
	finishOnce     sync.Once
	finishErr      error

	errMu sync.Mutex
	err   error // sticky terminal condition

	closeOnce  sync.Once
	closeAcked atomic.Bool // peer answered our close frame
	onClose    func()
}

func newSession(conn *websocket.Conn, codec wire.Codec, logger *zap.Logger) *Session {
	s := &Session{
		conn:   conn,
		codec:  codec,
		logger: logger,
		done:   make(chan struct{}),
	}
	s.state.Store(int32(StateConnecting))
	return s
}

func (s *Session) start(pingInterval time.Duration) {
	if !s.state.CompareAndSwap(int32(StateConnecting), int32(StateOpen)) {
		return
	}
	if pingInterval > 0 {
		s.wg.Add(1)
		go s.keepAlive(pingInterval)
	}
}

// State returns the connection state.
func (s *Session) State() State {
	return State(s.state.Load())
}

// InputFinished reports whether FinishInput has been called.
func (s *Session) InputFinished() bool {
	return s.inputFinished.Load()
}

// OutputFinished reports whether the service signalled the end of audio.
func (s *Session) OutputFinished() bool {
	return s.outputFinished.Load()
}

// Send queues a text fragment for synthesis. Empty fragments are ignored.
func (s *Session) Send(text string) error {
	if s.isDone() {
		return apierror.ErrSessionClosed
	}
	if s.inputFinished.Load() {
		return ErrInputFinished
	}
	if text == "" {
		return nil
	}
	return s.write(clientEvent{Event: eventText, Text: text})
}

// Flush asks the service to synthesize whatever text it has buffered.
func (s *Session) Flush() error {
	if s.isDone() {
		return apierror.ErrSessionClosed
	}
	if s.inputFinished.Load() {
		return ErrInputFinished
	}
	return s.write(clientEvent{Event: eventFlush})
}

// FinishInput tells the service no more text follows. It does not wait for
// the remaining audio and is idempotent.
func (s *Session) FinishInput() error {
	s.finishOnce.Do(func() {
		s.inputFinished.Store(true)
		s.finishErr = s.write(clientEvent{Event: eventStop})
	})
	return s.finishErr
}

// Next returns the next audio chunk. It returns io.EOF once the service has
// finished, an *apierror.Error if it reported a failure or the connection
// dropped, and apierror.ErrSessionClosed after Close. Terminal results are
// sticky and release the connection.
func (s *Session) Next() ([]byte, error) {
	s.readMu.Lock()
	defer s.readMu.Unlock()

	for {
		if err := s.loadErr(); err != nil {
			return nil, err
		}
		if s.isDone() {
			return nil, apierror.ErrSessionClosed
		}

		messageType, data, err := s.conn.ReadMessage()
		if err != nil {
			return nil, s.fail(s.readError(err))
		}

		chunk, err := s.handle(messageType, data)
		if err != nil {
			return nil, s.fail(err)
		}
		if len(chunk) > 0 {
			return chunk, nil
		}
	}
}

// Audio iterates over the remaining audio chunks. The session is closed when
// iteration stops.
func (s *Session) Audio() iter.Seq2[[]byte, error] {
	return func(yield func([]byte, error) bool) {
		defer s.Close()
		for {
			chunk, err := s.Next()
			if err == io.EOF {
				return
			}
			if err != nil {
				yield(nil, err)
				return
			}
			if !yield(chunk, nil) {
				return
			}
		}
	}
}

// Close sends a close frame, waits up to writeWait for the reply unless Next
// is reading, then closes the connection and stops the keep-alive goroutine.
// Unread audio is discarded. Close is idempotent.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.state.Store(int32(StateClosing))
		close(s.done)

		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		if err := s.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait)); err != nil {
			s.logger.Debug("close frame not sent", zap.Error(err))
		} else {
			s.awaitCloseReply()
		}
		if err := s.conn.Close(); err != nil {
			s.logger.Debug("close connection", zap.Error(err))
		}

		s.wg.Wait()
		s.setErr(apierror.ErrSessionClosed)
		s.state.Store(int32(StateClosed))

		if s.onClose != nil {
			s.onClose()
		}
		s.logger.Debug("session closed")
	})
	return nil
}

// awaitCloseReply discards inbound frames until the peer answers the close
// frame, for at most writeWait. It is skipped while Next holds the reader;
// closing the socket is what unblocks that reader.
func (s *Session) awaitCloseReply() {
	if !s.readMu.TryLock() {
		return
	}
	defer s.readMu.Unlock()

	if s.loadErr() != nil {
		return
	}
	if err := s.conn.SetReadDeadline(time.Now().Add(writeWait)); err != nil {
		return
	}
	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				s.closeAcked.Store(true)
			}
			return
		}
	}
}

func (s *Session) handle(messageType int, data []byte) ([]byte, error) {
	// In JSON mode audio arrives as raw binary frames.
	if messageType == websocket.BinaryMessage && s.codec.ContentType() == wire.ContentTypeJSON {
		return data, nil
	}

	codec := s.codec
	if messageType == websocket.TextMessage {
		codec = wire.JSON
	}

	var ev serverEvent
	if err := codec.Unmarshal(data, &ev); err != nil {
		return nil, apierror.Decode(err)
	}

	switch ev.Event {
	case eventAudio:
		return ev.Audio, nil
	case eventFinish:
		s.outputFinished.Store(true)
		if ev.Reason == reasonError {
			return nil, apierror.Stream(ev.detail())
		}
		return nil, io.EOF
	case eventError:
		return nil, apierror.Stream(ev.detail())
	case eventLog:
		s.logger.Debug("service log", zap.String("message", ev.Message))
	default:
		s.logger.Debug("unknown event", zap.String("event", ev.Event))
	}
	return nil, nil
}

func (s *Session) readError(err error) error {
	if s.isDone() {
		return apierror.ErrSessionClosed
	}

	var closeErr *websocket.CloseError
	if errors.As(err, &closeErr) {
		switch closeErr.Code {
		case websocket.CloseNormalClosure:
			return io.EOF
		case websocket.CloseAbnormalClosure, websocket.CloseNoStatusReceived:
			return apierror.ConnectionLost(err)
		default:
			detail := closeErr.Text
			if detail == "" {
				detail = fmt.Sprintf("closed by server with code %d", closeErr.Code)
			}
			return apierror.Stream(detail)
		}
	}

	return apierror.ConnectionLost(err)
}

func (s *Session) write(ev clientEvent) error {
	if s.isDone() {
		return apierror.ErrSessionClosed
	}

	data, err := s.codec.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to encode %s event: %w", ev.Event, err)
	}

	messageType := websocket.BinaryMessage
	if s.codec.ContentType() == wire.ContentTypeJSON {
		messageType = websocket.TextMessage
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if s.isDone() {
		return apierror.ErrSessionClosed
	}
	if err := s.conn.WriteMessage(messageType, data); err != nil {
		if s.isDone() {
			return apierror.ErrSessionClosed
		}
		return apierror.ConnectionLost(err)
	}
	return nil
}

func (s *Session) keepAlive(interval time.Duration) {
	defer s.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			if err := s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				s.logger.Debug("ping failed", zap.Error(err))
				return
			}
		}
	}
}

// fail records err as the terminal condition unless one is already set, then
// releases the connection.
func (s *Session) fail(err error) error {
	s.setErr(err)
	s.Close()
	return s.loadErr()
}

func (s *Session) setErr(err error) {
	s.errMu.Lock()
	if s.err == nil {
		s.err = err
	}
	s.errMu.Unlock()
}

func (s *Session) loadErr() error {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.err
}

func (s *Session) isDone() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}
