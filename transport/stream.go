package transport

import (
	"errors"
	"io"
	"iter"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/lukasbauer/fishaudio/apierror"
)

// chunkSize bounds a single read; chunks are whatever the peer has
// delivered so far, up to this size.
const chunkSize = 32 << 10

// Stream is a response body consumed chunk by chunk in arrival order.
type Stream struct {
	resp         *http.Response
	release      func()
	clientClosed func() bool
	buf          []byte

	mu  sync.Mutex
	err error // sticky terminal condition

	closed       atomic.Bool
	shutdownOnce sync.Once
}

func newStream(resp *http.Response, release func(), clientClosed func() bool) *Stream {
	return &Stream{
		resp:         resp,
		release:      release,
		clientClosed: clientClosed,
		buf:          make([]byte, chunkSize),
	}
}

// Header returns the response headers.
func (s *Stream) Header() http.Header {
	return s.resp.Header
}

// Next returns the next chunk. It returns io.EOF once the peer has finished
// the body; any other error is an *apierror.Error or a closed-resource
// sentinel and is returned again on every later call.
func (s *Stream) Next() ([]byte, error) {
	if err := s.sticky(); err != nil {
		return nil, err
	}

	for {
		n, err := s.resp.Body.Read(s.buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, s.buf[:n])
			if err != nil {
				s.fail(err)
			}
			return chunk, nil
		}
		if err != nil {
			return nil, s.fail(err)
		}
	}
}

// All yields every remaining chunk. Breaking out of the loop closes the
// stream; a failure is yielded once as the final element.
func (s *Stream) All() iter.Seq2[[]byte, error] {
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

// WriteTo copies the remaining chunks to w.
func (s *Stream) WriteTo(w io.Writer) (int64, error) {
	var total int64
	for chunk, err := range s.All() {
		if err != nil {
			return total, err
		}
		n, err := w.Write(chunk)
		total += int64(n)
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// Close discards unread chunks and releases the connection. It is safe to
// call concurrently with Next and more than once.
func (s *Stream) Close() error {
	if s.closed.CompareAndSwap(false, true) {
		s.mu.Lock()
		if s.err == nil {
			s.err = apierror.ErrStreamClosed
		}
		s.mu.Unlock()
	}
	s.shutdown()
	return nil
}

func (s *Stream) shutdown() {
	s.shutdownOnce.Do(func() {
		s.resp.Body.Close()
		s.release()
	})
}

func (s *Stream) sticky() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *Stream) fail(cause error) error {
	var err error
	switch {
	case s.closed.Load():
		err = apierror.ErrStreamClosed
	case s.clientClosed():
		err = apierror.ErrClientClosed
	case errors.Is(cause, io.EOF):
		err = io.EOF
	default:
		err = apierror.ConnectionLost(cause)
	}

	s.mu.Lock()
	if s.err == nil {
		s.err = err
	}
	err = s.err
	s.mu.Unlock()

	s.shutdown()
	return err
}
