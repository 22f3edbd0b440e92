// Package apierror classifies transport failures into a closed set of kinds.
//
// Callers switch on Kind, or match with errors.Is against the sentinel
// values below:
//
//	if errors.Is(err, apierror.ErrNotFound) { ... }
//
//	var apiErr *apierror.Error
//	if errors.As(err, &apiErr) {
//		switch apiErr.Kind { ... }
//	}
package apierror

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/lukasbauer/fishaudio/wire"
)

// Kind tags an Error with its classification.
type Kind int

const (
	KindAuthentication Kind = iota + 1
	KindPayment
	KindNotFound
	KindHTTP
	KindStream
	KindConnectionLost
	KindDecode
)

func (k Kind) String() string {
	switch k {
	case KindAuthentication:
		return "authentication"
	case KindPayment:
		return "payment"
	case KindNotFound:
		return "not found"
	case KindHTTP:
		return "http"
	case KindStream:
		return "stream"
	case KindConnectionLost:
		return "connection lost"
	case KindDecode:
		return "decode"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// maxDetail caps detail text taken verbatim from an unstructured body.
const maxDetail = 512

// Error is a classified failure. StatusCode is zero for failures that did not
// come from an HTTP status line.
type Error struct {
	Kind       Kind
	StatusCode int
	Detail     string
	Err        error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString("fishaudio: ")
	b.WriteString(e.Kind.String())
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, " (status %d)", e.StatusCode)
	}
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error sentinel of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.StatusCode == 0 && t.Detail == "" && t.Err == nil
}

// Sentinels for errors.Is. They carry only a Kind.
var (
	ErrAuthentication = &Error{Kind: KindAuthentication}
	ErrPayment        = &Error{Kind: KindPayment}
	ErrNotFound       = &Error{Kind: KindNotFound}
	ErrHTTP           = &Error{Kind: KindHTTP}
	ErrStream         = &Error{Kind: KindStream}
	ErrConnectionLost = &Error{Kind: KindConnectionLost}
	ErrDecode         = &Error{Kind: KindDecode}
)

// Terminal conditions on closed resources.
var (
	ErrClientClosed  = errors.New("fishaudio: client closed")
	ErrSessionClosed = errors.New("fishaudio: session closed")
	ErrStreamClosed  = errors.New("fishaudio: stream closed")
)

// KindOf returns the kind of the first *Error in err's chain, or zero.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

// FromStatus classifies a non-2xx response. body is the raw response body
// and contentType its declared Content-Type; status is the status line used
// when the body carries no usable detail.
func FromStatus(code int, status string, contentType string, body []byte) *Error {
	kind := KindHTTP
	switch code {
	case http.StatusUnauthorized:
		kind = KindAuthentication
	case http.StatusPaymentRequired:
		kind = KindPayment
	case http.StatusNotFound:
		kind = KindNotFound
	}

	detail := extractDetail(contentType, body)
	if detail == "" {
		detail = strings.TrimSpace(status)
	}
	if detail == "" {
		detail = http.StatusText(code)
	}

	return &Error{Kind: kind, StatusCode: code, Detail: detail}
}

// FromResponse reads what is left of resp.Body (at most 64 KiB) and
// classifies it. The caller still owns closing the body.
func FromResponse(resp *http.Response) *Error {
	var buf bytes.Buffer
	if resp.Body != nil {
		_, _ = buf.ReadFrom(io.LimitReader(resp.Body, 64<<10))
	}
	return FromStatus(resp.StatusCode, resp.Status, resp.Header.Get("Content-Type"), buf.Bytes())
}

// Stream reports an error frame received from the peer mid-stream.
func Stream(detail string) *Error {
	if detail == "" {
		detail = "stream terminated by server"
	}
	return &Error{Kind: KindStream, Detail: detail}
}

// ConnectionLost reports a transport that went away without a protocol-level
// error frame.
func ConnectionLost(err error) *Error {
	return &Error{Kind: KindConnectionLost, Err: err}
}

// Decode reports a payload that could not be deserialized.
func Decode(err error) *Error {
	return &Error{Kind: KindDecode, Err: err}
}

func extractDetail(contentType string, body []byte) string {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return ""
	}

	codec, ok := wire.ForContentType(contentType)
	if !ok {
		codec = wire.JSON
	}

	var payload map[string]any
	if err := codec.Unmarshal(body, &payload); err == nil {
		for _, key := range []string{"detail", "message"} {
			if s := detailString(payload[key]); s != "" {
				return s
			}
		}
	}

	if codec == wire.MsgPack || !utf8.Valid(body) {
		return ""
	}

	text := string(body)
	if len(text) > maxDetail {
		text = strings.ToValidUTF8(text[:maxDetail], "")
	}
	return text
}

func detailString(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case []byte:
		return strings.TrimSpace(string(v))
	}

	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(data)
}
