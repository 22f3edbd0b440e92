// Package wire holds the payload encodings shared by the request/response
// transport and the live streaming session.
//
// Two encodings are supported end to end: JSON for human-readable payloads
// and MessagePack for compact binary payloads. Binary fields ([]byte) are
// carried natively by MessagePack and never base64-embedded in JSON bodies by
// this library.
package wire

import (
	"encoding/json"
	"mime"
	"reflect"
	"strings"

	ugcodec "github.com/ugorji/go/codec"
)

// Content types understood by the service.
const (
	ContentTypeJSON    = "application/json"
	ContentTypeMsgPack = "application/msgpack"
)

// Codec serializes outbound payloads and deserializes inbound ones.
type Codec interface {
	// ContentType is the media type declared on bodies encoded by this codec.
	ContentType() string
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
}

var (
	// JSON is the textual encoding.
	JSON Codec = jsonCodec{}

	// MsgPack is the compact binary encoding.
	MsgPack Codec = msgpackCodec{handle: newMsgpackHandle()}
)

// ForContentType returns the codec registered for a Content-Type header
// value. Parameters such as charset are ignored.
func ForContentType(contentType string) (Codec, bool) {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = strings.TrimSpace(strings.ToLower(contentType))
	}

	switch mediaType {
	case ContentTypeJSON:
		return JSON, true
	case ContentTypeMsgPack, "application/x-msgpack":
		return MsgPack, true
	}

	return nil, false
}

type jsonCodec struct{}

func (jsonCodec) ContentType() string { return ContentTypeJSON }

func (jsonCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

type msgpackCodec struct {
	handle *ugcodec.MsgpackHandle
}

// newMsgpackHandle configures the handle once; ugorji handles must not be
// mutated after first use. Struct fields are named by their json tags.
func newMsgpackHandle() *ugcodec.MsgpackHandle {
	h := &ugcodec.MsgpackHandle{}
	h.WriteExt = true
	h.RawToString = true
	h.MapType = reflect.TypeOf(map[string]any(nil))
	return h
}

func (msgpackCodec) ContentType() string { return ContentTypeMsgPack }

func (c msgpackCodec) Marshal(v any) ([]byte, error) {
	var out []byte
	if err := ugcodec.NewEncoderBytes(&out, c.handle).Encode(v); err != nil {
		return nil, err
	}
	return out, nil
}

func (c msgpackCodec) Unmarshal(data []byte, v any) error {
	return ugcodec.NewDecoderBytes(data, c.handle).Decode(v)
}
