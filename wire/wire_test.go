package wire

import (
	"bytes"
	"testing"
)

type sample struct {
	Audio    []byte `json:"audio"`
	Language string `json:"language,omitempty"`
	Count    int    `json:"count"`
}

func TestForContentType(t *testing.T) {
	tests := []struct {
		contentType string
		want        Codec
		ok          bool
	}{
		{"application/json", JSON, true},
		{"application/json; charset=utf-8", JSON, true},
		{"Application/JSON", JSON, true},
		{"application/msgpack", MsgPack, true},
		{"application/x-msgpack", MsgPack, true},
		{"audio/mpeg", nil, false},
		{"", nil, false},
	}

	for _, tt := range tests {
		got, ok := ForContentType(tt.contentType)
		if ok != tt.ok {
			t.Errorf("ForContentType(%q) ok = %v, want %v", tt.contentType, ok, tt.ok)
			continue
		}
		if got != tt.want {
			t.Errorf("ForContentType(%q) = %v, want %v", tt.contentType, got, tt.want)
		}
	}
}

func TestMsgPackKeepsBinaryFields(t *testing.T) {
	in := sample{Audio: []byte{0x00, 0xff, 0x10, 0x80}, Count: 3}

	data, err := MsgPack.Marshal(in)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var out sample
	if err := MsgPack.Unmarshal(data, &out); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if !bytes.Equal(out.Audio, in.Audio) {
		t.Errorf("Audio = %v, want %v", out.Audio, in.Audio)
	}
	if out.Count != 3 {
		t.Errorf("Count = %d, want 3", out.Count)
	}

	var fields map[string]any
	if err := MsgPack.Unmarshal(data, &fields); err != nil {
		t.Fatalf("Unmarshal map: %v", err)
	}
	if _, ok := fields["audio"]; !ok {
		t.Error("expected json tag name \"audio\" as msgpack key")
	}
	if _, ok := fields["language"]; ok {
		t.Error("omitempty field should not be encoded")
	}
}

func TestMalformedPayloads(t *testing.T) {
	var out sample

	if err := JSON.Unmarshal([]byte(`{"audio":`), &out); err == nil {
		t.Error("JSON.Unmarshal should fail on truncated input")
	}
	if err := MsgPack.Unmarshal([]byte{0xc1}, &out); err == nil {
		t.Error("MsgPack.Unmarshal should fail on reserved type byte")
	}
}

func TestContentTypes(t *testing.T) {
	if JSON.ContentType() != ContentTypeJSON {
		t.Errorf("JSON.ContentType() = %q", JSON.ContentType())
	}
	if MsgPack.ContentType() != ContentTypeMsgPack {
		t.Errorf("MsgPack.ContentType() = %q", MsgPack.ContentType())
	}
}
