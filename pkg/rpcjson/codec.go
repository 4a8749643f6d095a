// Package rpcjson provides the Connect codecs used by every service. Messages
// are plain Go structs encoded as JSON, so the codec registers under every
// name Connect's default protobuf codecs use and replaces them.
package rpcjson

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"connectrpc.com/connect"
)

const (
	Name = "json"
	// NameCharsetUTF8 is what Connect resolves "application/json; charset=utf-8" to.
	NameCharsetUTF8 = "json; charset=utf-8"
	// NameProto is Connect's binary protobuf codec name.
	NameProto = "proto"
)

var ErrBinaryUnsupported = errors.New("binary protobuf is not supported, send application/json")

type Codec struct{}

var _ connect.Codec = Codec{}

func (Codec) Name() string { return Name }

func (Codec) Marshal(msg any) ([]byte, error) {
	b, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("marshal %T: %w", msg, err)
	}
	return b, nil
}

// Unmarshal treats an empty body as an empty message and rejects unknown fields.
func (Codec) Unmarshal(data []byte, msg any) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(msg); err != nil {
		return fmt.Errorf("unmarshal into %T: %w", msg, err)
	}
	return nil
}

// MarshalStable is used by Connect for GET requests.
func (c Codec) MarshalStable(msg any) ([]byte, error) {
	return c.Marshal(msg)
}

func (Codec) IsBinary() bool { return false }

// CharsetCodec is Codec registered under the charset-qualified name.
type CharsetCodec struct{ Codec }

func (CharsetCodec) Name() string { return NameCharsetUTF8 }

// binaryCodec takes the "proto" name so binary requests fail with a clear
// error instead of reaching the protobuf codec with non-proto messages.
type binaryCodec struct{}

func (binaryCodec) Name() string { return NameProto }

func (binaryCodec) Marshal(msg any) ([]byte, error) {
	return nil, fmt.Errorf("marshal %T: %w", msg, ErrBinaryUnsupported)
}

func (binaryCodec) Unmarshal(_ []byte, msg any) error {
	return fmt.Errorf("unmarshal into %T: %w", msg, ErrBinaryUnsupported)
}

// WithJSON registers the codecs on a handler or client. Clients keep the last
// codec given, so plain JSON comes last.
func WithJSON() connect.Option {
	return connect.WithOptions(
		connect.WithCodec(binaryCodec{}),
		connect.WithCodec(CharsetCodec{}),
		connect.WithCodec(Codec{}),
	)
}
