package cache

import (
	"encoding/json"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// Codec converts cached attribute hashes to and from bytes.
type Codec interface {
	Name() string
	Marshal(value map[string]any) ([]byte, error)
	Unmarshal(data []byte) (map[string]any, error)
}

// MsgpackCodec is the default codec. It is compact and keeps time.Time values intact.
type MsgpackCodec struct{}

// Name implements Codec.
func (MsgpackCodec) Name() string { return "msgpack" }

// Marshal implements Codec.
func (MsgpackCodec) Marshal(value map[string]any) ([]byte, error) {
	data, err := msgpack.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("msgpack encode: %w", err)
	}
	return data, nil
}

// Unmarshal implements Codec.
func (MsgpackCodec) Unmarshal(data []byte) (map[string]any, error) {
	var value map[string]any
	if err := msgpack.Unmarshal(data, &value); err != nil {
		return nil, fmt.Errorf("msgpack decode: %w", err)
	}
	return value, nil
}

// JSONCodec stores entries as JSON, which keeps them readable in redis-cli.
type JSONCodec struct{}

// Name implements Codec.
func (JSONCodec) Name() string { return "json" }

// Marshal implements Codec.
func (JSONCodec) Marshal(value map[string]any) ([]byte, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("json encode: %w", err)
	}
	return data, nil
}

// Unmarshal implements Codec.
func (JSONCodec) Unmarshal(data []byte) (map[string]any, error) {
	var value map[string]any
	if err := json.Unmarshal(data, &value); err != nil {
		return nil, fmt.Errorf("json decode: %w", err)
	}
	return value, nil
}

// CodecByName returns the codec registered under name.
func CodecByName(name string) (Codec, error) {
	switch name {
	case "", "msgpack":
		return MsgpackCodec{}, nil
	case "json":
		return JSONCodec{}, nil
	default:
		return nil, fmt.Errorf("unknown cache codec %q", name)
	}
}
