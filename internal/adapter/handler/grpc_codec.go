package handler

import (
	"encoding/json"

	"google.golang.org/grpc/encoding"
)

// jsonCodec carries plain Go structs over gRPC under the "json" content
// subtype. Clients opt in with grpc.CallContentSubtype(codecName).
type jsonCodec struct{}

const codecName = "json"

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

func (jsonCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

func (jsonCodec) Name() string {
	return codecName
}
