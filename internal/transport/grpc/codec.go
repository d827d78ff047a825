package grpc

import (
	"encoding/json"

	"google.golang.org/grpc/encoding"
)

// codecName is the content subtype clients select with
// grpc.CallContentSubtype; requests arrive as application/grpc+json.
const codecName = "json"

// jsonCodec carries the model types directly, so the ledger API needs no
// generated message code.
type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error) { return json.Marshal(v) }

func (jsonCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }

func (jsonCodec) Name() string { return codecName }

func init() {
	encoding.RegisterCodec(jsonCodec{})
}
