package grpc

import (
	"encoding/json"

	"google.golang.org/grpc/encoding"
)

// The catalog messages are plain Go structs, so they travel as JSON under the
// "json" content-subtype. Proto services on the same server are unaffected.
const codecName = "json"

type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error)      { return json.Marshal(v) }
func (jsonCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }
func (jsonCodec) Name() string                       { return codecName }

func init() {
	encoding.RegisterCodec(jsonCodec{})
}
