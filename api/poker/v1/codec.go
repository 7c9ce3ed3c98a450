package pokerv1

import (
	"encoding/json"

	"google.golang.org/grpc/encoding"
	"google.golang.org/grpc/mem"
)

// CodecName is the gRPC content-subtype under which poker messages travel ("application/grpc+json").
const CodecName = "json"

func init() {
	encoding.RegisterCodecV2(Codec{})
}

// Codec marshals poker messages as JSON so they share one wire shape with the WebSocket events.
type Codec struct{}

func (Codec) Marshal(v any) (mem.BufferSlice, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return mem.BufferSlice{mem.SliceBuffer(b)}, nil
}

func (Codec) Unmarshal(data mem.BufferSlice, v any) error {
	buf := data.MaterializeToBuffer(mem.DefaultBufferPool())
	defer buf.Free()
	return json.Unmarshal(buf.ReadOnlyData(), v)
}

func (Codec) Name() string {
	return CodecName
}
