// Package grpcbridge carries hub/module frames over a bidirectional gRPC
// stream. Frames travel as JSON through a codec registered with grpc/encoding,
// so no generated protobuf code is involved.
package grpcbridge

import (
	"encoding/json"
	"fmt"

	"google.golang.org/grpc/encoding"

	"github.com/billm/framehub/pkg/protocol"
)

// CodecName is the content subtype frames are exchanged with
const CodecName = "json"

func init() {
	encoding.RegisterCodec(frameCodec{})
}

// frameCodec marshals protocol frames as JSON
type frameCodec struct{}

func (frameCodec) Marshal(v any) ([]byte, error) {
	f, ok := v.(*protocol.Frame)
	if !ok {
		return nil, fmt.Errorf("grpcbridge: cannot marshal %T", v)
	}
	return json.Marshal(f)
}

func (frameCodec) Unmarshal(data []byte, v any) error {
	f, ok := v.(*protocol.Frame)
	if !ok {
		return fmt.Errorf("grpcbridge: cannot unmarshal into %T", v)
	}
	return json.Unmarshal(data, f)
}

func (frameCodec) Name() string {
	return CodecName
}
