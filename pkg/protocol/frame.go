package protocol

import (
	"encoding/json"
	"fmt"
)

// Kind distinguishes the three frame roles on the wire
type Kind string

const (
	KindRequest  Kind = "request"
	KindResponse Kind = "response"
	KindEvent    Kind = "event"
)

// Frame is the unit carried across the boundary. A request expects exactly
// one response with the same ID; an event is never answered.
type Frame struct {
	ID      string          `json:"id"`
	Kind    Kind            `json:"kind"`
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// NewFrame builds a frame with payload encoded as JSON. A nil payload is omitted.
func NewFrame(id string, kind Kind, typ MessageType, payload any) (Frame, error) {
	f := Frame{ID: id, Kind: kind, Type: typ}
	if payload == nil {
		return f, nil
	}
	if raw, ok := payload.(json.RawMessage); ok {
		f.Payload = raw
		return f, nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return Frame{}, fmt.Errorf("encode %s payload: %w", typ, err)
	}
	if string(data) != "null" {
		f.Payload = data
	}
	return f, nil
}

// Validate checks the structural invariants of a frame
func (f Frame) Validate() error {
	if f.ID == "" {
		return fmt.Errorf("frame without id")
	}
	switch f.Kind {
	case KindRequest, KindEvent:
		if !f.Type.Valid() {
			return fmt.Errorf("unknown message type %q", f.Type)
		}
	case KindResponse:
	default:
		return fmt.Errorf("unknown frame kind %q", f.Kind)
	}
	return nil
}

// Clone returns a frame with its own copy of the payload bytes
func (f Frame) Clone() Frame {
	if f.Payload != nil {
		f.Payload = append(json.RawMessage(nil), f.Payload...)
	}
	return f
}

// Encode marshals the frame to JSON
func (f Frame) Encode() ([]byte, error) {
	return json.Marshal(f)
}

// DecodeFrame unmarshals and validates a JSON frame
func DecodeFrame(data []byte) (Frame, error) {
	var f Frame
	if err := json.Unmarshal(data, &f); err != nil {
		return Frame{}, fmt.Errorf("decode frame: %w", err)
	}
	if err := f.Validate(); err != nil {
		return Frame{}, err
	}
	return f, nil
}
