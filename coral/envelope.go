package coral

import (
	"encoding/json"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// Envelope is the wire unit. One request envelope yields exactly one response
// envelope with a matching `ResponseTo`, or the caller is resolved with a
// connection failure when the transport closes first. Envelopes are created
// per call and never reused.
//
// Unknown fields and unknown metadata keys are tolerated on decode.
type Envelope struct {
	RequestId    Id                `json:"request_id" msgpack:"request_id"`
	ResponseTo   *Id               `json:"response_to,omitempty" msgpack:"response_to,omitempty"`
	Op           string            `json:"op" msgpack:"op"`
	Payload      json.RawMessage   `json:"payload,omitempty" msgpack:"payload,omitempty"`
	Version      int               `json:"version" msgpack:"version"`
	IsError      bool              `json:"is_error,omitempty" msgpack:"is_error,omitempty"`
	ErrorCode    string            `json:"error_code,omitempty" msgpack:"error_code,omitempty"`
	ErrorMessage string            `json:"error_message,omitempty" msgpack:"error_message,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty" msgpack:"metadata,omitempty"`
}

// NewEnvelope serializes the operation payload into a request envelope.
// The request id is assigned at send time if left zero.
func NewEnvelope(op string, payload any) (*Envelope, error) {
	var payloadBytes json.RawMessage
	if payload != nil {
		var err error
		payloadBytes, err = json.Marshal(payload)
		if err != nil {
			return nil, err
		}
	}
	return &Envelope{
		Op:      op,
		Payload: payloadBytes,
		Version: ProtocolVersion,
	}, nil
}

// DecodePayload unmarshals the operation-specific body of a response.
// An error envelope never has a decodable payload.
func DecodePayload[R any](envelope *Envelope) (R, error) {
	var result R
	if envelope.IsError {
		return result, serviceErrorFromEnvelope(envelope, "error", "request failed")
	}
	if len(envelope.Payload) == 0 {
		return result, nil
	}
	if err := json.Unmarshal(envelope.Payload, &result); err != nil {
		return result, NewDecodeError(err)
	}
	return result, nil
}

// WireCodec converts envelopes to and from connection frames.
// The codec must tolerate unknown fields so that newer servers can add
// optional fields without breaking older clients.
type WireCodec interface {
	// whether frames are binary (websocket binary message) or text
	Binary() bool
	MarshalEnvelope(envelope *Envelope) ([]byte, error)
	UnmarshalEnvelope(frame []byte) (*Envelope, error)
}

type jsonWireCodec struct{}

func NewJsonWireCodec() WireCodec {
	return &jsonWireCodec{}
}

func (self *jsonWireCodec) Binary() bool {
	return false
}

func (self *jsonWireCodec) MarshalEnvelope(envelope *Envelope) ([]byte, error) {
	return json.Marshal(envelope)
}

func (self *jsonWireCodec) UnmarshalEnvelope(frame []byte) (*Envelope, error) {
	envelope := &Envelope{}
	if err := json.Unmarshal(frame, envelope); err != nil {
		return nil, err
	}
	return envelope, nil
}

type msgpackWireCodec struct{}

func NewMsgpackWireCodec() WireCodec {
	return &msgpackWireCodec{}
}

func (self *msgpackWireCodec) Binary() bool {
	return true
}

func (self *msgpackWireCodec) MarshalEnvelope(envelope *Envelope) ([]byte, error) {
	return msgpack.Marshal(envelope)
}

func (self *msgpackWireCodec) UnmarshalEnvelope(frame []byte) (*Envelope, error) {
	envelope := &Envelope{}
	if err := msgpack.Unmarshal(frame, envelope); err != nil {
		return nil, err
	}
	return envelope, nil
}

func (self *Envelope) String() string {
	if self.ResponseTo != nil {
		return fmt.Sprintf("%s[%s->%s]", self.Op, self.RequestId, *self.ResponseTo)
	}
	return fmt.Sprintf("%s[%s]", self.Op, self.RequestId)
}
