package coral

import (
	"encoding/json"
	"testing"

	"github.com/go-playground/assert/v2"
)

func TestEnvelopeTolerantDecode(t *testing.T) {
	// unknown optional fields and unknown metadata keys must not break decoding
	requestId := NewId()
	frame := []byte(`{
		"request_id": "` + requestId.String() + `",
		"op": "fetch",
		"version": 1,
		"metadata": {"x-trace": "abc", "x-experimental": "on"},
		"future_field": {"nested": [1, 2, 3]},
		"another_unknown": true
	}`)

	envelope, err := NewJsonWireCodec().UnmarshalEnvelope(frame)
	assert.Equal(t, err, nil)
	assert.Equal(t, envelope.RequestId, requestId)
	assert.Equal(t, envelope.Op, OpFetch)
	assert.Equal(t, envelope.Metadata["x-trace"], "abc")
}

func testEnvelopeCodecRoundTrip(t *testing.T, codec WireCodec) {
	envelope, err := NewEnvelope(OpGet, &GetRequest{
		Collection: "users",
		Id:         "u1",
	})
	assert.Equal(t, err, nil)
	envelope.RequestId = NewId()
	envelope.Metadata = map[string]string{"k": "v"}

	frame, err := codec.MarshalEnvelope(envelope)
	assert.Equal(t, err, nil)

	decoded, err := codec.UnmarshalEnvelope(frame)
	assert.Equal(t, err, nil)
	assert.Equal(t, decoded.RequestId, envelope.RequestId)
	assert.Equal(t, decoded.Op, envelope.Op)
	assert.Equal(t, decoded.Version, ProtocolVersion)
	assert.Equal(t, decoded.Metadata, envelope.Metadata)

	getRequest := &GetRequest{}
	err = json.Unmarshal(decoded.Payload, getRequest)
	assert.Equal(t, err, nil)
	assert.Equal(t, getRequest.Collection, "users")
	assert.Equal(t, getRequest.Id, "u1")
}

func TestEnvelopeJsonCodec(t *testing.T) {
	testEnvelopeCodecRoundTrip(t, NewJsonWireCodec())
}

func TestEnvelopeMsgpackCodec(t *testing.T) {
	testEnvelopeCodecRoundTrip(t, NewMsgpackWireCodec())
}

func TestDecodePayloadErrorEnvelope(t *testing.T) {
	responseTo := NewId()
	envelope := &Envelope{
		RequestId:    NewId(),
		ResponseTo:   &responseTo,
		Op:           OpFetch,
		Version:      ProtocolVersion,
		IsError:      true,
		ErrorCode:    "bad_predicate",
		ErrorMessage: "unknown column",
	}

	_, err := DecodePayload[FetchResult](envelope)
	serviceError, ok := err.(*ServiceError)
	assert.Equal(t, ok, true)
	assert.Equal(t, serviceError.Code, "bad_predicate")
	assert.Equal(t, serviceError.Message, "unknown column")
}

func TestDecodePayloadMalformed(t *testing.T) {
	// a truncated body is a decode error, not a service rejection
	responseTo := NewId()
	envelope := &Envelope{
		RequestId:  NewId(),
		ResponseTo: &responseTo,
		Op:         OpFetch,
		Version:    ProtocolVersion,
		Payload:    []byte(`{"records": [`),
	}

	_, err := DecodePayload[FetchResult](envelope)
	_, ok := err.(*DecodeError)
	assert.Equal(t, ok, true)
	_, ok = err.(*ServiceError)
	assert.Equal(t, ok, false)
}

func TestDecodePayloadErrorDefaults(t *testing.T) {
	envelope := &Envelope{
		RequestId: NewId(),
		Op:        OpSave,
		Version:   ProtocolVersion,
		IsError:   true,
	}

	serviceError := serviceErrorFromEnvelope(envelope, DefaultSaveErrorCode, "save failed")
	assert.Equal(t, serviceError.Code, DefaultSaveErrorCode)
	assert.Equal(t, serviceError.Message, "save failed")
}
