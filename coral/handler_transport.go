package coral

import (
	"context"
	"sync"
)

// HandlerFunc answers one request envelope with one response envelope,
// in process, no network.
type HandlerFunc func(envelope *Envelope) *Envelope

// HandlerTransport satisfies Transport with a handler function. It keeps the
// send contract of the platform transport: fresh request ids, closed
// transports fail sends, Close is idempotent.
type HandlerTransport struct {
	handler HandlerFunc

	stateLock sync.Mutex
	closed    bool
}

func NewHandlerTransport(handler HandlerFunc) *HandlerTransport {
	return &HandlerTransport{
		handler: handler,
	}
}

func (self *HandlerTransport) Send(ctx context.Context, envelope *Envelope) (*Envelope, error) {
	self.stateLock.Lock()
	closed := self.closed
	self.stateLock.Unlock()
	if closed {
		return nil, NewConnectionError(ErrClosed)
	}

	if (envelope.RequestId == Id{}) {
		envelope.RequestId = NewId()
	}
	if envelope.Version == 0 {
		envelope.Version = ProtocolVersion
	}

	response := self.handler(envelope)
	if response == nil {
		return nil, NewConnectionError(ErrClosed)
	}
	if response.ResponseTo == nil {
		responseTo := envelope.RequestId
		response.ResponseTo = &responseTo
	}
	return response, nil
}

func (self *HandlerTransport) Close() {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()

	self.closed = true
}
