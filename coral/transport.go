package coral

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/golang/glog"
	"github.com/gorilla/websocket"
)

// Transport sends one request envelope and returns the one correlated
// response to the caller that sent it. Close is idempotent and fails every
// outstanding caller.
type Transport interface {
	Send(ctx context.Context, envelope *Envelope) (*Envelope, error)
	Close()
}

type PlatformTransportSettings struct {
	WsHandshakeTimeout time.Duration
	AuthTimeout        time.Duration
	PingTimeout        time.Duration
	WriteTimeout       time.Duration
	ReadTimeout        time.Duration
	// Send fails fast beyond this many in-flight requests rather than
	// growing the pending table without bound.
	MaxOutstanding int
	WireCodec      WireCodec
}

func DefaultPlatformTransportSettings() *PlatformTransportSettings {
	return &PlatformTransportSettings{
		WsHandshakeTimeout: 2 * time.Second,
		AuthTimeout:        2 * time.Second,
		PingTimeout:        1 * time.Second,
		WriteTimeout:       5 * time.Second,
		ReadTimeout:        15 * time.Second,
		MaxOutstanding:     1024,
		WireCodec:          NewJsonWireCodec(),
	}
}

type sendResult struct {
	envelope *Envelope
	err      error
}

// resolved exactly once. The entry is removed from the pending table under
// the state lock before the channel is written, so a second resolution for
// the same request id cannot find a handle to resolve.
type pendingRequest chan *sendResult

// PlatformTransport owns one physical websocket connection to the service.
// A single background receive loop reads every inbound frame and resolves
// the matching suspended caller; no other code path reads the connection.
type PlatformTransport struct {
	ctx    context.Context
	cancel context.CancelFunc

	url  string
	auth *ClientAuth

	settings *PlatformTransportSettings

	ws *websocket.Conn

	// guards writes to the connection. never held while waiting on a response.
	writeLock sync.Mutex

	stateLock sync.Mutex
	pending   map[Id]pendingRequest
	closed    bool
}

func NewPlatformTransportWithDefaults(
	ctx context.Context,
	url string,
	auth *ClientAuth,
) (*PlatformTransport, error) {
	return NewPlatformTransport(ctx, url, auth, DefaultPlatformTransportSettings())
}

// NewPlatformTransport dials and authenticates before returning. A failed
// handshake is a hard error here, not deferred to the first send.
func NewPlatformTransport(
	ctx context.Context,
	url string,
	auth *ClientAuth,
	settings *PlatformTransportSettings,
) (*PlatformTransport, error) {
	cancelCtx, cancel := context.WithCancel(ctx)

	dialer := &websocket.Dialer{
		HandshakeTimeout: settings.WsHandshakeTimeout,
	}
	ws, _, err := dialer.DialContext(cancelCtx, url, nil)
	if err != nil {
		cancel()
		return nil, NewConnectionError(err)
	}

	transport := &PlatformTransport{
		ctx:      cancelCtx,
		cancel:   cancel,
		url:      url,
		auth:     auth,
		settings: settings,
		ws:       ws,
		pending:  map[Id]pendingRequest{},
	}

	if err := transport.connect(); err != nil {
		ws.Close()
		cancel()
		return nil, err
	}

	go transport.run()
	go transport.pingLoop()

	return transport, nil
}

// connect performs the auth handshake on the fresh connection: write one
// auth envelope, read one frame back, and verify the service acked it.
func (self *PlatformTransport) connect() error {
	authEnvelope := &Envelope{
		RequestId: NewId(),
		Op:        OpAuth,
		Version:   ProtocolVersion,
		Metadata:  map[string]string{},
	}
	if self.auth != nil {
		authEnvelope.Metadata[MetadataBearer] = self.auth.ByJwt
		authEnvelope.Metadata[MetadataInstanceId] = self.auth.InstanceId.String()
		authEnvelope.Metadata[MetadataAppVersion] = self.auth.AppVersion
		if clientId, err := self.auth.ClientId(); err == nil {
			authEnvelope.Metadata[MetadataClientId] = clientId.String()
		}
	}

	frame, err := self.settings.WireCodec.MarshalEnvelope(authEnvelope)
	if err != nil {
		return err
	}

	self.ws.SetWriteDeadline(time.Now().Add(self.settings.AuthTimeout))
	if err := self.ws.WriteMessage(self.messageType(), frame); err != nil {
		return NewConnectionError(err)
	}

	self.ws.SetReadDeadline(time.Now().Add(self.settings.AuthTimeout))
	_, ackFrame, err := self.ws.ReadMessage()
	if err != nil {
		return NewConnectionError(err)
	}
	ack, err := self.settings.WireCodec.UnmarshalEnvelope(ackFrame)
	if err != nil {
		return NewDecodeError(err)
	}
	if ack.IsError {
		return serviceErrorFromEnvelope(ack, "auth_failed", "auth failed")
	}
	if ack.ResponseTo == nil || *ack.ResponseTo != authEnvelope.RequestId {
		return NewConnectionError(fmt.Errorf("auth response error: bad correlation"))
	}
	return nil
}

func (self *PlatformTransport) messageType() int {
	if self.settings.WireCodec.Binary() {
		return websocket.BinaryMessage
	}
	return websocket.TextMessage
}

// Send registers a pending entry, writes the envelope, and suspends the
// caller until the correlated response arrives or the connection fails.
func (self *PlatformTransport) Send(ctx context.Context, envelope *Envelope) (*Envelope, error) {
	if (envelope.RequestId == Id{}) {
		envelope.RequestId = NewId()
	}
	if envelope.Version == 0 {
		envelope.Version = ProtocolVersion
	}

	result := make(pendingRequest, 1)

	self.stateLock.Lock()
	if self.closed {
		self.stateLock.Unlock()
		return nil, NewConnectionError(ErrClosed)
	}
	if self.settings.MaxOutstanding <= len(self.pending) {
		self.stateLock.Unlock()
		return nil, NewConnectionError(ErrTooManyOutstanding)
	}
	self.pending[envelope.RequestId] = result
	self.stateLock.Unlock()

	frame, err := self.settings.WireCodec.MarshalEnvelope(envelope)
	if err != nil {
		self.remove(envelope.RequestId)
		return nil, err
	}

	if err := self.write(frame); err != nil {
		// never leave an orphaned entry behind a failed write
		if pending := self.remove(envelope.RequestId); pending != nil {
			pending <- &sendResult{err: NewConnectionError(err)}
		}
		glog.Infof("[ts]%s-> error = %s\n", envelope.RequestId, err)
	} else {
		glog.V(2).Infof("[ts]%s->\n", envelope.RequestId)
	}

	select {
	case r := <-result:
		return r.envelope, r.err
	case <-ctx.Done():
		self.remove(envelope.RequestId)
		return nil, ctx.Err()
	case <-self.ctx.Done():
		self.remove(envelope.RequestId)
		return nil, NewConnectionError(ErrClosed)
	}
}

func (self *PlatformTransport) write(frame []byte) error {
	self.writeLock.Lock()
	defer self.writeLock.Unlock()

	self.ws.SetWriteDeadline(time.Now().Add(self.settings.WriteTimeout))
	return self.ws.WriteMessage(self.messageType(), frame)
}

// remove takes the pending entry out of the table exactly once.
// nil when another path already took it.
func (self *PlatformTransport) remove(requestId Id) pendingRequest {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()

	pending, ok := self.pending[requestId]
	if !ok {
		return nil
	}
	delete(self.pending, requestId)
	return pending
}

// run is the receive loop. Exactly one per live connection.
func (self *PlatformTransport) run() {
	defer self.Close()

	for {
		select {
		case <-self.ctx.Done():
			return
		default:
		}

		self.ws.SetReadDeadline(time.Now().Add(self.settings.ReadTimeout))
		messageType, frame, err := self.ws.ReadMessage()
		if err != nil {
			glog.Infof("[tr]<- error = %s\n", err)
			return
		}

		switch messageType {
		case websocket.BinaryMessage, websocket.TextMessage:
			if len(frame) == 0 {
				// ping
				glog.V(2).Infof("[tr]ping<-\n")
				continue
			}

			envelope, err := self.settings.WireCodec.UnmarshalEnvelope(frame)
			if err != nil {
				// nothing to correlate, drop it
				glog.Infof("[tr]drop undecodable<- = %s\n", err)
				continue
			}

			requestId := envelope.RequestId
			if envelope.ResponseTo != nil {
				requestId = *envelope.ResponseTo
			}
			pending := self.remove(requestId)
			if pending == nil {
				glog.V(2).Infof("[tr]drop unmatched %s<-\n", requestId)
				continue
			}
			pending <- &sendResult{envelope: envelope}
			glog.V(2).Infof("[tr]%s<-\n", requestId)
		default:
			glog.V(2).Infof("[tr]other=%d<-\n", messageType)
		}
	}
}

// pingLoop keeps the connection read deadline alive with empty frames.
func (self *PlatformTransport) pingLoop() {
	for {
		select {
		case <-self.ctx.Done():
			return
		case <-time.After(self.settings.PingTimeout):
			if err := self.write(make([]byte, 0)); err != nil {
				// the receive loop will observe the broken connection
				return
			}
		}
	}
}

// Close terminates the connection exactly once and resolves every
// outstanding caller with a connection-closed failure, exactly once each.
func (self *PlatformTransport) Close() {
	self.cancel()

	self.stateLock.Lock()
	if self.closed {
		self.stateLock.Unlock()
		return
	}
	self.closed = true
	pending := self.pending
	self.pending = map[Id]pendingRequest{}
	self.stateLock.Unlock()

	self.ws.Close()

	for requestId, result := range pending {
		result <- &sendResult{err: NewConnectionError(ErrClosed)}
		glog.V(2).Infof("[t]fail pending %s\n", requestId)
	}
	if 0 < len(pending) {
		glog.Infof("[t]close failed %d pending\n", len(pending))
	}
}
