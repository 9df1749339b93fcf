package coral

import (
	"context"
	"sync"

	"github.com/golang/glog"
)

// Session composes the transport, the staged-change buffer, and the query
// builder factory into the public surface. One session owns one change
// buffer and holds one transport.
type Session struct {
	ctx    context.Context
	cancel context.CancelFunc

	transport Transport

	changes *changeSet

	// serializes commits. staging is never blocked by an in-flight commit.
	commitLock sync.Mutex
}

// NewSession connects and authenticates. A connection failure here is a
// hard error; the session never exists half-connected.
func NewSession(ctx context.Context, url string, auth *ClientAuth) (*Session, error) {
	return NewSessionWithSettings(ctx, url, auth, DefaultPlatformTransportSettings())
}

func NewSessionWithSettings(
	ctx context.Context,
	url string,
	auth *ClientAuth,
	settings *PlatformTransportSettings,
) (*Session, error) {
	cancelCtx, cancel := context.WithCancel(ctx)
	transport, err := NewPlatformTransport(cancelCtx, url, auth, settings)
	if err != nil {
		cancel()
		return nil, err
	}
	return &Session{
		ctx:       cancelCtx,
		cancel:    cancel,
		transport: transport,
		changes:   newChangeSet(),
	}, nil
}

// NewSessionWithTransport attaches to an already-connected transport.
// This is how tests substitute a HandlerTransport.
func NewSessionWithTransport(ctx context.Context, transport Transport) *Session {
	cancelCtx, cancel := context.WithCancel(ctx)
	return &Session{
		ctx:       cancelCtx,
		cancel:    cancel,
		transport: transport,
		changes:   newChangeSet(),
	}
}

// Insert stages an insert. No network I/O until Commit.
func (self *Session) Insert(record Record) error {
	fields, err := EncodeRecord(record)
	if err != nil {
		return err
	}
	self.changes.add(&Change{
		Collection: record.CollectionName(),
		RecordId:   record.RecordId(),
		Op:         ChangeInsert,
		Fields:     fields,
	})
	return nil
}

// Update stages an update. No network I/O until Commit.
func (self *Session) Update(record Record) error {
	fields, err := EncodeRecord(record)
	if err != nil {
		return err
	}
	self.changes.add(&Change{
		Collection: record.CollectionName(),
		RecordId:   record.RecordId(),
		Op:         ChangeUpdate,
		Fields:     fields,
	})
	return nil
}

// Delete stages a delete. The change carries no field map.
func (self *Session) Delete(record Record) {
	self.changes.add(&Change{
		Collection: record.CollectionName(),
		RecordId:   record.RecordId(),
		Op:         ChangeDelete,
	})
}

// PendingChangeCount is the number of staged, uncommitted changes.
func (self *Session) PendingChangeCount() int {
	return self.changes.size()
}

// Discard drops all staged changes.
func (self *Session) Discard() {
	self.changes.clear()
}

// Commit drains the staged changes and sends them as one atomic batch.
// An empty buffer commits with zero transport traffic. A failed commit
// re-queues the drained batch ahead of anything staged while it was in
// flight, so a caller-initiated retry resends exactly the unconfirmed
// changes in their original order.
func (self *Session) Commit(ctx context.Context) error {
	self.commitLock.Lock()
	defer self.commitLock.Unlock()

	drained := self.changes.drain()
	if len(drained) == 0 {
		return nil
	}

	envelope, err := NewEnvelope(OpSave, &SaveRequest{Changes: drained})
	if err != nil {
		self.changes.restore(drained)
		return err
	}

	response, err := self.transport.Send(ctx, envelope)
	if err != nil {
		self.changes.restore(drained)
		glog.Infof("[s]commit error = %s\n", err)
		return err
	}
	if response.IsError {
		self.changes.restore(drained)
		return serviceErrorFromEnvelope(response, DefaultSaveErrorCode, "save failed")
	}

	glog.V(2).Infof("[s]committed %d\n", len(drained))
	return nil
}

// Get fetches one record by id. An absent record in a success response is
// not found, not an error.
func Get[T Record](
	ctx context.Context,
	session *Session,
	id string,
	partitionValues ...PartitionValues,
) (T, bool, error) {
	var zero T
	getRequest := &GetRequest{
		Collection: zero.CollectionName(),
		Id:         id,
	}
	if 0 < len(partitionValues) {
		getRequest.PartitionValues = partitionValues[0]
	}

	response, err := session.call(ctx, OpGet, getRequest)
	if err != nil {
		return zero, false, err
	}
	getResult, err := DecodePayload[GetResult](response)
	if err != nil {
		return zero, false, err
	}
	if getResult.Record == nil {
		return zero, false, nil
	}
	record, err := DecodeRecord[T](getResult.Record)
	if err != nil {
		return zero, false, err
	}
	return record, true, nil
}

// FetchSchema returns the service's entity descriptors.
func (self *Session) FetchSchema(ctx context.Context) ([]*EntityDescriptor, error) {
	response, err := self.call(ctx, OpSchema, nil)
	if err != nil {
		return nil, err
	}
	schemaResult, err := DecodePayload[SchemaResult](response)
	if err != nil {
		return nil, err
	}
	return schemaResult.Entities, nil
}

// call sends one operation envelope and returns the correlated response.
// Error envelopes are returned as-is; payload decoding surfaces them.
func (self *Session) call(ctx context.Context, op string, payload any) (*Envelope, error) {
	envelope, err := NewEnvelope(op, payload)
	if err != nil {
		return nil, err
	}
	return self.transport.Send(ctx, envelope)
}

// Close disconnects. Every suspended caller is resolved with a
// connection-closed failure.
func (self *Session) Close() {
	self.cancel()
	self.transport.Close()
}
