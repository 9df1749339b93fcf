package coral

import (
	"sync"
)

type ChangeOp string

const (
	ChangeInsert ChangeOp = "insert"
	ChangeUpdate ChangeOp = "update"
	ChangeDelete ChangeOp = "delete"
)

// Change is one staged mutation. Staging the same record id twice produces
// two entries; the service applies the batch in order.
type Change struct {
	Collection string   `json:"collection"`
	RecordId   string   `json:"record_id"`
	Op         ChangeOp `json:"op"`
	// present for insert and update, absent for delete
	Fields FieldMap `json:"fields,omitempty"`
}

// changeSet is the staged-mutation buffer of one session. All access is
// under the state lock, which is never held across network I/O: commit
// drains a snapshot, sends it unlocked, and restores it on failure.
type changeSet struct {
	stateLock sync.Mutex
	changes   []*Change
}

func newChangeSet() *changeSet {
	return &changeSet{
		changes: []*Change{},
	}
}

func (self *changeSet) add(change *Change) {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()

	self.changes = append(self.changes, change)
}

func (self *changeSet) size() int {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()

	return len(self.changes)
}

// drain swaps the buffer for an empty one and returns the snapshot.
// Concurrent stagers keep appending to the fresh buffer while the snapshot
// is in flight.
func (self *changeSet) drain() []*Change {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()

	drained := self.changes
	self.changes = []*Change{}
	return drained
}

// restore re-queues a failed batch at the front, ahead of anything staged
// while the batch was in flight, so a retried commit resends the original
// changes in their original order.
func (self *changeSet) restore(drained []*Change) {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()

	self.changes = append(drained, self.changes...)
}

func (self *changeSet) clear() {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()

	self.changes = []*Change{}
}
