package coral

import (
	"testing"

	"github.com/go-playground/assert/v2"
)

func TestChangeSetDrainSwap(t *testing.T) {
	changes := newChangeSet()
	changes.add(&Change{Collection: "users", RecordId: "a", Op: ChangeInsert})
	changes.add(&Change{Collection: "users", RecordId: "b", Op: ChangeUpdate})
	assert.Equal(t, changes.size(), 2)

	drained := changes.drain()
	assert.Equal(t, len(drained), 2)
	assert.Equal(t, drained[0].RecordId, "a")
	assert.Equal(t, drained[1].RecordId, "b")
	assert.Equal(t, changes.size(), 0)

	// staging continues into the fresh buffer while the snapshot is out
	changes.add(&Change{Collection: "users", RecordId: "c", Op: ChangeDelete})
	assert.Equal(t, changes.size(), 1)

	// restore puts the snapshot ahead of later staging
	changes.restore(drained)
	restored := changes.drain()
	assert.Equal(t, len(restored), 3)
	assert.Equal(t, restored[0].RecordId, "a")
	assert.Equal(t, restored[1].RecordId, "b")
	assert.Equal(t, restored[2].RecordId, "c")
}

func TestChangeSetClear(t *testing.T) {
	changes := newChangeSet()
	changes.add(&Change{Collection: "users", RecordId: "a", Op: ChangeInsert})
	changes.clear()
	assert.Equal(t, changes.size(), 0)
	assert.Equal(t, len(changes.drain()), 0)
}
