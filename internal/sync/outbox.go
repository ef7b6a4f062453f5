package sync

import (
	"encoding/json"
	"sync"

	"buildledger/pkg/domain"
)

// Entry is one pending remote write. Entries are retried at least once per
// Reconcile pass until the push succeeds.
type Entry struct {
	Collection string
	Action     domain.Action
	RecordID   string
	Payload    json.RawMessage
	Attempts   int
}

// Outbox is an in-memory FIFO retry queue for remote write-through. Local
// state is always committed before an entry is enqueued, so draining is
// at-least-once delivery toward the remote.
type Outbox struct {
	mu      sync.Mutex
	entries []Entry
}

// NewOutbox returns an empty queue.
func NewOutbox() *Outbox { return &Outbox{} }

// Enqueue appends an entry.
func (o *Outbox) Enqueue(e Entry) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.entries = append(o.entries, e)
}

// Len reports the number of pending entries.
func (o *Outbox) Len() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.entries)
}

// Pending returns a copy of the queued entries, oldest first.
func (o *Outbox) Pending() []Entry {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]Entry(nil), o.entries...)
}

// Drain attempts every pending entry in order. Entries whose push fails stay
// queued with an incremented attempt count.
func (o *Outbox) Drain(push func(Entry) error) {
	o.mu.Lock()
	pending := o.entries
	o.entries = nil
	o.mu.Unlock()

	var failed []Entry
	for _, entry := range pending {
		if err := push(entry); err != nil {
			entry.Attempts++
			failed = append(failed, entry)
		}
	}
	if len(failed) > 0 {
		o.mu.Lock()
		o.entries = append(failed, o.entries...)
		o.mu.Unlock()
	}
}
