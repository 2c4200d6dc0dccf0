package sessionlock

import (
	"sync"

	"github.com/google/uuid"
)

// Keyed provides per-session mutual exclusion. Every read-modify-write
// against a session (transcript append, field merge, end-of-call) must
// run under the session's lock or risk losing an earlier write.
//
// Locks are never removed: a session id is live for the length of a call
// and the per-entry cost is one mutex.
type Keyed struct {
	locks sync.Map // uuid.UUID -> *sync.Mutex
}

func NewKeyed() *Keyed {
	return &Keyed{}
}

func (k *Keyed) get(id uuid.UUID) *sync.Mutex {
	if mu, ok := k.locks.Load(id); ok {
		return mu.(*sync.Mutex)
	}
	mu, _ := k.locks.LoadOrStore(id, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

func (k *Keyed) Lock(id uuid.UUID) {
	k.get(id).Lock()
}

func (k *Keyed) Unlock(id uuid.UUID) {
	k.get(id).Unlock()
}

// TryLock is used by the suggestion cycle: an overlapping trigger for a
// session with a cycle already in flight is dropped, not queued.
func (k *Keyed) TryLock(id uuid.UUID) bool {
	return k.get(id).TryLock()
}
