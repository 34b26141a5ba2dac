// Package session tracks the persistent specialist conversation threads the
// completion service maintains per patient and role.
package session

import (
	"sync"

	"github.com/google/uuid"

	"followup-voicebot/agent/contract"
)

// Thread is the handle for one specialist-scoped context window. The session
// context block is captured exactly once, when the thread is created, and is
// never re-injected on later turns.
type Thread struct {
	id      string
	key     contract.ThreadKey
	context string
}

func (t *Thread) ID() string { return t.id }

func (t *Thread) Key() contract.ThreadKey { return t.key }

// Context returns the session facts injected at creation.
func (t *Thread) Context() string { return t.context }

// Registry maps (patient, role) to its thread. Creation is serialized per
// key: concurrent callers for the same key observe a single live handle
// (first writer wins). An explicit registry object rather than ambient
// process state so tests can build isolated instances.
type Registry struct {
	mu      sync.Mutex
	threads map[contract.ThreadKey]*Thread
}

func NewRegistry() *Registry {
	return &Registry{threads: make(map[contract.ThreadKey]*Thread)}
}

// GetOrCreate returns the thread for key, creating it lazily. contextFn is
// evaluated at most once per key, at creation.
func (r *Registry) GetOrCreate(key contract.ThreadKey, contextFn func() string) *Thread {
	r.mu.Lock()
	defer r.mu.Unlock()

	if th, ok := r.threads[key]; ok {
		return th
	}

	var context string
	if contextFn != nil {
		context = contextFn()
	}
	th := &Thread{
		id:      uuid.NewString(),
		key:     key,
		context: context,
	}
	r.threads[key] = th
	return th
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.threads)
}
