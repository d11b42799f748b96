// Package registry maps project IDs to the live coordinator that owns them.
//
// A Handle is created on Register and owns its ID until Unregister. Messages
// are routed to the owner's inbox; the entry disappears as soon as the owner
// exits, so the registry never outlives the process and is never persisted.
package registry

import (
	"errors"
	"sort"
	"sync"
	"time"
)

var (
	// ErrAlreadyRegistered is returned when the ID already has a live owner.
	ErrAlreadyRegistered = errors.New("registry: id already registered")
	// ErrNotFound is returned when no live owner exists for the ID.
	ErrNotFound = errors.New("registry: id not found")
	// ErrCallTimeout is returned when a Call receives no reply in time.
	ErrCallTimeout = errors.New("registry: call timed out")
)

// DefaultInboxSize is the buffer size of each handle's inbox.
const DefaultInboxSize = 32

// Envelope carries one message to an owner. Reply is nil for Send.
type Envelope struct {
	Msg   any
	reply chan any
}

// Respond delivers a reply to the caller of Call. It never blocks and is a
// no-op for messages delivered with Send.
func (e Envelope) Respond(v any) {
	if e.reply == nil {
		return
	}
	select {
	case e.reply <- v:
	default:
	}
}

// Handle is the owner's side of a registration.
type Handle struct {
	id    string
	inbox chan Envelope
	done  chan struct{}
	once  sync.Once
}

// ID returns the registered ID.
func (h *Handle) ID() string { return h.id }

// Inbox returns the channel of messages routed to this owner.
func (h *Handle) Inbox() <-chan Envelope { return h.inbox }

// Done is closed once the handle is unregistered.
func (h *Handle) Done() <-chan struct{} { return h.done }

func (h *Handle) close() {
	h.once.Do(func() { close(h.done) })
}

// Registry is a concurrency-safe map of IDs to live handles.
type Registry struct {
	entries   map[string]*Handle
	inboxSize int
	mu        sync.RWMutex
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{
		entries:   make(map[string]*Handle),
		inboxSize: DefaultInboxSize,
	}
}

// Register claims id for a new owner. Registration is atomic: of two
// concurrent calls for the same id exactly one succeeds.
func (r *Registry) Register(id string) (*Handle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[id]; exists {
		return nil, ErrAlreadyRegistered
	}
	h := &Handle{
		id:    id,
		inbox: make(chan Envelope, r.inboxSize),
		done:  make(chan struct{}),
	}
	r.entries[id] = h
	return h, nil
}

// Unregister removes the handle's entry, if it still owns the ID, and
// closes its done channel.
func (r *Registry) Unregister(h *Handle) {
	if h == nil {
		return
	}
	r.mu.Lock()
	if current, ok := r.entries[h.id]; ok && current == h {
		delete(r.entries, h.id)
	}
	r.mu.Unlock()
	h.close()
}

// Lookup returns the live handle for id.
func (r *Registry) Lookup(id string) (*Handle, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	h, ok := r.entries[id]
	if !ok {
		return nil, ErrNotFound
	}
	return h, nil
}

// Send delivers msg to the owner of id without waiting for a reply.
// It blocks while the inbox is full and fails if the owner exits first.
func (r *Registry) Send(id string, msg any) error {
	h, err := r.Lookup(id)
	if err != nil {
		return err
	}
	select {
	case h.inbox <- Envelope{Msg: msg}:
		return nil
	case <-h.done:
		return ErrNotFound
	}
}

// Call delivers msg to the owner of id and waits up to timeout for a reply.
func (r *Registry) Call(id string, msg any, timeout time.Duration) (any, error) {
	h, err := r.Lookup(id)
	if err != nil {
		return nil, err
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	reply := make(chan any, 1)
	select {
	case h.inbox <- Envelope{Msg: msg, reply: reply}:
	case <-h.done:
		return nil, ErrNotFound
	case <-timer.C:
		return nil, ErrCallTimeout
	}

	select {
	case v := <-reply:
		return v, nil
	case <-h.done:
		// The owner may have replied just before exiting.
		select {
		case v := <-reply:
			return v, nil
		default:
			return nil, ErrNotFound
		}
	case <-timer.C:
		return nil, ErrCallTimeout
	}
}

// IDs returns the registered IDs in sorted order.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.entries))
	for id := range r.entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Count returns the number of live registrations.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
