package chat

import (
	"sync"
)

// ===== config =====

type RegistryConf struct {
	// CloseReplaced closes the prior physical connection when the same user
	// registers again. Off by default: the replaced handle is simply
	// orphaned and the registry forgets it.
	CloseReplaced bool
}

// ===== change events =====

type ChangeKind int

const (
	ChangeRegistered ChangeKind = iota + 1
	ChangeUnregistered
)

type ChangeEvent struct {
	Kind      ChangeKind
	UserID    string
	SessionID string
}

// Registry maps a user id to at most one live handle. All mutations are
// atomic under one mutex; a register and an unregister for the same user
// resolve deterministically via the current-handle check in Unregister.
type Registry struct {
	mu    sync.RWMutex
	conns map[string]Handle

	conf      RegistryConf
	observers []func(ChangeEvent)
}

func NewRegistry(conf RegistryConf) *Registry {
	return &Registry{
		conns: make(map[string]Handle),
		conf:  conf,
	}
}

// OnChange registers an observer invoked after every effective mutation,
// outside the registry lock. Wire observers before serving connections;
// registration is not itself concurrency-safe.
func (r *Registry) OnChange(fn func(ChangeEvent)) {
	r.observers = append(r.observers, fn)
}

// Register associates userID with h, replacing any prior handle
// (last-connect-wins).
func (r *Registry) Register(userID string, h Handle) {
	if userID == "" || h == nil {
		return
	}
	r.mu.Lock()
	old := r.conns[userID]
	r.conns[userID] = h
	r.mu.Unlock()

	if old != nil && old != h && r.conf.CloseReplaced {
		old.Close()
	}
	r.notify(ChangeEvent{Kind: ChangeRegistered, UserID: userID, SessionID: h.SessionID()})
}

// Unregister removes the mapping only if h is still the current handle for
// its user and reports whether it did. A disconnect for a superseded handle
// is a no-op: no removal, no notification, and callers must not tear down
// any per-user state that now belongs to the newer connection.
func (r *Registry) Unregister(h Handle) bool {
	if h == nil {
		return false
	}
	user := h.UserID()

	r.mu.Lock()
	cur, ok := r.conns[user]
	removed := ok && cur == h
	if removed {
		delete(r.conns, user)
	}
	r.mu.Unlock()

	if removed {
		r.notify(ChangeEvent{Kind: ChangeUnregistered, UserID: user, SessionID: h.SessionID()})
	}
	return removed
}

// Lookup never blocks.
func (r *Registry) Lookup(userID string) (Handle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.conns[userID]
	return h, ok
}

// OnlineUserIDs returns a snapshot of all currently registered user ids.
func (r *Registry) OnlineUserIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.conns))
	for user := range r.conns {
		out = append(out, user)
	}
	return out
}

// Handles returns a snapshot of all live handles.
func (r *Registry) Handles() []Handle {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Handle, 0, len(r.conns))
	for _, h := range r.conns {
		out = append(out, h)
	}
	return out
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

func (r *Registry) notify(ev ChangeEvent) {
	for _, fn := range r.observers {
		fn(ev)
	}
}
