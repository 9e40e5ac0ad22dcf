package chat

import (
	"sync"
)

// TypingTracker holds the ephemeral "who is typing toward whom" state.
// Per-process, never persisted, gone on restart. Only edge transitions are
// reported: a burst of starts toward the same receiver collapses into one.
type TypingTracker struct {
	mu     sync.Mutex
	active map[string]string // sender -> receiver of the active typing edge
}

func NewTypingTracker() *TypingTracker {
	return &TypingTracker{active: make(map[string]string)}
}

// Start records sender typing toward receiver. started is true only on an
// idle→typing edge. When the sender was already typing toward a different
// receiver, prev names that receiver so the caller can emit its stopTyping.
func (t *TypingTracker) Start(sender, receiver string) (prev string, started bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	cur, ok := t.active[sender]
	if ok && cur == receiver {
		return "", false
	}
	t.active[sender] = receiver
	if ok {
		return cur, true
	}
	return "", true
}

// Stop clears the sender's typing state. stopped is false when there was no
// active edge (repeated stop is a no-op).
func (t *TypingTracker) Stop(sender string) (receiver string, stopped bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	cur, ok := t.active[sender]
	if !ok {
		return "", false
	}
	delete(t.active, sender)
	return cur, true
}

// IsTyping reports whether the sender currently has an active edge.
func (t *TypingTracker) IsTyping(sender string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.active[sender]
	return ok
}
