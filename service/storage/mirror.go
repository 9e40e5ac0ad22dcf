package storage

import (
	"sync"
	"time"

	"duochat/logger"
	"duochat/service/chat"
)

// Mirror reflects registry changes into redis so presence is observable
// outside the gateway process. Routing never consults it; the in-process
// registry stays the source of truth.
//
// Registry observers run outside the registry lock, so two racing changes
// for the same user can reach the mirror in either order. Mirror serializes
// its writes and re-reads the registry per event instead of trusting the
// event payload, so the last write always reflects the latest registration.
type Mirror struct {
	mu  sync.Mutex
	reg *chat.Registry
	ttl time.Duration

	setOnline  func(user, sessionID string, ttl time.Duration) error
	setOffline func(user string) error
}

func NewMirror(reg *chat.Registry, ttl time.Duration) *Mirror {
	return &Mirror{
		reg:        reg,
		ttl:        ttl,
		setOnline:  PresenceOnline,
		setOffline: PresenceOffline,
	}
}

// Bind subscribes the mirror to registry changes. Call once during
// bootstrap, before serving connections.
func (m *Mirror) Bind() {
	m.reg.OnChange(m.apply)
}

func (m *Mirror) apply(ev chat.ChangeEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var err error
	if h, ok := m.reg.Lookup(ev.UserID); ok {
		err = m.setOnline(ev.UserID, h.SessionID(), m.ttl)
	} else {
		err = m.setOffline(ev.UserID)
	}
	if err != nil {
		logger.Warnf("[Presence] mirror update user=%s: %v", ev.UserID, err)
	}
}
