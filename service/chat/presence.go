package chat

import (
	"sync"
	"time"

	"duochat/logger"
)

// ===== config =====

type PresenceConf struct {
	// Coalesce collapses bursts of registry mutations into one broadcast per
	// window. Zero broadcasts on every mutation; correctness does not depend
	// on coalescing.
	Coalesce time.Duration
}

// Broadcaster announces the full set of online user ids to every live handle
// whenever the registry changes. Always a full snapshot, never a diff.
type Broadcaster struct {
	reg  *Registry
	conf PresenceConf

	notifyCh chan struct{}
	stopCh   chan struct{}
	stopOnce sync.Once
}

func NewBroadcaster(reg *Registry, conf PresenceConf) *Broadcaster {
	b := &Broadcaster{
		reg:      reg,
		conf:     conf,
		notifyCh: make(chan struct{}, 1),
		stopCh:   make(chan struct{}),
	}
	if conf.Coalesce > 0 {
		go b.loop()
	}
	return b
}

// Bind subscribes the broadcaster to registry changes. Call once during
// bootstrap.
func (b *Broadcaster) Bind() {
	b.reg.OnChange(func(ChangeEvent) { b.schedule() })
}

func (b *Broadcaster) schedule() {
	if b.conf.Coalesce <= 0 {
		b.BroadcastPresence()
		return
	}
	select {
	case b.notifyCh <- struct{}{}:
	default:
	}
}

// BroadcastPresence pushes the current online snapshot to every registered
// handle, including the one whose change triggered it.
func (b *Broadcaster) BroadcastPresence() {
	users := b.reg.OnlineUserIDs()
	frame, err := MarshalFrame(EventOnlineUsers, users)
	if err != nil {
		logger.Errorf("[Presence] marshal snapshot: %v", err)
		return
	}
	for _, h := range b.reg.Handles() {
		h.Deliver(frame)
	}
}

func (b *Broadcaster) loop() {
	for {
		select {
		case <-b.stopCh:
			return
		case <-b.notifyCh:
			timer := time.NewTimer(b.conf.Coalesce)
			select {
			case <-b.stopCh:
				timer.Stop()
				return
			case <-timer.C:
			}
			// drain anything that arrived during the window
			select {
			case <-b.notifyCh:
			default:
			}
			b.BroadcastPresence()
		}
	}
}

func (b *Broadcaster) Close() {
	b.stopOnce.Do(func() { close(b.stopCh) })
}
