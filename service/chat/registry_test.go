package chat

import (
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestRegistry_Register_And_Lookup(t *testing.T) {
	req := require.New(t)
	reg := NewRegistry(RegistryConf{})
	user := uuid.NewString()
	h := newFakeHandle(user)

	_, ok := reg.Lookup(user)
	req.False(ok)

	reg.Register(user, h)

	got, ok := reg.Lookup(user)
	req.True(ok)
	req.Same(h, got.(*fakeHandle))
	req.Equal([]string{user}, reg.OnlineUserIDs())
}

func TestRegistry_LastConnectWins_StaleUnregisterIsNoop(t *testing.T) {
	req := require.New(t)
	reg := NewRegistry(RegistryConf{})
	user := uuid.NewString()
	h1 := newFakeHandle(user)
	h2 := newFakeHandle(user)

	// Given the user reconnected before the old handle went away
	reg.Register(user, h1)
	reg.Register(user, h2)

	// When the old connection's disconnect finally arrives
	req.False(reg.Unregister(h1))

	// Then the newer registration survives
	got, ok := reg.Lookup(user)
	req.True(ok)
	req.Same(h2, got.(*fakeHandle))
	req.Equal(1, reg.Len())
}

func TestRegistry_Unregister_CurrentHandle(t *testing.T) {
	req := require.New(t)
	reg := NewRegistry(RegistryConf{})
	user := uuid.NewString()
	h := newFakeHandle(user)

	reg.Register(user, h)
	req.True(reg.Unregister(h))

	_, ok := reg.Lookup(user)
	req.False(ok)
	req.Empty(reg.OnlineUserIDs())
	req.False(reg.Unregister(h), "second unregister has nothing to remove")
}

func TestRegistry_Notifications_OnlyForEffectiveMutations(t *testing.T) {
	req := require.New(t)
	reg := NewRegistry(RegistryConf{})
	user := uuid.NewString()
	h1 := newFakeHandle(user)
	h2 := newFakeHandle(user)

	var events []ChangeEvent
	reg.OnChange(func(ev ChangeEvent) { events = append(events, ev) })

	reg.Register(user, h1)
	reg.Register(user, h2)
	reg.Unregister(h1) // stale: no event
	reg.Unregister(h2)
	reg.Unregister(h2) // already gone: no event

	req.Len(events, 3)
	req.Equal(ChangeRegistered, events[0].Kind)
	req.Equal(ChangeRegistered, events[1].Kind)
	req.Equal(ChangeUnregistered, events[2].Kind)
	req.Equal(h2.SessionID(), events[2].SessionID)
}

func TestRegistry_Replace_ClosePolicy(t *testing.T) {
	req := require.New(t)
	user := uuid.NewString()

	// default: replaced handle is orphaned, not closed
	reg := NewRegistry(RegistryConf{})
	h1 := newFakeHandle(user)
	reg.Register(user, h1)
	reg.Register(user, newFakeHandle(user))
	req.False(h1.isClosed())

	// opt-in: replaced handle is closed
	reg = NewRegistry(RegistryConf{CloseReplaced: true})
	h1 = newFakeHandle(user)
	reg.Register(user, h1)
	reg.Register(user, newFakeHandle(user))
	req.True(h1.isClosed())
}

func TestRegistry_ConcurrentMutations(t *testing.T) {
	req := require.New(t)
	reg := NewRegistry(RegistryConf{})

	const n = 64
	handles := make([]*fakeHandle, n)
	for i := range handles {
		handles[i] = newFakeHandle(uuid.NewString())
	}

	var wg sync.WaitGroup
	for _, h := range handles {
		wg.Add(1)
		go func(h *fakeHandle) {
			defer wg.Done()
			reg.Register(h.UserID(), h)
		}(h)
	}
	wg.Wait()

	req.Equal(n, reg.Len())
	for _, h := range handles {
		got, ok := reg.Lookup(h.UserID())
		req.True(ok)
		req.Same(h, got.(*fakeHandle))
	}

	for _, h := range handles {
		wg.Add(1)
		go func(h *fakeHandle) {
			defer wg.Done()
			reg.Unregister(h)
		}(h)
	}
	wg.Wait()

	req.Zero(reg.Len())
}
