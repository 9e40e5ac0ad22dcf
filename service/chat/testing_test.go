package chat

import (
	"encoding/json"
	"sync"

	"duochat/tools/ids"
)

// fakeHandle records everything delivered to it; shared by the tests in this
// package.
type fakeHandle struct {
	session string
	user    string

	mu     sync.Mutex
	frames [][]byte
	closed bool
}

func newFakeHandle(user string) *fakeHandle {
	return &fakeHandle{session: ids.GenerateString(), user: user}
}

func (f *fakeHandle) SessionID() string { return f.session }
func (f *fakeHandle) UserID() string    { return f.user }

func (f *fakeHandle) Deliver(frame []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.frames = append(f.frames, frame)
}

func (f *fakeHandle) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
}

func (f *fakeHandle) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func (f *fakeHandle) received() []Frame {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Frame, 0, len(f.frames))
	for _, raw := range f.frames {
		var fr Frame
		if err := json.Unmarshal(raw, &fr); err == nil {
			out = append(out, fr)
		}
	}
	return out
}

func (f *fakeHandle) receivedKinds() []EventKind {
	frames := f.received()
	kinds := make([]EventKind, 0, len(frames))
	for _, fr := range frames {
		kinds = append(kinds, fr.Event)
	}
	return kinds
}
