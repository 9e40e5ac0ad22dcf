package chat

import (
	"duochat/logger"
)

// Router delivers a typed event to a specific user's live handle if one
// exists. Delivery is fire-and-forget: no ack, no retry, and a miss (receiver
// offline) stays silent. Receiver offline is a normal state, not an error.
type Router struct {
	reg *Registry
}

func NewRouter(reg *Registry) *Router {
	return &Router{reg: reg}
}

// RouteDirect looks up targetUserID and pushes (kind, payload) to its handle.
// For a fixed sender→receiver pair, call order is delivery order: the handle's
// send queue is FIFO with a single writer behind it.
func (r *Router) RouteDirect(targetUserID string, kind EventKind, payload any) {
	h, ok := r.reg.Lookup(targetUserID)
	if !ok {
		// receiver offline: drop, observable only as absence of delivery
		return
	}
	frame, err := MarshalFrame(kind, payload)
	if err != nil {
		logger.Errorf("[Router] marshal %s for user=%s: %v", kind, targetUserID, err)
		return
	}
	h.Deliver(frame)
}
