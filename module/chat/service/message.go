package service

import (
	"context"
	"strings"
	"time"

	"duochat/module/chat/model"
	"duochat/module/chat/store"
	"duochat/service/chat"
	"duochat/tools/errs"
)

const defaultSendTimeout = 5 * time.Second

// EventRouter is the live-delivery collaborator. Everything routed through it
// is fire-and-forget.
type EventRouter interface {
	RouteDirect(targetUserID string, kind chat.EventKind, payload any)
}

// MessageService is the persistence coordinator: the durable write comes
// first and must report failure; live delivery comes after and must not.
type MessageService struct {
	store       store.ConversationStore
	router      EventRouter
	typing      *chat.TypingTracker
	sendTimeout time.Duration
}

func NewMessageService(st store.ConversationStore, router EventRouter, sendTimeout time.Duration) *MessageService {
	if sendTimeout <= 0 {
		sendTimeout = defaultSendTimeout
	}
	return &MessageService{
		store:       st,
		router:      router,
		typing:      chat.NewTypingTracker(),
		sendTimeout: sendTimeout,
	}
}

// SendMessage validates, persists, returns the stored message, and only then
// hands it to the router. The caller gets the stored message on durable
// persistence regardless of receiver connectivity; a store failure surfaces
// and nothing is routed.
func (s *MessageService) SendMessage(ctx context.Context, senderID, receiverID, body string) (model.Message, error) {
	if strings.TrimSpace(body) == "" {
		return model.Message{}, errs.ErrInvalidInput.WrapMsg("empty message body")
	}
	if receiverID == "" {
		return model.Message{}, errs.ErrInvalidInput.WrapMsg("missing receiver")
	}

	ctx, cancel := context.WithTimeout(ctx, s.sendTimeout)
	defer cancel()

	conv, err := s.store.FindOrCreateConversation(ctx, senderID, receiverID)
	if err != nil {
		return model.Message{}, err
	}
	msg, err := s.store.AppendMessage(ctx, conv, senderID, receiverID, body)
	if err != nil {
		return model.Message{}, err
	}

	// Sending clears any pending typing state; the matching stopTyping goes
	// out before the message itself.
	if prev, stopped := s.typing.Stop(senderID); stopped {
		s.router.RouteDirect(prev, chat.EventStopTyping, chat.TypingNotice{SenderID: senderID})
	}
	s.router.RouteDirect(receiverID, chat.EventNewMessage, msg)

	return msg, nil
}

// EmitTyping relays a typing edge to the receiver. Only the idle→typing edge
// is relayed; continued typing emits nothing. Switching to a different
// receiver first closes the old edge.
func (s *MessageService) EmitTyping(senderID, receiverID string) {
	if senderID == "" || receiverID == "" {
		return
	}
	prev, started := s.typing.Start(senderID, receiverID)
	if !started {
		return
	}
	if prev != "" {
		s.router.RouteDirect(prev, chat.EventStopTyping, chat.TypingNotice{SenderID: senderID})
	}
	s.router.RouteDirect(receiverID, chat.EventTyping, chat.TypingNotice{SenderID: senderID})
}

// EmitStopTyping closes the sender's typing edge. Stop with no prior start is
// a no-op.
func (s *MessageService) EmitStopTyping(senderID, receiverID string) {
	if senderID == "" {
		return
	}
	prev, stopped := s.typing.Stop(senderID)
	if !stopped {
		return
	}
	// relay to the receiver of the active edge, which is normally the one
	// the client named
	target := prev
	if target == "" {
		target = receiverID
	}
	s.router.RouteDirect(target, chat.EventStopTyping, chat.TypingNotice{SenderID: senderID})
}

// ClearTyping is the disconnect path: drop the edge and tell the peer.
func (s *MessageService) ClearTyping(senderID string) {
	if prev, stopped := s.typing.Stop(senderID); stopped {
		s.router.RouteDirect(prev, chat.EventStopTyping, chat.TypingNotice{SenderID: senderID})
	}
}

// IsTyping is exposed for observability and tests.
func (s *MessageService) IsTyping(senderID string) bool {
	return s.typing.IsTyping(senderID)
}
