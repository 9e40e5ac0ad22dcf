package store

import (
	"context"
	"strings"
	"sync"
	"time"

	"duochat/module/chat/model"
	"duochat/tools/errs"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MemoryStore is the in-process ConversationStore: tests and local runs
// without a mongo instance. Same contract, same error taxonomy.
type MemoryStore struct {
	mu       sync.Mutex
	convs    map[string]model.Conversation // sorted pair key -> conversation
	messages map[primitive.ObjectID][]model.Message

	// FailAppend, when set, makes every append fail with it. Simulates a
	// store outage.
	FailAppend error
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		convs:    make(map[string]model.Conversation),
		messages: make(map[primitive.ObjectID][]model.Message),
	}
}

func pairMapKey(a, b string) string {
	return strings.Join(model.PairKey(a, b), "|")
}

func (s *MemoryStore) FindOrCreateConversation(ctx context.Context, a, b string) (model.Conversation, error) {
	if err := ctx.Err(); err != nil {
		return model.Conversation{}, errs.ErrPersistence.WrapMsg("find or create conversation", "err", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	key := pairMapKey(a, b)
	if conv, ok := s.convs[key]; ok {
		return conv, nil
	}
	conv := model.Conversation{
		ID:           primitive.NewObjectID(),
		Participants: model.PairKey(a, b),
		CreatedAt:    time.Now(),
	}
	s.convs[key] = conv
	return conv, nil
}

func (s *MemoryStore) AppendMessage(ctx context.Context, conv model.Conversation, senderID, receiverID, body string) (model.Message, error) {
	if err := ctx.Err(); err != nil {
		return model.Message{}, errs.ErrPersistence.WrapMsg("append message", "err", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.FailAppend != nil {
		return model.Message{}, errs.ErrPersistence.WrapMsg("append message", "err", s.FailAppend)
	}

	msg := model.Message{
		ID:             primitive.NewObjectID(),
		ConversationID: conv.ID,
		SenderID:       senderID,
		ReceiverID:     receiverID,
		Body:           body,
		CreatedAt:      time.Now(),
	}
	s.messages[conv.ID] = append(s.messages[conv.ID], msg)
	return msg, nil
}

func (s *MemoryStore) ListMessages(ctx context.Context, conv model.Conversation) ([]model.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, errs.ErrPersistence.WrapMsg("list messages", "err", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	src := s.messages[conv.ID]
	out := make([]model.Message, len(src))
	copy(out, src)
	return out, nil
}
