package store

import (
	"context"

	"duochat/module/chat/model"
)

// ConversationStore is the durable storage collaborator. It is a
// transactional black box to its callers: either an append is durable or it
// is not; a reader never observes a partial append. Implementations own
// their internal concurrency control.
type ConversationStore interface {
	// FindOrCreateConversation resolves the conversation for the unordered
	// pair {a, b}, creating it on first use.
	FindOrCreateConversation(ctx context.Context, a, b string) (model.Conversation, error)

	// AppendMessage durably appends a message with a store-generated id and
	// timestamp. Failure means nothing was written.
	AppendMessage(ctx context.Context, conv model.Conversation, senderID, receiverID, body string) (model.Message, error)

	// ListMessages returns the conversation history in insertion order.
	ListMessages(ctx context.Context, conv model.Conversation) ([]model.Message, error)
}
