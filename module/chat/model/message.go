package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Message is immutable once persisted and belongs to exactly one
// conversation. The id is store-assigned on insert.
type Message struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ConversationID primitive.ObjectID `bson:"conversation_id" json:"-"`
	SenderID       string             `bson:"sender_id" json:"senderId"`
	ReceiverID     string             `bson:"receiver_id" json:"receiverId"`
	Body           string             `bson:"body" json:"message"`
	CreatedAt      time.Time          `bson:"created_at" json:"createdAt"`
}

func (Message) GetTableName() string {
	return "messages"
}
