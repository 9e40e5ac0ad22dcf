package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Conversation is the durable record for one unordered pair of participants.
// Created lazily on the first message between the pair; the sorted pair is
// the lookup key, so {A,B} and {B,A} resolve to the same document.
type Conversation struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Participants []string           `bson:"participants" json:"participants"` // sorted pair
	CreatedAt    time.Time          `bson:"created_at" json:"createdAt"`
}

func (Conversation) GetTableName() string {
	return "conversations"
}

// PairKey returns the canonical sorted participant pair.
func PairKey(a, b string) []string {
	if b < a {
		a, b = b, a
	}
	return []string{a, b}
}
