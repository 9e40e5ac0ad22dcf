package store

import (
	"context"
	"time"

	"duochat/module/chat/model"
	"duochat/service/mgo"
	"duochat/tools/errs"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoStore persists conversations and messages in two collections.
// Conversations are keyed by the sorted participant pair and upserted with
// $setOnInsert, so concurrent first messages for a pair converge on one
// document. Message ids are ObjectIDs: unique and monotonically creatable.
//
// The database is resolved through a getter on every operation, not captured
// at construction: the manager replaces its client after an outage, and a
// store holding the old client would fail every write until restart.
type MongoStore struct {
	resolve func() (*mongo.Database, bool)
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{resolve: func() (*mongo.Database, bool) { return db, db != nil }}
}

// NewMongoStoreFromManager binds the store to the process-wide mongo
// manager; each operation uses whatever client is currently connected.
func NewMongoStoreFromManager() *MongoStore {
	return &MongoStore{resolve: mgo.TryGetDB}
}

func (s *MongoStore) database() (*mongo.Database, error) {
	db, ok := s.resolve()
	if !ok {
		return nil, errs.ErrPersistence.WrapMsg("mongo not connected")
	}
	return db, nil
}

func (s *MongoStore) FindOrCreateConversation(ctx context.Context, a, b string) (model.Conversation, error) {
	db, err := s.database()
	if err != nil {
		return model.Conversation{}, err
	}

	pair := model.PairKey(a, b)
	filter := bson.M{"participants": pair}
	update := bson.M{"$setOnInsert": bson.M{
		"participants": pair,
		"created_at":   time.Now(),
	}}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var conv model.Conversation
	coll := db.Collection(model.Conversation{}.GetTableName())
	if err := coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&conv); err != nil {
		return model.Conversation{}, errs.ErrPersistence.WrapMsg("find or create conversation", "pair", pair, "err", err)
	}
	return conv, nil
}

func (s *MongoStore) AppendMessage(ctx context.Context, conv model.Conversation, senderID, receiverID, body string) (model.Message, error) {
	db, err := s.database()
	if err != nil {
		return model.Message{}, err
	}

	msg := model.Message{
		ID:             primitive.NewObjectID(),
		ConversationID: conv.ID,
		SenderID:       senderID,
		ReceiverID:     receiverID,
		Body:           body,
		CreatedAt:      time.Now(),
	}
	coll := db.Collection(model.Message{}.GetTableName())
	if _, err := coll.InsertOne(ctx, msg); err != nil {
		return model.Message{}, errs.ErrPersistence.WrapMsg("append message", "conversation", conv.ID.Hex(), "err", err)
	}
	return msg, nil
}

func (s *MongoStore) ListMessages(ctx context.Context, conv model.Conversation) ([]model.Message, error) {
	db, err := s.database()
	if err != nil {
		return nil, err
	}

	// _id order == insertion order for store-generated ObjectIDs
	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
	coll := db.Collection(model.Message{}.GetTableName())
	cur, err := coll.Find(ctx, bson.M{"conversation_id": conv.ID}, opts)
	if err != nil {
		return nil, errs.ErrPersistence.WrapMsg("list messages", "conversation", conv.ID.Hex(), "err", err)
	}
	defer cur.Close(ctx)

	var out []model.Message
	if err := cur.All(ctx, &out); err != nil {
		return nil, errs.ErrPersistence.WrapMsg("decode messages", "conversation", conv.ID.Hex(), "err", err)
	}
	return out, nil
}

// EnsureIndexes creates the lookup indexes; call once after the store becomes
// ready.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	db, err := s.database()
	if err != nil {
		return err
	}

	_, err = db.Collection(model.Conversation{}.GetTableName()).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "participants", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return err
	}
	_, err = db.Collection(model.Message{}.GetTableName()).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "conversation_id", Value: 1}, {Key: "_id", Value: 1}},
	})
	return err
}
