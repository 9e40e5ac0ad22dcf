package store

import (
	"context"
	"testing"

	"duochat/module/chat/model"
	"duochat/tools/errs"

	"github.com/stretchr/testify/require"

	"go.mongodb.org/mongo-driver/mongo"
)

func TestMongoStore_NotConnected_SurfacesPersistenceError(t *testing.T) {
	req := require.New(t)
	st := NewMongoStore(nil)
	ctx := context.Background()

	_, err := st.FindOrCreateConversation(ctx, "a", "b")
	req.ErrorIs(err, errs.ErrPersistence)

	_, err = st.AppendMessage(ctx, model.Conversation{}, "a", "b", "hi")
	req.ErrorIs(err, errs.ErrPersistence)

	_, err = st.ListMessages(ctx, model.Conversation{})
	req.ErrorIs(err, errs.ErrPersistence)

	req.ErrorIs(st.EnsureIndexes(ctx), errs.ErrPersistence)
}

func TestMongoStore_ResolvesDatabasePerOperation(t *testing.T) {
	req := require.New(t)

	// a store must pick up a reconnected client, so the getter runs on every
	// call rather than once at construction
	calls := 0
	st := &MongoStore{resolve: func() (*mongo.Database, bool) {
		calls++
		return nil, false
	}}
	ctx := context.Background()

	_, _ = st.FindOrCreateConversation(ctx, "a", "b")
	_, _ = st.AppendMessage(ctx, model.Conversation{}, "a", "b", "hi")
	_, _ = st.ListMessages(ctx, model.Conversation{})

	req.Equal(3, calls)
}
