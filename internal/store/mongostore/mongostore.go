// Package mongostore implements store.Store on MongoDB.
package mongostore

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"

	"letschat/server/internal/database"
	"letschat/server/internal/store"
)

const (
	usersCollection          = "users"
	conversationsCollection  = "conversations"
	messagesCollection       = "messages"
	friendRequestsCollection = "friend_requests"
)

type Store struct {
	conn           *database.Mongo
	users          *mongo.Collection
	conversations  *mongo.Collection
	messages       *mongo.Collection
	friendRequests *mongo.Collection
}

var _ store.Store = (*Store)(nil)

func New(conn *database.Mongo) *Store {
	return &Store{
		conn:           conn,
		users:          conn.DB.Collection(usersCollection),
		conversations:  conn.DB.Collection(conversationsCollection),
		messages:       conn.DB.Collection(messagesCollection),
		friendRequests: conn.DB.Collection(friendRequestsCollection),
	}
}

func (s *Store) Ping(ctx context.Context) error {
	return s.conn.Client.Ping(ctx, readpref.Primary())
}

func (s *Store) Close(ctx context.Context) error {
	return s.conn.Close(ctx)
}

// EnsureIndexes creates the indexes the queries rely on. It is idempotent.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	indexes := map[*mongo.Collection][]mongo.IndexModel{
		s.users: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "user_name", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		s.conversations: {
			{Keys: bson.D{{Key: "participants", Value: 1}, {Key: "kind", Value: 1}}},
		},
		s.messages: {
			{Keys: bson.D{{Key: "conversation_id", Value: 1}, {Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}},
			{Keys: bson.D{{Key: "conversation_id", Value: 1}, {Key: "sender_id", Value: 1}}},
		},
		s.friendRequests: {
			{
				Keys: bson.D{{Key: "sent_by", Value: 1}, {Key: "sent_to", Value: 1}},
				Options: options.Index().
					SetUnique(true).
					SetPartialFilterExpression(bson.D{{Key: "status", Value: "pending"}}),
			},
			{Keys: bson.D{{Key: "sent_to", Value: 1}, {Key: "status", Value: 1}}},
		},
	}

	for coll, models := range indexes {
		if _, err := coll.Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("failed to create %s indexes: %w", coll.Name(), err)
		}
	}
	return nil
}

// translate maps driver errors onto the store sentinels.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return store.ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return store.ErrDuplicate
	}
	return err
}

func emptyIfNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func afterUpdate() *options.FindOneAndUpdateOptionsBuilder {
	return options.FindOneAndUpdate().SetReturnDocument(options.After)
}
