package mongostore

import (
	"context"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"letschat/server/internal/models"
	"letschat/server/internal/store"
)

func (s *Store) InsertMessage(ctx context.Context, msg *models.Message) error {
	msg.DeletedFor = emptyIfNil(msg.DeletedFor)
	msg.SeenBy = emptyIfNil(msg.SeenBy)
	_, err := s.messages.InsertOne(ctx, msg)
	return translate(err)
}

func (s *Store) GetMessage(ctx context.Context, id string) (*models.Message, error) {
	var msg models.Message
	if err := s.messages.FindOne(ctx, bson.M{"_id": id}).Decode(&msg); err != nil {
		return nil, translate(err)
	}
	return &msg, nil
}

func visibleFilter(conversationID, viewerID string) bson.M {
	return bson.M{
		"conversation_id": conversationID,
		"deleted_for":     bson.M{"$ne": viewerID},
	}
}

func (s *Store) CountVisibleMessages(ctx context.Context, conversationID, viewerID string) (int64, error) {
	return s.messages.CountDocuments(ctx, visibleFilter(conversationID, viewerID))
}

func (s *Store) ListVisibleMessages(ctx context.Context, q store.MessageQuery) ([]models.Message, error) {
	filter := visibleFilter(q.ConversationID, q.ViewerID)
	opts := options.Find().SetLimit(q.Limit)

	if q.Before != nil {
		filter["$or"] = bson.A{
			bson.M{"created_at": bson.M{"$lt": q.Before.CreatedAt}},
			bson.M{"created_at": q.Before.CreatedAt, "_id": bson.M{"$lt": q.Before.ID}},
		}
		opts.SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})
	} else {
		opts.SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}).SetSkip(q.Skip)
	}

	cursor, err := s.messages.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var msgs []models.Message
	if err := cursor.All(ctx, &msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}

func (s *Store) CountUnread(ctx context.Context, userID string, conversationIDs []string) (map[string]int64, error) {
	counts := make(map[string]int64)
	if len(conversationIDs) == 0 {
		return counts, nil
	}

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.D{
			{Key: "conversation_id", Value: bson.D{{Key: "$in", Value: conversationIDs}}},
			{Key: "sender_id", Value: bson.D{{Key: "$ne", Value: userID}}},
			{Key: "seen_by", Value: bson.D{{Key: "$ne", Value: userID}}},
		}}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$conversation_id"},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
	}

	cursor, err := s.messages.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var results []struct {
		ConversationID string `bson:"_id"`
		Count          int64  `bson:"count"`
	}
	if err := cursor.All(ctx, &results); err != nil {
		return nil, err
	}
	for _, r := range results {
		counts[r.ConversationID] = r.Count
	}
	return counts, nil
}

func (s *Store) MarkSeen(ctx context.Context, conversationID, userID string) (int64, error) {
	res, err := s.messages.UpdateMany(ctx,
		bson.M{
			"conversation_id": conversationID,
			"sender_id":       bson.M{"$ne": userID},
			"seen_by":         bson.M{"$ne": userID},
		},
		bson.M{"$addToSet": bson.M{"seen_by": userID}},
	)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

func (s *Store) DeleteMessageFor(ctx context.Context, messageID, userID string) error {
	res, err := s.messages.UpdateOne(ctx, bson.M{"_id": messageID},
		bson.M{"$addToSet": bson.M{"deleted_for": userID}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) DeleteConversationMessages(ctx context.Context, conversationID string) (int64, error) {
	res, err := s.messages.DeleteMany(ctx, bson.M{"conversation_id": conversationID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
