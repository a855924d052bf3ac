package mongostore

import (
	"context"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"letschat/server/internal/models"
	"letschat/server/internal/store"
)

func (s *Store) CreateConversation(ctx context.Context, conv *models.Conversation) error {
	_, err := s.conversations.InsertOne(ctx, conv)
	return translate(err)
}

func (s *Store) GetConversation(ctx context.Context, id string) (*models.Conversation, error) {
	return s.findConversation(ctx, bson.M{"_id": id})
}

func (s *Store) FindDirectConversation(ctx context.Context, userA, userB string) (*models.Conversation, error) {
	return s.findConversation(ctx, bson.M{
		"kind":         models.KindDirect,
		"participants": bson.M{"$all": bson.A{userA, userB}},
	})
}

func (s *Store) findConversation(ctx context.Context, filter bson.M) (*models.Conversation, error) {
	var conv models.Conversation
	if err := s.conversations.FindOne(ctx, filter).Decode(&conv); err != nil {
		return nil, translate(err)
	}
	return &conv, nil
}

func (s *Store) TouchConversation(ctx context.Context, id string, at time.Time) error {
	res, err := s.conversations.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"updated_at": at}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func adminFilter(id, adminID string) bson.M {
	return bson.M{"_id": id, "kind": models.KindGroup, "group.admin_id": adminID}
}

func (s *Store) UpdateGroup(ctx context.Context, id, adminID string, patch store.GroupPatch, at time.Time) (*models.Conversation, error) {
	set := bson.M{"updated_at": at}
	if patch.Name != "" {
		set["group.name"] = patch.Name
	}
	if patch.Description != "" {
		set["group.description"] = patch.Description
	}
	if patch.Picture != "" {
		set["group.picture"] = patch.Picture
	}
	return s.updateConversation(ctx, adminFilter(id, adminID), bson.M{"$set": set})
}

func (s *Store) AddParticipants(ctx context.Context, id, adminID string, userIDs []string, at time.Time) (*models.Conversation, error) {
	return s.updateConversation(ctx, adminFilter(id, adminID), bson.M{
		"$addToSet": bson.M{"participants": bson.M{"$each": emptyIfNil(userIDs)}},
		"$set":      bson.M{"updated_at": at},
	})
}

func (s *Store) RemoveParticipants(ctx context.Context, id, adminID string, userIDs []string, at time.Time) (*models.Conversation, error) {
	return s.updateConversation(ctx, adminFilter(id, adminID), bson.M{
		"$pull": bson.M{"participants": bson.M{"$in": emptyIfNil(userIDs)}},
		"$set":  bson.M{"updated_at": at},
	})
}

func (s *Store) DeleteGroup(ctx context.Context, id, adminID string) (*models.Conversation, error) {
	var conv models.Conversation
	if err := s.conversations.FindOneAndDelete(ctx, adminFilter(id, adminID)).Decode(&conv); err != nil {
		return nil, translate(err)
	}
	return &conv, nil
}

func (s *Store) LeaveGroup(ctx context.Context, id, userID, nextAdminID string, at time.Time) (*models.Conversation, error) {
	filter := bson.M{"_id": id, "kind": models.KindGroup, "participants": userID}
	set := bson.M{"updated_at": at}
	if nextAdminID != "" {
		filter["group.admin_id"] = userID
		set["group.admin_id"] = nextAdminID
	}
	return s.updateConversation(ctx, filter, bson.M{
		"$pull": bson.M{"participants": userID},
		"$set":  set,
	})
}

func (s *Store) DeleteConversation(ctx context.Context, id string) error {
	res, err := s.conversations.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) updateConversation(ctx context.Context, filter, update bson.M) (*models.Conversation, error) {
	var conv models.Conversation
	if err := s.conversations.FindOneAndUpdate(ctx, filter, update, afterUpdate()).Decode(&conv); err != nil {
		return nil, translate(err)
	}
	return &conv, nil
}

// feedDoc is a conversation joined with its last visible message.
type feedDoc struct {
	models.Conversation `bson:",inline"`
	Last                *lastDoc `bson:"last,omitempty"`
}

type lastDoc struct {
	models.Message `bson:",inline"`
	Sender         *models.UserSummary `bson:"sender,omitempty"`
}

// ListFeed runs the feed aggregation: membership match, optional search on
// group fields or the counterpart's name, a per-viewer lookup of the newest
// message not deleted for the viewer, then sort and limit.
func (s *Store) ListFeed(ctx context.Context, q store.FeedQuery) ([]store.FeedRow, error) {
	cursor, err := s.conversations.Aggregate(ctx, feedPipeline(q))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []feedDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}

	rows := make([]store.FeedRow, len(docs))
	for i, d := range docs {
		rows[i].Conversation = d.Conversation
		if d.Last != nil {
			msg := d.Last.Message
			rows[i].LastMessage = &msg
			rows[i].LastSender = d.Last.Sender
		}
	}
	return rows, nil
}

func feedPipeline(q store.FeedQuery) mongo.Pipeline {
	match := bson.D{{Key: "participants", Value: q.UserID}}
	if len(q.Exclude) > 0 {
		match = append(match, bson.E{Key: "_id", Value: bson.M{"$nin": q.Exclude}})
	}
	if q.Kind != "" {
		match = append(match, bson.E{Key: "kind", Value: q.Kind})
	}

	pipeline := mongo.Pipeline{{{Key: "$match", Value: match}}}

	if q.Search != "" {
		pattern := bson.Regex{Pattern: regexp.QuoteMeta(q.Search), Options: "i"}
		pipeline = append(pipeline,
			bson.D{{Key: "$lookup", Value: bson.D{
				{Key: "from", Value: usersCollection},
				{Key: "localField", Value: "participants"},
				{Key: "foreignField", Value: "_id"},
				{Key: "as", Value: "members"},
				{Key: "pipeline", Value: bson.A{
					bson.D{{Key: "$project", Value: bson.D{{Key: "full_name", Value: 1}}}},
				}},
			}}},
			bson.D{{Key: "$match", Value: bson.D{{Key: "$or", Value: bson.A{
				bson.D{{Key: "group.name", Value: pattern}},
				bson.D{{Key: "group.description", Value: pattern}},
				bson.D{
					{Key: "kind", Value: models.KindDirect},
					{Key: "members", Value: bson.D{{Key: "$elemMatch", Value: bson.D{
						{Key: "_id", Value: bson.D{{Key: "$ne", Value: q.UserID}}},
						{Key: "full_name", Value: pattern},
					}}}},
				},
			}}}}},
			bson.D{{Key: "$project", Value: bson.D{{Key: "members", Value: 0}}}},
		)
	}

	pipeline = append(pipeline,
		bson.D{{Key: "$lookup", Value: bson.D{
			{Key: "from", Value: messagesCollection},
			{Key: "let", Value: bson.D{{Key: "cid", Value: "$_id"}}},
			{Key: "pipeline", Value: bson.A{
				bson.D{{Key: "$match", Value: bson.D{
					{Key: "$expr", Value: bson.D{{Key: "$eq", Value: bson.A{"$conversation_id", "$$cid"}}}},
					{Key: "deleted_for", Value: bson.D{{Key: "$ne", Value: q.UserID}}},
				}}},
				bson.D{{Key: "$sort", Value: bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}}},
				bson.D{{Key: "$limit", Value: 1}},
				bson.D{{Key: "$lookup", Value: bson.D{
					{Key: "from", Value: usersCollection},
					{Key: "localField", Value: "sender_id"},
					{Key: "foreignField", Value: "_id"},
					{Key: "as", Value: "sender"},
					{Key: "pipeline", Value: bson.A{
						bson.D{{Key: "$project", Value: bson.D{{Key: "full_name", Value: 1}, {Key: "profile_pic", Value: 1}}}},
					}},
				}}},
				bson.D{{Key: "$unwind", Value: bson.D{
					{Key: "path", Value: "$sender"},
					{Key: "preserveNullAndEmptyArrays", Value: true},
				}}},
			}},
			{Key: "as", Value: "last"},
		}}},
		bson.D{{Key: "$unwind", Value: bson.D{
			{Key: "path", Value: "$last"},
			{Key: "preserveNullAndEmptyArrays", Value: true},
		}}},
		bson.D{{Key: "$addFields", Value: bson.D{{Key: "has_message", Value: bson.D{{Key: "$cond", Value: bson.A{
			bson.D{{Key: "$ifNull", Value: bson.A{"$last._id", false}}}, 1, 0,
		}}}}}}},
		bson.D{{Key: "$sort", Value: bson.D{
			{Key: "has_message", Value: -1},
			{Key: "last.created_at", Value: -1},
			{Key: "created_at", Value: -1},
			{Key: "_id", Value: -1},
		}}},
	)

	if q.Limit > 0 {
		pipeline = append(pipeline, bson.D{{Key: "$limit", Value: q.Limit}})
	}
	return pipeline
}
