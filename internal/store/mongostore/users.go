package mongostore

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"letschat/server/internal/models"
	"letschat/server/internal/store"
)

func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	// set fields are stored as arrays so $addToSet works on them
	user.Friends = emptyIfNil(user.Friends)
	user.SentFriendRequests = emptyIfNil(user.SentFriendRequests)
	user.Conversations = emptyIfNil(user.Conversations)
	user.BlockedConversations = emptyIfNil(user.BlockedConversations)

	_, err := s.users.InsertOne(ctx, user)
	return translate(err)
}

func (s *Store) GetUser(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := s.users.FindOne(ctx, bson.M{"_id": id}).Decode(&user); err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := s.users.FindOne(ctx, bson.M{"email": email}).Decode(&user); err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (s *Store) UserNameTaken(ctx context.Context, userName string) (bool, error) {
	n, err := s.users.CountDocuments(ctx, bson.M{"user_name": userName}, options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *Store) ListUsers(ctx context.Context, ids []string) ([]models.User, error) {
	cursor, err := s.users.Find(ctx, bson.M{"_id": bson.M{"$in": emptyIfNil(ids)}})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var users []models.User
	if err := cursor.All(ctx, &users); err != nil {
		return nil, err
	}
	return users, nil
}

func (s *Store) ListUserSummaries(ctx context.Context, ids []string) ([]models.UserSummary, error) {
	opts := options.Find().SetProjection(bson.D{{Key: "full_name", Value: 1}, {Key: "profile_pic", Value: 1}})
	cursor, err := s.users.Find(ctx, bson.M{"_id": bson.M{"$in": emptyIfNil(ids)}}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var summaries []models.UserSummary
	if err := cursor.All(ctx, &summaries); err != nil {
		return nil, err
	}
	return summaries, nil
}

func (s *Store) SuggestUsers(ctx context.Context, exclude []string, limit int64) ([]models.User, error) {
	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}).SetLimit(limit)
	cursor, err := s.users.Find(ctx, bson.M{"_id": bson.M{"$nin": emptyIfNil(exclude)}}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var users []models.User
	if err := cursor.All(ctx, &users); err != nil {
		return nil, err
	}
	return users, nil
}

func (s *Store) LinkFriend(ctx context.Context, userID, friendID, conversationID string, at time.Time) error {
	add := bson.M{"friends": friendID}
	if conversationID != "" {
		add["conversations"] = conversationID
	}
	return s.updateUser(ctx, bson.M{"_id": userID}, bson.M{"$addToSet": add}, at)
}

func (s *Store) AddSentRequest(ctx context.Context, userID, targetID string, at time.Time) error {
	return s.updateUser(ctx, bson.M{"_id": userID}, bson.M{"$addToSet": bson.M{"sent_friend_requests": targetID}}, at)
}

func (s *Store) RemoveSentRequest(ctx context.Context, userID, targetID string, at time.Time) error {
	return s.updateUser(ctx, bson.M{"_id": userID}, bson.M{"$pull": bson.M{"sent_friend_requests": targetID}}, at)
}

func (s *Store) AddConversation(ctx context.Context, userIDs []string, conversationID string, at time.Time) error {
	return s.updateUsers(ctx, bson.M{"_id": bson.M{"$in": emptyIfNil(userIDs)}},
		bson.M{"$addToSet": bson.M{"conversations": conversationID}}, at)
}

func (s *Store) RemoveConversation(ctx context.Context, userIDs []string, conversationID string, at time.Time) error {
	return s.updateUsers(ctx, bson.M{"_id": bson.M{"$in": emptyIfNil(userIDs)}},
		bson.M{"$pull": bson.M{"conversations": conversationID}}, at)
}

func (s *Store) RemoveConversationFromAll(ctx context.Context, conversationID string, at time.Time) error {
	filter := bson.M{"$or": bson.A{
		bson.M{"conversations": conversationID},
		bson.M{"blocked_conversations": conversationID},
	}}
	return s.updateUsers(ctx, filter, bson.M{"$pull": bson.M{
		"conversations":         conversationID,
		"blocked_conversations": conversationID,
	}}, at)
}

func (s *Store) SetConversationBlocked(ctx context.Context, userID, conversationID string, blocked bool, at time.Time) error {
	op := "$pull"
	if blocked {
		op = "$addToSet"
	}
	return s.updateUser(ctx, bson.M{"_id": userID}, bson.M{op: bson.M{"blocked_conversations": conversationID}}, at)
}

func (s *Store) updateUser(ctx context.Context, filter, update bson.M, at time.Time) error {
	update["$set"] = bson.M{"updated_at": at}
	res, err := s.users.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) updateUsers(ctx context.Context, filter, update bson.M, at time.Time) error {
	update["$set"] = bson.M{"updated_at": at}
	_, err := s.users.UpdateMany(ctx, filter, update)
	return err
}
