package mongostore

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"letschat/server/internal/models"
	"letschat/server/internal/store"
)

func (s *Store) CreateFriendRequest(ctx context.Context, req *models.FriendRequest) error {
	_, err := s.friendRequests.InsertOne(ctx, req)
	return translate(err)
}

func (s *Store) GetFriendRequest(ctx context.Context, id string) (*models.FriendRequest, error) {
	return s.findFriendRequest(ctx, bson.M{"_id": id})
}

func (s *Store) FindPendingFriendRequest(ctx context.Context, sentBy, sentTo string) (*models.FriendRequest, error) {
	return s.findFriendRequest(ctx, bson.M{
		"sent_by": sentBy,
		"sent_to": sentTo,
		"status":  models.RequestPending,
	})
}

func (s *Store) findFriendRequest(ctx context.Context, filter bson.M) (*models.FriendRequest, error) {
	var req models.FriendRequest
	if err := s.friendRequests.FindOne(ctx, filter).Decode(&req); err != nil {
		return nil, translate(err)
	}
	return &req, nil
}

func (s *Store) ResolveFriendRequest(ctx context.Context, id, recipientID string, status models.FriendRequestStatus, at time.Time) (*models.FriendRequest, error) {
	filter := bson.M{"_id": id, "sent_to": recipientID, "status": models.RequestPending}
	update := bson.M{"$set": bson.M{"status": status, "updated_at": at}}

	var req models.FriendRequest
	if err := s.friendRequests.FindOneAndUpdate(ctx, filter, update, afterUpdate()).Decode(&req); err != nil {
		return nil, translate(err)
	}
	return &req, nil
}

func (s *Store) DeleteFriendRequest(ctx context.Context, id string) error {
	res, err := s.friendRequests.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) ListFriendRequests(ctx context.Context, f store.FriendRequestFilter) ([]models.FriendRequest, error) {
	filter := bson.M{}
	if f.SentBy != "" {
		filter["sent_by"] = f.SentBy
	}
	if f.SentTo != "" {
		filter["sent_to"] = f.SentTo
	}
	if f.Status != "" {
		filter["status"] = f.Status
	}

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})
	cursor, err := s.friendRequests.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var reqs []models.FriendRequest
	if err := cursor.All(ctx, &reqs); err != nil {
		return nil, err
	}
	return reqs, nil
}
