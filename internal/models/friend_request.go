package models

import "time"

// FriendRequestStatus is the lifecycle state of a friend request.
type FriendRequestStatus string

const (
	RequestPending  FriendRequestStatus = "pending"
	RequestAccepted FriendRequestStatus = "accepted"
	RequestRejected FriendRequestStatus = "rejected"
)

// FriendRequest is a pending or answered request between two users
type FriendRequest struct {
	ID        string              `json:"id" bson:"_id"`
	SentBy    string              `json:"sentBy" bson:"sent_by"`
	SentTo    string              `json:"sentTo" bson:"sent_to"`
	Status    FriendRequestStatus `json:"status" bson:"status"`
	CreatedAt time.Time           `json:"createdAt" bson:"created_at"`
	UpdatedAt time.Time           `json:"updatedAt" bson:"updated_at"`
}

// FriendRequestWithUser includes the other side of the request
type FriendRequestWithUser struct {
	ID        string              `json:"id"`
	Status    FriendRequestStatus `json:"status"`
	User      UserSummary         `json:"user"`
	CreatedAt time.Time           `json:"createdAt"`
}
