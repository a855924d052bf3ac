package models

import "time"

// DefaultBio is assigned to new users and groups without a description.
const DefaultBio = "Hey there, i am using Lets chat!"

// User represents a registered account
type User struct {
	ID                   string    `json:"id" bson:"_id"`
	FullName             string    `json:"fullName" bson:"full_name"`
	UserName             string    `json:"userName" bson:"user_name"`
	Email                string    `json:"email" bson:"email"`
	PasswordHash         string    `json:"-" bson:"password_hash"` // Never expose in JSON
	ProfilePic           string    `json:"profilePic" bson:"profile_pic"`
	Bio                  string    `json:"bio" bson:"bio"`
	Friends              []string  `json:"friends" bson:"friends"`
	SentFriendRequests   []string  `json:"sentFriendRequests" bson:"sent_friend_requests"`
	Conversations        []string  `json:"conversations" bson:"conversations"`
	BlockedConversations []string  `json:"blockedConversations" bson:"blocked_conversations"`
	CreatedAt            time.Time `json:"createdAt" bson:"created_at"`
	UpdatedAt            time.Time `json:"updatedAt" bson:"updated_at"`
}

// UserResponse is what we send to clients (without sensitive data)
type UserResponse struct {
	ID         string    `json:"id"`
	FullName   string    `json:"fullName"`
	UserName   string    `json:"userName"`
	Email      string    `json:"email"`
	ProfilePic string    `json:"profilePic"`
	Bio        string    `json:"bio"`
	Friends    []string  `json:"friends"`
	CreatedAt  time.Time `json:"createdAt"`
}

// UserSummary is the identity shown next to messages, requests and chat members.
type UserSummary struct {
	ID         string `json:"id" bson:"_id"`
	FullName   string `json:"fullName" bson:"full_name"`
	ProfilePic string `json:"profilePic" bson:"profile_pic"`
}

// ToResponse converts User to UserResponse
func (u *User) ToResponse() UserResponse {
	friends := u.Friends
	if friends == nil {
		friends = []string{}
	}
	return UserResponse{
		ID:         u.ID,
		FullName:   u.FullName,
		UserName:   u.UserName,
		Email:      u.Email,
		ProfilePic: u.ProfilePic,
		Bio:        u.Bio,
		Friends:    friends,
		CreatedAt:  u.CreatedAt,
	}
}

// Summary returns the public identity of the user.
func (u *User) Summary() UserSummary {
	return UserSummary{ID: u.ID, FullName: u.FullName, ProfilePic: u.ProfilePic}
}

// IsFriend reports whether id is in the user's friend list.
func (u *User) IsFriend(id string) bool {
	return contains(u.Friends, id)
}

// HasBlocked reports whether the user blocked the conversation.
func (u *User) HasBlocked(conversationID string) bool {
	return contains(u.BlockedConversations, conversationID)
}

func contains(set []string, id string) bool {
	for _, v := range set {
		if v == id {
			return true
		}
	}
	return false
}
