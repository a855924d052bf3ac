package models

import "time"

// LastMessage is the newest message of a conversation visible to the requester.
type LastMessage struct {
	ID        string      `json:"id"`
	Type      MessageType `json:"type"`
	Text      string      `json:"text,omitempty"`
	Sender    UserSummary `json:"sender"`
	CreatedAt time.Time   `json:"createdAt"`
}

// ChatItem is one row of a user's conversation feed
type ChatItem struct {
	ID             string        `json:"id"`
	IsGroup        bool          `json:"isGroup"`
	Name           string        `json:"name"`
	Picture        string        `json:"picture"`
	Description    string        `json:"description,omitempty"`
	GroupAdmin     *UserSummary  `json:"groupAdmin,omitempty"`
	Users          []UserSummary `json:"users"`
	LastMessage    *LastMessage  `json:"lastMessage"`
	UnreadMessages int64         `json:"unreadMessages"`
	IsBlocked      bool          `json:"isBlocked"`
	CreatedAt      time.Time     `json:"createdAt"`
}

// FeedPage is one page of the conversation feed
type FeedPage struct {
	Chats           []ChatItem `json:"chats"`
	HasMore         bool       `json:"hasMore"`
	ConversationIDs []string   `json:"conversationIds"`
}

// GroupMember is a group participant as listed in the conversation header.
type GroupMember struct {
	UserSummary
	IsAdmin bool `json:"isAdmin"`
}

// ConversationView is an opened conversation with its newest messages.
type ConversationView struct {
	ConversationID string        `json:"conversationId"`
	IsGroup        bool          `json:"isGroup"`
	GroupName      string        `json:"groupName,omitempty"`
	Description    string        `json:"description,omitempty"`
	Picture        string        `json:"picture,omitempty"`
	GroupUsers     []GroupMember `json:"groupUsers,omitempty"`
	OtherUser      *UserSummary  `json:"otherUser,omitempty"`
	IsBlocked      bool          `json:"isBlocked"`
	Messages       []DayGroup    `json:"messages"`
	HasMore        bool          `json:"hasMore"`
}

// MessagePage is a page of older messages.
type MessagePage struct {
	Messages []DayGroup `json:"messages"`
	HasMore  bool       `json:"hasMore"`
}
