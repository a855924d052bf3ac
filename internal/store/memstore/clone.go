package memstore

import "letschat/server/internal/models"

// Stored documents are copied on the way in and out so callers never share
// slices with the store.

func cloneUser(u *models.User) *models.User {
	cp := *u
	cp.Friends = cloneSlice(u.Friends)
	cp.SentFriendRequests = cloneSlice(u.SentFriendRequests)
	cp.Conversations = cloneSlice(u.Conversations)
	cp.BlockedConversations = cloneSlice(u.BlockedConversations)
	return &cp
}

func cloneConversation(c *models.Conversation) *models.Conversation {
	cp := *c
	cp.Participants = cloneSlice(c.Participants)
	if c.Group != nil {
		g := *c.Group
		cp.Group = &g
	}
	return &cp
}

func cloneMessage(m *models.Message) *models.Message {
	cp := *m
	cp.DeletedFor = cloneSlice(m.DeletedFor)
	cp.SeenBy = cloneSlice(m.SeenBy)
	return &cp
}

func cloneSlice(s []string) []string {
	if s == nil {
		return nil
	}
	return append([]string(nil), s...)
}

func toSet(ids []string) map[string]bool {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}

func addToSet(set []string, id string) []string {
	for _, v := range set {
		if v == id {
			return set
		}
	}
	return append(set, id)
}

func pull(set []string, id string) []string {
	out := set[:0]
	for _, v := range set {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
