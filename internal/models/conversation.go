package models

import "time"

// MessageSummary is the denormalized last-message snapshot kept on the
// conversation document so the chat list never has to join messages.
type MessageSummary struct {
	Text     string    `bson:"text" json:"text"`
	SenderID string    `bson:"sender_id" json:"sender_id"`
	SentAt   time.Time `bson:"sent_at" json:"sent_at"`
}

type Conversation struct {
	ID         string   `bson:"_id,omitempty" json:"id"`
	Members    []string `bson:"members" json:"members"` // user IDs only
	IsGroup    bool     `bson:"is_group" json:"is_group"`
	Name       string   `bson:"name,omitempty" json:"name,omitempty"`
	AdminID    string   `bson:"admin_id,omitempty" json:"admin_id,omitempty"`
	GroupImage string   `bson:"group_image,omitempty" json:"group_image,omitempty"`

	LastMessage *MessageSummary `bson:"last_message,omitempty" json:"last_message,omitempty"`

	// UnreadCount and ClearedHistory are keyed by member id; entries exist
	// only for current members.
	UnreadCount    map[string]int       `bson:"unread_count,omitempty" json:"unread_count,omitempty"`
	ClearedHistory map[string]time.Time `bson:"cleared_history,omitempty" json:"cleared_history,omitempty"`

	// DeletedBy marks members that soft-deleted a direct chat. Always empty
	// for groups.
	DeletedBy []string `bson:"deleted_by,omitempty" json:"deleted_by,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// HasMember reports whether userID is a current member.
func (c *Conversation) HasMember(userID string) bool {
	for _, m := range c.Members {
		if m == userID {
			return true
		}
	}
	return false
}

// HiddenFor reports whether userID soft-deleted this direct chat.
func (c *Conversation) HiddenFor(userID string) bool {
	for _, u := range c.DeletedBy {
		if u == userID {
			return true
		}
	}
	return false
}

// OtherMember returns the peer of userID in a direct chat, or "" when the
// conversation is a group or userID is not a member.
func (c *Conversation) OtherMember(userID string) string {
	if c.IsGroup || len(c.Members) != 2 {
		return ""
	}
	switch userID {
	case c.Members[0]:
		return c.Members[1]
	case c.Members[1]:
		return c.Members[0]
	}
	return ""
}
