package models

// Wire event names for the realtime channel.
const (
	EventIdentify           = "identify"
	EventMessageCreated     = "getMessage"
	EventConversationNew    = "newConversation"
	EventConversationDelete = "deleteConversation"
)

// Envelope is the standard wire format for ws events, client and server
// directions alike.
type Envelope struct {
	Type           string        `json:"type"`
	UserID         string        `json:"user_id,omitempty"`
	ConversationID string        `json:"conversation_id,omitempty"`
	Message        *Message      `json:"message,omitempty"`
	Conversation   *Conversation `json:"conversation,omitempty"`
	// Members carries the recipient list for events whose conversation no
	// longer exists (deletes).
	Members []string `json:"members,omitempty"`
	// Origin identifies the publishing instance so consumers can skip
	// events they already delivered locally.
	Origin string `json:"origin,omitempty"`
}
