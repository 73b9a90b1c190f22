package repository

import (
	"context"
	"time"

	"github.com/amanigreeva/Sociosphere-sub001/internal/models"
)

// ConversationRepo owns the Conversations collection. Mutations that touch
// counters or the summary are single-document updates so concurrent senders
// never race on unread_count or last_message.
type ConversationRepo interface {
	Insert(ctx context.Context, c *models.Conversation) (*models.Conversation, error)
	Get(ctx context.Context, id string) (*models.Conversation, error)
	// FindDirectByPair looks up the direct chat for an unordered member pair.
	FindDirectByPair(ctx context.Context, a, b string) (*models.Conversation, error)
	// ListForUser returns conversations where the user is a member and has
	// not soft-deleted the chat, newest activity first.
	ListForUser(ctx context.Context, userID string) ([]*models.Conversation, error)
	Rename(ctx context.Context, id, name string) error
	SetGroupImage(ctx context.Context, id, url string) error
	// AddMembers appends the given ids and stamps their history watermark so
	// new members never see prior history.
	AddMembers(ctx context.Context, id string, newIDs []string, joinedAt time.Time) error
	// RemoveMember drops the member and all per-member state; newAdmin, when
	// non-empty, becomes the group admin in the same update.
	RemoveMember(ctx context.Context, id, userID, newAdmin string) error
	Delete(ctx context.Context, id string) error
	// ApplyAppend is the summary half of a message append: sets last_message
	// and updated_at, bumps unread_count for every recipient, and clears
	// deleted_by (a new message revives a soft-deleted direct chat). One
	// atomic update per append.
	ApplyAppend(ctx context.Context, id string, sum *models.MessageSummary, recipients []string) error
	MarkRead(ctx context.Context, id, userID string) error
	SetCleared(ctx context.Context, id, userID string, at time.Time) error
	// SoftDelete hides a direct chat for one user: deleted_by marker plus a
	// history watermark.
	SoftDelete(ctx context.Context, id, userID string, at time.Time) error
}

// MessageRepo owns the Messages collection.
type MessageRepo interface {
	Insert(ctx context.Context, m *models.Message) (*models.Message, error)
	Get(ctx context.Context, id string) (*models.Message, error)
	// ListSince returns the conversation's messages in chronological order,
	// strictly after the given watermark. A zero watermark returns everything.
	ListSince(ctx context.Context, conversationID string, after time.Time) ([]*models.Message, error)
	Delete(ctx context.Context, id string) error
	DeleteByConversation(ctx context.Context, conversationID string) error
	// DeleteOlderThan purges messages created at or before the cutoff,
	// regardless of read or clear state. Returns the number removed.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
