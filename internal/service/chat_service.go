package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/amanigreeva/Sociosphere-sub001/internal/apperr"
	"github.com/amanigreeva/Sociosphere-sub001/internal/models"
	"github.com/amanigreeva/Sociosphere-sub001/internal/repository"
)

// Notifier receives mutation events after the primary write committed.
// Implementations must be best-effort; they cannot fail the operation.
type Notifier interface {
	MessageCreated(ctx context.Context, conv *models.Conversation, msg *models.Message)
	ConversationCreated(ctx context.Context, conv *models.Conversation)
	ConversationDeleted(ctx context.Context, conversationID string, members []string)
}

// ReplyHook is invoked for every appended message so the automated account
// can schedule its reply. Must not block.
type ReplyHook interface {
	OnMessage(ctx context.Context, conv *models.Conversation, msg *models.Message)
}

// ChatService implements every synchronous operation of the chat core.
type ChatService struct {
	convs    repository.ConversationRepo
	msgs     repository.MessageRepo
	notifier Notifier
	replies  ReplyHook
	log      *zap.SugaredLogger
}

func NewChatService(convs repository.ConversationRepo, msgs repository.MessageRepo, log *zap.SugaredLogger) *ChatService {
	return &ChatService{convs: convs, msgs: msgs, log: log}
}

// SetNotifier and SetReplyHook are wired after construction; the
// broadcaster and responder both depend on the service's store views.
func (s *ChatService) SetNotifier(n Notifier)   { s.notifier = n }
func (s *ChatService) SetReplyHook(r ReplyHook) { s.replies = r }

// Get loads a conversation without any caller-specific view applied.
func (s *ChatService) Get(ctx context.Context, id string) (*models.Conversation, error) {
	return s.convs.Get(ctx, id)
}

// CreateDirect returns the direct chat between a and b, creating it on
// first contact. Idempotent on the unordered pair.
func (s *ChatService) CreateDirect(ctx context.Context, a, b string) (*models.Conversation, error) {
	if a == b {
		return nil, apperr.InvalidState("direct conversation needs two distinct members")
	}
	if existing, err := s.convs.FindDirectByPair(ctx, a, b); err == nil {
		return s.sanitize(existing, a), nil
	} else if apperr.CodeOf(err) != apperr.CodeNotFound {
		return nil, err
	}

	conv, err := s.convs.Insert(ctx, &models.Conversation{
		Members: []string{a, b},
		IsGroup: false,
	})
	if err != nil {
		return nil, err
	}
	if s.notifier != nil {
		s.notifier.ConversationCreated(ctx, conv)
	}
	return conv, nil
}

// GetConversationBetween returns the existing direct chat between the
// requester and other, sanitized for the requester.
func (s *ChatService) GetConversationBetween(ctx context.Context, requester, other string) (*models.Conversation, error) {
	conv, err := s.convs.FindDirectByPair(ctx, requester, other)
	if err != nil {
		return nil, err
	}
	return s.sanitize(conv, requester), nil
}

func (s *ChatService) CreateGroup(ctx context.Context, creator string, members []string, name, image string) (*models.Conversation, error) {
	all := dedup(append([]string{creator}, members...))
	if len(all) < 2 {
		return nil, apperr.InvalidState("group needs at least two members")
	}
	conv, err := s.convs.Insert(ctx, &models.Conversation{
		Members:    all,
		IsGroup:    true,
		Name:       name,
		AdminID:    creator,
		GroupImage: image,
	})
	if err != nil {
		return nil, err
	}
	if s.notifier != nil {
		s.notifier.ConversationCreated(ctx, conv)
	}
	return conv, nil
}

// AddMembers adds the truly-new ids to a group; each gets a history
// watermark at join time so prior messages stay invisible to them.
func (s *ChatService) AddMembers(ctx context.Context, id string, newIDs []string, requester string) (*models.Conversation, error) {
	conv, err := s.convs.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !conv.IsGroup {
		return nil, apperr.InvalidState("not a group conversation")
	}
	if !conv.HasMember(requester) {
		return nil, apperr.Forbidden("only members can add members")
	}

	var adding []string
	for _, uid := range dedup(newIDs) {
		if !conv.HasMember(uid) {
			adding = append(adding, uid)
		}
	}
	if len(adding) == 0 {
		return conv, nil
	}

	if err := s.convs.AddMembers(ctx, id, adding, time.Now().UTC()); err != nil {
		return nil, err
	}
	updated, err := s.convs.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.notifier != nil {
		s.notifier.ConversationCreated(ctx, updated)
	}
	return updated, nil
}

func (s *ChatService) Rename(ctx context.Context, id, name, requester string) error {
	if err := s.requireGroupAdmin(ctx, id, requester); err != nil {
		return err
	}
	return s.convs.Rename(ctx, id, name)
}

func (s *ChatService) SetGroupImage(ctx context.Context, id, url, requester string) error {
	if err := s.requireGroupAdmin(ctx, id, requester); err != nil {
		return err
	}
	return s.convs.SetGroupImage(ctx, id, url)
}

func (s *ChatService) requireGroupAdmin(ctx context.Context, id, requester string) error {
	conv, err := s.convs.Get(ctx, id)
	if err != nil {
		return err
	}
	if !conv.IsGroup {
		return apperr.InvalidState("not a group conversation")
	}
	if conv.AdminID != requester {
		return apperr.Forbidden("admin only")
	}
	return nil
}

// Leave removes the user. The last member out deletes the conversation and
// its messages; a departing admin hands the group to the first remaining
// member.
func (s *ChatService) Leave(ctx context.Context, id, userID string) error {
	conv, err := s.convs.Get(ctx, id)
	if err != nil {
		return err
	}
	if !conv.HasMember(userID) {
		return apperr.Forbidden("not a member")
	}

	remaining := make([]string, 0, len(conv.Members)-1)
	for _, m := range conv.Members {
		if m != userID {
			remaining = append(remaining, m)
		}
	}

	if len(remaining) == 0 {
		return s.destroy(ctx, conv)
	}

	newAdmin := ""
	if conv.IsGroup && conv.AdminID == userID {
		newAdmin = remaining[0]
	}
	return s.convs.RemoveMember(ctx, id, userID, newAdmin)
}

// Delete hard-deletes a group (admin only, cascades messages, notifies the
// prior members) and soft-hides a direct chat for the requester.
func (s *ChatService) Delete(ctx context.Context, id, requester string) error {
	conv, err := s.convs.Get(ctx, id)
	if err != nil {
		return err
	}
	if !conv.HasMember(requester) {
		return apperr.Forbidden("not a member")
	}

	if conv.IsGroup {
		if conv.AdminID != requester {
			return apperr.Forbidden("admin only")
		}
		return s.destroy(ctx, conv)
	}
	return s.convs.SoftDelete(ctx, id, requester, time.Now().UTC())
}

func (s *ChatService) destroy(ctx context.Context, conv *models.Conversation) error {
	if err := s.convs.Delete(ctx, conv.ID); err != nil {
		return err
	}
	if err := s.msgs.DeleteByConversation(ctx, conv.ID); err != nil {
		// conversation is gone; orphaned messages fall to the TTL purge
		s.log.Warnw("message cascade failed", "conversation", conv.ID, "err", err)
	}
	if s.notifier != nil {
		s.notifier.ConversationDeleted(ctx, conv.ID, conv.Members)
	}
	return nil
}

// ListConversations returns the requester's visible chats, newest activity
// first, with the caller-specific view applied.
func (s *ChatService) ListConversations(ctx context.Context, userID string) ([]*models.Conversation, error) {
	convs, err := s.convs.ListForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	for i, c := range convs {
		convs[i] = s.sanitize(c, userID)
	}
	return convs, nil
}

// SendMessage appends a message and applies the conversation summary update
// as one logical operation, then fans the event out and offers it to the
// reply hook. A new message revives a soft-deleted direct chat for everyone.
func (s *ChatService) SendMessage(ctx context.Context, senderID, conversationID, text string, file *models.FileInfo) (*models.Message, error) {
	if text == "" && file == nil {
		return nil, apperr.InvalidState("empty message")
	}
	conv, err := s.convs.Get(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if !conv.HasMember(senderID) {
		return nil, apperr.Forbidden("not a member")
	}

	msg, err := s.msgs.Insert(ctx, &models.Message{
		ConversationID: conversationID,
		SenderID:       senderID,
		Text:           text,
		File:           file,
	})
	if err != nil {
		return nil, err
	}

	recipients := make([]string, 0, len(conv.Members)-1)
	for _, m := range conv.Members {
		if m != senderID {
			recipients = append(recipients, m)
		}
	}
	sum := &models.MessageSummary{Text: text, SenderID: senderID, SentAt: msg.CreatedAt}
	if err := s.convs.ApplyAppend(ctx, conversationID, sum, recipients); err != nil {
		// message row without its summary is a recoverable inconsistency,
		// but the operation as a whole failed
		return nil, err
	}

	if s.notifier != nil {
		s.notifier.MessageCreated(ctx, conv, msg)
	}
	if s.replies != nil {
		s.replies.OnMessage(ctx, conv, msg)
	}
	return msg, nil
}

// ListMessages returns the conversation history visible to the requester:
// chronological, and strictly after their cleared-history watermark.
func (s *ChatService) ListMessages(ctx context.Context, conversationID, requester string) ([]*models.Message, error) {
	conv, err := s.convs.Get(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if !conv.HasMember(requester) {
		return nil, apperr.Forbidden("not a member")
	}
	return s.msgs.ListSince(ctx, conversationID, conv.ClearedHistory[requester])
}

// MarkRead resets the requester's unread count to zero.
func (s *ChatService) MarkRead(ctx context.Context, conversationID, userID string) error {
	conv, err := s.convs.Get(ctx, conversationID)
	if err != nil {
		return err
	}
	if !conv.HasMember(userID) {
		return apperr.Forbidden("not a member")
	}
	return s.convs.MarkRead(ctx, conversationID, userID)
}

// DeleteMessage removes a single message; only its sender may do so.
func (s *ChatService) DeleteMessage(ctx context.Context, messageID, requester string) error {
	msg, err := s.msgs.Get(ctx, messageID)
	if err != nil {
		return err
	}
	if msg.SenderID != requester {
		return apperr.Forbidden("only the sender can delete a message")
	}
	return s.msgs.Delete(ctx, messageID)
}

// ClearHistory sets the requester's watermark to now. Unread count stays
// untouched in storage; the read-time view zeroes it.
func (s *ChatService) ClearHistory(ctx context.Context, conversationID, userID string) error {
	conv, err := s.convs.Get(ctx, conversationID)
	if err != nil {
		return err
	}
	if !conv.HasMember(userID) {
		return apperr.Forbidden("not a member")
	}
	return s.convs.SetCleared(ctx, conversationID, userID, time.Now().UTC())
}

// sanitize applies the caller-specific view: once the caller's watermark
// covers the last message, the summary is blank and their unread count is
// zero. Never persisted.
func (s *ChatService) sanitize(c *models.Conversation, requester string) *models.Conversation {
	cleared, ok := c.ClearedHistory[requester]
	if !ok || c.LastMessage == nil {
		return c
	}
	if !c.LastMessage.SentAt.After(cleared) {
		c.LastMessage = nil
		if c.UnreadCount != nil {
			c.UnreadCount[requester] = 0
		}
	}
	return c
}

func dedup(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
