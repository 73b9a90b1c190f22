package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/amanigreeva/Sociosphere-sub001/internal/apperr"
	"github.com/amanigreeva/Sociosphere-sub001/internal/models"
	"github.com/amanigreeva/Sociosphere-sub001/internal/repository"
)

type eventRecorder struct {
	mu       sync.Mutex
	messages []*models.Message
	created  []string
	deleted  []string
}

func (r *eventRecorder) MessageCreated(_ context.Context, _ *models.Conversation, msg *models.Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, msg)
}

func (r *eventRecorder) ConversationCreated(_ context.Context, conv *models.Conversation) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.created = append(r.created, conv.ID)
}

func (r *eventRecorder) ConversationDeleted(_ context.Context, id string, _ []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deleted = append(r.deleted, id)
}

func newTestService(t *testing.T) (*ChatService, *repository.MemoryStore, *eventRecorder) {
	t.Helper()
	store := repository.NewMemoryStore()
	svc := NewChatService(store, store.Messages(), zap.NewNop().Sugar())
	rec := &eventRecorder{}
	svc.SetNotifier(rec)
	return svc, store, rec
}

func TestCreateDirectIdempotent(t *testing.T) {
	svc, _, rec := newTestService(t)
	ctx := context.Background()

	first, err := svc.CreateDirect(ctx, "alice", "bob")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"alice", "bob"}, first.Members)
	assert.False(t, first.IsGroup)
	assert.Empty(t, first.UnreadCount)

	// same pair, either order, same conversation
	again, err := svc.CreateDirect(ctx, "alice", "bob")
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)

	reversed, err := svc.CreateDirect(ctx, "bob", "alice")
	require.NoError(t, err)
	assert.Equal(t, first.ID, reversed.ID)

	assert.Len(t, rec.created, 1)
}

func TestCreateDirectSelf(t *testing.T) {
	svc, _, _ := newTestService(t)
	_, err := svc.CreateDirect(context.Background(), "alice", "alice")
	assert.Equal(t, apperr.CodeInvalidState, apperr.CodeOf(err))
}

func TestSendMessageUpdatesUnreadAndSummary(t *testing.T) {
	svc, _, rec := newTestService(t)
	ctx := context.Background()

	conv, err := svc.CreateDirect(ctx, "alice", "bob")
	require.NoError(t, err)

	msg, err := svc.SendMessage(ctx, "bob", conv.ID, "hi", nil)
	require.NoError(t, err)
	require.NotEmpty(t, msg.ID)

	got, err := svc.Get(ctx, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.UnreadCount["alice"])
	assert.Equal(t, 0, got.UnreadCount["bob"])
	require.NotNil(t, got.LastMessage)
	assert.Equal(t, "hi", got.LastMessage.Text)
	assert.Equal(t, "bob", got.LastMessage.SenderID)

	require.Len(t, rec.messages, 1)
	assert.Equal(t, msg.ID, rec.messages[0].ID)

	// markRead resets to exactly zero
	require.NoError(t, svc.MarkRead(ctx, conv.ID, "alice"))
	got, err = svc.Get(ctx, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.UnreadCount["alice"])
}

func TestSendMessageGroupIncrementsEveryOtherMember(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	conv, err := svc.CreateGroup(ctx, "alice", []string{"bob", "carol"}, "trio", "")
	require.NoError(t, err)

	_, err = svc.SendMessage(ctx, "alice", conv.ID, "hello all", nil)
	require.NoError(t, err)
	_, err = svc.SendMessage(ctx, "alice", conv.ID, "again", nil)
	require.NoError(t, err)

	got, err := svc.Get(ctx, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.UnreadCount["bob"])
	assert.Equal(t, 2, got.UnreadCount["carol"])
	assert.Equal(t, 0, got.UnreadCount["alice"])
}

func TestSendMessageErrors(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.SendMessage(ctx, "alice", "nope", "hi", nil)
	assert.Equal(t, apperr.CodeNotFound, apperr.CodeOf(err))

	conv, err := svc.CreateDirect(ctx, "alice", "bob")
	require.NoError(t, err)

	_, err = svc.SendMessage(ctx, "mallory", conv.ID, "hi", nil)
	assert.Equal(t, apperr.CodeForbidden, apperr.CodeOf(err))

	_, err = svc.SendMessage(ctx, "alice", conv.ID, "", nil)
	assert.Equal(t, apperr.CodeInvalidState, apperr.CodeOf(err))
}

func TestClearHistoryWatermark(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	conv, err := svc.CreateDirect(ctx, "alice", "bob")
	require.NoError(t, err)

	_, err = svc.SendMessage(ctx, "bob", conv.ID, "old one", nil)
	require.NoError(t, err)
	_, err = svc.SendMessage(ctx, "bob", conv.ID, "old two", nil)
	require.NoError(t, err)

	time.Sleep(2 * time.Millisecond)
	require.NoError(t, svc.ClearHistory(ctx, conv.ID, "alice"))
	time.Sleep(2 * time.Millisecond)

	_, err = svc.SendMessage(ctx, "bob", conv.ID, "new", nil)
	require.NoError(t, err)

	// alice only sees messages strictly after her watermark
	forAlice, err := svc.ListMessages(ctx, conv.ID, "alice")
	require.NoError(t, err)
	require.Len(t, forAlice, 1)
	assert.Equal(t, "new", forAlice[0].Text)

	// bob's view is untouched
	forBob, err := svc.ListMessages(ctx, conv.ID, "bob")
	require.NoError(t, err)
	assert.Len(t, forBob, 3)
}

func TestClearHistorySanitizesListView(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()

	conv, err := svc.CreateDirect(ctx, "alice", "bob")
	require.NoError(t, err)
	_, err = svc.SendMessage(ctx, "bob", conv.ID, "hi", nil)
	require.NoError(t, err)

	time.Sleep(2 * time.Millisecond)
	require.NoError(t, svc.ClearHistory(ctx, conv.ID, "alice"))

	forAlice, err := svc.ListConversations(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, forAlice, 1)
	assert.Nil(t, forAlice[0].LastMessage)
	assert.Equal(t, 0, forAlice[0].UnreadCount["alice"])

	forBob, err := svc.ListConversations(ctx, "bob")
	require.NoError(t, err)
	require.Len(t, forBob, 1)
	require.NotNil(t, forBob[0].LastMessage)
	assert.Equal(t, "hi", forBob[0].LastMessage.Text)

	// the sanitized view is never persisted
	raw, err := store.Get(ctx, conv.ID)
	require.NoError(t, err)
	require.NotNil(t, raw.LastMessage)
	assert.Equal(t, 1, raw.UnreadCount["alice"])
}

func TestLeaveGroupAndAdminSuccession(t *testing.T) {
	svc, _, rec := newTestService(t)
	ctx := context.Background()

	conv, err := svc.CreateGroup(ctx, "alice", []string{"bob", "carol"}, "trio", "")
	require.NoError(t, err)
	assert.Equal(t, "alice", conv.AdminID)

	require.NoError(t, svc.Leave(ctx, conv.ID, "alice"))
	got, err := svc.Get(ctx, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"bob", "carol"}, got.Members)
	assert.Equal(t, "bob", got.AdminID)

	require.NoError(t, svc.Leave(ctx, conv.ID, "bob"))
	require.NoError(t, svc.Leave(ctx, conv.ID, "carol"))

	// last member out destroyed the conversation
	_, err = svc.Get(ctx, conv.ID)
	assert.Equal(t, apperr.CodeNotFound, apperr.CodeOf(err))
	assert.Equal(t, []string{conv.ID}, rec.deleted)
}

func TestLeaveCascadesMessages(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()

	conv, err := svc.CreateDirect(ctx, "alice", "bob")
	require.NoError(t, err)
	msg, err := svc.SendMessage(ctx, "alice", conv.ID, "hi", nil)
	require.NoError(t, err)

	require.NoError(t, svc.Leave(ctx, conv.ID, "alice"))
	require.NoError(t, svc.Leave(ctx, conv.ID, "bob"))

	_, err = store.GetMessage(ctx, msg.ID)
	assert.Equal(t, apperr.CodeNotFound, apperr.CodeOf(err))
}

func TestLeaveNonMemberForbidden(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	conv, err := svc.CreateDirect(ctx, "alice", "bob")
	require.NoError(t, err)
	err = svc.Leave(ctx, conv.ID, "mallory")
	assert.Equal(t, apperr.CodeForbidden, apperr.CodeOf(err))
}

func TestSoftDeleteAndRevival(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	conv, err := svc.CreateDirect(ctx, "alice", "bob")
	require.NoError(t, err)
	_, err = svc.SendMessage(ctx, "bob", conv.ID, "hi", nil)
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, conv.ID, "alice"))

	// hidden from alice, still visible to bob
	forAlice, err := svc.ListConversations(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, forAlice)
	forBob, err := svc.ListConversations(ctx, "bob")
	require.NoError(t, err)
	assert.Len(t, forBob, 1)

	// any new append revives the chat for everyone
	time.Sleep(2 * time.Millisecond)
	_, err = svc.SendMessage(ctx, "bob", conv.ID, "you there?", nil)
	require.NoError(t, err)

	forAlice, err = svc.ListConversations(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, forAlice, 1)
	assert.Empty(t, forAlice[0].DeletedBy)
}

func TestGroupDeleteAdminOnly(t *testing.T) {
	svc, store, rec := newTestService(t)
	ctx := context.Background()

	conv, err := svc.CreateGroup(ctx, "alice", []string{"bob"}, "pair", "")
	require.NoError(t, err)
	msg, err := svc.SendMessage(ctx, "bob", conv.ID, "hello", nil)
	require.NoError(t, err)

	err = svc.Delete(ctx, conv.ID, "bob")
	assert.Equal(t, apperr.CodeForbidden, apperr.CodeOf(err))

	require.NoError(t, svc.Delete(ctx, conv.ID, "alice"))
	_, err = svc.Get(ctx, conv.ID)
	assert.Equal(t, apperr.CodeNotFound, apperr.CodeOf(err))
	_, err = store.GetMessage(ctx, msg.ID)
	assert.Equal(t, apperr.CodeNotFound, apperr.CodeOf(err))
	assert.Equal(t, []string{conv.ID}, rec.deleted)
}

func TestAddMembers(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	direct, err := svc.CreateDirect(ctx, "alice", "bob")
	require.NoError(t, err)
	_, err = svc.AddMembers(ctx, direct.ID, []string{"carol"}, "alice")
	assert.Equal(t, apperr.CodeInvalidState, apperr.CodeOf(err))

	group, err := svc.CreateGroup(ctx, "alice", []string{"bob"}, "pair", "")
	require.NoError(t, err)
	_, err = svc.SendMessage(ctx, "alice", group.ID, "before carol", nil)
	require.NoError(t, err)

	_, err = svc.AddMembers(ctx, group.ID, []string{"carol"}, "mallory")
	assert.Equal(t, apperr.CodeForbidden, apperr.CodeOf(err))

	time.Sleep(2 * time.Millisecond)
	updated, err := svc.AddMembers(ctx, group.ID, []string{"carol", "bob"}, "alice")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"alice", "bob", "carol"}, updated.Members)

	// carol joined with a watermark: no retroactive history
	forCarol, err := svc.ListMessages(ctx, group.ID, "carol")
	require.NoError(t, err)
	assert.Empty(t, forCarol)
	forBob, err := svc.ListMessages(ctx, group.ID, "bob")
	require.NoError(t, err)
	assert.Len(t, forBob, 1)
}

func TestRenameAndImageRules(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	direct, err := svc.CreateDirect(ctx, "alice", "bob")
	require.NoError(t, err)
	err = svc.Rename(ctx, direct.ID, "nope", "alice")
	assert.Equal(t, apperr.CodeInvalidState, apperr.CodeOf(err))

	group, err := svc.CreateGroup(ctx, "alice", []string{"bob"}, "pair", "")
	require.NoError(t, err)

	err = svc.Rename(ctx, group.ID, "renamed", "bob")
	assert.Equal(t, apperr.CodeForbidden, apperr.CodeOf(err))
	err = svc.SetGroupImage(ctx, group.ID, "http://img", "bob")
	assert.Equal(t, apperr.CodeForbidden, apperr.CodeOf(err))

	require.NoError(t, svc.Rename(ctx, group.ID, "renamed", "alice"))
	require.NoError(t, svc.SetGroupImage(ctx, group.ID, "http://img", "alice"))
	got, err := svc.Get(ctx, group.ID)
	require.NoError(t, err)
	assert.Equal(t, "renamed", got.Name)
	assert.Equal(t, "http://img", got.GroupImage)
}

func TestDeleteMessageSenderOnly(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()

	conv, err := svc.CreateDirect(ctx, "alice", "bob")
	require.NoError(t, err)
	msg, err := svc.SendMessage(ctx, "alice", conv.ID, "oops", nil)
	require.NoError(t, err)

	err = svc.DeleteMessage(ctx, msg.ID, "bob")
	assert.Equal(t, apperr.CodeForbidden, apperr.CodeOf(err))

	require.NoError(t, svc.DeleteMessage(ctx, msg.ID, "alice"))
	_, err = store.GetMessage(ctx, msg.ID)
	assert.Equal(t, apperr.CodeNotFound, apperr.CodeOf(err))
}

func TestListOrderedByActivity(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	first, err := svc.CreateDirect(ctx, "alice", "bob")
	require.NoError(t, err)
	second, err := svc.CreateDirect(ctx, "alice", "carol")
	require.NoError(t, err)

	_, err = svc.SendMessage(ctx, "bob", first.ID, "one", nil)
	require.NoError(t, err)
	time.Sleep(2 * time.Millisecond)
	_, err = svc.SendMessage(ctx, "carol", second.ID, "two", nil)
	require.NoError(t, err)

	convs, err := svc.ListConversations(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, convs, 2)
	assert.Equal(t, second.ID, convs[0].ID)
	assert.Equal(t, first.ID, convs[1].ID)
}

func TestGetConversationBetween(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.GetConversationBetween(ctx, "alice", "bob")
	assert.Equal(t, apperr.CodeNotFound, apperr.CodeOf(err))

	conv, err := svc.CreateDirect(ctx, "alice", "bob")
	require.NoError(t, err)

	got, err := svc.GetConversationBetween(ctx, "bob", "alice")
	require.NoError(t, err)
	assert.Equal(t, conv.ID, got.ID)
}
