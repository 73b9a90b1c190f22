package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/amanigreeva/Sociosphere-sub001/internal/apperr"
	"github.com/amanigreeva/Sociosphere-sub001/internal/models"
)

// MemoryStore implements both repositories in process memory. It backs the
// test suite and local development; one mutex gives it the same
// per-conversation serialization the Mongo single-document updates provide.
type MemoryStore struct {
	mu            sync.Mutex
	conversations map[string]*models.Conversation
	messages      map[string]*models.Message
	seq           int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		conversations: make(map[string]*models.Conversation),
		messages:      make(map[string]*models.Message),
	}
}

func cloneConversation(c *models.Conversation) *models.Conversation {
	out := *c
	out.Members = append([]string(nil), c.Members...)
	out.DeletedBy = append([]string(nil), c.DeletedBy...)
	if c.LastMessage != nil {
		lm := *c.LastMessage
		out.LastMessage = &lm
	}
	out.UnreadCount = make(map[string]int, len(c.UnreadCount))
	for k, v := range c.UnreadCount {
		out.UnreadCount[k] = v
	}
	out.ClearedHistory = make(map[string]time.Time, len(c.ClearedHistory))
	for k, v := range c.ClearedHistory {
		out.ClearedHistory[k] = v
	}
	return &out
}

func cloneMessage(m *models.Message) *models.Message {
	out := *m
	if m.File != nil {
		f := *m.File
		out.File = &f
	}
	return &out
}

func (s *MemoryStore) Insert(ctx context.Context, c *models.Conversation) (*models.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	c.ID = uuid.NewString()
	c.CreatedAt = now
	c.UpdatedAt = now
	if c.UnreadCount == nil {
		c.UnreadCount = make(map[string]int)
	}
	if c.ClearedHistory == nil {
		c.ClearedHistory = make(map[string]time.Time)
	}
	s.conversations[c.ID] = cloneConversation(c)
	return cloneConversation(c), nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (*models.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.conversations[id]
	if !ok {
		return nil, apperr.NotFound("conversation not found")
	}
	return cloneConversation(c), nil
}

func (s *MemoryStore) FindDirectByPair(ctx context.Context, a, b string) (*models.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.conversations {
		if c.IsGroup || len(c.Members) != 2 {
			continue
		}
		if (c.Members[0] == a && c.Members[1] == b) || (c.Members[0] == b && c.Members[1] == a) {
			return cloneConversation(c), nil
		}
	}
	return nil, apperr.NotFound("direct conversation not found")
}

func (s *MemoryStore) ListForUser(ctx context.Context, userID string) ([]*models.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Conversation
	for _, c := range s.conversations {
		if c.HasMember(userID) && !c.HiddenFor(userID) {
			out = append(out, cloneConversation(c))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		ti, tj := activityTime(out[i]), activityTime(out[j])
		if !ti.Equal(tj) {
			return ti.After(tj)
		}
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out, nil
}

func activityTime(c *models.Conversation) time.Time {
	if c.LastMessage != nil {
		return c.LastMessage.SentAt
	}
	return time.Time{}
}

func (s *MemoryStore) Rename(ctx context.Context, id, name string) error {
	return s.mutate(id, func(c *models.Conversation) {
		c.Name = name
		c.UpdatedAt = time.Now().UTC()
	})
}

func (s *MemoryStore) SetGroupImage(ctx context.Context, id, url string) error {
	return s.mutate(id, func(c *models.Conversation) {
		c.GroupImage = url
		c.UpdatedAt = time.Now().UTC()
	})
}

func (s *MemoryStore) AddMembers(ctx context.Context, id string, newIDs []string, joinedAt time.Time) error {
	return s.mutate(id, func(c *models.Conversation) {
		for _, uid := range newIDs {
			if c.HasMember(uid) {
				continue
			}
			c.Members = append(c.Members, uid)
			c.ClearedHistory[uid] = joinedAt
		}
		c.UpdatedAt = time.Now().UTC()
	})
}

func (s *MemoryStore) RemoveMember(ctx context.Context, id, userID, newAdmin string) error {
	return s.mutate(id, func(c *models.Conversation) {
		c.Members = removeString(c.Members, userID)
		c.DeletedBy = removeString(c.DeletedBy, userID)
		delete(c.UnreadCount, userID)
		delete(c.ClearedHistory, userID)
		if newAdmin != "" {
			c.AdminID = newAdmin
		}
		c.UpdatedAt = time.Now().UTC()
	})
}

func removeString(in []string, v string) []string {
	out := in[:0]
	for _, s := range in {
		if s != v {
			out = append(out, s)
		}
	}
	return out
}

func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.conversations[id]; !ok {
		return apperr.NotFound("conversation not found")
	}
	delete(s.conversations, id)
	return nil
}

func (s *MemoryStore) ApplyAppend(ctx context.Context, id string, sum *models.MessageSummary, recipients []string) error {
	return s.mutate(id, func(c *models.Conversation) {
		lm := *sum
		c.LastMessage = &lm
		c.UpdatedAt = sum.SentAt
		c.DeletedBy = nil
		for _, uid := range recipients {
			c.UnreadCount[uid]++
		}
	})
}

func (s *MemoryStore) MarkRead(ctx context.Context, id, userID string) error {
	return s.mutate(id, func(c *models.Conversation) {
		c.UnreadCount[userID] = 0
	})
}

func (s *MemoryStore) SetCleared(ctx context.Context, id, userID string, at time.Time) error {
	return s.mutate(id, func(c *models.Conversation) {
		c.ClearedHistory[userID] = at
	})
}

func (s *MemoryStore) SoftDelete(ctx context.Context, id, userID string, at time.Time) error {
	return s.mutate(id, func(c *models.Conversation) {
		if !c.HiddenFor(userID) {
			c.DeletedBy = append(c.DeletedBy, userID)
		}
		c.ClearedHistory[userID] = at
	})
}

func (s *MemoryStore) mutate(id string, fn func(c *models.Conversation)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.conversations[id]
	if !ok {
		return apperr.NotFound("conversation not found")
	}
	fn(c)
	return nil
}

// --- MessageRepo ---

func (s *MemoryStore) InsertMessage(ctx context.Context, m *models.Message) (*models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m.ID = uuid.NewString()
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	s.seq++
	m.Seq = s.seq
	s.messages[m.ID] = cloneMessage(m)
	return cloneMessage(m), nil
}

func (s *MemoryStore) GetMessage(ctx context.Context, id string) (*models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.messages[id]
	if !ok {
		return nil, apperr.NotFound("message not found")
	}
	return cloneMessage(m), nil
}

func (s *MemoryStore) ListSince(ctx context.Context, conversationID string, after time.Time) ([]*models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Message
	for _, m := range s.messages {
		if m.ConversationID != conversationID {
			continue
		}
		if !after.IsZero() && !m.CreatedAt.After(after) {
			continue
		}
		out = append(out, cloneMessage(m))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].Seq < out[j].Seq
	})
	return out, nil
}

func (s *MemoryStore) DeleteMessage(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.messages[id]; !ok {
		return apperr.NotFound("message not found")
	}
	delete(s.messages, id)
	return nil
}

func (s *MemoryStore) DeleteByConversation(ctx context.Context, conversationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, m := range s.messages {
		if m.ConversationID == conversationID {
			delete(s.messages, id)
		}
	}
	return nil
}

func (s *MemoryStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, m := range s.messages {
		if !m.CreatedAt.After(cutoff) {
			delete(s.messages, id)
			n++
		}
	}
	return n, nil
}

// Messages exposes a MessageRepo view of the store.
func (s *MemoryStore) Messages() MessageRepo { return memoryMessages{s} }

type memoryMessages struct{ s *MemoryStore }

func (m memoryMessages) Insert(ctx context.Context, msg *models.Message) (*models.Message, error) {
	return m.s.InsertMessage(ctx, msg)
}
func (m memoryMessages) Get(ctx context.Context, id string) (*models.Message, error) {
	return m.s.GetMessage(ctx, id)
}
func (m memoryMessages) ListSince(ctx context.Context, conversationID string, after time.Time) ([]*models.Message, error) {
	return m.s.ListSince(ctx, conversationID, after)
}
func (m memoryMessages) Delete(ctx context.Context, id string) error {
	return m.s.DeleteMessage(ctx, id)
}
func (m memoryMessages) DeleteByConversation(ctx context.Context, conversationID string) error {
	return m.s.DeleteByConversation(ctx, conversationID)
}
func (m memoryMessages) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	return m.s.DeleteOlderThan(ctx, cutoff)
}
