package broadcast

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/amanigreeva/Sociosphere-sub001/internal/models"
)

// Pusher delivers a payload to every active connection of one user.
type Pusher interface {
	SendToUser(userID string, payload interface{})
}

// EventPublisher mirrors events to the event bus for other instances;
// optional.
type EventPublisher interface {
	PublishEvent(ctx context.Context, ev *models.Envelope) error
}

// MemberResolver loads a conversation to find who should receive an event.
type MemberResolver interface {
	Get(ctx context.Context, id string) (*models.Conversation, error)
}

// Broadcaster fans conversation and message events out to all online
// members, the originator included (multi-device sync). At-most-once per
// connection, never retried, never fails the caller.
type Broadcaster struct {
	id       string // marks published events so this instance skips them on consume
	hub      Pusher
	producer EventPublisher
	resolver MemberResolver
	log      *zap.SugaredLogger
}

func New(hub Pusher, producer EventPublisher, resolver MemberResolver, log *zap.SugaredLogger) *Broadcaster {
	return &Broadcaster{id: uuid.NewString(), hub: hub, producer: producer, resolver: resolver, log: log}
}

func (b *Broadcaster) MessageCreated(ctx context.Context, conv *models.Conversation, msg *models.Message) {
	b.emit(ctx, conv.Members, &models.Envelope{
		Type:           models.EventMessageCreated,
		ConversationID: conv.ID,
		Message:        msg,
	})
}

func (b *Broadcaster) ConversationCreated(ctx context.Context, conv *models.Conversation) {
	b.emit(ctx, conv.Members, &models.Envelope{
		Type:           models.EventConversationNew,
		ConversationID: conv.ID,
		Conversation:   conv,
	})
}

// ConversationDeleted notifies the members the conversation had before it
// was removed.
func (b *Broadcaster) ConversationDeleted(ctx context.Context, conversationID string, members []string) {
	b.emit(ctx, members, &models.Envelope{
		Type:           models.EventConversationDelete,
		ConversationID: conversationID,
		Members:        members,
	})
}

func (b *Broadcaster) emit(ctx context.Context, members []string, ev *models.Envelope) {
	ev.Origin = b.id
	for _, uid := range members {
		b.hub.SendToUser(uid, ev)
	}
	if b.producer == nil {
		return
	}
	if err := b.producer.PublishEvent(ctx, ev); err != nil {
		b.log.Warnw("event publish failed", "type", ev.Type, "conversation", ev.ConversationID, "err", err)
	}
}

// HandleRemote pushes an event consumed from the bus to members connected
// to this instance. Events this instance published are dropped: their local
// delivery already happened in emit. Member lists travel in the envelope
// when the conversation no longer exists (deletes); otherwise they are
// resolved from the store. Decode and resolution failures are logged and
// dropped.
func (b *Broadcaster) HandleRemote(ctx context.Context, value []byte) {
	var ev models.Envelope
	if err := json.Unmarshal(value, &ev); err != nil {
		b.log.Warnw("bad bus event", "err", err)
		return
	}
	if ev.Origin == b.id {
		return
	}

	var members []string
	switch {
	case ev.Conversation != nil:
		members = ev.Conversation.Members
	case ev.Type == models.EventConversationDelete:
		members = ev.Members
	default:
		conv, err := b.resolver.Get(ctx, ev.ConversationID)
		if err != nil {
			b.log.Warnw("bus event resolve failed", "conversation", ev.ConversationID, "err", err)
			return
		}
		members = conv.Members
	}

	for _, uid := range members {
		b.hub.SendToUser(uid, &ev)
	}
}
