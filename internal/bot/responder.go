package bot

import (
	"context"
	"math/rand"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/amanigreeva/Sociosphere-sub001/internal/directory"
	"github.com/amanigreeva/Sociosphere-sub001/internal/models"
)

// Sender is the slice of the chat service the responder re-enters when a
// reply fires.
type Sender interface {
	SendMessage(ctx context.Context, senderID, conversationID, text string, file *models.FileInfo) (*models.Message, error)
}

// ConversationGetter re-verifies the conversation still exists before the
// delayed reply writes anything.
type ConversationGetter interface {
	Get(ctx context.Context, id string) (*models.Conversation, error)
}

// rule is one keyword classifier entry; first match wins.
type rule struct {
	keywords []string
	reply    string
}

var rules = []rule{
	{[]string{"hello", "hi", "hey"}, "Hey there! How is your day going?"},
	{[]string{"how are you"}, "I'm doing great, thanks for asking!"},
	{[]string{"help"}, "You can ask me anything, or just say hi. I always answer."},
	{[]string{"joke"}, "Why do programmers prefer dark mode? Because light attracts bugs."},
	{[]string{"bye", "goodbye", "see you"}, "Bye! Ping me whenever you like."},
	{[]string{"thank"}, "Anytime!"},
}

var fallbacks = []string{
	"Interesting, tell me more.",
	"I hadn't thought about it that way.",
	"Got it!",
	"Hmm, say that again differently?",
	"That's a good one.",
}

// Responder schedules the automated account's replies. A reply is
// fire-and-forget: once scheduled there is no cancellation path, and every
// failure inside the callback is logged and swallowed.
type Responder struct {
	dir    directory.Directory
	convs  ConversationGetter
	sender Sender
	delay  time.Duration
	log    *zap.SugaredLogger
}

func NewResponder(dir directory.Directory, convs ConversationGetter, sender Sender, delay time.Duration, log *zap.SugaredLogger) *Responder {
	return &Responder{dir: dir, convs: convs, sender: sender, delay: delay, log: log}
}

// OnMessage inspects a freshly appended message and, when it was addressed
// to the reserved automated account in a direct chat, schedules a reply.
// Groups never trigger a reply even if the account is a member.
func (r *Responder) OnMessage(ctx context.Context, conv *models.Conversation, msg *models.Message) {
	if conv.IsGroup {
		return
	}
	peer := conv.OtherMember(msg.SenderID)
	if peer == "" {
		return
	}
	u, err := r.dir.Lookup(ctx, peer)
	if err != nil {
		r.log.Warnw("bot peer lookup failed", "user", peer, "err", err)
		return
	}
	if !r.dir.IsReserved(u.Username) {
		return
	}

	reply := Classify(msg.Text)
	time.AfterFunc(r.delay, func() {
		r.fire(peer, conv.ID, reply)
	})
}

// fire runs outside and after the originating request. It holds no locks
// across the delay and competes for the conversation like any other sender.
func (r *Responder) fire(botID, conversationID, reply string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// the conversation may have been deleted while the reply was pending
	if _, err := r.convs.Get(ctx, conversationID); err != nil {
		r.log.Infow("bot reply dropped, conversation gone", "conversation", conversationID)
		return
	}
	if _, err := r.sender.SendMessage(ctx, botID, conversationID, reply, nil); err != nil {
		r.log.Warnw("bot reply failed", "conversation", conversationID, "err", err)
	}
}

// Classify picks the canned response for a message: the first keyword rule
// matching the lowercased text wins, otherwise a uniformly random fallback.
func Classify(text string) string {
	lowered := strings.ToLower(text)
	for _, rl := range rules {
		for _, kw := range rl.keywords {
			if strings.Contains(lowered, kw) {
				return rl.reply
			}
		}
	}
	return fallbacks[rand.Intn(len(fallbacks))]
}
