package telegram

import (
	"fmt"
	"log/slog"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/digkill/writory/internal/models"
)

type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Notifier posts operator notices to the admin chat. A zero chat id or nil api
// turns every call into a no-op.
type Notifier struct {
	api    sender
	chatID int64
	log    *slog.Logger
}

func NewNotifier(token string, chatID int64, log *slog.Logger) (*Notifier, error) {
	if token == "" || chatID == 0 {
		return &Notifier{log: log}, nil
	}
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}
	return &Notifier{api: api, chatID: chatID, log: log}, nil
}

func (n *Notifier) enabled() bool {
	return n != nil && n.api != nil && n.chatID != 0
}

// NewSubmission announces an accepted entry group.
func (n *Notifier) NewSubmission(subs []*models.Submission) {
	if !n.enabled() || len(subs) == 0 {
		return
	}
	first := subs[0]
	var b strings.Builder
	fmt.Fprintf(&b, "New submission (%s, %d poem(s))\n", first.Tier, len(subs))
	fmt.Fprintf(&b, "%s <%s>\n", first.Name, first.Email)
	fmt.Fprintf(&b, "Amount: ₹%d via %s\n", first.Price, first.PaymentMethod)
	for _, s := range subs {
		fmt.Fprintf(&b, "%d. %s\n", s.PoemIndex, s.PoemTitle)
	}
	fmt.Fprintf(&b, "Group: %s", first.SubmissionUUID)
	n.send(b.String())
}

func (n *Notifier) ContactMessage(msg *models.ContactMessage) {
	if !n.enabled() {
		return
	}
	text := fmt.Sprintf("Contact form: %s <%s>\nSubject: %s\n\n%s", msg.Name, msg.Email, msg.Subject, msg.Message)
	n.send(text)
}

func (n *Notifier) send(text string) {
	m := tgbotapi.NewMessage(n.chatID, text)
	m.DisableWebPagePreview = true
	if _, err := n.api.Send(m); err != nil && n.log != nil {
		n.log.Warn("telegram notify failed", "err", err)
	}
}
