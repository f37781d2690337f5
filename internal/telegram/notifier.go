// Package telegram pushes oversight alerts (new complaints and escalation
// passes) to a Telegram chat.
package telegram

import (
	"context"
	"fmt"
	"strings"
	"time"

	"complaintdesk/backend/internal/config"
	"complaintdesk/backend/internal/escalation"
	"complaintdesk/backend/internal/localization"
	"complaintdesk/backend/internal/logging"
	"complaintdesk/backend/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// Sender is the part of *tgbotapi.BotAPI the notifier uses.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Notifier formats events into chat messages and sends them from its own
// goroutine, so callers never wait on the Telegram API.
type Notifier struct {
	sender    Sender
	chatID    int64
	lang      string
	localizer *localization.Localizer
	settings  escalation.Settings
	logger    *zap.Logger
	queue     chan string
}

// NewBotNotifier connects to the Bot API with token.
func NewBotNotifier(token string, chatID int64, lang string, loc *localization.Localizer, settings escalation.Settings, logger *zap.Logger) (*Notifier, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram bot: %w", err)
	}
	logging.OrNop(logger).Info("telegram notifier authorized", zap.String("bot", bot.Self.UserName))
	return NewNotifier(bot, chatID, lang, loc, settings, logger), nil
}

// NewNotifier builds a notifier around any Sender.
func NewNotifier(sender Sender, chatID int64, lang string, loc *localization.Localizer, settings escalation.Settings, logger *zap.Logger) *Notifier {
	if lang == "" {
		lang = localization.DefaultLang
	}
	return &Notifier{
		sender:    sender,
		chatID:    chatID,
		lang:      lang,
		localizer: loc,
		settings:  settings,
		logger:    logging.OrNop(logger),
		queue:     make(chan string, config.EventBufferSize),
	}
}

// Publish implements the complaint publisher for the events oversight cares about.
func (n *Notifier) Publish(ev models.Event) {
	detail, ok := ev.Payload.(*models.ComplaintDetail)
	if !ok {
		return
	}
	switch ev.Type {
	case models.EventNewComplaint:
		n.enqueue(n.localizer.Format(n.lang, "new_complaint", detail.Category, detail.ID, detail.Title))
	case models.EventStatusChange:
		n.enqueue(n.localizer.Format(n.lang, "status_"+string(detail.Status), detail.ID))
	}
}

// OnEscalation implements escalation.Hook.
func (n *Notifier) OnEscalation(_ context.Context, rule string, ids []uint) {
	age := n.settings.EscalationAfter
	if rule == escalation.RulePriorityBump {
		age = n.settings.PriorityBumpAfter
	}
	n.enqueue(n.localizer.Format(n.lang, rule, len(ids), age, formatIDs(ids)))
}

func (n *Notifier) enqueue(text string) {
	select {
	case n.queue <- text:
	default:
		n.logger.Warn("telegram queue full, dropping alert")
	}
}

// Run sends queued alerts until ctx ends.
func (n *Notifier) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case text := <-n.queue:
			msg := tgbotapi.NewMessage(n.chatID, text)
			if _, err := n.sender.Send(msg); err != nil {
				n.logger.Warn("telegram send failed", zap.Error(err))
				// back off before the next alert
				select {
				case <-ctx.Done():
					return
				case <-time.After(time.Second):
				}
			}
		}
	}
}

func formatIDs(ids []uint) string {
	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		parts = append(parts, fmt.Sprintf("#%d", id))
	}
	return strings.Join(parts, ", ")
}
