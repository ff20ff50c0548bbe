// Package notify posts sync summaries to Telegram. Delivery is best
// effort and never fails the sync that triggered it.
package notify

import (
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/leadsync/leadsync/internal/config"
	"github.com/leadsync/leadsync/internal/logging"
	"github.com/leadsync/leadsync/internal/sync"
)

// sender is satisfied by tgbotapi.BotAPI.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Notifier announces completed sync runs to a Telegram chat.
type Notifier struct {
	chatID int64
	logger *logging.Logger

	newSender func() (sender, error)
}

// NewNotifier creates a notifier from config. A disabled or incomplete
// config yields a no-op notifier.
func NewNotifier(cfg config.TelegramConfig, logger *logging.Logger) *Notifier {
	n := &Notifier{chatID: cfg.ChatID, logger: logger}
	if !cfg.Enabled || strings.TrimSpace(cfg.BotToken) == "" || cfg.ChatID == 0 {
		return n
	}

	token := strings.TrimSpace(cfg.BotToken)
	n.newSender = func() (sender, error) {
		return tgbotapi.NewBotAPI(token)
	}
	return n
}

// Enabled reports whether messages will actually be sent.
func (n *Notifier) Enabled() bool {
	return n.newSender != nil
}

// SyncCompleted reports a finished sync run. Failures are logged, never
// returned.
func (n *Notifier) SyncCompleted(userID string, result *sync.Result) {
	text := fmt.Sprintf("✅ Lead sync finished for %s\nAccounts: %d\nForms: %d\nLeads: %d",
		userID, result.Accounts, result.Forms, result.TotalLeads)
	n.send(text)
}

func (n *Notifier) send(text string) {
	if !n.Enabled() {
		return
	}

	bot, err := n.newSender()
	if err != nil {
		n.logger.Warn("telegram notification skipped", "error", err.Error())
		return
	}

	msg := tgbotapi.NewMessage(n.chatID, text)
	if _, err := bot.Send(msg); err != nil {
		n.logger.Warn("telegram notification failed", "error", err.Error())
	}
}
