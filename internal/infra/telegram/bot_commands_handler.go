// internal/infra/telegram/bot_commands_handler.go
package telegram

import (
	"context"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"

	"license_notification_bot/internal/app"
	"license_notification_bot/internal/domain/license"
	"license_notification_bot/internal/infra/config" // For AdminTelegramID and GroupName
)

// ExpiryLister returns today's threshold matches without sending them.
type ExpiryLister interface {
	ListExpiring(ctx context.Context) ([]license.Evaluation, error)
}

const helpText = "I post a reminder to this group when a license is 90, 60 or 30 days from expiry.\n\n" +
	"<code>/expiring</code> - Show the licenses that hit a threshold today.\n" +
	"<code>/help</code> - Show this message."

func RegisterBotCommands(
	ctx context.Context,
	b *telebot.Bot,
	cfg *config.AppConfig,
	lister ExpiryLister,
	baseLogger *logrus.Entry, // For contextual logging
) {
	cmdLogger := baseLogger.WithField("handler_group", "commands")

	b.Handle("/start", func(c telebot.Context) error {
		logCtx := commandLog(cmdLogger, "/start", c)
		logCtx.Info("Processing /start command")
		return c.Send("Hello! I watch license expiry dates and post reminders to the configured group. Use /help for the list of commands.")
	})

	b.Handle("/help", func(c telebot.Context) error {
		logCtx := commandLog(cmdLogger, "/help", c)
		logCtx.Info("Processing /help command")
		return c.Send(helpText, &telebot.SendOptions{ParseMode: telebot.ModeHTML})
	})

	b.Handle("/expiring", func(c telebot.Context) error {
		logCtx := commandLog(cmdLogger, "/expiring", c)
		logCtx.Info("Processing /expiring command")

		var senderID int64
		if c.Sender() != nil {
			senderID = c.Sender().ID
		}
		if !canListExpiring(cfg, senderID, c.Chat()) {
			logCtx.Warn("Unauthorized /expiring request")
			return c.Send("This command is only available in the notification group.")
		}

		matches, err := lister.ListExpiring(ctx)
		if err != nil {
			logCtx.WithError(err).Error("Failed to evaluate licenses for /expiring")
			return c.Send("Could not read the license sources. Please try again later.")
		}
		if len(matches) == 0 {
			return c.Send("No licenses reach a 90/60/30-day threshold today.")
		}

		for _, m := range matches {
			if err := c.Send(app.RenderAlert(m.Record, m.DaysLeft), &telebot.SendOptions{ParseMode: telebot.ModeHTML}); err != nil {
				logCtx.WithError(err).Error("Failed to reply with license alert")
				return err
			}
		}
		logCtx.WithField("matched", len(matches)).Info("Listed expiring licenses")
		return nil
	})
}

func commandLog(base *logrus.Entry, command string, c telebot.Context) *logrus.Entry {
	fields := logrus.Fields{"command": command}
	if c.Sender() != nil {
		fields["sender_id"] = c.Sender().ID
	}
	if c.Chat() != nil {
		fields["chat_id"] = c.Chat().ID
	}
	return base.WithFields(fields)
}

// canListExpiring allows the admin anywhere and anyone inside the configured group.
func canListExpiring(cfg *config.AppConfig, senderID int64, chat *telebot.Chat) bool {
	if cfg.AdminTelegramID != 0 && senderID == cfg.AdminTelegramID {
		return true
	}
	if !isGroupChat(chat) {
		return false
	}
	name := cfg.GroupName
	if chat.Title == name || (chat.Username != "" && chat.Username == strings.TrimPrefix(name, "@")) {
		return true
	}
	id, err := strconv.ParseInt(name, 10, 64)
	return err == nil && id == chat.ID
}
