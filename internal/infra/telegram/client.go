// internal/infra/telegram/client.go
package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"

	"license_notification_bot/internal/domain/messenger"
)

// TelebotAdapter implements messenger.Client using the gopkg.in/telebot.v3 library.
type TelebotAdapter struct {
	bot    *telebot.Bot
	logger *logrus.Entry

	readyOnce sync.Once
	ready     chan struct{}

	mu     sync.RWMutex
	state  messenger.State
	groups map[string]*telebot.Chat // keyed by title, learned from updates
}

// NewTelebotAdapter installs group-chat tracking on b. Handlers registered on
// b afterwards also feed the tracker, so create the adapter first.
func NewTelebotAdapter(b *telebot.Bot, logger *logrus.Entry) *TelebotAdapter {
	tba := &TelebotAdapter{
		bot:    b,
		logger: logger,
		ready:  make(chan struct{}),
		state:  messenger.StateAuthenticating,
		groups: make(map[string]*telebot.Chat),
	}

	b.Use(tba.rememberChatMiddleware)
	noop := func(telebot.Context) error { return nil }
	b.Handle(telebot.OnAddedToGroup, noop)
	b.Handle(telebot.OnNewGroupTitle, noop)
	b.Handle(telebot.OnText, noop)
	return tba
}

// Bot exposes the underlying bot for handler registration.
func (tba *TelebotAdapter) Bot() *telebot.Bot {
	return tba.bot
}

// Start launches the long poller and marks the adapter ready. The token has
// already been verified by telebot.NewBot.
func (tba *TelebotAdapter) Start() {
	go tba.bot.Start()
	tba.markReady()
}

// Stop halts the long poller.
func (tba *TelebotAdapter) Stop() {
	tba.bot.Stop()
}

func (tba *TelebotAdapter) markReady() {
	tba.readyOnce.Do(func() {
		tba.mu.Lock()
		tba.state = messenger.StateReady
		tba.mu.Unlock()
		close(tba.ready)
		tba.logger.Info("Telegram transport ready")
	})
}

func (tba *TelebotAdapter) Ready() <-chan struct{} {
	return tba.ready
}

func (tba *TelebotAdapter) State() messenger.State {
	tba.mu.RLock()
	defer tba.mu.RUnlock()
	return tba.state
}

// FindGroup resolves name to a group chat. Titles seen in updates match first,
// then a numeric chat id, then a public @username. The Bot API cannot search by
// title, so a title is unknown until the group sends an update after start.
func (tba *TelebotAdapter) FindGroup(ctx context.Context, name string) (messenger.Group, error) {
	if err := ctx.Err(); err != nil {
		return messenger.Group{}, err
	}

	if chat := tba.lookupTitle(name); chat != nil {
		return toGroup(chat), nil
	}

	var (
		chat *telebot.Chat
		err  error
	)
	if id, parseErr := strconv.ParseInt(name, 10, 64); parseErr == nil {
		chat, err = tba.bot.ChatByID(id)
	} else {
		chat, err = tba.bot.ChatByUsername("@" + strings.TrimPrefix(name, "@"))
	}
	if err != nil {
		if isChatNotFound(err) {
			return messenger.Group{}, &messenger.GroupNotFoundError{Name: name}
		}
		return messenger.Group{}, fmt.Errorf("failed to resolve group %q: %w", name, err)
	}
	if !isGroupChat(chat) {
		return messenger.Group{}, &messenger.GroupNotFoundError{Name: name}
	}

	tba.remember(chat)
	return toGroup(chat), nil
}

// Send sends an HTML-formatted text message to the group.
func (tba *TelebotAdapter) Send(ctx context.Context, group messenger.Group, text string) error {
	if err := ctx.Err(); err != nil {
		return &messenger.SendError{Destination: group.Title, Err: err}
	}

	_, err := tba.bot.Send(&telebot.Chat{ID: group.ID}, text, &telebot.SendOptions{ParseMode: telebot.ModeHTML})
	if err != nil {
		return &messenger.SendError{Destination: group.Title, Err: err}
	}
	return nil
}

func (tba *TelebotAdapter) rememberChatMiddleware(next telebot.HandlerFunc) telebot.HandlerFunc {
	return func(c telebot.Context) error {
		if chat := c.Chat(); chat != nil {
			tba.remember(chat)
		}
		return next(c)
	}
}

func (tba *TelebotAdapter) remember(chat *telebot.Chat) {
	if !isGroupChat(chat) || chat.Title == "" {
		return
	}
	tba.mu.Lock()
	defer tba.mu.Unlock()
	if _, known := tba.groups[chat.Title]; !known {
		tba.logger.WithFields(logrus.Fields{"chat_id": chat.ID, "title": chat.Title}).Debug("Learned group chat")
	}
	tba.groups[chat.Title] = chat
}

func (tba *TelebotAdapter) lookupTitle(title string) *telebot.Chat {
	tba.mu.RLock()
	defer tba.mu.RUnlock()
	return tba.groups[title]
}

func isGroupChat(chat *telebot.Chat) bool {
	if chat == nil {
		return false
	}
	switch chat.Type {
	case telebot.ChatGroup, telebot.ChatSuperGroup, telebot.ChatChannel, telebot.ChatChannelPrivate:
		return true
	default:
		return false
	}
}

func isChatNotFound(err error) bool {
	if errors.Is(err, telebot.ErrChatNotFound) {
		return true
	}
	var tgErr *telebot.Error
	return errors.As(err, &tgErr) && tgErr.Code == 400
}

func toGroup(chat *telebot.Chat) messenger.Group {
	title := chat.Title
	if title == "" {
		title = chat.Username
	}
	return messenger.Group{ID: chat.ID, Title: title}
}
