package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/telebot.v3"

	"license_notification_bot/internal/domain/messenger"
	"license_notification_bot/internal/infra/config"
)

type apiCall struct {
	method string
	params map[string]interface{}
}

type fakeBotAPI struct {
	mu      sync.Mutex
	calls   []apiCall
	replies map[string]string
}

func (f *fakeBotAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	method := r.URL.Path[strings.LastIndex(r.URL.Path, "/")+1:]
	params := map[string]interface{}{}
	_ = json.NewDecoder(r.Body).Decode(&params)

	f.mu.Lock()
	f.calls = append(f.calls, apiCall{method: method, params: params})
	reply, ok := f.replies[method]
	f.mu.Unlock()

	if !ok {
		reply = `{"ok":false,"error_code":404,"description":"Not Found"}`
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(reply))
}

func (f *fakeBotAPI) lastCall() apiCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[len(f.calls)-1]
}

func (f *fakeBotAPI) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func newTestAdapter(t *testing.T, replies map[string]string) (*TelebotAdapter, *fakeBotAPI) {
	t.Helper()
	api := &fakeBotAPI{replies: replies}
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	b, err := telebot.NewBot(telebot.Settings{URL: srv.URL, Token: "test-token", Offline: true})
	require.NoError(t, err)

	logger, _ := logtest.NewNullLogger()
	return NewTelebotAdapter(b, logrus.NewEntry(logger)), api
}

const supergroupReply = `{"ok":true,"result":{"id":-100123,"type":"supergroup","title":"License Ops"}}`

func TestAdapterReadyLifecycle(t *testing.T) {
	adapter, _ := newTestAdapter(t, nil)
	assert.Equal(t, messenger.StateAuthenticating, adapter.State())

	select {
	case <-adapter.Ready():
		t.Fatal("ready before start")
	default:
	}

	adapter.markReady()
	adapter.markReady()

	<-adapter.Ready()
	assert.Equal(t, messenger.StateReady, adapter.State())
}

func TestFindGroupByLearnedTitle(t *testing.T) {
	adapter, api := newTestAdapter(t, nil)
	adapter.remember(&telebot.Chat{ID: -100777, Type: telebot.ChatSuperGroup, Title: "License Ops"})
	adapter.remember(&telebot.Chat{ID: 42, Type: telebot.ChatPrivate, FirstName: "Dewi"})

	group, err := adapter.FindGroup(context.Background(), "License Ops")
	require.NoError(t, err)
	assert.Equal(t, messenger.Group{ID: -100777, Title: "License Ops"}, group)
	assert.Zero(t, api.callCount())
}

func TestFindGroupByChatID(t *testing.T) {
	adapter, api := newTestAdapter(t, map[string]string{"getChat": supergroupReply})

	group, err := adapter.FindGroup(context.Background(), "-100123")
	require.NoError(t, err)
	assert.Equal(t, messenger.Group{ID: -100123, Title: "License Ops"}, group)
	assert.Equal(t, "getChat", api.lastCall().method)

	// The resolved title is cached for the next lookup.
	_, err = adapter.FindGroup(context.Background(), "License Ops")
	require.NoError(t, err)
	assert.Equal(t, 1, api.callCount())
}

func TestFindGroupByUsername(t *testing.T) {
	adapter, api := newTestAdapter(t, map[string]string{"getChat": supergroupReply})

	_, err := adapter.FindGroup(context.Background(), "license_ops")
	require.NoError(t, err)
	assert.Equal(t, "@license_ops", fmt.Sprint(api.lastCall().params["chat_id"]))
}

func TestFindGroupNotFound(t *testing.T) {
	adapter, _ := newTestAdapter(t, map[string]string{
		"getChat": `{"ok":false,"error_code":400,"description":"Bad Request: chat not found"}`,
	})

	_, err := adapter.FindGroup(context.Background(), "Unknown Group")
	var notFound *messenger.GroupNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "Unknown Group", notFound.Name)
}

func TestFindGroupRejectsPrivateChat(t *testing.T) {
	adapter, _ := newTestAdapter(t, map[string]string{
		"getChat": `{"ok":true,"result":{"id":42,"type":"private","first_name":"Dewi"}}`,
	})

	_, err := adapter.FindGroup(context.Background(), "42")
	var notFound *messenger.GroupNotFoundError
	assert.ErrorAs(t, err, &notFound)
}

func TestSendUsesHTML(t *testing.T) {
	adapter, api := newTestAdapter(t, map[string]string{
		"sendMessage": `{"ok":true,"result":{"message_id":7,"date":0,"chat":{"id":-100123,"type":"supergroup"},"text":"hi"}}`,
	})

	err := adapter.Send(context.Background(), messenger.Group{ID: -100123, Title: "License Ops"}, "🔔 <b>License Expiring Alert</b>")
	require.NoError(t, err)

	call := api.lastCall()
	assert.Equal(t, "sendMessage", call.method)
	assert.Equal(t, "-100123", fmt.Sprint(call.params["chat_id"]))
	assert.Equal(t, "HTML", fmt.Sprint(call.params["parse_mode"]))
	assert.Equal(t, "🔔 <b>License Expiring Alert</b>", call.params["text"])
}

func TestSendFailureIsSendError(t *testing.T) {
	adapter, _ := newTestAdapter(t, map[string]string{
		"sendMessage": `{"ok":false,"error_code":403,"description":"Forbidden: bot was kicked from the supergroup chat"}`,
	})

	err := adapter.Send(context.Background(), messenger.Group{ID: -100123, Title: "License Ops"}, "text")
	var sendErr *messenger.SendError
	require.ErrorAs(t, err, &sendErr)
	assert.Equal(t, "License Ops", sendErr.Destination)
	assert.Error(t, errors.Unwrap(err))
}

func TestSendHonoursCancelledContext(t *testing.T) {
	adapter, api := newTestAdapter(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := adapter.Send(ctx, messenger.Group{ID: 1, Title: "g"}, "text")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, api.callCount())
}

func TestCanListExpiring(t *testing.T) {
	group := &telebot.Chat{ID: -100123, Type: telebot.ChatSuperGroup, Title: "License Ops", Username: "license_ops"}
	private := &telebot.Chat{ID: 42, Type: telebot.ChatPrivate}

	tests := []struct {
		name     string
		cfg      config.AppConfig
		senderID int64
		chat     *telebot.Chat
		want     bool
	}{
		{"admin in private chat", config.AppConfig{GroupName: "License Ops", AdminTelegramID: 42}, 42, private, true},
		{"stranger in private chat", config.AppConfig{GroupName: "License Ops", AdminTelegramID: 42}, 7, private, false},
		{"no admin configured", config.AppConfig{GroupName: "License Ops"}, 0, private, false},
		{"member of group by title", config.AppConfig{GroupName: "License Ops"}, 7, group, true},
		{"member of group by username", config.AppConfig{GroupName: "@license_ops"}, 7, group, true},
		{"member of group by id", config.AppConfig{GroupName: "-100123"}, 7, group, true},
		{"other group", config.AppConfig{GroupName: "Finance"}, 7, group, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.cfg
			assert.Equal(t, tt.want, canListExpiring(&cfg, tt.senderID, tt.chat))
		})
	}
}

func TestFindGroupTitleResolvesOnlyAfterGroupUpdate(t *testing.T) {
	adapter, api := newTestAdapter(t, map[string]string{
		"getChat": `{"ok":false,"error_code":400,"description":"Bad Request: chat not found"}`,
	})

	_, err := adapter.FindGroup(context.Background(), "License Ops")
	var notFound *messenger.GroupNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "@License Ops", fmt.Sprint(api.lastCall().params["chat_id"]))

	handler := adapter.rememberChatMiddleware(func(telebot.Context) error { return nil })
	update := telebot.Update{Message: &telebot.Message{Chat: &telebot.Chat{ID: -100555, Type: telebot.ChatSuperGroup, Title: "License Ops"}}}
	require.NoError(t, handler(adapter.Bot().NewContext(update)))

	group, err := adapter.FindGroup(context.Background(), "License Ops")
	require.NoError(t, err)
	assert.Equal(t, int64(-100555), group.ID)
}
