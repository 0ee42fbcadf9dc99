package bot

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kronevakt/kronevakt/internal/domain"
)

type fakeChecker struct {
	registered  []domain.Registration
	registerErr error
}

func (c *fakeChecker) CheckNow(context.Context, int64) (domain.BalanceSnapshot, error) {
	return domain.BalanceSnapshot{}, nil
}

func (c *fakeChecker) Register(reg domain.Registration) error {
	if c.registerErr != nil {
		return c.registerErr
	}
	c.registered = append(c.registered, reg)
	return nil
}

type fakeRegistrations struct {
	regs map[int64]domain.Registration
}

func (r *fakeRegistrations) Get(userID int64) (domain.Registration, bool) {
	reg, ok := r.regs[userID]
	return reg, ok
}

type replyLog struct {
	mu    sync.Mutex
	texts []string
}

func (l *replyLog) add(text string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.texts = append(l.texts, text)
}

func (l *replyLog) all() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.texts...)
}

// newTestBot wires the bot to a stub Telegram endpoint that records every
// sendMessage text.
func newTestBot(t *testing.T, checker Checker, regs RegistrationReader) (*Bot, *replyLog) {
	t.Helper()

	log := &replyLog{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/getMe"):
			respond(w, tgbotapi.User{ID: 1, IsBot: true, UserName: "kronevakt_test_bot"})
		case strings.HasSuffix(r.URL.Path, "/sendMessage"):
			log.add(r.FormValue("text"))
			respond(w, tgbotapi.Message{MessageID: 1})
		default:
			respond(w, struct{}{})
		}
	}))
	t.Cleanup(server.Close)

	api, err := tgbotapi.NewBotAPIWithAPIEndpoint("test-token", server.URL+"/bot%s/%s")
	require.NoError(t, err)

	return New(api, checker, regs, zap.NewNop()), log
}

func respond(w http.ResponseWriter, result any) {
	payload, _ := json.Marshal(result)
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"ok":true,"result":` + string(payload) + `}`))
}

func message(userID int64, text string) *tgbotapi.Message {
	return &tgbotapi.Message{
		Text: text,
		From: &tgbotapi.User{ID: userID, UserName: "kari"},
	}
}

func TestCardInputRepromptsOnInvalidNumber(t *testing.T) {
	checker := &fakeChecker{}
	b, log := newTestBot(t, checker, &fakeRegistrations{})

	b.setAwaitingCard(42, true)
	b.handleCardInput(message(42, "1234"))

	require.Equal(t, []string{msgInvalidCard}, log.all())
	require.Empty(t, checker.registered, "an invalid number must never reach registration")
	require.True(t, b.isAwaitingCard(42), "the dialog keeps waiting for a valid number")

	b.handleCardInput(message(42, "123456789012"))

	require.Equal(t, []string{msgInvalidCard, msgRegistered}, log.all())
	require.Len(t, checker.registered, 1)
	require.Equal(t, domain.CardNumber("123456789012"), checker.registered[0].Card)
	require.False(t, b.isAwaitingCard(42))
}

func TestCardInputAcceptsSpacedNumber(t *testing.T) {
	checker := &fakeChecker{}
	b, log := newTestBot(t, checker, &fakeRegistrations{})

	b.setAwaitingCard(42, true)
	b.handleCardInput(message(42, "1234 5678 9012"))

	require.Equal(t, []string{msgRegistered}, log.all())
	require.Len(t, checker.registered, 1)
	require.Equal(t, domain.CardNumber("123456789012"), checker.registered[0].Card)
}

func TestCardInputKeepsDialogOnRegistrationFailure(t *testing.T) {
	checker := &fakeChecker{registerErr: errors.New("store unavailable")}
	b, log := newTestBot(t, checker, &fakeRegistrations{})

	b.setAwaitingCard(42, true)
	b.handleCardInput(message(42, "123456789012"))

	require.Equal(t, []string{msgCheckFailed}, log.all())
	require.True(t, b.isAwaitingCard(42), "a failed registration keeps the dialog open for a retry")
}
