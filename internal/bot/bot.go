// Package bot implements the Telegram command surface: card registration,
// manual balance checks and the small conversation around card input.
package bot

import (
	"context"
	"fmt"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/kronevakt/kronevakt/internal/domain"
	"github.com/kronevakt/kronevakt/internal/services/monitor"
	"github.com/kronevakt/kronevakt/internal/services/notifier"
)

const (
	msgWelcomeBack = "Hei %s! Du har allerede registrert kortnummeret ditt.\n\n" +
		"Bruk /balance for å sjekke saldoen manuelt.\n" +
		"Bruk /updatecard for å oppdatere kortnummeret ditt."
	msgWelcome = "Hei %s! Velkommen til Kronevakt.\n\n" +
		"Jeg vil hjelpe deg med å overvåke saldoen på ditt Kronekort.\n\n" +
		"Vennligst send meg ditt kortnummer (12 siffer)."
	msgRegistered = "Takk! Kortnummeret ditt er registrert.\n\n" +
		"Jeg vil nå sjekke saldoen hvert 5. minutt og varsle deg hvis den endres.\n\n" +
		"Bruk /balance for å sjekke saldoen manuelt."
	msgInvalidCard     = "Ugyldig kortnummer. Vennligst send et gyldig 12-sifret kortnummer."
	msgSendNewCard     = "Vennligst send meg ditt nye kortnummer (12 siffer)."
	msgNotRegistered   = "Du har ikke registrert et kortnummer ennå. Bruk /start for å begynne."
	msgChecking        = "Sjekker saldo..."
	msgCheckInProgress = "Sjekker saldo... vennligst vent."
	msgCheckTimeout    = "Tidsavbrudd ved sjekking av saldo. Vennligst prøv igjen senere."
	msgCheckFailed     = "Kunne ikke hente saldo. Vennligst prøv igjen senere."
	msgCancelled       = "Operasjonen er avbrutt."
	msgHelp            = "Tilgjengelige kommandoer:\n" +
		"/start - registrer kortnummer\n" +
		"/balance - sjekk saldo nå\n" +
		"/updatecard - bytt kortnummer\n" +
		"/cancel - avbryt pågående operasjon"
	msgUnknownCommand = "Ukjent kommando. Bruk /help for å se tilgjengelige kommandoer."
)

// Checker runs on-demand balance checks and card registration.
type Checker interface {
	CheckNow(ctx context.Context, userID int64) (domain.BalanceSnapshot, error)
	Register(reg domain.Registration) error
}

// RegistrationReader looks up the card on file for a user.
type RegistrationReader interface {
	Get(userID int64) (domain.Registration, bool)
}

// Bot long-polls Telegram and dispatches commands. The only conversation
// state is whether the bot is waiting for a card number from the user, kept
// in memory and reset by /cancel.
type Bot struct {
	api           *tgbotapi.BotAPI
	checker       Checker
	registrations RegistrationReader
	logger        *zap.Logger

	mu           sync.Mutex
	awaitingCard map[int64]bool
}

// New creates a bot over an authorized API client.
func New(api *tgbotapi.BotAPI, checker Checker, registrations RegistrationReader, logger *zap.Logger) *Bot {
	return &Bot{
		api:           api,
		checker:       checker,
		registrations: registrations,
		logger:        logger,
		awaitingCard:  make(map[int64]bool),
	}
}

// Run consumes updates until the context is cancelled.
func (b *Bot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)

	b.logger.Info("bot started", zap.String("username", b.api.Self.UserName))

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			b.logger.Info("bot stopped")
			return ctx.Err()
		case update := <-updates:
			if update.Message == nil {
				continue
			}
			b.handleMessage(ctx, update.Message)
		}
	}
}

func (b *Bot) handleMessage(ctx context.Context, message *tgbotapi.Message) {
	userID := message.From.ID

	if message.IsCommand() {
		b.handleCommand(ctx, message)
		return
	}

	if b.isAwaitingCard(userID) {
		b.handleCardInput(message)
		return
	}

	b.reply(userID, msgHelp)
}

func (b *Bot) handleCommand(ctx context.Context, message *tgbotapi.Message) {
	userID := message.From.ID

	switch message.Command() {
	case "start":
		b.handleStart(message)
	case "updatecard":
		b.setAwaitingCard(userID, true)
		b.reply(userID, msgSendNewCard)
	case "balance":
		go b.handleBalance(ctx, userID)
	case "cancel":
		b.setAwaitingCard(userID, false)
		b.reply(userID, msgCancelled)
	case "help":
		b.reply(userID, msgHelp)
	default:
		b.reply(userID, msgUnknownCommand)
	}
}

func (b *Bot) handleStart(message *tgbotapi.Message) {
	userID := message.From.ID
	name := displayName(message.From)

	if _, ok := b.registrations.Get(userID); ok {
		b.replyf(userID, msgWelcomeBack, name)
		return
	}

	b.setAwaitingCard(userID, true)
	b.replyf(userID, msgWelcome, name)
}

func (b *Bot) handleCardInput(message *tgbotapi.Message) {
	userID := message.From.ID

	card, err := domain.ParseCardNumber(message.Text)
	if err != nil {
		b.reply(userID, msgInvalidCard)
		return
	}

	reg := domain.Registration{
		UserID:    userID,
		Username:  displayName(message.From),
		Card:      card,
		CreatedAt: time.Now(),
	}
	if err := b.checker.Register(reg); err != nil {
		b.logger.Error("registration failed", zap.Int64("user_id", userID), zap.Error(err))
		b.reply(userID, msgCheckFailed)
		return
	}

	b.setAwaitingCard(userID, false)
	b.reply(userID, msgRegistered)
}

// handleBalance runs the on-demand check in its own goroutine so a slow
// portal never stalls update polling.
func (b *Bot) handleBalance(ctx context.Context, userID int64) {
	if _, ok := b.registrations.Get(userID); !ok {
		b.reply(userID, msgNotRegistered)
		return
	}

	b.reply(userID, msgChecking)

	snapshot, err := b.checker.CheckNow(ctx, userID)
	switch {
	case err == nil:
		b.replyMarkdown(userID, notifier.FormatBalanceMessage(snapshot))
	case errors.Is(err, monitor.ErrCheckInProgress):
		b.reply(userID, msgCheckInProgress)
	case errors.Is(err, monitor.ErrNotRegistered):
		b.reply(userID, msgNotRegistered)
	case errors.Is(err, context.DeadlineExceeded):
		b.logger.Warn("balance check timed out", zap.Int64("user_id", userID))
		b.reply(userID, msgCheckTimeout)
	default:
		b.logger.Error("balance check failed", zap.Int64("user_id", userID), zap.Error(err))
		b.reply(userID, msgCheckFailed)
	}
}

func (b *Bot) isAwaitingCard(userID int64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.awaitingCard[userID]
}

func (b *Bot) setAwaitingCard(userID int64, waiting bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if waiting {
		b.awaitingCard[userID] = true
	} else {
		delete(b.awaitingCard, userID)
	}
}

func (b *Bot) reply(userID int64, text string) {
	b.send(tgbotapi.NewMessage(userID, text))
}

func (b *Bot) replyf(userID int64, format string, args ...any) {
	b.send(tgbotapi.NewMessage(userID, fmt.Sprintf(format, args...)))
}

func (b *Bot) replyMarkdown(userID int64, text string) {
	msg := tgbotapi.NewMessage(userID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	b.send(msg)
}

func (b *Bot) send(msg tgbotapi.MessageConfig) {
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Error("send reply failed", zap.Int64("chat_id", msg.ChatID), zap.Error(err))
	}
}

func displayName(user *tgbotapi.User) string {
	if user.UserName != "" {
		return user.UserName
	}
	return user.FirstName
}
