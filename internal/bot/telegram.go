package bot

import (
	"context"
	"log/slog"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
)

// Telegram runs the long-poll loop and adapts updates to Conversation.
type Telegram struct {
	api      *tgbotapi.BotAPI
	handlers *Handlers
	log      *slog.Logger
}

// NewTelegram connects to the Bot API with the given token.
func NewTelegram(token string, handlers *Handlers, log *slog.Logger) (*Telegram, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	log.Info("telegram bot authorized", "username", api.Self.UserName)
	return &Telegram{api: api, handlers: handlers, log: log}, nil
}

// Run consumes updates until the context is cancelled. Each update is
// handled in its own goroutine so one user's slow transaction does not
// stall everyone else.
func (t *Telegram) Run(ctx context.Context) {
	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = 60
	updates := t.api.GetUpdatesChan(cfg)

	for {
		select {
		case <-ctx.Done():
			t.api.StopReceivingUpdates()
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			go t.dispatch(ctx, update)
		}
	}
}

func (t *Telegram) dispatch(ctx context.Context, update tgbotapi.Update) {
	traceID := uuid.NewString()
	log := t.log.With("trace_id", traceID)

	defer func() {
		if r := recover(); r != nil {
			log.Error("handler panicked", "panic", r)
		}
	}()

	switch {
	case update.CallbackQuery != nil:
		cb := update.CallbackQuery
		// Ack first so the client stops its spinner.
		if _, err := t.api.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
			log.Warn("failed to answer callback", "error", err)
		}
		conv := &tgConversation{api: t.api, log: log,
			userID:  cb.From.ID,
			chatID:  cb.Message.Chat.ID,
			private: cb.Message.Chat.IsPrivate(),
		}
		t.handlers.HandleCallback(ctx, conv, cb.Data)

	case update.Message != nil:
		msg := update.Message
		conv := &tgConversation{api: t.api, log: log,
			userID:  msg.From.ID,
			chatID:  msg.Chat.ID,
			private: msg.Chat.IsPrivate(),
			text:    msg.Text,
		}
		if msg.IsCommand() {
			log.Debug("command received", "command", msg.Command())
			t.handlers.HandleCommand(ctx, conv, msg.Command(), msg.CommandArguments())
		} else {
			t.handlers.HandleText(ctx, conv)
		}
	}
}

type tgConversation struct {
	api     *tgbotapi.BotAPI
	log     *slog.Logger
	userID  int64
	chatID  int64
	private bool
	text    string
}

func (c *tgConversation) UserID() int64   { return c.userID }
func (c *tgConversation) IsPrivate() bool { return c.private }
func (c *tgConversation) Text() string    { return c.text }

func (c *tgConversation) Reply(text string) error {
	_, err := c.api.Send(tgbotapi.NewMessage(c.chatID, text))
	return err
}

func (c *tgConversation) ReplyKeyboard(text string, buttons []Button) error {
	row := make([]tgbotapi.InlineKeyboardButton, len(buttons))
	for i, b := range buttons {
		row[i] = tgbotapi.NewInlineKeyboardButtonData(b.Label, b.Data)
	}
	msg := tgbotapi.NewMessage(c.chatID, text)
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(row)
	_, err := c.api.Send(msg)
	return err
}

func (c *tgConversation) ReplyEphemeral(text string, ttl time.Duration) error {
	sent, err := c.api.Send(tgbotapi.NewMessage(c.chatID, text))
	if err != nil {
		return err
	}
	time.AfterFunc(ttl, func() {
		if _, err := c.api.Request(tgbotapi.NewDeleteMessage(c.chatID, sent.MessageID)); err != nil {
			c.log.Warn("failed to delete ephemeral message", "error", err)
		}
	})
	return nil
}
