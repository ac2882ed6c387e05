package bot

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"calorie-bot/config"
	"calorie-bot/pkg/logger"
)

const (
	ModePolling = "polling"
	ModeWebhook = "webhook"

	handleTimeout = 2 * time.Minute
)

// Sender delivers outgoing Telegram requests.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type TelegramBot struct {
	api    *tgbotapi.BotAPI
	sender Sender
	conv   *Conversation
	logger *logger.Logger
	cfg    config.TelegramConfig

	// ctx outlives webhook requests; handlers run on it.
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// queues holds pending messages per user. A key is present while that
	// user's worker runs.
	mu     sync.Mutex
	queues map[string][]Inbound
	closed bool
}

func NewTelegramBot(cfg config.TelegramConfig, conv *Conversation, l *logger.Logger) (*TelegramBot, error) {
	api, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot: %w", err)
	}
	api.Debug = cfg.Debug

	t := newTelegramBot(api, conv, l)
	t.api = api
	t.cfg = cfg
	t.logger.Infow("Authorized on Telegram", "username", api.Self.UserName)
	return t, nil
}

func newTelegramBot(sender Sender, conv *Conversation, l *logger.Logger) *TelegramBot {
	ctx, cancel := context.WithCancel(context.Background())
	return &TelegramBot{
		sender: sender,
		conv:   conv,
		logger: l.Named("telegram"),
		cfg:    config.TelegramConfig{Mode: ModePolling},
		ctx:    ctx,
		cancel: cancel,
		queues: make(map[string][]Inbound),
	}
}

// Start begins receiving updates: long polling, or registering the webhook
// that HandleWebhook serves.
func (t *TelegramBot) Start(ctx context.Context) error {
	if t.cfg.Mode == ModeWebhook {
		wh, err := tgbotapi.NewWebhook(t.cfg.WebhookURL)
		if err != nil {
			return fmt.Errorf("invalid webhook url: %w", err)
		}
		if _, err := t.api.Request(wh); err != nil {
			return fmt.Errorf("failed to set webhook: %w", err)
		}
		t.logger.Infow("Webhook registered")
		return nil
	}

	// Remove any existing webhook so that polling works
	_, err := t.api.Request(tgbotapi.DeleteWebhookConfig{
		DropPendingUpdates: false,
	})
	if err != nil {
		return fmt.Errorf("failed to delete webhook: %w", err)
	}

	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := t.api.GetUpdatesChan(updateConfig)

	t.logger.Info("Started receiving Telegram updates")

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		t.handleUpdates(ctx, updates)
	}()
	return nil
}

func (t *TelegramBot) handleUpdates(ctx context.Context, updates tgbotapi.UpdatesChannel) {
	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			t.dispatch(update)
		}
	}
}

// dispatch queues the update for its user. Each user has one worker, so
// messages are handled one at a time in arrival order. It returns false once
// Stop has been called.
func (t *TelegramBot) dispatch(update tgbotapi.Update) bool {
	in, ok := inboundFromUpdate(update)
	if !ok {
		t.logger.Debugw("Ignoring update", "update_id", update.UpdateID)
		return true
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		t.logger.Warnw("Dropping update after shutdown", "update_id", update.UpdateID, "user_id", in.UserID)
		return false
	}

	pending, running := t.queues[in.UserID]
	t.queues[in.UserID] = append(pending, in)
	if !running {
		t.wg.Add(1)
		go t.drain(in.UserID)
	}
	return true
}

// drain handles the user's queue until it is empty.
func (t *TelegramBot) drain(userID string) {
	defer t.wg.Done()
	for {
		in, ok := t.next(userID)
		if !ok {
			return
		}
		t.process(t.ctx, in)
	}
}

func (t *TelegramBot) next(userID string) (Inbound, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	pending := t.queues[userID]
	if len(pending) == 0 {
		delete(t.queues, userID)
		return Inbound{}, false
	}
	t.queues[userID] = pending[1:]
	return pending[0], true
}

func (t *TelegramBot) process(ctx context.Context, in Inbound) {
	defer func() {
		if r := recover(); r != nil {
			t.logger.Errorw("Recovered from panic while processing message", "user_id", in.UserID, "panic", r)
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, handleTimeout)
	defer cancel()

	reply := t.conv.Handle(ctx, in)
	t.Notify(reply)
}

// inboundFromUpdate extracts a text message sent by a user.
func inboundFromUpdate(update tgbotapi.Update) (Inbound, bool) {
	msg := update.Message
	if msg == nil || msg.From == nil || msg.Chat == nil || msg.Text == "" {
		return Inbound{}, false
	}
	return Inbound{
		UserID:   strconv.FormatInt(msg.From.ID, 10),
		ChatID:   msg.Chat.ID,
		Username: msg.From.UserName,
		Text:     msg.Text,
	}, true
}

func newMessage(reply *Reply) tgbotapi.MessageConfig {
	msg := tgbotapi.NewMessage(reply.ChatID, reply.Text)
	if len(reply.Buttons) == 0 {
		msg.ReplyMarkup = tgbotapi.NewRemoveKeyboard(true)
		return msg
	}

	row := make([]tgbotapi.KeyboardButton, 0, len(reply.Buttons))
	for _, b := range reply.Buttons {
		row = append(row, tgbotapi.NewKeyboardButton(b))
	}
	keyboard := tgbotapi.NewReplyKeyboard(row)
	keyboard.OneTimeKeyboard = true
	msg.ReplyMarkup = keyboard
	return msg
}

// Notify delivers a reply. Failures are logged only.
func (t *TelegramBot) Notify(reply *Reply) {
	if reply == nil || reply.ChatID == 0 {
		return
	}
	sent, err := t.sender.Send(newMessage(reply))
	if err != nil {
		t.logger.Errorw("Failed to send message", "user_id", reply.UserID, "chat_id", reply.ChatID, "error", err)
		return
	}
	t.logger.Debugw("Sent message", "user_id", reply.UserID, "message_id", sent.MessageID)
}

// Stop stops receiving updates and waits until queued messages are handled.
func (t *TelegramBot) Stop(ctx context.Context) error {
	if t.api != nil && t.cfg.Mode != ModeWebhook {
		t.api.StopReceivingUpdates()
	}

	// No worker starts after this point
	t.mu.Lock()
	t.closed = true
	t.mu.Unlock()

	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		t.cancel()
		return nil
	case <-ctx.Done():
		t.cancel()
		return ctx.Err()
	}
}
