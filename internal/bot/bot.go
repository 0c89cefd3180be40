// Package bot implements the Telegram command and callback handlers.
package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"movie_bot/internal/storage"
	"movie_bot/internal/tmdb"
)

type telegramAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Bot is the Telegram bot that handles user commands and button callbacks.
type Bot struct {
	api      telegramAPI
	store    storage.Storage
	meta     *tmdb.Client
	sessions *sessionStore
	log      *slog.Logger
}

// New creates a Bot with the given Telegram token, storage, and metadata client.
func New(token string, store storage.Storage, meta *tmdb.Client, log *slog.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}

	return &Bot{
		api:      api,
		store:    store,
		meta:     meta,
		sessions: newSessionStore(sessionTTL),
		log:      log,
	}, nil
}

// Run starts the bot's long-polling loop, blocking until ctx is cancelled.
func (b *Bot) Run(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return
		case update := <-updates:
			if update.CallbackQuery != nil {
				b.handleCallback(ctx, update.CallbackQuery)
				continue
			}
			if update.Message == nil || !update.Message.IsCommand() {
				continue
			}
			b.handleCommand(ctx, update.Message)
		}
	}
}

// SendMessage sends a plain text message to the given chat.
func (b *Bot) SendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.DisableWebPagePreview = true
	if _, err := b.api.Send(msg); err != nil {
		b.log.Error("send message", "chat_id", chatID, "error", err)
	}
}

// SendMarkdown sends a Markdown-formatted message to the given chat.
func (b *Bot) SendMarkdown(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	msg.DisableWebPagePreview = true
	if _, err := b.api.Send(msg); err != nil {
		b.log.Error("send message", "chat_id", chatID, "error", err)
	}
}

// SendPhoto sends a photo by URL with a Markdown caption.
func (b *Bot) SendPhoto(chatID int64, photoURL, caption string) {
	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileURL(photoURL))
	photo.Caption = caption
	photo.ParseMode = tgbotapi.ModeMarkdown
	if _, err := b.api.Send(photo); err != nil {
		b.log.Error("send photo", "chat_id", chatID, "error", err)
	}
}

func (b *Bot) reply(chatID int64, text string) {
	b.SendMessage(chatID, text)
}

// sendOrEdit sends a new message when messageID is zero, otherwise edits the
// existing message in place. An edit rejected because the content is
// unchanged is swallowed; one rejected because the message has no editable
// text (it was a photo card) falls back to sending a new message.
func (b *Bot) sendOrEdit(chatID int64, messageID int, text string, markup *tgbotapi.InlineKeyboardMarkup) {
	if messageID == 0 {
		msg := tgbotapi.NewMessage(chatID, text)
		if markup != nil {
			msg.ReplyMarkup = *markup
		}
		if _, err := b.api.Send(msg); err != nil {
			b.log.Error("send message", "chat_id", chatID, "error", err)
		}
		return
	}

	var edit tgbotapi.Chattable
	if markup != nil {
		edit = tgbotapi.NewEditMessageTextAndMarkup(chatID, messageID, text, *markup)
	} else {
		edit = tgbotapi.NewEditMessageText(chatID, messageID, text)
	}

	_, err := b.api.Send(edit)
	switch {
	case err == nil, isNotModified(err):
		return
	case isNoTextToEdit(err):
		b.sendOrEdit(chatID, 0, text, markup)
	default:
		b.log.Error("edit message", "chat_id", chatID, "message_id", messageID, "error", err)
	}
}

func isNotModified(err error) bool {
	return err != nil && strings.Contains(err.Error(), "message is not modified")
}

func isNoTextToEdit(err error) bool {
	return err != nil && strings.Contains(err.Error(), "no text in the message to edit")
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	cmd := msg.Command()
	args := strings.TrimSpace(msg.CommandArguments())
	chatID := msg.Chat.ID

	b.log.Debug("command", "cmd", cmd, "args", args, "chat_id", chatID)

	switch cmd {
	case "start":
		b.handleStart(ctx, msg)
	case "help":
		b.handleHelp(chatID)
	case "search":
		b.handleSearch(ctx, chatID, args)
	case "watchlist":
		b.handleWatchlist(ctx, chatID, msg.From.ID)
	case "remove":
		b.handleRemove(ctx, chatID, msg.From.ID, args)
	case "trending":
		b.handleTrending(ctx, chatID, args)
	default:
		b.reply(chatID, "Unknown command. Use /help for a list of commands.")
	}
}
