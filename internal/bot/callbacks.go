package bot

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"movie_bot/internal/model"
)

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	if cb.Message == nil {
		return
	}
	data := cb.Data
	chatID := cb.Message.Chat.ID

	callback := tgbotapi.NewCallback(cb.ID, "")
	if _, err := b.api.Request(callback); err != nil {
		b.log.Error("answer callback", "error", err)
	}

	b.log.Debug("callback",
		"data", data,
		"chat_id", chatID,
		"user_id", cb.From.ID,
	)

	switch {
	case data == "back_to_search":
		b.handleBackToSearch(ctx, cb)
	default:
		if kind, id, ok := ParseAddToken(data); ok {
			b.handleAddToWatchlist(ctx, cb, kind, id)
			return
		}
		if kind, id, ok := ParseItemToken(data); ok {
			b.handleItemDetails(ctx, cb, kind, id)
			return
		}
		// Header and placeholder buttons ("noop") land here.
	}
}

// handleItemDetails renders the detail view for a selected search result.
// With a poster the list message is replaced by a photo card; without one
// the list message is edited in place.
func (b *Bot) handleItemDetails(ctx context.Context, cb *tgbotapi.CallbackQuery, kind model.MediaKind, id int64) {
	chatID := cb.Message.Chat.ID
	userID := cb.From.ID

	item, err := b.meta.Details(ctx, kind, id)
	if err != nil {
		b.replyProviderError(chatID, "fetch details", err)
		return
	}

	inWatchlist, err := b.store.Exists(ctx, userID, id, kind)
	if err != nil {
		b.log.Error("check watchlist", "user_id", userID, "item_id", id, "error", err)
	}

	text := FormatItemDetail(item)
	markup := DetailKeyboard(kind, id, inWatchlist)

	if item.PosterURL == "" {
		b.sendOrEdit(chatID, cb.Message.MessageID, text, &markup)
		return
	}

	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileURL(item.PosterURL))
	photo.Caption = text
	photo.ReplyMarkup = markup
	if _, err := b.api.Send(photo); err != nil {
		b.log.Error("send detail photo", "chat_id", chatID, "error", err)
		return
	}
	if _, err := b.api.Request(tgbotapi.NewDeleteMessage(chatID, cb.Message.MessageID)); err != nil {
		b.log.Error("delete results message", "chat_id", chatID, "error", err)
	}
}

func (b *Bot) handleAddToWatchlist(ctx context.Context, cb *tgbotapi.CallbackQuery, kind model.MediaKind, id int64) {
	chatID := cb.Message.Chat.ID
	userID := cb.From.ID

	item, err := b.meta.Details(ctx, kind, id)
	if err != nil {
		b.replyProviderError(chatID, "fetch details", err)
		return
	}

	inserted, err := b.store.AddEntry(ctx, userID, id, kind, item.Title)
	if err != nil {
		b.log.Error("add watchlist entry", "user_id", userID, "item_id", id, "error", err)
		b.reply(chatID, "Could not update your watchlist. Please try again.")
		return
	}
	if inserted {
		b.reply(chatID, "Added "+item.Title+" to your watchlist!")
	} else {
		b.reply(chatID, item.Title+" is already in your watchlist!")
	}

	markup := DetailKeyboard(kind, id, true)
	_, err = b.api.Send(tgbotapi.NewEditMessageReplyMarkup(chatID, cb.Message.MessageID, markup))
	if err != nil && !isNotModified(err) {
		b.log.Error("update detail keyboard", "chat_id", chatID, "error", err)
	}
}

func (b *Bot) handleBackToSearch(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	chatID := cb.Message.Chat.ID

	query, ok := b.sessions.Query(chatID)
	if !ok {
		b.reply(chatID, "Your last search has expired. Try a new /search.")
		return
	}
	b.renderSearch(ctx, chatID, cb.Message.MessageID, query)
}
