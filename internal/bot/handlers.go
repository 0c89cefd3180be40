package bot

import (
	"context"
	"errors"
	"fmt"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"movie_bot/internal/model"
	"movie_bot/internal/tmdb"
)

const msgServiceUnavailable = "The movie database is unavailable right now. Please try again later."

func (b *Bot) handleStart(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID

	name := ""
	if msg.From != nil {
		name = msg.From.FirstName
	}
	b.reply(chatID, fmt.Sprintf(`Hi %s! I'm your movie and TV show bot.

Search for titles, keep a watchlist, and get a weekly trending digest.
Use /help to see what I can do.`, name))

	if err := b.store.AddSubscriber(ctx, chatID); err != nil {
		b.log.Error("add subscriber", "chat_id", chatID, "error", err)
	}
}

func (b *Bot) handleHelp(chatID int64) {
	b.reply(chatID, `Here's what you can do:
/search <title> - search for movies and TV shows
/watchlist - view your watchlist
/remove <id> - remove an item from your watchlist
/trending [day|week] - see what's trending
/help - show this message`)
}

func (b *Bot) handleSearch(ctx context.Context, chatID int64, args string) {
	if args == "" {
		b.reply(chatID, "Usage: /search <title>")
		return
	}

	b.sessions.SetQuery(chatID, args)
	b.renderSearch(ctx, chatID, 0, args)
}

// renderSearch fetches and renders search results. A zero editMessageID
// sends a new message; otherwise the existing message is edited in place
// (the "back to results" path).
func (b *Bot) renderSearch(ctx context.Context, chatID int64, editMessageID int, query string) {
	movies, err := b.meta.SearchMovies(ctx, query)
	if err != nil {
		b.replyProviderError(chatID, "search movies", err)
		return
	}
	shows, err := b.meta.SearchShows(ctx, query)
	if err != nil {
		b.replyProviderError(chatID, "search shows", err)
		return
	}

	if len(movies) == 0 && len(shows) == 0 {
		b.sendOrEdit(chatID, editMessageID, fmt.Sprintf("No results for %q.", query), nil)
		return
	}

	markup := SearchKeyboard(movies, shows)
	b.sendOrEdit(chatID, editMessageID, fmt.Sprintf("Search results - %q:", query), &markup)
}

func (b *Bot) handleWatchlist(ctx context.Context, chatID, userID int64) {
	entries, err := b.store.ListEntries(ctx, userID)
	if err != nil {
		b.log.Error("list watchlist", "user_id", userID, "error", err)
		b.reply(chatID, "Could not load your watchlist. Please try again.")
		return
	}
	b.reply(chatID, FormatWatchlist(entries))
}

func (b *Bot) handleRemove(ctx context.Context, chatID, userID int64, args string) {
	id, err := ParseIDArg(args)
	if err != nil {
		b.reply(chatID, "Usage: /remove <id>")
		return
	}

	removed, err := b.store.RemoveEntry(ctx, userID, id)
	if err != nil {
		b.log.Error("remove watchlist entry", "user_id", userID, "item_id", id, "error", err)
		b.reply(chatID, "Could not update your watchlist. Please try again.")
		return
	}
	if removed {
		b.reply(chatID, "Item removed from your watchlist.")
	} else {
		b.reply(chatID, "That item is not in your watchlist.")
	}
}

func (b *Bot) handleTrending(ctx context.Context, chatID int64, args string) {
	window := ParseWindowArg(args)

	items, err := b.meta.Trending(ctx, window)
	if err != nil {
		b.replyProviderError(chatID, "fetch trending", err)
		return
	}

	movies := filterKind(items, model.KindMovie)
	shows := filterKind(items, model.KindTV)
	if len(movies) == 0 && len(shows) == 0 {
		b.reply(chatID, "Nothing is trending right now. Try again later.")
		return
	}

	digest := FormatTrendingDigest(time.Now(), window, movies, shows)
	if len(movies) > 0 && movies[0].PosterURL != "" {
		b.SendPhoto(chatID, movies[0].PosterURL, digest)
	} else {
		b.SendMarkdown(chatID, digest)
	}
}

// replyProviderError answers a user-facing "service unavailable" line for
// provider failures so they never crash the dispatch loop, and logs the
// underlying cause.
func (b *Bot) replyProviderError(chatID int64, op string, err error) {
	var perr *tmdb.ProviderError
	if errors.As(err, &perr) {
		b.log.Error(op, "chat_id", chatID, "status", perr.StatusCode, "error", err)
	} else {
		b.log.Error(op, "chat_id", chatID, "error", err)
	}
	b.reply(chatID, msgServiceUnavailable)
}

func filterKind(items []model.MediaItem, kind model.MediaKind) []model.MediaItem {
	var out []model.MediaItem
	for _, item := range items {
		if item.Kind == kind {
			out = append(out, item)
		}
	}
	return out
}
