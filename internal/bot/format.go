package bot

import (
	"fmt"
	"sort"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"movie_bot/internal/model"
)

const (
	maxListedPerKind = 5
	overviewLimit    = 200

	unratedLabel = "no rating yet"
)

// Year returns the display year of a provider date string (the first four
// characters of YYYY-MM-DD). Shorter strings are returned as-is.
func Year(date string) string {
	if len(date) < 4 {
		return date
	}
	return date[:4]
}

// RatingLabel renders an average rating for a button label. A zero or
// missing rating renders the unrated marker.
func RatingLabel(avg float64) string {
	if avg == 0 {
		return unratedLabel
	}
	return fmt.Sprintf("⭐ %.1f", avg)
}

func kindIcon(kind model.MediaKind) string {
	if kind == model.KindMovie {
		return "🎬"
	}
	return "📺"
}

func kindLabel(kind model.MediaKind) string {
	if kind == model.KindMovie {
		return "movie"
	}
	return "TV show"
}

// topByPopularity returns up to n items sorted by descending popularity.
// The input is not modified.
func topByPopularity(items []model.MediaItem, n int) []model.MediaItem {
	sorted := make([]model.MediaItem, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Popularity > sorted[j].Popularity
	})
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}

// SearchKeyboard builds the inline keyboard for search results: a header row
// per kind followed by up to five result rows, each kind sorted by
// descending popularity.
func SearchKeyboard(movies, shows []model.MediaItem) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton

	sections := []struct {
		header string
		items  []model.MediaItem
	}{
		{header: "Movies", items: movies},
		{header: "TV shows", items: shows},
	}

	for _, sec := range sections {
		if len(sec.items) == 0 {
			continue
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(sec.header, "noop"),
		))
		for _, item := range topByPopularity(sec.items, maxListedPerKind) {
			label := fmt.Sprintf("%s %s (%s) - %s",
				kindIcon(item.Kind), item.Title, Year(item.Date), RatingLabel(item.VoteAverage))
			token := fmt.Sprintf("%s_%d", item.Kind, item.ID)
			rows = append(rows, tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData(label, token),
			))
		}
	}

	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// DetailKeyboard builds the two-button row under an item detail view.
func DetailKeyboard(kind model.MediaKind, id int64, inWatchlist bool) tgbotapi.InlineKeyboardMarkup {
	addButton := tgbotapi.NewInlineKeyboardButtonData(
		"Add to watchlist", fmt.Sprintf("add_%s_%d", kind, id))
	if inWatchlist {
		addButton = tgbotapi.NewInlineKeyboardButtonData("✓ In watchlist", "noop")
	}
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Back to results", "back_to_search"),
			addButton,
		),
	)
}

// FormatItemDetail renders the detail text for a movie or show.
func FormatItemDetail(item model.MediaItem) string {
	var b strings.Builder
	if item.Kind == model.KindMovie {
		fmt.Fprintf(&b, "Movie: %s\n", item.Title)
		fmt.Fprintf(&b, "Released: %s\n", item.Date)
	} else {
		fmt.Fprintf(&b, "TV show: %s\n", item.Title)
		fmt.Fprintf(&b, "First aired: %s\n", item.Date)
	}
	fmt.Fprintf(&b, "Rating: %.1f/10\n\n", item.VoteAverage)
	fmt.Fprintf(&b, "Overview: %s", truncate(item.Overview, overviewLimit))
	return b.String()
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}

// FormatWatchlist renders a user's watchlist as one line per entry.
func FormatWatchlist(entries []model.WatchlistEntry) string {
	if len(entries) == 0 {
		return "Your watchlist is empty. Use /search to find something to watch."
	}
	var b strings.Builder
	b.WriteString("Your watchlist:\n\n")
	for _, e := range entries {
		fmt.Fprintf(&b, "- %s (%s) - ID: %d\n", e.Title, e.Kind, e.ItemID)
	}
	b.WriteString("\nTo remove an item, use /remove <ID>")
	return b.String()
}

// FormatTrendingDigest renders the trending digest message in Markdown.
// Items are listed in provider rank order, up to five per kind.
func FormatTrendingDigest(date time.Time, window string, movies, shows []model.MediaItem) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📅 *Date:* %s\n", date.Format("2006-01-02"))
	fmt.Fprintf(&b, "📊 *Trending:* %s\n\n", capitalize(window))

	b.WriteString("🎬 *Trending Movies:*\n")
	for i, m := range movies {
		if i >= maxListedPerKind {
			break
		}
		fmt.Fprintf(&b, "%d. [%s] rating: %.1f\n", i+1, m.Title, m.VoteAverage)
	}

	b.WriteString("\n📺 *Trending TV Shows:*\n")
	for i, s := range shows {
		if i >= maxListedPerKind {
			break
		}
		fmt.Fprintf(&b, "%d. [%s] rating: %.1f\n", i+1, s.Title, s.VoteAverage)
	}

	return b.String()
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
