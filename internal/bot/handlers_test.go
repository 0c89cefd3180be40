package bot

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"movie_bot/internal/model"
	"movie_bot/internal/storage"
	"movie_bot/internal/tmdb"
)

// --- mocks ---

type mockAPI struct {
	mu        sync.Mutex
	sent      []tgbotapi.Chattable
	requested []tgbotapi.Chattable
	editErr   error
}

func (m *mockAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.editErr != nil {
		if _, ok := c.(tgbotapi.EditMessageTextConfig); ok {
			return tgbotapi.Message{}, m.editErr
		}
	}
	m.sent = append(m.sent, c)
	return tgbotapi.Message{}, nil
}

func (m *mockAPI) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requested = append(m.requested, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (m *mockAPI) GetUpdatesChan(_ tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return make(tgbotapi.UpdatesChannel)
}

func (m *mockAPI) StopReceivingUpdates() {}

func (m *mockAPI) messages() []tgbotapi.MessageConfig {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []tgbotapi.MessageConfig
	for _, c := range m.sent {
		if msg, ok := c.(tgbotapi.MessageConfig); ok {
			out = append(out, msg)
		}
	}
	return out
}

func (m *mockAPI) lastText() string {
	msgs := m.messages()
	if len(msgs) == 0 {
		return ""
	}
	return msgs[len(msgs)-1].Text
}

func (m *mockAPI) photos() []tgbotapi.PhotoConfig {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []tgbotapi.PhotoConfig
	for _, c := range m.sent {
		if p, ok := c.(tgbotapi.PhotoConfig); ok {
			out = append(out, p)
		}
	}
	return out
}

func (m *mockAPI) edits() []tgbotapi.EditMessageTextConfig {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []tgbotapi.EditMessageTextConfig
	for _, c := range m.sent {
		if e, ok := c.(tgbotapi.EditMessageTextConfig); ok {
			out = append(out, e)
		}
	}
	return out
}

func (m *mockAPI) markupEdits() []tgbotapi.EditMessageReplyMarkupConfig {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []tgbotapi.EditMessageReplyMarkupConfig
	for _, c := range m.sent {
		if e, ok := c.(tgbotapi.EditMessageReplyMarkupConfig); ok {
			out = append(out, e)
		}
	}
	return out
}

func (m *mockAPI) deletes() []tgbotapi.DeleteMessageConfig {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []tgbotapi.DeleteMessageConfig
	for _, c := range m.requested {
		if d, ok := c.(tgbotapi.DeleteMessageConfig); ok {
			out = append(out, d)
		}
	}
	return out
}

// mockTransport serves canned TMDB bodies by URL path prefix.
type mockTransport struct {
	responses  map[string]string
	statusCode int
}

func (m *mockTransport) Do(req *http.Request) (*http.Response, error) {
	status := m.statusCode
	if status == 0 {
		status = 200
	}
	body := `{"results":[]}`
	for prefix, b := range m.responses {
		if strings.HasPrefix(req.URL.Path, prefix) {
			body = b
			break
		}
	}
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(bytes.NewBufferString(body)),
	}, nil
}

// --- fixtures ---

const (
	movieSearchBody = `{"results":[
		{"id":550,"title":"Fight Club","release_date":"1999-10-15","vote_average":8.4,"popularity":61.4,"overview":"An insomniac office worker...","poster_path":"/fight.jpg"},
		{"id":551,"title":"Fight Club Extras","release_date":"2004-06-01","vote_average":6.1,"popularity":5.5,"overview":"","poster_path":null}
	]}`
	showSearchBody = `{"results":[
		{"id":1399,"name":"Game of Thrones","first_air_date":"2011-04-17","vote_average":8.5,"popularity":300.1,"overview":"Seven noble families...","poster_path":"/got.jpg"}
	]}`
	movieDetailBody = `{"id":550,"title":"Fight Club","release_date":"1999-10-15","vote_average":8.4,"popularity":61.4,"overview":"An insomniac office worker...","poster_path":"/fight.jpg"}`
	plainMovieBody  = `{"id":551,"title":"Fight Club Extras","release_date":"2004-06-01","vote_average":6.1,"popularity":5.5,"overview":"Bonus material.","poster_path":null}`
)

// --- helpers ---

func newTestBot(t *testing.T, responses map[string]string) (*Bot, *mockAPI, *storage.SQLite) {
	t.Helper()
	return newTestBotStatus(t, responses, 0)
}

func newTestBotStatus(t *testing.T, responses map[string]string, statusCode int) (*Bot, *mockAPI, *storage.SQLite) {
	t.Helper()
	store, err := storage.NewSQLite(":memory:")
	if err != nil {
		t.Fatalf("new sqlite: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	meta, err := tmdb.New("test-key", "en-US", &mockTransport{responses: responses, statusCode: statusCode})
	if err != nil {
		t.Fatalf("new tmdb client: %v", err)
	}

	api := &mockAPI{}
	b := &Bot{
		api:      api,
		store:    store,
		meta:     meta,
		sessions: newSessionStore(sessionTTL),
		log:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	return b, api, store
}

func command(chatID, userID int64) *tgbotapi.Message {
	return &tgbotapi.Message{
		MessageID: 1,
		Chat:      &tgbotapi.Chat{ID: chatID},
		From:      &tgbotapi.User{ID: userID, FirstName: "Alice"},
	}
}

func callback(chatID, userID int64, messageID int, data string) *tgbotapi.CallbackQuery {
	return &tgbotapi.CallbackQuery{
		ID:      "cb1",
		Data:    data,
		From:    &tgbotapi.User{ID: userID},
		Message: &tgbotapi.Message{MessageID: messageID, Chat: &tgbotapi.Chat{ID: chatID}},
	}
}

func requireContains(t *testing.T, got, want string) {
	t.Helper()
	if !strings.Contains(got, want) {
		t.Errorf("reply missing %q, got:\n%s", want, got)
	}
}

// --- command handler tests ---

func TestHandleStart(t *testing.T) {
	ctx := context.Background()
	b, api, store := newTestBot(t, nil)

	b.handleStart(ctx, command(100, 7))
	requireContains(t, api.lastText(), "Hi Alice")

	subs, err := store.ListSubscribers(ctx)
	if err != nil {
		t.Fatalf("list subscribers: %v", err)
	}
	if len(subs) != 1 || subs[0] != 100 {
		t.Errorf("subscribers = %v, want [100]", subs)
	}

	// A repeated /start stays idempotent.
	b.handleStart(ctx, command(100, 7))
	subs, _ = store.ListSubscribers(ctx)
	if len(subs) != 1 {
		t.Errorf("expected 1 subscriber after repeat, got %d", len(subs))
	}
}

func TestHandleHelp(t *testing.T) {
	b, api, _ := newTestBot(t, nil)
	b.handleHelp(100)
	requireContains(t, api.lastText(), "/search")
	requireContains(t, api.lastText(), "/trending")
	requireContains(t, api.lastText(), "/watchlist")
}

func TestHandleSearch(t *testing.T) {
	ctx := context.Background()
	responses := map[string]string{
		"/3/search/movie": movieSearchBody,
		"/3/search/tv":    showSearchBody,
	}

	t.Run("empty args", func(t *testing.T) {
		b, api, _ := newTestBot(t, responses)
		b.handleSearch(ctx, 100, "")
		requireContains(t, api.lastText(), "Usage: /search")
	})

	t.Run("success renders keyboard and stores session", func(t *testing.T) {
		b, api, _ := newTestBot(t, responses)
		b.handleSearch(ctx, 100, "fight club")

		msgs := api.messages()
		if len(msgs) != 1 {
			t.Fatalf("expected 1 message, got %d", len(msgs))
		}
		requireContains(t, msgs[0].Text, `Search results - "fight club":`)

		kb, ok := msgs[0].ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
		if !ok {
			t.Fatal("expected inline keyboard markup")
		}
		// Header + 2 movies + header + 1 show.
		if len(kb.InlineKeyboard) != 5 {
			t.Errorf("expected 5 keyboard rows, got %d", len(kb.InlineKeyboard))
		}

		if q, ok := b.sessions.Query(100); !ok || q != "fight club" {
			t.Errorf("session query = (%q, %v), want (fight club, true)", q, ok)
		}
	})

	t.Run("no results", func(t *testing.T) {
		b, api, _ := newTestBot(t, nil)
		b.handleSearch(ctx, 100, "zzzz")
		requireContains(t, api.lastText(), "No results")
	})

	t.Run("provider outage", func(t *testing.T) {
		b, api, _ := newTestBotStatus(t, nil, 503)
		b.handleSearch(ctx, 100, "fight club")
		requireContains(t, api.lastText(), "unavailable")
	})
}

func TestHandleWatchlist(t *testing.T) {
	ctx := context.Background()
	b, api, store := newTestBot(t, nil)

	b.handleWatchlist(ctx, 100, 7)
	requireContains(t, api.lastText(), "empty")

	if _, err := store.AddEntry(ctx, 7, 550, model.KindMovie, "Fight Club"); err != nil {
		t.Fatalf("seed entry: %v", err)
	}

	b.handleWatchlist(ctx, 100, 7)
	requireContains(t, api.lastText(), "- Fight Club (movie) - ID: 550")
}

func TestHandleRemove(t *testing.T) {
	ctx := context.Background()
	b, api, store := newTestBot(t, nil)

	b.handleRemove(ctx, 100, 7, "")
	requireContains(t, api.lastText(), "Usage: /remove")

	b.handleRemove(ctx, 100, 7, "550")
	requireContains(t, api.lastText(), "not in your watchlist")

	if _, err := store.AddEntry(ctx, 7, 550, model.KindMovie, "Fight Club"); err != nil {
		t.Fatalf("seed entry: %v", err)
	}

	b.handleRemove(ctx, 100, 7, "550")
	requireContains(t, api.lastText(), "removed")

	b.handleRemove(ctx, 100, 7, "550")
	requireContains(t, api.lastText(), "not in your watchlist")
}

func TestHandleTrending(t *testing.T) {
	ctx := context.Background()

	t.Run("top movie with poster sends photo", func(t *testing.T) {
		b, api, _ := newTestBot(t, map[string]string{
			"/3/trending/movie/week": movieSearchBody,
			"/3/trending/tv/week":    showSearchBody,
		})
		b.handleTrending(ctx, 100, "")

		photos := api.photos()
		if len(photos) != 1 {
			t.Fatalf("expected 1 photo, got %d (messages: %v)", len(photos), api.messages())
		}
		requireContains(t, photos[0].Caption, "Trending Movies")
		requireContains(t, photos[0].Caption, "[Fight Club] rating: 8.4")
	})

	t.Run("top movie without poster sends text", func(t *testing.T) {
		b, api, _ := newTestBot(t, map[string]string{
			"/3/trending/movie/week": `{"results":[{"id":551,"title":"No Poster","vote_average":6.1,"poster_path":null}]}`,
			"/3/trending/tv/week":    showSearchBody,
		})
		b.handleTrending(ctx, 100, "week")

		if len(api.photos()) != 0 {
			t.Fatal("no photo should be sent when the top movie has no poster")
		}
		msgs := api.messages()
		if len(msgs) != 1 {
			t.Fatalf("expected 1 message, got %d", len(msgs))
		}
		if msgs[0].ParseMode != tgbotapi.ModeMarkdown {
			t.Errorf("parse mode = %q, want Markdown", msgs[0].ParseMode)
		}
		requireContains(t, msgs[0].Text, "[No Poster] rating: 6.1")
	})

	t.Run("day window", func(t *testing.T) {
		b, api, _ := newTestBot(t, map[string]string{
			"/3/trending/movie/day": `{"results":[{"id":1,"title":"Day Movie","vote_average":5.0,"poster_path":null}]}`,
		})
		b.handleTrending(ctx, 100, "day")
		requireContains(t, api.lastText(), "*Trending:* Day")
	})

	t.Run("provider outage", func(t *testing.T) {
		b, api, _ := newTestBotStatus(t, nil, 500)
		b.handleTrending(ctx, 100, "")
		requireContains(t, api.lastText(), "unavailable")
	})
}

// --- callback tests ---

func TestItemDetailsCallback(t *testing.T) {
	ctx := context.Background()

	t.Run("with poster replaces list with photo card", func(t *testing.T) {
		b, api, _ := newTestBot(t, map[string]string{"/3/movie/550": movieDetailBody})
		b.handleCallback(ctx, callback(100, 7, 42, "movie_550"))

		photos := api.photos()
		if len(photos) != 1 {
			t.Fatalf("expected 1 photo, got %d", len(photos))
		}
		requireContains(t, photos[0].Caption, "Movie: Fight Club")

		deletes := api.deletes()
		if len(deletes) != 1 || deletes[0].MessageID != 42 {
			t.Errorf("expected the results message (42) deleted, got %v", deletes)
		}
	})

	t.Run("without poster edits in place", func(t *testing.T) {
		b, api, _ := newTestBot(t, map[string]string{"/3/movie/551": plainMovieBody})
		b.handleCallback(ctx, callback(100, 7, 42, "movie_551"))

		edits := api.edits()
		if len(edits) != 1 {
			t.Fatalf("expected 1 edit, got %d", len(edits))
		}
		if edits[0].MessageID != 42 {
			t.Errorf("edited message = %d, want 42", edits[0].MessageID)
		}
		requireContains(t, edits[0].Text, "Movie: Fight Club Extras")
		if len(api.deletes()) != 0 {
			t.Error("text edit must not delete the message")
		}
	})

	t.Run("provider outage", func(t *testing.T) {
		b, api, _ := newTestBotStatus(t, nil, 502)
		b.handleCallback(ctx, callback(100, 7, 42, "movie_550"))
		requireContains(t, api.lastText(), "unavailable")
	})
}

func TestAddToWatchlistCallback(t *testing.T) {
	ctx := context.Background()
	b, api, store := newTestBot(t, map[string]string{"/3/movie/550": movieDetailBody})

	b.handleCallback(ctx, callback(100, 7, 42, "add_movie_550"))
	requireContains(t, api.lastText(), "Added Fight Club to your watchlist!")

	entries, err := store.ListEntries(ctx, 7)
	if err != nil {
		t.Fatalf("list entries: %v", err)
	}
	if len(entries) != 1 || entries[0].ItemID != 550 || entries[0].Kind != model.KindMovie {
		t.Fatalf("unexpected entries: %+v", entries)
	}

	markups := api.markupEdits()
	if len(markups) != 1 {
		t.Fatalf("expected 1 keyboard update, got %d", len(markups))
	}

	// Pressing add again reports the duplicate without a second row.
	b.handleCallback(ctx, callback(100, 7, 42, "add_movie_550"))
	requireContains(t, api.lastText(), "already in your watchlist")

	entries, _ = store.ListEntries(ctx, 7)
	if len(entries) != 1 {
		t.Errorf("expected 1 entry after duplicate add, got %d", len(entries))
	}
}

func TestBackToSearchCallback(t *testing.T) {
	ctx := context.Background()
	responses := map[string]string{
		"/3/search/movie": movieSearchBody,
		"/3/search/tv":    showSearchBody,
	}

	t.Run("no session", func(t *testing.T) {
		b, api, _ := newTestBot(t, responses)
		b.handleCallback(ctx, callback(100, 7, 42, "back_to_search"))
		requireContains(t, api.lastText(), "expired")
	})

	t.Run("re-renders remembered query in place", func(t *testing.T) {
		b, api, _ := newTestBot(t, responses)
		b.sessions.SetQuery(100, "fight club")

		b.handleCallback(ctx, callback(100, 7, 42, "back_to_search"))

		edits := api.edits()
		if len(edits) != 1 {
			t.Fatalf("expected 1 edit, got %d", len(edits))
		}
		if edits[0].MessageID != 42 {
			t.Errorf("edited message = %d, want 42", edits[0].MessageID)
		}
		requireContains(t, edits[0].Text, `Search results - "fight club":`)
	})

	t.Run("photo card falls back to a new message", func(t *testing.T) {
		b, api, _ := newTestBot(t, responses)
		b.sessions.SetQuery(100, "fight club")
		api.editErr = errors.New("Bad Request: there is no text in the message to edit")

		b.handleCallback(ctx, callback(100, 7, 42, "back_to_search"))

		msgs := api.messages()
		if len(msgs) != 1 {
			t.Fatalf("expected fallback message, got %d", len(msgs))
		}
		requireContains(t, msgs[0].Text, "Search results")
	})

	t.Run("unchanged content is swallowed", func(t *testing.T) {
		b, api, _ := newTestBot(t, responses)
		b.sessions.SetQuery(100, "fight club")
		api.editErr = errors.New("Bad Request: message is not modified")

		b.handleCallback(ctx, callback(100, 7, 42, "back_to_search"))

		if len(api.messages()) != 0 {
			t.Error("not-modified edit must not trigger a fallback send")
		}
	})
}

func TestCallbackIgnoresNoise(t *testing.T) {
	ctx := context.Background()
	b, api, _ := newTestBot(t, nil)

	for _, data := range []string{"noop", "header_movies", "garbage", "book_12"} {
		b.handleCallback(ctx, callback(100, 7, 42, data))
	}

	if n := len(api.messages()); n != 0 {
		t.Errorf("expected no replies to noise callbacks, got %d", n)
	}
}
