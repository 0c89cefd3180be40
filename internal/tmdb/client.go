// Package tmdb is a client for The Movie Database HTTP API with bounded
// memoization of recent calls.
package tmdb

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	lru "github.com/hashicorp/golang-lru/v2"

	"movie_bot/internal/model"
)

const (
	baseURL      = "https://api.themoviedb.org/3"
	imageBaseURL = "https://image.tmdb.org/t/p/w500"

	searchCacheSize = 32
	detailCacheSize = 128
)

// Trending time windows accepted by the provider.
const (
	WindowDay  = "day"
	WindowWeek = "week"
)

// ProviderError reports a non-success HTTP status from the provider.
type ProviderError struct {
	StatusCode int
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider returned status %d", e.StatusCode)
}

// HTTPClient is the interface for performing HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client performs metadata lookups against the provider. Identical calls
// within the cache bounds are served from memory without a network request.
type Client struct {
	apiKey   string
	language string
	client   HTTPClient

	// Search and trending share one cache; detail lookups get a larger one.
	listCache   *lru.Cache[string, []model.MediaItem]
	detailCache *lru.Cache[string, model.MediaItem]
}

// New creates a Client authenticated with the given bearer token. The
// language is passed to every provider call.
func New(apiKey, language string, client HTTPClient) (*Client, error) {
	listCache, err := lru.New[string, []model.MediaItem](searchCacheSize)
	if err != nil {
		return nil, fmt.Errorf("create list cache: %w", err)
	}
	detailCache, err := lru.New[string, model.MediaItem](detailCacheSize)
	if err != nil {
		return nil, fmt.Errorf("create detail cache: %w", err)
	}
	return &Client{
		apiKey:      apiKey,
		language:    language,
		client:      client,
		listCache:   listCache,
		detailCache: detailCache,
	}, nil
}

// mediaPayload covers the fields this bot uses from every list and detail
// endpoint. Movies carry title/release_date, shows carry name/first_air_date.
type mediaPayload struct {
	ID           int64   `json:"id"`
	Title        string  `json:"title"`
	Name         string  `json:"name"`
	ReleaseDate  string  `json:"release_date"`
	FirstAirDate string  `json:"first_air_date"`
	VoteAverage  float64 `json:"vote_average"`
	Popularity   float64 `json:"popularity"`
	Overview     string  `json:"overview"`
	PosterPath   string  `json:"poster_path"`
}

type listResponse struct {
	Results []mediaPayload `json:"results"`
}

func (p mediaPayload) toItem(kind model.MediaKind) model.MediaItem {
	item := model.MediaItem{
		ID:          p.ID,
		Kind:        kind,
		VoteAverage: p.VoteAverage,
		Popularity:  p.Popularity,
		Overview:    p.Overview,
	}
	if kind == model.KindMovie {
		item.Title = p.Title
		item.Date = p.ReleaseDate
	} else {
		item.Title = p.Name
		item.Date = p.FirstAirDate
	}
	if p.PosterPath != "" {
		item.PosterURL = imageBaseURL + p.PosterPath
	}
	return item
}

// SearchMovies returns page-1 movie matches for a free-text query.
func (c *Client) SearchMovies(ctx context.Context, query string) ([]model.MediaItem, error) {
	return c.search(ctx, model.KindMovie, query)
}

// SearchShows returns page-1 TV show matches for a free-text query.
func (c *Client) SearchShows(ctx context.Context, query string) ([]model.MediaItem, error) {
	return c.search(ctx, model.KindTV, query)
}

func (c *Client) search(ctx context.Context, kind model.MediaKind, query string) ([]model.MediaItem, error) {
	key := fmt.Sprintf("search:%s:%s:%s", kind, c.language, query)
	if items, ok := c.listCache.Get(key); ok {
		return items, nil
	}

	params := url.Values{}
	params.Set("query", query)
	params.Set("page", "1")

	var resp listResponse
	if err := c.get(ctx, "/search/"+string(kind), params, &resp); err != nil {
		return nil, err
	}

	items := make([]model.MediaItem, 0, len(resp.Results))
	for _, p := range resp.Results {
		items = append(items, p.toItem(kind))
	}
	c.listCache.Add(key, items)
	return items, nil
}

// MovieDetails returns the detail record for a single movie.
func (c *Client) MovieDetails(ctx context.Context, id int64) (model.MediaItem, error) {
	return c.details(ctx, model.KindMovie, id)
}

// ShowDetails returns the detail record for a single TV show.
func (c *Client) ShowDetails(ctx context.Context, id int64) (model.MediaItem, error) {
	return c.details(ctx, model.KindTV, id)
}

// Details dispatches to the detail endpoint matching kind.
func (c *Client) Details(ctx context.Context, kind model.MediaKind, id int64) (model.MediaItem, error) {
	return c.details(ctx, kind, id)
}

func (c *Client) details(ctx context.Context, kind model.MediaKind, id int64) (model.MediaItem, error) {
	key := fmt.Sprintf("detail:%s:%s:%d", kind, c.language, id)
	if item, ok := c.detailCache.Get(key); ok {
		return item, nil
	}

	params := url.Values{}
	if kind == model.KindMovie {
		params.Set("append_to_response", "credits,reviews")
	}

	var payload mediaPayload
	if err := c.get(ctx, fmt.Sprintf("/%s/%d", kind, id), params, &payload); err != nil {
		return model.MediaItem{}, err
	}

	item := payload.toItem(kind)
	c.detailCache.Add(key, item)
	return item, nil
}

// TrendingMovies returns the ranked trending movies for a time window.
func (c *Client) TrendingMovies(ctx context.Context, window string) ([]model.MediaItem, error) {
	return c.trending(ctx, model.KindMovie, window)
}

// TrendingShows returns the ranked trending TV shows for a time window.
func (c *Client) TrendingShows(ctx context.Context, window string) ([]model.MediaItem, error) {
	return c.trending(ctx, model.KindTV, window)
}

// Trending returns trending movies followed by trending shows for a time
// window, each item tagged with its kind.
func (c *Client) Trending(ctx context.Context, window string) ([]model.MediaItem, error) {
	movies, err := c.trending(ctx, model.KindMovie, window)
	if err != nil {
		return nil, err
	}
	shows, err := c.trending(ctx, model.KindTV, window)
	if err != nil {
		return nil, err
	}
	return append(movies, shows...), nil
}

func (c *Client) trending(ctx context.Context, kind model.MediaKind, window string) ([]model.MediaItem, error) {
	key := fmt.Sprintf("trending:%s:%s:%s", kind, c.language, window)
	if items, ok := c.listCache.Get(key); ok {
		return items, nil
	}

	var resp listResponse
	if err := c.get(ctx, fmt.Sprintf("/trending/%s/%s", kind, window), nil, &resp); err != nil {
		return nil, err
	}

	items := make([]model.MediaItem, 0, len(resp.Results))
	for _, p := range resp.Results {
		items = append(items, p.toItem(kind))
	}
	c.listCache.Add(key, items)
	return items, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values, v any) error {
	if params == nil {
		params = url.Values{}
	}
	params.Set("language", c.language)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("http get %s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &ProviderError{StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 5*1024*1024))
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
