// Package scheduler delivers the weekly trending digest to subscribers.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"movie_bot/internal/bot"
	"movie_bot/internal/config"
	"movie_bot/internal/model"
	"movie_bot/internal/storage"
	"movie_bot/internal/tmdb"
)

// Sender is the interface for delivering digest messages.
type Sender interface {
	SendMarkdown(chatID int64, text string)
	SendPhoto(chatID int64, photoURL, caption string)
}

// Scheduler fires once a week at the configured day and time, rendering the
// weekly trending digest and pushing it to every subscriber.
type Scheduler struct {
	store  storage.Storage
	meta   *tmdb.Client
	sender Sender
	log    *slog.Logger

	day    time.Weekday
	hour   int
	minute int
	now    func() time.Time
}

// New creates a Scheduler using the digest schedule from cfg.
func New(store storage.Storage, meta *tmdb.Client, sender Sender, cfg *config.Config, log *slog.Logger) *Scheduler {
	return &Scheduler{
		store:  store,
		meta:   meta,
		sender: sender,
		log:    log,
		day:    cfg.DigestDay,
		hour:   cfg.DigestHour,
		minute: cfg.DigestMinute,
		now:    time.Now,
	}
}

// Run blocks until ctx is cancelled, firing the digest at each scheduled time.
func (s *Scheduler) Run(ctx context.Context) {
	for {
		next := s.nextRun(s.now())
		s.log.Info("digest scheduled", "at", next.Format(time.RFC3339))

		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			s.Broadcast(ctx)
		}
	}
}

// nextRun returns the next occurrence of the configured weekday and time
// strictly after from.
func (s *Scheduler) nextRun(from time.Time) time.Time {
	next := time.Date(from.Year(), from.Month(), from.Day(), s.hour, s.minute, 0, 0, from.Location())
	days := (int(s.day) - int(from.Weekday()) + 7) % 7
	next = next.AddDate(0, 0, days)
	if !next.After(from) {
		next = next.AddDate(0, 0, 7)
	}
	return next
}

// Broadcast renders the weekly digest and delivers it to every subscriber.
// A failed delivery is logged and the loop continues; sends are paced to
// stay under Telegram's rate limit.
func (s *Scheduler) Broadcast(ctx context.Context) {
	items, err := s.meta.Trending(ctx, tmdb.WindowWeek)
	if err != nil {
		s.log.Error("fetch weekly trending", "error", err)
		return
	}

	var movies, shows []model.MediaItem
	for _, item := range items {
		if item.Kind == model.KindMovie {
			movies = append(movies, item)
		} else {
			shows = append(shows, item)
		}
	}
	if len(movies) == 0 && len(shows) == 0 {
		s.log.Warn("no trending items, skipping digest")
		return
	}

	digest := bot.FormatTrendingDigest(s.now(), tmdb.WindowWeek, movies, shows)

	posterURL := ""
	if len(movies) > 0 {
		posterURL = movies[0].PosterURL
	}

	subscribers, err := s.store.ListSubscribers(ctx)
	if err != nil {
		s.log.Error("list subscribers", "error", err)
		return
	}

	sent := 0
	for _, chatID := range subscribers {
		if ctx.Err() != nil {
			return
		}
		if posterURL != "" {
			s.sender.SendPhoto(chatID, posterURL, digest)
		} else {
			s.sender.SendMarkdown(chatID, digest)
		}
		sent++

		// Rate limit: ~20 messages/sec max for Telegram
		time.Sleep(50 * time.Millisecond)
	}

	s.log.Info("digest delivered", "subscribers", sent)
}
