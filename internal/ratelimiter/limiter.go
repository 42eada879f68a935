// Package ratelimiter paces outgoing chat replies and bounds in-flight work
// per chat.
package ratelimiter

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	privateChatRate = time.Second
	groupChatRate   = 3 * time.Second
)

// Limiter spaces out sends to one chat. Group chats (negative IDs) are
// paced slower than private ones.
type Limiter struct {
	privateRate time.Duration
	groupRate   time.Duration
	byChat      map[int64]*rate.Limiter
	mu          sync.Mutex
	log         *slog.Logger
}

func New(log *slog.Logger) *Limiter {
	return NewWithRates(privateChatRate, groupChatRate, log)
}

func NewWithRates(privateRate time.Duration, groupRate time.Duration, log *slog.Logger) *Limiter {
	return &Limiter{
		privateRate: privateRate,
		groupRate:   groupRate,
		byChat:      make(map[int64]*rate.Limiter),
		log:         log,
	}
}

// Wait blocks until chatID may receive the next message or ctx is done.
func (l *Limiter) Wait(ctx context.Context, chatID int64) error {
	r := l.limiter(chatID).Reserve()

	delay := r.Delay()
	if delay <= 0 {
		return nil
	}

	l.log.DebugContext(ctx, "Rate limiting message",
		"chatID", chatID,
		"delay", delay)

	t := time.NewTimer(delay)
	defer t.Stop()

	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		r.Cancel()
		return ctx.Err()
	}
}

func (l *Limiter) limiter(chatID int64) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	lim, ok := l.byChat[chatID]
	if !ok {
		lim = rate.NewLimiter(rate.Every(l.interval(chatID)), 1)
		l.byChat[chatID] = lim
	}

	return lim
}

func (l *Limiter) interval(chatID int64) time.Duration {
	if chatID < 0 {
		return l.groupRate
	}
	return l.privateRate
}
