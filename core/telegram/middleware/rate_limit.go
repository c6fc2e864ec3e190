package middleware

import (
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/m3rciful/copperbot/core/logger"
	tghelpers "github.com/m3rciful/copperbot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

const (
	limiterIdleTTL   = 10 * time.Minute
	limiterPruneSize = 4096
)

// RateLimitOptions configures behaviour of the rate limit middleware.
type RateLimitOptions struct {
	// Interval is the refill period of one token.
	Interval time.Duration
	Burst    int
	// Exclude lists update kinds (see UpdateKind) that are never limited.
	Exclude   map[string]struct{}
	OnLimited tele.HandlerFunc
	// Observe is called for every dropped update.
	Observe func()
}

type userLimiter struct {
	lim  *rate.Limiter
	seen time.Time
}

// RateLimiter keeps one token bucket per user.
type RateLimiter struct {
	mu    sync.Mutex
	users map[int64]*userLimiter
	every rate.Limit
	burst int
	now   func() time.Time
}

// NewRateLimiter returns a limiter refilling one token per interval.
func NewRateLimiter(interval time.Duration, burst int) *RateLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &RateLimiter{
		users: make(map[int64]*userLimiter),
		every: rate.Every(interval),
		burst: burst,
		now:   time.Now,
	}
}

// Allow consumes one token for userID.
func (rl *RateLimiter) Allow(userID int64) bool {
	now := rl.now()
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if len(rl.users) >= limiterPruneSize {
		for id, u := range rl.users {
			if now.Sub(u.seen) > limiterIdleTTL {
				delete(rl.users, id)
			}
		}
	}

	u, ok := rl.users[userID]
	if !ok {
		u = &userLimiter{lim: rate.NewLimiter(rl.every, rl.burst)}
		rl.users[userID] = u
	}
	u.seen = now
	return u.lim.AllowN(now, 1)
}

// RateLimitMiddleware drops updates from users exceeding their token bucket.
func RateLimitMiddleware(opts RateLimitOptions) tele.MiddlewareFunc {
	if opts.Interval <= 0 {
		return func(next tele.HandlerFunc) tele.HandlerFunc { return next }
	}
	rl := NewRateLimiter(opts.Interval, opts.Burst)
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			user := c.Sender()
			if user == nil {
				return next(c)
			}
			if _, skip := opts.Exclude[UpdateKind(c)]; skip {
				return next(c)
			}
			if rl.Allow(user.ID) {
				return next(c)
			}

			logger.Warn(tghelpers.BuildContext(c), logger.CompTG, "tg.rate_limit",
				slog.String("status", "rejected"),
				slog.String("kind", UpdateKind(c)),
			)
			if opts.Observe != nil {
				opts.Observe()
			}
			if opts.OnLimited != nil {
				_ = opts.OnLimited(c)
			}
			return nil
		}
	}
}
