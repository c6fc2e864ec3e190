package telegram

import (
	"strings"
	"time"

	coreconfig "github.com/m3rciful/copperbot/core/config"
	"github.com/m3rciful/copperbot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// MiddlewareOptions feeds DefaultMiddlewares.
type MiddlewareOptions struct {
	Config    *coreconfig.Config
	OnLimited tele.HandlerFunc
	// Observer receives per-update metrics; nil disables instrumentation.
	Observer      middleware.UpdateObserver
	OnRateLimited func()
	// Gate enables the gatekeeper when set.
	Gate   *middleware.Gate
	Locker *middleware.ChatLocker
}

// DefaultMiddlewares builds the shared chain: recover, logging, metrics,
// rate limit, per-chat serialisation and finally the gatekeeper.
func DefaultMiddlewares(opts MiddlewareOptions) []Middleware {
	mws := []Middleware{
		{Name: "recover", Use: middleware.RecoverMiddleware},
		{Name: "logger", Use: middleware.LoggerMiddleware},
	}
	if opts.Observer != nil {
		mws = append(mws, Middleware{Name: "metrics", Use: middleware.Instrument(opts.Observer)})
	}

	if cfg := opts.Config; cfg != nil {
		interval := time.Duration(cfg.RateLimit.IntervalMS) * time.Millisecond
		if interval > 0 {
			ex := make(map[string]struct{}, len(cfg.RateLimit.ExcludeUpdates))
			for _, t := range cfg.RateLimit.ExcludeUpdates {
				ex[strings.ToLower(t)] = struct{}{}
			}
			mws = append(mws, Middleware{
				Name: "rate_limit",
				Use: middleware.RateLimitMiddleware(middleware.RateLimitOptions{
					Interval:  interval,
					Burst:     cfg.RateLimit.Burst,
					Exclude:   ex,
					OnLimited: opts.OnLimited,
					Observe:   opts.OnRateLimited,
				}),
			})
		}
	}

	locker := opts.Locker
	if locker == nil {
		locker = middleware.NewChatLocker()
	}
	mws = append(mws, Middleware{Name: "chat_lock", Use: middleware.ChatLock(locker)})

	if opts.Gate != nil {
		mws = append(mws, Middleware{Name: "gatekeeper", Use: middleware.Gatekeeper(opts.Gate)})
	}
	return mws
}
