package telegram

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"

	coreconfig "github.com/m3rciful/copperbot/core/config"
	"github.com/m3rciful/copperbot/core/telegram/middleware"
)

func TestBuildPoller(t *testing.T) {
	lp, ok := BuildPoller(PollerOptions{RunMode: "longpoll"}).(*tele.LongPoller)
	require.True(t, ok)
	assert.Equal(t, 10*time.Second, lp.Timeout)

	cfg := &coreconfig.Config{
		Telegram: coreconfig.TelegramConfig{RunMode: "webhook", LongPollTimeoutSeconds: 3},
		Webhook:  coreconfig.WebhookConfig{Listen: "0.0.0.0", Port: 8443, URL: "https://bot.example/hook"},
	}
	wh, ok := BuildPoller(PollerOptionsFrom(cfg)).(*tele.Webhook)
	require.True(t, ok)
	assert.Equal(t, "0.0.0.0:8443", wh.Listen)
	assert.Equal(t, "https://bot.example/hook", wh.Endpoint.PublicURL)
}

func TestDefaultMiddlewaresOrder(t *testing.T) {
	names := func(mws []Middleware) []string {
		out := make([]string, len(mws))
		for i, m := range mws {
			out[i] = m.Name
		}
		return out
	}

	assert.Equal(t, []string{"recover", "logger", "chat_lock"}, names(DefaultMiddlewares(MiddlewareOptions{})))

	cfg := &coreconfig.Config{RateLimit: coreconfig.RateLimitConfig{IntervalMS: 500, Burst: 2}}
	full := DefaultMiddlewares(MiddlewareOptions{
		Config:   cfg,
		Observer: nopObserver{},
		Gate:     &middleware.Gate{},
	})
	assert.Equal(t, []string{"recover", "logger", "metrics", "rate_limit", "chat_lock", "gatekeeper"}, names(full))
}

type nopObserver struct{}

func (nopObserver) ObserveUpdate(string, error, time.Duration) {}
