package middleware

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"
)

func TestRateLimiterRefills(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	rl := NewRateLimiter(time.Second, 2)
	rl.now = func() time.Time { return now }

	assert.True(t, rl.Allow(1))
	assert.True(t, rl.Allow(1))
	assert.False(t, rl.Allow(1))
	assert.True(t, rl.Allow(2), "buckets are per user")

	now = now.Add(time.Second)
	assert.True(t, rl.Allow(1))
	assert.False(t, rl.Allow(1))
}

func TestRateLimitMiddlewareExclusions(t *testing.T) {
	bot, err := tele.NewBot(tele.Settings{Offline: true})
	require.NoError(t, err)

	limited := 0
	mw := RateLimitMiddleware(RateLimitOptions{
		Interval: time.Hour,
		Burst:    1,
		Exclude:  map[string]struct{}{KindCallback: {}},
		Observe:  func() { limited++ },
	})
	calls := 0
	h := mw(func(tele.Context) error { calls++; return nil })

	user := &tele.User{ID: 5}
	msg := bot.NewContext(tele.Update{Message: &tele.Message{Text: "hi", Sender: user, Chat: &tele.Chat{ID: 5}}})
	cb := bot.NewContext(tele.Update{Callback: &tele.Callback{Sender: user, Data: "\fmenu|x"}})

	require.NoError(t, h(msg))
	require.NoError(t, h(msg))
	require.NoError(t, h(cb))
	require.NoError(t, h(cb))

	assert.Equal(t, 3, calls)
	assert.Equal(t, 1, limited)
}

func TestRateLimitDisabled(t *testing.T) {
	calls := 0
	h := RateLimitMiddleware(RateLimitOptions{})(func(tele.Context) error { calls++; return nil })
	bot, err := tele.NewBot(tele.Settings{Offline: true})
	require.NoError(t, err)
	c := bot.NewContext(tele.Update{Message: &tele.Message{Sender: &tele.User{ID: 1}}})
	for range 3 {
		require.NoError(t, h(c))
	}
	assert.Equal(t, 3, calls)
}
