package sender

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestDispatcherPreservesPerKeyOrder(t *testing.T) {
	d := NewDispatcher(Options{Workers: 4, QueueSize: 128})

	var mu sync.Mutex
	got := map[int64][]int{}
	for i := range 50 {
		for _, chat := range []int64{7, 8, -42} {
			chat, i := chat, i
			require.NoError(t, d.Enqueue(context.Background(), chat, "send.text", "sendMessage", func() error {
				mu.Lock()
				defer mu.Unlock()
				got[chat] = append(got[chat], i)
				return nil
			}))
		}
	}
	d.Close()

	for _, chat := range []int64{7, 8, -42} {
		require.Len(t, got[chat], 50)
		for i, v := range got[chat] {
			assert.Equal(t, i, v, "chat %d out of order", chat)
		}
	}
	assert.Equal(t, uint64(150), d.SentCount())
	assert.Zero(t, d.ErrorCount())
}

func TestDispatcherRetriesRetryableErrors(t *testing.T) {
	transient := errors.New("transient")
	d := NewDispatcher(Options{
		Workers:      1,
		MaxRetries:   2,
		RetryBackoff: time.Millisecond,
		Retryable:    func(err error) bool { return errors.Is(err, transient) },
	})

	calls := 0
	require.NoError(t, d.Enqueue(context.Background(), 1, "send.text", "sendMessage", func() error {
		calls++
		if calls < 3 {
			return transient
		}
		return nil
	}))
	d.Close()

	assert.Equal(t, 3, calls)
	assert.Zero(t, d.ErrorCount())
}

func TestDispatcherCountsPermanentFailures(t *testing.T) {
	d := NewDispatcher(Options{Workers: 1, MaxRetries: 3, RetryBackoff: time.Millisecond})
	calls := 0
	require.NoError(t, d.Enqueue(context.Background(), 1, "send.text", "sendMessage", func() error {
		calls++
		return fmt.Errorf("Post https://api.telegram.org/bot123:abc/sendMessage: forbidden")
	}))
	d.Close()

	assert.Equal(t, 1, calls, "non-network errors are not retried")
	assert.Equal(t, uint64(1), d.ErrorCount())
}

func TestDispatcherRejectsAfterClose(t *testing.T) {
	d := NewDispatcher(Options{})
	d.Close()
	d.Close()
	err := d.Enqueue(context.Background(), 1, "send.text", "sendMessage", func() error { return nil })
	assert.ErrorIs(t, err, ErrQueueClosed)
}

func TestDispatcherQueueFull(t *testing.T) {
	d := NewDispatcher(Options{Workers: 1, QueueSize: 1})
	release := make(chan struct{})
	started := make(chan struct{})
	require.NoError(t, d.Enqueue(context.Background(), 1, "a", "", func() error {
		close(started)
		<-release
		return nil
	}))
	<-started
	require.NoError(t, d.Enqueue(context.Background(), 1, "b", "", func() error { return nil }))
	err := d.Enqueue(context.Background(), 1, "c", "", func() error { return nil })
	assert.ErrorIs(t, err, ErrQueueFull)
	close(release)
	d.Close()
}

func TestRedactToken(t *testing.T) {
	err := errors.New(`Post "https://api.telegram.org/bot123456:AA-bb_cc/sendMessage": EOF`)
	assert.Equal(t, `Post "https://api.telegram.org/bot<redacted>/sendMessage": EOF`, redactToken(err))
	assert.Equal(t, "timeout", classifyError(context.DeadlineExceeded))
	assert.Equal(t, "unknown", classifyError(errors.New("x")))
}
