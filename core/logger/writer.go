package logger

import (
	"bufio"
	"io"
	"sync"
)

// asyncWriter fans lines out to its sinks from a single goroutine so callers never
// block on slow outputs unless the queue is saturated.
type asyncWriter struct {
	queue   chan []byte
	flushes chan chan error
	done    chan struct{}
	once    sync.Once

	out *bufio.Writer

	errMu sync.Mutex
	err   error
}

func newAsyncWriter(writers []io.Writer, bufSize int) *asyncWriter {
	if bufSize <= 0 {
		bufSize = 64 * 1024
	}
	live := make([]io.Writer, 0, len(writers))
	for _, w := range writers {
		if w != nil {
			live = append(live, w)
		}
	}
	w := &asyncWriter{
		queue:   make(chan []byte, 256),
		flushes: make(chan chan error),
		done:    make(chan struct{}),
		out:     bufio.NewWriterSize(io.MultiWriter(live...), bufSize),
	}
	go w.loop()
	return w
}

func (w *asyncWriter) loop() {
	defer close(w.done)
	for {
		select {
		case line, ok := <-w.queue:
			if !ok {
				w.record(w.out.Flush())
				return
			}
			if _, err := w.out.Write(line); err != nil {
				w.record(err)
				continue
			}
			// Flush eagerly when idle so tailing the log stays live.
			if len(w.queue) == 0 {
				w.record(w.out.Flush())
			}
		case ack := <-w.flushes:
			for len(w.queue) > 0 {
				if line, ok := <-w.queue; ok {
					_, err := w.out.Write(line)
					w.record(err)
				}
			}
			ack <- w.out.Flush()
		}
	}
}

// Write copies p and enqueues it; a full queue makes the caller wait.
func (w *asyncWriter) Write(p []byte) error {
	if err := w.firstErr(); err != nil {
		return err
	}
	if len(p) == 0 {
		return nil
	}
	w.queue <- append([]byte(nil), p...)
	return nil
}

// Flush blocks until everything queued so far reached the sinks.
func (w *asyncWriter) Flush() error {
	ack := make(chan error, 1)
	select {
	case w.flushes <- ack:
		return <-ack
	case <-w.done:
		return w.firstErr()
	}
}

// Close drains the queue and returns the first write error seen.
func (w *asyncWriter) Close() error {
	w.once.Do(func() { close(w.queue) })
	<-w.done
	return w.firstErr()
}

func (w *asyncWriter) firstErr() error {
	w.errMu.Lock()
	defer w.errMu.Unlock()
	return w.err
}

func (w *asyncWriter) record(err error) {
	if err == nil {
		return
	}
	w.errMu.Lock()
	defer w.errMu.Unlock()
	if w.err == nil {
		w.err = err
	}
}
