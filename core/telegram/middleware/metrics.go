package middleware

import (
	"time"

	tele "gopkg.in/telebot.v4"
)

// UpdateObserver records handled updates.
type UpdateObserver interface {
	ObserveUpdate(kind string, err error, took time.Duration)
}

// Instrument reports every update's kind, outcome and duration to obs.
func Instrument(obs UpdateObserver) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		if obs == nil {
			return next
		}
		return func(c tele.Context) error {
			start := time.Now()
			err := next(c)
			obs.ObserveUpdate(UpdateKind(c), err, time.Since(start))
			return err
		}
	}
}
