// Package reply decouples flow controllers from the Telegram context: they
// describe messages and a Responder delivers them.
package reply

import (
	"context"

	tele "gopkg.in/telebot.v4"
)

// Message is one outgoing chat message.
type Message struct {
	Text     string
	Markdown bool
	Markup   *tele.ReplyMarkup
}

// Text builds a plain message with an optional keyboard.
func Text(text string, markup ...*tele.ReplyMarkup) Message {
	return Message{Text: text, Markup: first(markup)}
}

// Markdown builds a Markdown message with an optional keyboard.
func Markdown(text string, markup ...*tele.ReplyMarkup) Message {
	return Message{Text: text, Markdown: true, Markup: first(markup)}
}

// Responder delivers messages to the chat an event came from.
type Responder interface {
	Send(ctx context.Context, m Message) error
}

// Sends delivers msgs in order and stops at the first error.
func Sends(ctx context.Context, r Responder, msgs ...Message) error {
	for _, m := range msgs {
		if err := r.Send(ctx, m); err != nil {
			return err
		}
	}
	return nil
}

func first(markup []*tele.ReplyMarkup) *tele.ReplyMarkup {
	if len(markup) == 0 {
		return nil
	}
	return markup[0]
}
