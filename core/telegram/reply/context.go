package reply

import (
	"context"

	tghelpers "github.com/m3rciful/copperbot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

type contextResponder struct {
	c tele.Context
}

// FromContext returns a Responder that replies through c using the shared
// send helpers.
func FromContext(c tele.Context) Responder {
	return contextResponder{c: c}
}

func (r contextResponder) Send(_ context.Context, m Message) error {
	if m.Markdown {
		return tghelpers.SendMD(r.c, m.Text, m.Markup)
	}
	if m.Markup != nil {
		return tghelpers.SendText(r.c, m.Text, &tele.SendOptions{ReplyMarkup: m.Markup})
	}
	return tghelpers.SendText(r.c, m.Text)
}
