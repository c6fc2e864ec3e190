package menu

import (
	tghelpers "github.com/m3rciful/copperbot/core/telegram/helpers"
	"github.com/m3rciful/copperbot/core/telegram/ui"

	tele "gopkg.in/telebot.v4"
)

var _ ui.FallbackProvider = Fallbacks{}

// Fallbacks answers updates that no command, callback or flow claimed.
type Fallbacks struct{}

// UnknownText points the user to the menu and /help.
func (Fallbacks) UnknownText() tele.HandlerFunc {
	return func(c tele.Context) error {
		return tghelpers.SendText(c, unknownText)
	}
}

// UnknownDocument rejects uploads.
func (Fallbacks) UnknownDocument() tele.HandlerFunc {
	return func(c tele.Context) error {
		return tghelpers.SendText(c, unknownDocText)
	}
}

// UnknownCallback answers stale or foreign buttons.
func (Fallbacks) UnknownCallback() tele.HandlerFunc {
	return func(c tele.Context) error {
		return tghelpers.Acknowledge(c, "Unsupported action")
	}
}
