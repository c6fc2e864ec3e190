package app

import (
	"context"
	"fmt"

	"github.com/m3rciful/copperbot/app/menu"
	"github.com/m3rciful/copperbot/app/transfer"
	tg "github.com/m3rciful/copperbot/core/telegram"
	"github.com/m3rciful/copperbot/core/telegram/callbacks"
	"github.com/m3rciful/copperbot/core/telegram/commands"
	tghelpers "github.com/m3rciful/copperbot/core/telegram/helpers"
	"github.com/m3rciful/copperbot/core/telegram/middleware"
	"github.com/m3rciful/copperbot/core/telegram/reply"

	tele "gopkg.in/telebot.v4"
)

const (
	noChatText  = "Error: Could not determine chat ID."
	limitedText = "⏳ Too many requests. Please slow down."
)

type chatFunc func(ctx context.Context, chatID int64, r reply.Responder) error

// onChat adapts a controller operation to a telebot handler.
func onChat(fn chatFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		chatID, ok := tghelpers.ChatID(c)
		if !ok {
			return tghelpers.SendText(c, noChatText)
		}
		return fn(tghelpers.BuildContext(c), chatID, reply.FromContext(c))
	}
}

func onLimited(c tele.Context) error {
	if c.Callback() != nil {
		return tghelpers.Acknowledge(c, limitedText)
	}
	return tghelpers.SendText(c, limitedText)
}

func (a *App) buildRegistry() (*tg.Registry, error) {
	reg := tg.NewRegistry()

	reg.RegisterCommand("/start", commands.Command{
		Handler:     onChat(a.Menu.Start),
		Description: "Show introduction",
		Public:      true,
	})
	reg.RegisterCommand("/login", commands.Command{
		Handler:     onChat(a.Auth.Start),
		Description: "Connect to your Copperx account",
		Public:      true,
	})
	reg.RegisterCommand("/logout", commands.Command{
		Handler:     onChat(a.Auth.Logout),
		Description: "Disconnect from your account",
		Public:      true,
	})
	reg.RegisterCommand("/send", commands.Command{
		Handler:     onChat(a.Transfer.Start),
		Description: "Send funds",
		Aliases:     []string{"/transfer"},
	})
	reg.RegisterCommand("/wallet", commands.Command{
		Handler:     onChat(a.Menu.Wallets),
		Description: "Show wallet balances",
		Aliases:     []string{"/balance"},
	})
	reg.RegisterCommand("/profile", commands.Command{
		Handler:     onChat(a.Menu.Profile),
		Description: "Show your profile",
	})
	reg.RegisterCommand("/help", commands.Command{
		Handler:     onChat(a.Menu.Help),
		Description: "Show available commands",
	})

	if err := reg.RegisterCallback(menu.CallbackMenu, a.onMenu); err != nil {
		return nil, fmt.Errorf("app: %w", err)
	}
	for _, key := range transfer.CallbackKeys {
		if err := reg.RegisterCallback(key, a.onTransferCallback); err != nil {
			return nil, fmt.Errorf("app: %w", err)
		}
	}
	return reg, nil
}

func (a *App) onMenu(c tele.Context) error {
	return onChat(func(ctx context.Context, chatID int64, r reply.Responder) error {
		return a.Menu.Select(ctx, chatID, callbacks.CallbackPayload(c), r)
	})(c)
}

// onTransferCallback receives transfer buttons that the gatekeeper did not
// route to an active flow, so the controller can report them as expired.
func (a *App) onTransferCallback(c tele.Context) error {
	return onChat(func(ctx context.Context, chatID int64, r reply.Responder) error {
		_, err := a.Transfer.HandleEvent(ctx, middleware.EventFrom(c, chatID), r)
		return err
	})(c)
}
