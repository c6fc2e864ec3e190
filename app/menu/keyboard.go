// Package menu serves the read-only screens of the bot: introduction, help,
// profile, wallet balances and the inline main menu.
package menu

import (
	"github.com/m3rciful/copperbot/core/telegram/keyboard"

	tele "gopkg.in/telebot.v4"
)

// CallbackMenu is the callback key shared by every main menu button.
const CallbackMenu = "menu"

// Main menu payloads.
const (
	ItemWallets = "wallets"
	ItemSend    = "send"
	ItemHistory = "history"
	ItemProfile = "profile"
	ItemHelp    = "help"
	ItemBack    = "back"
)

// Button builds one main menu button.
func Button(text, item string) keyboard.InlineBtn {
	return keyboard.InlineBtn{Text: text, Unique: CallbackMenu, Data: item}
}

// MainMenu is the inline keyboard shown after login and on /start.
func MainMenu() *tele.ReplyMarkup {
	return keyboard.InlineButtonsNPerRow([]keyboard.InlineBtn{
		Button("💰 My Wallets", ItemWallets),
		Button("💸 Send Funds", ItemSend),
		Button("📊 Transaction History", ItemHistory),
		Button("👤 My Profile", ItemProfile),
	}, 2, []keyboard.InlineBtn{Button("❓ Help", ItemHelp)})
}

func walletsKeyboard() *tele.ReplyMarkup {
	return keyboard.InlineButtons(
		Button("📤 Send Funds", ItemSend),
		Button("🔙 Back to Menu", ItemBack),
	)
}
