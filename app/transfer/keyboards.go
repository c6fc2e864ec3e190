package transfer

import (
	"github.com/m3rciful/copperbot/app/menu"
	"github.com/m3rciful/copperbot/core/payments"
	"github.com/m3rciful/copperbot/core/telegram/keyboard"

	tele "gopkg.in/telebot.v4"
)

// Callback keys of the transfer dialog.
const (
	CallbackMethod  = "transfer_method"
	CallbackNetwork = "transfer_network"
	CallbackConfirm = "transfer_confirm"
	CallbackCancel  = "transfer_cancel"
)

// CallbackKeys lists every key this package answers.
var CallbackKeys = []string{CallbackMethod, CallbackNetwork, CallbackConfirm, CallbackCancel}

const methodBack = "back"

func cancelBtn(text string) keyboard.InlineBtn {
	return keyboard.InlineBtn{Text: text, Unique: CallbackCancel}
}

func methodKeyboard() *tele.ReplyMarkup {
	return keyboard.InlineButtons(
		keyboard.InlineBtn{Text: "📧 Send to Email", Unique: CallbackMethod, Data: MethodEmail},
		keyboard.InlineBtn{Text: "🔑 Send to Wallet Address", Unique: CallbackMethod, Data: MethodWallet},
		keyboard.InlineBtn{Text: "🏦 Withdraw to Bank (Coming Soon)", Unique: CallbackMethod, Data: MethodBank},
		cancelBtn("↩️ Cancel"),
	)
}

func bankKeyboard() *tele.ReplyMarkup {
	return keyboard.InlineButtons(
		keyboard.InlineBtn{Text: "↩️ Back to Transfer Methods", Unique: CallbackMethod, Data: methodBack},
		cancelBtn("↩️ Cancel Transfer"),
	)
}

func cancelKeyboard() *tele.ReplyMarkup {
	return keyboard.InlineButtons(cancelBtn("↩️ Cancel Transfer"))
}

func networkKeyboard() *tele.ReplyMarkup {
	btns := make([]keyboard.InlineBtn, 0, len(payments.Networks))
	for _, n := range payments.Networks {
		btns = append(btns, keyboard.InlineBtn{Text: n.Name, Unique: CallbackNetwork, Data: n.ID})
	}
	return keyboard.InlineButtonsNPerRow(btns, 2, []keyboard.InlineBtn{cancelBtn("↩️ Cancel Transfer")})
}

func confirmKeyboard() *tele.ReplyMarkup {
	return keyboard.InlineButtons(
		keyboard.InlineBtn{Text: "✅ Confirm", Unique: CallbackConfirm},
		cancelBtn("❌ Cancel"),
	)
}

func doneKeyboard() *tele.ReplyMarkup {
	return keyboard.InlineButtons(
		menu.Button("💰 View Wallets", menu.ItemWallets),
		menu.Button("🔙 Back to Menu", menu.ItemBack),
	)
}
