package menu

import (
	"strings"

	"github.com/m3rciful/copperbot/core/payments"
	"github.com/m3rciful/copperbot/core/telegram/format"
)

// RenderBalances formats wallet balances as a Markdown message.
func RenderBalances(balances []payments.Balance, currency string) string {
	var b strings.Builder
	b.WriteString("💰 *YOUR WALLET BALANCES*\n\n")
	for _, bal := range balances {
		cur := format.OrDefault(bal.Currency, currency)
		b.WriteString("*" + format.MD(payments.NetworkName(bal.Network)) + "*\n")
		b.WriteString("Balance: " + format.Code(format.Amount(bal.Balance)+" "+cur) + "\n")
		b.WriteString("Wallet: " + format.Code(format.Address(bal.WalletAddress)) + "\n\n")
	}
	b.WriteString("*Total:* " + format.Code(format.Amount(payments.TotalBalance(balances))+" "+currency))
	return b.String()
}
