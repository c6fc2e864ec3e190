package menu

import (
	"strings"

	"github.com/m3rciful/copperbot/core/payments"
	"github.com/m3rciful/copperbot/core/telegram/format"
)

var (
	accountTypes = map[string]string{
		"individual": "👤 Individual",
		"business":   "🏢 Business",
	}
	statuses = map[string]string{
		"pending":   "⏳ Pending",
		"active":    "✅ Active",
		"suspended": "❌ Suspended",
	}
	roles = map[string]string{
		"owner":  "👑 Owner",
		"admin":  "🔑 Administrator",
		"member": "👥 Member",
	}
)

func labelOf(labels map[string]string, value, missing string) string {
	if value == "" {
		return missing
	}
	if l, ok := labels[value]; ok {
		return l
	}
	return format.MD(value)
}

// RenderProfile formats a user profile as a Markdown message.
func RenderProfile(u payments.User) string {
	lines := []string{
		"👤 *YOUR PROFILE*",
		"",
		"*Name:* " + format.MD(format.FullName(u.FirstName, u.LastName)),
		"*Email:* " + format.MD(format.OrDefault(u.Email, "Not set")),
		"*Account Type:* " + labelOf(accountTypes, u.Type, "Not specified"),
		"*Status:* " + labelOf(statuses, u.Status, "Unknown"),
		"*Role:* " + labelOf(roles, u.Role, "Not assigned"),
		"",
		"*Account Details*",
		"Account ID: " + format.Code(format.OrDefault(u.ID, "N/A")),
		"Organization ID: " + format.Code(format.OrDefault(u.OrganizationID, "N/A")),
		"",
		"*Wallet Information*",
		"Wallet Address: " + format.Code(format.Address(u.WalletAddress)),
		"Wallet ID: " + format.Code(format.OrDefault(u.WalletID, "N/A")),
		"Account Type: " + format.MD(format.OrDefault(u.WalletAccountType, "Not set")),
	}
	return strings.Join(lines, "\n")
}
