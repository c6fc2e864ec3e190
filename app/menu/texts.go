package menu

const (
	introText = "👋 Welcome to Copperx Bot!\n\n" +
		"This bot allows you to access your Copperx Payout account directly through Telegram.\n\n" +
		"Use /login to authenticate with your Copperx account.\n" +
		"Use /help to see all available commands."

	helpText = "🔍 *Available Commands*\n\n" +
		"• /start - Show introduction\n" +
		"• /login - Connect to your Copperx account\n" +
		"• /logout - Disconnect from your account\n" +
		"• /wallet - Show wallet balances\n" +
		"• /send - Send funds\n" +
		"• /profile - Show your profile\n" +
		"• /help - Show this help message"

	menuPrompt     = "What would you like to do?"
	historyText    = "Transaction history feature will be available soon! 🚧"
	unknownText    = "I received your message but no matching command was found.\n\nPlease use the menu buttons or type /help to see available commands."
	unknownDocText = "I can't process files. Please use the menu buttons or type /help."
	loginRequired  = "You need to be logged in. Use /login to authenticate."
	noBalancesText = "You don't have any wallet balances yet."
)
