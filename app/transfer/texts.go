package transfer

const (
	loginRequired   = "You need to be logged in to send funds. Use /login to authenticate."
	noFunds         = "You don't have any wallet balances yet. Please deposit funds first."
	selectMethod    = "💸 *SEND FUNDS*\n\nPlease select how you want to send funds:"
	bankUnavailable = "🏦 Bank withdrawals are coming soon!\n\nPlease choose another method."
	promptEmail     = "📧 *Send to Email*\n\nPlease enter the recipient's email address:"
	promptAddress   = "🔑 *Send to Wallet Address*\n\nPlease enter the recipient's wallet address:"
	promptNetwork   = "🌐 *Select Network*\n\nPlease select the blockchain network for this wallet:"
	invalidEmail    = "⚠️ Please enter a valid email address."
	invalidAddress  = "⚠️ Please enter a valid wallet address."
	invalidAmount   = "⚠️ Please enter a valid positive amount."
	useButtons      = "Please use the buttons above to continue, or tap Cancel."
	expired         = "Your transfer session has expired. Please start again."
	cancelledText   = "Transfer has been cancelled."
	incomplete      = "❌ Transfer failed: Missing required information."
	processing      = "💳 Processing your transfer... Please wait."
	unknownMethod   = "Unknown transfer method. Please choose one of the buttons."
	unknownNetwork  = "Unsupported network. Please choose one of the buttons."
)

const defaultMinAddressLength = 20
