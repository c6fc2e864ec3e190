package auth

const (
	cancelButton = "Cancel"

	promptEmail      = "🔐 *Copperx Authentication*\n\nPlease enter your Copperx email address:"
	invalidEmail     = "⚠️ Please enter a valid email address."
	requestingOTP    = "📤 Requesting OTP... Please wait."
	promptOTP        = "📱 An OTP has been sent to your email address.\n\nPlease enter the code:"
	invalidOTP       = "⚠️ Please enter a valid numeric OTP code."
	verifyingOTP     = "🔄 Verifying OTP... Please wait."
	cancelled        = "❌ Authentication cancelled. Use /login to try again."
	missingChallenge = "❌ Authentication error: Missing email or session information. Please try again with /login."
	loggedOut        = "👋 You have been logged out. Use /login to authenticate again."
)
