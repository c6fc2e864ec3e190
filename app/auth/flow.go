package auth

// Owner tags flows driven by this package.
const Owner = "auth"

// Stage names, as logged and counted.
const (
	StageAwaitingEmail = "awaiting_email"
	StageAwaitingOTP   = "awaiting_otp"
)

// AwaitingEmail waits for the user's email address.
type AwaitingEmail struct{}

func (AwaitingEmail) Owner() string { return Owner }
func (AwaitingEmail) Stage() string { return StageAwaitingEmail }

// AwaitingOTP waits for the one-time code sent to Email. SID ties the code
// to its request.
type AwaitingOTP struct {
	Email string
	SID   string
}

func (AwaitingOTP) Owner() string { return Owner }
func (AwaitingOTP) Stage() string { return StageAwaitingOTP }
