package payments

import (
	"errors"
	"fmt"
)

// ErrUnexpectedResponse marks a 2xx response whose body could not be understood.
var ErrUnexpectedResponse = errors.New("payments: unexpected response")

// Operation names, used for errors, logs and metrics.
const (
	OpRequestOTP       = "request_otp"
	OpVerifyOTP        = "verify_otp"
	OpFetchProfile     = "fetch_profile"
	OpFetchBalances    = "fetch_balances"
	OpTransferByEmail  = "transfer_email"
	OpTransferByWallet = "transfer_wallet"
)

var fallbackMessages = map[string]string{
	OpRequestOTP:       "Failed to request OTP",
	OpVerifyOTP:        "Failed to authenticate",
	OpFetchProfile:     "Failed to fetch user profile",
	OpFetchBalances:    "Failed to fetch wallet balances",
	OpTransferByEmail:  "Failed to send funds",
	OpTransferByWallet: "Failed to send funds to wallet",
}

// APIError is a failed call. Message is safe to show to the user.
type APIError struct {
	Op      string
	Status  int
	Message string
	Err     error
}

func (e *APIError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("payments %s: status %d: %s", e.Op, e.Status, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("payments %s: %s: %v", e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("payments %s: %s", e.Op, e.Message)
}

func (e *APIError) Unwrap() error { return e.Err }

// Message extracts a user-facing message from err, or returns fallback.
func Message(err error, fallback string) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}

func fallbackMessage(op string) string {
	if msg, ok := fallbackMessages[op]; ok {
		return msg
	}
	return "Request failed"
}
