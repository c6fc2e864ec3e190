package payments

import (
	"math"
	"time"
)

// OTPChallenge is returned by RequestOTP; SID must be echoed back in VerifyOTP.
type OTPChallenge struct {
	Email string
	SID   string
}

// User is the account profile exposed by the API.
type User struct {
	ID                string
	FirstName         string
	LastName          string
	Email             string
	OrganizationID    string
	Role              string
	Status            string
	Type              string
	WalletAddress     string
	WalletID          string
	WalletAccountType string
}

// Authentication is a successful OTP verification.
type Authentication struct {
	AccessToken string
	ExpireAt    time.Time
	User        User
}

// Balance is one wallet balance on one network.
type Balance struct {
	Network       string
	Balance       float64
	Currency      string
	WalletAddress string
	WalletID      string
}

// minorUnitScale is the precision amounts are compared at; USDC has 6 decimals.
const minorUnitScale = 1e6

// MinorUnits converts v to integer minor units, rounding to the nearest unit.
func MinorUnits(v float64) int64 {
	return int64(math.Round(v * minorUnitScale))
}

// TotalBalance sums the balances across every network. The sum is taken in
// minor units so decimal balances such as 0.7 + 0.1 add up exactly.
func TotalBalance(balances []Balance) float64 {
	var total int64
	for _, b := range balances {
		total += MinorUnits(b.Balance)
	}
	return float64(total) / minorUnitScale
}

// Covers reports whether balances hold at least amount.
func Covers(balances []Balance, amount float64) bool {
	return MinorUnits(amount) <= MinorUnits(TotalBalance(balances))
}

// HasFunds reports whether any balance is positive.
func HasFunds(balances []Balance) bool {
	for _, b := range balances {
		if b.Balance > 0 {
			return true
		}
	}
	return false
}
