package transfer

// Owner tags flows driven by this package.
const Owner = "transfer"

// Stage names, as logged and counted.
const (
	StageSelectMethod       = "select_method"
	StageEnterEmail         = "enter_email"
	StageEnterWalletAddress = "enter_wallet_address"
	StageSelectNetwork      = "select_network"
	StageEnterAmount        = "enter_amount"
	StageConfirm            = "confirm"
)

// Transfer methods offered at SelectMethod.
const (
	MethodEmail  = "email"
	MethodWallet = "wallet"
	MethodBank   = "bank"
)

// Destination is where the funds go: an EmailDestination or a WalletDestination.
type Destination interface {
	Method() string
	complete() bool
}

// EmailDestination sends to another account by email.
type EmailDestination struct {
	Recipient string
	// Message is forwarded to the API as the transfer note. The dialog has no
	// step that asks for one, so it is always empty.
	Message string
}

func (EmailDestination) Method() string   { return MethodEmail }
func (d EmailDestination) complete() bool { return d.Recipient != "" }

// WalletDestination withdraws to an address on a chain.
type WalletDestination struct {
	Address string
	Network string
}

func (WalletDestination) Method() string   { return MethodWallet }
func (d WalletDestination) complete() bool { return d.Address != "" && d.Network != "" }

// SelectMethod waits for a transfer method button.
type SelectMethod struct{}

func (SelectMethod) Owner() string { return Owner }
func (SelectMethod) Stage() string { return StageSelectMethod }

// EnterEmail waits for the recipient's email.
type EnterEmail struct{}

func (EnterEmail) Owner() string { return Owner }
func (EnterEmail) Stage() string { return StageEnterEmail }

// EnterWalletAddress waits for the destination address.
type EnterWalletAddress struct{}

func (EnterWalletAddress) Owner() string { return Owner }
func (EnterWalletAddress) Stage() string { return StageEnterWalletAddress }

// SelectNetwork holds an accepted address while the chain is chosen.
type SelectNetwork struct {
	Address string
}

func (SelectNetwork) Owner() string { return Owner }
func (SelectNetwork) Stage() string { return StageSelectNetwork }

// EnterAmount waits for the amount to send to Destination.
type EnterAmount struct {
	Destination Destination
}

func (EnterAmount) Owner() string { return Owner }
func (EnterAmount) Stage() string { return StageEnterAmount }

// Confirm holds a checked transfer until the user confirms or cancels it.
type Confirm struct {
	Destination Destination
	Amount      float64
}

func (Confirm) Owner() string { return Owner }
func (Confirm) Stage() string { return StageConfirm }
