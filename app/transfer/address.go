package transfer

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	coreconfig "github.com/m3rciful/copperbot/core/config"
	"github.com/m3rciful/copperbot/core/payments"
)

// ErrInvalidAddress is wrapped by every AddressValidator rejection.
var ErrInvalidAddress = errors.New("invalid wallet address")

// AddressValidator checks a destination address. network is "" before the
// chain is chosen and the chain id afterwards.
type AddressValidator interface {
	Validate(address, network string) error
}

// MinLength accepts any address of at least N characters on a supported chain.
type MinLength struct {
	N int
}

// Validate implements AddressValidator.
func (v MinLength) Validate(address, network string) error {
	if n := utf8.RuneCountInString(address); n < v.N {
		return fmt.Errorf("%w: %d characters, need %d", ErrInvalidAddress, n, v.N)
	}
	return checkNetwork(network)
}

var evmAddress = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)

// EVM accepts 0x-prefixed 20-byte hex addresses. Every supported chain is EVM based.
type EVM struct{}

// Validate implements AddressValidator.
func (EVM) Validate(address, network string) error {
	if !evmAddress.MatchString(address) {
		return fmt.Errorf("%w: not a 0x hex address", ErrInvalidAddress)
	}
	return checkNetwork(network)
}

func checkNetwork(network string) error {
	if network == "" {
		return nil
	}
	if _, ok := payments.LookupNetwork(network); !ok {
		return fmt.Errorf("%w: unsupported network %q", ErrInvalidAddress, network)
	}
	return nil
}

// ValidatorFor maps the transfer config section to a validator.
func ValidatorFor(cfg coreconfig.TransferConfig) AddressValidator {
	if strings.EqualFold(cfg.AddressValidation, coreconfig.AddressValidationEVM) {
		return EVM{}
	}
	n := cfg.MinAddressLength
	if n <= 0 {
		n = defaultMinAddressLength
	}
	return MinLength{N: n}
}
