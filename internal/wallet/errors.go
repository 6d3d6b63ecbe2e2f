package wallet

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// The error types below form the full failure taxonomy of the prepare
// pipeline. Each is definitive for the current intent: the pipeline aborts and
// never returns a partial plan. Transport-level failures are not represented
// here; those surface as retryable chain.NetError values.

// EncodingError reports malformed input to the call encoder. Raised before any
// network call is made.
type EncodingError struct {
	Field  string
	Reason string
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("cannot encode call: %s %s", e.Field, e.Reason)
}

// MalformedCallError reports calldata that matched a recognized selector but
// failed to decode. This rejects the whole operation, it is not a warning.
type MalformedCallError struct {
	Selector [4]byte
	Reason   string
}

func (e *MalformedCallError) Error() string {
	return fmt.Sprintf("malformed calldata for selector 0x%x: %s", e.Selector, e.Reason)
}

// AccountNotDeployedError reports that the target account has no bytecode on
// the named chain.
type AccountNotDeployedError struct {
	Account common.Address
	ChainID *big.Int
}

func (e *AccountNotDeployedError) Error() string {
	return fmt.Sprintf("account %s is not deployed on chain %s", e.Account.Hex(), e.ChainID)
}

// NotOwnerError reports that the acting signer is not a registered authority
// of the account.
type NotOwnerError struct {
	Account common.Address
	Signer  common.Address
}

func (e *NotOwnerError) Error() string {
	return fmt.Sprintf("signer %s is not an owner of account %s", e.Signer.Hex(), e.Account.Hex())
}

// InsufficientAssetError reports that the account does not hold enough of the
// asset the intent wants to move. For non-fungible assets Required/Available
// are 1/0 and TokenID names the missing token.
type InsufficientAssetError struct {
	Symbol    string
	Required  *big.Int
	Available *big.Int
	TokenID   *big.Int // nil for fungible assets
}

func (e *InsufficientAssetError) Error() string {
	if e.TokenID != nil {
		return fmt.Sprintf("account does not own %s #%s", e.Symbol, e.TokenID)
	}
	return fmt.Sprintf("insufficient %s balance: need %s, have %s", e.Symbol, e.Required, e.Available)
}

// SimulationFailedError reports a revert during preflight simulation. Reason
// holds the decoded Error(string) payload when the node provided one,
// otherwise it is empty and Raw carries the revert data verbatim.
type SimulationFailedError struct {
	Reason string
	Raw    []byte
	Err    error
}

func (e *SimulationFailedError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("simulation reverted: %s", e.Reason)
	}
	return fmt.Sprintf("simulation reverted: %v", e.Err)
}

func (e *SimulationFailedError) Unwrap() error { return e.Err }

// GasEstimationFailedError reports that the node refused to estimate gas,
// which implies the dispatch would revert.
type GasEstimationFailedError struct {
	Reason string
	Err    error
}

func (e *GasEstimationFailedError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("gas estimation failed: %s", e.Reason)
	}
	return fmt.Sprintf("gas estimation failed: %v", e.Err)
}

func (e *GasEstimationFailedError) Unwrap() error { return e.Err }

// InsufficientGasFundsError reports that the signer cannot cover the
// worst-case transaction cost.
type InsufficientGasFundsError struct {
	Symbol    string
	Required  *big.Int
	Available *big.Int
}

func (e *InsufficientGasFundsError) Error() string {
	return fmt.Sprintf("signer cannot cover gas: need %s wei, have %s wei (%s)", e.Required, e.Available, e.Symbol)
}

// FromMismatchError is the fatal form of the ownership-mismatch advisory,
// raised only when strict from-checking is configured.
type FromMismatchError struct {
	Account common.Address
	From    common.Address
}

func (e *FromMismatchError) Error() string {
	return fmt.Sprintf("transfer names %s as sender but the account is %s", e.From.Hex(), e.Account.Hex())
}

// Warning is a non-fatal advisory attached to a successful result. Warnings
// never abort the pipeline.
type Warning struct {
	Code    string
	Message string
}

const WarnOwnershipMismatch = "ownership_mismatch"

func ownershipMismatchWarning(account, from common.Address) Warning {
	return Warning{
		Code:    WarnOwnershipMismatch,
		Message: fmt.Sprintf("transfer names %s as sender but the account is %s; the contract will enforce ownership on-chain", from.Hex(), account.Hex()),
	}
}
