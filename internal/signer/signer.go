package signer

import (
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// Signer turns a prepared unsigned transaction into a broadcast-ready one.
// The transaction engine only ever hands a Signer fully validated plans; key
// material never crosses into the engine.
type Signer interface {
	// Address returns the signing address
	Address() common.Address

	// SignTransaction signs an unsigned transaction for the given chain
	SignTransaction(tx *types.Transaction, chainID *big.Int) (*types.Transaction, error)

	// SignMessage signs an arbitrary message (EIP-191 personal sign)
	SignMessage(message []byte) ([]byte, error)
}

// Type tags the key management strategy behind a Signer.
type Type string

const (
	TypeKeystore Type = "keystore"
	TypeCard     Type = "card"
)

// ErrCardNotPresent is returned when no secure element is reachable over NFC.
var ErrCardNotPresent = errors.New("secure element not present")

// ErrWrongPIN is returned when the secure element rejects the authorization
// secret.
var ErrWrongPIN = errors.New("secure element rejected PIN")

// CardSigner drives an NFC secure element that holds the account's owner key.
// The transport bridge is provided by the host application; this stub only
// fixes the boundary the engine signs through.
type CardSigner struct {
	address common.Address
}

// NewCardSigner connects to a present secure element.
func NewCardSigner() (*CardSigner, error) {
	return nil, ErrCardNotPresent
}

// Address returns the address derived from the element's owner key.
func (cs *CardSigner) Address() common.Address {
	return cs.address
}

// SignTransaction asks the element to sign the transaction hash. Requires a
// prior PIN verification on the element.
func (cs *CardSigner) SignTransaction(tx *types.Transaction, chainID *big.Int) (*types.Transaction, error) {
	return nil, ErrCardNotPresent
}

// SignMessage asks the element for an EIP-191 personal signature.
func (cs *CardSigner) SignMessage(message []byte) ([]byte, error) {
	return nil, ErrCardNotPresent
}
