package wallet

import (
	"context"
	"encoding/hex"
	"errors"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
)

// Preflight dry-runs one call against current chain state as a read-only
// invocation issued from the account's own address, the way the contract will
// execute it after dispatch. A revert blocks assembly. Passing is necessary
// but not sufficient: state can still change before inclusion.
func Preflight(ctx context.Context, backend Backend, account common.Address, call Call) error {
	msg := ethereum.CallMsg{
		From:  account,
		To:    &call.Target,
		Value: call.Value,
		Data:  call.Payload,
	}

	if _, err := backend.CallContract(ctx, msg); err != nil {
		if isRetryableErr(err) {
			return err
		}
		reason, raw := revertReason(err)
		return &SimulationFailedError{Reason: reason, Raw: raw, Err: err}
	}
	return nil
}

func isRetryableErr(err error) bool {
	var r interface{ Retryable() bool }
	return errors.As(err, &r) && r.Retryable()
}

// revertReason extracts the decoded Error(string) payload from an RPC error,
// when the execution environment attached revert data.
func revertReason(err error) (string, []byte) {
	var dataErr interface{ ErrorData() interface{} }
	if !errors.As(err, &dataErr) {
		return "", nil
	}

	hexData, ok := dataErr.ErrorData().(string)
	if !ok {
		return "", nil
	}
	raw, decErr := hex.DecodeString(strings.TrimPrefix(hexData, "0x"))
	if decErr != nil {
		return "", nil
	}
	return decodeRevertPayload(raw), raw
}

// errorStringSelector is the 4-byte id of Error(string), the payload solc
// emits for require(..., "reason").
var errorStringSelector = common.Hex2Bytes("08c379a0")

func decodeRevertPayload(raw []byte) string {
	// selector + offset + length + data
	if len(raw) < 4+32+32 {
		return ""
	}
	for i := range errorStringSelector {
		if raw[i] != errorStringSelector[i] {
			return ""
		}
	}
	body := raw[4:]
	length := new(big.Int).SetBytes(body[32:64]).Int64()
	if length <= 0 || int(length) > len(body)-64 {
		return ""
	}
	return string(body[64 : 64+length])
}
