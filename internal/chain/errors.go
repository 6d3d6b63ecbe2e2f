package chain

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// NetError marks a transport-level failure talking to an RPC endpoint. It is
// distinct from on-chain outcomes such as reverts: a NetError means the answer
// is unknown, not that the operation would fail.
type NetError struct {
	Op      string // RPC method that failed
	Chain   string
	Timeout bool
	Err     error
}

func (e *NetError) Error() string {
	return fmt.Sprintf("%s on %s: %v", e.Op, e.Chain, e.Err)
}

func (e *NetError) Unwrap() error { return e.Err }

// Retryable reports whether repeating the call could succeed. NetError is only
// constructed for transport failures (timeouts, refused or reset connections),
// and the endpoint state may have changed, so all of them qualify.
func (e *NetError) Retryable() bool { return true }

// wrapNetErr classifies an RPC error at the call site. Nil and non-transport
// errors pass through unchanged so reverts keep their payload.
func wrapNetErr(op, chainName string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &NetError{Op: op, Chain: chainName, Timeout: true, Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return &NetError{Op: op, Chain: chainName, Timeout: netErr.Timeout(), Err: err}
	}
	return err
}

// IsRetryable reports whether err carries a retryable transport failure.
func IsRetryable(err error) bool {
	var netErr *NetError
	return errors.As(err, &netErr) && netErr.Retryable()
}
