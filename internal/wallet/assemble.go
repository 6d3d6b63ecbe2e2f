package wallet

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"golang.org/x/sync/errgroup"
)

// Gas estimates get a fixed safety margin since batch dispatch cost can shift
// slightly between estimation and inclusion.
const (
	gasMarginNum = 3
	gasMarginDen = 2

	// fallbackGasLimit covers account dispatch of a plain value move, the one
	// shape whose estimation can legitimately fail before owner state is
	// known. Calls with a payload never fall back.
	fallbackGasLimit = 120_000
)

// TransactionPlan is a fully determined unsigned transaction, ready for the
// external signer. Best-effort invariant at assembly time:
// GasLimit * MaxFeePerGas does not exceed the signer's native balance.
type TransactionPlan struct {
	Recipient            common.Address // the account contract
	Value                *big.Int
	Payload              []byte
	Nonce                uint64
	MaxFeePerGas         *big.Int
	MaxPriorityFeePerGas *big.Int
	GasLimit             uint64
	ChainID              *big.Int

	// Batched records which dispatch encoding wraps the calls.
	Batched bool
}

// Unsigned materializes the plan as an EIP-1559 transaction for signing.
func (p *TransactionPlan) Unsigned() *types.Transaction {
	return types.NewTx(&types.DynamicFeeTx{
		ChainID:   p.ChainID,
		Nonce:     p.Nonce,
		GasTipCap: p.MaxPriorityFeePerGas,
		GasFeeCap: p.MaxFeePerGas,
		Gas:       p.GasLimit,
		To:        &p.Recipient,
		Value:     p.Value,
		Data:      p.Payload,
	})
}

// WorstCaseCost returns GasLimit * MaxFeePerGas.
func (p *TransactionPlan) WorstCaseCost() *big.Int {
	return new(big.Int).Mul(p.MaxFeePerGas, new(big.Int).SetUint64(p.GasLimit))
}

// Assemble produces the unsigned dispatch transaction for one or more
// validated calls. Nonce, fee data and the signer's balance are independent
// reads against the same endpoint and are fetched concurrently; gas is then
// estimated for the dispatch with a safety margin, and the worst-case cost is
// checked against the signer's native balance.
func Assemble(ctx context.Context, backend Backend, session Session, calls []Call, cfg ValidateConfig) (*TransactionPlan, error) {
	if len(calls) == 0 {
		return nil, &EncodingError{Field: "calls", Reason: "are missing"}
	}

	var (
		nonce     uint64
		maxFee    *big.Int
		tip       *big.Int
		signerBal *big.Int
	)
	grp, grpCtx := errgroup.WithContext(ctx)
	grp.Go(func() error {
		n, err := backend.PendingNonceAt(grpCtx, session.Signer)
		nonce = n
		return err
	})
	grp.Go(func() error {
		fee, err := backend.SuggestGasPrice(grpCtx)
		maxFee = fee
		return err
	})
	grp.Go(func() error {
		t, err := backend.SuggestGasTipCap(grpCtx)
		tip = t
		return err
	})
	grp.Go(func() error {
		bal, err := backend.BalanceAt(grpCtx, session.Signer)
		signerBal = bal
		return err
	})
	if err := grp.Wait(); err != nil {
		return nil, err
	}

	dispatch, batched, err := encodeDispatch(calls)
	if err != nil {
		return nil, &EncodingError{Field: "dispatch", Reason: err.Error()}
	}

	gasLimit, err := estimateDispatchGas(ctx, backend, session, calls, dispatch)
	if err != nil {
		return nil, err
	}

	plan := &TransactionPlan{
		Recipient:            session.Account,
		Value:                new(big.Int),
		Payload:              dispatch,
		Nonce:                nonce,
		MaxFeePerGas:         maxFee,
		MaxPriorityFeePerGas: tip,
		GasLimit:             gasLimit,
		ChainID:              session.ChainID,
		Batched:              batched,
	}

	if cost := plan.WorstCaseCost(); signerBal.Cmp(cost) < 0 {
		return nil, &InsufficientGasFundsError{
			Symbol:    cfg.nativeSymbol(),
			Required:  cost,
			Available: signerBal,
		}
	}

	return plan, nil
}

func encodeDispatch(calls []Call) ([]byte, bool, error) {
	if len(calls) == 1 {
		payload, err := EncodeExecute(calls[0])
		return payload, false, err
	}
	payload, err := EncodeExecuteBatch(calls)
	return payload, true, err
}

func estimateDispatchGas(ctx context.Context, backend Backend, session Session, calls []Call, dispatch []byte) (uint64, error) {
	estimate, err := backend.EstimateGas(ctx, ethereum.CallMsg{
		From: session.Signer,
		To:   &session.Account,
		Data: dispatch,
	})
	if err != nil {
		if isRetryableErr(err) {
			return 0, err
		}
		// A failed estimate means the dispatch would revert. Never guess a
		// limit for calls with a payload; only a bare value move may fall
		// back to the conservative default.
		if len(calls) == 1 && len(calls[0].Payload) == 0 {
			return fallbackGasLimit, nil
		}
		reason, _ := revertReason(err)
		return 0, &GasEstimationFailedError{Reason: reason, Err: err}
	}
	return estimate * gasMarginNum / gasMarginDen, nil
}
