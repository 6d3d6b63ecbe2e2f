package wallet

import (
	"context"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/sync/errgroup"
)

// ValidateConfig tunes precondition checking.
type ValidateConfig struct {
	// StrictFrom promotes a from-field mismatch on non-fungible transfers to a
	// fatal error. Default is a warning: the contract enforces ownership
	// on-chain either way.
	StrictFrom bool

	// NativeSymbol names the chain's native currency in errors.
	NativeSymbol string
}

func (c ValidateConfig) nativeSymbol() string {
	if c.NativeSymbol == "" {
		return "ETH"
	}
	return c.NativeSymbol
}

// ValidatePreconditions runs the precondition protocol for one call, strictly
// before simulation: account deployment, signer authority, asset balance, and
// calldata consistency. The returned warnings attach to a successful result;
// any error is fatal for the intent.
//
// The deployment check runs first and alone, so an undeployed account fails
// without any further queries. Authority and balance reads are independent and
// are issued concurrently, then judged in protocol order.
func ValidatePreconditions(ctx context.Context, backend Backend, session Session, call Call, cls Classification, cfg ValidateConfig) ([]Warning, error) {
	code, err := backend.CodeAt(ctx, session.Account)
	if err != nil {
		return nil, err
	}
	if len(code) == 0 {
		return nil, &AccountNotDeployedError{Account: session.Account, ChainID: session.ChainID}
	}

	var (
		isOwner  bool
		assetErr error
	)
	grp, grpCtx := errgroup.WithContext(ctx)
	grp.Go(func() error {
		ok, err := ConfirmOwner(grpCtx, backend, session.Account, session.Signer)
		if err != nil {
			return err
		}
		isOwner = ok
		return nil
	})
	grp.Go(func() error {
		var err error
		assetErr, err = checkAssetBalance(grpCtx, backend, session, cls, cfg)
		return err
	})
	if err := grp.Wait(); err != nil {
		return nil, err
	}

	// Protocol order: authority before balance.
	if !isOwner {
		return nil, &NotOwnerError{Account: session.Account, Signer: session.Signer}
	}
	if assetErr != nil {
		return nil, assetErr
	}

	var warnings []Warning
	switch cls.Kind {
	case KindNonFungibleTransfer, KindMultiTokenTransfer:
		if cls.From != session.Account {
			if cfg.StrictFrom {
				return nil, &FromMismatchError{Account: session.Account, From: cls.From}
			}
			warnings = append(warnings, ownershipMismatchWarning(session.Account, cls.From))
		}
	}

	return warnings, nil
}

// checkAssetBalance returns the precondition failure (if any) as the first
// value and a transport error as the second, so balance shortfalls can be
// ranked below authority failures by the caller.
func checkAssetBalance(ctx context.Context, backend Backend, session Session, cls Classification, cfg ValidateConfig) (error, error) {
	switch cls.Kind {
	case KindNativeTransfer:
		balance, err := backend.BalanceAt(ctx, session.Account)
		if err != nil {
			return nil, err
		}
		if balance.Cmp(cls.Amount) < 0 {
			return &InsufficientAssetError{
				Symbol:    cfg.nativeSymbol(),
				Required:  cls.Amount,
				Available: balance,
			}, nil
		}

	case KindFungibleTransfer:
		balance, err := tokenBalance(ctx, backend, cls.Asset, session.Account)
		if err != nil {
			return nil, err
		}
		if balance.Cmp(cls.Amount) < 0 {
			return &InsufficientAssetError{
				Symbol:    tokenSymbol(ctx, backend, cls.Asset),
				Required:  cls.Amount,
				Available: balance,
			}, nil
		}

	case KindNonFungibleTransfer:
		owner, err := collectibleOwner(ctx, backend, cls.Asset, cls.TokenID)
		if err != nil {
			return nil, err
		}
		if owner != session.Account {
			return &InsufficientAssetError{
				Symbol:    tokenSymbol(ctx, backend, cls.Asset),
				Required:  big.NewInt(1),
				Available: big.NewInt(0),
				TokenID:   cls.TokenID,
			}, nil
		}

	case KindMultiTokenTransfer:
		balance, err := multiTokenBalance(ctx, backend, cls.Asset, session.Account, cls.TokenID)
		if err != nil {
			return nil, err
		}
		if balance.Cmp(cls.Amount) < 0 {
			return &InsufficientAssetError{
				Symbol:    tokenSymbol(ctx, backend, cls.Asset),
				Required:  cls.Amount,
				Available: balance,
				TokenID:   cls.TokenID,
			}, nil
		}
	}

	// Owner mutations and unknown calls have no balance precondition.
	return nil, nil
}

func tokenBalance(ctx context.Context, backend Backend, token, holder common.Address) (*big.Int, error) {
	callData := make([]byte, 0, 4+32)
	callData = append(callData, balanceOfSelector...)
	callData = append(callData, common.LeftPadBytes(holder.Bytes(), 32)...)

	result, err := backend.CallContract(ctx, ethereum.CallMsg{To: &token, Data: callData})
	if err != nil {
		return nil, err
	}
	return new(big.Int).SetBytes(result), nil
}

func collectibleOwner(ctx context.Context, backend Backend, collection common.Address, id *big.Int) (common.Address, error) {
	callData := make([]byte, 0, 4+32)
	callData = append(callData, ownerOfSelector...)
	callData = append(callData, common.LeftPadBytes(id.Bytes(), 32)...)

	result, err := backend.CallContract(ctx, ethereum.CallMsg{To: &collection, Data: callData})
	if err != nil {
		if isRetryableErr(err) {
			return common.Address{}, err
		}
		// ownerOf reverts for nonexistent tokens; treat as not owned
		return common.Address{}, nil
	}
	if len(result) < 32 {
		return common.Address{}, nil
	}
	return common.BytesToAddress(result[12:32]), nil
}

func multiTokenBalance(ctx context.Context, backend Backend, collection, holder common.Address, id *big.Int) (*big.Int, error) {
	callData := make([]byte, 0, 4+2*32)
	callData = append(callData, balanceOfIDSelector...)
	callData = append(callData, common.LeftPadBytes(holder.Bytes(), 32)...)
	callData = append(callData, common.LeftPadBytes(id.Bytes(), 32)...)

	result, err := backend.CallContract(ctx, ethereum.CallMsg{To: &collection, Data: callData})
	if err != nil {
		return nil, err
	}
	return new(big.Int).SetBytes(result), nil
}

// tokenSymbol is a best-effort metadata read for error messages only.
func tokenSymbol(ctx context.Context, backend Backend, token common.Address) string {
	result, err := backend.CallContract(ctx, ethereum.CallMsg{To: &token, Data: symbolSelector})
	if err != nil || len(result) == 0 {
		return token.Hex()
	}
	if symbol := decodeABIString(result); symbol != "" {
		return symbol
	}
	return token.Hex()
}

// decodeABIString decodes an ABI-encoded string return value. Some tokens
// return fixed-length bytes instead; those are trimmed directly.
func decodeABIString(data []byte) string {
	if len(data) < 64 {
		return strings.TrimRight(string(data), "\x00")
	}

	length := new(big.Int).SetBytes(data[32:64]).Int64()
	if length <= 0 || int(length) > len(data)-64 {
		return ""
	}
	return strings.TrimRight(string(data[64:64+length]), "\x00")
}
