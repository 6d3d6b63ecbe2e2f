package wallet

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/voltaic-labs/tapwallet/internal/telemetry"
)

// Session is the explicit per-intent context: which signer is acting, which
// account is being directed, and on which chain. There is no implicit global
// state; the caller supplies a Session on every prepare call.
type Session struct {
	Signer  common.Address
	Account common.Address
	ChainID *big.Int
}

// Planner decomposes a collectible transfer into an ordered list of dependent
// calls. The ENS planner implements this; without one, collectible transfers
// are single-call plans.
type Planner interface {
	Plan(ctx context.Context, session Session, collection, to common.Address, id *big.Int) ([]PlannedCall, error)
}

// Prepared is the successful output of the pipeline: a ready-to-sign plan,
// the calls it wraps with their step labels, and any non-fatal advisories.
type Prepared struct {
	Plan     *TransactionPlan
	Calls    []PlannedCall
	Warnings []Warning
}

// Pipeline turns user intents into validated unsigned transactions. One
// Backend is used for every read of a run so all steps see the same endpoint.
type Pipeline struct {
	backend Backend
	emitter telemetry.Emitter
	planner Planner
	cfg     ValidateConfig
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithEmitter routes step events to the given emitter.
func WithEmitter(e telemetry.Emitter) Option {
	return func(p *Pipeline) { p.emitter = e }
}

// WithPlanner installs a compound-transfer planner.
func WithPlanner(pl Planner) Option {
	return func(p *Pipeline) { p.planner = pl }
}

// WithValidateConfig overrides precondition checking defaults.
func WithValidateConfig(cfg ValidateConfig) Option {
	return func(p *Pipeline) { p.cfg = cfg }
}

// NewPipeline builds a pipeline over the given chain backend.
func NewPipeline(backend Backend, opts ...Option) *Pipeline {
	p := &Pipeline{
		backend: backend,
		emitter: telemetry.Nop{},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// PrepareNativeTransfer plans sending native currency out of the account.
func (p *Pipeline) PrepareNativeTransfer(ctx context.Context, session Session, to common.Address, amount *big.Int) (*Prepared, error) {
	call, err := NewNativeTransfer(to, amount)
	if err != nil {
		return nil, err
	}
	return p.run(ctx, session, []PlannedCall{{Call: call, Label: "send native currency"}})
}

// PrepareTokenTransfer plans an ERC-20 transfer out of the account.
func (p *Pipeline) PrepareTokenTransfer(ctx context.Context, session Session, token, to common.Address, amount *big.Int) (*Prepared, error) {
	call, err := EncodeTokenTransfer(token, to, amount)
	if err != nil {
		return nil, err
	}
	return p.run(ctx, session, []PlannedCall{{Call: call, Label: "send token"}})
}

// PrepareCollectibleTransfer plans moving a non-fungible asset. When a planner
// is installed and recognizes the collection, the intent may decompose into an
// ordered multi-step plan executed as one atomic batch.
func (p *Pipeline) PrepareCollectibleTransfer(ctx context.Context, session Session, collection, to common.Address, id *big.Int) (*Prepared, error) {
	var (
		calls []PlannedCall
		err   error
	)
	if p.planner != nil {
		calls, err = p.planner.Plan(ctx, session, collection, to, id)
	} else {
		var call Call
		call, err = EncodeCollectibleTransfer(collection, session.Account, to, id)
		calls = []PlannedCall{{Call: call, Label: "transfer collectible"}}
	}
	if err != nil {
		return nil, err
	}
	return p.run(ctx, session, calls)
}

// PrepareOwnerAdd plans registering a new authority on the account.
func (p *Pipeline) PrepareOwnerAdd(ctx context.Context, session Session, ownerBytes []byte) (*Prepared, error) {
	call, err := EncodeOwnerAdd(session.Account, ownerBytes)
	if err != nil {
		return nil, err
	}
	return p.run(ctx, session, []PlannedCall{{Call: call, Label: "add owner"}})
}

// PrepareOwnerRemove plans removing the authority at the given storage slot.
func (p *Pipeline) PrepareOwnerRemove(ctx context.Context, session Session, index uint64, ownerBytes []byte) (*Prepared, error) {
	call, err := EncodeOwnerRemove(session.Account, index, ownerBytes)
	if err != nil {
		return nil, err
	}
	return p.run(ctx, session, []PlannedCall{{Call: call, Label: "remove owner"}})
}

// run executes the classify -> validate -> simulate -> assemble pipeline over
// an ordered list of calls. Any fatal error aborts the whole intent; partial
// plans are never returned.
func (p *Pipeline) run(ctx context.Context, session Session, calls []PlannedCall) (*Prepared, error) {
	var warnings []Warning

	for _, pc := range calls {
		cls, err := step(p, session, "classify", map[string]any{"label": pc.Label}, func() (Classification, error) {
			return Classify(pc.Call)
		})
		if err != nil {
			return nil, err
		}

		stepWarnings, err := step(p, session, "validate", map[string]any{"label": pc.Label}, func() ([]Warning, error) {
			return ValidatePreconditions(ctx, p.backend, session, pc.Call, cls, p.cfg)
		})
		if err != nil {
			return nil, err
		}
		for _, w := range stepWarnings {
			p.emitter.Emit(telemetry.Event{
				Step:    "validate",
				Outcome: telemetry.OutcomeWarning,
				Fields:  map[string]any{"code": w.Code, "message": w.Message},
			})
		}
		warnings = append(warnings, stepWarnings...)

		if _, err := step(p, session, "simulate", map[string]any{"label": pc.Label}, func() (struct{}, error) {
			return struct{}{}, Preflight(ctx, p.backend, session.Account, pc.Call)
		}); err != nil {
			return nil, err
		}
	}

	raw := make([]Call, len(calls))
	for i, pc := range calls {
		raw[i] = pc.Call
	}
	plan, err := step(p, session, "assemble", map[string]any{"steps": len(calls)}, func() (*TransactionPlan, error) {
		return Assemble(ctx, p.backend, session, raw, p.cfg)
	})
	if err != nil {
		return nil, err
	}

	return &Prepared{Plan: plan, Calls: calls, Warnings: warnings}, nil
}

// step times one pipeline stage and emits its outcome.
func step[T any](p *Pipeline, session Session, name string, fields map[string]any, fn func() (T, error)) (T, error) {
	start := time.Now()
	out, err := fn()

	ev := telemetry.Event{
		Step:     name,
		Outcome:  telemetry.OutcomeOK,
		Duration: time.Since(start),
		Fields:   fields,
	}
	if ev.Fields == nil {
		ev.Fields = map[string]any{}
	}
	ev.Fields["account"] = session.Account.Hex()
	ev.Fields["chain_id"] = session.ChainID.String()
	if err != nil {
		ev.Outcome = telemetry.OutcomeError
		ev.Fields["error"] = err.Error()
	}
	p.emitter.Emit(ev)

	return out, err
}
