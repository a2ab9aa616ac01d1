package core

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/holiman/uint256"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	coreerrors "solusd/core/errors"
	"solusd/core/state"
	"solusd/core/types"
	"solusd/crypto"
	nativecommon "solusd/native/common"
	"solusd/native/fixedpoint"
	"solusd/native/issuance"
	"solusd/native/oracle"
	"solusd/native/stability"
	"solusd/native/staking"
	"solusd/native/trove"
	"solusd/observability"
	"solusd/storage"
)

// ErrNotInitialized is returned before genesis has been applied.
var ErrNotInitialized = errors.New("core: genesis not applied")

// Config fixes the parameters a Processor runs with.
type Config struct {
	Trove    trove.Params
	Issuance issuance.Params
	// Asset is the collateral symbol passed to the price feed.
	Asset  string
	Pauses nativecommon.PauseView
}

// Processor executes operations one at a time. Each operation runs on its
// own state.Txn that is committed only when every engine step succeeded.
type Processor struct {
	mu      sync.Mutex
	state   *state.Manager
	feed    oracle.PriceFeed
	cfg     Config
	logger  *slog.Logger
	metrics *observability.EngineMetrics
	tracer  trace.Tracer
	nowFn   func() time.Time
}

type Option func(*Processor)

func WithLogger(logger *slog.Logger) Option {
	return func(p *Processor) {
		if logger != nil {
			p.logger = logger
		}
	}
}

func WithMetrics(m *observability.EngineMetrics) Option {
	return func(p *Processor) { p.metrics = m }
}

func WithClock(now func() time.Time) Option {
	return func(p *Processor) {
		if now != nil {
			p.nowFn = now
		}
	}
}

// NewProcessor validates cfg and binds the processor to db and feed.
func NewProcessor(db storage.Database, feed oracle.PriceFeed, cfg Config, opts ...Option) (*Processor, error) {
	if db == nil {
		return nil, fmt.Errorf("core: database required")
	}
	if feed == nil {
		return nil, fmt.Errorf("%w: price feed required", oracle.ErrInvalidConfig)
	}
	if err := cfg.Trove.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Issuance.Validate(); err != nil {
		return nil, err
	}
	if cfg.Asset == "" {
		return nil, fmt.Errorf("%w: asset required", oracle.ErrInvalidConfig)
	}
	p := &Processor{
		state:  state.NewManager(db),
		feed:   feed,
		cfg:    cfg,
		logger: slog.Default(),
		tracer: otel.Tracer("solusd/core"),
		nowFn:  time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Close releases the underlying database.
func (p *Processor) Close() {
	if p != nil {
		p.state.Close()
	}
}

// engines is the set of module engines wired to one transaction.
type engines struct {
	troves    *trove.Engine
	stability *stability.Engine
	staking   *staking.Engine
	issuance  *issuance.Engine
}

func (p *Processor) wire(txn *state.Txn) *engines {
	e := &engines{
		troves:    trove.NewEngine(p.cfg.Trove),
		stability: stability.NewEngine(),
		staking:   staking.NewEngine(),
		issuance:  issuance.NewEngine(p.cfg.Issuance),
	}
	e.issuance.SetState(txn)
	e.issuance.SetClock(p.nowFn)

	e.staking.SetState(txn)
	e.staking.SetPauses(p.cfg.Pauses)

	e.stability.SetState(txn)
	e.stability.SetPauses(p.cfg.Pauses)
	e.stability.SetIssuer(e.issuance)
	e.stability.SetTroveManager(e.troves)

	e.troves.SetState(txn)
	e.troves.SetPauses(p.cfg.Pauses)
	e.troves.SetClock(p.nowFn)
	e.troves.SetStabilityPool(e.stability)
	e.troves.SetFeeRecipient(e.staking)
	return e
}

var moduleAccounts = map[crypto.Address]struct{}{
	types.ModuleAccount(types.ModuleActivePool):        {},
	types.ModuleAccount(types.ModuleDefaultPool):       {},
	types.ModuleAccount(types.ModuleStabilityPool):     {},
	types.ModuleAccount(types.ModuleCollSurplusPool):   {},
	types.ModuleAccount(types.ModuleGasPool):           {},
	types.ModuleAccount(types.ModuleStaking):           {},
	types.ModuleAccount(types.ModuleCommunityIssuance): {},
}

func requireOwner(addr crypto.Address) error {
	if addr.IsZero() {
		return fmt.Errorf("%w: zero address", coreerrors.ErrUnauthorized)
	}
	if _, ok := moduleAccounts[addr]; ok {
		return fmt.Errorf("%w: module account %s", coreerrors.ErrUnauthorized, addr.Encode(crypto.ModulePrefix))
	}
	return nil
}

func (p *Processor) price() (*uint256.Int, error) {
	quote, err := p.feed.GetPrice(p.cfg.Asset)
	if err != nil {
		return nil, fmt.Errorf("price %s: %w", p.cfg.Asset, err)
	}
	if quote.Price == nil || quote.Price.IsZero() {
		return nil, fmt.Errorf("%w: zero price for %s", oracle.ErrInvalidConfig, p.cfg.Asset)
	}
	return quote.Price, nil
}

// Execute runs op to completion. Nothing is persisted when an error is
// returned.
func (p *Processor) Execute(ctx context.Context, op types.Operation) (*types.Receipt, error) {
	start := time.Now()
	ctx, span := p.tracer.Start(ctx, "core.Execute", trace.WithAttributes(
		attribute.String("solusd.op", string(op.Type)),
		attribute.String("solusd.caller", op.Caller.String()),
	))
	defer span.End()
	receipt, err := p.execute(ctx, op)
	category := coreerrors.Classify(err)
	if p.metrics != nil {
		p.metrics.ObserveOperation(string(op.Type), string(category), time.Since(start))
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(category))
		p.logger.Warn("operation failed",
			slog.String("op", string(op.Type)),
			slog.String("caller", op.Caller.String()),
			slog.String("category", string(category)),
			slog.Any("error", err))
		return nil, err
	}
	span.SetAttributes(attribute.String("solusd.receipt", receipt.ID.String()))
	p.logger.Info("operation executed",
		slog.String("op", string(op.Type)),
		slog.String("caller", op.Caller.String()),
		slog.String("receipt", receipt.ID.String()),
		slog.Int("transfers", len(receipt.Transfers)),
		slog.Int("events", len(receipt.Events)))
	return receipt, nil
}

func (p *Processor) execute(ctx context.Context, op types.Operation) (*types.Receipt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := requireOwner(op.Caller); err != nil {
		return nil, err
	}
	var price *uint256.Int
	if op.Type.NeedsPrice() {
		var err error
		if price, err = p.price(); err != nil {
			return nil, err
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	txn := p.state.Begin()
	committed := false
	defer func() {
		if !committed {
			txn.Discard()
		}
	}()
	ok, err := txn.HasIssuanceState()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotInitialized
	}

	e := p.wire(txn)
	var recoveryBefore bool
	if price != nil {
		if recoveryBefore, err = e.troves.CheckRecoveryMode(price); err != nil {
			return nil, err
		}
	}
	result, err := p.dispatch(e, op, price)
	if err != nil {
		return nil, err
	}
	if price != nil {
		p.observeSystem(e, op, price, recoveryBefore, result)
	}
	transfers := txn.Transfers()
	events := txn.Events()
	digest, err := txn.Commit()
	if err != nil {
		return nil, err
	}
	committed = true
	p.observeTransfers(transfers)

	return &types.Receipt{
		ID:          uuid.New(),
		Operation:   op,
		Timestamp:   p.nowFn().UTC(),
		Price:       price,
		Transfers:   transfers,
		Events:      events,
		StateDigest: hex.EncodeToString(digest),
		Result:      result,
	}, nil
}

func (p *Processor) observeSystem(e *engines, op types.Operation, price *uint256.Int, recoveryBefore bool, result interface{}) {
	if p.metrics == nil {
		return
	}
	view, err := e.troves.SystemView(price)
	if err != nil || view.TCR == nil {
		return
	}
	if totals, ok := result.(*trove.LiquidationTotals); ok {
		mode := "normal"
		if recoveryBefore {
			mode = "recovery"
		}
		p.metrics.RecordLiquidations(mode, len(totals.Liquidated))
	}
	if op.Type == types.OpRedeemCollateral {
		p.metrics.RecordRedemption()
	}
	if tcr, err := strconv.ParseFloat(fixedpoint.FormatDecimal(view.TCR), 64); err == nil {
		p.metrics.SetSystemHealth(tcr, view.RecoveryMode)
	}
}

func (p *Processor) observeTransfers(transfers []types.TransferRequest) {
	if p.metrics == nil {
		return
	}
	for _, t := range transfers {
		p.metrics.RecordTransfer(string(t.Asset), string(t.Kind))
	}
}
