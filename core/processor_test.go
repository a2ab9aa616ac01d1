package core

import (
	"context"
	"testing"
	"time"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	coreerrors "solusd/core/errors"
	"solusd/core/genesis"
	"solusd/core/types"
	"solusd/crypto"
	nativecommon "solusd/native/common"
	"solusd/native/fixedpoint"
	"solusd/native/issuance"
	"solusd/native/oracle"
	"solusd/native/stability"
	"solusd/native/trove"
	"solusd/storage"
)

type pauses map[string]bool

func (p pauses) IsPaused(module string) bool { return p[module] }

type harness struct {
	proc   *Processor
	feed   *oracle.ManualFeed
	pauses pauses
	now    time.Time
}

func dec(v string) *uint256.Int { return fixedpoint.MustParseDecimal(v) }

func addr(b byte) crypto.Address {
	var a crypto.Address
	a[19] = b
	return a
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{feed: oracle.NewManualFeed("USD"), pauses: pauses{}, now: time.Unix(1_700_000_000, 0)}
	params := trove.DefaultParams()
	params.GasCompensation = dec("10")
	params.MinNetDebt = dec("90")
	params.BootstrapPeriod = 0
	proc, err := NewProcessor(storage.NewMemDB(), h.feed, Config{
		Trove:    params,
		Issuance: issuance.DefaultParams(),
		Asset:    "ETH",
		Pauses:   h.pauses,
	}, WithClock(func() time.Time { return h.now }))
	require.NoError(t, err)
	h.proc = proc
	h.setPrice(t, "200")
	return h
}

func (h *harness) setPrice(t *testing.T, price string) {
	t.Helper()
	require.NoError(t, h.feed.SetDecimal("ETH", price, h.now))
}

func (h *harness) genesis(t *testing.T) {
	t.Helper()
	require.NoError(t, h.proc.InitGenesis(genesis.NewGenesisSpec(h.now)))
}

func (h *harness) exec(t *testing.T, op types.Operation) *types.Receipt {
	t.Helper()
	receipt, err := h.proc.Execute(context.Background(), op)
	require.NoError(t, err)
	return receipt
}

func openOp(owner crypto.Address, coll, debt string) types.Operation {
	return types.Operation{Type: types.OpOpenTrove, Caller: owner, Collateral: dec(coll), Amount: dec(debt), MaxFee: dec("0.05")}
}

func requireClose(t *testing.T, want, got *uint256.Int, tolerance string) {
	t.Helper()
	diff := new(uint256.Int)
	if got.Gt(want) {
		diff.Sub(got, want)
	} else {
		diff.Sub(want, got)
	}
	require.True(t, !diff.Gt(dec(tolerance)), "want %s got %s", want.Dec(), got.Dec())
}

func TestExecuteRequiresGenesis(t *testing.T) {
	h := newHarness(t)
	_, err := h.proc.Execute(context.Background(), openOp(addr(1), "10", "1000"))
	require.ErrorIs(t, err, ErrNotInitialized)
	ok, err := h.proc.Initialized()
	require.NoError(t, err)
	require.False(t, ok)

	h.genesis(t)
	ok, err = h.proc.Initialized()
	require.NoError(t, err)
	require.True(t, ok)
	require.ErrorIs(t, h.proc.InitGenesis(genesis.NewGenesisSpec(h.now)), ErrGenesisApplied)
}

func TestOpenTroveReceipt(t *testing.T) {
	h := newHarness(t)
	h.genesis(t)

	receipt := h.exec(t, openOp(addr(1), "10", "1000"))
	require.NotEqual(t, [16]byte{}, [16]byte(receipt.ID))
	require.Len(t, receipt.StateDigest, 64)
	require.Equal(t, dec("200"), receipt.Price)
	require.NotEmpty(t, receipt.Transfers)
	require.NotEmpty(t, receipt.Events)
	opened, ok := receipt.Result.(*types.Trove)
	require.True(t, ok)
	require.Equal(t, dec("1015"), opened.Debt)

	view, err := h.proc.Trove(addr(1))
	require.NoError(t, err)
	require.Equal(t, types.TroveActive, view.Trove.Status)
	require.Equal(t, dec("1015"), view.EntireDebt)

	owners, err := h.proc.SortedTroves()
	require.NoError(t, err)
	require.Equal(t, []crypto.Address{addr(1)}, owners)
}

func TestFailedOperationLeavesNoTrace(t *testing.T) {
	h := newHarness(t)
	h.genesis(t)
	h.exec(t, openOp(addr(1), "10", "1000"))
	h.exec(t, openOp(addr(2), "20", "1000"))

	_, err := h.proc.Execute(context.Background(), openOp(addr(3), "1", "1000"))
	require.ErrorIs(t, err, trove.ErrICRBelowMCR)
	view, err := h.proc.Trove(addr(3))
	require.NoError(t, err)
	require.Equal(t, types.TroveNonExistent, view.Trove.Status)

	// The walk mutates alice before the fee check rejects the redemption.
	_, err = h.proc.Execute(context.Background(), types.Operation{
		Type: types.OpRedeemCollateral, Caller: addr(5), Amount: dec("500"), MaxFee: dec("0.01"),
	})
	require.ErrorIs(t, err, trove.ErrFeeExceeded)
	require.Equal(t, coreerrors.CategoryFee, coreerrors.Classify(err))
	view, err = h.proc.Trove(addr(1))
	require.NoError(t, err)
	require.Equal(t, dec("1015"), view.EntireDebt)
	require.Equal(t, dec("10"), view.EntireColl)
}

func TestExecuteRejectsInvalidCallers(t *testing.T) {
	h := newHarness(t)
	h.genesis(t)

	_, err := h.proc.Execute(context.Background(), openOp(crypto.ZeroAddress, "10", "1000"))
	require.ErrorIs(t, err, coreerrors.ErrUnauthorized)

	_, err = h.proc.Execute(context.Background(), openOp(types.ModuleAccount(types.ModuleStabilityPool), "10", "1000"))
	require.ErrorIs(t, err, coreerrors.ErrUnauthorized)

	_, err = h.proc.Execute(context.Background(), types.Operation{Type: "mint_everything", Caller: addr(1)})
	require.ErrorIs(t, err, coreerrors.ErrUnknownOperation)
}

func TestExecuteFailsOnOracleAndPause(t *testing.T) {
	h := newHarness(t)
	h.genesis(t)

	agg := oracle.NewAggregator("USD", nil, time.Minute)
	agg.SetClock(func() time.Time { return h.now.Add(time.Hour) })
	agg.Register("manual", h.feed)
	h.proc.feed = agg

	_, err := h.proc.Execute(context.Background(), openOp(addr(1), "10", "1000"))
	require.ErrorIs(t, err, oracle.ErrStale)
	require.Equal(t, coreerrors.CategoryOracle, coreerrors.Classify(err))

	// Price-free operations do not consult the feed.
	h.exec(t, types.Operation{Type: types.OpProvideToStabilityPool, Caller: addr(3), Amount: dec("100")})

	h.pauses[nativecommon.ModuleStability] = true
	_, err = h.proc.Execute(context.Background(), types.Operation{Type: types.OpProvideToStabilityPool, Caller: addr(3), Amount: dec("100")})
	require.ErrorIs(t, err, nativecommon.ErrModulePaused)

	h.pauses[nativecommon.ModuleIssuance] = true
	_, err = h.proc.Execute(context.Background(), types.Operation{Type: types.OpIssue, Caller: addr(3)})
	require.ErrorIs(t, err, nativecommon.ErrModulePaused)
}

func TestLiquidationFlowPaysDepositors(t *testing.T) {
	h := newHarness(t)
	h.genesis(t)
	alice, bob, carol, liquidator := addr(1), addr(2), addr(3), addr(4)

	h.exec(t, openOp(alice, "10", "1000"))
	h.exec(t, openOp(bob, "100", "1000"))
	h.exec(t, types.Operation{Type: types.OpProvideToStabilityPool, Caller: carol, Amount: dec("2000")})

	h.now = h.now.Add(24 * time.Hour)
	receipt := h.exec(t, types.Operation{Type: types.OpIssue, Caller: carol})
	issued := receipt.Result.(*IssueResult).Issued
	require.False(t, issued.IsZero())

	h.setPrice(t, "100")
	receipt = h.exec(t, types.Operation{Type: types.OpLiquidate, Caller: liquidator, Target: alice})
	totals := receipt.Result.(*trove.LiquidationTotals)
	require.Len(t, totals.Liquidated, 1)
	require.Equal(t, dec("1015"), totals.TotalDebtToOffset)

	deposit, err := h.proc.Deposit(carol)
	require.NoError(t, err)
	requireClose(t, dec("985"), deposit.Compounded, "0.000001")
	requireClose(t, dec("9.95"), deposit.CollGain, "0.000001")
	requireClose(t, issued, deposit.IssuanceGain, "0.000001")

	_, err = h.proc.Execute(context.Background(), types.Operation{Type: types.OpLiquidate, Caller: liquidator, Target: bob})
	require.ErrorIs(t, err, trove.ErrNothingToLiquidate)

	receipt = h.exec(t, types.Operation{Type: types.OpWithdrawFromStability, Caller: carol, Amount: dec("5000")})
	result := receipt.Result.(*stability.DepositResult)
	requireClose(t, dec("9.95"), result.CollGain, "0.000001")

	status, err := h.proc.System()
	require.NoError(t, err)
	require.False(t, status.System.RecoveryMode)
	requireClose(t, fixedpoint.Zero(), status.StabilityPool.TotalDeposits, "0.000001")
	require.Equal(t, 1, status.System.TroveCount)
}

func TestGenesisRegistersFrontEnds(t *testing.T) {
	h := newHarness(t)
	fe := addr(9)
	spec := &genesis.GenesisSpec{
		GenesisTime: h.now.UTC().Format(time.RFC3339),
		FrontEnds:   []genesis.FrontEndSpec{{Address: fe.String(), KickbackRate: "0.75"}},
	}
	require.NoError(t, h.proc.InitGenesis(spec))

	view, err := h.proc.FrontEnd(fe)
	require.NoError(t, err)
	require.True(t, view.Registered)
	require.Equal(t, dec("0.75"), view.KickbackRate)

	h.exec(t, types.Operation{Type: types.OpStake, Caller: addr(1), Amount: dec("10")})
	staker, err := h.proc.Staker(addr(1))
	require.NoError(t, err)
	require.Equal(t, dec("10"), staker.Position.Stake)
}
