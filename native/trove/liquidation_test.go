package trove

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"solusd/core/types"
	"solusd/crypto"
	"solusd/native/fixedpoint"
)

func requireConserved(t *testing.T, totals *LiquidationTotals) {
	t.Helper()
	for _, v := range totals.Liquidated {
		require.Equal(t, v.EntireDebt, sum(v.DebtToOffset, v.DebtToRedistribute), "debt split of %s", v.Owner)
		require.Equal(t, v.EntireColl, sum(v.CollToSendToSP, v.CollToRedistribute, v.CollGasCompensation, v.CollSurplus), "coll split of %s", v.Owner)
	}
}

func (f *fixture) provide(t *testing.T, owner crypto.Address, amount string) {
	t.Helper()
	_, err := f.sp.ProvideToStabilityPool(owner, dec(amount), crypto.ZeroAddress)
	require.NoError(t, err)
}

func TestNormalModeLiquidationOffsetsAgainstPool(t *testing.T) {
	f := newFixture(t)
	alice, bob, carol, liquidator := addr(1), addr(2), addr(3), addr(9)
	f.open(t, alice, "10", "1000", "200")
	f.open(t, bob, "100", "5000", "200")
	f.provide(t, carol, "2000")

	_, err := f.engine.Liquidate(liquidator, bob, dec("100"))
	require.ErrorIs(t, err, ErrNothingToLiquidate)

	totals, err := f.engine.Liquidate(liquidator, alice, dec("100"))
	require.NoError(t, err)
	requireConserved(t, totals)
	require.Len(t, totals.Liquidated, 1)
	require.Equal(t, dec("1015"), totals.TotalDebtToOffset)
	require.Equal(t, dec("9.95"), totals.TotalCollToSendToSP)
	require.Equal(t, dec("0.05"), totals.TotalCollGasCompensation)
	require.True(t, totals.TotalDebtToRedistribute.IsZero())

	require.Equal(t, types.TroveClosedByLiquidation, f.trove(t, alice).Status)
	_, err = f.engine.Liquidate(liquidator, alice, dec("100"))
	require.ErrorIs(t, err, ErrTroveNotActive)

	active := f.pool(t, types.ActivePool)
	require.Equal(t, dec("100"), active.Coll)
	require.Equal(t, dec("5035"), active.Debt)
	require.Equal(t, dec("10"), f.pool(t, types.GasPool).Debt)

	sp, err := f.sp.Pool()
	require.NoError(t, err)
	require.Equal(t, dec("985"), sp.TotalDeposits)
	require.Equal(t, dec("9.95"), sp.Coll)

	ledger := f.ledger(t)
	require.Equal(t, dec("100"), ledger.TotalStakes)
	require.Equal(t, dec("100"), ledger.TotalStakesSnapshot)
	require.Equal(t, dec("100"), ledger.TotalCollateralSnapshot)

	var gasPaid, collPaid bool
	for _, tr := range f.txn.Transfers() {
		if tr.To != liquidator {
			continue
		}
		gasPaid = gasPaid || (tr.Asset == types.AssetDebt && tr.Amount.Eq(dec("10")))
		collPaid = collPaid || (tr.Asset == types.AssetCollateral && tr.Amount.Eq(dec("0.05")))
	}
	require.True(t, gasPaid)
	require.True(t, collPaid)
}

func TestLiquidationRedistributesWithoutPool(t *testing.T) {
	f := newFixture(t)
	alice, bob, carol := addr(1), addr(2), addr(3)
	f.open(t, alice, "10", "1000", "200")
	f.open(t, bob, "100", "5000", "200")
	f.open(t, carol, "50", "2000", "200")

	totals, err := f.engine.Liquidate(addr(9), alice, dec("100"))
	require.NoError(t, err)
	requireConserved(t, totals)
	require.Equal(t, dec("1015"), totals.TotalDebtToRedistribute)
	require.Equal(t, dec("9.95"), totals.TotalCollToRedistribute)

	def := f.pool(t, types.DefaultPool)
	require.Equal(t, dec("9.95"), def.Coll)
	require.Equal(t, dec("1015"), def.Debt)

	ledger := f.ledger(t)
	require.True(t, ledger.LastCollError.Lt(ledger.TotalStakes))
	require.True(t, ledger.LastDebtError.Lt(ledger.TotalStakes))

	// The liquidated stake is removed before the per-stake rewards are sized.
	require.Equal(t, dec("150"), ledger.TotalStakes)
	perStake := new(uint256.Int).Div(new(uint256.Int).Mul(dec("9.95"), fixedpoint.DecimalPrecision), dec("150"))
	require.Equal(t, perStake, ledger.LColl)
	closed, err := f.engine.TroveView(alice, dec("100"))
	require.NoError(t, err)
	require.True(t, closed.Trove.Stake.IsZero())
	require.True(t, closed.PendingCollReward.IsZero())
	require.True(t, closed.PendingDebtReward.IsZero())

	bobView, err := f.engine.TroveView(bob, dec("100"))
	require.NoError(t, err)
	carolView, err := f.engine.TroveView(carol, dec("100"))
	require.NoError(t, err)

	pendingColl := sum(bobView.PendingCollReward, carolView.PendingCollReward)
	pendingDebt := sum(bobView.PendingDebtReward, carolView.PendingDebtReward)
	require.False(t, pendingColl.Gt(def.Coll))
	require.False(t, pendingDebt.Gt(def.Debt))
	require.True(t, new(uint256.Int).Sub(def.Coll, pendingColl).Lt(uint256.NewInt(1000)))
	require.True(t, new(uint256.Int).Sub(def.Debt, pendingDebt).Lt(uint256.NewInt(1000)))

	// Touching bob folds his share back into the active pool.
	trove, err := f.engine.AdjustTrove(AdjustRequest{Owner: bob, CollChange: dec("1"), IsCollIncrease: true, DebtChange: fixedpoint.Zero()}, dec("100"))
	require.NoError(t, err)
	require.Equal(t, sum(dec("101"), bobView.PendingCollReward), trove.Coll)
	require.Equal(t, sum(dec("5035"), bobView.PendingDebtReward), trove.Debt)
	require.Equal(t, new(uint256.Int).Sub(def.Coll, bobView.PendingCollReward), f.pool(t, types.DefaultPool).Coll)
}

func TestLiquidateTrovesWalksFromLowest(t *testing.T) {
	f := newFixture(t)
	alice, bob, carol, dave := addr(1), addr(2), addr(3), addr(4)
	f.open(t, alice, "10", "1000", "200")
	f.open(t, dave, "10", "1000", "200")
	f.open(t, bob, "100", "5000", "200")
	f.open(t, carol, "50", "2000", "200")

	totals, err := f.engine.LiquidateTroves(addr(9), 10, dec("100"))
	require.NoError(t, err)
	requireConserved(t, totals)
	require.Len(t, totals.Liquidated, 2)
	require.Equal(t, dec("20"), totals.TotalDebtGasCompensation)

	owners, err := f.engine.SortedOwners()
	require.NoError(t, err)
	require.Equal(t, []crypto.Address{carol, bob}, owners)
	require.Equal(t, dec("150"), f.ledger(t).TotalStakes)

	_, err = f.engine.LiquidateTroves(addr(9), 10, dec("100"))
	require.ErrorIs(t, err, ErrNothingToLiquidate)
}

func TestRecoveryModeCappedLiquidationLeavesSurplus(t *testing.T) {
	f := newFixture(t)
	alice, bob, dave, liquidator := addr(1), addr(2), addr(4), addr(9)
	f.open(t, alice, "12", "1000", "200")
	f.open(t, bob, "20", "1000", "200")
	f.provide(t, dave, "2000")

	recovery, err := f.engine.CheckRecoveryMode(dec("95"))
	require.NoError(t, err)
	require.True(t, recovery)

	totals, err := f.engine.Liquidate(liquidator, alice, dec("95"))
	require.NoError(t, err)
	requireConserved(t, totals)

	capped := uint256.MustFromDecimal("11752631578947368421")
	surplus := new(uint256.Int).Sub(dec("12"), capped)
	gas := new(uint256.Int).Div(capped, uint256.NewInt(200))
	require.Equal(t, surplus, totals.TotalCollSurplus)
	require.Equal(t, gas, totals.TotalCollGasCompensation)
	require.Equal(t, new(uint256.Int).Sub(capped, gas), totals.TotalCollToSendToSP)
	require.Equal(t, dec("1015"), totals.TotalDebtToOffset)

	stored, err := f.txn.Surplus(alice)
	require.NoError(t, err)
	require.Equal(t, surplus, stored)
	require.Equal(t, surplus, f.pool(t, types.CollSurplusPool).Coll)
	require.Equal(t, dec("20"), f.pool(t, types.ActivePool).Coll)
	require.Equal(t, dec("1015"), f.pool(t, types.ActivePool).Debt)

	claimed, err := f.engine.ClaimCollateral(alice)
	require.NoError(t, err)
	require.Equal(t, surplus, claimed)
	require.True(t, f.pool(t, types.CollSurplusPool).Coll.IsZero())
	_, err = f.engine.ClaimCollateral(alice)
	require.ErrorIs(t, err, ErrNoCollToClaim)
}

func TestRecoveryModeRedistributesInsolventTrove(t *testing.T) {
	f := newFixture(t)
	alice, bob := addr(1), addr(2)
	f.open(t, alice, "10", "1000", "200")
	f.open(t, bob, "30", "1000", "200")
	f.provide(t, addr(4), "2000")

	totals, err := f.engine.Liquidate(addr(9), alice, dec("60"))
	require.NoError(t, err)
	requireConserved(t, totals)
	require.True(t, totals.TotalDebtToOffset.IsZero())
	require.Equal(t, dec("1015"), totals.TotalDebtToRedistribute)

	deposits, err := f.sp.TotalDeposits()
	require.NoError(t, err)
	require.Equal(t, dec("2000"), deposits)
	require.Equal(t, dec("9.95"), f.pool(t, types.DefaultPool).Coll)

	// The last remaining trove is never liquidated.
	_, err = f.engine.Liquidate(addr(9), bob, dec("10"))
	require.ErrorIs(t, err, ErrNothingToLiquidate)
}

func TestBatchLiquidateSkipsInactiveOwners(t *testing.T) {
	f := newFixture(t)
	alice, bob, carol := addr(1), addr(2), addr(3)
	f.open(t, alice, "10", "1000", "200")
	f.open(t, bob, "100", "5000", "200")
	f.open(t, carol, "50", "2000", "200")

	_, err := f.engine.BatchLiquidate(addr(9), nil, dec("100"))
	require.ErrorIs(t, err, ErrEmptyLiquidationList)

	totals, err := f.engine.BatchLiquidate(addr(9), []crypto.Address{addr(7), alice, bob}, dec("100"))
	require.NoError(t, err)
	require.Len(t, totals.Liquidated, 1)
	require.Equal(t, alice, totals.Liquidated[0].Owner)
}

func TestRecoveryModeSequenceStopsOnceBackToNormal(t *testing.T) {
	f := newFixture(t)
	alice, bob, carol := addr(1), addr(2), addr(3)
	f.open(t, alice, "11.5", "1000", "200")
	f.open(t, bob, "13", "1000", "200")
	f.open(t, carol, "40", "2000", "200")
	f.provide(t, addr(4), "3000")

	recovery, err := f.engine.CheckRecoveryMode(dec("90"))
	require.NoError(t, err)
	require.True(t, recovery)

	totals, err := f.engine.LiquidateTroves(addr(9), 10, dec("90"))
	require.NoError(t, err)
	requireConserved(t, totals)
	require.Len(t, totals.Liquidated, 1)
	require.Equal(t, alice, totals.Liquidated[0].Owner)
	require.Equal(t, dec("1015"), totals.TotalDebtToOffset)
	require.True(t, totals.TotalDebtToRedistribute.IsZero())
	require.True(t, totals.TotalCollSurplus.IsZero())

	// Bob sits below the old TCR but the offset lifted the system out of
	// recovery mode, so he is above MCR and stays open.
	require.Equal(t, types.TroveActive, f.trove(t, bob).Status)
	recovery, err = f.engine.CheckRecoveryMode(dec("90"))
	require.NoError(t, err)
	require.False(t, recovery)

	owners, err := f.engine.SortedOwners()
	require.NoError(t, err)
	require.Equal(t, []crypto.Address{carol, bob}, owners)
}

func TestRecoveryModeBatchSplitsOffsetAndRedistribution(t *testing.T) {
	f := newFixture(t)
	alice, bob, carol := addr(1), addr(2), addr(3)
	f.open(t, alice, "11.5", "1000", "200")
	f.open(t, bob, "13", "1000", "200")
	f.open(t, carol, "40", "2000", "200")
	f.provide(t, addr(4), "500")

	totals, err := f.engine.BatchLiquidate(addr(9), []crypto.Address{alice, bob, carol}, dec("90"))
	require.NoError(t, err)
	requireConserved(t, totals)
	require.Len(t, totals.Liquidated, 1)
	v := totals.Liquidated[0]
	require.Equal(t, alice, v.Owner)
	require.Equal(t, dec("500"), v.DebtToOffset)
	require.Equal(t, dec("515"), v.DebtToRedistribute)
	require.Equal(t, dec("0.0575"), v.CollGasCompensation)
	require.False(t, v.CollToSendToSP.IsZero())
	require.False(t, v.CollToRedistribute.IsZero())
	require.True(t, v.CollSurplus.IsZero())

	deposits, err := f.sp.TotalDeposits()
	require.NoError(t, err)
	require.True(t, deposits.IsZero())
	def := f.pool(t, types.DefaultPool)
	require.Equal(t, dec("515"), def.Debt)
	require.Equal(t, v.CollToRedistribute, def.Coll)

	// The pool is exhausted and the system is still in recovery mode, so
	// bob and carol are skipped.
	recovery, err := f.engine.CheckRecoveryMode(dec("90"))
	require.NoError(t, err)
	require.True(t, recovery)
	require.Equal(t, types.TroveActive, f.trove(t, bob).Status)
	require.Equal(t, types.TroveActive, f.trove(t, carol).Status)
}

func TestRecoveryModeSkipsTrovesItCannotCap(t *testing.T) {
	f := newFixture(t)
	alice, bob := addr(1), addr(2)
	f.open(t, alice, "11.7", "1000", "200")
	f.open(t, bob, "14.7", "1000", "200")
	f.provide(t, addr(4), "500")

	recovery, err := f.engine.CheckRecoveryMode(dec("100"))
	require.NoError(t, err)
	require.True(t, recovery)

	// Bob is below CCR but at or above TCR.
	_, err = f.engine.Liquidate(addr(9), bob, dec("100"))
	require.ErrorIs(t, err, ErrNothingToLiquidate)

	// Alice is below TCR but her debt exceeds the pool.
	_, err = f.engine.Liquidate(addr(9), alice, dec("100"))
	require.ErrorIs(t, err, ErrNothingToLiquidate)
	require.Equal(t, types.TroveActive, f.trove(t, alice).Status)

	f.provide(t, addr(5), "1000")
	totals, err := f.engine.Liquidate(addr(9), alice, dec("100"))
	require.NoError(t, err)
	requireConserved(t, totals)
	require.Equal(t, dec("1015"), totals.TotalDebtToOffset)
	require.Equal(t, dec("0.535"), totals.TotalCollSurplus)
	require.Equal(t, types.TroveActive, f.trove(t, bob).Status)
}
