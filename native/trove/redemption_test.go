package trove

import (
	"testing"
	"time"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"solusd/core/types"
	"solusd/native/fixedpoint"
)

func TestPartialRedemptionUpdatesBaseRate(t *testing.T) {
	f := newFixture(t)
	alice, bob, redeemer := addr(1), addr(2), addr(5)
	f.open(t, alice, "10", "1000", "200")
	f.open(t, bob, "20", "1000", "200")

	result, err := f.engine.RedeemCollateral(RedemptionRequest{Redeemer: redeemer, Amount: dec("500"), MaxFee: dec("1")}, dec("200"))
	require.NoError(t, err)
	require.Equal(t, dec("500"), result.Redeemed)
	require.Equal(t, dec("2.5"), result.CollDrawn)
	require.Equal(t, result.CollDrawn, sum(result.CollFee, result.CollSent))
	require.Len(t, result.Troves, 1)
	require.Equal(t, alice, result.Troves[0])

	// 2.5*200/2030 halved by beta.
	require.Equal(t, "123152709359605911", f.ledger(t).BaseRate.Dec())

	trove := f.trove(t, alice)
	require.Equal(t, dec("515"), trove.Debt)
	require.Equal(t, dec("7.5"), trove.Coll)

	active := f.pool(t, types.ActivePool)
	require.Equal(t, dec("1530"), active.Debt)
	require.Equal(t, dec("27.5"), active.Coll)

	last := f.txn.Transfers()[len(f.txn.Transfers())-1]
	require.Equal(t, redeemer, last.To)
	require.Equal(t, result.CollSent, last.Amount)
}

func TestBaseRateDecaysWithHalfLifeOfTwelveHours(t *testing.T) {
	f := newFixture(t)
	f.open(t, addr(1), "10", "1000", "200")
	f.open(t, addr(2), "20", "1000", "200")
	_, err := f.engine.RedeemCollateral(RedemptionRequest{Redeemer: addr(5), Amount: dec("500"), MaxFee: dec("1")}, dec("200"))
	require.NoError(t, err)
	base := f.ledger(t).BaseRate

	f.now = f.now.Add(12 * time.Hour)
	rate, err := f.engine.RedemptionRate()
	require.NoError(t, err)
	expected := sum(testParams().RedemptionFeeFloor, new(uint256.Int).Div(base, uint256.NewInt(2)))
	diff := new(uint256.Int)
	if rate.Gt(expected) {
		diff.Sub(rate, expected)
	} else {
		diff.Sub(expected, rate)
	}
	require.True(t, diff.Lt(dec("0.000001")), "rate %s", rate.Dec())

	borrowing, err := f.engine.BorrowingRate()
	require.NoError(t, err)
	require.Equal(t, testParams().MaxBorrowingFee, borrowing)

	// Decayed base rate still exceeds the caller's tolerance.
	_, err = f.engine.OpenTrove(addr(3), dec("0.01"), dec("1000"), dec("20"), dec("200"))
	require.ErrorIs(t, err, ErrFeeExceeded)
}

func TestFullRedemptionClosesTrove(t *testing.T) {
	f := newFixture(t)
	alice, bob := addr(1), addr(2)
	f.open(t, alice, "10", "1000", "200")
	f.open(t, bob, "20", "1000", "200")

	result, err := f.engine.RedeemCollateral(RedemptionRequest{Redeemer: addr(5), Amount: dec("1005"), MaxFee: dec("1")}, dec("200"))
	require.NoError(t, err)
	require.Equal(t, dec("1005"), result.Redeemed)

	trove := f.trove(t, alice)
	require.Equal(t, types.TroveClosedByRedemption, trove.Status)

	surplus, err := f.txn.Surplus(alice)
	require.NoError(t, err)
	require.Equal(t, dec("4.975"), surplus)
	require.Equal(t, dec("4.975"), f.pool(t, types.CollSurplusPool).Coll)
	require.Equal(t, dec("10"), f.pool(t, types.GasPool).Debt)
	require.Equal(t, dec("20"), f.ledger(t).TotalStakes)
}

func TestPartialRedemptionCancelledBelowMinDebtOrBadHint(t *testing.T) {
	f := newFixture(t)
	f.open(t, addr(1), "10", "1000", "200")
	f.open(t, addr(2), "20", "1000", "200")

	_, err := f.engine.RedeemCollateral(RedemptionRequest{Redeemer: addr(5), Amount: dec("950"), MaxFee: dec("1")}, dec("200"))
	require.ErrorIs(t, err, ErrUnableToRedeem)

	_, err = f.engine.RedeemCollateral(RedemptionRequest{Redeemer: addr(5), Amount: dec("500"), MaxFee: dec("1"), PartialHintNICR: fixedpoint.One()}, dec("200"))
	require.ErrorIs(t, err, ErrUnableToRedeem)

	// The exact resulting NICR is accepted.
	hint, err := fixedpoint.ComputeNominalCR(dec("7.5"), dec("515"))
	require.NoError(t, err)
	_, err = f.engine.RedeemCollateral(RedemptionRequest{Redeemer: addr(5), Amount: dec("500"), MaxFee: dec("1"), PartialHintNICR: hint}, dec("200"))
	require.NoError(t, err)
}

func TestRedemptionPreconditions(t *testing.T) {
	params := testParams()
	params.BootstrapPeriod = 14 * 24 * time.Hour
	f := newFixtureWithParams(t, params)
	require.NoError(t, f.txn.PutIssuanceState(&types.IssuanceState{TotalIssued: fixedpoint.Zero(), DeploymentTime: uint64(f.now.Unix())}))
	f.open(t, addr(1), "10", "1000", "200")
	f.open(t, addr(2), "20", "1000", "200")

	req := RedemptionRequest{Redeemer: addr(5), Amount: dec("100"), MaxFee: dec("1")}
	_, err := f.engine.RedeemCollateral(req, dec("200"))
	require.ErrorIs(t, err, ErrBootstrapPeriod)

	f.now = f.now.Add(15 * 24 * time.Hour)
	_, err = f.engine.RedeemCollateral(RedemptionRequest{Redeemer: addr(5), Amount: dec("100"), MaxFee: dec("0.001")}, dec("200"))
	require.ErrorIs(t, err, ErrInvalidMaxFee)
	_, err = f.engine.RedeemCollateral(RedemptionRequest{Redeemer: addr(5), Amount: fixedpoint.Zero(), MaxFee: dec("1")}, dec("200"))
	require.ErrorIs(t, err, ErrZeroAmount)
	_, err = f.engine.RedeemCollateral(req, dec("60"))
	require.ErrorIs(t, err, ErrTCRBelowMCR)
	_, err = f.engine.RedeemCollateral(RedemptionRequest{Redeemer: addr(5), Amount: dec("500"), MaxFee: dec("0.01")}, dec("200"))
	require.ErrorIs(t, err, ErrFeeExceeded)
}
