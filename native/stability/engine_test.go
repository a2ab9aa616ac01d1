package stability

import (
	"testing"
	"time"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"solusd/core/state"
	"solusd/core/types"
	"solusd/crypto"
	"solusd/native/fixedpoint"
	"solusd/native/issuance"
	"solusd/storage"
)

type movedGain struct {
	owner  crypto.Address
	source crypto.Address
	coll   *uint256.Int
}

type fakeTroves struct {
	active map[crypto.Address]bool
	below  bool
	moved  []movedGain
}

func (f *fakeTroves) HasActiveTrove(owner crypto.Address) (bool, error) { return f.active[owner], nil }

func (f *fakeTroves) LowestICRBelowMCR(*uint256.Int) (bool, error) { return f.below, nil }

func (f *fakeTroves) MoveCollGainToTrove(owner, source crypto.Address, coll, _ *uint256.Int) error {
	f.moved = append(f.moved, movedGain{owner: owner, source: source, coll: coll})
	return nil
}

type fixture struct {
	txn    *state.Txn
	engine *Engine
	troves *fakeTroves
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	txn := state.NewManager(storage.NewMemDB()).Begin()
	require.NoError(t, txn.PutPool(types.ActivePool, &types.Pool{Coll: dec("1000"), Debt: dec("100000")}))
	troves := &fakeTroves{active: make(map[crypto.Address]bool)}
	engine := NewEngine()
	engine.SetState(txn)
	engine.SetTroveManager(troves)
	return &fixture{txn: txn, engine: engine, troves: troves}
}

func (f *fixture) provide(t *testing.T, owner crypto.Address, amount string) {
	t.Helper()
	_, err := f.engine.ProvideToStabilityPool(owner, dec(amount), crypto.ZeroAddress)
	require.NoError(t, err)
}

func (f *fixture) view(t *testing.T, owner crypto.Address) *DepositView {
	t.Helper()
	v, err := f.engine.DepositView(owner)
	require.NoError(t, err)
	return v
}

func addr(b byte) crypto.Address {
	var a crypto.Address
	a[19] = b
	return a
}

func dec(v string) *uint256.Int { return fixedpoint.MustParseDecimal(v) }

func requireApprox(t *testing.T, expected, actual, tolerance *uint256.Int) {
	t.Helper()
	diff := new(uint256.Int)
	if actual.Gt(expected) {
		diff.Sub(actual, expected)
	} else {
		diff.Sub(expected, actual)
	}
	require.False(t, diff.Gt(tolerance), "expected %s got %s", expected.Dec(), actual.Dec())
}

func TestFullDepletionStartsNewEpoch(t *testing.T) {
	f := newFixture(t)
	alice := addr(1)
	f.provide(t, alice, "1000")

	require.NoError(t, f.engine.Offset(dec("1000"), dec("10")))

	sp, err := f.engine.Pool()
	require.NoError(t, err)
	require.Equal(t, fixedpoint.DecimalPrecision, sp.P)
	require.Equal(t, uint64(1), sp.CurrentEpoch)
	require.Equal(t, uint64(0), sp.CurrentScale)
	require.True(t, sp.TotalDeposits.IsZero())
	require.True(t, sp.LastDebtLossError.IsZero())
	require.Equal(t, dec("10"), sp.Coll)

	v := f.view(t, alice)
	require.True(t, v.Compounded.IsZero())
	require.Equal(t, dec("10"), v.CollGain)

	active, err := f.txn.Pool(types.ActivePool)
	require.NoError(t, err)
	require.Equal(t, dec("99000"), active.Debt)
	require.Equal(t, dec("990"), active.Coll)
}

func TestOffsetOnEmptyPoolIsNoop(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.engine.Offset(dec("10"), dec("1")))
	sp, err := f.engine.Pool()
	require.NoError(t, err)
	require.True(t, sp.Coll.IsZero())
	require.Empty(t, f.txn.Events())
}

func TestCompoundedDepositsShrinkProportionally(t *testing.T) {
	f := newFixture(t)
	alice, bob := addr(1), addr(2)
	f.provide(t, alice, "100")
	f.provide(t, bob, "300")

	require.NoError(t, f.engine.Offset(dec("200"), dec("2")))

	a, b := f.view(t, alice), f.view(t, bob)
	requireApprox(t, dec("50"), a.Compounded, uint256.NewInt(1000))
	requireApprox(t, dec("150"), b.Compounded, uint256.NewInt(1000))
	require.False(t, a.Compounded.Gt(dec("50")))
	require.Equal(t, dec("0.5"), a.CollGain)
	require.Equal(t, dec("1.5"), b.CollGain)

	previous := a.Compounded
	for _, debt := range []string{"10", "33.3", "0.000001", "60"} {
		require.NoError(t, f.engine.Offset(dec(debt), dec("0.1")))
		current := f.view(t, alice).Compounded
		require.False(t, current.Gt(previous))
		previous = current
	}
}

func TestScaleChangeKeepsLaterDepositsWhole(t *testing.T) {
	f := newFixture(t)
	alice, bob := addr(1), addr(2)
	f.provide(t, alice, "1000")

	// Leave 1e13 wei in the pool: P drops to about 1e10.
	remaining := uint256.NewInt(10_000_000_000_000)
	first := new(uint256.Int).Sub(dec("1000"), remaining)
	require.NoError(t, f.engine.Offset(first, dec("1")))
	sp, err := f.engine.Pool()
	require.NoError(t, err)
	require.Equal(t, uint64(0), sp.CurrentScale)

	f.provide(t, bob, "1000")
	total, err := f.engine.TotalDeposits()
	require.NoError(t, err)
	second := new(uint256.Int).Div(new(uint256.Int).Mul(total, uint256.NewInt(99)), uint256.NewInt(100))
	require.NoError(t, f.engine.Offset(second, dec("1")))

	sp, err = f.engine.Pool()
	require.NoError(t, err)
	require.Equal(t, uint64(1), sp.CurrentScale)
	require.Equal(t, uint64(0), sp.CurrentEpoch)
	require.False(t, sp.P.Lt(fixedpoint.ScaleFactor))

	requireApprox(t, dec("10"), f.view(t, bob).Compounded, dec("0.0001"))
	require.True(t, f.view(t, alice).Compounded.IsZero())
}

func TestProvideWithdrawRoundTrip(t *testing.T) {
	f := newFixture(t)
	alice := addr(1)
	f.provide(t, alice, "250")

	res, err := f.engine.WithdrawFromStabilityPool(alice, dec("250"), dec("2000"))
	require.NoError(t, err)
	require.True(t, res.Deposit.IsZero())
	require.True(t, res.DebtLoss.IsZero())

	total, err := f.engine.TotalDeposits()
	require.NoError(t, err)
	require.True(t, total.IsZero())

	transfers := f.txn.Transfers()
	require.Len(t, transfers, 2)
	require.Equal(t, alice, transfers[0].From)
	require.Equal(t, alice, transfers[1].To)
	require.Equal(t, dec("250"), transfers[1].Amount)

	_, err = f.engine.WithdrawFromStabilityPool(alice, dec("1"), dec("2000"))
	require.ErrorIs(t, err, ErrNoDeposit)
}

func TestWithdrawBlockedByUndercollateralizedTroves(t *testing.T) {
	f := newFixture(t)
	alice := addr(1)
	f.provide(t, alice, "10")
	f.troves.below = true

	_, err := f.engine.WithdrawFromStabilityPool(alice, dec("1"), dec("2000"))
	require.ErrorIs(t, err, ErrUnderCollateralizedTroves)

	// Claiming gains alone stays possible.
	_, err = f.engine.WithdrawFromStabilityPool(alice, fixedpoint.Zero(), nil)
	require.NoError(t, err)
}

func TestWithdrawCollateralGainToTrove(t *testing.T) {
	f := newFixture(t)
	alice := addr(1)
	f.provide(t, alice, "100")

	_, err := f.engine.WithdrawCollateralGainToTrove(alice, dec("2000"))
	require.ErrorIs(t, err, ErrNoActiveTrove)

	f.troves.active[alice] = true
	_, err = f.engine.WithdrawCollateralGainToTrove(alice, dec("2000"))
	require.ErrorIs(t, err, ErrNoCollGain)

	require.NoError(t, f.engine.Offset(dec("50"), dec("0.5")))
	res, err := f.engine.WithdrawCollateralGainToTrove(alice, dec("2000"))
	require.NoError(t, err)
	require.Equal(t, dec("0.5"), res.CollGain)
	require.Len(t, f.troves.moved, 1)
	require.Equal(t, f.engine.Account(), f.troves.moved[0].source)

	sp, err := f.engine.Pool()
	require.NoError(t, err)
	require.True(t, sp.Coll.IsZero())
	require.True(t, f.view(t, alice).CollGain.IsZero())
}

func TestFrontEndRegistrationRules(t *testing.T) {
	f := newFixture(t)
	fe, alice := addr(9), addr(1)

	require.ErrorIs(t, f.engine.RegisterFrontEnd(fe, dec("1.01")), ErrInvalidKickbackRate)
	require.NoError(t, f.engine.RegisterFrontEnd(fe, dec("0.8")))
	require.ErrorIs(t, f.engine.RegisterFrontEnd(fe, dec("0.8")), ErrFrontEndRegistered)

	_, err := f.engine.ProvideToStabilityPool(fe, dec("1"), crypto.ZeroAddress)
	require.ErrorIs(t, err, ErrFrontEndRegistered)
	_, err = f.engine.ProvideToStabilityPool(alice, dec("1"), addr(7))
	require.ErrorIs(t, err, ErrFrontEndNotRegistered)

	f.provide(t, alice, "1")
	require.ErrorIs(t, f.engine.RegisterFrontEnd(alice, dec("0.5")), ErrHasDeposit)
}

func TestIssuanceSplitsBetweenDepositorsAndFrontEnd(t *testing.T) {
	f := newFixture(t)
	start := time.Unix(1_700_000_000, 0)
	now := start
	require.NoError(t, f.txn.PutIssuanceState(&types.IssuanceState{TotalIssued: fixedpoint.Zero(), DeploymentTime: uint64(start.Unix())}))
	issuer := issuance.NewEngine(issuance.DefaultParams())
	issuer.SetState(f.txn)
	issuer.SetClock(func() time.Time { return now })
	f.engine.SetIssuer(issuer)

	fe, alice, bob := addr(9), addr(1), addr(2)
	require.NoError(t, f.engine.RegisterFrontEnd(fe, dec("0.8")))
	f.provide(t, alice, "100")
	_, err := f.engine.ProvideToStabilityPool(bob, dec("100"), fe)
	require.NoError(t, err)

	now = start.Add(24 * time.Hour)
	issued, err := f.engine.TriggerIssuance()
	require.NoError(t, err)
	require.False(t, issued.IsZero())

	half := new(uint256.Int).Div(issued, uint256.NewInt(2))
	tolerance := uint256.NewInt(1_000_000)
	requireApprox(t, half, f.view(t, alice).IssuanceGain, tolerance)
	requireApprox(t, new(uint256.Int).Div(new(uint256.Int).Mul(half, uint256.NewInt(8)), uint256.NewInt(10)), f.view(t, bob).IssuanceGain, tolerance)

	feView, err := f.engine.FrontEndView(fe)
	require.NoError(t, err)
	require.Equal(t, dec("100"), feView.Stake)
	requireApprox(t, new(uint256.Int).Div(half, uint256.NewInt(5)), feView.IssuanceGain, tolerance)

	res, err := f.engine.WithdrawFromStabilityPool(bob, fixedpoint.Zero(), nil)
	require.NoError(t, err)
	require.False(t, res.IssuanceGain.IsZero())
	require.False(t, res.FrontEndGain.IsZero())

	paid := 0
	for _, tr := range f.txn.Transfers() {
		if tr.Asset == types.AssetIssuance {
			require.Equal(t, issuer.Account(), tr.From)
			paid++
		}
	}
	require.Equal(t, 2, paid)
}
