package trove

import (
	"github.com/holiman/uint256"

	"solusd/core/events"
	"solusd/core/types"
	"solusd/native/fixedpoint"
)

const secondsInOneMinute = 60

func (e *Engine) minutesPassedSinceLastFeeOp(ledger *types.SystemLedger) uint64 {
	now := e.now()
	if now <= ledger.LastFeeOperationTime {
		return 0
	}
	return (now - ledger.LastFeeOperationTime) / secondsInOneMinute
}

// calcDecayedBaseRate applies the per-minute decay to the stored base rate.
func (e *Engine) calcDecayedBaseRate(ledger *types.SystemLedger) (*uint256.Int, error) {
	factor, err := fixedpoint.DecPow(e.params.MinuteDecayFactor, e.minutesPassedSinceLastFeeOp(ledger))
	if err != nil {
		return nil, err
	}
	return fixedpoint.MulDiv(ledger.BaseRate, factor, fixedpoint.DecimalPrecision)
}

// updateLastFeeOpTime advances the fee clock only once a full minute has
// passed.
func (e *Engine) updateLastFeeOpTime(ledger *types.SystemLedger) {
	now := e.now()
	if now >= ledger.LastFeeOperationTime+secondsInOneMinute {
		ledger.LastFeeOperationTime = now
	}
}

func (e *Engine) emitBaseRate(ledger *types.SystemLedger) {
	e.state.Emit(events.BaseRateUpdated{BaseRate: ledger.BaseRate, LastFeeOperationTime: ledger.LastFeeOperationTime}.Event())
}

func (e *Engine) decayBaseRateFromBorrowing(ledger *types.SystemLedger) error {
	decayed, err := e.calcDecayedBaseRate(ledger)
	if err != nil {
		return err
	}
	ledger.BaseRate = fixedpoint.Min(decayed, fixedpoint.DecimalPrecision)
	e.updateLastFeeOpTime(ledger)
	e.emitBaseRate(ledger)
	return nil
}

// updateBaseRateFromRedemption decays the base rate, then raises it by the
// redeemed share of the total supply divided by beta.
func (e *Engine) updateBaseRateFromRedemption(ledger *types.SystemLedger, collDrawn, price, totalSupply *uint256.Int) error {
	decayed, err := e.calcDecayedBaseRate(ledger)
	if err != nil {
		return err
	}
	fraction, err := fixedpoint.MulDiv(collDrawn, price, totalSupply)
	if err != nil {
		return err
	}
	increment := new(uint256.Int).Div(fraction, uint256.NewInt(e.params.Beta))
	newRate, err := fixedpoint.Add(decayed, increment)
	if err != nil {
		return err
	}
	ledger.BaseRate = fixedpoint.Min(newRate, fixedpoint.DecimalPrecision)
	e.updateLastFeeOpTime(ledger)
	e.emitBaseRate(ledger)
	return nil
}

func (e *Engine) borrowingRate(baseRate *uint256.Int) (*uint256.Int, error) {
	rate, err := fixedpoint.Add(e.params.BorrowingFeeFloor, baseRate)
	if err != nil {
		return nil, err
	}
	return fixedpoint.Min(rate, e.params.MaxBorrowingFee), nil
}

func (e *Engine) redemptionRate(baseRate *uint256.Int) (*uint256.Int, error) {
	rate, err := fixedpoint.Add(e.params.RedemptionFeeFloor, baseRate)
	if err != nil {
		return nil, err
	}
	return fixedpoint.Min(rate, fixedpoint.DecimalPrecision), nil
}

func (e *Engine) borrowingFee(baseRate, debt *uint256.Int) (*uint256.Int, error) {
	rate, err := e.borrowingRate(baseRate)
	if err != nil {
		return nil, err
	}
	return fixedpoint.MulDiv(rate, debt, fixedpoint.DecimalPrecision)
}

func (e *Engine) redemptionFee(baseRate, collDrawn *uint256.Int) (*uint256.Int, error) {
	rate, err := e.redemptionRate(baseRate)
	if err != nil {
		return nil, err
	}
	fee, err := fixedpoint.MulDiv(rate, collDrawn, fixedpoint.DecimalPrecision)
	if err != nil {
		return nil, err
	}
	if !fee.Lt(collDrawn) {
		return nil, ErrFeeEatsCollateral
	}
	return fee, nil
}

// requireUserAcceptsFee rejects fees above maxFee as a fraction of amount.
func requireUserAcceptsFee(fee, amount, maxFee *uint256.Int) error {
	pct, err := fixedpoint.MulDiv(fee, fixedpoint.DecimalPrecision, amount)
	if err != nil {
		return err
	}
	if pct.Gt(maxFee) {
		return ErrFeeExceeded
	}
	return nil
}

// BorrowingRate returns the current (decayed) borrowing fee rate.
func (e *Engine) BorrowingRate() (*uint256.Int, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	ledger, err := e.state.SystemLedger()
	if err != nil {
		return nil, err
	}
	decayed, err := e.calcDecayedBaseRate(ledger)
	if err != nil {
		return nil, err
	}
	return e.borrowingRate(decayed)
}

// RedemptionRate returns the current (decayed) redemption fee rate.
func (e *Engine) RedemptionRate() (*uint256.Int, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	ledger, err := e.state.SystemLedger()
	if err != nil {
		return nil, err
	}
	decayed, err := e.calcDecayedBaseRate(ledger)
	if err != nil {
		return nil, err
	}
	return e.redemptionRate(decayed)
}
