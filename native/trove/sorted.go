package trove

import (
	"sort"

	"github.com/holiman/uint256"

	"solusd/crypto"
	"solusd/native/fixedpoint"
)

// sortedIndex keeps active troves ordered by nominal ICR, highest first. The
// NICR of a trove is evaluated with its pending rewards folded in, which
// preserves the order across redistributions.
type sortedIndex struct {
	e *Engine
}

func (e *Engine) index() sortedIndex { return sortedIndex{e: e} }

// currentNICR returns the trove's nominal ICR including pending rewards.
func (e *Engine) currentNICR(owner crypto.Address) (*uint256.Int, error) {
	trove, err := e.state.Trove(owner)
	if err != nil {
		return nil, err
	}
	ledger, err := e.state.SystemLedger()
	if err != nil {
		return nil, err
	}
	amounts, err := entireDebtAndColl(trove, ledger)
	if err != nil {
		return nil, err
	}
	return fixedpoint.ComputeNominalCR(amounts.Coll, amounts.Debt)
}

// currentICR returns the trove's ICR at price including pending rewards.
func (e *Engine) currentICR(owner crypto.Address, price *uint256.Int) (*uint256.Int, error) {
	trove, err := e.state.Trove(owner)
	if err != nil {
		return nil, err
	}
	ledger, err := e.state.SystemLedger()
	if err != nil {
		return nil, err
	}
	amounts, err := entireDebtAndColl(trove, ledger)
	if err != nil {
		return nil, err
	}
	return fixedpoint.ComputeCR(amounts.Coll, amounts.Debt, price)
}

func (s sortedIndex) owners() ([]crypto.Address, error) {
	sorted, err := s.e.state.SortedTroves()
	if err != nil {
		return nil, err
	}
	return sorted.Owners, nil
}

func (s sortedIndex) store(owners []crypto.Address) error {
	sorted, err := s.e.state.SortedTroves()
	if err != nil {
		return err
	}
	sorted.Owners = owners
	return s.e.state.PutSortedTroves(sorted)
}

func (s sortedIndex) size() (int, error) {
	owners, err := s.owners()
	if err != nil {
		return 0, err
	}
	return len(owners), nil
}

func (s sortedIndex) contains(owner crypto.Address) (bool, error) {
	owners, err := s.owners()
	if err != nil {
		return false, err
	}
	return indexOf(owners, owner) >= 0, nil
}

func indexOf(owners []crypto.Address, owner crypto.Address) int {
	for i, o := range owners {
		if o == owner {
			return i
		}
	}
	return -1
}

// insert places owner after every trove whose NICR is at least nicr.
func (s sortedIndex) insert(owner crypto.Address, nicr *uint256.Int) error {
	owners, err := s.owners()
	if err != nil {
		return err
	}
	if indexOf(owners, owner) >= 0 {
		return ErrTroveActive
	}
	var searchErr error
	pos := sort.Search(len(owners), func(i int) bool {
		if searchErr != nil {
			return true
		}
		current, err := s.e.currentNICR(owners[i])
		if err != nil {
			searchErr = err
			return true
		}
		return current.Lt(nicr)
	})
	if searchErr != nil {
		return searchErr
	}
	owners = append(owners, crypto.Address{})
	copy(owners[pos+1:], owners[pos:])
	owners[pos] = owner
	return s.store(owners)
}

func (s sortedIndex) remove(owner crypto.Address) error {
	owners, err := s.owners()
	if err != nil {
		return err
	}
	idx := indexOf(owners, owner)
	if idx < 0 {
		return ErrTroveNotActive
	}
	return s.store(append(owners[:idx], owners[idx+1:]...))
}

func (s sortedIndex) reInsert(owner crypto.Address, nicr *uint256.Int) error {
	if err := s.remove(owner); err != nil {
		return err
	}
	return s.insert(owner, nicr)
}

// first returns the trove with the highest NICR.
func (s sortedIndex) first() (crypto.Address, bool, error) {
	owners, err := s.owners()
	if err != nil || len(owners) == 0 {
		return crypto.ZeroAddress, false, err
	}
	return owners[0], true, nil
}

// last returns the trove with the lowest NICR.
func (s sortedIndex) last() (crypto.Address, bool, error) {
	owners, err := s.owners()
	if err != nil || len(owners) == 0 {
		return crypto.ZeroAddress, false, err
	}
	return owners[len(owners)-1], true, nil
}

// prev returns the neighbour with the next higher NICR.
func (s sortedIndex) prev(owner crypto.Address) (crypto.Address, bool, error) {
	owners, err := s.owners()
	if err != nil {
		return crypto.ZeroAddress, false, err
	}
	idx := indexOf(owners, owner)
	if idx <= 0 {
		return crypto.ZeroAddress, false, nil
	}
	return owners[idx-1], true, nil
}
