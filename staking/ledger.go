// Copyright (c) 2025 The Rotor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package staking

import (
	"math/big"
	"sync"

	"github.com/pkg/errors"

	"github.com/rotorlabs/rotor/rotor"
)

// Ledger is the currency collaborator of the engine. Failures are non-fatal
// to reward processing: the engine logs and continues.
type Ledger interface {
	// Credit mints the amount into the account's free balance and returns
	// the amount actually credited.
	Credit(acc rotor.Address, amount *big.Int) (*big.Int, error)

	// Transfer moves the amount between free balances.
	Transfer(from, to rotor.Address, amount *big.Int) error

	// LockForStake moves the amount from the account's free balance into
	// its staked balance.
	LockForStake(acc rotor.Address, amount *big.Int) error
}

// MemLedger is an in-memory ledger used by tests and the dev node.
type MemLedger struct {
	mu     sync.Mutex
	free   map[rotor.Address]*big.Int
	staked map[rotor.Address]*big.Int
}

var _ Ledger = (*MemLedger)(nil)

// NewMemLedger creates an empty in-memory ledger.
func NewMemLedger() *MemLedger {
	return &MemLedger{
		free:   make(map[rotor.Address]*big.Int),
		staked: make(map[rotor.Address]*big.Int),
	}
}

func balanceOf(m map[rotor.Address]*big.Int, acc rotor.Address) *big.Int {
	if b, ok := m[acc]; ok {
		return b
	}
	b := new(big.Int)
	m[acc] = b
	return b
}

// Credit mints the amount into the account's free balance.
func (l *MemLedger) Credit(acc rotor.Address, amount *big.Int) (*big.Int, error) {
	if amount.Sign() < 0 {
		return nil, errors.New("negative amount")
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	balanceOf(l.free, acc).Add(balanceOf(l.free, acc), amount)
	return new(big.Int).Set(amount), nil
}

// Transfer moves the amount between free balances.
func (l *MemLedger) Transfer(from, to rotor.Address, amount *big.Int) error {
	if amount.Sign() < 0 {
		return errors.New("negative amount")
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	src := balanceOf(l.free, from)
	if src.Cmp(amount) < 0 {
		return errors.Errorf("insufficient balance: %v < %v", src, amount)
	}
	src.Sub(src, amount)
	balanceOf(l.free, to).Add(balanceOf(l.free, to), amount)
	return nil
}

// LockForStake moves the amount from free into staked balance.
func (l *MemLedger) LockForStake(acc rotor.Address, amount *big.Int) error {
	if amount.Sign() < 0 {
		return errors.New("negative amount")
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	free := balanceOf(l.free, acc)
	if free.Cmp(amount) < 0 {
		return errors.Errorf("insufficient free balance to stake: %v < %v", free, amount)
	}
	free.Sub(free, amount)
	balanceOf(l.staked, acc).Add(balanceOf(l.staked, acc), amount)
	return nil
}

// FreeBalance returns the account's free balance.
func (l *MemLedger) FreeBalance(acc rotor.Address) *big.Int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return new(big.Int).Set(balanceOf(l.free, acc))
}

// StakedBalance returns the account's staked balance.
func (l *MemLedger) StakedBalance(acc rotor.Address) *big.Int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return new(big.Int).Set(balanceOf(l.staked, acc))
}
