// Copyright (c) 2025 The Rotor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package rotor

import (
	"math/big"

	"github.com/pkg/errors"
)

// Percent is an integer percentage in [0, 100]. It is the fixed-point unit
// used for commission rates, the issuance reserve fraction and per-backer
// auto-compound fractions.
type Percent uint8

var hundred = big.NewInt(100)

// NewPercent validates v and returns it as a Percent.
func NewPercent(v uint8) (Percent, error) {
	if v > 100 {
		return 0, errors.Errorf("percent out of range: %d", v)
	}
	return Percent(v), nil
}

// IsValid returns true if the percent is within [0, 100].
func (p Percent) IsValid() bool {
	return p <= 100
}

// Mul returns x * p / 100, truncating. x is not modified.
func (p Percent) Mul(x *big.Int) *big.Int {
	v := new(big.Int).Mul(x, big.NewInt(int64(p)))
	return v.Div(v, hundred)
}

// MulCeil returns x * p / 100, rounding up. x is not modified.
// The asymmetry with Mul is deliberate: compounded amounts round toward
// the stake, truncated shares round toward the payer.
func (p Percent) MulCeil(x *big.Int) *big.Int {
	v := new(big.Int).Mul(x, big.NewInt(int64(p)))
	var rem big.Int
	v.DivMod(v, hundred, &rem)
	if rem.Sign() > 0 {
		v.Add(v, big.NewInt(1))
	}
	return v
}
