// Copyright (c) 2025 The Rotor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>
package rotor

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewPercent(t *testing.T) {
	p, err := NewPercent(100)
	assert.NoError(t, err)
	assert.Equal(t, Percent(100), p)

	_, err = NewPercent(101)
	assert.Error(t, err)
}

func TestPercentMul_Truncates(t *testing.T) {
	assert.Equal(t, big.NewInt(1), Percent(50).Mul(big.NewInt(3)))
	// compare via String: a zero produced by Div carries an empty (non-nil)
	// abs slice, which reflect.DeepEqual distinguishes from big.NewInt(0)
	assert.Equal(t, big.NewInt(0).String(), Percent(33).Mul(big.NewInt(2)).String())
	assert.Equal(t, big.NewInt(300), Percent(30).Mul(big.NewInt(1000)))
}

func TestPercentMulCeil_RoundsUp(t *testing.T) {
	// half of 3 rounds up to 2, the remainder stays uncompounded
	assert.Equal(t, big.NewInt(2), Percent(50).MulCeil(big.NewInt(3)))
	assert.Equal(t, big.NewInt(1), Percent(33).MulCeil(big.NewInt(2)))
	assert.Equal(t, big.NewInt(300), Percent(30).MulCeil(big.NewInt(1000)))
}

func TestPercentMul_Zero(t *testing.T) {
	assert.Equal(t, big.NewInt(0), Percent(0).Mul(big.NewInt(1000)))
	assert.Equal(t, big.NewInt(0), Percent(0).MulCeil(big.NewInt(1000)))
	assert.Equal(t, big.NewInt(1000), Percent(100).Mul(big.NewInt(1000)))
}
