// Copyright (c) 2025 The Rotor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>
package staking

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoundShouldAdvance(t *testing.T) {
	r := Round{Index: 1, First: 100, Length: 10}

	assert.False(t, r.ShouldAdvance(100))
	assert.False(t, r.ShouldAdvance(109))
	assert.True(t, r.ShouldAdvance(110))
	assert.True(t, r.ShouldAdvance(150))

	// a clock below First never triggers an advance
	assert.False(t, r.ShouldAdvance(99))
}

func TestRoundAdvance_Monotonic(t *testing.T) {
	r := Round{Index: 1, First: 0, Length: 10}

	r.Advance(10)
	assert.Equal(t, uint32(2), r.Index)
	assert.Equal(t, uint32(10), r.First)

	r.Advance(20)
	assert.Equal(t, uint32(3), r.Index)
	assert.Equal(t, uint32(20), r.First)
}

func TestRoundAdvance_Saturates(t *testing.T) {
	r := Round{Index: math.MaxUint32, First: 0, Length: 10}
	r.Advance(10)
	assert.Equal(t, uint32(math.MaxUint32), r.Index)
	assert.Equal(t, uint32(10), r.First)
}

func TestRoundValidate(t *testing.T) {
	assert.NoError(t, (&Round{Index: 1, Length: 1}).Validate())
	assert.Error(t, (&Round{Index: 1, Length: 0}).Validate())
	assert.Error(t, (&Round{Index: 0, Length: 1}).Validate())
}
