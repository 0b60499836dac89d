// Copyright (c) 2025 The Rotor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package staking

import (
	"math"

	"github.com/pkg/errors"
)

// Round tracks the current round of the engine: its monotonic index, the
// block it started at, and its length in blocks. It is created at genesis
// with index 1 and mutated in place on every advance, never destroyed.
type Round struct {
	Index  uint32
	First  uint32
	Length uint32
}

// ShouldAdvance returns whether the round boundary has been crossed at the
// given block. The block clock is monotonic; a block below First means the
// caller's clock went backwards and no advance is due.
func (r *Round) ShouldAdvance(now uint32) bool {
	return now >= r.First && now-r.First >= r.Length
}

// Advance moves the round forward: the index is incremented (saturating)
// and the new round starts at the given block.
func (r *Round) Advance(now uint32) {
	if r.Index < math.MaxUint32 {
		r.Index++
	}
	r.First = now
}

// Validate checks the structural invariants of the round.
func (r *Round) Validate() error {
	if r.Length == 0 {
		return errors.New("round length must be positive")
	}
	if r.Index == 0 {
		return errors.New("round index must be positive")
	}
	return nil
}
