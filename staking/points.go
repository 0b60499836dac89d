// Copyright (c) 2025 The Rotor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package staking

import (
	"github.com/rotorlabs/rotor/rotor"
)

// pointsLedger tallies per-round performance points. The block-authorship
// hook writes it once per block; payout consumes and clears it.
type pointsLedger struct {
	store *storage
}

// Award grants the block author its per-block points for the round.
func (p *pointsLedger) Award(round uint32, author rotor.Address) error {
	return p.store.AddPoints(round, author, rotor.PointsPerBlock)
}

// Total returns the round's total points.
func (p *pointsLedger) Total(round uint32) (uint64, error) {
	return p.store.PointsTotal(round)
}

// Take removes and returns one participant's points for the round.
func (p *pointsLedger) Take(round uint32, acc rotor.Address) (uint64, error) {
	return p.store.TakePoints(round, acc)
}

// Clear drops the round's tally once its payout is fully settled.
func (p *pointsLedger) Clear(round uint32) error {
	return p.store.ClearPoints(round)
}
