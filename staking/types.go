// Copyright (c) 2025 The Rotor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package staking

import (
	"math/big"

	"github.com/rotorlabs/rotor/rotor"
)

// BackerBond is one counted backer inside an exposure snapshot: the backer's
// bonded amount and its auto-compound fraction as configured at snapshot time.
type BackerBond struct {
	Backer       rotor.Address
	Amount       *big.Int
	AutoCompound rotor.Percent
}

// Exposure is the per-round stake snapshot of a selected participant.
// It is written once at selection time and consumed exactly once by the
// reward distributor; it is never mutated in between.
//
// Total covers the participant's own bond plus the counted backers only.
// Overflow backers keep their bond but take no part in the round's reward.
type Exposure struct {
	OwnBond *big.Int
	Total   *big.Int
	Backers []BackerBond // ordered: amount descending, address ascending on ties
}

// DelayedPayout describes the deferred settlement of one round.
// It is created when the paying round ends plus the configured delay, and
// removed once every selected participant of that round is paid or skipped.
type DelayedPayout struct {
	RoundIssuance      *big.Int
	TotalStakingReward *big.Int
	CommissionRate     rotor.Percent
}

// SelectionResult summarizes one round's candidate selection.
type SelectionResult struct {
	Selected    []rotor.Address
	BackerCount uint32
	TotalStaked *big.Int
	Stalled     bool // previous round's snapshots were reused
}

// Outcome classifies a single payout tick.
type Outcome uint8

const (
	// Finished means nothing was left to settle for the round.
	Finished Outcome = iota
	// Paid means one participant (and possibly its backers) was compensated.
	Paid
	// Skipped means one participant was selected but never authored a block,
	// so no funds moved.
	Skipped
)

func (o Outcome) String() string {
	switch o {
	case Finished:
		return "finished"
	case Paid:
		return "paid"
	case Skipped:
		return "skipped"
	default:
		return "unknown"
	}
}
