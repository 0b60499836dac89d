// Copyright (c) 2025 The Rotor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package staking

import (
	"math/big"

	"github.com/rotorlabs/rotor/log"
	"github.com/rotorlabs/rotor/rotor"
)

var compoundLogger = log.WithContext("pkg", "staking", "component", "compound")

// compounder pays a backer's share and re-bonds the configured fraction of
// it back onto the candidate.
type compounder struct {
	ledger Ledger
	pool   *CandidatePool
	sink   Sink
}

// Apply credits the share to the backer unconditionally, then attempts to
// re-bond ceil(fraction × share) onto the (backer, candidate) relationship.
//
// Every re-bond failure is swallowed here: a pending revoke request skips
// the re-bond silently (the credited payout stays as free balance), and any
// other failure is logged and discarded. The payout itself must never be
// reverted or blocked by a compounding failure.
func (c *compounder) Apply(round uint32, share *big.Int, fraction rotor.Percent, candidate, backer rotor.Address) {
	actual, err := c.ledger.Credit(backer, share)
	if err != nil {
		compoundLogger.Warn("backer payout failed",
			"round", round, "backer", backer, "amount", share, "error", err)
		return
	}
	c.sink.Publish(BackerRewarded{Round: round, Backer: backer, Amount: actual})

	// Rounds up, unlike the truncating division used for shares. The bias
	// toward compounding is intended.
	compound := fraction.MulCeil(share)
	if compound.Sign() == 0 {
		return
	}

	pending, err := c.pool.HasPendingRevoke(candidate, backer)
	if err != nil {
		compoundLogger.Warn("revoke lookup failed",
			"candidate", candidate, "backer", backer, "error", err)
		return
	}
	if pending {
		// Expected user state, not an error. The payout is kept as free balance.
		compoundLogger.Debug("skipping compound, revoke pending",
			"candidate", candidate, "backer", backer)
		return
	}

	// Error deliberately discarded: the credit above is already final.
	if err := c.pool.IncreaseBond(candidate, backer, compound); err != nil {
		compoundLogger.Debug("compound re-bond failed",
			"candidate", candidate, "backer", backer, "amount", compound, "error", err)
		return
	}

	c.sink.Publish(Compounded{Backer: backer, Candidate: candidate, Amount: compound})
}
