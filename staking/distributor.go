// Copyright (c) 2025 The Rotor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package staking

import (
	"math/big"

	"github.com/pkg/errors"

	"github.com/rotorlabs/rotor/log"
	"github.com/rotorlabs/rotor/rotor"
)

var distLogger = log.WithContext("pkg", "staking", "component", "distributor")

// distributor executes the exact reward split for one participant per call.
type distributor struct {
	store      *storage
	points     *pointsLedger
	ledger     Ledger
	sink       Sink
	compounder *compounder
}

// Distribute settles one not-yet-paid participant of the round. It removes
// the participant's exposure snapshot and points, splits the reward between
// participant and counted backers, and hands each backer share to the
// auto-compound engine.
//
// Per-share truncation means the paid sum may fall short of the round total
// by up to one unit per backer plus the commission rounding. The residual is
// never reclaimed or redistributed.
func (d *distributor) Distribute(round uint32, payout *DelayedPayout) (Outcome, error) {
	total, err := d.points.Total(round)
	if err != nil {
		return Finished, err
	}
	if total == 0 {
		// Tally emptied or never populated. Anomalous but not fatal.
		distLogger.Warn("payout round has zero total points", "round", round)
		return Finished, nil
	}

	participant, exposure, ok, err := d.store.TakeFirstAtStake(round)
	if err != nil {
		return Finished, err
	}
	if !ok {
		// All settled; cleanup is the scheduler's job.
		return Finished, nil
	}

	pts, err := d.points.Take(round, participant)
	if err != nil {
		return Finished, err
	}
	if pts == 0 {
		// Selected but never authored. No payment, no funds moved.
		distLogger.Debug("skipping pointless participant", "round", round, "participant", participant)
		return Skipped, nil
	}
	if pts > total {
		// The total is maintained as the sum of all per-participant points;
		// a larger part than the whole means corrupted state.
		return Finished, errors.Errorf(
			"points tally corrupt: participant %v has %d of %d total", participant, pts, total)
	}

	totalPaid := mulDiv(payout.TotalStakingReward, pts, total)

	if len(exposure.Backers) == 0 {
		d.pay(round, participant, totalPaid)
		return Paid, nil
	}

	// Commission is taken on the post-reserve staking reward, so that
	// commission + own share + backer shares add up to the round total.
	commission := mulDiv(payout.CommissionRate.Mul(payout.TotalStakingReward), pts, total)
	amtDue := new(big.Int).Sub(totalPaid, commission)
	if amtDue.Sign() < 0 {
		amtDue.SetInt64(0)
	}

	participantShare := mulDivBig(exposure.OwnBond, amtDue, exposure.Total)
	participantShare.Add(participantShare, commission)
	d.pay(round, participant, participantShare)

	for _, b := range exposure.Backers {
		share := mulDivBig(b.Amount, amtDue, exposure.Total)
		if share.Sign() == 0 {
			continue
		}
		d.compounder.Apply(round, share, b.AutoCompound, participant, b.Backer)
	}
	return Paid, nil
}

// pay credits the participant. A ledger failure is logged and swallowed:
// payout processing must never block on a collaborator.
func (d *distributor) pay(round uint32, participant rotor.Address, amount *big.Int) {
	actual, err := d.ledger.Credit(participant, amount)
	if err != nil {
		distLogger.Warn("participant payout failed",
			"round", round, "participant", participant, "amount", amount, "error", err)
		return
	}
	d.sink.Publish(ParticipantPaid{Round: round, Participant: participant, Amount: actual})
}

// mulDiv returns amount * num / den, truncating.
func mulDiv(amount *big.Int, num, den uint64) *big.Int {
	v := new(big.Int).Mul(amount, new(big.Int).SetUint64(num))
	return v.Div(v, new(big.Int).SetUint64(den))
}

// mulDivBig returns amount * num / den, truncating.
func mulDivBig(num, amount, den *big.Int) *big.Int {
	v := new(big.Int).Mul(num, amount)
	return v.Div(v, den)
}
