// Copyright (c) 2025 The Rotor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package staking

import (
	"math/big"

	"github.com/rotorlabs/rotor/log"
)

var schedLogger = log.WithContext("pkg", "staking", "component", "scheduler")

// scheduler funds delayed payouts at round boundaries and drains them one
// participant per block tick.
type scheduler struct {
	cfg         *Config
	store       *storage
	ledger      Ledger
	points      *pointsLedger
	distributor *distributor
}

// Prepare funds the delayed payout for the round that ended PayoutDelay
// rounds before the given (just started) round. No-op while no round is old
// enough or when the paying round earned no points.
func (s *scheduler) Prepare(round uint32) error {
	if round <= s.cfg.PayoutDelay {
		return nil
	}
	payRound := round - s.cfg.PayoutDelay

	total, err := s.points.Total(payRound)
	if err != nil {
		return err
	}
	// The staked snapshot is consumed either way; a pointless round would
	// otherwise leak it forever.
	staked, err := s.store.TakeStaked(payRound)
	if err != nil {
		return err
	}
	if total == 0 {
		// No payout will ever run for this round, so its exposure snapshots
		// must be dropped here or they persist forever.
		if err := s.store.ClearAtStake(payRound); err != nil {
			return err
		}
		schedLogger.Debug("nothing to pay", "round", payRound)
		return nil
	}

	issuance := s.cfg.Issuance(staked)
	left := new(big.Int).Set(issuance)

	// Reserve transfer failure is non-fatal: payout proceeds with the full,
	// non-reduced staking reward.
	reserve := s.cfg.ReserveFraction.Mul(issuance)
	if reserve.Sign() > 0 {
		if actual, err := s.ledger.Credit(s.cfg.ReserveAccount, reserve); err != nil {
			schedLogger.Warn("reserve transfer failed, skipping reservation",
				"round", payRound, "amount", reserve, "error", err)
		} else {
			left = left.Sub(left, actual)
		}
	}

	payout := &DelayedPayout{
		RoundIssuance:      issuance,
		TotalStakingReward: left,
		CommissionRate:     s.cfg.CommissionRate,
	}
	if err := s.store.SetDelayedPayout(payRound, payout); err != nil {
		return err
	}

	schedLogger.Info("funded delayed payout",
		"round", payRound,
		"issuance", issuance,
		"stakingReward", left,
		"commission", uint8(s.cfg.CommissionRate),
	)
	return nil
}

// Tick settles exactly one participant of the oldest due payout round,
// amortizing the O(selected-set) settlement cost across as many blocks.
// Once the distributor reports the round drained, the payout descriptor and
// the round's points tally are removed; further ticks are no-ops.
func (s *scheduler) Tick(round uint32) (Outcome, error) {
	if round < s.cfg.PayoutDelay {
		return Finished, nil
	}
	payRound := round - s.cfg.PayoutDelay

	payout, err := s.store.GetDelayedPayout(payRound)
	if err != nil {
		return Finished, err
	}
	if payout == nil {
		// Fully settled already, or never funded.
		return Finished, nil
	}

	outcome, err := s.distributor.Distribute(payRound, payout)
	if err != nil {
		return outcome, err
	}

	if outcome == Finished {
		if err := s.store.DeleteDelayedPayout(payRound); err != nil {
			return outcome, err
		}
		if err := s.points.Clear(payRound); err != nil {
			return outcome, err
		}
		schedLogger.Info("payout round settled", "round", payRound)
	}
	return outcome, nil
}
