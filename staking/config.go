// Copyright (c) 2025 The Rotor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package staking

import (
	"math/big"

	"github.com/pkg/errors"

	"github.com/rotorlabs/rotor/rotor"
)

// IssuanceCurve computes a round's total issuance from the staked total
// snapshotted at that round's selection. It must be pure.
type IssuanceCurve func(totalStaked *big.Int) *big.Int

// LinearIssuance returns a curve issuing a fixed percentage of the staked
// total per round, truncating.
func LinearIssuance(rate rotor.Percent) IssuanceCurve {
	return func(totalStaked *big.Int) *big.Int {
		return rate.Mul(totalStaked)
	}
}

// Config carries the engine parameters. All of them are fixed at
// construction; round length and payout delay in particular must never
// change while deferred payouts are outstanding.
type Config struct {
	// RoundLength is the round length in blocks.
	RoundLength uint32

	// PayoutDelay is the number of rounds between earning points and the
	// round in which the payout starts settling.
	PayoutDelay uint32

	// MaxSelected bounds the selected participant set per round.
	MaxSelected uint32

	// MaxCountedBackers bounds the rewardable backers per participant.
	// Backers ranked below the bound keep their bond but earn nothing.
	MaxCountedBackers uint32

	// ReserveFraction of each round's issuance is moved to ReserveAccount
	// before the staking reward is split.
	ReserveFraction rotor.Percent
	ReserveAccount  rotor.Address

	// CommissionRate is the participant commission on the round's staking
	// reward, the post-reserve remainder of the issuance.
	CommissionRate rotor.Percent

	// Issuance computes the round issuance from the staked snapshot.
	Issuance IssuanceCurve
}

// DefaultConfig returns the stock engine parameters.
func DefaultConfig() Config {
	return Config{
		RoundLength:       600,
		PayoutDelay:       2,
		MaxSelected:       8,
		MaxCountedBackers: 100,
		ReserveFraction:   30,
		ReserveAccount:    rotor.BytesToAddress([]byte("staking-reserve")),
		CommissionRate:    20,
		Issuance:          LinearIssuance(5),
	}
}

// Validate checks the config for structural errors.
func (c *Config) Validate() error {
	if c.RoundLength == 0 {
		return errors.New("round length must be positive")
	}
	if c.PayoutDelay == 0 {
		return errors.New("payout delay must be positive")
	}
	if c.MaxSelected == 0 {
		return errors.New("max selected must be positive")
	}
	if c.MaxCountedBackers == 0 {
		return errors.New("max counted backers must be positive")
	}
	if !c.ReserveFraction.IsValid() {
		return errors.Errorf("invalid reserve fraction: %d", c.ReserveFraction)
	}
	if !c.CommissionRate.IsValid() {
		return errors.Errorf("invalid commission rate: %d", c.CommissionRate)
	}
	if c.Issuance == nil {
		return errors.New("issuance curve is required")
	}
	return nil
}
