// Copyright (c) 2025 The Rotor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"math/big"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/rotorlabs/rotor/rotor"
	"github.com/rotorlabs/rotor/staking"
)

// genesis is the YAML seed file: engine parameters plus the initial
// accounts, candidates and backer bonds.
type genesis struct {
	RoundLength       uint32 `yaml:"round_length"`
	PayoutDelay       uint32 `yaml:"payout_delay"`
	MaxSelected       uint32 `yaml:"max_selected"`
	MaxCountedBackers uint32 `yaml:"max_counted_backers"`
	ReserveFraction   uint8  `yaml:"reserve_fraction"`
	ReserveAccount    string `yaml:"reserve_account"`
	CommissionRate    uint8  `yaml:"commission_rate"`
	IssuanceRate      uint8  `yaml:"issuance_rate"`

	Accounts   []genesisAccount   `yaml:"accounts"`
	Candidates []genesisCandidate `yaml:"candidates"`
}

type genesisAccount struct {
	Address string `yaml:"address"`
	Balance uint64 `yaml:"balance"`
}

type genesisCandidate struct {
	Owner   string          `yaml:"owner"`
	Bond    uint64          `yaml:"bond"`
	Backers []genesisBacker `yaml:"backers"`
}

type genesisBacker struct {
	Address      string `yaml:"address"`
	Amount       uint64 `yaml:"amount"`
	AutoCompound uint8  `yaml:"auto_compound"`
}

func loadGenesis(path string) (*genesis, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read genesis file")
	}
	var g genesis
	if err := yaml.Unmarshal(raw, &g); err != nil {
		return nil, errors.Wrap(err, "parse genesis file")
	}
	return &g, nil
}

// devGenesis is used when no genesis file is given: three candidates, one
// backed, everything funded.
func devGenesis() *genesis {
	mkAddr := func(b byte) string {
		return rotor.BytesToAddress([]byte{b}).String()
	}
	return &genesis{
		Candidates: []genesisCandidate{
			{Owner: mkAddr(1), Bond: 40000, Backers: []genesisBacker{
				{Address: mkAddr(4), Amount: 30000, AutoCompound: 100},
				{Address: mkAddr(5), Amount: 30000},
			}},
			{Owner: mkAddr(2), Bond: 50000},
			{Owner: mkAddr(3), Bond: 20000},
		},
	}
}

// config maps the genesis parameters onto the engine config, falling back to
// the stock defaults for anything unset.
func (g *genesis) config() (staking.Config, error) {
	cfg := staking.DefaultConfig()
	if g.RoundLength != 0 {
		cfg.RoundLength = g.RoundLength
	}
	if g.PayoutDelay != 0 {
		cfg.PayoutDelay = g.PayoutDelay
	}
	if g.MaxSelected != 0 {
		cfg.MaxSelected = g.MaxSelected
	}
	if g.MaxCountedBackers != 0 {
		cfg.MaxCountedBackers = g.MaxCountedBackers
	}
	if g.ReserveFraction != 0 {
		cfg.ReserveFraction = rotor.Percent(g.ReserveFraction)
	}
	if g.ReserveAccount != "" {
		addr, err := rotor.ParseAddress(g.ReserveAccount)
		if err != nil {
			return cfg, errors.Wrap(err, "invalid reserve account")
		}
		cfg.ReserveAccount = *addr
	}
	if g.CommissionRate != 0 {
		cfg.CommissionRate = rotor.Percent(g.CommissionRate)
	}
	if g.IssuanceRate != 0 {
		cfg.Issuance = staking.LinearIssuance(rotor.Percent(g.IssuanceRate))
	}
	return cfg, nil
}

// seed funds the genesis accounts and registers candidates and their
// backers. A store that already holds candidates is left alone, so restarts
// on a persisted database do not double-register.
func (g *genesis) seed(ledger *staking.MemLedger, pool *staking.CandidatePool) error {
	existing, err := pool.Candidates()
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}

	for _, acc := range g.Accounts {
		addr, err := rotor.ParseAddress(acc.Address)
		if err != nil {
			return errors.Wrapf(err, "invalid account address %q", acc.Address)
		}
		if _, err := ledger.Credit(*addr, new(big.Int).SetUint64(acc.Balance)); err != nil {
			return errors.Wrapf(err, "fund account %v", addr)
		}
	}

	for _, c := range g.Candidates {
		owner, err := rotor.ParseAddress(c.Owner)
		if err != nil {
			return errors.Wrapf(err, "invalid candidate owner %q", c.Owner)
		}
		bond := new(big.Int).SetUint64(c.Bond)
		if _, err := ledger.Credit(*owner, bond); err != nil {
			return err
		}
		if err := pool.Register(*owner, bond); err != nil {
			return errors.Wrapf(err, "register candidate %v", owner)
		}

		for _, b := range c.Backers {
			backer, err := rotor.ParseAddress(b.Address)
			if err != nil {
				return errors.Wrapf(err, "invalid backer address %q", b.Address)
			}
			amount := new(big.Int).SetUint64(b.Amount)
			if _, err := ledger.Credit(*backer, amount); err != nil {
				return err
			}
			if err := pool.AddBond(*owner, *backer, amount); err != nil {
				return errors.Wrapf(err, "bond backer %v behind %v", backer, owner)
			}
			if b.AutoCompound != 0 {
				if err := pool.SetAutoCompound(*owner, *backer, rotor.Percent(b.AutoCompound)); err != nil {
					return err
				}
			}
		}
	}
	return nil
}
