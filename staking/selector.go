// Copyright (c) 2025 The Rotor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package staking

import (
	"math/big"
	"sort"

	"github.com/pkg/errors"

	"github.com/rotorlabs/rotor/log"
)

var selectorLogger = log.WithContext("pkg", "staking", "component", "selector")

// selector ranks candidates, picks the round's validating set and persists
// the per-participant exposure snapshots.
type selector struct {
	cfg   *Config
	store *storage
	pool  *CandidatePool
	sink  Sink
}

// Select builds the validating set for the round being started: the top-K
// candidates by total backing, each snapshotted with its counted backers.
//
// If no candidate is eligible, the previous round's snapshots are copied
// forward verbatim and ElectionStalled fires once. Liveness over freshness:
// the set and its staked totals freeze for one extra round, and repeated
// fallbacks widen the gap between the selection round and the effective
// validating round, which operators can watch for.
func (s *selector) Select(round uint32) (*SelectionResult, error) {
	candidates, err := s.pool.Candidates()
	if err != nil {
		return nil, err
	}

	top := rankTop(candidates, s.cfg.MaxSelected)
	if len(top) == 0 {
		return s.reusePrevious(round)
	}

	result := &SelectionResult{TotalStaked: new(big.Int)}
	for _, c := range top {
		counted, err := s.pool.CountedBackers(c.Owner, s.cfg.MaxCountedBackers)
		if err != nil {
			return nil, err
		}

		ex := &Exposure{
			OwnBond: new(big.Int).Set(c.Bond),
			Total:   new(big.Int).Set(c.Bond),
			Backers: make([]BackerBond, 0, len(counted)),
		}
		for _, b := range counted {
			fraction, err := s.pool.AutoCompound(c.Owner, b.Backer)
			if err != nil {
				return nil, err
			}
			ex.Backers = append(ex.Backers, BackerBond{
				Backer:       b.Backer,
				Amount:       new(big.Int).Set(b.Amount),
				AutoCompound: fraction,
			})
			ex.Total.Add(ex.Total, b.Amount)
		}

		if err := s.store.SetAtStake(round, c.Owner, ex); err != nil {
			return nil, err
		}

		result.Selected = append(result.Selected, c.Owner)
		result.BackerCount += uint32(len(counted))
		result.TotalStaked.Add(result.TotalStaked, ex.Total)
	}

	if err := s.store.SetStaked(round, result.TotalStaked); err != nil {
		return nil, err
	}
	if err := s.store.SetSelected(result.Selected); err != nil {
		return nil, err
	}

	selectorLogger.Debug("selected round participants",
		"round", round,
		"selected", len(result.Selected),
		"backers", result.BackerCount,
		"staked", result.TotalStaked,
	)
	return result, nil
}

// reusePrevious copies the prior round's snapshots forward unchanged.
func (s *selector) reusePrevious(round uint32) (*SelectionResult, error) {
	if round == 0 {
		return nil, errors.New("no previous round to fall back to")
	}
	prevAddrs, prevExposures, err := s.store.AtStakeEntries(round - 1)
	if err != nil {
		return nil, err
	}

	result := &SelectionResult{TotalStaked: new(big.Int), Stalled: true}
	for i, addr := range prevAddrs {
		if err := s.store.SetAtStake(round, addr, prevExposures[i]); err != nil {
			return nil, err
		}
		result.Selected = append(result.Selected, addr)
		result.BackerCount += uint32(len(prevExposures[i].Backers))
		result.TotalStaked.Add(result.TotalStaked, prevExposures[i].Total)
	}

	if err := s.store.SetStaked(round, result.TotalStaked); err != nil {
		return nil, err
	}

	s.sink.Publish(ElectionStalled{Round: round})
	selectorLogger.Warn("election stalled, reusing previous round's set",
		"round", round, "selected", len(result.Selected))
	return result, nil
}

// rankTop returns the top-k candidates by total backing, descending, ties
// broken by ascending registration sequence. Insertion into a bounded sorted
// slice keeps the cost at O(n·k) without re-sorting the full candidate set.
func rankTop(candidates []*Candidate, k uint32) []*Candidate {
	if k == 0 {
		return nil
	}
	top := make([]*Candidate, 0, k)
	for _, c := range candidates {
		if c.Bond.Sign() <= 0 {
			continue
		}
		i := sort.Search(len(top), func(i int) bool {
			return ranksBefore(c, top[i])
		})
		if i == len(top) {
			if uint32(len(top)) < k {
				top = append(top, c)
			}
			continue
		}
		if uint32(len(top)) < k {
			top = append(top, nil)
		}
		copy(top[i+1:], top[i:])
		top[i] = c
	}
	return top
}

func ranksBefore(a, b *Candidate) bool {
	cmp := a.TotalBacking.Cmp(b.TotalBacking)
	if cmp != 0 {
		return cmp > 0
	}
	return a.Seq < b.Seq
}
