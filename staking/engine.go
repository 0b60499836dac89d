// Copyright (c) 2025 The Rotor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package staking implements the round-based staking reward engine: round
// rotation, candidate selection, per-round performance points, delayed
// pro-rata payouts and auto-compounding of backer rewards.
package staking

import (
	"github.com/pkg/errors"

	"github.com/rotorlabs/rotor/kv"
	"github.com/rotorlabs/rotor/log"
	"github.com/rotorlabs/rotor/metrics"
	"github.com/rotorlabs/rotor/rotor"
)

var logger = log.WithContext("pkg", "staking")

// Lazy meters: binding at package init would resolve against the noop
// service before the backend is selected.
var (
	metricRoundsAdvanced = metrics.LazyLoadCounter("staking_rounds_advanced_count")
	metricElectionStalls = metrics.LazyLoadCounter("staking_election_stalls_count")
	metricPayoutTicks    = metrics.LazyLoadCounterVec("staking_payout_ticks_count", []string{"outcome"})
	metricTotalStaked    = metrics.LazyLoadGauge("staking_total_staked_gauge")
	metricSelectedCount  = metrics.LazyLoadGauge("staking_selected_count_gauge")
)

// Engine drives the reward rounds. All methods run in the strictly
// serialized block-step model: one call at a time, run to completion. The
// engine owns all state under its buckets; no concurrent writer may touch
// it mid-step.
type Engine struct {
	cfg   Config
	store *storage
	pool  *CandidatePool
	sink  Sink

	points      *pointsLedger
	selector    *selector
	scheduler   *scheduler
	distributor *distributor

	lastIndex uint32 // round monotonicity watermark
}

// New creates the engine over the given store. The genesis round (index 1,
// starting at block 0) is created on first use.
func New(src kv.Store, pool *CandidatePool, ledger Ledger, sink Sink, cfg Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid staking config")
	}
	if sink == nil {
		sink = NoopSink()
	}

	store := newStorage(src)
	e := &Engine{
		cfg:   cfg,
		store: store,
		pool:  pool,
		sink:  sink,
	}
	e.points = &pointsLedger{store: store}
	e.selector = &selector{cfg: &e.cfg, store: store, pool: pool, sink: sink}
	e.distributor = &distributor{
		store:      store,
		points:     e.points,
		ledger:     ledger,
		sink:       sink,
		compounder: &compounder{ledger: ledger, pool: pool, sink: sink},
	}
	e.scheduler = &scheduler{
		cfg:         &e.cfg,
		store:       store,
		ledger:      ledger,
		points:      e.points,
		distributor: e.distributor,
	}

	round, ok, err := store.GetRound()
	if err != nil {
		return nil, err
	}
	if !ok {
		round = &Round{Index: rotor.InitialRoundIndex, First: 0, Length: cfg.RoundLength}
		if err := store.SetRound(round); err != nil {
			return nil, err
		}
	}
	if err := round.Validate(); err != nil {
		return nil, errors.Wrap(err, "stored round corrupt")
	}
	e.lastIndex = round.Index
	return e, nil
}

// Pool returns the candidate pool the engine operates on.
func (e *Engine) Pool() *CandidatePool {
	return e.pool
}

// CurrentRound returns the engine's current round.
func (e *Engine) CurrentRound() (*Round, error) {
	round, ok, err := e.store.GetRound()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errors.New("round state missing")
	}
	return round, nil
}

// SelectedSet returns the canonical validating set of the current round.
func (e *Engine) SelectedSet() ([]rotor.Address, error) {
	return e.store.Selected()
}

// OnBlockStart is the block-start hook. Exactly once per block: it either
// advances the round (funding the due payout and electing the new set) or
// settles one deferred participant.
//
// A returned error is a structural invariant violation; the caller must
// halt instead of continuing on corrupt state.
func (e *Engine) OnBlockStart(now uint32) error {
	round, err := e.CurrentRound()
	if err != nil {
		return err
	}
	if round.Index < e.lastIndex {
		return errors.Errorf("round index went backwards: %d < %d", round.Index, e.lastIndex)
	}

	if !round.ShouldAdvance(now) {
		outcome, err := e.scheduler.Tick(round.Index)
		if err != nil {
			return err
		}
		metricPayoutTicks().AddWithLabel(1, map[string]string{"outcome": outcome.String()})
		return nil
	}

	round.Advance(now)

	if err := e.scheduler.Prepare(round.Index); err != nil {
		return err
	}

	result, err := e.selector.Select(round.Index)
	if err != nil {
		return err
	}
	if result.Stalled {
		metricElectionStalls().Add(1)
	}

	if err := e.store.SetRound(round); err != nil {
		return err
	}
	e.lastIndex = round.Index

	metricRoundsAdvanced().Add(1)
	metricSelectedCount().Set(int64(len(result.Selected)))
	if result.TotalStaked.IsInt64() {
		metricTotalStaked().Set(result.TotalStaked.Int64())
	}

	e.sink.Publish(RoundAdvanced{
		Round:         round.Index,
		SelectedCount: uint32(len(result.Selected)),
		TotalStaked:   result.TotalStaked,
	})
	logger.Info("advanced round",
		"round", round.Index,
		"first", round.First,
		"selected", len(result.Selected),
		"staked", result.TotalStaked,
	)
	return nil
}

// OnBlockEnd is the block-end hook: it awards the block author its
// performance points for the current round.
func (e *Engine) OnBlockEnd(author rotor.Address) error {
	round, err := e.CurrentRound()
	if err != nil {
		return err
	}
	return e.points.Award(round.Index, author)
}
