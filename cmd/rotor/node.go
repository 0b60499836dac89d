// Copyright (c) 2025 The Rotor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"context"
	"time"

	"github.com/rotorlabs/rotor/staking"
)

// node drives the engine with a wall-clock block schedule, rotating block
// authorship round-robin over the selected set. It stands in for a consensus
// layer in dev deployments.
type node struct {
	engine   *staking.Engine
	interval time.Duration
}

func newNode(engine *staking.Engine, interval time.Duration) *node {
	return &node{engine: engine, interval: interval}
}

// Run produces one block per interval until the context is cancelled. A
// returned engine error means corrupt state; the node stops instead of
// producing on top of it.
func (n *node) Run(ctx context.Context) error {
	ticker := time.NewTicker(n.interval)
	defer ticker.Stop()

	var blockNum uint32
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
		blockNum++

		if err := n.engine.OnBlockStart(blockNum); err != nil {
			return err
		}

		selected, err := n.engine.SelectedSet()
		if err != nil {
			return err
		}
		if len(selected) == 0 {
			continue
		}

		author := selected[int(blockNum)%len(selected)]
		if err := n.engine.OnBlockEnd(author); err != nil {
			return err
		}
		mainLogger.Debug("produced block", "num", blockNum, "author", author)
	}
}

// loggingSink turns engine events into log lines.
func loggingSink() staking.Sink {
	logger := mainLogger.With("component", "events")
	return staking.SinkFunc(func(ev staking.Event) {
		switch e := ev.(type) {
		case staking.RoundAdvanced:
			logger.Info("round advanced",
				"round", e.Round, "selected", e.SelectedCount, "staked", e.TotalStaked)
		case staking.ParticipantPaid:
			logger.Info("participant paid",
				"round", e.Round, "participant", e.Participant, "amount", e.Amount)
		case staking.BackerRewarded:
			logger.Info("backer rewarded",
				"round", e.Round, "backer", e.Backer, "amount", e.Amount)
		case staking.Compounded:
			logger.Info("reward compounded",
				"backer", e.Backer, "candidate", e.Candidate, "amount", e.Amount)
		case staking.ElectionStalled:
			logger.Warn("election stalled, previous set reused", "round", e.Round)
		}
	})
}
