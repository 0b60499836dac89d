// Copyright (c) 2025 The Rotor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>
package staking

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rotorlabs/rotor/kv"
	"github.com/rotorlabs/rotor/rotor"
)

// recordingSink collects published events for assertions.
type recordingSink struct {
	events []Event
}

func (r *recordingSink) Publish(ev Event) {
	r.events = append(r.events, ev)
}

func (r *recordingSink) ofType(name string) []Event {
	var out []Event
	for _, ev := range r.events {
		if ev.eventName() == name {
			out = append(out, ev)
		}
	}
	return out
}

type testEnv struct {
	db     kv.Store
	engine *Engine
	pool   *CandidatePool
	ledger *MemLedger
	sink   *recordingSink
}

func newTestEnv(t *testing.T, cfg Config) *testEnv {
	t.Helper()

	db, err := kv.NewMem()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	ledger := NewMemLedger()
	pool := NewCandidatePool(db, ledger)
	sink := &recordingSink{}

	engine, err := New(db, pool, ledger, sink, cfg)
	require.NoError(t, err)

	return &testEnv{db: db, engine: engine, pool: pool, ledger: ledger, sink: sink}
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.RoundLength = 10
	cfg.PayoutDelay = 2
	return cfg
}

func addr(name string) rotor.Address {
	return rotor.BytesToAddress([]byte(name))
}

// fund credits free balance so bonds can be locked.
func (env *testEnv) fund(t *testing.T, acc rotor.Address, amount int64) {
	t.Helper()
	_, err := env.ledger.Credit(acc, big.NewInt(amount))
	require.NoError(t, err)
}

// register funds and registers a candidate with its own bond.
func (env *testEnv) register(t *testing.T, owner rotor.Address, bond int64) {
	t.Helper()
	env.fund(t, owner, bond)
	require.NoError(t, env.pool.Register(owner, big.NewInt(bond)))
}

// back funds and bonds a backer behind a candidate.
func (env *testEnv) back(t *testing.T, candidate, backer rotor.Address, amount int64) {
	t.Helper()
	env.fund(t, backer, amount)
	require.NoError(t, env.pool.AddBond(candidate, backer, big.NewInt(amount)))
}
