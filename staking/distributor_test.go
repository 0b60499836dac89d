// Copyright (c) 2025 The Rotor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>
package staking

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The reference scenario: one participant (own=40) with two backers of 30
// each, total 100; staking reward 700 of 1000 issuance, commission 20%.
// Backer A compounds 100%, backer B keeps everything liquid.
func TestDistribute_ReferenceScenario(t *testing.T) {
	env := newTestEnv(t, testConfig())
	owner := addr("collator")
	backerA := addr("backer-a")
	backerB := addr("backer-b")

	env.register(t, owner, 40)
	env.back(t, owner, backerA, 30)
	env.back(t, owner, backerB, 30)
	require.NoError(t, env.pool.SetAutoCompound(owner, backerA, 100))

	const round = uint32(5)
	_, err := env.engine.selector.Select(round)
	require.NoError(t, err)

	// full points to the single participant
	require.NoError(t, env.engine.store.AddPoints(round, owner, 20))

	payout := &DelayedPayout{
		RoundIssuance:      big.NewInt(1000),
		TotalStakingReward: big.NewInt(700),
		CommissionRate:     20,
	}
	outcome, err := env.engine.distributor.Distribute(round, payout)
	require.NoError(t, err)
	assert.Equal(t, Paid, outcome)

	// commission 140, amt_due 560, own share 0.4*560+140 = 364
	assert.Equal(t, int64(364), env.ledger.FreeBalance(owner).Int64())
	// backer A: 168, fully re-bonded
	assert.Equal(t, int64(0), env.ledger.FreeBalance(backerA).Int64())
	assert.Equal(t, int64(30+168), env.ledger.StakedBalance(backerA).Int64())
	// backer B: 168, fully liquid
	assert.Equal(t, int64(168), env.ledger.FreeBalance(backerB).Int64())
	assert.Equal(t, int64(30), env.ledger.StakedBalance(backerB).Int64())

	// 364 + 168 + 168 = 700 exactly, no rounding loss by construction
	paid := env.sink.ofType("ParticipantPaid")
	require.Len(t, paid, 1)
	assert.Equal(t, int64(364), paid[0].(ParticipantPaid).Amount.Int64())
	rewarded := env.sink.ofType("BackerRewarded")
	require.Len(t, rewarded, 2)

	// compounding changed backer A's bond for future rounds
	backers, err := env.pool.Backers(owner)
	require.NoError(t, err)
	assert.Equal(t, backerA, backers[0].Backer)
	assert.Equal(t, big.NewInt(198), backers[0].Amount)
}

func TestDistribute_NoBackersPaysEverything(t *testing.T) {
	env := newTestEnv(t, testConfig())
	owner := addr("loner")
	env.register(t, owner, 100)

	const round = uint32(5)
	_, err := env.engine.selector.Select(round)
	require.NoError(t, err)
	require.NoError(t, env.engine.store.AddPoints(round, owner, 20))

	payout := &DelayedPayout{
		RoundIssuance:      big.NewInt(1000),
		TotalStakingReward: big.NewInt(700),
		CommissionRate:     20,
	}
	outcome, err := env.engine.distributor.Distribute(round, payout)
	require.NoError(t, err)
	assert.Equal(t, Paid, outcome)

	// no commission carve-out when there is nobody to split with
	assert.Equal(t, int64(700), env.ledger.FreeBalance(owner).Int64())
}

func TestDistribute_ZeroPointsSkips(t *testing.T) {
	env := newTestEnv(t, testConfig())
	idle := addr("idle")
	busy := addr("busy")
	env.register(t, idle, 100)
	env.register(t, busy, 100)

	const round = uint32(5)
	_, err := env.engine.selector.Select(round)
	require.NoError(t, err)
	require.NoError(t, env.engine.store.AddPoints(round, busy, 20))

	payout := &DelayedPayout{
		RoundIssuance:      big.NewInt(1000),
		TotalStakingReward: big.NewInt(700),
		CommissionRate:     20,
	}

	// two participants, one authored nothing: one Skipped, one Paid, then Finished
	var outcomes []Outcome
	for i := 0; i < 3; i++ {
		outcome, err := env.engine.distributor.Distribute(round, payout)
		require.NoError(t, err)
		outcomes = append(outcomes, outcome)
	}
	assert.Contains(t, outcomes[:2], Skipped)
	assert.Contains(t, outcomes[:2], Paid)
	assert.Equal(t, Finished, outcomes[2])

	// the skipped participant moved no funds
	assert.Equal(t, int64(0), env.ledger.FreeBalance(idle).Int64())
}

func TestDistribute_ZeroTotalPointsFinishes(t *testing.T) {
	env := newTestEnv(t, testConfig())
	env.register(t, addr("candidate-1"), 100)

	const round = uint32(5)
	_, err := env.engine.selector.Select(round)
	require.NoError(t, err)

	payout := &DelayedPayout{
		RoundIssuance:      big.NewInt(1000),
		TotalStakingReward: big.NewInt(700),
		CommissionRate:     20,
	}
	outcome, err := env.engine.distributor.Distribute(round, payout)
	require.NoError(t, err)
	assert.Equal(t, Finished, outcome)

	// the snapshot survives: nothing was consumed
	ex, err := env.engine.store.GetAtStake(round, addr("candidate-1"))
	require.NoError(t, err)
	assert.NotNil(t, ex)
}

func TestDistribute_CorruptTallyIsFatal(t *testing.T) {
	env := newTestEnv(t, testConfig())
	owner := addr("candidate-1")
	env.register(t, owner, 100)

	const round = uint32(5)
	_, err := env.engine.selector.Select(round)
	require.NoError(t, err)

	// per-participant entry larger than the total
	require.NoError(t, env.engine.store.AddPoints(round, owner, 20))
	require.NoError(t, env.engine.store.putUint64(
		env.engine.store.points, roundAddrKey(round, owner), 40))

	payout := &DelayedPayout{
		RoundIssuance:      big.NewInt(1000),
		TotalStakingReward: big.NewInt(700),
		CommissionRate:     20,
	}
	_, err = env.engine.distributor.Distribute(round, payout)
	assert.Error(t, err)
}

// Conservation: participant share plus backer shares never exceed the round
// total, and the truncation residual stays below one unit per backer plus
// the commission rounding.
func TestDistribute_Conservation(t *testing.T) {
	env := newTestEnv(t, testConfig())
	owner := addr("collator")
	env.register(t, owner, 7)

	backers := []int64{3, 5, 11, 13, 17}
	for i, amount := range backers {
		env.back(t, owner, addr(string(rune('a'+i))+"-backer"), amount)
	}

	const round = uint32(5)
	_, err := env.engine.selector.Select(round)
	require.NoError(t, err)
	require.NoError(t, env.engine.store.AddPoints(round, owner, 20))

	totalReward := big.NewInt(997) // awkward numbers on purpose
	payout := &DelayedPayout{
		RoundIssuance:      big.NewInt(1424),
		TotalStakingReward: totalReward,
		CommissionRate:     20,
	}
	outcome, err := env.engine.distributor.Distribute(round, payout)
	require.NoError(t, err)
	assert.Equal(t, Paid, outcome)

	paidSum := env.ledger.FreeBalance(owner)
	for i := range backers {
		backer := addr(string(rune('a'+i)) + "-backer")
		paidSum.Add(paidSum, env.ledger.FreeBalance(backer))
	}

	residual := new(big.Int).Sub(totalReward, paidSum)
	assert.True(t, residual.Sign() >= 0, "paid more than the round total: %v", residual)
	assert.True(t, residual.Cmp(big.NewInt(int64(1+len(backers)))) < 0,
		"residual out of bounds: %v", residual)
}

func TestDistribute_ZeroShareBackersSkipped(t *testing.T) {
	env := newTestEnv(t, testConfig())
	owner := addr("collator")
	dust := addr("dust-backer")
	env.register(t, owner, 1000000)
	env.back(t, owner, dust, 1)

	const round = uint32(5)
	_, err := env.engine.selector.Select(round)
	require.NoError(t, err)
	require.NoError(t, env.engine.store.AddPoints(round, owner, 20))

	// reward so small the dust backer's truncated share is zero
	payout := &DelayedPayout{
		RoundIssuance:      big.NewInt(10),
		TotalStakingReward: big.NewInt(7),
		CommissionRate:     20,
	}
	outcome, err := env.engine.distributor.Distribute(round, payout)
	require.NoError(t, err)
	assert.Equal(t, Paid, outcome)

	// no transfer, no event for the zero share
	assert.Equal(t, int64(0), env.ledger.FreeBalance(dust).Int64())
	assert.Empty(t, env.sink.ofType("BackerRewarded"))
}
