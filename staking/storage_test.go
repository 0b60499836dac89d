// Copyright (c) 2025 The Rotor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>
package staking

import (
	"math"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rotorlabs/rotor/kv"
	"github.com/rotorlabs/rotor/rotor"
)

func newTestStorage(t *testing.T) *storage {
	t.Helper()
	db, err := kv.NewMem()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return newStorage(db)
}

func TestStoragePoints_TotalTracksSum(t *testing.T) {
	s := newTestStorage(t)
	a, b := addr("a"), addr("b")

	require.NoError(t, s.AddPoints(3, a, 20))
	require.NoError(t, s.AddPoints(3, a, 20))
	require.NoError(t, s.AddPoints(3, b, 20))

	total, err := s.PointsTotal(3)
	require.NoError(t, err)
	assert.Equal(t, uint64(60), total)

	pts, err := s.TakePoints(3, a)
	require.NoError(t, err)
	assert.Equal(t, uint64(40), pts)

	// taking removes the participant entry but keeps the denominator
	pts, err = s.TakePoints(3, a)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), pts)
	total, err = s.PointsTotal(3)
	require.NoError(t, err)
	assert.Equal(t, uint64(60), total)

	require.NoError(t, s.ClearPoints(3))
	total, err = s.PointsTotal(3)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), total)
	pts, err = s.TakePoints(3, b)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), pts)
}

func TestStoragePoints_Saturate(t *testing.T) {
	s := newTestStorage(t)
	a := addr("a")

	require.NoError(t, s.AddPoints(1, a, math.MaxUint64-5))
	require.NoError(t, s.AddPoints(1, a, 20))

	pts, err := s.TakePoints(1, a)
	require.NoError(t, err)
	assert.Equal(t, uint64(math.MaxUint64), pts)
}

func TestStoragePoints_RoundsIsolated(t *testing.T) {
	s := newTestStorage(t)
	a := addr("a")

	require.NoError(t, s.AddPoints(1, a, 20))
	require.NoError(t, s.AddPoints(2, a, 20))

	require.NoError(t, s.ClearPoints(1))

	total, err := s.PointsTotal(2)
	require.NoError(t, err)
	assert.Equal(t, uint64(20), total)
}

func TestStorageAtStake_TakeFirstIsDeterministic(t *testing.T) {
	s := newTestStorage(t)
	low := addr("\x01low")
	high := addr("\x7fhigh")

	exLow := &Exposure{OwnBond: big.NewInt(1), Total: big.NewInt(1)}
	exHigh := &Exposure{OwnBond: big.NewInt(2), Total: big.NewInt(2)}

	// write high first; iteration order must still be byte order
	require.NoError(t, s.SetAtStake(7, high, exHigh))
	require.NoError(t, s.SetAtStake(7, low, exLow))

	got, ex, ok, err := s.TakeFirstAtStake(7)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, low, got)
	assert.Equal(t, exLow.Total, ex.Total)

	got, _, ok, err = s.TakeFirstAtStake(7)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, high, got)

	_, _, ok, err = s.TakeFirstAtStake(7)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStorageAtStake_RoundtripBackers(t *testing.T) {
	s := newTestStorage(t)
	p := addr("participant")

	ex := &Exposure{
		OwnBond: big.NewInt(40),
		Total:   big.NewInt(100),
		Backers: []BackerBond{
			{Backer: addr("backer-a"), Amount: big.NewInt(30), AutoCompound: 100},
			{Backer: addr("backer-b"), Amount: big.NewInt(30), AutoCompound: 0},
		},
	}
	require.NoError(t, s.SetAtStake(4, p, ex))

	got, err := s.GetAtStake(4, p)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, ex.OwnBond, got.OwnBond)
	assert.Equal(t, ex.Total, got.Total)
	require.Len(t, got.Backers, 2)
	assert.Equal(t, ex.Backers[0], got.Backers[0])
	assert.Equal(t, ex.Backers[1], got.Backers[1])
}

func TestStorageDelayedPayout_RemovalIdempotent(t *testing.T) {
	s := newTestStorage(t)

	p := &DelayedPayout{
		RoundIssuance:      big.NewInt(1000),
		TotalStakingReward: big.NewInt(700),
		CommissionRate:     20,
	}
	require.NoError(t, s.SetDelayedPayout(5, p))

	got, err := s.GetDelayedPayout(5)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, p.TotalStakingReward, got.TotalStakingReward)
	assert.Equal(t, p.CommissionRate, got.CommissionRate)

	require.NoError(t, s.DeleteDelayedPayout(5))
	got, err = s.GetDelayedPayout(5)
	require.NoError(t, err)
	assert.Nil(t, got)

	// deleting again must be a no-op
	require.NoError(t, s.DeleteDelayedPayout(5))
}

func TestStorageStaked_TakeConsumes(t *testing.T) {
	s := newTestStorage(t)

	require.NoError(t, s.SetStaked(9, big.NewInt(12345)))

	got, err := s.TakeStaked(9)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(12345), got)

	got, err = s.TakeStaked(9)
	require.NoError(t, err)
	assert.Equal(t, int64(0), got.Int64())
}

func TestStorageRound_Roundtrip(t *testing.T) {
	s := newTestStorage(t)

	_, ok, err := s.GetRound()
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.SetRound(&Round{Index: 3, First: 20, Length: 10}))
	r, ok, err := s.GetRound()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, uint32(3), r.Index)
	assert.Equal(t, uint32(20), r.First)
	assert.Equal(t, uint32(10), r.Length)
}

func TestStorageSelected_ReplacedWholesale(t *testing.T) {
	s := newTestStorage(t)

	set, err := s.Selected()
	require.NoError(t, err)
	assert.Empty(t, set)

	require.NoError(t, s.SetSelected([]rotor.Address{addr("a"), addr("b")}))
	set, err = s.Selected()
	require.NoError(t, err)
	assert.Equal(t, []rotor.Address{addr("a"), addr("b")}, set)

	require.NoError(t, s.SetSelected([]rotor.Address{addr("c")}))
	set, err = s.Selected()
	require.NoError(t, err)
	assert.Equal(t, []rotor.Address{addr("c")}, set)
}
