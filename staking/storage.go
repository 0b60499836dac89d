// Copyright (c) 2025 The Rotor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package staking

import (
	"encoding/binary"
	gomath "math"
	"math/big"

	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/pkg/errors"

	"github.com/rotorlabs/rotor/kv"
	"github.com/rotorlabs/rotor/rotor"
)

// Bucket prefixes of the round-indexed arena. Every per-round table is keyed
// by the big-endian round index (optionally followed by an address), so kv
// iteration yields entries in (round, address) order — the deterministic
// total order the payout drain relies on.
var (
	bucketRound       = kv.Bucket("rs")
	bucketPoints      = kv.Bucket("pp")
	bucketPointsTotal = kv.Bucket("pz")
	bucketAtStake     = kv.Bucket("as")
	bucketPayout      = kv.Bucket("dp")
	bucketStaked      = kv.Bucket("sk")
	bucketSelected    = kv.Bucket("ss")
)

var keySelected = []byte("current")

// storage is the durable round-indexed arena of the engine. Entry lifecycle
// is explicit: rounds are created by selection and removed by payout
// settlement, never garbage collected implicitly.
type storage struct {
	round       kv.Store
	points      kv.Store
	pointsTotal kv.Store
	atStake     kv.Store
	payout      kv.Store
	staked      kv.Store
	selected    kv.Store
}

func newStorage(src kv.Store) *storage {
	return &storage{
		round:       bucketRound.NewStore(src),
		points:      bucketPoints.NewStore(src),
		pointsTotal: bucketPointsTotal.NewStore(src),
		atStake:     bucketAtStake.NewStore(src),
		payout:      bucketPayout.NewStore(src),
		staked:      bucketStaked.NewStore(src),
		selected:    bucketSelected.NewStore(src),
	}
}

func roundKey(round uint32) []byte {
	var k [4]byte
	binary.BigEndian.PutUint32(k[:], round)
	return k[:]
}

func roundAddrKey(round uint32, addr rotor.Address) []byte {
	k := make([]byte, 0, 4+rotor.AddressLength)
	return append(append(k, roundKey(round)...), addr.Bytes()...)
}

// roundRange covers every key of one round in a (round, address) keyed table.
func roundRange(round uint32) kv.Range {
	r := kv.Range{Start: roundKey(round)}
	if round < gomath.MaxUint32 {
		r.Limit = roundKey(round + 1)
	}
	return r
}

//
// Round state
//

func (s *storage) GetRound() (*Round, bool, error) {
	raw, err := s.round.Get(keySelected)
	if err != nil {
		if s.round.IsNotFound(err) {
			return nil, false, nil
		}
		return nil, false, errors.Wrap(err, "failed to get round")
	}
	var r Round
	if err := rlp.DecodeBytes(raw, &r); err != nil {
		return nil, false, errors.Wrap(err, "failed to decode round")
	}
	return &r, true, nil
}

func (s *storage) SetRound(r *Round) error {
	raw, err := rlp.EncodeToBytes(r)
	if err != nil {
		return errors.Wrap(err, "failed to encode round")
	}
	return s.round.Put(keySelected, raw)
}

//
// Points tally
//

func (s *storage) getUint64(store kv.Store, key []byte) (uint64, error) {
	raw, err := store.Get(key)
	if err != nil {
		if store.IsNotFound(err) {
			return 0, nil
		}
		return 0, err
	}
	var v uint64
	if err := rlp.DecodeBytes(raw, &v); err != nil {
		return 0, err
	}
	return v, nil
}

func (s *storage) putUint64(store kv.Store, key []byte, v uint64) error {
	raw, err := rlp.EncodeToBytes(v)
	if err != nil {
		return err
	}
	return store.Put(key, raw)
}

// AddPoints awards points to a participant for a round. The per-participant
// entry and the round total saturate together; they are never updated
// independently.
func (s *storage) AddPoints(round uint32, acc rotor.Address, pts uint64) error {
	cur, err := s.getUint64(s.points, roundAddrKey(round, acc))
	if err != nil {
		return errors.Wrap(err, "failed to get points")
	}
	total, err := s.getUint64(s.pointsTotal, roundKey(round))
	if err != nil {
		return errors.Wrap(err, "failed to get points total")
	}

	cur = saturatingAdd(cur, pts)
	total = saturatingAdd(total, pts)

	if err := s.putUint64(s.points, roundAddrKey(round, acc), cur); err != nil {
		return errors.Wrap(err, "failed to set points")
	}
	if err := s.putUint64(s.pointsTotal, roundKey(round), total); err != nil {
		return errors.Wrap(err, "failed to set points total")
	}
	return nil
}

func saturatingAdd(a, b uint64) uint64 {
	sum, overflow := math.SafeAdd(a, b)
	if overflow {
		return gomath.MaxUint64
	}
	return sum
}

func (s *storage) PointsTotal(round uint32) (uint64, error) {
	v, err := s.getUint64(s.pointsTotal, roundKey(round))
	if err != nil {
		return 0, errors.Wrap(err, "failed to get points total")
	}
	return v, nil
}

// TakePoints removes and returns one participant's points for a round.
// The round total keeps its value: it stays the denominator for the
// remaining participants of the same round.
func (s *storage) TakePoints(round uint32, acc rotor.Address) (uint64, error) {
	key := roundAddrKey(round, acc)
	v, err := s.getUint64(s.points, key)
	if err != nil {
		return 0, errors.Wrap(err, "failed to get points")
	}
	if v != 0 {
		if err := s.points.Delete(key); err != nil {
			return 0, errors.Wrap(err, "failed to delete points")
		}
	}
	return v, nil
}

// ClearPoints removes a settled round's tally: the total and any
// per-participant leftovers.
func (s *storage) ClearPoints(round uint32) error {
	if err := s.pointsTotal.Delete(roundKey(round)); err != nil {
		return errors.Wrap(err, "failed to delete points total")
	}

	var keys [][]byte
	iter := s.points.Iterate(roundRange(round))
	for iter.Next() {
		keys = append(keys, append([]byte(nil), iter.Key()...))
	}
	iter.Release()
	if err := iter.Error(); err != nil {
		return errors.Wrap(err, "failed to iterate points")
	}
	for _, k := range keys {
		if err := s.points.Delete(k); err != nil {
			return errors.Wrap(err, "failed to delete points")
		}
	}
	return nil
}

//
// Exposure snapshots
//

func (s *storage) SetAtStake(round uint32, acc rotor.Address, ex *Exposure) error {
	raw, err := rlp.EncodeToBytes(ex)
	if err != nil {
		return errors.Wrap(err, "failed to encode exposure")
	}
	return s.atStake.Put(roundAddrKey(round, acc), raw)
}

func (s *storage) GetAtStake(round uint32, acc rotor.Address) (*Exposure, error) {
	raw, err := s.atStake.Get(roundAddrKey(round, acc))
	if err != nil {
		if s.atStake.IsNotFound(err) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "failed to get exposure")
	}
	var ex Exposure
	if err := rlp.DecodeBytes(raw, &ex); err != nil {
		return nil, errors.Wrap(err, "failed to decode exposure")
	}
	return &ex, nil
}

// TakeFirstAtStake removes and returns the remaining exposure entry with the
// lowest participant address for a round. Iteration order is the store's
// byte order, so the pick is deterministic across runs and implementations.
func (s *storage) TakeFirstAtStake(round uint32) (rotor.Address, *Exposure, bool, error) {
	iter := s.atStake.Iterate(roundRange(round))
	defer iter.Release()
	if !iter.Next() {
		return rotor.Address{}, nil, false, iter.Error()
	}

	key := append([]byte(nil), iter.Key()...)
	addr := rotor.BytesToAddress(key[4:])
	var ex Exposure
	if err := rlp.DecodeBytes(iter.Value(), &ex); err != nil {
		return rotor.Address{}, nil, false, errors.Wrap(err, "failed to decode exposure")
	}
	iter.Release()

	if err := s.atStake.Delete(key); err != nil {
		return rotor.Address{}, nil, false, errors.Wrap(err, "failed to delete exposure")
	}
	return addr, &ex, true, nil
}

// ClearAtStake removes every exposure entry of a round. Used for rounds
// that will never be paid; settled rounds drain via TakeFirstAtStake.
func (s *storage) ClearAtStake(round uint32) error {
	var keys [][]byte
	iter := s.atStake.Iterate(roundRange(round))
	for iter.Next() {
		keys = append(keys, append([]byte(nil), iter.Key()...))
	}
	iter.Release()
	if err := iter.Error(); err != nil {
		return errors.Wrap(err, "failed to iterate exposures")
	}
	for _, k := range keys {
		if err := s.atStake.Delete(k); err != nil {
			return errors.Wrap(err, "failed to delete exposure")
		}
	}
	return nil
}

// AtStakeEntries returns all exposure entries of a round in address order.
func (s *storage) AtStakeEntries(round uint32) ([]rotor.Address, []*Exposure, error) {
	var (
		addrs     []rotor.Address
		exposures []*Exposure
	)
	iter := s.atStake.Iterate(roundRange(round))
	defer iter.Release()
	for iter.Next() {
		addrs = append(addrs, rotor.BytesToAddress(iter.Key()[4:]))
		var ex Exposure
		if err := rlp.DecodeBytes(iter.Value(), &ex); err != nil {
			return nil, nil, errors.Wrap(err, "failed to decode exposure")
		}
		exposures = append(exposures, &ex)
	}
	if err := iter.Error(); err != nil {
		return nil, nil, errors.Wrap(err, "failed to iterate exposures")
	}
	return addrs, exposures, nil
}

//
// Delayed payouts
//

func (s *storage) SetDelayedPayout(round uint32, p *DelayedPayout) error {
	raw, err := rlp.EncodeToBytes(p)
	if err != nil {
		return errors.Wrap(err, "failed to encode delayed payout")
	}
	return s.payout.Put(roundKey(round), raw)
}

// GetDelayedPayout returns nil if the round has no pending payout. A removed
// payout is indistinguishable from one never created, which makes repeated
// settlement ticks idempotent.
func (s *storage) GetDelayedPayout(round uint32) (*DelayedPayout, error) {
	raw, err := s.payout.Get(roundKey(round))
	if err != nil {
		if s.payout.IsNotFound(err) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "failed to get delayed payout")
	}
	var p DelayedPayout
	if err := rlp.DecodeBytes(raw, &p); err != nil {
		return nil, errors.Wrap(err, "failed to decode delayed payout")
	}
	return &p, nil
}

func (s *storage) DeleteDelayedPayout(round uint32) error {
	return s.payout.Delete(roundKey(round))
}

//
// Staked snapshots
//

func (s *storage) SetStaked(round uint32, total *big.Int) error {
	raw, err := rlp.EncodeToBytes(total)
	if err != nil {
		return errors.Wrap(err, "failed to encode staked total")
	}
	return s.staked.Put(roundKey(round), raw)
}

// TakeStaked removes and returns the staked snapshot of a round,
// zero if absent.
func (s *storage) TakeStaked(round uint32) (*big.Int, error) {
	raw, err := s.staked.Get(roundKey(round))
	if err != nil {
		if s.staked.IsNotFound(err) {
			return new(big.Int), nil
		}
		return nil, errors.Wrap(err, "failed to get staked total")
	}
	total := new(big.Int)
	if err := rlp.DecodeBytes(raw, total); err != nil {
		return nil, errors.Wrap(err, "failed to decode staked total")
	}
	if err := s.staked.Delete(roundKey(round)); err != nil {
		return nil, errors.Wrap(err, "failed to delete staked total")
	}
	return total, nil
}

//
// Selected set
//

func (s *storage) SetSelected(set []rotor.Address) error {
	raw, err := rlp.EncodeToBytes(set)
	if err != nil {
		return errors.Wrap(err, "failed to encode selected set")
	}
	return s.selected.Put(keySelected, raw)
}

func (s *storage) Selected() ([]rotor.Address, error) {
	raw, err := s.selected.Get(keySelected)
	if err != nil {
		if s.selected.IsNotFound(err) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "failed to get selected set")
	}
	var set []rotor.Address
	if err := rlp.DecodeBytes(raw, &set); err != nil {
		return nil, errors.Wrap(err, "failed to decode selected set")
	}
	return set, nil
}
