// Copyright (c) 2025 The Rotor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package staking

import (
	"math/big"
	"sort"

	"github.com/ethereum/go-ethereum/rlp"
	lru "github.com/hashicorp/golang-lru"
	"github.com/pkg/errors"

	"github.com/rotorlabs/rotor/kv"
	"github.com/rotorlabs/rotor/log"
	"github.com/rotorlabs/rotor/rotor"
)

var poolLogger = log.WithContext("pkg", "staking", "component", "pool")

var (
	bucketCandidate    = kv.Bucket("ci")
	bucketBackers      = kv.Bucket("cb")
	bucketRevokes      = kv.Bucket("cr")
	bucketAutoCompound = kv.Bucket("ca")
	bucketSeq          = kv.Bucket("cq")
)

const candidateCacheSize = 256

// Candidate is a registered participant eligible for selection.
type Candidate struct {
	Owner        rotor.Address `rlp:"-"` // derived from the storage key
	Bond         *big.Int      // the candidate's own stake
	TotalBacking *big.Int      // Bond plus every backer bond, counted or not
	Seq          uint64        // registration order, breaks ranking ties
}

// Bond is one backer's stake behind a candidate.
type Bond struct {
	Backer rotor.Address
	Amount *big.Int
}

// backerSet is a candidate's full backer list, kept sorted by amount
// descending, address ascending on equal amounts. The counted/overflow
// partition is a prefix of this order.
type backerSet struct {
	Entries []Bond
}

func (bs *backerSet) sort() {
	sort.SliceStable(bs.Entries, func(i, j int) bool {
		cmp := bs.Entries[i].Amount.Cmp(bs.Entries[j].Amount)
		if cmp != 0 {
			return cmp > 0
		}
		return bs.Entries[i].Backer.Compare(bs.Entries[j].Backer) < 0
	})
}

func (bs *backerSet) find(backer rotor.Address) int {
	for i := range bs.Entries {
		if bs.Entries[i].Backer == backer {
			return i
		}
	}
	return -1
}

// CandidatePool is the persistent registry of candidates and their backers.
// The selector reads it when building a round's snapshot; the auto-compound
// engine writes it when re-bonding payouts. Bond changes only ever affect
// future rounds: already-built snapshots are immutable.
type CandidatePool struct {
	candidates   kv.Store
	backers      kv.Store
	revokes      kv.Store
	autoCompound kv.Store
	seq          kv.Store

	ledger Ledger
	cache  *lru.Cache // addr -> *Candidate
}

// NewCandidatePool creates a pool over the given store.
func NewCandidatePool(src kv.Store, ledger Ledger) *CandidatePool {
	cache, _ := lru.New(candidateCacheSize)
	return &CandidatePool{
		candidates:   bucketCandidate.NewStore(src),
		backers:      bucketBackers.NewStore(src),
		revokes:      bucketRevokes.NewStore(src),
		autoCompound: bucketAutoCompound.NewStore(src),
		seq:          bucketSeq.NewStore(src),
		ledger:       ledger,
		cache:        cache,
	}
}

func pairKey(candidate, backer rotor.Address) []byte {
	k := make([]byte, 0, 2*rotor.AddressLength)
	return append(append(k, candidate.Bytes()...), backer.Bytes()...)
}

func (p *CandidatePool) nextSeq() (uint64, error) {
	var seq uint64
	raw, err := p.seq.Get(keySelected)
	if err != nil {
		if !p.seq.IsNotFound(err) {
			return 0, errors.Wrap(err, "failed to get registration counter")
		}
	} else if err := rlp.DecodeBytes(raw, &seq); err != nil {
		return 0, errors.Wrap(err, "failed to decode registration counter")
	}

	raw, err = rlp.EncodeToBytes(seq + 1)
	if err != nil {
		return 0, err
	}
	if err := p.seq.Put(keySelected, raw); err != nil {
		return 0, errors.Wrap(err, "failed to set registration counter")
	}
	return seq, nil
}

// Register adds a new candidate with its own bond, locking the bond on the
// ledger.
func (p *CandidatePool) Register(owner rotor.Address, bond *big.Int) error {
	if bond.Sign() <= 0 {
		return errors.New("bond must be positive")
	}
	existing, err := p.Candidate(owner)
	if err != nil {
		return err
	}
	if existing != nil {
		return errors.Errorf("candidate already registered: %v", owner)
	}

	if err := p.ledger.LockForStake(owner, bond); err != nil {
		return errors.Wrap(err, "failed to lock candidate bond")
	}

	seq, err := p.nextSeq()
	if err != nil {
		return err
	}
	c := &Candidate{
		Owner:        owner,
		Bond:         new(big.Int).Set(bond),
		TotalBacking: new(big.Int).Set(bond),
		Seq:          seq,
	}
	if err := p.setCandidate(c); err != nil {
		return err
	}
	poolLogger.Info("registered candidate", "owner", owner, "bond", bond)
	return nil
}

// AddBond bonds a backer behind a candidate, locking the amount. A backer
// holds at most one bond per candidate; use IncreaseBond to grow it.
func (p *CandidatePool) AddBond(candidate, backer rotor.Address, amount *big.Int) error {
	if amount.Sign() <= 0 {
		return errors.New("bond must be positive")
	}
	c, err := p.existingCandidate(candidate)
	if err != nil {
		return err
	}
	bs, err := p.backerSet(candidate)
	if err != nil {
		return err
	}
	if bs.find(backer) >= 0 {
		return errors.Errorf("backer already bonded: %v", backer)
	}

	if err := p.ledger.LockForStake(backer, amount); err != nil {
		return errors.Wrap(err, "failed to lock backer bond")
	}

	bs.Entries = append(bs.Entries, Bond{Backer: backer, Amount: new(big.Int).Set(amount)})
	bs.sort()
	if err := p.setBackerSet(candidate, bs); err != nil {
		return err
	}

	c.TotalBacking.Add(c.TotalBacking, amount)
	if err := p.setCandidate(c); err != nil {
		return err
	}
	poolLogger.Info("added backer bond", "candidate", candidate, "backer", backer, "amount", amount)
	return nil
}

// IncreaseBond grows an existing backer bond, locking the extra amount and
// re-ranking the backer inside the candidate's set. The counted/overflow
// partition can change for future rounds only.
func (p *CandidatePool) IncreaseBond(candidate, backer rotor.Address, amount *big.Int) error {
	if amount.Sign() <= 0 {
		return errors.New("amount must be positive")
	}
	c, err := p.existingCandidate(candidate)
	if err != nil {
		return err
	}
	bs, err := p.backerSet(candidate)
	if err != nil {
		return err
	}
	i := bs.find(backer)
	if i < 0 {
		return errors.Errorf("no bond for backer: %v", backer)
	}

	if err := p.ledger.LockForStake(backer, amount); err != nil {
		return errors.Wrap(err, "failed to lock backer bond")
	}

	bs.Entries[i].Amount = new(big.Int).Add(bs.Entries[i].Amount, amount)
	bs.sort()
	if err := p.setBackerSet(candidate, bs); err != nil {
		return err
	}

	c.TotalBacking.Add(c.TotalBacking, amount)
	return p.setCandidate(c)
}

// ScheduleRevoke records a backer's pending full-withdrawal request against
// a candidate. While pending, auto-compounding onto the pair is skipped.
func (p *CandidatePool) ScheduleRevoke(candidate, backer rotor.Address) error {
	bs, err := p.backerSet(candidate)
	if err != nil {
		return err
	}
	if bs.find(backer) < 0 {
		return errors.Errorf("no bond for backer: %v", backer)
	}
	return p.revokes.Put(pairKey(candidate, backer), []byte{1})
}

// CancelRevoke clears a pending revoke request.
func (p *CandidatePool) CancelRevoke(candidate, backer rotor.Address) error {
	return p.revokes.Delete(pairKey(candidate, backer))
}

// HasPendingRevoke returns whether the pair has a pending revoke request.
func (p *CandidatePool) HasPendingRevoke(candidate, backer rotor.Address) (bool, error) {
	has, err := p.revokes.Has(pairKey(candidate, backer))
	if err != nil {
		return false, errors.Wrap(err, "failed to check revoke")
	}
	return has, nil
}

// SetAutoCompound stores a backer's reinvestment fraction for a candidate.
// The config has its own lifecycle: the backer may change it at any time,
// and it is only consulted when a snapshot is built.
func (p *CandidatePool) SetAutoCompound(candidate, backer rotor.Address, fraction rotor.Percent) error {
	if !fraction.IsValid() {
		return errors.Errorf("invalid auto-compound fraction: %d", fraction)
	}
	if fraction == 0 {
		return p.autoCompound.Delete(pairKey(candidate, backer))
	}
	return p.autoCompound.Put(pairKey(candidate, backer), []byte{byte(fraction)})
}

// AutoCompound returns the configured fraction, zero if unset.
func (p *CandidatePool) AutoCompound(candidate, backer rotor.Address) (rotor.Percent, error) {
	raw, err := p.autoCompound.Get(pairKey(candidate, backer))
	if err != nil {
		if p.autoCompound.IsNotFound(err) {
			return 0, nil
		}
		return 0, errors.Wrap(err, "failed to get auto-compound config")
	}
	if len(raw) != 1 {
		return 0, errors.New("corrupt auto-compound config")
	}
	return rotor.Percent(raw[0]), nil
}

// Candidate returns the candidate, nil if not registered.
func (p *CandidatePool) Candidate(owner rotor.Address) (*Candidate, error) {
	if cached, ok := p.cache.Get(owner); ok {
		return cached.(*Candidate), nil
	}
	raw, err := p.candidates.Get(owner.Bytes())
	if err != nil {
		if p.candidates.IsNotFound(err) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "failed to get candidate")
	}
	var c Candidate
	if err := rlp.DecodeBytes(raw, &c); err != nil {
		return nil, errors.Wrap(err, "failed to decode candidate")
	}
	c.Owner = owner
	p.cache.Add(owner, &c)
	return &c, nil
}

func (p *CandidatePool) existingCandidate(owner rotor.Address) (*Candidate, error) {
	c, err := p.Candidate(owner)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, errors.Errorf("candidate not registered: %v", owner)
	}
	return c, nil
}

func (p *CandidatePool) setCandidate(c *Candidate) error {
	raw, err := rlp.EncodeToBytes(c)
	if err != nil {
		return errors.Wrap(err, "failed to encode candidate")
	}
	if err := p.candidates.Put(c.Owner.Bytes(), raw); err != nil {
		return errors.Wrap(err, "failed to set candidate")
	}
	p.cache.Add(c.Owner, c)
	return nil
}

// Candidates returns all registered candidates in address order.
func (p *CandidatePool) Candidates() ([]*Candidate, error) {
	var out []*Candidate
	iter := p.candidates.Iterate(kv.Range{})
	defer iter.Release()
	for iter.Next() {
		var c Candidate
		if err := rlp.DecodeBytes(iter.Value(), &c); err != nil {
			return nil, errors.Wrap(err, "failed to decode candidate")
		}
		c.Owner = rotor.BytesToAddress(iter.Key())
		out = append(out, &c)
	}
	if err := iter.Error(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate candidates")
	}
	return out, nil
}

// Backers returns the candidate's full ordered backer list.
func (p *CandidatePool) Backers(candidate rotor.Address) ([]Bond, error) {
	bs, err := p.backerSet(candidate)
	if err != nil {
		return nil, err
	}
	return bs.Entries, nil
}

// CountedBackers returns the top ranked backers bounded by cap: the subset
// that shares in the candidate's reward.
func (p *CandidatePool) CountedBackers(candidate rotor.Address, cap uint32) ([]Bond, error) {
	bs, err := p.backerSet(candidate)
	if err != nil {
		return nil, err
	}
	if uint32(len(bs.Entries)) <= cap {
		return bs.Entries, nil
	}
	return bs.Entries[:cap], nil
}

func (p *CandidatePool) backerSet(candidate rotor.Address) (*backerSet, error) {
	raw, err := p.backers.Get(candidate.Bytes())
	if err != nil {
		if p.backers.IsNotFound(err) {
			return &backerSet{}, nil
		}
		return nil, errors.Wrap(err, "failed to get backer set")
	}
	var bs backerSet
	if err := rlp.DecodeBytes(raw, &bs); err != nil {
		return nil, errors.Wrap(err, "failed to decode backer set")
	}
	return &bs, nil
}

func (p *CandidatePool) setBackerSet(candidate rotor.Address, bs *backerSet) error {
	raw, err := rlp.EncodeToBytes(bs)
	if err != nil {
		return errors.Wrap(err, "failed to encode backer set")
	}
	if err := p.backers.Put(candidate.Bytes(), raw); err != nil {
		return errors.Wrap(err, "failed to set backer set")
	}
	return nil
}
