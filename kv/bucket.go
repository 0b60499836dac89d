// Copyright (c) 2025 The Rotor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package kv

import "github.com/syndtr/goleveldb/leveldb/util"

// Bucket provides a logical key-prefixed bucket over a kv store.
type Bucket string

// NewStore creates a bucket store from the source store.
func (b Bucket) NewStore(src Store) Store {
	return &bucketStore{src: src, prefix: []byte(b)}
}

type bucketStore struct {
	src    Store
	prefix []byte
}

func (s *bucketStore) makeKey(key []byte) []byte {
	return append(append(make([]byte, 0, len(s.prefix)+len(key)), s.prefix...), key...)
}

func (s *bucketStore) Get(key []byte) ([]byte, error) {
	return s.src.Get(s.makeKey(key))
}

func (s *bucketStore) Has(key []byte) (bool, error) {
	return s.src.Has(s.makeKey(key))
}

func (s *bucketStore) IsNotFound(err error) bool {
	return s.src.IsNotFound(err)
}

func (s *bucketStore) Put(key, val []byte) error {
	return s.src.Put(s.makeKey(key), val)
}

func (s *bucketStore) Delete(key []byte) error {
	return s.src.Delete(s.makeKey(key))
}

func (s *bucketStore) Iterate(r Range) Iterator {
	start := s.makeKey(r.Start)
	var limit []byte
	if len(r.Limit) == 0 {
		limit = util.BytesPrefix(s.prefix).Limit
	} else {
		limit = s.makeKey(r.Limit)
	}
	return &bucketIterator{
		Iterator: s.src.Iterate(Range{Start: start, Limit: limit}),
		prefix:   len(s.prefix),
	}
}

// bucketIterator strips the bucket prefix off iterated keys.
type bucketIterator struct {
	Iterator
	prefix int
}

func (i *bucketIterator) Key() []byte {
	return i.Iterator.Key()[i.prefix:]
}
