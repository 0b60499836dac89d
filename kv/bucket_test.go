// Copyright (c) 2025 The Rotor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package kv

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBucket(t *testing.T) {
	db, err := NewMem()
	require.NoError(t, err)
	defer db.Close()

	b1 := Bucket("b1-").NewStore(db)
	b2 := Bucket("b2-").NewStore(db)

	require.NoError(t, b1.Put([]byte("k"), []byte("v1")))
	require.NoError(t, b2.Put([]byte("k"), []byte("v2")))

	v, err := b1.Get([]byte("k"))
	require.NoError(t, err)
	assert.Equal(t, []byte("v1"), v)

	v, err = b2.Get([]byte("k"))
	require.NoError(t, err)
	assert.Equal(t, []byte("v2"), v)

	// raw keys carry the prefix
	has, err := db.Has([]byte("b1-k"))
	require.NoError(t, err)
	assert.True(t, has)

	require.NoError(t, b1.Delete([]byte("k")))
	_, err = b1.Get([]byte("k"))
	assert.True(t, b1.IsNotFound(err))
}

func TestBucketIterate(t *testing.T) {
	db, err := NewMem()
	require.NoError(t, err)
	defer db.Close()

	b := Bucket("it-").NewStore(db)
	require.NoError(t, b.Put([]byte("a"), []byte("1")))
	require.NoError(t, b.Put([]byte("b"), []byte("2")))
	require.NoError(t, b.Put([]byte("c"), []byte("3")))

	// neighbour bucket must not leak into iteration
	require.NoError(t, Bucket("iu-").NewStore(db).Put([]byte("a"), []byte("x")))

	var keys []string
	iter := b.Iterate(Range{})
	for iter.Next() {
		keys = append(keys, string(iter.Key()))
	}
	iter.Release()
	require.NoError(t, iter.Error())
	assert.Equal(t, []string{"a", "b", "c"}, keys)

	// bounded range excludes the limit key
	keys = keys[:0]
	iter = b.Iterate(Range{Start: []byte("b"), Limit: []byte("c")})
	for iter.Next() {
		keys = append(keys, string(iter.Key()))
	}
	iter.Release()
	require.NoError(t, iter.Error())
	assert.Equal(t, []string{"b"}, keys)
}
