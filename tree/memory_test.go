// Copyright (C) 2024-2026, Omnidao Labs. All rights reserved.
// See the file LICENSE for licensing terms.

package tree

import (
	"context"
	"testing"

	"github.com/luxfi/ids"
	"github.com/stretchr/testify/require"
)

func key(b byte) ids.ID {
	var id ids.ID
	id[0] = b
	return id
}

func TestMemoryUpdateLeaf(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()

	m, err := NewMemory(4)
	require.NoError(err)
	require.Equal(uint32(16), m.Capacity())

	owner := key(1)
	require.NoError(m.Mint(3, owner, "https://x/3.json"))
	rootBefore := m.Root()

	proof, err := m.Proof(3)
	require.NoError(err)
	require.Len(proof, 4)

	require.NoError(m.UpdateLeaf(ctx, 3, "https://x/3-v2.json", proof))
	require.NotEqual(rootBefore, m.Root())

	uri, err := m.URI(3)
	require.NoError(err)
	require.Equal("https://x/3-v2.json", uri)
}

func TestMemoryStaleProofRejected(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()

	m, err := NewMemory(3)
	require.NoError(err)
	require.NoError(m.Mint(0, key(1), "a"))
	require.NoError(m.Mint(1, key(2), "b"))

	proof, err := m.Proof(0)
	require.NoError(err)

	// Mutating leaf 1 invalidates leaf 0's proof.
	fresh, err := m.Proof(1)
	require.NoError(err)
	require.NoError(m.UpdateLeaf(ctx, 1, "b2", fresh))

	err = m.UpdateLeaf(ctx, 0, "a2", proof)
	require.ErrorIs(err, ErrInvalidProof)

	// Leaf 0 untouched.
	uri, err := m.URI(0)
	require.NoError(err)
	require.Equal("a", uri)
}

func TestMemoryEmptyProofRejected(t *testing.T) {
	m, err := NewMemory(3)
	require.NoError(t, err)
	require.NoError(t, m.Mint(2, key(1), "a"))

	err = m.UpdateLeaf(context.Background(), 2, "a2", nil)
	require.ErrorIs(t, err, ErrInvalidProof)
}

func TestMemoryBurn(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()

	m, err := NewMemory(3)
	require.NoError(err)
	owner := key(7)
	require.NoError(m.Mint(5, owner, "u"))

	proof, err := m.Proof(5)
	require.NoError(err)

	// Wrong owner fails before mutation.
	err = m.Burn(ctx, 5, key(8), proof)
	require.ErrorIs(err, ErrInvalidProof)

	require.NoError(m.Burn(ctx, 5, owner, proof))
	_, err = m.Owner(5)
	require.ErrorIs(err, ErrLeafNotFound)

	// Double burn fails.
	err = m.Burn(ctx, 5, owner, proof)
	require.ErrorIs(err, ErrLeafNotFound)
}

func TestMemoryTransfer(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()

	m, err := NewMemory(3)
	require.NoError(err)
	from, to := key(1), key(2)
	require.NoError(m.Mint(0, from, "u"))

	proof, err := m.Proof(0)
	require.NoError(err)
	require.NoError(m.Transfer(ctx, 0, from, to, proof))

	owner, err := m.Owner(0)
	require.NoError(err)
	require.Equal(to, owner)

	// Old owner can no longer move it, even with a fresh proof.
	proof, err = m.Proof(0)
	require.NoError(err)
	err = m.Transfer(ctx, 0, from, to, proof)
	require.ErrorIs(err, ErrInvalidProof)
}

func TestMemoryOutOfRange(t *testing.T) {
	m, err := NewMemory(2)
	require.NoError(t, err)

	require.ErrorIs(t, m.Mint(4, key(1), "u"), ErrLeafOutOfRange)
	_, err = m.Proof(4)
	require.ErrorIs(t, err, ErrLeafOutOfRange)
}
