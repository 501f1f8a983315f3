// Copyright (C) 2024-2026, Omnidao Labs. All rights reserved.
// See the file LICENSE for licensing terms.

// Package tree defines the boundary to the compressed-NFT storage tree and
// provides an in-process reference implementation. The controller treats
// the tree as an opaque proof-gated mutation collaborator; everything
// behind the Mutator interface is out of the protocol's hands.
package tree

import (
	"context"
	"errors"

	"github.com/luxfi/ids"
)

// HashLen is the size of a tree node hash and proof node.
const HashLen = 32

var (
	ErrInvalidProof   = errors.New("merkle proof verification failed")
	ErrLeafNotFound   = errors.New("leaf not found")
	ErrLeafOutOfRange = errors.New("leaf index out of range")
)

// Mutator is the external collaborator that applies proof-gated changes to
// the compressed-NFT tree. Every mutation fails unless the supplied proof
// verifies against the current tree root.
type Mutator interface {
	// UpdateLeaf rewrites the metadata URI of the leaf at index.
	UpdateLeaf(ctx context.Context, index uint32, newURI string, proof [][HashLen]byte) error

	// Burn clears the leaf at index. owner must match current ownership.
	Burn(ctx context.Context, index uint32, owner ids.ID, proof [][HashLen]byte) error

	// Transfer reassigns the leaf at index from one owner to another.
	Transfer(ctx context.Context, index uint32, from, to ids.ID, proof [][HashLen]byte) error

	// Owner reports the current owner of the leaf at index.
	Owner(index uint32) (ids.ID, error)
}
