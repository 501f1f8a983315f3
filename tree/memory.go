// Copyright (C) 2024-2026, Omnidao Labs. All rights reserved.
// See the file LICENSE for licensing terms.

package tree

import (
	"context"
	"crypto/sha256"
	"fmt"
	"sync"

	"github.com/luxfi/ids"
)

// Memory is a fixed-depth SHA-256 Merkle tree holding compressed-NFT
// leaves in process. It implements Mutator with real proof verification so
// tests and the demo exercise the same failure modes as the external tree:
// a stale or empty proof is rejected before any leaf changes.
type Memory struct {
	lock   sync.Mutex
	depth  int
	levels [][][HashLen]byte // levels[0] = leaf hashes, last level = [root]
	owners map[uint32]ids.ID
	uris   map[uint32]string
}

// NewMemory creates an empty tree with capacity 2^depth leaves.
func NewMemory(depth int) (*Memory, error) {
	if depth < 1 || depth > 24 {
		return nil, fmt.Errorf("tree depth %d out of range [1, 24]", depth)
	}
	m := &Memory{
		depth:  depth,
		owners: make(map[uint32]ids.ID),
		uris:   make(map[uint32]string),
	}
	m.levels = make([][][HashLen]byte, depth+1)
	width := 1 << depth
	for i := range m.levels {
		m.levels[i] = make([][HashLen]byte, width)
		width /= 2
	}
	// Fill internal levels consistent with all-zero leaves.
	for lvl := 0; lvl < depth; lvl++ {
		for j := 0; j < len(m.levels[lvl+1]); j++ {
			m.levels[lvl+1][j] = hashPair(m.levels[lvl][2*j], m.levels[lvl][2*j+1])
		}
	}
	return m, nil
}

// Capacity returns the number of leaf slots.
func (m *Memory) Capacity() uint32 {
	return 1 << m.depth
}

// Root returns the current tree root.
func (m *Memory) Root() [HashLen]byte {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.levels[m.depth][0]
}

// Mint seeds the leaf at index. It is setup plumbing for tests and the
// demo, standing in for the external mass-mint path, and is not proof
// gated.
func (m *Memory) Mint(index uint32, owner ids.ID, uri string) error {
	m.lock.Lock()
	defer m.lock.Unlock()
	if index >= m.Capacity() {
		return fmt.Errorf("%w: index %d, capacity %d", ErrLeafOutOfRange, index, m.Capacity())
	}
	m.owners[index] = owner
	m.uris[index] = uri
	m.setLeafLocked(index, leafHash(owner, uri))
	return nil
}

// Proof returns the sibling path for the leaf at index, suitable for the
// next mutation of that leaf.
func (m *Memory) Proof(index uint32) ([][HashLen]byte, error) {
	m.lock.Lock()
	defer m.lock.Unlock()
	if index >= m.Capacity() {
		return nil, fmt.Errorf("%w: index %d, capacity %d", ErrLeafOutOfRange, index, m.Capacity())
	}
	proof := make([][HashLen]byte, m.depth)
	idx := index
	for lvl := 0; lvl < m.depth; lvl++ {
		proof[lvl] = m.levels[lvl][idx^1]
		idx /= 2
	}
	return proof, nil
}

// Owner implements Mutator.
func (m *Memory) Owner(index uint32) (ids.ID, error) {
	m.lock.Lock()
	defer m.lock.Unlock()
	owner, ok := m.owners[index]
	if !ok {
		return ids.ID{}, fmt.Errorf("%w: index %d", ErrLeafNotFound, index)
	}
	return owner, nil
}

// URI returns the current metadata URI of the leaf at index.
func (m *Memory) URI(index uint32) (string, error) {
	m.lock.Lock()
	defer m.lock.Unlock()
	uri, ok := m.uris[index]
	if !ok {
		return "", fmt.Errorf("%w: index %d", ErrLeafNotFound, index)
	}
	return uri, nil
}

// UpdateLeaf implements Mutator.
func (m *Memory) UpdateLeaf(_ context.Context, index uint32, newURI string, proof [][HashLen]byte) error {
	m.lock.Lock()
	defer m.lock.Unlock()
	owner, ok := m.owners[index]
	if !ok {
		return fmt.Errorf("%w: index %d", ErrLeafNotFound, index)
	}
	if err := m.verifyLocked(index, leafHash(owner, m.uris[index]), proof); err != nil {
		return err
	}
	m.uris[index] = newURI
	m.setLeafLocked(index, leafHash(owner, newURI))
	return nil
}

// Burn implements Mutator.
func (m *Memory) Burn(_ context.Context, index uint32, owner ids.ID, proof [][HashLen]byte) error {
	m.lock.Lock()
	defer m.lock.Unlock()
	current, ok := m.owners[index]
	if !ok {
		return fmt.Errorf("%w: index %d", ErrLeafNotFound, index)
	}
	if current != owner {
		return fmt.Errorf("%w: leaf %d not owned by requested owner", ErrInvalidProof, index)
	}
	if err := m.verifyLocked(index, leafHash(current, m.uris[index]), proof); err != nil {
		return err
	}
	delete(m.owners, index)
	delete(m.uris, index)
	m.setLeafLocked(index, [HashLen]byte{})
	return nil
}

// Transfer implements Mutator.
func (m *Memory) Transfer(_ context.Context, index uint32, from, to ids.ID, proof [][HashLen]byte) error {
	m.lock.Lock()
	defer m.lock.Unlock()
	current, ok := m.owners[index]
	if !ok {
		return fmt.Errorf("%w: index %d", ErrLeafNotFound, index)
	}
	if current != from {
		return fmt.Errorf("%w: leaf %d not owned by sender", ErrInvalidProof, index)
	}
	if err := m.verifyLocked(index, leafHash(current, m.uris[index]), proof); err != nil {
		return err
	}
	m.owners[index] = to
	m.setLeafLocked(index, leafHash(to, m.uris[index]))
	return nil
}

// verifyLocked folds the supplied proof over the expected leaf hash and
// compares against the current root. A proof of the wrong length (zero
// included) can never verify.
func (m *Memory) verifyLocked(index uint32, leaf [HashLen]byte, proof [][HashLen]byte) error {
	if len(proof) != m.depth {
		return fmt.Errorf("%w: proof has %d nodes, tree depth is %d", ErrInvalidProof, len(proof), m.depth)
	}
	cur := leaf
	idx := index
	for _, sibling := range proof {
		if idx%2 == 0 {
			cur = hashPair(cur, sibling)
		} else {
			cur = hashPair(sibling, cur)
		}
		idx /= 2
	}
	if cur != m.levels[m.depth][0] {
		return fmt.Errorf("%w: computed root does not match tree root", ErrInvalidProof)
	}
	return nil
}

func (m *Memory) setLeafLocked(index uint32, leaf [HashLen]byte) {
	m.levels[0][index] = leaf
	idx := index
	for lvl := 0; lvl < m.depth; lvl++ {
		parent := idx / 2
		m.levels[lvl+1][parent] = hashPair(m.levels[lvl][parent*2], m.levels[lvl][parent*2+1])
		idx = parent
	}
}

func leafHash(owner ids.ID, uri string) [HashLen]byte {
	h := sha256.New()
	h.Write(owner[:])
	h.Write([]byte(uri))
	var out [HashLen]byte
	copy(out[:], h.Sum(nil))
	return out
}

func hashPair(left, right [HashLen]byte) [HashLen]byte {
	h := sha256.New()
	h.Write(left[:])
	h.Write(right[:])
	var out [HashLen]byte
	copy(out[:], h.Sum(nil))
	return out
}
