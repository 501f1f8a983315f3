// Copyright (C) 2024-2026, Omnidao Labs. All rights reserved.
// See the file LICENSE for licensing terms.

package payload

import (
	"github.com/omnidao/bridge"
)

// MetadataUpdate rewrites the metadata URI of one compressed NFT. The proof
// authenticates the current leaf against the collection tree.
type MetadataUpdate struct {
	LeafIndex uint32
	URI       string
	Proof     [][ProofNodeLen]byte
}

// BatchUpdate carries up to MaxBatchSize per-leaf metadata updates. The
// batch-size policy cap is enforced by the dispatcher, not the codec: an
// oversized batch is well-formed on the wire.
type BatchUpdate struct {
	Updates []MetadataUpdate
}

func (*BatchUpdate) Command() bridge.Command {
	return bridge.CommandBatchUpdateCNFTs
}

// Encode serializes a 4-byte entry count followed by the entries.
func (p *BatchUpdate) Encode() ([]byte, error) {
	b := appendUint32(nil, uint32(len(p.Updates)))
	for _, u := range p.Updates {
		b = appendUint32(b, u.LeafIndex)
		b = appendString(b, u.URI)
		b = appendProof(b, u.Proof)
	}
	return b, nil
}

// minUpdateSize is the smallest wire size of one entry: leaf index, empty
// uri, empty proof.
const minUpdateSize = 12

// DecodeBatchUpdate parses a BatchUpdate payload. The declared entry count
// must exactly match the available bytes.
func DecodeBatchUpdate(b []byte) (*BatchUpdate, error) {
	count, off, err := readCount(b, 0, minUpdateSize)
	if err != nil {
		return nil, err
	}
	updates := make([]MetadataUpdate, 0, count)
	for i := uint32(0); i < count; i++ {
		var u MetadataUpdate
		if u.LeafIndex, off, err = readUint32(b, off); err != nil {
			return nil, err
		}
		if u.URI, off, err = readString(b, off); err != nil {
			return nil, err
		}
		if u.Proof, off, err = readProof(b, off); err != nil {
			return nil, err
		}
		updates = append(updates, u)
	}
	if err := expectEnd(b, off); err != nil {
		return nil, err
	}
	return &BatchUpdate{Updates: updates}, nil
}
