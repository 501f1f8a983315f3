// Copyright (C) 2024-2026, Omnidao Labs. All rights reserved.
// See the file LICENSE for licensing terms.

package payload

import (
	"github.com/luxfi/ids"

	"github.com/omnidao/bridge"
)

// BurnRequest removes one compressed NFT from the tree. Owner is the
// expected current owner; the dispatcher re-checks it against stored
// ownership before touching the tree.
type BurnRequest struct {
	LeafIndex uint32
	Owner     ids.ID
	Proof     [][ProofNodeLen]byte
}

// BurnBatch carries burn requests for the receiver-side BURN_CNFTS command.
type BurnBatch struct {
	Requests []BurnRequest
}

func (*BurnBatch) Command() bridge.Command { return bridge.CommandBurnCNFTs }

func (p *BurnBatch) Encode() ([]byte, error) {
	b := appendUint32(nil, uint32(len(p.Requests)))
	for _, r := range p.Requests {
		b = appendUint32(b, r.LeafIndex)
		b = append(b, r.Owner[:]...)
		b = appendProof(b, r.Proof)
	}
	return b, nil
}

// minBurnSize is the smallest wire size of one request: leaf index, owner
// key, empty proof.
const minBurnSize = 40

// DecodeBurnBatch parses a BurnBatch payload.
func DecodeBurnBatch(b []byte) (*BurnBatch, error) {
	count, off, err := readCount(b, 0, minBurnSize)
	if err != nil {
		return nil, err
	}
	requests := make([]BurnRequest, 0, count)
	for i := uint32(0); i < count; i++ {
		var r BurnRequest
		if r.LeafIndex, off, err = readUint32(b, off); err != nil {
			return nil, err
		}
		if r.Owner, off, err = readKey(b, off); err != nil {
			return nil, err
		}
		if r.Proof, off, err = readProof(b, off); err != nil {
			return nil, err
		}
		requests = append(requests, r)
	}
	if err := expectEnd(b, off); err != nil {
		return nil, err
	}
	return &BurnBatch{Requests: requests}, nil
}

// TransferRequest moves one compressed NFT to a new owner. From is the
// expected current owner, re-checked by the dispatcher per entry.
type TransferRequest struct {
	LeafIndex uint32
	From      ids.ID
	To        ids.ID
	Proof     [][ProofNodeLen]byte
}

// TransferBatch carries transfer requests for the receiver-side
// TRANSFER_CNFTS command.
type TransferBatch struct {
	Requests []TransferRequest
}

func (*TransferBatch) Command() bridge.Command { return bridge.CommandTransferCNFTs }

func (p *TransferBatch) Encode() ([]byte, error) {
	b := appendUint32(nil, uint32(len(p.Requests)))
	for _, r := range p.Requests {
		b = appendUint32(b, r.LeafIndex)
		b = append(b, r.From[:]...)
		b = append(b, r.To[:]...)
		b = appendProof(b, r.Proof)
	}
	return b, nil
}

// minTransferSize is the smallest wire size of one request: leaf index,
// from and to keys, empty proof.
const minTransferSize = 72

// DecodeTransferBatch parses a TransferBatch payload.
func DecodeTransferBatch(b []byte) (*TransferBatch, error) {
	count, off, err := readCount(b, 0, minTransferSize)
	if err != nil {
		return nil, err
	}
	requests := make([]TransferRequest, 0, count)
	for i := uint32(0); i < count; i++ {
		var r TransferRequest
		if r.LeafIndex, off, err = readUint32(b, off); err != nil {
			return nil, err
		}
		if r.From, off, err = readKey(b, off); err != nil {
			return nil, err
		}
		if r.To, off, err = readKey(b, off); err != nil {
			return nil, err
		}
		if r.Proof, off, err = readProof(b, off); err != nil {
			return nil, err
		}
		requests = append(requests, r)
	}
	if err := expectEnd(b, off); err != nil {
		return nil, err
	}
	return &TransferBatch{Requests: requests}, nil
}
