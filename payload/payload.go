// Copyright (C) 2024-2026, Omnidao Labs. All rights reserved.
// See the file LICENSE for licensing terms.

// Package payload implements the command-specific payload codecs carried
// inside the cross-chain envelope. Every decoder fails closed: a length
// prefix that would read past the buffer end, or a declared count that does
// not match the available bytes, is an error rather than a truncated value.
package payload

import (
	"errors"
	"fmt"

	"github.com/omnidao/bridge"
)

var (
	// ErrMalformedPayload is returned when a payload cannot be decoded.
	ErrMalformedPayload = errors.New("malformed payload")

	// ErrInvalidAuthorityLength is returned when a TransferAuthority
	// payload is not exactly 32 bytes.
	ErrInvalidAuthorityLength = errors.New("invalid authority length")
)

// ProofNodeLen is the size of one Merkle proof node.
const ProofNodeLen = 32

// Payload is a decoded command payload.
type Payload interface {
	// Command returns the envelope command tag this payload belongs to.
	Command() bridge.Command

	// Encode returns the wire representation of the payload.
	Encode() ([]byte, error)
}

// Parse decodes the payload bytes for the given command. The switch is
// exhaustive over the command enum so a new command cannot be added without
// a decoder.
func Parse(command bridge.Command, b []byte) (Payload, error) {
	switch command {
	case bridge.CommandUpdateCollectionMetadata:
		return DecodeUpdateMetadata(b)
	case bridge.CommandBatchUpdateCNFTs:
		return DecodeBatchUpdate(b)
	case bridge.CommandTransferAuthority:
		return DecodeTransferAuthority(b)
	case bridge.CommandEmergencyPause:
		return DecodePause(b)
	case bridge.CommandEmergencyUnpause:
		return DecodeUnpause(b)
	case bridge.CommandBurnCNFTs:
		return DecodeBurnBatch(b)
	case bridge.CommandTransferCNFTs:
		return DecodeTransferBatch(b)
	default:
		return nil, fmt.Errorf("%w: command tag %d", bridge.ErrInvalidCommand, uint8(command))
	}
}
