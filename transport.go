// Copyright (C) 2024-2026, Omnidao Labs. All rights reserved.
// See the file LICENSE for licensing terms.

package bridge

import (
	"context"
	"errors"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
	"github.com/luxfi/ids"
)

var (
	ErrInsufficientFee    = errors.New("insufficient fee")
	ErrUnknownDestination = errors.New("unknown destination endpoint")
)

// Origin is the authenticated metadata the transport attaches to every
// delivered message. SrcEID and Sender are verified by the transport's own
// validator set; the receiver still pins them against its configured peer.
type Origin struct {
	SrcEID uint32
	Sender common.Address
	Nonce  uint64
}

// Fee is the price quoted by the transport for delivering one message.
type Fee struct {
	Native *uint256.Int
	Token  *uint256.Int
}

// Clone returns a deep copy of the fee.
func (f Fee) Clone() Fee {
	out := Fee{}
	if f.Native != nil {
		out.Native = f.Native.Clone()
	}
	if f.Token != nil {
		out.Token = f.Token.Clone()
	}
	return out
}

// Receipt identifies an accepted outbound message.
type Receipt struct {
	GUID  ids.ID
	Nonce uint64

	// Paid is the native fee the transport actually charged; any excess of
	// the submitted fee over Paid is refunded.
	Paid *uint256.Int
}

// SendOptions carries transport-specific delivery options.
type SendOptions struct {
	// GasLimit to use for execution on the destination chain.
	GasLimit uint64
}

// Transport is the opaque cross-chain messaging channel: at-least-once,
// possibly reordered delivery with authenticated origin metadata.
type Transport interface {
	// Quote returns the fee required to deliver message to dstEID.
	Quote(ctx context.Context, dstEID uint32, message []byte, opts SendOptions) (Fee, error)

	// Send submits message for delivery to dstEID. The supplied fee must
	// cover the quote; any excess native fee is refunded to refundAddr.
	Send(ctx context.Context, dstEID uint32, message []byte, opts SendOptions, fee Fee, refundAddr common.Address) (Receipt, error)
}

// Receiver is the destination-side entry point the transport invokes for
// each delivered message.
type Receiver interface {
	Receive(ctx context.Context, origin Origin, message []byte) error
}
