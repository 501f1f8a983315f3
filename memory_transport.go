// Copyright (C) 2024-2026, Omnidao Labs. All rights reserved.
// See the file LICENSE for licensing terms.

package bridge

import (
	"context"
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
	"github.com/luxfi/ids"
)

// MemoryTransport is an in-process Transport used by tests and the demo
// CLI. It charges a base fee plus a per-byte fee, refunds any overpayment,
// and delivers synchronously to the registered receiver. Deliveries are
// recorded so tests can replay them to exercise at-least-once semantics.
type MemoryTransport struct {
	lock sync.Mutex

	srcEID     uint32
	sender     common.Address
	baseFee    *uint256.Int
	perByteFee *uint256.Int

	receivers map[uint32]Receiver
	nonce     uint64

	// Refunds accumulates refunded native fees per refund address.
	Refunds map[common.Address]*uint256.Int

	// Sent holds every accepted delivery in order.
	Sent []MemoryDelivery
}

// MemoryDelivery is one accepted Send, kept for redelivery in tests.
type MemoryDelivery struct {
	DstEID  uint32
	Origin  Origin
	Message []byte
	Receipt Receipt
}

// NewMemoryTransport creates a loopback transport whose outbound messages
// carry the given source endpoint id and sender address.
func NewMemoryTransport(srcEID uint32, sender common.Address, baseFee, perByteFee uint64) *MemoryTransport {
	return &MemoryTransport{
		srcEID:     srcEID,
		sender:     sender,
		baseFee:    uint256.NewInt(baseFee),
		perByteFee: uint256.NewInt(perByteFee),
		receivers:  make(map[uint32]Receiver),
		Refunds:    make(map[common.Address]*uint256.Int),
	}
}

// Register attaches the receiver for a destination endpoint id.
func (t *MemoryTransport) Register(dstEID uint32, r Receiver) {
	t.lock.Lock()
	defer t.lock.Unlock()
	t.receivers[dstEID] = r
}

// Quote implements Transport.
func (t *MemoryTransport) Quote(_ context.Context, dstEID uint32, message []byte, _ SendOptions) (Fee, error) {
	t.lock.Lock()
	defer t.lock.Unlock()
	if _, ok := t.receivers[dstEID]; !ok {
		return Fee{}, fmt.Errorf("%w: eid %d", ErrUnknownDestination, dstEID)
	}
	return Fee{Native: t.quoteLocked(message), Token: uint256.NewInt(0)}, nil
}

func (t *MemoryTransport) quoteLocked(message []byte) *uint256.Int {
	cost := new(uint256.Int).Mul(t.perByteFee, uint256.NewInt(uint64(len(message))))
	return cost.Add(cost, t.baseFee)
}

// Send implements Transport. Delivery is synchronous: the receiver's error
// is not surfaced to the sender, matching the asynchrony of the real
// channel, but it is observable through the receiver's own state.
func (t *MemoryTransport) Send(
	ctx context.Context,
	dstEID uint32,
	message []byte,
	_ SendOptions,
	fee Fee,
	refundAddr common.Address,
) (Receipt, error) {
	t.lock.Lock()
	receiver, ok := t.receivers[dstEID]
	if !ok {
		t.lock.Unlock()
		return Receipt{}, fmt.Errorf("%w: eid %d", ErrUnknownDestination, dstEID)
	}

	quoted := t.quoteLocked(message)
	if fee.Native == nil || fee.Native.Lt(quoted) {
		t.lock.Unlock()
		return Receipt{}, fmt.Errorf("%w: paid %v, quoted %v", ErrInsufficientFee, fee.Native, quoted)
	}
	if excess := new(uint256.Int).Sub(fee.Native, quoted); !excess.IsZero() {
		prev, ok := t.Refunds[refundAddr]
		if !ok {
			prev = uint256.NewInt(0)
			t.Refunds[refundAddr] = prev
		}
		prev.Add(prev, excess)
	}

	t.nonce++
	delivery := MemoryDelivery{
		DstEID: dstEID,
		Origin: Origin{
			SrcEID: t.srcEID,
			Sender: t.sender,
			Nonce:  t.nonce,
		},
		Message: append([]byte(nil), message...),
		Receipt: Receipt{
			GUID:  deliveryGUID(t.srcEID, dstEID, t.nonce, message),
			Nonce: t.nonce,
			Paid:  quoted.Clone(),
		},
	}
	t.Sent = append(t.Sent, delivery)
	t.lock.Unlock()

	// Best-effort delivery outside the lock. A failed receive is the
	// receiver's problem; the transport only guarantees the attempt.
	_ = receiver.Receive(ctx, delivery.Origin, delivery.Message)

	return delivery.Receipt, nil
}

// Redeliver replays a recorded delivery, simulating the duplicate and
// out-of-order redelivery a real channel may produce.
func (t *MemoryTransport) Redeliver(ctx context.Context, d MemoryDelivery) error {
	t.lock.Lock()
	receiver, ok := t.receivers[d.DstEID]
	t.lock.Unlock()
	if !ok {
		return fmt.Errorf("%w: eid %d", ErrUnknownDestination, d.DstEID)
	}
	return receiver.Receive(ctx, d.Origin, d.Message)
}

func deliveryGUID(srcEID, dstEID uint32, nonce uint64, message []byte) ids.ID {
	b := make([]byte, 16, 16+len(message))
	binary.BigEndian.PutUint32(b[0:4], srcEID)
	binary.BigEndian.PutUint32(b[4:8], dstEID)
	binary.BigEndian.PutUint64(b[8:16], nonce)
	b = append(b, message...)
	return ids.ID(ComputeHash256Array(b))
}
