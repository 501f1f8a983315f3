// Copyright (C) 2024-2026, Omnidao Labs. All rights reserved.
// See the file LICENSE for licensing terms.

package guard

import (
	"context"
	"testing"
	"time"

	"github.com/luxfi/geth/common"
	"github.com/stretchr/testify/require"

	"github.com/omnidao/bridge"
)

func TestAllowWithinLimit(t *testing.T) {
	require := require.New(t)

	g := New(3, time.Minute)
	for i := 0; i < 3; i++ {
		require.NoError(g.Allow(101))
	}
	require.ErrorIs(g.Allow(101), ErrRateLimited)

	// Other destinations have their own budget.
	require.NoError(g.Allow(102))
}

func TestAllowWindowReset(t *testing.T) {
	require := require.New(t)

	now := time.Unix(1700000000, 0)
	g := New(1, time.Minute, WithClock(func() time.Time { return now }))

	require.NoError(g.Allow(101))
	require.ErrorIs(g.Allow(101), ErrRateLimited)

	now = now.Add(61 * time.Second)
	require.NoError(g.Allow(101))
}

func TestQuoteCaching(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()

	sender := common.HexToAddress("0x1111111111111111111111111111111111111111")
	transport := bridge.NewMemoryTransport(101, sender, 100, 1)
	transport.Register(202, nopReceiver{})

	g := New(10, time.Minute, WithQuoteTTL(time.Minute))

	msg := []byte("hello")
	fee1, err := g.Quote(ctx, transport, 202, msg, bridge.SendOptions{})
	require.NoError(err)
	require.Equal(uint64(105), fee1.Native.Uint64())

	// Same destination and size reuses the cached quote; a different size
	// does not.
	fee2, err := g.Quote(ctx, transport, 202, []byte("world"), bridge.SendOptions{})
	require.NoError(err)
	require.Equal(fee1.Native.Uint64(), fee2.Native.Uint64())

	fee3, err := g.Quote(ctx, transport, 202, []byte("longer message"), bridge.SendOptions{})
	require.NoError(err)
	require.Equal(uint64(114), fee3.Native.Uint64())
}

func TestRecordPayment(t *testing.T) {
	require := require.New(t)

	g := New(10, time.Minute)
	g.RecordPayment("0xabc", 100, 120)
	g.RecordPayment("0xabc", 50, 50)

	s := g.SpendingFor("0xabc")
	require.Equal(uint64(150), s.Quoted)
	require.Equal(uint64(170), s.Paid)

	require.Equal(Spending{}, g.SpendingFor("0xdef"))
}

type nopReceiver struct{}

func (nopReceiver) Receive(context.Context, bridge.Origin, []byte) error { return nil }
