// Copyright (C) 2024-2026, Omnidao Labs. All rights reserved.
// See the file LICENSE for licensing terms.

package controller

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/luxfi/geth/common"
	"github.com/luxfi/ids"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/omnidao/bridge"
	"github.com/omnidao/bridge/payload"
	"github.com/omnidao/bridge/tree"
)

const (
	testSourceEID uint32 = 101
	treeDepth            = 4
)

var (
	daoSender = common.HexToAddress("0x2000000000000000000000000000000000000001")
	intruder  = common.HexToAddress("0x2000000000000000000000000000000000000002")

	initialAuthority = ids.ID{0x0a}
	holderA          = ids.ID{0x01}
	holderB          = ids.ID{0x02}
)

type harness struct {
	ctrl *Controller
	tree *tree.Memory
	now  time.Time
}

func newTestController(t *testing.T) *harness {
	require := require.New(t)

	mem, err := tree.NewMemory(treeDepth)
	require.NoError(err)

	h := &harness{tree: mem, now: time.Unix(1700000000, 0)}
	h.ctrl, err = New(
		zap.NewNop(),
		prometheus.NewRegistry(),
		mem,
		Config{
			SourceEID:        testSourceEID,
			Peers:            map[uint32]common.Address{testSourceEID: daoSender},
			Authority:        initialAuthority,
			CollectionURI:    "https://x/0.json",
			CollectionName:   "Omni",
			CollectionSymbol: "OMNI",
		},
		WithClock(func() time.Time { return h.now }),
	)
	require.NoError(err)
	return h
}

func (h *harness) origin() bridge.Origin {
	return bridge.Origin{SrcEID: testSourceEID, Sender: daoSender, Nonce: 1}
}

func (h *harness) encode(t *testing.T, nonce uint64, p payload.Payload) []byte {
	body, err := p.Encode()
	require.NoError(t, err)
	msg, err := bridge.NewMessage(p.Command(), nonce, h.now, body)
	require.NoError(t, err)
	raw, err := msg.Encode()
	require.NoError(t, err)
	return raw
}

func metadataUpdate(uri string) payload.Payload {
	return &payload.UpdateMetadata{URI: uri, Name: "Omni", Symbol: "OMNI"}
}

func TestOriginAuthentication(t *testing.T) {
	require := require.New(t)
	h := newTestController(t)
	ctx := context.Background()
	raw := h.encode(t, 1, metadataUpdate("https://x/1.json"))

	err := h.ctrl.Receive(ctx, bridge.Origin{SrcEID: 999, Sender: daoSender}, raw)
	require.ErrorIs(err, ErrInvalidEndpoint)

	err = h.ctrl.Receive(ctx, bridge.Origin{SrcEID: testSourceEID, Sender: intruder}, raw)
	require.ErrorIs(err, ErrInvalidSender)

	// Origin failures never burn the nonce.
	require.Zero(h.ctrl.LastProcessedNonce())

	require.NoError(h.ctrl.Receive(ctx, h.origin(), raw))
	uri, _, _ := h.ctrl.Collection()
	require.Equal("https://x/1.json", uri)
}

func TestUnknownPeer(t *testing.T) {
	require := require.New(t)

	mem, err := tree.NewMemory(treeDepth)
	require.NoError(err)
	ctrl, err := New(
		zap.NewNop(),
		prometheus.NewRegistry(),
		mem,
		Config{
			SourceEID: testSourceEID,
			Peers:     map[uint32]common.Address{testSourceEID + 1: daoSender},
		},
	)
	require.NoError(err)

	h := &harness{tree: mem, now: time.Unix(1700000000, 0)}
	raw := h.encode(t, 1, metadataUpdate("https://x/1.json"))
	err = ctrl.Receive(context.Background(), bridge.Origin{SrcEID: testSourceEID, Sender: daoSender}, raw)
	require.ErrorIs(err, ErrUnknownPeer)
}

func TestInvalidMessageFormat(t *testing.T) {
	require := require.New(t)
	h := newTestController(t)

	err := h.ctrl.Receive(context.Background(), h.origin(), []byte{0x01, 0x02})
	require.ErrorIs(err, ErrInvalidMessageFormat)
	require.Zero(h.ctrl.LastProcessedNonce())
}

func TestNonceMonotonicity(t *testing.T) {
	require := require.New(t)
	h := newTestController(t)
	ctx := context.Background()

	raw1 := h.encode(t, 1, metadataUpdate("https://x/1.json"))
	require.NoError(h.ctrl.Receive(ctx, h.origin(), raw1))
	require.Equal(uint64(1), h.ctrl.LastProcessedNonce())

	// Byte-identical redelivery and a forged reuse of the nonce are both
	// rejected.
	require.ErrorIs(h.ctrl.Receive(ctx, h.origin(), raw1), ErrInvalidNonce)
	forged := h.encode(t, 1, metadataUpdate("https://evil/1.json"))
	require.ErrorIs(h.ctrl.Receive(ctx, h.origin(), forged), ErrInvalidNonce)

	// Gaps are fine, going backwards is not.
	raw5 := h.encode(t, 5, metadataUpdate("https://x/5.json"))
	require.NoError(h.ctrl.Receive(ctx, h.origin(), raw5))
	raw3 := h.encode(t, 3, metadataUpdate("https://x/3.json"))
	require.ErrorIs(h.ctrl.Receive(ctx, h.origin(), raw3), ErrInvalidNonce)

	uri, _, _ := h.ctrl.Collection()
	require.Equal("https://x/5.json", uri)
}

func TestFreshnessWindow(t *testing.T) {
	require := require.New(t)
	h := newTestController(t)
	ctx := context.Background()

	encodeAt := func(nonce uint64, createdAt time.Time) []byte {
		p := metadataUpdate("https://x/1.json")
		body, err := p.Encode()
		require.NoError(err)
		msg, err := bridge.NewMessage(p.Command(), nonce, createdAt, body)
		require.NoError(err)
		raw, err := msg.Encode()
		require.NoError(err)
		return raw
	}

	// Exactly one hour old or ahead is still accepted.
	require.NoError(h.ctrl.Receive(ctx, h.origin(), encodeAt(1, h.now.Add(-FreshnessWindow))))
	require.NoError(h.ctrl.Receive(ctx, h.origin(), encodeAt(2, h.now.Add(FreshnessWindow))))

	// One second past the window in either direction is rejected without
	// burning the nonce.
	err := h.ctrl.Receive(ctx, h.origin(), encodeAt(3, h.now.Add(-FreshnessWindow-time.Second)))
	require.ErrorIs(err, ErrInvalidTimestamp)
	require.Equal(uint64(2), h.ctrl.LastProcessedNonce())

	// A message dated too far ahead is rejected now, but the same bytes
	// become deliverable once the receiver clock catches up.
	future := encodeAt(3, h.now.Add(2*FreshnessWindow))
	err = h.ctrl.Receive(ctx, h.origin(), future)
	require.ErrorIs(err, ErrInvalidTimestamp)
	require.Equal(uint64(2), h.ctrl.LastProcessedNonce())

	h.now = h.now.Add(FreshnessWindow)
	require.NoError(h.ctrl.Receive(ctx, h.origin(), future))
	require.Equal(uint64(3), h.ctrl.LastProcessedNonce())
}

func TestPauseGating(t *testing.T) {
	require := require.New(t)
	h := newTestController(t)
	ctx := context.Background()

	require.NoError(h.ctrl.Receive(ctx, h.origin(), h.encode(t, 1, &payload.Pause{})))
	require.True(h.ctrl.Paused())

	// Pausing again is idempotent.
	require.NoError(h.ctrl.Receive(ctx, h.origin(), h.encode(t, 2, &payload.Pause{})))
	require.True(h.ctrl.Paused())

	// A pause-blocked command keeps its nonce, so the sender may redeliver
	// it once the pause is lifted.
	blocked := h.encode(t, 3, metadataUpdate("https://x/1.json"))
	err := h.ctrl.Receive(ctx, h.origin(), blocked)
	require.ErrorIs(err, ErrControllerPaused)
	require.Equal(uint64(2), h.ctrl.LastProcessedNonce())
	uri, _, _ := h.ctrl.Collection()
	require.Equal("https://x/0.json", uri)

	// Authority transfer is allowed through the pause gate, so a paused
	// controller with a compromised authority is still recoverable.
	newAuthority := ids.ID{0x0b}
	require.NoError(h.ctrl.Receive(ctx, h.origin(),
		h.encode(t, 4, &payload.TransferAuthority{NewAuthority: newAuthority})))
	require.Equal(newAuthority, h.ctrl.Authority())

	require.NoError(h.ctrl.Receive(ctx, h.origin(), h.encode(t, 5, &payload.Unpause{})))
	require.False(h.ctrl.Paused())

	require.NoError(h.ctrl.Receive(ctx, h.origin(), h.encode(t, 6, metadataUpdate("https://x/1.json"))))
	uri, _, _ = h.ctrl.Collection()
	require.Equal("https://x/1.json", uri)
}

func TestUpdateMetadataLimits(t *testing.T) {
	require := require.New(t)
	h := newTestController(t)
	ctx := context.Background()

	long := strings.Repeat("u", MaxURILength+1)
	err := h.ctrl.Receive(ctx, h.origin(), h.encode(t, 1, metadataUpdate(long)))
	require.ErrorIs(err, ErrURITooLong)

	uri, _, _ := h.ctrl.Collection()
	require.Equal("https://x/0.json", uri)
	require.Equal(uint64(1), h.ctrl.LastProcessedNonce())

	exact := strings.Repeat("u", MaxURILength)
	require.NoError(h.ctrl.Receive(ctx, h.origin(), h.encode(t, 2, metadataUpdate(exact))))
}

func TestTransferAuthorityRejectsZeroKey(t *testing.T) {
	require := require.New(t)
	h := newTestController(t)

	err := h.ctrl.Receive(context.Background(), h.origin(),
		h.encode(t, 1, &payload.TransferAuthority{}))
	require.ErrorIs(err, ErrZeroAuthority)
	require.Equal(initialAuthority, h.ctrl.Authority())
}

func TestBatchUpdateSizeCap(t *testing.T) {
	require := require.New(t)
	h := newTestController(t)
	ctx := context.Background()

	batch := &payload.BatchUpdate{Updates: make([]payload.MetadataUpdate, MaxBatchSize+1)}
	for i := range batch.Updates {
		batch.Updates[i] = payload.MetadataUpdate{LeafIndex: uint32(i % 16), URI: "https://x/u.json"}
	}

	err := h.ctrl.Receive(ctx, h.origin(), h.encode(t, 1, batch))
	require.ErrorIs(err, ErrBatchTooLarge)

	// Exactly the cap is accepted. Every entry rewrites the same leaf to
	// its current URI, so the root never moves and one proof serves all
	// hundred entries.
	require.NoError(h.tree.Mint(0, holderA, "https://x/0.json"))
	proof, err := h.tree.Proof(0)
	require.NoError(err)

	full := &payload.BatchUpdate{Updates: make([]payload.MetadataUpdate, MaxBatchSize)}
	for i := range full.Updates {
		full.Updates[i] = payload.MetadataUpdate{LeafIndex: 0, URI: "https://x/0.json", Proof: proof}
	}
	require.NoError(h.ctrl.Receive(ctx, h.origin(), h.encode(t, 2, full)))
	require.Equal(uint64(2), h.ctrl.LastProcessedNonce())
}

func TestBatchUpdateAppliesWithValidProof(t *testing.T) {
	require := require.New(t)
	h := newTestController(t)
	ctx := context.Background()

	require.NoError(h.tree.Mint(3, holderA, "https://x/old.json"))
	proof, err := h.tree.Proof(3)
	require.NoError(err)

	batch := &payload.BatchUpdate{Updates: []payload.MetadataUpdate{
		{LeafIndex: 3, URI: "https://x/new.json", Proof: proof},
	}}
	require.NoError(h.ctrl.Receive(ctx, h.origin(), h.encode(t, 1, batch)))

	uri, err := h.tree.URI(3)
	require.NoError(err)
	require.Equal("https://x/new.json", uri)
}

func TestBatchUpdateAbortsOnStaleProof(t *testing.T) {
	require := require.New(t)
	h := newTestController(t)
	ctx := context.Background()

	require.NoError(h.tree.Mint(0, holderA, "https://x/0.json"))
	require.NoError(h.tree.Mint(1, holderA, "https://x/1.json"))

	proof0, err := h.tree.Proof(0)
	require.NoError(err)
	proof1, err := h.tree.Proof(1)
	require.NoError(err)

	// Both proofs are valid against the pre-batch root; applying the first
	// entry moves the root, so the second proof is stale and the batch
	// aborts there.
	batch := &payload.BatchUpdate{Updates: []payload.MetadataUpdate{
		{LeafIndex: 0, URI: "https://x/0-v2.json", Proof: proof0},
		{LeafIndex: 1, URI: "https://x/1-v2.json", Proof: proof1},
	}}
	err = h.ctrl.Receive(ctx, h.origin(), h.encode(t, 1, batch))
	require.ErrorIs(err, tree.ErrInvalidProof)

	uri0, err := h.tree.URI(0)
	require.NoError(err)
	require.Equal("https://x/0-v2.json", uri0)
	uri1, err := h.tree.URI(1)
	require.NoError(err)
	require.Equal("https://x/1.json", uri1)

	// The nonce was consumed, so the batch cannot be retried as-is.
	require.Equal(uint64(1), h.ctrl.LastProcessedNonce())
}

func TestBatchUpdateRejectsUnknownLeaf(t *testing.T) {
	require := require.New(t)
	h := newTestController(t)

	batch := &payload.BatchUpdate{Updates: []payload.MetadataUpdate{
		{LeafIndex: 7, URI: "https://x/7.json"},
	}}
	err := h.ctrl.Receive(context.Background(), h.origin(), h.encode(t, 1, batch))
	require.ErrorIs(err, tree.ErrLeafNotFound)
}

func TestBurnBatch(t *testing.T) {
	require := require.New(t)
	h := newTestController(t)
	ctx := context.Background()

	require.NoError(h.tree.Mint(2, holderA, "https://x/2.json"))
	proof, err := h.tree.Proof(2)
	require.NoError(err)

	// A declared owner that disagrees with storage fails before any
	// mutation.
	wrongOwner := &payload.BurnBatch{Requests: []payload.BurnRequest{
		{LeafIndex: 2, Owner: holderB, Proof: proof},
	}}
	err = h.ctrl.Receive(ctx, h.origin(), h.encode(t, 1, wrongOwner))
	require.ErrorIs(err, ErrOwnerMismatch)

	burn := &payload.BurnBatch{Requests: []payload.BurnRequest{
		{LeafIndex: 2, Owner: holderA, Proof: proof},
	}}
	require.NoError(h.ctrl.Receive(ctx, h.origin(), h.encode(t, 2, burn)))

	_, err = h.tree.Owner(2)
	require.ErrorIs(err, tree.ErrLeafNotFound)
}

func TestTransferBatch(t *testing.T) {
	require := require.New(t)
	h := newTestController(t)
	ctx := context.Background()

	require.NoError(h.tree.Mint(6, holderA, "https://x/6.json"))
	proof, err := h.tree.Proof(6)
	require.NoError(err)

	transfer := &payload.TransferBatch{Requests: []payload.TransferRequest{
		{LeafIndex: 6, From: holderA, To: holderB, Proof: proof},
	}}
	require.NoError(h.ctrl.Receive(ctx, h.origin(), h.encode(t, 1, transfer)))

	owner, err := h.tree.Owner(6)
	require.NoError(err)
	require.Equal(holderB, owner)

	// The old owner cannot move the leaf back.
	staleProof, err := h.tree.Proof(6)
	require.NoError(err)
	back := &payload.TransferBatch{Requests: []payload.TransferRequest{
		{LeafIndex: 6, From: holderA, To: holderB, Proof: staleProof},
	}}
	err = h.ctrl.Receive(ctx, h.origin(), h.encode(t, 2, back))
	require.ErrorIs(err, ErrOwnerMismatch)
}

func TestProcessedEvents(t *testing.T) {
	require := require.New(t)
	h := newTestController(t)
	ctx := context.Background()

	acceptor := NewChannelAcceptor(4)
	require.NoError(h.ctrl.RegisterAcceptor("test", acceptor))
	require.Error(h.ctrl.RegisterAcceptor("test", acceptor))

	require.NoError(h.ctrl.Receive(ctx, h.origin(), h.encode(t, 1, metadataUpdate("https://x/1.json"))))

	event := <-acceptor.C
	require.Equal(bridge.CommandUpdateCollectionMetadata, event.Command)
	require.Equal(uint64(1), event.Nonce)
	require.Equal(testSourceEID, event.SrcEID)
	require.Equal(daoSender, event.Sender)

	require.NoError(h.ctrl.DeregisterAcceptor("test"))
	require.NoError(h.ctrl.Receive(ctx, h.origin(), h.encode(t, 2, &payload.Pause{})))
	require.Empty(acceptor.C)
}
