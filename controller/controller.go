// Copyright (C) 2024-2026, Omnidao Labs. All rights reserved.
// See the file LICENSE for licensing terms.

// Package controller implements the receiving side of the bridge: the
// dispatcher that authenticates message origin, burns nonces, enforces
// freshness and the pause gate, and applies governance commands to the
// collection state and the compressed-NFT tree.
package controller

import (
	"context"
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/luxfi/geth/common"
	"github.com/luxfi/ids"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/omnidao/bridge"
	"github.com/omnidao/bridge/payload"
	"github.com/omnidao/bridge/tree"
)

const (
	// FreshnessWindow bounds how far a message timestamp may deviate from
	// the receiver clock, in either direction.
	FreshnessWindow = time.Hour

	// MaxBatchSize caps the entry count of any batched command.
	MaxBatchSize = 100

	// MaxURILength caps metadata URIs, collection-level and per-leaf.
	MaxURILength = 200

	// MaxNameLength and MaxSymbolLength cap the collection display fields.
	MaxNameLength   = 32
	MaxSymbolLength = 10

	// seenCacheSize bounds the duplicate-delivery detection window.
	seenCacheSize = 1024
)

// Config is the immutable deployment configuration of a controller.
type Config struct {
	// SourceEID is the only endpoint the controller accepts messages from.
	SourceEID uint32

	// Peers maps endpoint ids to the one sender contract trusted on each.
	Peers map[uint32]common.Address

	// Authority is the initial controller authority key.
	Authority ids.ID

	CollectionURI    string
	CollectionName   string
	CollectionSymbol string
}

// Controller consumes cross-chain command envelopes and applies them. It
// implements bridge.Receiver. All state transitions happen under one lock,
// mirroring the single-writer transaction model of the host chain.
type Controller struct {
	lock sync.Mutex
	log  *zap.Logger
	now  func() time.Time

	sourceEID uint32
	peers     map[uint32]common.Address
	tree      tree.Mutator

	authority        ids.ID
	collectionURI    string
	collectionName   string
	collectionSymbol string

	lastProcessedNonce uint64
	paused             bool
	lastUpdate         time.Time

	// seen remembers envelope hashes of processed messages so a redelivered
	// duplicate can be told apart from a forged replay in logs and metrics.
	// Both are rejected through the nonce gate either way.
	seen *lru.Cache[ids.ID, struct{}]

	metrics   *controllerMetrics
	acceptors *acceptorGroup
}

var _ bridge.Receiver = (*Controller)(nil)

// Option configures a Controller.
type Option func(*Controller)

// WithClock overrides the wall clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// New creates a controller bound to the given tree.
func New(
	log *zap.Logger,
	registerer prometheus.Registerer,
	mutator tree.Mutator,
	cfg Config,
	opts ...Option,
) (*Controller, error) {
	seen, err := lru.New[ids.ID, struct{}](seenCacheSize)
	if err != nil {
		return nil, err
	}
	c := &Controller{
		log:              log,
		now:              time.Now,
		sourceEID:        cfg.SourceEID,
		peers:            cfg.Peers,
		tree:             mutator,
		authority:        cfg.Authority,
		collectionURI:    cfg.CollectionURI,
		collectionName:   cfg.CollectionName,
		collectionSymbol: cfg.CollectionSymbol,
		seen:             seen,
		metrics:          newControllerMetrics(registerer),
		acceptors:        newAcceptorGroup(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// RegisterAcceptor subscribes an acceptor to processed-command events.
func (c *Controller) RegisterAcceptor(name string, acceptor Acceptor) error {
	return c.acceptors.register(name, acceptor)
}

// DeregisterAcceptor removes a previously registered acceptor.
func (c *Controller) DeregisterAcceptor(name string) error {
	return c.acceptors.deregister(name)
}

// Receive implements bridge.Receiver. Gates run in a fixed order: origin
// authentication, envelope decoding, nonce, freshness, pause. The nonce is
// burned after the freshness and pause gates but before the command runs,
// so rejected-as-stale or rejected-while-paused deliveries stay retryable
// while a handler failure still consumes the nonce.
func (c *Controller) Receive(ctx context.Context, origin bridge.Origin, raw []byte) error {
	c.lock.Lock()
	defer c.lock.Unlock()

	c.metrics.messagesReceived.Inc()

	if err := c.checkOriginLocked(origin); err != nil {
		return err
	}

	msg, err := bridge.Decode(raw)
	if err != nil {
		c.rejectLocked(reasonInvalidFormat, origin, err)
		return fmt.Errorf("%w: %w", ErrInvalidMessageFormat, err)
	}

	if msg.Nonce <= c.lastProcessedNonce {
		envelopeID := ids.ID(bridge.ComputeHash256Array(raw))
		if _, ok := c.seen.Get(envelopeID); ok {
			c.metrics.duplicateDeliveries.Inc()
			c.log.Debug("duplicate delivery",
				zap.Uint64("nonce", msg.Nonce),
				zap.Stringer("envelopeID", envelopeID),
			)
		} else {
			c.rejectLocked(reasonInvalidNonce, origin, nil)
		}
		return fmt.Errorf("%w: got %d, last processed %d",
			ErrInvalidNonce, msg.Nonce, c.lastProcessedNonce)
	}

	now := c.now()
	skew := now.Unix() - msg.Timestamp
	if skew < 0 {
		skew = -skew
	}
	if skew > int64(FreshnessWindow/time.Second) {
		c.rejectLocked(reasonStaleTimestamp, origin, nil)
		return fmt.Errorf("%w: timestamp %d is %ds from receiver time",
			ErrInvalidTimestamp, msg.Timestamp, skew)
	}

	if c.paused && msg.Command != bridge.CommandEmergencyUnpause && msg.Command != bridge.CommandTransferAuthority {
		c.rejectLocked(reasonPaused, origin, nil)
		return fmt.Errorf("%w: command %s", ErrControllerPaused, msg.Command)
	}

	// Burn the nonce only once the command is cleared to run. A stale or
	// pause-blocked delivery keeps its nonce and may be retried later; a
	// command that reaches its handler and fails is consumed, and
	// governance must re-issue it.
	c.lastProcessedNonce = msg.Nonce

	if err := c.dispatchLocked(ctx, msg); err != nil {
		c.rejectLocked(reasonHandlerFailure, origin, err)
		return err
	}

	c.seen.Add(ids.ID(bridge.ComputeHash256Array(raw)), struct{}{})
	c.lastUpdate = now
	c.metrics.commandsProcessed.WithLabelValues(msg.Command.String()).Inc()
	c.log.Info("command processed",
		zap.Stringer("command", msg.Command),
		zap.Uint64("nonce", msg.Nonce),
		zap.Uint32("srcEID", origin.SrcEID),
	)

	event := ProcessedEvent{
		Command:  msg.Command,
		Nonce:    msg.Nonce,
		SrcEID:   origin.SrcEID,
		Sender:   origin.Sender,
		Accepted: now,
	}
	for name, acceptErr := range c.acceptors.accept(ctx, event) {
		c.log.Warn("acceptor failed",
			zap.String("acceptor", name),
			zap.Error(acceptErr),
		)
	}
	return nil
}

func (c *Controller) checkOriginLocked(origin bridge.Origin) error {
	if origin.SrcEID != c.sourceEID {
		c.rejectLocked(reasonInvalidEndpoint, origin, nil)
		return fmt.Errorf("%w: got endpoint %d, want %d",
			ErrInvalidEndpoint, origin.SrcEID, c.sourceEID)
	}
	peer, ok := c.peers[origin.SrcEID]
	if !ok {
		c.rejectLocked(reasonUnknownPeer, origin, nil)
		return fmt.Errorf("%w: endpoint %d", ErrUnknownPeer, origin.SrcEID)
	}
	if origin.Sender != peer {
		c.rejectLocked(reasonInvalidSender, origin, nil)
		return fmt.Errorf("%w: got %s, want %s",
			ErrInvalidSender, origin.Sender.Hex(), peer.Hex())
	}
	return nil
}

func (c *Controller) rejectLocked(reason string, origin bridge.Origin, err error) {
	c.metrics.messagesRejected.WithLabelValues(reason).Inc()
	c.log.Warn("message rejected",
		zap.String("reason", reason),
		zap.Uint32("srcEID", origin.SrcEID),
		zap.String("sender", origin.Sender.Hex()),
		zap.Error(err),
	)
}

// dispatchLocked decodes the command payload and runs the handler. The
// switch is exhaustive over the command enum.
func (c *Controller) dispatchLocked(ctx context.Context, msg *bridge.Message) error {
	p, err := payload.Parse(msg.Command, msg.Payload)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidMessageFormat, err)
	}

	switch v := p.(type) {
	case *payload.UpdateMetadata:
		return c.handleUpdateMetadataLocked(v)
	case *payload.BatchUpdate:
		return c.handleBatchUpdateLocked(ctx, v)
	case *payload.TransferAuthority:
		return c.handleTransferAuthorityLocked(v)
	case *payload.Pause:
		c.paused = true
		return nil
	case *payload.Unpause:
		c.paused = false
		return nil
	case *payload.BurnBatch:
		return c.handleBurnBatchLocked(ctx, v)
	case *payload.TransferBatch:
		return c.handleTransferBatchLocked(ctx, v)
	default:
		return fmt.Errorf("%w: no handler for %s", bridge.ErrInvalidCommand, msg.Command)
	}
}

// Authority returns the current controller authority key.
func (c *Controller) Authority() ids.ID {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.authority
}

// Collection returns the current collection-level metadata.
func (c *Controller) Collection() (uri, name, symbol string) {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.collectionURI, c.collectionName, c.collectionSymbol
}

// Paused reports whether the controller is paused.
func (c *Controller) Paused() bool {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.paused
}

// LastProcessedNonce returns the highest nonce consumed so far.
func (c *Controller) LastProcessedNonce() uint64 {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.lastProcessedNonce
}

// LastUpdate returns the receiver time of the last applied command.
func (c *Controller) LastUpdate() time.Time {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.lastUpdate
}
