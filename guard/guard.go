// Copyright (C) 2024-2026, Omnidao Labs. All rights reserved.
// See the file LICENSE for licensing terms.

// Package guard applies sending-side policy ahead of the transport: a
// per-destination rate limit and fee quoting with refund bookkeeping. The
// governance proposal path and the emergency path go through the same
// guard, so a compromised emergency admin cannot out-spam normal traffic.
package guard

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/omnidao/bridge"
	"github.com/omnidao/bridge/cache"
)

// ErrRateLimited is returned when a destination's send budget for the
// current window is exhausted. Recoverable: retry in the next window.
var ErrRateLimited = errors.New("destination rate limit exceeded")

const (
	DefaultSendLimit  = 10
	DefaultSendWindow = time.Minute
	defaultQuoteTTL   = 30 * time.Second
)

// quoteKey caches quotes per destination and message size. Channel fees
// depend on both, and on nothing else we control.
type quoteKey struct {
	EID  uint32
	Size int
}

func (k quoteKey) String() string {
	return fmt.Sprintf("%d/%d", k.EID, k.Size)
}

// Guard is the sending-side policy gate.
type Guard struct {
	lock    sync.Mutex
	limit   int
	window  time.Duration
	buckets map[uint32]*bucket
	now     func() time.Time

	quotes *cache.TTLCache[quoteKey, bridge.Fee]
	book   map[string]*Spending
}

type bucket struct {
	count int
	reset time.Time
}

// Spending is the fee bookkeeping for one refund address.
type Spending struct {
	Quoted uint64
	Paid   uint64
}

// Option configures a Guard.
type Option func(*Guard)

// WithClock overrides the wall clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(g *Guard) { g.now = now }
}

// WithQuoteTTL overrides how long fee quotes are reused.
func WithQuoteTTL(ttl time.Duration) Option {
	return func(g *Guard) { g.quotes = cache.NewTTLCache[quoteKey, bridge.Fee](ttl) }
}

// New creates a Guard allowing limit sends per destination per window.
func New(limit int, window time.Duration, opts ...Option) *Guard {
	if limit <= 0 {
		limit = DefaultSendLimit
	}
	if window <= 0 {
		window = DefaultSendWindow
	}
	g := &Guard{
		limit:   limit,
		window:  window,
		buckets: make(map[uint32]*bucket),
		now:     time.Now,
		quotes:  cache.NewTTLCache[quoteKey, bridge.Fee](defaultQuoteTTL),
		book:    make(map[string]*Spending),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Allow consumes one send slot for the destination, or fails with
// ErrRateLimited if the window's budget is spent.
func (g *Guard) Allow(dstEID uint32) error {
	g.lock.Lock()
	defer g.lock.Unlock()

	now := g.now()
	b, ok := g.buckets[dstEID]
	if !ok || now.After(b.reset) {
		g.buckets[dstEID] = &bucket{count: 1, reset: now.Add(g.window)}
		return nil
	}
	if b.count >= g.limit {
		return fmt.Errorf("%w: eid %d, %d sends in %s", ErrRateLimited, dstEID, b.count, g.window)
	}
	b.count++
	return nil
}

// Quote returns the delivery fee for the message, reusing a recent quote
// for the same destination and size when one is cached.
func (g *Guard) Quote(
	ctx context.Context,
	transport bridge.Transport,
	dstEID uint32,
	message []byte,
	opts bridge.SendOptions,
) (bridge.Fee, error) {
	key := quoteKey{EID: dstEID, Size: len(message)}
	fee, err := g.quotes.Get(key, func(quoteKey) (bridge.Fee, error) {
		return transport.Quote(ctx, dstEID, message, opts)
	}, false)
	if err != nil {
		return bridge.Fee{}, err
	}
	return fee.Clone(), nil
}

// InvalidateQuote drops the cached quote for a destination/size after a
// send was rejected for an insufficient fee.
func (g *Guard) InvalidateQuote(dstEID uint32, messageLen int) {
	g.quotes.Forget(quoteKey{EID: dstEID, Size: messageLen})
}

// RecordPayment books the quoted and actually-paid native fee against a
// refund address. The delta is what the transport owes back.
func (g *Guard) RecordPayment(refundAddr string, quoted, paid uint64) {
	g.lock.Lock()
	defer g.lock.Unlock()
	s, ok := g.book[refundAddr]
	if !ok {
		s = &Spending{}
		g.book[refundAddr] = s
	}
	s.Quoted += quoted
	s.Paid += paid
}

// SpendingFor returns the recorded fee totals for a refund address.
func (g *Guard) SpendingFor(refundAddr string) Spending {
	g.lock.Lock()
	defer g.lock.Unlock()
	if s, ok := g.book[refundAddr]; ok {
		return *s
	}
	return Spending{}
}
