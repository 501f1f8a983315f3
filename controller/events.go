// Copyright (C) 2024-2026, Omnidao Labs. All rights reserved.
// See the file LICENSE for licensing terms.

package controller

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/luxfi/geth/common"

	"github.com/omnidao/bridge"
)

// ProcessedEvent is emitted after a command has been fully applied.
type ProcessedEvent struct {
	Command  bridge.Command
	Nonce    uint64
	SrcEID   uint32
	Sender   common.Address
	Accepted time.Time
}

// Acceptor is implemented when a struct is monitoring processed commands.
type Acceptor interface {
	Accept(ctx context.Context, event ProcessedEvent) error
}

// acceptorGroup fans processed events out to named subscribers. Acceptor
// errors never fail the command that triggered the event.
type acceptorGroup struct {
	lock      sync.RWMutex
	acceptors map[string]Acceptor
}

func newAcceptorGroup() *acceptorGroup {
	return &acceptorGroup{acceptors: make(map[string]Acceptor)}
}

func (g *acceptorGroup) register(name string, acceptor Acceptor) error {
	g.lock.Lock()
	defer g.lock.Unlock()
	if _, ok := g.acceptors[name]; ok {
		return fmt.Errorf("acceptor %q already registered", name)
	}
	g.acceptors[name] = acceptor
	return nil
}

func (g *acceptorGroup) deregister(name string) error {
	g.lock.Lock()
	defer g.lock.Unlock()
	if _, ok := g.acceptors[name]; !ok {
		return fmt.Errorf("acceptor %q not registered", name)
	}
	delete(g.acceptors, name)
	return nil
}

func (g *acceptorGroup) accept(ctx context.Context, event ProcessedEvent) map[string]error {
	g.lock.RLock()
	defer g.lock.RUnlock()
	var errs map[string]error
	for name, acceptor := range g.acceptors {
		if err := acceptor.Accept(ctx, event); err != nil {
			if errs == nil {
				errs = make(map[string]error)
			}
			errs[name] = err
		}
	}
	return errs
}

var _ Acceptor = (*ChannelAcceptor)(nil)

// ChannelAcceptor buffers processed events on a channel. When the buffer is
// full the oldest pending event is dropped rather than blocking dispatch.
type ChannelAcceptor struct {
	C chan ProcessedEvent
}

// NewChannelAcceptor creates a ChannelAcceptor with the given buffer size.
func NewChannelAcceptor(size int) *ChannelAcceptor {
	return &ChannelAcceptor{C: make(chan ProcessedEvent, size)}
}

// Accept implements Acceptor.
func (a *ChannelAcceptor) Accept(_ context.Context, event ProcessedEvent) error {
	for {
		select {
		case a.C <- event:
			return nil
		default:
			select {
			case <-a.C:
			default:
			}
		}
	}
}
