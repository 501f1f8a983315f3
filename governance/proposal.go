// Copyright (C) 2024-2026, Omnidao Labs. All rights reserved.
// See the file LICENSE for licensing terms.

package governance

import (
	"time"

	"github.com/luxfi/geth/common"

	"github.com/omnidao/bridge"
)

// Status is the lifecycle state of a proposal at a point in time.
type Status uint8

const (
	// StatusOpen: before the deadline, votes may still be cast.
	StatusOpen Status = iota

	// StatusClosedPending: past the deadline with a passing tally, not
	// yet executed.
	StatusClosedPending

	// StatusExecuted: terminal, the message was handed to the transport.
	StatusExecuted

	// StatusClosedRejected: terminal, quorum or majority was not met.
	StatusClosedRejected
)

func (s Status) String() string {
	switch s {
	case StatusOpen:
		return "Open"
	case StatusClosedPending:
		return "ClosedPending"
	case StatusExecuted:
		return "Executed"
	case StatusClosedRejected:
		return "ClosedRejected"
	default:
		return "Unknown"
	}
}

// Proposal couples a description with an embedded cross-chain command,
// subject to voting and a deadline. Proposals are append-only: they are
// never deleted, and Executed transitions false to true exactly once.
type Proposal struct {
	ID           uint64
	Description  string
	Message      *bridge.Message
	Proposer     common.Address
	ForVotes     uint64
	AgainstVotes uint64
	Deadline     time.Time
	Executed     bool

	// quorum is pinned at creation from the then-current member count, so
	// later membership churn does not move the bar mid-vote.
	quorum uint64
}

// Quorum returns the minimum total participation required to pass.
func (p *Proposal) Quorum() uint64 {
	return p.quorum
}

// Passed reports whether the tally satisfies quorum and strict majority.
func (p *Proposal) Passed() bool {
	total, err := bridge.AddUint64(p.ForVotes, p.AgainstVotes)
	if err != nil {
		return false
	}
	return total >= p.quorum && p.ForVotes > p.AgainstVotes
}

// Status returns the proposal's lifecycle state as of now.
func (p *Proposal) Status(now time.Time) Status {
	if p.Executed {
		return StatusExecuted
	}
	if !now.After(p.Deadline) {
		return StatusOpen
	}
	if p.Passed() {
		return StatusClosedPending
	}
	return StatusClosedRejected
}
