// Copyright (C) 2024-2026, Omnidao Labs. All rights reserved.
// See the file LICENSE for licensing terms.

// Package governance implements the sending-side DAO: membership, the
// proposal/vote/execute lifecycle, and the emergency bypass. Every outbound
// cross-chain message originates here, stamped with a nonce from one global
// counter so nonces are unique across proposals and emergency actions.
package governance

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/luxfi/geth/common"
	"go.uber.org/zap"

	"github.com/omnidao/bridge"
	"github.com/omnidao/bridge/guard"
	"github.com/omnidao/bridge/payload"
	"github.com/omnidao/bridge/utils"
)

const (
	// DefaultVotingPeriod is how long a proposal accepts votes.
	DefaultVotingPeriod = 72 * time.Hour

	// DefaultQuorumPercent of members must participate for a proposal to
	// pass. Quorum is ceil(members * percent / 100).
	DefaultQuorumPercent = 51

	// defaultSendTimeout bounds the retried hand-off to the transport.
	defaultSendTimeout = 30 * time.Second
)

// Member is one DAO participant.
type Member struct {
	JoinedAt time.Time
}

type voteKey struct {
	ProposalID uint64
	Voter      common.Address
}

type voteRecord struct {
	Support bool
}

// DAO owns all governance state for one deployed bridge instance. All
// mutable counters live here; operations are serialized by one mutex,
// mirroring the single-writer transaction model of the host chain.
type DAO struct {
	lock sync.Mutex
	log  *zap.Logger
	now  func() time.Time

	transport bridge.Transport
	guard     *guard.Guard
	dstEID    uint32

	owner          common.Address
	emergencyAdmin common.Address
	members        map[common.Address]Member

	proposals      map[uint64]*Proposal
	nextProposalID uint64
	messageNonce   uint64
	votes          map[voteKey]voteRecord

	votingPeriod  time.Duration
	quorumPercent uint64
	sendTimeout   time.Duration
	sendOptions   bridge.SendOptions
}

// Option configures a DAO.
type Option func(*DAO)

// WithClock overrides the wall clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(d *DAO) { d.now = now }
}

// WithVotingPeriod overrides the proposal voting window.
func WithVotingPeriod(period time.Duration) Option {
	return func(d *DAO) { d.votingPeriod = period }
}

// WithQuorumPercent overrides the participation threshold.
func WithQuorumPercent(percent uint64) Option {
	return func(d *DAO) { d.quorumPercent = percent }
}

// WithSendTimeout overrides how long a transport hand-off is retried.
func WithSendTimeout(timeout time.Duration) Option {
	return func(d *DAO) { d.sendTimeout = timeout }
}

// WithSendOptions sets the transport delivery options for all sends.
func WithSendOptions(opts bridge.SendOptions) Option {
	return func(d *DAO) { d.sendOptions = opts }
}

// New creates a DAO. The owner is the initial member and may add and
// remove members; the emergency admin may bypass voting.
func New(
	log *zap.Logger,
	transport bridge.Transport,
	g *guard.Guard,
	dstEID uint32,
	owner common.Address,
	emergencyAdmin common.Address,
	opts ...Option,
) *DAO {
	d := &DAO{
		log:            log,
		now:            time.Now,
		transport:      transport,
		guard:          g,
		dstEID:         dstEID,
		owner:          owner,
		emergencyAdmin: emergencyAdmin,
		members:        make(map[common.Address]Member),
		proposals:      make(map[uint64]*Proposal),
		votes:          make(map[voteKey]voteRecord),
		votingPeriod:   DefaultVotingPeriod,
		quorumPercent:  DefaultQuorumPercent,
		sendTimeout:    defaultSendTimeout,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.members[owner] = Member{JoinedAt: d.now()}
	return d
}

// AddMember admits a new member. Owner only.
func (d *DAO) AddMember(caller, addr common.Address) error {
	d.lock.Lock()
	defer d.lock.Unlock()
	if caller != d.owner {
		return fmt.Errorf("%w: only the owner manages membership", ErrNotAuthorized)
	}
	if _, ok := d.members[addr]; ok {
		return fmt.Errorf("%w: %s", ErrAlreadyAMember, addr.Hex())
	}
	d.members[addr] = Member{JoinedAt: d.now()}
	d.log.Info("member added",
		zap.String("member", addr.Hex()),
		zap.Int("memberCount", len(d.members)),
	)
	return nil
}

// RemoveMember expels a member. Owner only; the owner itself is protected.
// Votes the member already cast remain counted.
func (d *DAO) RemoveMember(caller, addr common.Address) error {
	d.lock.Lock()
	defer d.lock.Unlock()
	if caller != d.owner {
		return fmt.Errorf("%w: only the owner manages membership", ErrNotAuthorized)
	}
	if addr == d.owner {
		return ErrCannotRemoveOwner
	}
	if _, ok := d.members[addr]; !ok {
		return fmt.Errorf("%w: %s", ErrNotAMember, addr.Hex())
	}
	delete(d.members, addr)
	d.log.Info("member removed",
		zap.String("member", addr.Hex()),
		zap.Int("memberCount", len(d.members)),
	)
	return nil
}

// IsMember reports current membership.
func (d *DAO) IsMember(addr common.Address) bool {
	d.lock.Lock()
	defer d.lock.Unlock()
	_, ok := d.members[addr]
	return ok
}

// MemberCount returns the current number of members.
func (d *DAO) MemberCount() int {
	d.lock.Lock()
	defer d.lock.Unlock()
	return len(d.members)
}

// CreateProposal opens a proposal embedding the given command payload.
// Member only. The embedded message is fully constructed and self-checked
// now; the envelope timestamp is re-stamped at execution so the receiver's
// freshness check measures delivery lag, not the length of the vote.
func (d *DAO) CreateProposal(proposer common.Address, description string, p payload.Payload) (*Proposal, error) {
	d.lock.Lock()
	defer d.lock.Unlock()

	if _, ok := d.members[proposer]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotAMember, proposer.Hex())
	}

	body, err := p.Encode()
	if err != nil {
		return nil, fmt.Errorf("failed to encode command payload: %w", err)
	}

	now := d.now()
	d.messageNonce++
	msg, err := bridge.NewMessage(p.Command(), d.messageNonce, now, body)
	if err != nil {
		return nil, err
	}

	d.nextProposalID++
	proposal := &Proposal{
		ID:          d.nextProposalID,
		Description: description,
		Message:     msg,
		Proposer:    proposer,
		Deadline:    now.Add(d.votingPeriod),
		quorum:      d.quorumLocked(),
	}
	d.proposals[proposal.ID] = proposal

	d.log.Info("proposal created",
		zap.Uint64("proposalID", proposal.ID),
		zap.Stringer("command", msg.Command),
		zap.Uint64("nonce", msg.Nonce),
		zap.Time("deadline", proposal.Deadline),
		zap.Uint64("quorum", proposal.quorum),
	)
	return proposal, nil
}

// Vote casts a one-time vote. Member only, only before the deadline.
func (d *DAO) Vote(voter common.Address, proposalID uint64, support bool) error {
	d.lock.Lock()
	defer d.lock.Unlock()

	if _, ok := d.members[voter]; !ok {
		return fmt.Errorf("%w: %s", ErrNotAMember, voter.Hex())
	}
	proposal, ok := d.proposals[proposalID]
	if !ok {
		return fmt.Errorf("%w: id %d", ErrUnknownProposal, proposalID)
	}
	if d.now().After(proposal.Deadline) {
		return fmt.Errorf("%w: proposal %d", ErrVotingClosed, proposalID)
	}
	key := voteKey{ProposalID: proposalID, Voter: voter}
	if _, ok := d.votes[key]; ok {
		return fmt.Errorf("%w: proposal %d, voter %s", ErrAlreadyVoted, proposalID, voter.Hex())
	}

	d.votes[key] = voteRecord{Support: support}
	if support {
		proposal.ForVotes++
	} else {
		proposal.AgainstVotes++
	}
	return nil
}

// ExecuteProposal finalizes a passed proposal: it flips Executed before
// any external call, then encodes and hands the embedded message to the
// transport. Callable by anyone once the deadline has passed; the caller
// is the refund address for overpaid fees.
func (d *DAO) ExecuteProposal(ctx context.Context, caller common.Address, proposalID uint64) (bridge.Receipt, error) {
	d.lock.Lock()
	defer d.lock.Unlock()

	proposal, ok := d.proposals[proposalID]
	if !ok {
		return bridge.Receipt{}, fmt.Errorf("%w: id %d", ErrUnknownProposal, proposalID)
	}
	if !d.now().After(proposal.Deadline) {
		return bridge.Receipt{}, fmt.Errorf("%w: proposal %d closes at %s",
			ErrVotingStillActive, proposalID, proposal.Deadline)
	}
	if proposal.Executed {
		return bridge.Receipt{}, fmt.Errorf("%w: proposal %d", ErrAlreadyExecuted, proposalID)
	}
	if !proposal.Passed() {
		return bridge.Receipt{}, fmt.Errorf("%w: proposal %d, %d for, %d against, quorum %d",
			ErrProposalDidNotPass, proposalID, proposal.ForVotes, proposal.AgainstVotes, proposal.quorum)
	}

	// Mutate before the external call. A send failure does not reopen the
	// proposal; recovery is a fresh proposal with a fresh nonce.
	proposal.Executed = true

	receipt, err := d.dispatchLocked(ctx, proposal.Message, caller)
	if err != nil {
		d.log.Error("proposal send failed",
			zap.Uint64("proposalID", proposalID),
			zap.Error(err),
		)
		return bridge.Receipt{}, err
	}

	d.log.Info("proposal executed",
		zap.Uint64("proposalID", proposalID),
		zap.Uint64("nonce", proposal.Message.Nonce),
		zap.Stringer("guid", receipt.GUID),
	)
	return receipt, nil
}

// EmergencyUpdate bypasses the proposal flow. Emergency admin only. The
// message draws from the same nonce counter and passes the same rate
// limit as proposal execution.
func (d *DAO) EmergencyUpdate(ctx context.Context, caller common.Address, p payload.Payload) (bridge.Receipt, error) {
	d.lock.Lock()
	defer d.lock.Unlock()

	if caller != d.emergencyAdmin {
		return bridge.Receipt{}, fmt.Errorf("%w: emergency updates require the emergency admin", ErrNotAuthorized)
	}

	body, err := p.Encode()
	if err != nil {
		return bridge.Receipt{}, fmt.Errorf("failed to encode command payload: %w", err)
	}

	d.messageNonce++
	msg, err := bridge.NewMessage(p.Command(), d.messageNonce, d.now(), body)
	if err != nil {
		return bridge.Receipt{}, err
	}

	receipt, err := d.dispatchLocked(ctx, msg, caller)
	if err != nil {
		return bridge.Receipt{}, err
	}

	d.log.Warn("emergency update sent",
		zap.Stringer("command", msg.Command),
		zap.Uint64("nonce", msg.Nonce),
		zap.Stringer("guid", receipt.GUID),
	)
	return receipt, nil
}

// Proposal returns the proposal with the given id.
func (d *DAO) Proposal(proposalID uint64) (*Proposal, error) {
	d.lock.Lock()
	defer d.lock.Unlock()
	proposal, ok := d.proposals[proposalID]
	if !ok {
		return nil, fmt.Errorf("%w: id %d", ErrUnknownProposal, proposalID)
	}
	return proposal, nil
}

// MessageNonce returns the last allocated nonce.
func (d *DAO) MessageNonce() uint64 {
	d.lock.Lock()
	defer d.lock.Unlock()
	return d.messageNonce
}

// quorumLocked computes ceil(memberCount * quorumPercent / 100).
func (d *DAO) quorumLocked() uint64 {
	count := uint64(len(d.members))
	if err := bridge.CheckMulDoesNotOverflow(count, d.quorumPercent); err != nil {
		// Unreachable with realistic membership; fail closed.
		return count
	}
	return (count*d.quorumPercent + 99) / 100
}

// dispatchLocked runs the outbound policy gates and hands the message to
// the transport with retries. The envelope timestamp is stamped here, at
// send time: a proposal executes days after creation, and the receiver's
// freshness window is measured against delivery, not against the vote.
func (d *DAO) dispatchLocked(ctx context.Context, msg *bridge.Message, refundAddr common.Address) (bridge.Receipt, error) {
	stamped := *msg
	stamped.Timestamp = d.now().Unix()
	if err := stamped.Validate(d.now()); err != nil {
		return bridge.Receipt{}, err
	}
	encoded, err := stamped.Encode()
	if err != nil {
		return bridge.Receipt{}, err
	}
	if err := d.guard.Allow(d.dstEID); err != nil {
		return bridge.Receipt{}, err
	}

	fee, err := d.guard.Quote(ctx, d.transport, d.dstEID, encoded, d.sendOptions)
	if err != nil {
		return bridge.Receipt{}, fmt.Errorf("fee quote failed: %w", err)
	}

	var receipt bridge.Receipt
	err = utils.WithRetriesTimeout(d.log, func() error {
		var sendErr error
		receipt, sendErr = d.transport.Send(ctx, d.dstEID, encoded, d.sendOptions, fee, refundAddr)
		return sendErr
	}, d.sendTimeout)
	if err != nil {
		d.guard.InvalidateQuote(d.dstEID, len(encoded))
		return bridge.Receipt{}, fmt.Errorf("transport send failed: %w", err)
	}

	quoted := uint64(0)
	if fee.Native != nil {
		quoted = fee.Native.Uint64()
	}
	paid := quoted
	if receipt.Paid != nil {
		paid = receipt.Paid.Uint64()
	}
	d.guard.RecordPayment(refundAddr.Hex(), quoted, paid)
	return receipt, nil
}
