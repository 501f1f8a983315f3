// Copyright (C) 2024-2026, Omnidao Labs. All rights reserved.
// See the file LICENSE for licensing terms.

package governance

import "errors"

var (
	ErrNotAMember         = errors.New("caller is not a member")
	ErrAlreadyAMember     = errors.New("address is already a member")
	ErrCannotRemoveOwner  = errors.New("owner cannot be removed from membership")
	ErrNotAuthorized      = errors.New("caller is not authorized")
	ErrUnknownProposal    = errors.New("unknown proposal")
	ErrAlreadyVoted       = errors.New("voter has already voted on this proposal")
	ErrVotingClosed       = errors.New("voting period has ended")
	ErrVotingStillActive  = errors.New("voting period has not ended")
	ErrAlreadyExecuted    = errors.New("proposal already executed")
	ErrProposalDidNotPass = errors.New("proposal did not pass")
)
