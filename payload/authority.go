// Copyright (C) 2024-2026, Omnidao Labs. All rights reserved.
// See the file LICENSE for licensing terms.

package payload

import (
	"fmt"

	"github.com/luxfi/ids"

	"github.com/omnidao/bridge"
)

// AuthorityLen is the exact payload size of a TransferAuthority command.
const AuthorityLen = 32

// TransferAuthority hands controller authority to a new key.
type TransferAuthority struct {
	NewAuthority ids.ID
}

func (*TransferAuthority) Command() bridge.Command {
	return bridge.CommandTransferAuthority
}

// Encode returns the raw 32-byte public key.
func (p *TransferAuthority) Encode() ([]byte, error) {
	b := make([]byte, AuthorityLen)
	copy(b, p.NewAuthority[:])
	return b, nil
}

// DecodeTransferAuthority parses a TransferAuthority payload. Anything but
// exactly 32 bytes is rejected.
func DecodeTransferAuthority(b []byte) (*TransferAuthority, error) {
	if len(b) != AuthorityLen {
		return nil, fmt.Errorf("%w: got %d bytes, want %d", ErrInvalidAuthorityLength, len(b), AuthorityLen)
	}
	var p TransferAuthority
	copy(p.NewAuthority[:], b)
	return &p, nil
}
