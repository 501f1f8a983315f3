// Copyright (C) 2024-2026, Omnidao Labs. All rights reserved.
// See the file LICENSE for licensing terms.

package controller

import "errors"

var (
	ErrInvalidEndpoint      = errors.New("message arrived from an unexpected endpoint")
	ErrUnknownPeer          = errors.New("no peer registered for source endpoint")
	ErrInvalidSender        = errors.New("sender is not the registered peer")
	ErrInvalidMessageFormat = errors.New("invalid message format")
	ErrInvalidNonce         = errors.New("nonce is not greater than the last processed nonce")
	ErrInvalidTimestamp     = errors.New("message timestamp outside freshness window")
	ErrControllerPaused     = errors.New("controller is paused")
	ErrBatchTooLarge        = errors.New("batch exceeds maximum size")
	ErrURITooLong           = errors.New("metadata uri exceeds maximum length")
	ErrNameTooLong          = errors.New("collection name exceeds maximum length")
	ErrSymbolTooLong        = errors.New("collection symbol exceeds maximum length")
	ErrZeroAuthority        = errors.New("new authority must not be the zero key")
	ErrOwnerMismatch        = errors.New("declared owner does not match stored ownership")
)
