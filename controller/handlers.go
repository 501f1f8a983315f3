// Copyright (C) 2024-2026, Omnidao Labs. All rights reserved.
// See the file LICENSE for licensing terms.

package controller

import (
	"context"
	"fmt"

	"github.com/luxfi/ids"
	"go.uber.org/zap"

	"github.com/omnidao/bridge/payload"
)

func (c *Controller) handleUpdateMetadataLocked(p *payload.UpdateMetadata) error {
	if len(p.URI) > MaxURILength {
		return fmt.Errorf("%w: %d bytes, maximum %d", ErrURITooLong, len(p.URI), MaxURILength)
	}
	if len(p.Name) > MaxNameLength {
		return fmt.Errorf("%w: %d bytes, maximum %d", ErrNameTooLong, len(p.Name), MaxNameLength)
	}
	if len(p.Symbol) > MaxSymbolLength {
		return fmt.Errorf("%w: %d bytes, maximum %d", ErrSymbolTooLong, len(p.Symbol), MaxSymbolLength)
	}

	c.collectionURI = p.URI
	c.collectionName = p.Name
	c.collectionSymbol = p.Symbol
	c.log.Info("collection metadata updated",
		zap.String("uri", p.URI),
		zap.String("name", p.Name),
		zap.String("symbol", p.Symbol),
	)
	return nil
}

// handleBatchUpdateLocked pre-validates every entry before mutating the
// tree, then applies entries in order and aborts on the first failure.
// Proof staleness can still surface mid-batch, so pre-validation narrows
// but does not eliminate partial application; the burned nonce makes the
// whole batch non-retryable either way.
func (c *Controller) handleBatchUpdateLocked(ctx context.Context, p *payload.BatchUpdate) error {
	if len(p.Updates) > MaxBatchSize {
		return fmt.Errorf("%w: %d entries, maximum %d", ErrBatchTooLarge, len(p.Updates), MaxBatchSize)
	}
	for i, u := range p.Updates {
		if len(u.URI) > MaxURILength {
			return fmt.Errorf("%w: entry %d is %d bytes, maximum %d",
				ErrURITooLong, i, len(u.URI), MaxURILength)
		}
		if _, err := c.tree.Owner(u.LeafIndex); err != nil {
			return fmt.Errorf("entry %d, leaf %d: %w", i, u.LeafIndex, err)
		}
	}

	for i, u := range p.Updates {
		if err := c.tree.UpdateLeaf(ctx, u.LeafIndex, u.URI, u.Proof); err != nil {
			return fmt.Errorf("entry %d, leaf %d: %w", i, u.LeafIndex, err)
		}
		c.metrics.batchEntriesApplied.Inc()
	}
	c.log.Info("batch metadata update applied", zap.Int("entries", len(p.Updates)))
	return nil
}

func (c *Controller) handleTransferAuthorityLocked(p *payload.TransferAuthority) error {
	if p.NewAuthority == (ids.ID{}) {
		return ErrZeroAuthority
	}
	previous := c.authority
	c.authority = p.NewAuthority
	c.log.Warn("controller authority transferred",
		zap.Stringer("previous", previous),
		zap.Stringer("new", p.NewAuthority),
	)
	return nil
}

func (c *Controller) handleBurnBatchLocked(ctx context.Context, p *payload.BurnBatch) error {
	if len(p.Requests) > MaxBatchSize {
		return fmt.Errorf("%w: %d entries, maximum %d", ErrBatchTooLarge, len(p.Requests), MaxBatchSize)
	}
	for i, r := range p.Requests {
		owner, err := c.tree.Owner(r.LeafIndex)
		if err != nil {
			return fmt.Errorf("entry %d, leaf %d: %w", i, r.LeafIndex, err)
		}
		if owner != r.Owner {
			return fmt.Errorf("%w: entry %d, leaf %d", ErrOwnerMismatch, i, r.LeafIndex)
		}
	}

	for i, r := range p.Requests {
		if err := c.tree.Burn(ctx, r.LeafIndex, r.Owner, r.Proof); err != nil {
			return fmt.Errorf("entry %d, leaf %d: %w", i, r.LeafIndex, err)
		}
		c.metrics.batchEntriesApplied.Inc()
	}
	c.log.Info("burn batch applied", zap.Int("entries", len(p.Requests)))
	return nil
}

func (c *Controller) handleTransferBatchLocked(ctx context.Context, p *payload.TransferBatch) error {
	if len(p.Requests) > MaxBatchSize {
		return fmt.Errorf("%w: %d entries, maximum %d", ErrBatchTooLarge, len(p.Requests), MaxBatchSize)
	}
	for i, r := range p.Requests {
		owner, err := c.tree.Owner(r.LeafIndex)
		if err != nil {
			return fmt.Errorf("entry %d, leaf %d: %w", i, r.LeafIndex, err)
		}
		if owner != r.From {
			return fmt.Errorf("%w: entry %d, leaf %d", ErrOwnerMismatch, i, r.LeafIndex)
		}
	}

	for i, r := range p.Requests {
		if err := c.tree.Transfer(ctx, r.LeafIndex, r.From, r.To, r.Proof); err != nil {
			return fmt.Errorf("entry %d, leaf %d: %w", i, r.LeafIndex, err)
		}
		c.metrics.batchEntriesApplied.Inc()
	}
	c.log.Info("transfer batch applied", zap.Int("entries", len(p.Requests)))
	return nil
}
