// Copyright (C) 2024-2026, Omnidao Labs. All rights reserved.
// See the file LICENSE for licensing terms.

package payload

import (
	"github.com/omnidao/bridge"
)

// UpdateMetadata replaces the collection-level metadata fields.
type UpdateMetadata struct {
	URI    string
	Name   string
	Symbol string
}

func (*UpdateMetadata) Command() bridge.Command {
	return bridge.CommandUpdateCollectionMetadata
}

// Encode serializes the three strings, each with a 4-byte length prefix.
func (p *UpdateMetadata) Encode() ([]byte, error) {
	b := make([]byte, 0, 12+len(p.URI)+len(p.Name)+len(p.Symbol))
	b = appendString(b, p.URI)
	b = appendString(b, p.Name)
	b = appendString(b, p.Symbol)
	return b, nil
}

// DecodeUpdateMetadata parses an UpdateMetadata payload.
func DecodeUpdateMetadata(b []byte) (*UpdateMetadata, error) {
	var (
		p   UpdateMetadata
		off int
		err error
	)
	if p.URI, off, err = readString(b, off); err != nil {
		return nil, err
	}
	if p.Name, off, err = readString(b, off); err != nil {
		return nil, err
	}
	if p.Symbol, off, err = readString(b, off); err != nil {
		return nil, err
	}
	if err := expectEnd(b, off); err != nil {
		return nil, err
	}
	return &p, nil
}
