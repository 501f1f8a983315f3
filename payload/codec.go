// Copyright (C) 2024-2026, Omnidao Labs. All rights reserved.
// See the file LICENSE for licensing terms.

package payload

import (
	"encoding/binary"
	"fmt"
	"unicode/utf8"

	"github.com/luxfi/ids"
)

// Low-level readers and writers shared by the command codecs. All integers
// are big-endian; strings and proof vectors are prefixed by a 4-byte count.

func appendUint32(b []byte, v uint32) []byte {
	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], v)
	return append(b, tmp[:]...)
}

func appendString(b []byte, s string) []byte {
	b = appendUint32(b, uint32(len(s)))
	return append(b, s...)
}

func appendProof(b []byte, proof [][ProofNodeLen]byte) []byte {
	b = appendUint32(b, uint32(len(proof)))
	for _, node := range proof {
		b = append(b, node[:]...)
	}
	return b
}

func readUint32(b []byte, off int) (uint32, int, error) {
	if off+4 > len(b) {
		return 0, 0, fmt.Errorf("%w: truncated uint32 at offset %d", ErrMalformedPayload, off)
	}
	return binary.BigEndian.Uint32(b[off : off+4]), off + 4, nil
}

func readString(b []byte, off int) (string, int, error) {
	n, off, err := readUint32(b, off)
	if err != nil {
		return "", 0, err
	}
	if off+int(n) > len(b) {
		return "", 0, fmt.Errorf("%w: string length %d reads past buffer end", ErrMalformedPayload, n)
	}
	s := string(b[off : off+int(n)])
	if !utf8.ValidString(s) {
		return "", 0, fmt.Errorf("%w: string is not valid UTF-8", ErrMalformedPayload)
	}
	return s, off + int(n), nil
}

// readCount reads a 4-byte entry count and rejects any count that could
// not possibly fit in the remaining bytes, given the smallest wire size an
// entry can have. A forged count must never drive an allocation.
func readCount(b []byte, off, minEntrySize int) (uint32, int, error) {
	count, off, err := readUint32(b, off)
	if err != nil {
		return 0, 0, err
	}
	if int64(count)*int64(minEntrySize) > int64(len(b)-off) {
		return 0, 0, fmt.Errorf("%w: count %d cannot fit in %d remaining bytes",
			ErrMalformedPayload, count, len(b)-off)
	}
	return count, off, nil
}

func readKey(b []byte, off int) (ids.ID, int, error) {
	if off+32 > len(b) {
		return ids.ID{}, 0, fmt.Errorf("%w: truncated key at offset %d", ErrMalformedPayload, off)
	}
	var id ids.ID
	copy(id[:], b[off:off+32])
	return id, off + 32, nil
}

// readProof reads a proof-node vector. A zero-length proof decodes fine at
// the wire level; rejecting it is the tree collaborator's job.
func readProof(b []byte, off int) ([][ProofNodeLen]byte, int, error) {
	n, off, err := readUint32(b, off)
	if err != nil {
		return nil, 0, err
	}
	if off+int(n)*ProofNodeLen > len(b) {
		return nil, 0, fmt.Errorf("%w: proof count %d reads past buffer end", ErrMalformedPayload, n)
	}
	proof := make([][ProofNodeLen]byte, n)
	for i := range proof {
		copy(proof[i][:], b[off:off+ProofNodeLen])
		off += ProofNodeLen
	}
	return proof, off, nil
}

func expectEnd(b []byte, off int) error {
	if off != len(b) {
		return fmt.Errorf("%w: %d trailing bytes", ErrMalformedPayload, len(b)-off)
	}
	return nil
}
