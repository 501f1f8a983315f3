// Copyright (C) 2024-2026, Omnidao Labs. All rights reserved.
// See the file LICENSE for licensing terms.

package bridge

import (
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/luxfi/ids"
)

const (
	// MessageVersion is the current protocol version. Any change to the
	// wire layout requires bumping it.
	MessageVersion uint8 = 1

	// HeaderSize is the fixed envelope header:
	// command(1) + nonce(8) + timestamp(8) + version(1).
	HeaderSize = 18

	// MaxMessageSize bounds header + payload.
	MaxMessageSize = 65535

	// SenderClockTolerance is the sender-side self-check bound on message
	// timestamps. The receiver enforces its own, much tighter freshness
	// window (see the controller package).
	SenderClockTolerance = 24 * time.Hour
)

var (
	ErrMessageTooLarge    = errors.New("message too large")
	ErrMessageTooShort    = errors.New("message too short")
	ErrInvalidCommand     = errors.New("invalid command")
	ErrUnsupportedVersion = errors.New("unsupported message version")
	ErrInvalidMessage     = errors.New("invalid message")
)

// Command is the envelope-level command tag. Values are part of the wire
// contract shared with the EVM sender contract and must not be renumbered.
type Command uint8

const (
	CommandUpdateCollectionMetadata Command = 0
	CommandBatchUpdateCNFTs         Command = 1
	CommandTransferAuthority        Command = 2
	CommandEmergencyPause           Command = 3
	CommandEmergencyUnpause         Command = 4

	// Receiver-side extensions carried in the same envelope.
	CommandBurnCNFTs     Command = 5
	CommandTransferCNFTs Command = 6
)

// Valid reports whether c is a recognized command tag.
func (c Command) Valid() bool {
	return c <= CommandTransferCNFTs
}

func (c Command) String() string {
	switch c {
	case CommandUpdateCollectionMetadata:
		return "UpdateCollectionMetadata"
	case CommandBatchUpdateCNFTs:
		return "BatchUpdateCNFTs"
	case CommandTransferAuthority:
		return "TransferAuthority"
	case CommandEmergencyPause:
		return "EmergencyPause"
	case CommandEmergencyUnpause:
		return "EmergencyUnpause"
	case CommandBurnCNFTs:
		return "BurnCNFTs"
	case CommandTransferCNFTs:
		return "TransferCNFTs"
	default:
		return fmt.Sprintf("Command(%d)", uint8(c))
	}
}

// Message is the wire-level cross-chain command envelope. It is immutable
// once encoded; the receiver consumes each nonce exactly once.
type Message struct {
	Command   Command
	Nonce     uint64
	Timestamp int64
	Version   uint8
	Payload   []byte
}

// NewMessage creates an envelope stamped with the current protocol version
// and the given creation time.
func NewMessage(command Command, nonce uint64, createdAt time.Time, payload []byte) (*Message, error) {
	msg := &Message{
		Command:   command,
		Nonce:     nonce,
		Timestamp: createdAt.Unix(),
		Version:   MessageVersion,
		Payload:   payload,
	}
	if err := msg.Validate(createdAt); err != nil {
		return nil, err
	}
	return msg, nil
}

// Encode serializes the envelope as a big-endian fixed-width header followed
// by the raw payload bytes.
func (m *Message) Encode() ([]byte, error) {
	if HeaderSize+len(m.Payload) > MaxMessageSize {
		return nil, fmt.Errorf("%w: %d bytes exceeds maximum %d",
			ErrMessageTooLarge, HeaderSize+len(m.Payload), MaxMessageSize)
	}
	b := make([]byte, HeaderSize+len(m.Payload))
	b[0] = byte(m.Command)
	binary.BigEndian.PutUint64(b[1:9], m.Nonce)
	binary.BigEndian.PutUint64(b[9:17], uint64(m.Timestamp))
	b[17] = m.Version
	copy(b[HeaderSize:], m.Payload)
	return b, nil
}

// Decode parses an envelope. It validates framing only: the caller is
// responsible for nonce, freshness, and payload-level checks.
func Decode(b []byte) (*Message, error) {
	if len(b) < HeaderSize {
		return nil, fmt.Errorf("%w: %d bytes, header is %d", ErrMessageTooShort, len(b), HeaderSize)
	}
	if len(b) > MaxMessageSize {
		return nil, fmt.Errorf("%w: %d bytes exceeds maximum %d", ErrMessageTooLarge, len(b), MaxMessageSize)
	}
	msg := &Message{
		Command:   Command(b[0]),
		Nonce:     binary.BigEndian.Uint64(b[1:9]),
		Timestamp: int64(binary.BigEndian.Uint64(b[9:17])),
		Version:   b[17],
	}
	if !msg.Command.Valid() {
		return nil, fmt.Errorf("%w: tag %d", ErrInvalidCommand, b[0])
	}
	if msg.Version != MessageVersion {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrUnsupportedVersion, msg.Version, MessageVersion)
	}
	if len(b) > HeaderSize {
		msg.Payload = make([]byte, len(b)-HeaderSize)
		copy(msg.Payload, b[HeaderSize:])
	}
	return msg, nil
}

// Validate re-checks version, command, nonce, timestamp, and size bounds.
// The sender runs it before handing bytes to the transport; the receiver's
// authoritative gates live in the controller package.
func (m *Message) Validate(now time.Time) error {
	if m.Version != MessageVersion {
		return fmt.Errorf("%w: got %d, want %d", ErrUnsupportedVersion, m.Version, MessageVersion)
	}
	if !m.Command.Valid() {
		return fmt.Errorf("%w: tag %d", ErrInvalidCommand, uint8(m.Command))
	}
	if m.Nonce == 0 {
		return fmt.Errorf("%w: zero nonce", ErrInvalidMessage)
	}
	skew := now.Unix() - m.Timestamp
	if skew < 0 {
		skew = -skew
	}
	if skew > int64(SenderClockTolerance/time.Second) {
		return fmt.Errorf("%w: timestamp %d is more than %s from now", ErrInvalidMessage, m.Timestamp, SenderClockTolerance)
	}
	if HeaderSize+len(m.Payload) > MaxMessageSize {
		return fmt.Errorf("%w: %d bytes exceeds maximum %d",
			ErrMessageTooLarge, HeaderSize+len(m.Payload), MaxMessageSize)
	}
	return nil
}

// ID returns the hash of the encoded envelope. Used for delivery
// deduplication and log correlation, never for replay protection.
func (m *Message) ID() (ids.ID, error) {
	b, err := m.Encode()
	if err != nil {
		return ids.ID{}, err
	}
	return ids.ID(ComputeHash256Array(b)), nil
}

// Equal returns true if two messages are identical field for field.
func (m *Message) Equal(other *Message) bool {
	if m == nil || other == nil {
		return m == other
	}
	if m.Command != other.Command ||
		m.Nonce != other.Nonce ||
		m.Timestamp != other.Timestamp ||
		m.Version != other.Version {
		return false
	}
	return string(m.Payload) == string(other.Payload)
}
