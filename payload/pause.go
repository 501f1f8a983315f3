// Copyright (C) 2024-2026, Omnidao Labs. All rights reserved.
// See the file LICENSE for licensing terms.

package payload

import (
	"github.com/omnidao/bridge"
)

// Pause halts all controller commands except unpause and authority
// transfer. The payload is empty; non-empty payloads are ignored rather
// than rejected so an emergency stop can never fail on framing.
type Pause struct{}

func (*Pause) Command() bridge.Command { return bridge.CommandEmergencyPause }

func (*Pause) Encode() ([]byte, error) { return nil, nil }

// DecodePause accepts any payload bytes.
func DecodePause([]byte) (*Pause, error) { return &Pause{}, nil }

// Unpause lifts an emergency pause. Same payload rules as Pause.
type Unpause struct{}

func (*Unpause) Command() bridge.Command { return bridge.CommandEmergencyUnpause }

func (*Unpause) Encode() ([]byte, error) { return nil, nil }

// DecodeUnpause accepts any payload bytes.
func DecodeUnpause([]byte) (*Unpause, error) { return &Unpause{}, nil }
