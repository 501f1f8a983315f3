// Copyright (C) 2024-2026, Omnidao Labs. All rights reserved.
// See the file LICENSE for licensing terms.

// Package config loads and validates the bridge node configuration from a
// JSON config file, environment variables, and command line flags.
package config

import (
	"fmt"
	"time"

	"github.com/luxfi/geth/common"
	"github.com/luxfi/ids"
	"go.uber.org/zap/zapcore"

	"github.com/omnidao/bridge/controller"
	"github.com/omnidao/bridge/governance"
	"github.com/omnidao/bridge/guard"
)

const (
	defaultLogLevel    = "info"
	defaultMetricsPort = 9090
	defaultTreeDepth   = 14
)

// Config is the top-level configuration of one bridge deployment: the
// governance side, the controller side, and the ambient concerns shared by
// both.
type Config struct {
	LogLevel    string `mapstructure:"log-level" json:"log-level"`
	MetricsPort uint16 `mapstructure:"metrics-port" json:"metrics-port"`

	SourceEID      uint32 `mapstructure:"source-eid" json:"source-eid"`
	DestinationEID uint32 `mapstructure:"destination-eid" json:"destination-eid"`
	PeerAddress    string `mapstructure:"peer-address" json:"peer-address"`
	Authority      string `mapstructure:"authority" json:"authority"`

	TreeDepth        int    `mapstructure:"tree-depth" json:"tree-depth"`
	CollectionURI    string `mapstructure:"collection-uri" json:"collection-uri"`
	CollectionName   string `mapstructure:"collection-name" json:"collection-name"`
	CollectionSymbol string `mapstructure:"collection-symbol" json:"collection-symbol"`

	VotingPeriod  time.Duration `mapstructure:"voting-period" json:"voting-period"`
	QuorumPercent uint64        `mapstructure:"quorum-percent" json:"quorum-percent"`
	SendLimit     int           `mapstructure:"send-limit" json:"send-limit"`
	SendWindow    time.Duration `mapstructure:"send-window" json:"send-window"`

	peerAddress common.Address
	authority   ids.ID
}

// Validate checks every field and parses the address-shaped strings. It
// must be called before the parsed accessors are used.
func (c *Config) Validate() error {
	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid %s %q: %w", LogLevelKey, c.LogLevel, err)
	}
	if c.SourceEID == 0 {
		return fmt.Errorf("%s must be set", SourceEIDKey)
	}
	if c.DestinationEID == 0 {
		return fmt.Errorf("%s must be set", DestinationEIDKey)
	}
	if !common.IsHexAddress(c.PeerAddress) {
		return fmt.Errorf("invalid %s %q", PeerAddressKey, c.PeerAddress)
	}
	c.peerAddress = common.HexToAddress(c.PeerAddress)

	authority, err := ids.FromString(c.Authority)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", AuthorityKey, c.Authority, err)
	}
	if authority == (ids.ID{}) {
		return fmt.Errorf("%s must not be the zero key", AuthorityKey)
	}
	c.authority = authority

	if c.TreeDepth < 1 || c.TreeDepth > 24 {
		return fmt.Errorf("%s %d out of range [1, 24]", TreeDepthKey, c.TreeDepth)
	}
	if len(c.CollectionURI) > controller.MaxURILength {
		return fmt.Errorf("%s exceeds %d bytes", CollectionURIKey, controller.MaxURILength)
	}
	if c.QuorumPercent == 0 || c.QuorumPercent > 100 {
		return fmt.Errorf("%s %d out of range (0, 100]", QuorumPercentKey, c.QuorumPercent)
	}
	if c.VotingPeriod <= 0 {
		return fmt.Errorf("%s must be positive", VotingPeriodKey)
	}
	if c.SendLimit <= 0 {
		return fmt.Errorf("%s must be positive", SendLimitKey)
	}
	if c.SendWindow <= 0 {
		return fmt.Errorf("%s must be positive", SendWindowKey)
	}
	return nil
}

// PeerAddr returns the parsed trusted sender contract address.
func (c *Config) PeerAddr() common.Address {
	return c.peerAddress
}

// AuthorityID returns the parsed initial controller authority key.
func (c *Config) AuthorityID() ids.ID {
	return c.authority
}

// ControllerConfig derives the controller deployment configuration.
func (c *Config) ControllerConfig() controller.Config {
	return controller.Config{
		SourceEID:        c.SourceEID,
		Peers:            map[uint32]common.Address{c.SourceEID: c.peerAddress},
		Authority:        c.authority,
		CollectionURI:    c.CollectionURI,
		CollectionName:   c.CollectionName,
		CollectionSymbol: c.CollectionSymbol,
	}
}

// LogLevelOrDefault parses the configured log level.
func (c *Config) LogLevelOrDefault() zapcore.Level {
	level, err := zapcore.ParseLevel(c.LogLevel)
	if err != nil {
		return zapcore.InfoLevel
	}
	return level
}

func defaultValues() map[string]any {
	return map[string]any{
		LogLevelKey:      defaultLogLevel,
		MetricsPortKey:   defaultMetricsPort,
		TreeDepthKey:     defaultTreeDepth,
		VotingPeriodKey:  governance.DefaultVotingPeriod,
		QuorumPercentKey: governance.DefaultQuorumPercent,
		SendLimitKey:     guard.DefaultSendLimit,
		SendWindowKey:    guard.DefaultSendWindow,
	}
}
