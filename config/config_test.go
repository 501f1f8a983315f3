// Copyright (C) 2024-2026, Omnidao Labs. All rights reserved.
// See the file LICENSE for licensing terms.

package config

import (
	"testing"
	"time"

	"github.com/luxfi/ids"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"

	"github.com/omnidao/bridge/governance"
)

func validViper() *viper.Viper {
	v := viper.New()
	v.Set(SourceEIDKey, 30101)
	v.Set(DestinationEIDKey, 30168)
	v.Set(PeerAddressKey, "0x1000000000000000000000000000000000000001")
	v.Set(AuthorityKey, ids.ID{0x01}.String())
	v.Set(CollectionURIKey, "https://x/0.json")
	v.Set(CollectionNameKey, "Omni")
	v.Set(CollectionSymbolKey, "OMNI")
	return v
}

func TestDefaultsApplied(t *testing.T) {
	require := require.New(t)

	cfg, err := NewConfig(validViper())
	require.NoError(err)

	require.Equal("info", cfg.LogLevel)
	require.Equal(uint16(9090), cfg.MetricsPort)
	require.Equal(14, cfg.TreeDepth)
	require.Equal(governance.DefaultVotingPeriod, cfg.VotingPeriod)
	require.Equal(uint64(governance.DefaultQuorumPercent), cfg.QuorumPercent)
}

func TestParsedAccessors(t *testing.T) {
	require := require.New(t)

	cfg, err := NewConfig(validViper())
	require.NoError(err)

	require.Equal("0x1000000000000000000000000000000000000001", cfg.PeerAddr().Hex())
	require.Equal(ids.ID{0x01}, cfg.AuthorityID())

	ctrlCfg := cfg.ControllerConfig()
	require.Equal(uint32(30101), ctrlCfg.SourceEID)
	require.Equal(cfg.PeerAddr(), ctrlCfg.Peers[30101])
}

func TestValidateFailures(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*viper.Viper)
	}{
		{"missing source eid", func(v *viper.Viper) { v.Set(SourceEIDKey, 0) }},
		{"missing destination eid", func(v *viper.Viper) { v.Set(DestinationEIDKey, 0) }},
		{"bad peer address", func(v *viper.Viper) { v.Set(PeerAddressKey, "not-an-address") }},
		{"bad authority", func(v *viper.Viper) { v.Set(AuthorityKey, "!!!") }},
		{"zero authority", func(v *viper.Viper) { v.Set(AuthorityKey, ids.ID{}.String()) }},
		{"bad log level", func(v *viper.Viper) { v.Set(LogLevelKey, "shouting") }},
		{"tree depth too deep", func(v *viper.Viper) { v.Set(TreeDepthKey, 25) }},
		{"quorum over 100", func(v *viper.Viper) { v.Set(QuorumPercentKey, 101) }},
		{"zero quorum", func(v *viper.Viper) { v.Set(QuorumPercentKey, 0) }},
		{"negative voting period", func(v *viper.Viper) { v.Set(VotingPeriodKey, -time.Hour) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := validViper()
			tt.mutate(v)
			_, err := NewConfig(v)
			require.Error(t, err)
		})
	}
}
