// Copyright (C) 2024-2026, Omnidao Labs. All rights reserved.
// See the file LICENSE for licensing terms.

package config

const (
	// Command line option keys
	ConfigFileKey = "config-file"
	VersionKey    = "version"
	HelpKey       = "help"

	// Environment variable keys
	ConfigFileEnvKey = "CONFIG_FILE"

	// Top-level configuration keys
	LogLevelKey         = "log-level"
	MetricsPortKey      = "metrics-port"
	SourceEIDKey        = "source-eid"
	DestinationEIDKey   = "destination-eid"
	PeerAddressKey      = "peer-address"
	AuthorityKey        = "authority"
	TreeDepthKey        = "tree-depth"
	CollectionURIKey    = "collection-uri"
	CollectionNameKey   = "collection-name"
	CollectionSymbolKey = "collection-symbol"
	VotingPeriodKey     = "voting-period"
	QuorumPercentKey    = "quorum-percent"
	SendLimitKey        = "send-limit"
	SendWindowKey       = "send-window"
)
