// Copyright (C) 2024-2026, Omnidao Labs. All rights reserved.
// See the file LICENSE for licensing terms.

package config

import "github.com/spf13/pflag"

// BuildFlagSet returns the command line flags of the bridge node. All other
// configuration is read from the config file or environment.
func BuildFlagSet() *pflag.FlagSet {
	fs := pflag.NewFlagSet("bridged", pflag.ContinueOnError)
	fs.String(ConfigFileKey, "", "Path to the configuration file")
	fs.Bool(VersionKey, false, "Display the version and exit")
	fs.BoolP(HelpKey, "h", false, "Display usage text and exit")
	return fs
}
