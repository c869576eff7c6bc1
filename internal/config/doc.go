// Package config provides the configuration of featurehost.
//
// Configuration is built from layers with higher layers overriding lower:
//
//	┌─────────────────────────────┐
//	│  3. Environment Variables   │  ← FEATUREHOST_*, highest priority
//	├─────────────────────────────┤
//	│  2. Configuration Files     │  ← TOML, YAML or JSON, in given order
//	├─────────────────────────────┤
//	│  1. Built-in Defaults       │  ← Lowest priority
//	└─────────────────────────────┘
//
// A file may list further files under "include"; those are merged
// underneath it.
//
// # Example
//
//	[log]
//	level = "debug"
//
//	[engine]
//	providerTimeout = "2s"
//
//	[plugins]
//	dirs = ["~/.config/featurehost/plugins"]
//	watch = true
//
//	[[servers]]
//	name = "gopls"
//	command = "gopls"
//	selector = { language = "go" }
//	features = ["hover", "definition", "completion"]
//
// # Sub-packages
//
//   - loader: file and environment loading, deep merging
package config
