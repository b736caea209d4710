// Package config handles configuration loading for sdl-storage.
//
// # Overview
//
// Configuration is loaded from YAML or TOML files with environment variable
// expansion. Values absent from the file keep the defaults from Default().
//
// # Configuration File
//
// Default locations (in order):
//
//  1. Path given with -config
//  2. Path from SDL_STORAGE_CONFIG environment variable
//  3. $XDG_CONFIG_HOME/sdl/storage.yaml (or ~/.config/sdl/storage.yaml)
//
// A path ending in .toml is decoded as TOML; anything else as YAML.
//
// # Environment Variable Expansion
//
// Configuration values can reference environment variables:
//
//	storage:
//	  path: "${SDL_STORAGE_DIR}/"
//
// # Configuration Sections
//
// Storage:
//
//	storage:
//	  backend: "cursor"     # cursor (modernc.org/sqlite) or buffered (mattn/go-sqlite3)
//	  path: "/var/lib/sdl/" # prefix, joined to name by plain concatenation
//	  name: "policy"        # the cursor backend appends ".sqlite"
//	  in_memory: false      # temporary store instead of path+name
//
// Resumption:
//
//	resumption:
//	  application_lifes: 3  # ignition cycles saved app data survives
//
// Capability cache:
//
//	capabilities:
//	  cache_ttl: "10m"
//	  cache_size: 64
//
// Logging:
//
//	logging:
//	  level: "info"   # debug, info, warn, error
//	  format: "text"  # text, json
package config
