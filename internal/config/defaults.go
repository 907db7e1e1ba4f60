// ABOUTME: Centralized configuration defaults for amenity
// ABOUTME: Contains magic numbers and hardcoded values for display, storage, and remote access

package config

import "time"

// HTTP settings
const (
	DefaultHTTPTimeout   = 30 * time.Second
	DefaultSupabaseRPS   = 20
	DefaultSupabaseBurst = 20
)

// Display settings
const (
	DefaultListLimit = 20
	DisplayIDLength  = 8
	SeparatorWidth   = 60
	DateFormatShort  = "02 Jan 06 15:04 MST"
	DateFormatLong   = "Mon, 02 Jan 2006 15:04 MST"
	MaxPageSize      = 100
)

// Storage settings
const (
	DefaultDBFilename = "amenity.db"
	DefaultDirPerms   = 0700
)
