// Package config loads termwindow settings.
//
// Settings come from three layers, higher layers overriding lower:
//
//	┌─────────────────────────────┐
//	│  3. Environment Variables   │  ← TERMWINDOW_<SECTION>_<KEY>
//	├─────────────────────────────┤
//	│  2. Config File             │  ← TOML, sections below
//	├─────────────────────────────┤
//	│  1. Built-in Defaults       │
//	└─────────────────────────────┘
//
// A config file has four sections:
//
//	[terminal]
//	shell = "/bin/zsh"
//	cols = 120
//	rows = 40
//	scrollback = 5000
//	max_markers = 1000
//
//	[window]
//	mode = "delta"
//	max_lines = 40
//	merge_wrapped = true
//	cleanup_threshold = 50
//
//	[watch]
//	interval = "250ms"
//	format = "json"
//
//	[logging]
//	level = "info"
//	format = "auto"
//
// TERMWINDOW_WINDOW_MAX_LINES=80 overrides window.max_lines. A missing
// config file is not an error.
package config
