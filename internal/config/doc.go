// Package config loads configuration for both halves of cui.
//
// # Backend Configuration
//
// The dev backend reads a YAML file:
//
//	server:
//	  http_addr: "127.0.0.1:8700"
//
//	database:
//	  path: "~/.local/share/cui/backend.db"
//
//	auth:
//	  jwt_secret: "${CUI_JWT_SECRET}"
//
//	engine:
//	  step_delay: "300ms"
//	  decision_timeout: "2m"
//
//	tailscale:
//	  enabled: false
//	  hostname: "cui-dev"
//
//	logging:
//	  level: "info"
//	  format: "text"
//
//	metrics:
//	  enabled: true
//	  path: "/metrics"
//
// Environment variables in ${VAR} form are expanded before parsing, and
// duration fields accept Go duration strings. Without a config file the
// backend runs with Default(): local address, XDG data dir database, no
// authentication.
//
// # Client Preferences
//
// The chat and export commands read TOML preferences from
// $XDG_CONFIG_HOME/cui/preferences.toml (falling back to ~/.config):
//
//	[backend]
//	url = "http://127.0.0.1:8700"
//
//	[chat]
//	model = "sim-1"
//	permission_mode = "default"
//
//	[export]
//	format = "markdown"
//
// A missing preferences file silently yields defaults.
package config
