// ABOUTME: Package documentation for client configuration
// ABOUTME: TOML with env expansion, duration parsing and validation

// Package config loads the coven-chat client configuration.
//
// Configuration is TOML with ${VAR} environment-variable expansion.
// Duration fields are written as Go duration strings ("500ms", "30s")
// and parsed on load. Defaults cover everything except the backend
// URL, so a minimal config is:
//
//	[backend]
//	url = "http://localhost:8080"
package config
