// Package config loads atlas runtime configuration.
//
// # Configuration Discovery
//
//  1. If a path is explicitly provided, use it
//  2. Otherwise, use ~/.config/atlas/config.toml (default)
//  3. If the config file doesn't exist, fall back to defaults
//  4. ATLAS_* environment variables override whatever the file set
//
// # Default Values
//
//   - API URL: http://localhost:5000
//   - Page size: 5
//   - Request timeout: 10s
//   - Token file: ~/.config/atlas/session.toml
//   - Prefs file: ~/.config/atlas/prefs.toml
//   - Log file: ~/.local/state/atlas/atlas.log
//   - Log level: info
//   - Token watch interval: 1s
//
// # TOML Format
//
//	api_url = "http://localhost:5000"
//	page_size = 5
//	request_timeout = "10s"
//	token_path = "~/.config/atlas/session.toml"
//	log_file = "~/.local/state/atlas/atlas.log"
//	log_level = "info"
//	watch_interval = "1s"
//
// Every field is optional. Durations use time.ParseDuration syntax and
// paths get tilde expansion.
//
// # Environment
//
//	ATLAS_API_URL, ATLAS_PAGE_SIZE, ATLAS_REQUEST_TIMEOUT, ATLAS_TOKEN_PATH,
//	ATLAS_PREFS_PATH, ATLAS_LOG_FILE, ATLAS_LOG_LEVEL, ATLAS_WATCH_INTERVAL
//
// Missing config files are NOT an error. Malformed files and malformed
// environment values are.
package config
