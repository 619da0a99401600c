// Package config loads lector's client configuration.
//
// # Configuration Discovery
//
// The Load function follows this resolution order:
//
//  1. If a path is explicitly provided, use it
//  2. Otherwise, use ~/.config/lector/config.toml (default)
//  3. If the config file doesn't exist, fall back to defaults
//  4. If the file exists but fields are missing or blank, use defaults
//  5. LECTOR_BASE_URL, when set, replaces base_url
//
// # Default Values
//
//   - Backend: http://127.0.0.1:8080
//   - Request timeout: 10s
//   - User-Agent: lector/0.1
//   - Log file: ~/.local/share/lector/lector.log
//
// # TOML Format
//
//	base_url = "https://biblio.example.org/api"
//	timeout_seconds = 15
//	user_agent = "lector/0.1"
//	log_file = "~/.local/share/lector/lector.log"
//
// All fields are optional. Tilde expansion is performed on log_file.
//
// # Error Handling
//
// Load returns errors for path expansion failures, unreadable files and TOML
// parse errors (wrapped as "parse config"). A missing file is not an error.
package config
