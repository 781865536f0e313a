// Package config provides configuration management for the manhole tracker.
//
// Values come from environment variables, optionally seeded from a .env file, with
// defaults declared through `default` struct tags on each partial config.
//
// # Configuration Structure
//
//   - Scan: source, ID window, resume and discovery limit
//   - Fetch: user agent, timeouts, retries, request delay
//   - Dataset: output file, format and mirrors
//   - Geocode: provider, cache file, pacing
//   - Sources: base URLs of the source adapters
//   - Server, Storage, Log, Database: ambient settings
//
// Nested keys map to variables by replacing dots with underscores, so scan.max
// is read from SCAN_MAX.
//
// # Usage
//
//	cfg, err := config.LoadConfig(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Scan.Max)
package config
