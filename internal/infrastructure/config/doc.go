// Package config provides 12-factor configuration for the updater.
//
// Configuration is loaded from environment variables with sensible defaults.
// CLI flags can override environment variables.
//
// Configuration Sections:
//   - Paths: hot, persistent, temp and builtin directories
//   - Device: fingerprint sent to the update and stats servers
//   - Remote: update and stats endpoints, HTTP timeout, stats budget
//   - Store: durable key-value backend (file, redis, memory)
//   - Logging: log level and output format
//
// Example Usage:
//
//	cfg := config.LoadOrDefault()
//	store, err := kv.Open(ctx, cfg.StoreOptions())
//
// Environment Variables:
//   - UPDATER_HOT_ROOT, UPDATER_PERSIST_ROOT, UPDATER_TEMP_ROOT, UPDATER_BUILTIN_PATH, UPDATER_ENTRY_POINT
//   - UPDATER_PLATFORM, UPDATER_APP_ID, UPDATER_DEVICE_ID, UPDATER_VERSION_BUILD, UPDATER_VERSION_CODE, UPDATER_VERSION_OS
//   - UPDATER_LATEST_URL, UPDATER_STATS_URL, UPDATER_HTTP_TIMEOUT, UPDATER_STATS_RPS
//   - UPDATER_STORE, UPDATER_STORE_PATH, UPDATER_REDIS_URL
//   - LOG_LEVEL, LOG_DEV
package config
