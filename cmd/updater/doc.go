// Command updater manages over-the-air web bundles on a device.
//
// Usage:
//
//	updater check
//	updater download https://updates.example.com/1.2.0.zip 1.2.0
//	updater set <id>
//	updater commit
//
// Configuration comes from UPDATER_* environment variables; global flags
// override them.
package main
