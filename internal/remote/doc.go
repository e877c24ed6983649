// Package remote talks to the update server.
//
// Three calls are made:
//   - CheckLatest: synchronous POST of the device fingerprint, answered with
//     {version, url, message, major}; no url means no update
//   - Download: streaming GET of a bundle archive with percent progress
//   - Reporter.Send: fire-and-forget POST of a lifecycle event
//
// Requests go through resty over a pooled transport. The check-latest and
// stats endpoints sit behind circuit breakers; nothing is retried.
package remote
