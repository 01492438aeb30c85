// Package metrics exposes token refresh metrics and a status endpoint for
// long-running (--refresh) sessions.
package metrics
