// Package token manages an acquired token pair for the rest of its life.
//
// A Lifecycle tracks expiry, exposes the unverified access token claims,
// refreshes on demand or in a background loop, and writes snapshots through
// a Persister (roadtools file or Kubernetes Secret).
//
// The refresh loop sleeps until five minutes before expiry, refreshes, and
// starts over. Failed refreshes are retried with capped exponential backoff;
// after too many consecutive failures, or when the refresh token is missing
// or rejected, the loop gives up and Err reports a *RefreshAbandonedError.
// The wait is interruptible: StopAutoRefresh returns as soon as the loop
// has observed the cancellation.
package token
