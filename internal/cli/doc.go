// Package cli holds the terminal side of msauth: output formats (JSON,
// go-pretty tables and sprig-enabled templates), the login spinner, the
// no-echo secret prompt, systemd readiness notification and the
// user-facing guidance attached to failed logins.
package cli
