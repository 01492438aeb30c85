// Package logging provides structured logging helpers for msauth built on
// Go's standard slog package.
//
// # Log Levels
//   - **Debug**: Detailed information, including refresh scheduling
//   - **Info**: Progress of the interactive login and token lifecycle
//   - **Warn**: Recoverable problems such as a failed refresh attempt
//   - **Error**: Failures that abort token acquisition
//
// # Usage
//
// Loggers are constructed once at startup and handed to every component that
// logs. There is no package level logger:
//
//	level, err := logging.ParseLogLevel("debug")
//	logger := logging.New(level, os.Stderr)
//
//	lifecycle := token.New(set, token.WithLogger(logging.With(logger, "Token")))
//
// Each component tags its records with a subsystem attribute through With,
// which keeps output filterable:
//
//	time=... level=INFO msg="Access token refreshed" subsystem=Token expires_in=1h0m0s
//
// # Secrets
//
// Token values must never reach a log record. Use Redact when a value needs
// to be recognisable in debug output.
//
// # Controller-Runtime Integration
//
// When the Kubernetes persistence backend is in use, BridgeControllerRuntime
// routes controller-runtime and client-go logs through the same handler.
package logging
