// Package mock provides test doubles for msauth components.
//
//   - MockClock: controllable time with timers that fire on Advance/Set
//   - TokenServer: an httptest stand-in for the identity platform /token endpoint
//     that verifies PKCE and mints unsigned JWT access tokens
//   - Browser: a scripted browser.Launcher for login session tests
package mock
