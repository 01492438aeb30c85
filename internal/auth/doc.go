// Package auth runs the interactive Microsoft login: it builds the
// authorization request, drives a browser to the redirect URI, redeems the
// code and hands back a token lifecycle that can refresh itself.
package auth
