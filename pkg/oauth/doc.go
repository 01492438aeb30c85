// Package oauth implements the protocol side of an interactive Microsoft
// identity platform login: OAuth 2.0 Authorization Code with PKCE.
//
// # Core Components
//
//   - PKCE: Proof Key for Code Exchange generation (RFC 7636)
//   - AuthorizationRequest: the authorize URL sent to the browser
//   - AuthorizationResult: code and state parsed from the final redirect
//   - Client: code exchange and refresh token grants
//   - DecodeJWT: unverified access token inspection
//
// # Usage
//
//	pkce, err := oauth.GeneratePKCE()
//	state, err := oauth.GenerateState()
//	req := oauth.NewAuthorizationRequest(app, pkce, state)
//	authURL, err := req.URL(req.Endpoint())
//
//	// ... browser reaches the redirect URI ...
//
//	result, err := oauth.ParseAuthorizationResponse(finalURL)
//	err = result.VerifyState(state)
//	tokens, err := oauth.NewClient(oauth.WithLogger(logger)).
//		ExchangeCode(ctx, result.Code, pkce.CodeVerifier, app)
//
// DecodeJWT does not verify signatures. Its claims are for display and
// scheduling only.
package oauth
