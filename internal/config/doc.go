// Package config provides application profiles for msauth.
//
// A profile names a public client application: client id, redirect URI,
// scopes and tenant. Four profiles are built in (graph, azcli, teams and
// office). Additional profiles, or overrides of the built-in ones, are read
// from config.yaml in the configuration directory (default ~/.config/msauth,
// overridable with --config-path):
//
//	defaultProfile: graph
//	tenant: contoso.onmicrosoft.com
//	profiles:
//	  myapp:
//	    name: My SPA
//	    clientId: 11111111-2222-3333-4444-555555555555
//	    redirectUri: https://myapp.example/auth
//	    scopes: [api://myapp/.default, offline_access]
//
// Flag defaults can also come from the environment or a .env file
// (MSAUTH_PRT_COOKIE, MSAUTH_LOG_LEVEL, MSAUTH_TENANT).
package config
