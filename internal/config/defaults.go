package config

import (
	"strings"

	"msauth/pkg/oauth"
)

// DefaultProfileName is the profile used when none is selected.
const DefaultProfileName = "graph"

// builtinProfiles are first-party Microsoft public clients whose redirect
// URIs a browser can reach without a local listener.
var builtinProfiles = map[string]AppConfig{
	"graph": {
		Name:        "Microsoft Graph Explorer",
		Description: "Delegated Microsoft Graph access through the Graph Explorer SPA",
		ClientID:    oauth.DefaultRefreshClientID,
		RedirectURI: "https://developer.microsoft.com/en-us/graph/graph-explorer",
		Scopes:      []string{"https://graph.microsoft.com/.default", "offline_access"},
	},
	"azcli": {
		Name:        "Microsoft Azure CLI",
		Description: "Azure Resource Manager access as the Azure CLI",
		ClientID:    "04b07795-8ddb-461a-bbee-02f9e1bf7b46",
		RedirectURI: "http://localhost",
		Scopes:      []string{"https://management.core.windows.net//.default", "offline_access"},
		OmitOrigin:  true,
	},
	"teams": {
		Name:        "Microsoft Teams",
		Description: "Microsoft Teams web client",
		ClientID:    "5e3ce6c0-2b1f-4285-8d4b-75ee78787346",
		RedirectURI: "https://teams.microsoft.com/go",
		Scopes:      []string{"https://api.spaces.skype.com/.default", "offline_access"},
	},
	"office": {
		Name:        "Microsoft Office",
		Description: "Microsoft 365 home page (OfficeHome)",
		ClientID:    "4765445b-32c6-49b0-83e6-1d93765276ca",
		RedirectURI: "https://www.office.com/landingv2",
		Scopes:      []string{"https://graph.microsoft.com/.default", "offline_access"},
	},
}

// GetDefaultConfig returns the built-in configuration.
func GetDefaultConfig() Config {
	profiles := make(map[string]AppConfig, len(builtinProfiles))
	for name, app := range builtinProfiles {
		app.Scopes = append([]string(nil), app.Scopes...)
		profiles[name] = app
	}
	return Config{
		DefaultProfile: DefaultProfileName,
		LogLevel:       "info",
		Profiles:       profiles,
	}
}

// IsBuiltin reports whether name is one of the built-in profiles.
func IsBuiltin(name string) bool {
	_, ok := builtinProfiles[strings.ToLower(name)]
	return ok
}
