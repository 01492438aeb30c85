package config

import (
	"msauth/pkg/oauth"
)

// Config is the top-level configuration structure for msauth.
type Config struct {
	// DefaultProfile is used when no profile argument is given (default: graph).
	DefaultProfile string `yaml:"defaultProfile,omitempty"`

	// LogLevel is the default log level (debug, info, warn, error).
	LogLevel string `yaml:"logLevel,omitempty"`

	// Tenant overrides the tenant of every profile that does not set one.
	Tenant string `yaml:"tenant,omitempty"`

	// Profiles are merged over the built-in profiles. Keys are case-insensitive.
	Profiles map[string]AppConfig `yaml:"profiles,omitempty"`
}

// AppConfig describes a public client application to authenticate as.
type AppConfig struct {
	Name        string   `yaml:"name" json:"name"`
	Description string   `yaml:"description,omitempty" json:"description,omitempty"`
	ClientID    string   `yaml:"clientId" json:"clientId"`
	RedirectURI string   `yaml:"redirectUri" json:"redirectUri"`
	Scopes      []string `yaml:"scopes,omitempty" json:"scopes,omitempty"`
	Tenant      string   `yaml:"tenant,omitempty" json:"tenant,omitempty"`
	Origin      string   `yaml:"origin,omitempty" json:"origin,omitempty"`
	OmitOrigin  bool     `yaml:"omitOrigin,omitempty" json:"omitOrigin,omitempty"`
}

// Client returns the OAuth client configuration of the application.
func (a AppConfig) Client() oauth.ClientConfig {
	return oauth.ClientConfig{
		ClientID:    a.ClientID,
		RedirectURI: a.RedirectURI,
		Scopes:      append([]string(nil), a.Scopes...),
		Tenant:      a.Tenant,
		Origin:      a.Origin,
		OmitOrigin:  a.OmitOrigin,
	}
}

// Validate checks the fields required to start a login.
func (a AppConfig) Validate() error {
	var errs ValidationErrors
	errs.requireField("clientId", a.ClientID)
	if errs.requireField("redirectUri", a.RedirectURI) {
		errs.requireAbsoluteURL("redirectUri", a.RedirectURI)
	}
	return errs.orNil()
}
