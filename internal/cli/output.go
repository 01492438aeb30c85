package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/template"
	"time"

	"github.com/Masterminds/sprig/v3"

	"msauth/internal/token"
	"msauth/pkg/oauth"
)

// OutputFormat selects how acquired tokens are printed.
type OutputFormat string

const (
	// OutputFormatJSON prints the token endpoint response as indented JSON.
	OutputFormatJSON OutputFormat = "json"
	// OutputFormatTable prints a summary table of the token and its claims.
	OutputFormatTable OutputFormat = "table"
	// OutputFormatTemplate renders a user supplied text/template.
	OutputFormatTemplate OutputFormat = "template"
)

// ValidateOutputFormat checks that format is one of the supported formats.
func ValidateOutputFormat(format string) error {
	switch OutputFormat(format) {
	case OutputFormatJSON, OutputFormatTable, OutputFormatTemplate:
		return nil
	default:
		return fmt.Errorf("unsupported output format %q (supported: json, table, template)", format)
	}
}

// TokenView is what the printers and templates see of a login result.
type TokenView struct {
	Profile string

	// TokenSet is the raw token endpoint response.
	TokenSet *oauth.TokenSet

	Scope     string
	Scopes    []string
	ExpiresOn time.Time
	ExpiresIn int64
	TenantID  string
	UPN       string
	Audience  []string

	// Claims are the unverified access token claims, nil for opaque tokens.
	Claims map[string]interface{}
}

// NewTokenView collects the printable state of a lifecycle.
func NewTokenView(profile string, set *oauth.TokenSet, lc *token.Lifecycle) TokenView {
	snapshot := lc.Snapshot()
	view := TokenView{
		Profile:   profile,
		TokenSet:  set,
		Scope:     snapshot.Scope,
		Scopes:    strings.Fields(snapshot.Scope),
		ExpiresOn: snapshot.ExpiresOn,
		ExpiresIn: snapshot.ExpiresIn,
		TenantID:  snapshot.TenantID,
		UPN:       snapshot.UPN,
		Audience:  snapshot.Audience,
	}
	if claims := lc.Claims(); claims != nil {
		view.Claims = claims.Payload
	}
	return view
}

// Printer writes token views in the selected format.
type Printer struct {
	out      io.Writer
	format   OutputFormat
	template *template.Template
}

// NewPrinter creates a printer. tmpl is required for the template format and
// may use the sprig function library.
func NewPrinter(out io.Writer, format, tmpl string) (*Printer, error) {
	if err := ValidateOutputFormat(format); err != nil {
		return nil, err
	}

	p := &Printer{out: out, format: OutputFormat(format)}
	if p.format == OutputFormatTemplate {
		if tmpl == "" {
			return nil, fmt.Errorf("--template is required with --output template")
		}
		parsed, err := template.New("output").Funcs(sprig.TxtFuncMap()).Parse(tmpl)
		if err != nil {
			return nil, fmt.Errorf("invalid output template: %w", err)
		}
		p.template = parsed
	}
	return p, nil
}

// Print writes view.
func (p *Printer) Print(view TokenView) error {
	switch p.format {
	case OutputFormatTable:
		RenderTokenTable(p.out, view)
		return nil
	case OutputFormatTemplate:
		if err := p.template.Execute(p.out, view); err != nil {
			return fmt.Errorf("failed to render output template: %w", err)
		}
		return nil
	default:
		return WriteJSON(p.out, view.TokenSet)
	}
}

// WriteJSON writes v as JSON indented with four spaces.
func WriteJSON(out io.Writer, v interface{}) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "    ")
	return enc.Encode(v)
}
