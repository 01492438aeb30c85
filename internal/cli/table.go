package cli

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"msauth/internal/config"
	pkgstrings "msauth/pkg/strings"
)

const (
	// maxCellWidth truncates long cell values such as tokens.
	maxCellWidth = 100

	descriptionMaxLen = 60
)

// timeClaims are rendered with their UTC time next to the raw value.
var timeClaims = map[string]bool{"exp": true, "iat": true, "nbf": true, "auth_time": true}

// newTable creates a new table with standard styling.
func newTable(out io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.SetStyle(table.StyleRounded)
	return t
}

func header(names ...string) table.Row {
	row := make(table.Row, len(names))
	for i, n := range names {
		row[i] = text.FgHiCyan.Sprint(n)
	}
	return row
}

// RenderTokenTable prints a summary of an acquired token.
func RenderTokenTable(out io.Writer, view TokenView) {
	t := newTable(out)
	t.AppendHeader(header("FIELD", "VALUE"))

	refresh := text.FgYellow.Sprint("Not available")
	if view.TokenSet != nil && view.TokenSet.RefreshToken != "" {
		refresh = text.FgGreen.Sprint("Available")
	}

	t.AppendRows([]table.Row{
		{"Profile", view.Profile},
		{"Tenant", view.TenantID},
		{"UPN", view.UPN},
		{"Audience", strings.Join(view.Audience, ", ")},
		{"Scope", strings.Join(view.Scopes, "\n")},
		{"Expires", fmt.Sprintf("%s (in %s)", view.ExpiresOn.UTC().Format(time.RFC3339), time.Duration(view.ExpiresIn)*time.Second)},
		{"Refresh token", refresh},
	})
	t.Render()
}

// RenderClaimsTable prints JWT claims sorted by name.
func RenderClaimsTable(out io.Writer, claims map[string]interface{}) {
	t := newTable(out)
	t.AppendHeader(header("CLAIM", "VALUE"))

	keys := make([]string, 0, len(claims))
	for k := range claims {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		t.AppendRow(table.Row{text.FgHiCyan.Sprint(k), formatClaim(k, claims[k])})
	}
	t.Render()
}

func formatClaim(name string, value interface{}) string {
	switch v := value.(type) {
	case float64:
		if timeClaims[name] {
			return fmt.Sprintf("%d (%s)", int64(v), time.Unix(int64(v), 0).UTC().Format(time.RFC3339))
		}
		return fmt.Sprintf("%v", v)
	case []interface{}:
		parts := make([]string, len(v))
		for i, item := range v {
			parts[i] = fmt.Sprintf("%v", item)
		}
		return strings.Join(parts, "\n")
	default:
		return pkgstrings.Truncate(fmt.Sprintf("%v", v), maxCellWidth)
	}
}

// RenderProfilesTable lists application profiles, marking the default one.
func RenderProfilesTable(out io.Writer, cfg config.Config) {
	t := newTable(out)
	t.AppendHeader(header("NAME", "CLIENT ID", "REDIRECT URI", "SCOPES", "DESCRIPTION"))

	for _, name := range cfg.Names() {
		app := cfg.Profiles[name]
		display := name
		if strings.EqualFold(name, cfg.DefaultProfile) {
			display = text.FgGreen.Sprint(name + " (default)")
		}
		if !config.IsBuiltin(name) {
			display += text.FgHiBlack.Sprint(" *")
		}
		t.AppendRow(table.Row{display, app.ClientID, app.RedirectURI, strings.Join(app.Scopes, "\n"), pkgstrings.TruncateDescription(app.Description, descriptionMaxLen)})
	}
	t.Render()
}
