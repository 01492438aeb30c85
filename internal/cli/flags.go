package cli

import (
	"github.com/spf13/cobra"
)

// OutputFlags holds the output flag values shared by the commands that print
// tokens or claims.
type OutputFlags struct {
	// Output specifies the desired output format (json, table, template)
	Output string
	// Template is the text/template used with --output template
	Template string
	// Quiet suppresses progress indicators and non-essential output
	Quiet bool
}

// RegisterOutputFlags registers the output flags on cmd.
//
// The registered flags are:
//   - --output/-o: Output format (json, table, template), default: defaultFormat
//   - --template: Go template for --output template (sprig functions available)
//   - --quiet/-q: Suppress progress indicators
func RegisterOutputFlags(cmd *cobra.Command, flags *OutputFlags, defaultFormat OutputFormat) {
	cmd.Flags().StringVarP(&flags.Output, "output", "o", string(defaultFormat), "Output format (json, table, template)")
	cmd.Flags().StringVar(&flags.Template, "template", "", "Go template for --output template, e.g. '{{ .TokenSet.AccessToken }}' (sprig functions available)")
	cmd.Flags().BoolVarP(&flags.Quiet, "quiet", "q", false, "Suppress progress indicators")
}

// Validate checks the flag combination.
func (f *OutputFlags) Validate() error {
	return ValidateOutputFormat(f.Output)
}
