package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"msauth/internal/cli"
	"msauth/pkg/oauth"
)

// unverifiedBanner is printed with every decoded token.
const unverifiedBanner = "Signature NOT verified: these claims are what the token says about itself."

type decodedOutput struct {
	Header   map[string]interface{} `json:"header"`
	Payload  map[string]interface{} `json:"payload"`
	Verified bool                   `json:"verified"`
}

func newDecodeCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "decode <jwt|->",
		Short: "Decode a JWT and print its header and claims without verifying it",
		Long: `Decode a JSON Web Token and print its header and claims.

The signature is NOT verified. Use the output for inspection only, never as
proof of identity. Pass '-' to read the token from standard input.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw := args[0]
			if raw == "-" {
				data, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("failed to read token from stdin: %w", err)
				}
				raw = string(data)
			}

			decoded, err := oauth.DecodeJWT(strings.TrimSpace(raw))
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.ErrOrStderr(), cli.FormatWarning(unverifiedBanner))

			out := cmd.OutOrStdout()
			switch output {
			case "table":
				cli.RenderClaimsTable(out, decoded.Header)
				cli.RenderClaimsTable(out, decoded.Payload)
				return nil
			case "json":
				return cli.WriteJSON(out, decodedOutput{
					Header:   decoded.Header,
					Payload:  decoded.Payload,
					Verified: false,
				})
			default:
				return fmt.Errorf("unsupported output format %q (supported: table, json)", output)
			}
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "table", "Output format (table, json)")
	return cmd
}
