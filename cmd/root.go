package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"msauth/internal/cli"
)

// Exit codes for CLI commands.
const (
	// ExitCodeSuccess indicates successful execution.
	ExitCodeSuccess = 0
	// ExitCodeError indicates that no tokens could be acquired or the command failed.
	ExitCodeError = 1
)

// appVersion is injected by main at build time.
var appVersion = "dev"

// rootCmd represents the base command for the msauth application.
var rootCmd = newRootCmd()

// newRootCmd creates the root command. Running it without a subcommand
// performs the interactive login.
func newRootCmd() *cobra.Command {
	flags := &loginFlags{}

	cmd := &cobra.Command{
		Use:   "msauth [profile]",
		Short: "Interactive Microsoft login that extracts OAuth tokens",
		Long: `msauth signs in to Microsoft Entra ID in a controlled browser using the
authorization code flow with PKCE, as one of several well-known first-party
public clients (see: msauth configs), and prints the resulting tokens.

Optionally it saves the tokens for roadtools or into a Kubernetes Secret,
and with --refresh keeps running, refreshing the access token before it
expires until interrupted.`,
		Example: `  msauth
  msauth teams --headless --prt-cookie -
  msauth graph --scope Mail.Read --save roadtools
  msauth azcli --refresh --save kubernetes --status-addr :9090`,
		Args:    cobra.MaximumNArgs(1),
		Version: appVersion,
		// SilenceUsage prevents Cobra from printing the usage message on errors that are handled by the application.
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			profile := ""
			if len(args) == 1 {
				profile = args[0]
			}
			return runLogin(cmd, profile, flags)
		},
	}

	cmd.SetVersionTemplate(`{{printf "msauth version %s\n" .Version}}`)
	flags.register(cmd)

	cmd.AddCommand(newVersionCmd())
	cmd.AddCommand(newConfigsCmd())
	cmd.AddCommand(newDecodeCmd())
	return cmd
}

// SetVersion sets the version for the root command.
// This function is typically called from the main package to inject the application version at build time.
func SetVersion(v string) {
	appVersion = v
	rootCmd.Version = v
}

// GetVersion returns the current version of the application.
func GetVersion() string {
	return appVersion
}

// Execute is the main entry point for the CLI application. It is called by
// main.main() and exits the process with the command's exit code.
func Execute() {
	os.Exit(execute(rootCmd, os.Args[1:]))
}

func execute(cmd *cobra.Command, args []string) int {
	cmd.SetArgs(args)
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), cli.FormatError(err))
		return getExitCode(err)
	}
	return ExitCodeSuccess
}

// getExitCode maps an error to the process exit code. Every failure to
// acquire tokens is a plain failure.
func getExitCode(err error) int {
	if err == nil {
		return ExitCodeSuccess
	}
	return ExitCodeError
}
