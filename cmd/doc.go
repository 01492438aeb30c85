// Package cmd implements the msauth command line: the interactive login on
// the root command and the configs, decode and version subcommands.
package cmd
