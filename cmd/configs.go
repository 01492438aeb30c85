package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"sigs.k8s.io/yaml"

	"msauth/internal/cli"
	"msauth/internal/config"
)

func newConfigsCmd() *cobra.Command {
	var (
		output     string
		configPath string
	)

	cmd := &cobra.Command{
		Use:     "configs",
		Aliases: []string{"profiles"},
		Short:   "List the application profiles msauth can log in as",
		Long: `List the built-in application profiles and those defined in the
configuration file (marked with *). The default profile is highlighted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.LoadEnv(".env"); err != nil {
				return err
			}
			cfg, err := config.LoadConfig(configPath, nil)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			switch output {
			case "table":
				cli.RenderProfilesTable(out, cfg)
				return nil
			case "json":
				return cli.WriteJSON(out, cfg.Profiles)
			case "yaml":
				data, err := yaml.Marshal(cfg.Profiles)
				if err != nil {
					return fmt.Errorf("failed to marshal profiles: %w", err)
				}
				_, err = out.Write(data)
				return err
			default:
				return fmt.Errorf("unsupported output format %q (supported: table, json, yaml)", output)
			}
		},
	}

	defaultConfigPath, err := config.GetDefaultConfigPath()
	if err != nil {
		defaultConfigPath = ""
	}
	cmd.Flags().StringVarP(&output, "output", "o", "table", "Output format (table, json, yaml)")
	cmd.Flags().StringVar(&configPath, "config-path", defaultConfigPath, "Configuration directory")
	return cmd
}
