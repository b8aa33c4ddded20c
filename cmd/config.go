package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sells-group/outreach-cli/internal/config"
)

var (
	configPath  string
	configForce bool
	configJSON  bool
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Create or inspect the configuration file",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a config.yaml template with placeholder credentials",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := config.WriteTemplate(configPath, configForce); err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "Wrote %s. Fill in email.from_email and email.from_password before sending.\n", configPath)
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration (secrets omitted)",
	RunE: func(cmd *cobra.Command, _ []string) error {
		status := cfg.Status()
		if configJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(status)
		}
		fmt.Fprint(os.Stdout, status.String())
		return nil
	},
}

func init() {
	configInitCmd.Flags().StringVar(&configPath, "path", "config.yaml", "where to write the template")
	configInitCmd.Flags().BoolVar(&configForce, "force", false, "overwrite an existing file")
	configShowCmd.Flags().BoolVar(&configJSON, "json", false, "print as JSON")
	configCmd.AddCommand(configInitCmd, configShowCmd)
	rootCmd.AddCommand(configCmd)
}
