package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// NewValidateCmd creates the validate command.
func NewValidateCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the configuration and print the resolved values",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, opts, nil)
			if err != nil {
				return fmt.Errorf("configuration error: %w", err)
			}

			resolved := *cfg
			if resolved.Reporter.Sinks.Elasticsearch.Password != "" {
				resolved.Reporter.Sinks.Elasticsearch.Password = "********"
			}

			out, err := yaml.Marshal(&resolved)
			if err != nil {
				return fmt.Errorf("rendering config: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "# configuration valid\n%s", out)
			return nil
		},
	}
}
