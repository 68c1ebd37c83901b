package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/dotcommander/blgate/internal/config"
)

const redacted = "********"

func newConfigCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective gateway settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if rt.cfgErr != nil {
				return rt.cfgErr
			}
			return printConfig(cmd.OutOrStdout(), rt.cfg.Gateway)
		},
	}
}

// printConfig writes cfg as beamlit.yaml with secrets masked.
func printConfig(w io.Writer, cfg config.Gateway) error {
	if cfg.APIKey != "" {
		cfg.APIKey = redacted
	}
	if cfg.JWT != "" {
		cfg.JWT = redacted
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	return nil
}
