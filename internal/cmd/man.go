package cmd

import (
	"fmt"

	mcobra "github.com/muesli/mango-cobra"
	"github.com/muesli/roff"
	"github.com/spf13/cobra"
)

func newManCmd(root *cobra.Command) *cobra.Command {
	return &cobra.Command{
		Use:                   "man",
		Short:                 "Generate the blgate man page",
		SilenceUsage:          true,
		DisableFlagsInUseLine: true,
		Hidden:                true,
		Args:                  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			manPage, err := mcobra.NewManPage(1, root)
			if err != nil {
				return fmt.Errorf("build man page: %w", err)
			}
			manPage = manPage.WithSection("Environment", environmentSection)
			if _, err := fmt.Fprint(cmd.OutOrStdout(), manPage.Build(roff.NewDocument())); err != nil {
				return fmt.Errorf("write man page: %w", err)
			}
			return nil
		},
	}
}

const environmentSection = `STORE_URL, ADMIN_USERNAME, ADMIN_PASSWORD, IMAGE and RESOURCE_DIR configure publish.
BL_NAME, BL_WORKSPACE, BL_ENVIRONMENT, BL_BASE_URL, BL_RUN_URL, BL_API_KEY, BL_API_KEY_CMD and BL_JWT configure serve and tools.
LOG_LEVEL sets the log level (debug, info, warn, error).`
