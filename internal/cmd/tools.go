package cmd

import (
	"context"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"

	mmcp "github.com/mark3labs/mcp-go/mcp"
	"github.com/spf13/cobra"

	"github.com/dotcommander/blgate/internal/config"
	"github.com/dotcommander/blgate/internal/errs"
	"github.com/dotcommander/blgate/internal/logging"
	imcp "github.com/dotcommander/blgate/internal/mcp"
	"github.com/dotcommander/blgate/internal/present"
	"github.com/dotcommander/blgate/internal/registry"
)

func newToolsCmd(rt *runtime) *cobra.Command {
	gw := &rt.cfg.Gateway
	cmd := &cobra.Command{
		Use:   "tools",
		Short: "List the tools bound to the configured agent",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if rt.cfgErr != nil {
				return rt.cfgErr
			}
			if err := gw.Validate(); err != nil {
				return err
			}
			return listTools(cmd.Context(), cmd.OutOrStdout(), *gw)
		},
	}
	cmd.Flags().StringVarP(&gw.Name, "name", "n", gw.Name, present.StdoutStyles().FlagDesc.Render("Agent whose tools to list"))
	return cmd
}

func listTools(ctx context.Context, w io.Writer, cfg config.Gateway) error {
	creds, err := registry.ResolveCredentials(ctx, cfg)
	if err != nil {
		return err
	}
	def, err := registry.New(cfg, creds).GetAgent(ctx, cfg.Name)
	if err != nil {
		return err
	}

	svc := imcp.New(cfg, creds.Headers(), logging.New("mcp"))
	byFunction, err := svc.Tools(ctx, def.Spec.Functions)
	if err != nil {
		return errs.Error{Kind: errs.ErrRequest, Err: err, Reason: "Could not list agent tools."}
	}
	printTools(w, byFunction, def.Spec.AgentChain)
	return nil
}

func printTools(w io.Writer, byFunction map[string][]mmcp.Tool, chain []registry.ChainLink) {
	prefix := present.StdoutStyles().Comment
	names := slices.Sorted(maps.Keys(byFunction))
	for _, fn := range names {
		tools := byFunction[fn]
		slices.SortFunc(tools, func(a, b mmcp.Tool) int { return strings.Compare(a.Name, b.Name) })
		for _, tool := range tools {
			fmt.Fprint(w, prefix.Render(fn+" > "))
			fmt.Fprintln(w, tool.Name)
		}
	}
	for _, link := range chain {
		if !link.IsEnabled() {
			continue
		}
		fmt.Fprint(w, prefix.Render("agent > "))
		fmt.Fprintln(w, link.Name)
	}
}
