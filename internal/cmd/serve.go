package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dotcommander/blgate/internal/agent"
	"github.com/dotcommander/blgate/internal/config"
	"github.com/dotcommander/blgate/internal/gateway"
	"github.com/dotcommander/blgate/internal/logging"
	"github.com/dotcommander/blgate/internal/mcp"
	"github.com/dotcommander/blgate/internal/present"
	"github.com/dotcommander/blgate/internal/registry"
)

func newServeCmd(rt *runtime) *cobra.Command {
	gw := &rt.cfg.Gateway
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Resolve the configured agent and serve it over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if rt.cfgErr != nil {
				return rt.cfgErr
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			cmd.SetContext(ctx)
			return runServe(cmd, *gw)
		},
	}

	desc := present.StdoutStyles().FlagDesc
	flags := cmd.Flags()
	flags.StringVarP(&gw.Name, "name", "n", gw.Name, desc.Render("Agent to serve"))
	flags.StringVar(&gw.Host, "host", gw.Host, desc.Render("Listen host"))
	flags.IntVarP(&gw.Port, "port", "p", gw.Port, desc.Render("Listen port"))
	flags.StringVar(&gw.Prompt, "prompt", gw.Prompt, desc.Render("System prompt: text, file:// path or URL"))
	flags.IntVar(&gw.MaxRetries, "max-retries", gw.MaxRetries, desc.Render("Startup retries before giving up"))
	flags.Var(newDurationFlag(gw.RetryBackoff, &gw.RetryBackoff), "retry-backoff", desc.Render("Wait between startup attempts"))
	flags.IntVar(&gw.StepBudget, "step-budget", gw.StepBudget, desc.Render("Maximum agent steps per request"))
	flags.Var(newDurationFlag(gw.MCPTimeout, &gw.MCPTimeout), "mcp-timeout", desc.Render("Timeout for each tool server call"))
	flags.SortFlags = false

	return cmd
}

func runServe(cmd *cobra.Command, cfg config.Gateway) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	ctx := cmd.Context()
	logger := logging.New("gateway")
	defer logger.Sync() //nolint:errcheck

	creds, err := registry.ResolveCredentials(ctx, cfg)
	if err != nil {
		return err
	}
	svc := agent.New(
		cfg,
		creds,
		registry.New(cfg, creds),
		mcp.New(cfg, creds.Headers(), logging.New("mcp")),
		agent.WithLogger(logging.New("agent")),
	)

	rt, err := gateway.Boot(ctx, svc.Resolve, gateway.BootOptions{
		MaxRetries: cfg.MaxRetries,
		Backoff:    cfg.RetryBackoff,
		Logger:     logger,
		OnState: func(s gateway.State) {
			logger.Debugw("agent state", "state", s.String())
		},
	})
	if err != nil {
		logger.Errorw("agent initialization failed", "agent", cfg.Name, "error", err)
		return err
	}
	logger.Infow("agent ready",
		"agent", rt.Agent,
		"model", rt.ModelName,
		"tools", len(rt.Tools),
		"voice", rt.IsVoice(),
	)

	return gateway.Serve(ctx, cfg.Addr(), gateway.NewHandler(rt, logger), logger)
}
