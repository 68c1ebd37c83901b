package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dotcommander/blgate/internal/config"
	"github.com/dotcommander/blgate/internal/logging"
	"github.com/dotcommander/blgate/internal/present"
	"github.com/dotcommander/blgate/internal/store"
)

type publishOptions struct {
	dir      string
	noCreate bool
	watch    bool
}

func newPublishCmd(rt *runtime) *cobra.Command {
	var opts publishOptions
	cmd := &cobra.Command{
		Use:   "publish <type> <key>",
		Short: "Publish a resource manifest to the store",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if rt.cfgErr != nil {
				return rt.cfgErr
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			pub := newPublisher(rt.cfg.Publisher, opts)
			if opts.watch {
				return pub.Watch(ctx, args[0], args[1])
			}
			if err := pub.Publish(ctx, args[0], args[1]); err != nil {
				return err
			}
			present.PrintConfirmation(cmd.ErrOrStderr(), "published", fmt.Sprintf("%s %s", args[0], args[1]))
			return nil
		},
	}

	desc := present.StdoutStyles().FlagDesc
	flags := cmd.Flags()
	flags.StringVarP(&opts.dir, "dir", "d", "", desc.Render("Resource directory (default $RESOURCE_DIR or .)"))
	flags.BoolVar(&opts.noCreate, "no-create", false, desc.Render("Fail instead of creating a missing collection"))
	flags.BoolVarP(&opts.watch, "watch", "w", false, desc.Render("Publish again whenever the manifest changes"))
	flags.SortFlags = false

	return cmd
}

func newPublisher(cfg config.Publisher, opts publishOptions) *store.Publisher {
	if opts.dir != "" {
		cfg.ResourceDir = opts.dir
	}
	policy := store.FallbackCreate
	if opts.noCreate {
		policy = store.FallbackNone
	}
	return store.NewPublisher(
		store.NewClient(cfg),
		cfg.ResourceDir,
		cfg.Image,
		store.WithFallback(policy),
		store.WithLogger(logging.New("publisher")),
	)
}
