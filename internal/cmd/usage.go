package cmd

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
	flag "github.com/spf13/pflag"

	"github.com/dotcommander/blgate/internal/present"
)

func useLine(cmd *cobra.Command) string {
	styles := present.StdoutStyles()
	appName := cmd.Root().Name()
	if present.StdoutRenderer().ColorProfile() == termenv.TrueColor {
		appName = present.MakeGradientText(styles.AppName, appName)
	}

	args := "[COMMAND]"
	if cmd.HasParent() {
		args = cmd.Use
		if cmd.HasAvailableFlags() {
			args += " [OPTIONS]"
		}
		if cmd.Parent() != cmd.Root() {
			args = cmd.Parent().Name() + " " + args
		}
	}
	return fmt.Sprintf("%s %s", appName, styles.CliArgs.Render(args))
}

func usageFunc(cmd *cobra.Command) error {
	writeUsage(cmd.OutOrStdout(), cmd)
	return nil
}

func writeUsage(w io.Writer, cmd *cobra.Command) {
	styles := present.StdoutStyles()
	fmt.Fprintf(w, "Usage:\n  %s\n", useLine(cmd))

	if cmd.HasAvailableSubCommands() {
		fmt.Fprintln(w, "\nCommands:")
		for _, sub := range cmd.Commands() {
			if !sub.IsAvailableCommand() {
				continue
			}
			fmt.Fprintf(w, "  %-20s %s\n", sub.Name(), styles.FlagDesc.Render(sub.Short))
		}
	}

	if cmd.HasAvailableFlags() {
		fmt.Fprintln(w, "\nOptions:")
		cmd.Flags().VisitAll(func(f *flag.Flag) {
			if f.Hidden {
				return
			}
			if f.Shorthand == "" {
				fmt.Fprintf(
					w,
					"  %-44s %s\n",
					styles.Flag.Render("--"+f.Name),
					styles.FlagDesc.Render(f.Usage),
				)
			} else {
				fmt.Fprintf(
					w,
					"  %s%s %-40s %s\n",
					styles.Flag.Render("-"+f.Shorthand),
					styles.FlagComma,
					styles.Flag.Render("--"+f.Name),
					styles.FlagDesc.Render(f.Usage),
				)
			}
		})
	}

	if cmd.HasExample() {
		if code, ok := examples[cmd.Example]; ok {
			fmt.Fprintf(
				w,
				"\nExample:\n  %s\n  %s\n",
				styles.Comment.Render("# "+cmd.Example),
				cheapHighlighting(styles, code),
			)
		} else {
			fmt.Fprintf(w, "\nExample:\n  %s\n", cmd.Example)
		}
	}
}
