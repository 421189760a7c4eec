package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/goliatone/go-choices/pkg/catalog"
	"github.com/spf13/cobra"
)

func newWatchCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "watch <dir>",
		Short: "Report option sources that change under a catalog directory",
		Long: `watch follows a catalog directory laid out as <namespace>/<name>.json|yaml
and prints one line per changed source with its record count, or the error
that kept it from normalizing. It runs until interrupted.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, sync, err := flags.normalizer()
			if err != nil {
				return err
			}
			defer sync()

			out := cmd.OutOrStdout()
			store := catalog.NewFileStore(args[0], catalog.WithWatchErrorHandler(func(err error) {
				fmt.Fprintf(cmd.ErrOrStderr(), "watch: %v\n", err)
			}))
			resolver := catalog.Resolver{Store: store, Normalizer: n}

			ctx, stop := signal.NotifyContext(commandContext(cmd), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return store.Watch(ctx, func(ref catalog.Ref) {
				records, meta, err := resolver.Records(ctx, ref)
				if err != nil {
					fmt.Fprintf(out, "%s\terror\t%v\n", ref, err)
					return
				}
				fmt.Fprintf(out, "%s\t%d records\t%s\n", ref, len(records), meta.ETag)
			})
		},
	}
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
