package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/multierr"

	"github.com/benz9527/xtree/internal/app"
)

const stopTimeout = 10 * time.Second

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "xtree",
		Short: "xtree red-black tree script runner",
		// SilenceUsage is an option to silence usage when an error occurs.
		SilenceUsage: true,
	}
	root.AddCommand(newRunCmd(), newVersionCmd())
	return root
}

func newRunCmd() *cobra.Command {
	params := app.Params{}
	cmd := &cobra.Command{
		Use:   "run [flags] script...",
		Short: "Run the tree operation scripts, each against its own tree",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			params.Scripts = args
			params.Out = cmd.OutOrStdout()
			return run(cmd.Context(), params)
		},
	}
	cmd.Flags().StringVar(&params.ConfigPath, "config", "", "config file (default .xtree.yaml in CWD or $HOME)")
	cmd.Flags().BoolVar(&params.Hold, "hold", false, "keep running after the scripts until SIGINT or SIGTERM")
	return cmd
}

func run(ctx context.Context, params app.Params) error {
	if ctx == nil {
		ctx = context.Background()
	}
	var batch *app.Batch
	fxApp := fx.New(app.Module(params), fx.Populate(&batch))
	if err := fxApp.Err(); err != nil {
		return err
	}

	startCtx, cancel := context.WithTimeout(ctx, fxApp.StartTimeout())
	defer cancel()
	if err := fxApp.Start(startCtx); err != nil {
		return err
	}

	err := batch.Run(ctx)
	if params.Hold {
		select {
		case <-fxApp.Done():
		case <-ctx.Done():
		}
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), stopTimeout)
	defer stopCancel()
	return multierr.Append(err, fxApp.Stop(stopCtx))
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), "xtree", app.Version)
			return err
		},
	}
}
