package cli

import (
	"context"
	"fmt"
	"slices"

	"github.com/spf13/cobra"
)

const (
	formatText = "text"
	formatJSON = "json"
)

// ValidFormats lists the accepted --format values.
var ValidFormats = []string{formatText, formatJSON}

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string
}

// NewRootCommand creates the fieldsync command tree. factory is called once
// per command invocation.
func NewRootCommand(factory AppFactory) *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:           "fieldsync",
		Short:         "Offline-first field survey sync client",
		Long:          "Stores survey instances locally and synchronises them with the field service backend and its object storage.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "debug logging")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", formatText, "output format (json|text)")

	r := &runner{opts: opts, factory: factory}
	cmd.AddCommand(
		newSaveCommand(r),
		newSubmitCommand(r),
		newExportCommand(r),
		newPushCommand(r),
		newPullCommand(r),
		newSyncCommand(r),
		newWatchCommand(r),
		newStatusCommand(r),
		newDeviceCommand(r),
		newResendCommand(r),
		newUnsentCommand(r),
		newRecordsCommand(r),
		newFormsCommand(r),
	)

	return cmd
}

type runner struct {
	opts    *RootOptions
	factory AppFactory
}

// run builds the App, hands it to fn and closes it afterwards.
func (r *runner) run(cmd *cobra.Command, fn func(ctx context.Context, a *App) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	app, err := r.factory(ctx, r.opts)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := app.Close(); cerr != nil && app.logger != nil {
			app.logger.Error(ctx, "error closing store", "error", cerr)
		}
	}()

	app.out = cmd.OutOrStdout()
	app.format = r.opts.Format
	return fn(ctx, app)
}
