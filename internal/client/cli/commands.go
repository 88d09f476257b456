package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dmitrijs2005/fieldsync/internal/client/gateway"
	"github.com/dmitrijs2005/fieldsync/internal/client/models"
	"github.com/dmitrijs2005/fieldsync/internal/client/services"
)

func newSaveCommand(r *runner) *cobra.Command {
	var (
		form, version, record string
		answers, images       []string
		videos                []string
		submit                bool
	)

	cmd := &cobra.Command{
		Use:   "save",
		Short: "Store a filled-out form",
		Long: `Store a filled-out form as a SAVED instance and print its uuid.

Answers are given as question=value. Repeating a question id creates the
next repeat-group iteration. Media answers reference files in the media
directory.

Example:
  fieldsync save --form 1021 --answer name=Well --image photo=rep1/front.jpg --submit`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			responses, err := buildResponses(answers, images, videos)
			if err != nil {
				return err
			}
			return r.run(cmd, func(ctx context.Context, a *App) error {
				inst := &models.SurveyInstance{FormID: form, FormVersion: version, RecordID: record, Submitter: a.device.DeviceID}
				if err := a.instances.Save(ctx, inst, responses); err != nil {
					return err
				}
				if submit {
					if err := a.instances.MarkSubmitRequested(ctx, inst.UUID); err != nil {
						return err
					}
				}
				return a.render(map[string]string{"uuid": inst.UUID}, func(w io.Writer) {
					fmt.Fprintln(w, inst.UUID)
				})
			})
		},
	}

	cmd.Flags().StringVar(&form, "form", "", "form id (required)")
	cmd.Flags().StringVar(&version, "form-version", "", "form version")
	cmd.Flags().StringVar(&record, "record", "", "owning datapoint id")
	cmd.Flags().StringArrayVar(&answers, "answer", nil, "question=value")
	cmd.Flags().StringArrayVar(&images, "image", nil, "question=media reference")
	cmd.Flags().StringArrayVar(&videos, "video", nil, "question=media reference")
	cmd.Flags().BoolVar(&submit, "submit", false, "request submission right away")
	_ = cmd.MarkFlagRequired("form")

	return cmd
}

// buildResponses turns question=value pairs into responses, numbering
// repeated questions as consecutive iterations.
func buildResponses(answers, images, videos []string) ([]*models.Response, error) {
	iterations := make(map[string]int)
	var out []*models.Response

	add := func(pairs []string, typ string) error {
		for _, p := range pairs {
			q, v, ok := strings.Cut(p, "=")
			if !ok || q == "" {
				return fmt.Errorf("invalid answer %q: want question=value", p)
			}
			out = append(out, &models.Response{QuestionID: q, Iteration: iterations[q], Answer: v, Type: typ})
			iterations[q]++
		}
		return nil
	}

	if err := add(answers, models.ResponseTypeValue); err != nil {
		return nil, err
	}
	if err := add(images, models.ResponseTypeImage); err != nil {
		return nil, err
	}
	if err := add(videos, models.ResponseTypeVideo); err != nil {
		return nil, err
	}
	return out, nil
}

func newSubmitCommand(r *runner) *cobra.Command {
	return &cobra.Command{
		Use:   "submit <uuid>",
		Short: "Request submission of a saved instance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.run(cmd, func(ctx context.Context, a *App) error {
				return a.instances.MarkSubmitRequested(ctx, args[0])
			})
		},
	}
}

func newExportCommand(r *runner) *cobra.Command {
	return &cobra.Command{
		Use:   "export",
		Short: "Build archives for instances awaiting submission",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.run(cmd, func(ctx context.Context, a *App) error {
				repaired, err := a.exporter.CheckSubmittedFiles(ctx)
				if err != nil {
					return err
				}
				exported, err := a.exporter.ExportPending(ctx)
				if err != nil {
					return err
				}
				return a.render(map[string]int{"repaired": repaired, "exported": exported}, func(w io.Writer) {
					fmt.Fprintf(w, "export: %d exported, %d repaired\n", exported, repaired)
				})
			})
		},
	}
}

func newPushCommand(r *runner) *cobra.Command {
	return &cobra.Command{
		Use:   "push",
		Short: "Deliver pending files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.run(cmd, func(ctx context.Context, a *App) error {
				release, err := a.hold(ctx)
				if err != nil {
					return err
				}
				defer release()

				if _, err := a.sync.Recover(ctx); err != nil {
					return err
				}
				report, err := a.sync.Push(ctx)
				v := newPushView(report)
				if rerr := a.render(v, func(w io.Writer) { writePush(w, v) }); rerr != nil {
					return rerr
				}
				return err
			})
		},
	}
}

func newPullCommand(r *runner) *cobra.Command {
	var group int64

	cmd := &cobra.Command{
		Use:   "pull",
		Short: "Merge remote datapoints",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.run(cmd, func(ctx context.Context, a *App) error {
				views := make([]pullView, 0)
				var firstErr error
				for _, g := range a.groups(group) {
					report, err := a.sync.Pull(ctx, g)
					if err != nil {
						report.Err = err
						if firstErr == nil {
							firstErr = err
						}
					}
					views = append(views, newPullView(report))
				}
				if err := a.render(views, func(w io.Writer) {
					for _, v := range views {
						writePull(w, v)
					}
				}); err != nil {
					return err
				}
				return firstErr
			})
		},
	}

	cmd.Flags().Int64Var(&group, "group", 0, "survey group id (default: every configured group)")
	return cmd
}

func newSyncCommand(r *runner) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Export, push and pull in one pass",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.run(cmd, func(ctx context.Context, a *App) error {
				release, err := a.hold(ctx)
				if err != nil {
					return err
				}
				defer release()

				if _, err := a.sync.Recover(ctx); err != nil {
					return err
				}
				report, err := a.sync.SyncAll(ctx)

				v := syncView{Pulls: make([]pullView, 0)}
				if report != nil {
					v.Repaired = report.Repaired
					v.Exported = report.Exported
					v.Push = newPushView(report.Push)
					for _, p := range report.Pulls {
						v.Pulls = append(v.Pulls, newPullView(p))
					}
				}
				if err != nil {
					v.Error = err.Error()
				}

				if rerr := a.render(v, func(w io.Writer) {
					fmt.Fprintf(w, "export: %d exported, %d repaired\n", v.Exported, v.Repaired)
					writePush(w, v.Push)
					for _, p := range v.Pulls {
						writePull(w, p)
					}
				}); rerr != nil {
					return rerr
				}
				return err
			})
		},
	}
}

func newWatchCommand(r *runner) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Run sync passes periodically until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.run(cmd, func(ctx context.Context, a *App) error {
				ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
				defer stop()

				release, err := a.hold(ctx)
				if err != nil {
					return err
				}
				defer release()

				if _, err := a.sync.Recover(ctx); err != nil {
					return err
				}
				a.logger.Info(ctx, "watching", "interval", a.config.SyncInterval.String(), "device", a.device.DeviceID)
				return a.scheduler.Run(ctx)
			})
		},
	}
}

func newStatusCommand(r *runner) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show ledger and instance counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.run(cmd, func(ctx context.Context, a *App) error {
				summary, err := a.instances.Status(ctx)
				if err != nil {
					return err
				}
				v := newStatusView(a.device.DeviceID, summary)
				return a.render(v, func(w io.Writer) {
					fmt.Fprintf(w, "device: %s\n", v.DeviceID)
					writeCounts(w, "instances", v.Instances)
					writeCounts(w, "transmissions", v.Transmissions)
				})
			})
		},
	}
}

func newDeviceCommand(r *runner) *cobra.Command {
	var reset bool

	cmd := &cobra.Command{
		Use:   "device",
		Short: "Show the stored device settings",
		Long: `Show the device id and the other settings kept in the local store,
including the lock of a running sync process.

--reset generates a new device id. It fails while a sync process holds
the lock.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.run(cmd, func(ctx context.Context, a *App) error {
				if reset {
					release, err := a.hold(ctx)
					if err != nil {
						return err
					}
					defer release()

					device, err := services.ResetDevice(ctx, a.settings, deviceFromConfig(a.config))
					if err != nil {
						return err
					}
					a.device = device
				}

				settings, err := services.DeviceSettings(ctx, a.settings)
				if err != nil {
					return err
				}
				return a.render(settings, func(w io.Writer) {
					keys := make([]string, 0, len(settings))
					for k := range settings {
						keys = append(keys, k)
					}
					sort.Strings(keys)
					for _, k := range keys {
						fmt.Fprintf(w, "%s\t%s\n", k, settings[k])
					}
				})
			})
		},
	}

	cmd.Flags().BoolVar(&reset, "reset", false, "generate a new device id")
	return cmd
}

func newResendCommand(r *runner) *cobra.Command {
	return &cobra.Command{
		Use:   "resend <uuid>",
		Short: "Queue every file of an instance again and move it back to SUBMITTED",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.run(cmd, func(ctx context.Context, a *App) error {
				return a.instances.Resend(ctx, args[0])
			})
		},
	}
}

func newUnsentCommand(r *runner) *cobra.Command {
	return &cobra.Command{
		Use:   "unsent <uuid>",
		Short: "Queue every file of an instance again, keeping its status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.run(cmd, func(ctx context.Context, a *App) error {
				return a.instances.MarkUnsent(ctx, args[0])
			})
		},
	}
}

func newRecordsCommand(r *runner) *cobra.Command {
	var (
		group int64
		prune bool
	)

	cmd := &cobra.Command{
		Use:   "records",
		Short: "List merged datapoints of a survey group",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.run(cmd, func(ctx context.Context, a *App) error {
				if prune {
					n, err := a.instances.PruneRecords(ctx, group)
					if err != nil {
						return err
					}
					a.logger.Info(ctx, "records pruned", "group", group, "count", n)
				}
				list, err := a.instances.Records(ctx, group)
				if err != nil {
					return err
				}
				views := newRecordViews(list)
				return a.render(views, func(w io.Writer) {
					for _, v := range views {
						fmt.Fprintf(w, "%s\t%s\t%.6f,%.6f\t%d\n", v.RecordID, v.Name, v.Latitude, v.Longitude, v.LastModified)
					}
				})
			})
		},
	}

	cmd.Flags().Int64Var(&group, "group", 0, "survey group id (required)")
	cmd.Flags().BoolVar(&prune, "prune", false, "drop records without instances first")
	_ = cmd.MarkFlagRequired("group")
	return cmd
}

func newFormsCommand(r *runner) *cobra.Command {
	var id string

	cmd := &cobra.Command{
		Use:   "forms",
		Short: "List the form catalogue",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.run(cmd, func(ctx context.Context, a *App) error {
				var headers []gateway.FormHeader
				if id != "" {
					h, err := a.metadata.FormHeader(ctx, id)
					if err != nil {
						return err
					}
					headers = append(headers, *h)
				} else {
					list, err := a.metadata.FormHeaders(ctx)
					if err != nil {
						return err
					}
					headers = list
				}
				return a.render(headers, func(w io.Writer) {
					for _, h := range headers {
						fmt.Fprintf(w, "%s\t%s\tv%s\tgroup %d\n", h.ID, h.Name, h.Version, h.GroupID)
					}
				})
			})
		},
	}

	cmd.Flags().StringVar(&id, "id", "", "show a single form")
	return cmd
}
