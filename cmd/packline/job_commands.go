package main

import (
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"packline/internal/api"
	"packline/internal/ipc"
	"packline/internal/jobs"
)

func newJobCommand(ctx *commandContext) *cobra.Command {
	jobCmd := &cobra.Command{
		Use:   "job",
		Short: "Load, inspect and manage verification jobs",
	}

	jobCmd.AddCommand(newJobListCommand(ctx))
	jobCmd.AddCommand(newJobShowCommand(ctx))
	jobCmd.AddCommand(newJobLoadCommand(ctx))
	jobCmd.AddCommand(newJobActivateCommand(ctx))
	jobCmd.AddCommand(newJobCopyCommand(ctx))
	jobCmd.AddCommand(newJobDeleteCommand(ctx))
	jobCmd.AddCommand(newJobResetCommand(ctx))
	jobCmd.AddCommand(newJobDeleteItemsCommand(ctx))
	jobCmd.AddCommand(newJobLabelsCommand(ctx))

	return jobCmd
}

func newJobListCommand(ctx *commandContext) *cobra.Command {
	var statuses []string
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored jobs, newest first",
	}
	asJSON := addJSONFlag(cmd)
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		return ctx.withClient(func(client *ipc.Client) error {
			resp, err := client.JobList(ipc.JobListRequest{Statuses: statuses, Limit: limit})
			if err != nil {
				return err
			}
			if *asJSON {
				return writeJSON(cmd, resp.Jobs)
			}
			if len(resp.Jobs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No jobs stored")
				return nil
			}
			fmt.Fprint(cmd.OutOrStdout(), renderTable(
				[]string{"ID", "Name", "Status", "Per box", "Source", "Updated"},
				buildJobListRows(resp.Jobs),
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft, alignLeft},
			))
			return nil
		})
	}
	cmd.Flags().StringSliceVar(&statuses, "status", nil, "Filter by status (ACTIVE, PAUSED, LEGACY)")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of jobs to list")
	return cmd
}

func buildJobListRows(headers []ipc.JobHeader) [][]string {
	rows := make([][]string, 0, len(headers))
	for _, h := range headers {
		rows = append(rows, []string{
			h.ID,
			h.Name,
			h.Status,
			strconv.Itoa(h.Settings.ItemsPerBox),
			baseName(h.SourceFile),
			dash(h.UpdatedAt),
		})
	}
	return rows
}

func newJobShowCommand(ctx *commandContext) *cobra.Command {
	var pendingOnly bool

	cmd := &cobra.Command{
		Use:   "show [job-id]",
		Short: "Show a job's items (the active job when no id is given)",
		Args:  cobra.MaximumNArgs(1),
	}
	asJSON := addJSONFlag(cmd)
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		id := ""
		if len(args) == 1 {
			id = args[0]
		}
		return ctx.withClient(func(client *ipc.Client) error {
			resp, err := client.JobShow(id)
			if err != nil {
				return err
			}
			job := resp.Job
			if *asJSON {
				return writeJSON(cmd, job)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Job %s: %s [%s]\n", job.Header.ID, job.Header.Name, job.Header.Status)
			fmt.Fprintf(out, "Source: %s\n", dash(job.Header.SourceFile))
			fmt.Fprintf(out, "Verified: %d / %d\n", job.Verified, job.Total)
			rows := buildItemRows(job.Items, pendingOnly)
			if len(rows) == 0 {
				fmt.Fprintln(out, "No items to show")
				return nil
			}
			fmt.Fprint(out, renderTable(
				[]string{"#", "Code", "Status", "Box", "Label", "Pos", "Read at"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignLeft, alignRight, alignLeft},
			))
			return nil
		})
	}
	cmd.Flags().BoolVar(&pendingOnly, "pending", false, "Only list items that are not verified yet")
	return cmd
}

func buildItemRows(items []api.Item, pendingOnly bool) [][]string {
	rows := make([][]string, 0, len(items))
	for _, item := range items {
		verified := item.Status == string(jobs.ItemVerified)
		if pendingOnly && verified {
			continue
		}
		box, pos := "-", "-"
		if item.BoxNumber > 0 {
			box = strconv.Itoa(item.BoxNumber)
		}
		if item.PositionInBox > 0 {
			pos = strconv.Itoa(item.PositionInBox)
		}
		status := item.Status
		if item.Manual {
			status += " (manual)"
		}
		rows = append(rows, []string{
			strconv.Itoa(item.DisplayID),
			item.Display,
			status,
			box,
			dash(item.BoxLabel),
			pos,
			dash(item.ReadAt),
		})
	}
	return rows
}

func newJobLoadCommand(ctx *commandContext) *cobra.Command {
	var (
		name           string
		boxFile        string
		itemsPerBox    int
		dateRequired   bool
		productionDate string
		shortCode      bool
	)

	cmd := &cobra.Command{
		Use:   "load <product-list>",
		Short: "Load a product list as the new active job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := filepath.Abs(args[0])
			if err != nil {
				return fmt.Errorf("resolve product list path: %w", err)
			}
			req := ipc.JobLoadRequest{Path: path, Name: name}
			if boxFile != "" {
				if req.BoxFile, err = filepath.Abs(boxFile); err != nil {
					return fmt.Errorf("resolve box file path: %w", err)
				}
			}
			flags := cmd.Flags()
			if flags.Changed("items-per-box") {
				req.ItemsPerBox = &itemsPerBox
			}
			if flags.Changed("date-required") {
				req.DateRequired = &dateRequired
			}
			if flags.Changed("production-date") {
				req.ProductionDate = &productionDate
			}
			if flags.Changed("short-code") {
				req.ForceShortCode = &shortCode
			}
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.JobLoad(req)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Loaded job %s (%s): %d items\n", resp.Job.ID, resp.Job.Name, resp.Total)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Job name (defaults to the file name and a timestamp)")
	cmd.Flags().StringVar(&boxFile, "box-file", "", "Box label list to assign")
	cmd.Flags().IntVar(&itemsPerBox, "items-per-box", 0, "Items per box (0 disables box tracking)")
	cmd.Flags().BoolVar(&dateRequired, "date-required", false, "Require a production date before scans are accepted")
	cmd.Flags().StringVar(&productionDate, "production-date", "", "Production date (dd.mm.yyyy)")
	cmd.Flags().BoolVar(&shortCode, "short-code", false, "Match on the short form of GS1 codes")
	return cmd
}

func newJobActivateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "activate <job-id>",
		Short: "Continue a stored job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.JobActivate(args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Activated job %s (%s): %d / %d verified\n",
					resp.Job.ID, resp.Job.Name, resp.Verified, resp.Total)
				return nil
			})
		},
	}
}

func newJobCopyCommand(ctx *commandContext) *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "copy <job-id>",
		Short: "Copy a job into a new paused job with every item pending",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.JobCopy(args[0], name)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Copied job %s to %s\n", args[0], resp.ID)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Name of the copy")
	return cmd
}

func newJobDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <job-id>",
		Short: "Delete a stored job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				if _, err := client.JobDelete(args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted job %s\n", args[0])
				return nil
			})
		},
	}
}

func newJobResetCommand(ctx *commandContext) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "reset [item-id...]",
		Short: "Return verified items of the active job to pending",
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseDisplayIDs(args)
			if err != nil {
				return err
			}
			if !all && len(ids) == 0 {
				return fmt.Errorf("specify item ids or --all")
			}
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Reset(ids, all)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Reset %d items\n", resp.Count)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "Reset every verified item")
	return cmd
}

func newJobDeleteItemsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete-items <item-id...>",
		Short: "Remove items from the active job",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseDisplayIDs(args)
			if err != nil {
				return err
			}
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.DeleteItems(ids)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d items\n", resp.Count)
				return nil
			})
		},
	}
}

func newJobLabelsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "labels <box-label-list>",
		Short: "Assign a box label list to the active job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := filepath.Abs(args[0])
			if err != nil {
				return fmt.Errorf("resolve box label path: %w", err)
			}
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.BoxLabels(path)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Loaded %d box labels\n", resp.Labels)
				return nil
			})
		},
	}
}

func baseName(path string) string {
	if path == "" {
		return "-"
	}
	return filepath.Base(path)
}
