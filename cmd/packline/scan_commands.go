package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"packline/internal/devices"
	"packline/internal/ipc"
	"packline/internal/report"
)

func newScanCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan <code>",
		Short: "Submit a code as if it came from the scanner",
		Args:  cobra.ExactArgs(1),
	}
	asJSON := addJSONFlag(cmd)
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		return ctx.withClient(func(client *ipc.Client) error {
			resp, err := client.Scan(args[0])
			if err != nil {
				return err
			}
			if *asJSON {
				return writeJSON(cmd, resp.Result)
			}
			out := cmd.OutOrStdout()
			writeScanResult(out, resp.Result, shouldColorize(out))
			return nil
		})
	}
	return cmd
}

func newVerifyCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify <item-id>",
		Short: "Mark an item verified by hand",
		Args:  cobra.ExactArgs(1),
	}
	asJSON := addJSONFlag(cmd)
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		id, err := strconv.Atoi(args[0])
		if err != nil || id <= 0 {
			return fmt.Errorf("invalid item id %q", args[0])
		}
		return ctx.withClient(func(client *ipc.Client) error {
			resp, err := client.Verify(id)
			if err != nil {
				return err
			}
			if *asJSON {
				return writeJSON(cmd, resp.Result)
			}
			out := cmd.OutOrStdout()
			writeScanResult(out, resp.Result, shouldColorize(out))
			return nil
		})
	}
	return cmd
}

// writeScanResult prints a one-line verdict, followed by box and
// persistence notes when present.
func writeScanResult(out io.Writer, res ipc.ScanResult, colorize bool) {
	label := strings.ToUpper(strings.ReplaceAll(res.Outcome, "_", " "))
	if res.Reason != "" {
		label += " (" + strings.ReplaceAll(res.Reason, "_", " ") + ")"
	}
	detail := res.Code.Display
	if detail == "" {
		detail = res.Code.KeepSeparator
	}
	if res.Item != nil {
		detail = fmt.Sprintf("#%d %s", res.Item.DisplayID, res.Item.Display)
		if res.Item.BoxNumber > 0 {
			detail += fmt.Sprintf(" box %d/%d", res.Item.BoxNumber, res.Item.PositionInBox)
		}
	}
	fmt.Fprintln(out, renderStatusLine(label, outcomeKind(res.Outcome), detail, colorize))
	if res.BoxPrint != nil {
		fmt.Fprintln(out, renderStatusLine("Box full", statusInfo,
			fmt.Sprintf("box %d label %s", res.BoxPrint.BoxNumber, dash(res.BoxPrint.Label)), colorize))
	}
	if res.Rejected {
		fmt.Fprintln(out, renderStatusLine("Reject", statusWarn, "pulse sent", colorize))
	}
	if res.PersistError != "" {
		fmt.Fprintln(out, renderStatusLine("Not saved", statusError, res.PersistError, colorize))
	}
}

func newLogCommand(ctx *commandContext) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "log",
		Short: "Show the most recent scan report lines",
	}
	asJSON := addJSONFlag(cmd)
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		return ctx.withClient(func(client *ipc.Client) error {
			resp, err := client.ScanLog(limit)
			if err != nil {
				return err
			}
			if *asJSON {
				return writeJSON(cmd, resp.Entries)
			}
			if len(resp.Entries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No scans recorded")
				return nil
			}
			rows := make([][]string, 0, len(resp.Entries))
			for _, e := range resp.Entries {
				id, box := "-", "-"
				if e.DisplayID > 0 {
					id = strconv.Itoa(e.DisplayID)
				}
				if e.Box > 0 {
					box = strconv.Itoa(e.Box)
				}
				rows = append(rows, []string{e.At, e.Kind, id, box, e.Code, dash(e.Message)})
			}
			fmt.Fprint(cmd.OutOrStdout(), renderTable(
				[]string{"Time", "Result", "#", "Box", "Code", "Message"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignLeft, alignLeft},
			))
			return nil
		})
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "Number of lines to show")
	return cmd
}

func newExportCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "export [finished|finished_single|remaining|xlsx|all]",
		Short: "Write exports of the active job",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind := string(report.KindAll)
			if len(args) == 1 {
				parsed, err := report.ParseKind(args[0])
				if err != nil {
					return err
				}
				kind = string(parsed)
			}
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Export(kind)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				for _, file := range resp.Files {
					fmt.Fprintf(out, "Wrote %s\n", file)
				}
				return nil
			})
		},
	}
}

func newPrintCommand(ctx *commandContext) *cobra.Command {
	var target string
	cmd := &cobra.Command{
		Use:   "print <item-id>",
		Short: "Print the label of an item on a printer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.Atoi(args[0])
			if err != nil || id <= 0 {
				return fmt.Errorf("invalid item id %q", args[0])
			}
			return ctx.withClient(func(client *ipc.Client) error {
				if _, err := client.Print(id, target); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Printed item %d on %s printer\n", id, target)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&target, "target", devices.TargetBox,
		fmt.Sprintf("Printer to use (%s, %s, %s)", devices.TargetBox, devices.TargetProduct, devices.TargetProduct2))
	return cmd
}

func newSettingsCommand(ctx *commandContext) *cobra.Command {
	var (
		itemsPerBox    int
		dateRequired   bool
		productionDate string
		shortCode      bool
	)
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change the matching options of the active job",
	}
	asJSON := addJSONFlag(cmd)
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		var req ipc.UpdateSettingsRequest
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
			var opts ipc.Options
			if req == (ipc.UpdateSettingsRequest{}) {
				status, err := client.Status()
				if err != nil {
					return err
				}
				opts = status.Station.Options
			} else {
				resp, err := client.UpdateSettings(req)
				if err != nil {
					return err
				}
				opts = resp.Options
			}
			if *asJSON {
				return writeJSON(cmd, opts)
			}
			fmt.Fprint(cmd.OutOrStdout(), renderTable(
				[]string{"Setting", "Value"},
				[][]string{
					{"Items per box", strconv.Itoa(opts.ItemsPerBox)},
					{"Date required", yesNo(opts.DateRequired)},
					{"Production date", dash(opts.ProductionDate)},
					{"Short code", yesNo(opts.ForceShortCode)},
				},
				[]columnAlignment{alignLeft, alignLeft},
			))
			return nil
		})
	}
	cmd.Flags().IntVar(&itemsPerBox, "items-per-box", 0, "Items per box (0 disables box tracking)")
	cmd.Flags().BoolVar(&dateRequired, "date-required", false, "Require a production date before scans are accepted")
	cmd.Flags().StringVar(&productionDate, "production-date", "", "Production date (dd.mm.yyyy)")
	cmd.Flags().BoolVar(&shortCode, "short-code", false, "Match on the short form of GS1 codes")
	return cmd
}
