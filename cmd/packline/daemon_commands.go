package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"packline/internal/daemonctl"
	"packline/internal/devices"
	"packline/internal/ipc"
)

func newDaemonCommands(ctx *commandContext) []*cobra.Command {
	startCmd := &cobra.Command{
		Use:   "start",
		Short: "Start the packline daemon in the background",
		RunE: func(cmd *cobra.Command, args []string) error {
			exe, err := os.Executable()
			if err != nil {
				return fmt.Errorf("resolve executable: %w", err)
			}
			result, err := daemonctl.EnsureStarted(ctx.socketPath(), exe, daemonLaunchOptions(ctx), 10*time.Second)
			if err != nil {
				return err
			}
			stdout := cmd.OutOrStdout()
			if result.AlreadyRunning {
				fmt.Fprintln(stdout, "Daemon already running")
				return nil
			}
			fmt.Fprintf(stdout, "Daemon started (pid %d)\n", result.PID)
			return nil
		},
	}

	stopCmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop the packline daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			result, err := daemonctl.StopAndTerminate(ctx.socketPath(), ctx.configValue(), 5*time.Second)
			if errors.Is(err, daemonctl.ErrDaemonNotRunning) {
				fmt.Fprintln(stdout, "Daemon is not running")
				return nil
			}
			if err != nil {
				return err
			}
			if result.ForcedKill && result.PID > 0 {
				fmt.Fprintf(stdout, "Daemon did not exit, killed pid %d\n", result.PID)
			}
			fmt.Fprintln(stdout, "Daemon stopped")
			return nil
		},
	}

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon, active job and device status",
	}
	asJSON := addJSONFlag(statusCmd)
	statusCmd.RunE = func(cmd *cobra.Command, args []string) error {
		resp, err := daemonctl.BuildStatusSnapshot(cmd.Context(), ctx.socketPath(), ctx.configValue())
		if err != nil {
			return err
		}
		if *asJSON {
			return writeJSON(cmd, resp)
		}
		stdout := cmd.OutOrStdout()
		renderStatus(stdout, resp, shouldColorize(stdout))
		return nil
	}

	return []*cobra.Command{startCmd, stopCmd, statusCmd}
}

func renderStatus(out io.Writer, resp *ipc.StatusResponse, colorize bool) {
	printSection(out, "Daemon", colorize)
	if resp.Running {
		fmt.Fprintln(out, renderStatusLine("Daemon", statusOK, fmt.Sprintf("running (pid %d)", resp.PID), colorize))
	} else {
		fmt.Fprintln(out, renderStatusLine("Daemon", statusWarn, "not running", colorize))
	}
	fmt.Fprintln(out, renderStatusLine("Database", statusInfo, dash(resp.DatabasePath), colorize))
	fmt.Fprintln(out, renderStatusLine("Socket", statusInfo, dash(resp.SocketPath), colorize))
	if resp.LogPath != "" {
		fmt.Fprintln(out, renderStatusLine("Log", statusInfo, resp.LogPath, colorize))
	}
	fmt.Fprintln(out)

	st := resp.Station
	printSection(out, "Job", colorize)
	if st.JobID == "" {
		fmt.Fprintln(out, renderStatusLine("Active job", statusWarn, "none loaded", colorize))
	} else {
		fmt.Fprintln(out, renderStatusLine("Active job", statusOK, fmt.Sprintf("%s (%s)", st.JobName, st.JobID), colorize))
		kind := statusInfo
		if st.Total > 0 && st.Remaining == 0 {
			kind = statusOK
		}
		fmt.Fprintln(out, renderStatusLine("Progress", kind, fmt.Sprintf("%d / %d verified, %d remaining", st.Verified, st.Total, st.Remaining), colorize))
		if st.NextBox > 0 {
			fmt.Fprintln(out, renderStatusLine("Next box", statusInfo, fmt.Sprintf("%d (%s)", st.NextBox, dash(st.NextLabel)), colorize))
		}
	}
	opts := st.Options
	fmt.Fprintln(out, renderStatusLine("Items per box", statusInfo, fmt.Sprintf("%d", opts.ItemsPerBox), colorize))
	dateDetail := yesNo(opts.DateRequired)
	if opts.DateRequired {
		dateDetail += " (" + dash(opts.ProductionDate) + ")"
	}
	fmt.Fprintln(out, renderStatusLine("Date required", statusInfo, dateDetail, colorize))
	fmt.Fprintln(out, renderStatusLine("Short code", statusInfo, yesNo(opts.ForceShortCode), colorize))

	if !resp.Running {
		return
	}
	fmt.Fprintln(out)
	printSection(out, "Devices", colorize)
	dev := st.Devices
	scannerKind := statusWarn
	if devices.ScannerState(dev.Scanner) == devices.ScannerConnected {
		scannerKind = statusOK
	}
	fmt.Fprintln(out, renderStatusLine("Scanner", scannerKind, strings.TrimSpace(dev.Scanner+" "+dev.ScannerAddress), colorize))
	for _, p := range dev.Printers {
		kind, detail := statusOK, p.Address
		if !p.Reachable {
			kind = statusError
			detail = strings.TrimSpace(p.Address + " " + p.LastError)
		}
		fmt.Fprintln(out, renderStatusLine("Printer "+p.Name, kind, detail, colorize))
	}
	if dev.Reject.Enabled {
		kind, detail := statusOK, dev.Reject.Port
		if !dev.Reject.Present {
			kind = statusError
			detail = strings.TrimSpace(dev.Reject.Port + " missing " + dev.Reject.LastError)
		}
		fmt.Fprintln(out, renderStatusLine("Reject", kind, detail, colorize))
	} else {
		fmt.Fprintln(out, renderStatusLine("Reject", statusInfo, "disabled", colorize))
	}
}

func printSection(out io.Writer, title string, colorize bool) {
	for _, line := range renderSectionHeader(title, colorize) {
		fmt.Fprintln(out, line)
	}
}

func daemonLaunchOptions(ctx *commandContext) daemonctl.LaunchOptions {
	opts := daemonctl.LaunchOptions{ConfigPath: ctx.configFlagValue()}
	if ctx.socketFlag != nil {
		opts.SocketPath = strings.TrimSpace(*ctx.socketFlag)
	}
	return opts
}
