package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"packline/internal/notifications"
	"packline/internal/preflight"
)

func newCheckCommand(ctx *commandContext) *cobra.Command {
	var sendTest bool
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Check directories and device reachability without the daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.configValue()
			if cfg == nil {
				return fmt.Errorf("configuration not loaded")
			}
			if err := cfg.EnsureDirectories(); err != nil {
				return fmt.Errorf("ensure directories: %w", err)
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			results := preflight.RunAll(cmd.Context(), cfg)
			printSection(out, "Preflight", colorize)
			for _, r := range results {
				kind := statusOK
				if !r.Passed {
					kind = statusError
				}
				fmt.Fprintln(out, renderStatusLine(r.Name, kind, r.Detail, colorize))
			}
			if sendTest {
				if cfg.Notifications.NtfyTopic == "" {
					fmt.Fprintln(out, renderStatusLine("Notifications", statusWarn, "no ntfy topic configured", colorize))
				} else if err := notifications.NewService(cfg.Notifications).TestNotification(cmd.Context()); err != nil {
					fmt.Fprintln(out, renderStatusLine("Notifications", statusError, err.Error(), colorize))
					results = append(results, preflight.Result{Name: "Notifications", Detail: err.Error()})
				} else {
					fmt.Fprintln(out, renderStatusLine("Notifications", statusOK, "test message sent", colorize))
				}
			}
			if failed := preflight.Failed(results); len(failed) > 0 {
				return fmt.Errorf("%d of %d checks failed", len(failed), len(results))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&sendTest, "notify", false, "Also send a test notification")
	return cmd
}
