package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/peterh/liner"
	"github.com/spf13/cobra"

	"packline/internal/ipc"
)

const consolePrompt = "scan> "

// consoleClient is the part of the IPC client the console drives.
type consoleClient interface {
	Scan(code string) (*ipc.ScanResponse, error)
	Verify(displayID int) (*ipc.ScanResponse, error)
	Reset(ids []int, all bool) (*ipc.CountResponse, error)
	Status() (*ipc.StatusResponse, error)
	ScanLog(limit int) (*ipc.ScanLogResponse, error)
	Export(kind string) (*ipc.ExportResponse, error)
}

var consoleCommands = []string{":help", ":quit", ":status", ":verify", ":reset", ":log", ":export"}

func newConsoleCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "console",
		Short: "Interactive scan console; every line typed is submitted as a scan",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				out := cmd.OutOrStdout()
				session := &consoleSession{client: client, out: out, colorize: shouldColorize(out)}
				return session.run(consoleHistoryPath(ctx))
			})
		},
	}
}

func consoleHistoryPath(ctx *commandContext) string {
	cfg := ctx.configValue()
	if cfg == nil || cfg.Paths.DataDir == "" {
		return ""
	}
	return filepath.Join(cfg.Paths.DataDir, "console_history")
}

type consoleSession struct {
	client   consoleClient
	out      io.Writer
	colorize bool
}

func (s *consoleSession) run(historyPath string) error {
	state := liner.NewLiner()
	defer state.Close()
	state.SetCtrlCAborts(true)
	state.SetCompleter(func(line string) []string {
		var matches []string
		for _, c := range consoleCommands {
			if strings.HasPrefix(c, strings.ToLower(line)) {
				matches = append(matches, c)
			}
		}
		return matches
	})
	if historyPath != "" {
		if f, err := os.Open(historyPath); err == nil {
			_, _ = state.ReadHistory(f)
			_ = f.Close()
		}
		defer func() {
			if f, err := os.Create(historyPath); err == nil {
				_, _ = state.WriteHistory(f)
				_ = f.Close()
			}
		}()
	}

	fmt.Fprintln(s.out, "Scan or type a code. :help lists commands, :quit leaves.")
	for {
		line, err := state.Prompt(consolePrompt)
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("read input: %w", err)
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		state.AppendHistory(line)
		if quit := s.handle(line); quit {
			return nil
		}
	}
}

// handle processes one console line and reports whether the session ends.
// Lines starting with ':' are commands; anything else is scanned verbatim.
func (s *consoleSession) handle(line string) bool {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return false
	}
	if !strings.HasPrefix(trimmed, ":") {
		resp, err := s.client.Scan(line)
		if err != nil {
			s.fail(err)
			return false
		}
		writeScanResult(s.out, resp.Result, s.colorize)
		return false
	}

	fields := strings.Fields(trimmed)
	args := fields[1:]
	switch strings.ToLower(fields[0]) {
	case ":q", ":quit", ":exit":
		return true
	case ":help", ":?":
		fmt.Fprintln(s.out, "  :status            active job progress")
		fmt.Fprintln(s.out, "  :verify <id>       mark an item verified by hand")
		fmt.Fprintln(s.out, "  :reset <id...>     return items to pending (:reset all)")
		fmt.Fprintln(s.out, "  :log [n]           last scan report lines")
		fmt.Fprintln(s.out, "  :export [kind]     write exports")
		fmt.Fprintln(s.out, "  :quit              leave the console")
	case ":status":
		resp, err := s.client.Status()
		if err != nil {
			s.fail(err)
			return false
		}
		st := resp.Station
		if st.JobID == "" {
			fmt.Fprintln(s.out, renderStatusLine("Active job", statusWarn, "none loaded", s.colorize))
			return false
		}
		fmt.Fprintln(s.out, renderStatusLine(st.JobName, statusInfo,
			fmt.Sprintf("%d / %d verified, %d remaining", st.Verified, st.Total, st.Remaining), s.colorize))
	case ":verify":
		if len(args) != 1 {
			fmt.Fprintln(s.out, "usage: :verify <id>")
			return false
		}
		id, err := strconv.Atoi(args[0])
		if err != nil {
			fmt.Fprintf(s.out, "invalid item id %q\n", args[0])
			return false
		}
		resp, err := s.client.Verify(id)
		if err != nil {
			s.fail(err)
			return false
		}
		writeScanResult(s.out, resp.Result, s.colorize)
	case ":reset":
		all := len(args) == 1 && strings.EqualFold(args[0], "all")
		var ids []int
		if !all {
			parsed, err := parseDisplayIDs(args)
			if err != nil || len(parsed) == 0 {
				fmt.Fprintln(s.out, "usage: :reset <id...> | :reset all")
				return false
			}
			ids = parsed
		}
		resp, err := s.client.Reset(ids, all)
		if err != nil {
			s.fail(err)
			return false
		}
		fmt.Fprintf(s.out, "Reset %d items\n", resp.Count)
	case ":log":
		limit := 10
		if len(args) == 1 {
			if n, err := strconv.Atoi(args[0]); err == nil && n > 0 {
				limit = n
			}
		}
		resp, err := s.client.ScanLog(limit)
		if err != nil {
			s.fail(err)
			return false
		}
		for _, e := range resp.Entries {
			fmt.Fprintf(s.out, "%s %-9s %s %s\n", e.At, e.Kind, e.Code, e.Message)
		}
	case ":export":
		kind := "all"
		if len(args) == 1 {
			kind = args[0]
		}
		resp, err := s.client.Export(kind)
		if err != nil {
			s.fail(err)
			return false
		}
		for _, file := range resp.Files {
			fmt.Fprintf(s.out, "Wrote %s\n", file)
		}
	default:
		fmt.Fprintf(s.out, "unknown command %s (try :help)\n", fields[0])
	}
	return false
}

func (s *consoleSession) fail(err error) {
	fmt.Fprintln(s.out, renderStatusLine("Error", statusError, err.Error(), s.colorize))
}
