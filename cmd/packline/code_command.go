package main

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"packline/internal/api"
	"packline/internal/codes"
)

func newCodeCommand() *cobra.Command {
	codeCmd := &cobra.Command{
		Use:         "code",
		Short:       "Code utilities that run without the daemon",
		Annotations: map[string]string{"skipConfigLoad": "true"},
	}
	codeCmd.AddCommand(newCodeInspectCommand())
	return codeCmd
}

func newCodeInspectCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect <code>",
		Short: "Classify a code and show the forms used for matching",
		Long: "Classify a code and show the forms used for matching.\n" +
			"The literal sequences !s! and !j! stand for a GS separator.",
		Args: cobra.ExactArgs(1),
	}
	asJSON := addJSONFlag(cmd)
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		res := codes.Classify(args[0])
		info := api.FromCode(res)
		if *asJSON {
			return writeJSON(cmd, info)
		}
		rows := [][]string{
			{"Type", info.Type},
			{"With separator", info.KeepSeparator},
			{"Without separator", info.NoSeparator},
			{"Short form", codes.ShortForm(res.NoSeparator)},
			{"Control characters", yesNo(res.HasOtherControl)},
		}
		keys := make([]string, 0, len(info.AIs))
		for ai := range info.AIs {
			keys = append(keys, ai)
		}
		slices.Sort(keys)
		for _, ai := range keys {
			rows = append(rows, []string{"AI (" + ai + ")", info.AIs[ai]})
		}
		fmt.Fprint(cmd.OutOrStdout(), renderTable([]string{"Field", "Value"}, rows, nil))
		if res.PrefersNoSeparator() {
			fmt.Fprintln(cmd.OutOrStdout(), "Matching tries the separator-free form first")
		}
		return nil
	}
	return cmd
}
