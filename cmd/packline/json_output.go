package main

import (
	"encoding/json"

	"github.com/spf13/cobra"
)

// addJSONFlag registers --json on cmd and returns the bound value.
func addJSONFlag(cmd *cobra.Command) *bool {
	var enabled bool
	cmd.Flags().BoolVar(&enabled, "json", false, "Print the response as JSON")
	return &enabled
}

// writeJSON encodes v as indented JSON to the command's stdout.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
