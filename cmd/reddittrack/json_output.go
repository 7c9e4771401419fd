package main

import (
	"encoding/json"

	"github.com/spf13/cobra"
)

// writeJSON prints v for scripts. Post titles keep their &, < and > as-is.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
