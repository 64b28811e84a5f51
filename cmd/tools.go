package cmd

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"kennel-portal/agent"
)

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "Print the tool declarations sent to the completion service",
	RunE: func(cmd *cobra.Command, _ []string) error {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(agent.Declarations(agent.Catalog()))
	},
}

func init() {
	rootCmd.AddCommand(toolsCmd)
}
