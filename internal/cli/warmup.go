package cli

import (
	"github.com/spf13/cobra"
)

var warmupCmd = &cobra.Command{
	Use:   "warmup",
	Short: "Fetch and persist one fresh exchange rate sample",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Warmup(cmd.Context())
	},
}
