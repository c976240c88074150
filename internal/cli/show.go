package cli

import (
	"github.com/spf13/cobra"

	"github.com/marcel-krsh/usn/internal/app"
)

var (
	showLimit    int
	showAttempts bool
)

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show recent rate samples or balancing attempts",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Show(cmd.Context(), app.ShowOptions{
			Limit:    showLimit,
			Attempts: showAttempts,
		})
	},
}

func init() {
	showCmd.Flags().IntVar(&showLimit, "limit", 20, "Number of rows to display")
	showCmd.Flags().BoolVar(&showAttempts, "attempts", false, "Show balancing attempts instead of rate samples")
}
