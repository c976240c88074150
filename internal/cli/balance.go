package cli

import (
	"github.com/spf13/cobra"

	"github.com/marcel-krsh/usn/internal/app"
)

var (
	balancePool     uint64
	balanceExecute  bool
	balanceLimitMin float64
	balanceLimitMax float64
)

var balanceCmd = &cobra.Command{
	Use:   "balance",
	Short: "Run one balancing attempt against a pool",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := app.BalanceOptions{
			PoolID:  balancePool,
			Execute: balanceExecute,
		}
		if cmd.Flags().Changed("limit-min") {
			opts.LimitMin = &balanceLimitMin
		}
		if cmd.Flags().Changed("limit-max") {
			opts.LimitMax = &balanceLimitMax
		}
		return getApp().Balance(cmd.Context(), opts)
	},
}

func init() {
	balanceCmd.Flags().Uint64Var(&balancePool, "pool", 0, "AMM pool id to balance against")
	balanceCmd.Flags().BoolVar(&balanceExecute, "execute", false, "Execute the decision on chain instead of only logging it")
	balanceCmd.Flags().Float64Var(&balanceLimitMin, "limit-min", 0, "Lower bound of the random amount cap")
	balanceCmd.Flags().Float64Var(&balanceLimitMax, "limit-max", 0, "Upper bound of the random amount cap")
}
