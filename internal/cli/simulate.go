package cli

import (
	"github.com/spf13/cobra"

	"github.com/marcel-krsh/usn/internal/app"
)

var (
	simulateNative    float64
	simulateSupply    float64
	simulateSecondary float64
	simulateRates     []float64
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run the decision model on supplied reserves without touching the chain",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Simulate(cmd.Context(), app.SimulateOptions{
			NativeReserve:     simulateNative,
			CirculatingStable: simulateSupply,
			SecondaryReserve:  simulateSecondary,
			Rates:             simulateRates,
		})
	},
}

func init() {
	simulateCmd.Flags().Float64Var(&simulateNative, "native", 0, "Native token reserve in whole tokens")
	simulateCmd.Flags().Float64Var(&simulateSupply, "supply", 0, "Circulating stablecoin supply in dollars")
	simulateCmd.Flags().Float64Var(&simulateSecondary, "secondary", 0, "Secondary stable reserve in dollars")
	simulateCmd.Flags().Float64SliceVar(&simulateRates, "rates", nil, "Exchange rate series, oldest first (defaults to stored history)")
}
