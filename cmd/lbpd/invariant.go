package main

import (
	"fmt"
	"strconv"
	"strings"

	"cosmossdk.io/math"
	"github.com/spf13/cobra"

	"github.com/elys-network/lbp/internal/config"
	"github.com/elys-network/lbp/internal/controller"
	"github.com/elys-network/lbp/internal/fixedpoint"
	"github.com/elys-network/lbp/internal/schedule"
	"github.com/elys-network/lbp/internal/types"
	"github.com/elys-network/lbp/internal/utils"
)

var (
	invariantAssets        string
	invariantBalances      string
	invariantWeights       string
	invariantNormalization uint64
	invariantHuman         bool
)

var invariantCmd = &cobra.Command{
	Use:   "invariant",
	Short: "Compute the weighted invariant of two balances",
	Long: `Compute V = b0^w0 * b1^w1 for two balances. Asset decimals come from LBP_ASSETS.
Balances are base units unless --human is set, in which case they are whole-token amounts.`,
	Example: `  LBP_ASSETS=sol:9,usdc:6 lbpd invariant --assets sol,usdc --balances 900000000000,100000000 --weights 90,10
  LBP_ASSETS=sol:9,usdc:6 lbpd invariant --assets sol,usdc --balances 900,100 --weights 90,10 --human`,
	RunE: runInvariant,
}

func init() {
	rootCmd.AddCommand(invariantCmd)

	invariantCmd.Flags().StringVar(&invariantAssets, "assets", "", "input,output asset ids registered in LBP_ASSETS")
	invariantCmd.Flags().StringVar(&invariantBalances, "balances", "", "input,output balances")
	invariantCmd.Flags().StringVar(&invariantWeights, "weights", "", "input,output weights")
	invariantCmd.Flags().Uint64Var(&invariantNormalization, "normalization", schedule.DefaultNormalization, "sum of the weight pair")
	invariantCmd.Flags().BoolVar(&invariantHuman, "human", false, "balances are whole-token amounts")
	_ = invariantCmd.MarkFlagRequired("assets")
	_ = invariantCmd.MarkFlagRequired("balances")
	_ = invariantCmd.MarkFlagRequired("weights")
}

func runInvariant(cmd *cobra.Command, args []string) error {
	if err := config.LoadAssetRegistry(); err != nil {
		return err
	}
	ids := strings.Split(invariantAssets, ",")
	amounts := strings.Split(invariantBalances, ",")
	if len(ids) != 2 || len(amounts) != 2 {
		return fmt.Errorf("--assets and --balances take exactly two comma separated values")
	}
	weights, err := parseWeightPair(invariantWeights)
	if err != nil {
		return err
	}

	var balances [2]math.Int
	for i := range balances {
		asset, ok := config.LookupAsset(types.AssetID(strings.TrimSpace(ids[i])))
		if !ok {
			return fmt.Errorf("asset %s is not registered in LBP_ASSETS", ids[i])
		}
		raw, err := parseAmount(strings.TrimSpace(amounts[i]), asset.Decimals, invariantHuman)
		if err != nil {
			return err
		}
		if balances[i], err = utils.Upscale(raw, asset.Decimals); err != nil {
			return err
		}
	}

	invariant, err := controller.CalculateInvariant(balances, weights, invariantNormalization)
	if err != nil {
		return err
	}
	approx, err := utils.SDKIntToFloat64(invariant, fixedpoint.Decimals)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "invariant: %s\n", invariant)
	fmt.Fprintf(cmd.OutOrStdout(), "tokens:    %.6f\n", approx)
	return nil
}

// parseAmount reads a base-unit integer, or a whole-token amount when human is set.
func parseAmount(s string, decimals uint8, human bool) (math.Int, error) {
	if !human {
		v, ok := math.NewIntFromString(s)
		if !ok {
			return math.ZeroInt(), fmt.Errorf("invalid amount %q", s)
		}
		return v, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.ZeroInt(), fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return utils.Float64ToSDKInt(f, int(decimals))
}
