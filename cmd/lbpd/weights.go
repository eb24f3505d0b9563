package main

import (
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/elys-network/lbp/internal/fixedpoint"
	"github.com/elys-network/lbp/internal/schedule"
)

var (
	weightsStart         int64
	weightsEnd           int64
	weightsStartPair     string
	weightsEndPair       string
	weightsSteps         int
	weightsNormalization uint64
)

var weightsCmd = &cobra.Command{
	Use:   "weights",
	Short: "Print the weight schedule of a sale window",
	Example: `  lbpd weights --start 1700000000 --end 1700086400 --start-weights 90,10 --end-weights 10,90
  lbpd weights --start 0 --end 1000 --start-weights 9000,1000 --end-weights 5000,5000 --normalization 10000 --steps 4`,
	RunE: runWeights,
}

func init() {
	rootCmd.AddCommand(weightsCmd)

	weightsCmd.Flags().Int64Var(&weightsStart, "start", 0, "window start, unix seconds")
	weightsCmd.Flags().Int64Var(&weightsEnd, "end", 0, "window end, unix seconds")
	weightsCmd.Flags().StringVar(&weightsStartPair, "start-weights", "", "input,output weights at the start")
	weightsCmd.Flags().StringVar(&weightsEndPair, "end-weights", "", "input,output weights at the end")
	weightsCmd.Flags().IntVar(&weightsSteps, "steps", 10, "number of intervals to print")
	weightsCmd.Flags().Uint64Var(&weightsNormalization, "normalization", schedule.DefaultNormalization, "sum of every weight pair")
	_ = weightsCmd.MarkFlagRequired("start-weights")
	_ = weightsCmd.MarkFlagRequired("end-weights")
}

func runWeights(cmd *cobra.Command, args []string) error {
	startWeights, err := parseWeightPair(weightsStartPair)
	if err != nil {
		return err
	}
	endWeights, err := parseWeightPair(weightsEndPair)
	if err != nil {
		return err
	}
	if weightsSteps <= 0 {
		return fmt.Errorf("--steps must be positive")
	}

	s := schedule.Schedule{
		StartTime:     weightsStart,
		EndTime:       weightsEnd,
		StartWeights:  startWeights,
		EndWeights:    endWeights,
		Normalization: weightsNormalization,
	}
	if err := s.Validate(); err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tUTC\tPROGRESS\tINPUT\tOUTPUT")
	span := s.EndTime - s.StartTime
	for i := 0; i <= weightsSteps; i++ {
		at := s.StartTime + span*int64(i)/int64(weightsSteps)
		weights, err := schedule.CurrentWeights(s, at)
		if err != nil {
			return err
		}
		progress := fixedpoint.ToLegacyDec(schedule.Progress(s, at))
		fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%d\n",
			at, time.Unix(at, 0).UTC().Format(time.RFC3339), progress.String()[:6], weights[0], weights[1])
	}
	return w.Flush()
}

// parseWeightPair parses "a,b".
func parseWeightPair(pair string) ([2]uint64, error) {
	var out [2]uint64
	parts := strings.Split(pair, ",")
	if len(parts) != 2 {
		return out, fmt.Errorf("weight pair %q must be input,output", pair)
	}
	for i, p := range parts {
		v, err := strconv.ParseUint(strings.TrimSpace(p), 10, 64)
		if err != nil {
			return out, fmt.Errorf("weight pair %q: %w", pair, err)
		}
		out[i] = v
	}
	return out, nil
}
