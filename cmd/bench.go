package main

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/spf13/cobra"

	"github.com/cwbudde/mspfilter/internal/msp"
	"github.com/cwbudde/mspfilter/internal/profile"
	"github.com/cwbudde/mspfilter/internal/reference"
)

var (
	benchProfilePath string
	benchModelLen    int
	benchAlphabet    string
	benchL           int
	benchN           int
	benchSeed        int64
	benchTimeSeeded  bool
	benchBaseline    bool
	benchCompare     bool
	benchEmulate     bool
	benchBackend     string
)

var benchCmd = &cobra.Command{
	Use:   "bench",
	Short: "Time the filter on random target sequences",
	Long: `Scores N random sequences of length L and reports the CPU time.

  --baseline  generate sequences but skip the DP, to time the harness alone
  --compare   print filter and full-precision GMSP scores side by side
  --emulate   print filter and unstriped emulation scores, which should agree exactly`,
	RunE: runBench,
}

func init() {
	benchCmd.Flags().StringVar(&benchProfilePath, "profile", "", "Profile YAML file (default: sample one)")
	benchCmd.Flags().IntVarP(&benchModelLen, "model-length", "M", 145, "Length of the sampled profile")
	benchCmd.Flags().StringVar(&benchAlphabet, "alphabet", "amino", "Alphabet of the sampled profile")
	benchCmd.Flags().IntVarP(&benchL, "length", "L", 400, "Length of random target sequences")
	benchCmd.Flags().IntVarP(&benchN, "count", "N", 50000, "Number of random target sequences")
	benchCmd.Flags().Int64VarP(&benchSeed, "seed", "s", 42, "Random number seed")
	benchCmd.Flags().BoolVarP(&benchTimeSeeded, "random-seed", "r", false, "Seed the random number generator from the clock")
	benchCmd.Flags().BoolVarP(&benchBaseline, "baseline", "b", false, "Baseline timing: don't run the DP at all")
	benchCmd.Flags().BoolVarP(&benchCompare, "compare", "c", false, "Compare filter scores against GMSP")
	benchCmd.Flags().BoolVarP(&benchEmulate, "emulate", "x", false, "Compare filter scores against the unstriped emulation")
	benchCmd.Flags().StringVar(&benchBackend, "backend", "", "Force a backend (scalar, swar)")

	benchCmd.MarkFlagsMutuallyExclusive("compare", "emulate")
	rootCmd.AddCommand(benchCmd)
}

func runBench(cmd *cobra.Command, args []string) error {
	if benchL < 1 || benchN < 1 {
		return fmt.Errorf("length and count must be positive")
	}

	seed := benchSeed
	if benchTimeSeeded {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	gm, om, err := benchProfiles(rng)
	if err != nil {
		return err
	}
	gm.L = benchL
	om.ReconfigLength(benchL)

	backend := msp.ActiveBackend
	if benchBackend != "" {
		if backend, err = msp.ParseBackend(benchBackend); err != nil {
			return err
		}
	}

	out := cmd.OutOrStdout()
	row := msp.NewRow(om.M)

	startCPU := cpuTime()
	start := time.Now()
	for i := 0; i < benchN; i++ {
		dsq := profile.RandomSequence(rng, om.Alphabet, benchL)
		if benchBaseline {
			continue
		}

		res, err := msp.FilterWith(backend, dsq, om, row)
		if err != nil {
			return err
		}

		switch {
		case benchCompare:
			fmt.Fprintf(out, "%.4f %.4f\n", res.Score, reference.GMSP(dsq, gm))
		case benchEmulate:
			emu, _ := reference.Emulate(dsq, om)
			fmt.Fprintf(out, "%.4f %.4f\n", res.Score, emu)
		}
	}
	wall := time.Since(start)
	cpu := cpuTime() - startCPU

	cells := float64(benchN) * float64(benchL) * float64(om.M)
	fmt.Fprintf(out, "# CPU time: %s (wall %s)\n", cpu.Round(time.Millisecond), wall.Round(time.Millisecond))
	fmt.Fprintf(out, "# M    = %d\n", om.M)
	fmt.Fprintf(out, "# backend = %s\n", backend)
	if !benchBaseline && wall > 0 {
		fmt.Fprintf(out, "# %.1f Mc/s\n", cells/wall.Seconds()/1e6)
	}
	return nil
}

// benchProfiles loads the profile named by --profile or samples one.
func benchProfiles(rng *rand.Rand) (*profile.Profile, *profile.Optimized, error) {
	if benchProfilePath != "" {
		return loadProfiles(benchProfilePath)
	}
	abc, err := profile.AlphabetByName(benchAlphabet)
	if err != nil {
		return nil, nil, err
	}
	if benchModelLen < 1 {
		return nil, nil, fmt.Errorf("model length must be positive, got %d", benchModelLen)
	}
	gm := profile.Sample(rng, abc, benchModelLen, benchL)
	om, err := profile.Convert(gm)
	if err != nil {
		return nil, nil, err
	}
	return gm, om, nil
}
