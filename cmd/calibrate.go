package main

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/cwbudde/mspfilter/internal/calibrate"
	"github.com/cwbudde/mspfilter/internal/opt"
	"github.com/cwbudde/mspfilter/internal/profile"
	"github.com/cwbudde/mspfilter/internal/seqio"
)

var (
	calProfilePath string
	calSeqPath     string
	calL           int
	calN           int
	calSeed        int64
	calIters       int
	calPop         int
)

var calibrateCmd = &cobra.Command{
	Use:   "calibrate",
	Short: "Fit the loop-state correction against GMSP",
	Long: `Scores targets with the filter and with the full-precision GMSP and
fits the constant correction that minimizes their mean squared difference,
using the mayfly optimizer. Targets come from --seqs, or are sampled i.i.d.
from the profile's alphabet.`,
	RunE: runCalibrate,
}

func init() {
	calibrateCmd.Flags().StringVar(&calProfilePath, "profile", "", "Profile YAML file (required)")
	calibrateCmd.Flags().StringVar(&calSeqPath, "seqs", "", "FASTA file of targets (default: random targets)")
	calibrateCmd.Flags().IntVarP(&calL, "length", "L", 400, "Length of random targets")
	calibrateCmd.Flags().IntVarP(&calN, "count", "N", 1000, "Number of random targets")
	calibrateCmd.Flags().Int64VarP(&calSeed, "seed", "s", 42, "Random number seed")
	calibrateCmd.Flags().IntVar(&calIters, "iters", 100, "Optimizer iterations")
	calibrateCmd.Flags().IntVar(&calPop, "pop", 20, "Optimizer population size")

	calibrateCmd.MarkFlagRequired("profile")
	rootCmd.AddCommand(calibrateCmd)
}

func runCalibrate(cmd *cobra.Command, args []string) error {
	gm, om, err := loadProfiles(calProfilePath)
	if err != nil {
		return err
	}

	var seqs [][]byte
	if calSeqPath != "" {
		records, err := seqio.ReadFile(calSeqPath)
		if err != nil {
			return err
		}
		for _, rec := range records {
			dsq, err := om.Alphabet.Digitize(rec.Seq)
			if err != nil {
				return fmt.Errorf("target %q: %w", rec.Name, err)
			}
			seqs = append(seqs, dsq)
		}
	} else {
		if calL < 1 || calN < 1 {
			return fmt.Errorf("length and count must be positive")
		}
		rng := rand.New(rand.NewSource(calSeed))
		seqs = make([][]byte, calN)
		for i := range seqs {
			seqs[i] = profile.RandomSequence(rng, om.Alphabet, calL)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	slog.Info("Calibrating correction", "profile", gm.Name, "targets", len(seqs), "iters", calIters, "pop", calPop)
	res, err := calibrate.Correction(ctx, om, gm, seqs, opt.NewMayfly(calIters, calPop, calSeed))
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "correction: %.4f nats (default %.1f for %s)\n", res.Correction, gm.Mode.DefaultCorrection(), gm.Mode)
	fmt.Fprintf(out, "rmse:       %.4f\n", res.RMSE)
	fmt.Fprintf(out, "used:       %d\n", res.Used)
	fmt.Fprintf(out, "skipped:    %d\n", res.Skipped)
	return nil
}
