package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/cwbudde/mspfilter/internal/scan"
	"github.com/cwbudde/mspfilter/internal/seqio"
)

var (
	scoreProfilePath string
	scoreSeqPath     string
	scoreWorkers     int
	scoreThreshold   float32
	scoreCorrection  float32
	scoreFixedLength bool
	scorePassOnly    bool
	scoreJSON        bool
)

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Score FASTA targets against a profile",
	Long: `Runs the MSP filter for every target in a FASTA file and prints one
line per target. Targets that exceed the filter range are re-scored with the
full-precision reference and flagged.`,
	RunE: runScore,
}

func init() {
	scoreCmd.Flags().StringVar(&scoreProfilePath, "profile", "", "Profile YAML file (required)")
	scoreCmd.Flags().StringVar(&scoreSeqPath, "seqs", "", "FASTA file of targets (required)")
	scoreCmd.Flags().IntVar(&scoreWorkers, "workers", 0, "Scan workers (0 = config default)")
	scoreCmd.Flags().Float32Var(&scoreThreshold, "threshold", 0, "Pass threshold in nats (default from config)")
	scoreCmd.Flags().Float32Var(&scoreCorrection, "correction", 0, "Override the loop-state correction in nats")
	scoreCmd.Flags().BoolVar(&scoreFixedLength, "fixed-length", false, "Score every target at the profile's configured length")
	scoreCmd.Flags().BoolVar(&scorePassOnly, "pass-only", false, "Print only targets that pass the threshold")
	scoreCmd.Flags().BoolVar(&scoreJSON, "json", false, "Print the full report as JSON")

	scoreCmd.MarkFlagRequired("profile")
	scoreCmd.MarkFlagRequired("seqs")
	rootCmd.AddCommand(scoreCmd)
}

func runScore(cmd *cobra.Command, args []string) error {
	gm, om, err := loadProfiles(scoreProfilePath)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("correction") {
		om.NNCorrection = scoreCorrection
	}

	records, err := seqio.ReadFile(scoreSeqPath)
	if err != nil {
		return err
	}

	scanner := &scan.Scanner{
		Profile:     om,
		Generic:     gm,
		Workers:     cfg.Scan.Workers,
		Threshold:   cfg.Scan.Threshold,
		FixedLength: scoreFixedLength,
	}
	if cmd.Flags().Changed("workers") {
		scanner.Workers = scoreWorkers
	}
	if cmd.Flags().Changed("threshold") {
		scanner.Threshold = scoreThreshold
	}

	slog.Info("Starting scan", "profile", gm.Name, "m", gm.M, "targets", len(records), "threshold", scanner.Threshold)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	rep, err := scanner.Scan(ctx, records, nil)
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}

	slog.Info("Scan complete",
		"elapsed", rep.Elapsed,
		"targets", rep.Total,
		"passed", rep.Passed,
		"overflowed", rep.Overflowed,
		"backend", rep.Backend,
	)

	out := cmd.OutOrStdout()
	if scoreJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(rep)
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TARGET\tLENGTH\tSCORE\tRAW\tPASS\tNOTE")
	for _, h := range rep.Hits {
		if scorePassOnly && !h.Pass {
			continue
		}
		note := ""
		raw := fmt.Sprintf("%.4f", h.Raw)
		if h.Fallback {
			note = fmt.Sprintf("range exceeded at residue %d", h.Residue)
			raw = "-"
		}
		fmt.Fprintf(w, "%s\t%d\t%.4f\t%s\t%v\t%s\n", h.Name, h.Length, h.Score, raw, h.Pass, note)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(out, "\n# targets: %d  passed: %d  overflowed: %d  elapsed: %s\n",
		rep.Total, rep.Passed, rep.Overflowed, rep.Elapsed)
	return nil
}
