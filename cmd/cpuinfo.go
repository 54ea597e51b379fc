package main

import (
	"fmt"
	"runtime"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"golang.org/x/sys/cpu"

	"github.com/cwbudde/mspfilter/internal/msp"
)

var cpuinfoCmd = &cobra.Command{
	Use:   "cpuinfo",
	Short: "Show CPU features and the selected filter backend",
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "GOARCH:  %s\n", runtime.GOARCH)
		fmt.Fprintf(out, "CPUs:    %d\n", runtime.NumCPU())
		fmt.Fprintf(out, "Word:    %d-bit\n", strconv.IntSize)
		fmt.Fprintf(out, "Backend: %s (set %s=1 to force scalar)\n\n", msp.ActiveBackend, msp.DisableEnv)

		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "FEATURE\tPRESENT")
		for _, f := range cpuFeatures() {
			fmt.Fprintf(w, "%s\t%v\n", f.name, f.present)
		}
		w.Flush()
	},
}

type cpuFeature struct {
	name    string
	present bool
}

func cpuFeatures() []cpuFeature {
	switch runtime.GOARCH {
	case "amd64", "386":
		return []cpuFeature{
			{"SSE2", cpu.X86.HasSSE2},
			{"SSE4.1", cpu.X86.HasSSE41},
			{"AVX2", cpu.X86.HasAVX2},
			{"AVX512BW", cpu.X86.HasAVX512BW},
		}
	case "arm64":
		return []cpuFeature{
			{"ASIMD", cpu.ARM64.HasASIMD},
			{"SVE", cpu.ARM64.HasSVE},
		}
	default:
		return nil
	}
}

func init() {
	rootCmd.AddCommand(cpuinfoCmd)
}
