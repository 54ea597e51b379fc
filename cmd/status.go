package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/spf13/cobra"
)

var (
	serverURL string
)

var statusCmd = &cobra.Command{
	Use:   "status [job-id]",
	Short: "Query server status or specific job",
	Long: `Queries the server for job status information.
If no job-id is provided, lists all jobs.
If job-id is provided, shows detailed status for that job.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&serverURL, "server", "http://localhost:8080", "Server URL")
	rootCmd.AddCommand(statusCmd)
}

// jobView is the subset of the server's job JSON the CLI prints.
type jobView struct {
	ID     string `json:"id"`
	State  string `json:"state"`
	Config struct {
		ProfilePath string  `json:"profilePath"`
		SeqPath     string  `json:"seqPath"`
		Workers     int     `json:"workers"`
		Threshold   float32 `json:"threshold"`
	} `json:"config"`
	Profile    string  `json:"profile"`
	Total      int     `json:"total"`
	Processed  int     `json:"processed"`
	Passed     int     `json:"passed"`
	Overflowed int     `json:"overflowed"`
	Elapsed    float64 `json:"elapsed"`
	Rate       float64 `json:"rate"`
	Error      string  `json:"error"`
}

func runStatus(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	if len(args) == 0 {
		return listJobs(out, fmt.Sprintf("%s/api/v1/jobs", serverURL))
	}
	jobID := args[0]
	return getJobStatus(out, fmt.Sprintf("%s/api/v1/jobs/%s/status", serverURL, jobID), jobID)
}

func listJobs(out io.Writer, url string) error {
	resp, err := http.Get(url)
	if err != nil {
		return fmt.Errorf("failed to connect to server: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned error: %s", string(body))
	}

	var jobs []jobView
	if err := json.NewDecoder(resp.Body).Decode(&jobs); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	if len(jobs) == 0 {
		fmt.Fprintln(out, "No jobs found")
		return nil
	}

	fmt.Fprintf(out, "Found %d job(s):\n\n", len(jobs))
	for _, job := range jobs {
		fmt.Fprintf(out, "Job ID: %s\n", job.ID)
		fmt.Fprintf(out, "  State: %s\n", job.State)
		fmt.Fprintf(out, "  Profile: %s\n", job.Config.ProfilePath)
		fmt.Fprintf(out, "  Targets: %s\n", job.Config.SeqPath)
		if job.Total > 0 {
			fmt.Fprintf(out, "  Progress: %d/%d (%d passed)\n", job.Processed, job.Total, job.Passed)
		}
		fmt.Fprintln(out)
	}

	return nil
}

func getJobStatus(out io.Writer, url, jobID string) error {
	resp, err := http.Get(url)
	if err != nil {
		return fmt.Errorf("failed to connect to server: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("job not found: %s", jobID)
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned error: %s", string(body))
	}

	var status jobView
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	fmt.Fprintf(out, "Job: %s\n", status.ID)
	fmt.Fprintf(out, "State: %s\n", status.State)
	fmt.Fprintln(out)

	fmt.Fprintln(out, "Configuration:")
	fmt.Fprintf(out, "  Profile: %s\n", status.Config.ProfilePath)
	fmt.Fprintf(out, "  Targets: %s\n", status.Config.SeqPath)
	fmt.Fprintf(out, "  Workers: %d\n", status.Config.Workers)
	fmt.Fprintf(out, "  Threshold: %.2f\n", status.Config.Threshold)
	fmt.Fprintln(out)

	fmt.Fprintln(out, "Progress:")
	if status.Profile != "" {
		fmt.Fprintf(out, "  Model: %s\n", status.Profile)
	}
	fmt.Fprintf(out, "  Scanned: %d/%d\n", status.Processed, status.Total)
	fmt.Fprintf(out, "  Passed: %d\n", status.Passed)
	fmt.Fprintf(out, "  Range exceeded: %d\n", status.Overflowed)

	elapsed := time.Duration(status.Elapsed * float64(time.Second))
	fmt.Fprintf(out, "  Elapsed: %s\n", elapsed.Round(time.Millisecond))

	if status.Rate > 0 {
		fmt.Fprintf(out, "  Throughput: %.0f targets/sec\n", status.Rate)
	}

	if status.Error != "" {
		fmt.Fprintf(out, "\nError: %s\n", status.Error)
	}

	return nil
}
