package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

// jobsCmd groups the async job subcommands against POST /jobs and
// GET/POST /jobs/{id}[/cancel]. There is no "jobs list" subcommand: the
// server exposes no listing endpoint (SPEC_FULL.md §6 only names submit,
// get, and cancel), so this CLI does not pretend one exists.
func jobsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "submit, inspect, and cancel async jobs",
	}
	cmd.AddCommand(jobsSubmitCmd(), jobsStatusCmd(), jobsCancelCmd())
	return cmd
}

func jobsSubmitCmd() *cobra.Command {
	f := &runFlags{}
	cmd := &cobra.Command{
		Use:   "submit",
		Short: "submit a benchmark job via POST /jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return doJobsSubmit(f)
		},
	}
	bindRunFlags(cmd, f)
	return cmd
}

func doJobsSubmit(f *runFlags) error {
	body, err := buildRequestBody(f)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := newRequest("POST", "/jobs", payload)
	if err != nil {
		return err
	}
	resp, err := httpClient().Do(req)
	if err != nil {
		return fmt.Errorf("request /jobs: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != 202 {
		return fmt.Errorf("server returned %s: %s", resp.Status, raw)
	}

	if isJSONOutput() {
		fmt.Println(string(raw))
		return nil
	}

	var out struct {
		JobID string `json:"job_id"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	fmt.Printf("job submitted: %s\n", out.JobID)
	return nil
}

// jobView mirrors httpapi.jobSummary, the shape GET /jobs/{id} returns.
type jobView struct {
	ID         string          `json:"id"`
	Status     string          `json:"status"`
	Error      *string         `json:"error,omitempty"`
	Result     json.RawMessage `json:"result,omitempty"`
	CreatedAt  string          `json:"created_at"`
	StartedAt  *string         `json:"started_at,omitempty"`
	FinishedAt *string         `json:"finished_at,omitempty"`
	DurationMS *int64          `json:"duration_ms,omitempty"`
}

func jobsStatusCmd() *cobra.Command {
	var follow bool
	var pollInterval time.Duration
	cmd := &cobra.Command{
		Use:   "status <job-id>",
		Short: "fetch a job's current status via GET /jobs/{id}",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return doJobsStatus(args[0], follow, pollInterval)
		},
	}
	cmd.Flags().BoolVar(&follow, "follow", false, "poll until the job reaches a terminal state")
	cmd.Flags().DurationVar(&pollInterval, "poll-interval", 2*time.Second, "polling interval when --follow is set")
	return cmd
}

func doJobsStatus(id string, follow bool, pollInterval time.Duration) error {
	for {
		view, err := fetchJob(id)
		if err != nil {
			return err
		}

		if !follow || isTerminal(view.Status) {
			printJob(view)
			if view.Status == "failed" {
				os.Exit(1)
			}
			return nil
		}
		time.Sleep(pollInterval)
	}
}

func isTerminal(status string) bool {
	return status == "done" || status == "failed" || status == "canceled"
}

func fetchJob(id string) (*jobView, error) {
	req, err := newRequest("GET", "/jobs/"+id, nil)
	if err != nil {
		return nil, err
	}
	resp, err := httpClient().Do(req)
	if err != nil {
		return nil, fmt.Errorf("request /jobs/%s: %w", id, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != 200 {
		return nil, fmt.Errorf("server returned %s: %s", resp.Status, raw)
	}

	var view jobView
	if err := json.Unmarshal(raw, &view); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &view, nil
}

func printJob(view *jobView) {
	if isJSONOutput() {
		raw, _ := json.Marshal(view)
		fmt.Println(string(raw))
		return
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Field", "Value")
	table.Append("ID", view.ID)
	table.Append("Status", colorStatus(view.Status))
	table.Append("Created At", view.CreatedAt)
	if view.StartedAt != nil {
		table.Append("Started At", *view.StartedAt)
	}
	if view.FinishedAt != nil {
		table.Append("Finished At", *view.FinishedAt)
	}
	if view.DurationMS != nil {
		table.Append("Duration ms", fmt.Sprintf("%d", *view.DurationMS))
	}
	if view.Error != nil && *view.Error != "" {
		table.Append("Error", *view.Error)
	}
	if len(view.Result) > 0 {
		table.Append("Result", string(view.Result))
	}
	table.Render()
}

func colorStatus(status string) string {
	switch status {
	case "done":
		return color.GreenString(status)
	case "failed":
		return color.RedString(status)
	case "canceled":
		return color.YellowString(status)
	case "running":
		return color.CyanString(status)
	default:
		return status
	}
}

func jobsCancelCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <job-id>",
		Short: "cancel a job via POST /jobs/{id}/cancel",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return doJobsCancel(args[0])
		},
	}
}

func doJobsCancel(id string) error {
	req, err := newRequest("POST", "/jobs/"+id+"/cancel", nil)
	if err != nil {
		return err
	}
	resp, err := httpClient().Do(req)
	if err != nil {
		return fmt.Errorf("request /jobs/%s/cancel: %w", id, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != 200 {
		return fmt.Errorf("server returned %s: %s", resp.Status, raw)
	}

	if isJSONOutput() {
		fmt.Println(string(raw))
		return nil
	}

	var out struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	fmt.Printf("job %s: %s\n", id, out.Status)
	return nil
}
