package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

// runFlags mirrors apitypes.Request's JSON shape closely enough for cobra
// flags, grounded on cmd/ffrtmp/cmd/jobs.go's flag-to-request-field mapping.
type runFlags struct {
	n            int
	dist         string
	elemType     string
	repeats      int
	warmup       int
	threads      int
	assertSorted bool
	baseline     string
	algorithms   []string
	plugins      []string
	timeoutMS    int
}

func runCmd() *cobra.Command {
	f := &runFlags{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "run a benchmark synchronously against POST /run",
		RunE: func(cmd *cobra.Command, args []string) error {
			return doRun(f)
		},
	}
	bindRunFlags(cmd, f)
	return cmd
}

func bindRunFlags(cmd *cobra.Command, f *runFlags) {
	cmd.Flags().IntVar(&f.n, "n", 10000, "number of elements to sort")
	cmd.Flags().StringVar(&f.dist, "dist", "random", "input distribution")
	cmd.Flags().StringVar(&f.elemType, "elem-type", "i32", "element type")
	cmd.Flags().IntVar(&f.repeats, "repeats", 5, "timed repeats per algorithm")
	cmd.Flags().IntVar(&f.warmup, "warmup", 0, "untimed warmup passes")
	cmd.Flags().IntVar(&f.threads, "threads", 0, "parallel sort threads (0 = engine default)")
	cmd.Flags().BoolVar(&f.assertSorted, "assert-sorted", false, "verify output is sorted after each pass")
	cmd.Flags().StringVar(&f.baseline, "baseline", "", "algorithm name to compute speedup against")
	cmd.Flags().StringSliceVar(&f.algorithms, "algo", nil, "algorithm name(s); repeatable")
	cmd.Flags().StringSliceVar(&f.plugins, "plugin", nil, "plugin .so path(s); repeatable")
	cmd.Flags().IntVar(&f.timeoutMS, "timeout-ms", 0, "request timeout in milliseconds (0 = server default)")
}

func buildRequestBody(f *runFlags) (map[string]any, error) {
	body := map[string]any{
		"N":             f.n,
		"dist":          f.dist,
		"elem_type":     f.elemType,
		"repeats":       f.repeats,
		"warmup":        f.warmup,
		"threads":       f.threads,
		"assert_sorted": f.assertSorted,
	}
	if f.baseline != "" {
		body["baseline"] = f.baseline
	}
	if len(f.algorithms) > 0 {
		body["algorithms"] = f.algorithms
	}
	if len(f.plugins) > 0 {
		body["plugins"] = f.plugins
	}
	if f.timeoutMS > 0 {
		body["timeout_ms"] = f.timeoutMS
	}
	return body, nil
}

func doRun(f *runFlags) error {
	body, err := buildRequestBody(f)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := newRequest("POST", "/run", payload)
	if err != nil {
		return err
	}
	resp, err := httpClient().Do(req)
	if err != nil {
		return fmt.Errorf("request /run: %w", err)
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

	var rows []struct {
		Algo  string `json:"algo"`
		N     int    `json:"N"`
		Dist  string `json:"dist"`
		Stats struct {
			MedianMS float64 `json:"median_ms"`
			MeanMS   float64 `json:"mean_ms"`
			MinMS    float64 `json:"min_ms"`
			MaxMS    float64 `json:"max_ms"`
			StddevMS float64 `json:"stddev_ms"`
		} `json:"stats"`
		SpeedupVsBaseline *float64 `json:"speedup_vs_baseline,omitempty"`
	}
	if err := json.Unmarshal(raw, &rows); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Algo", "N", "Median ms", "Mean ms", "Stddev ms", "Speedup")
	for _, row := range rows {
		speedup := "-"
		if row.SpeedupVsBaseline != nil {
			speedup = color.GreenString("%.2fx", *row.SpeedupVsBaseline)
		}
		table.Append(
			row.Algo,
			fmt.Sprintf("%d", row.N),
			fmt.Sprintf("%.3f", row.Stats.MedianMS),
			fmt.Sprintf("%.3f", row.Stats.MeanMS),
			fmt.Sprintf("%.3f", row.Stats.StddevMS),
			speedup,
		)
	}
	table.Render()
	return nil
}
