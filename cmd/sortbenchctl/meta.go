package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func metaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "meta",
		Short: "list supported element types, distributions, and algorithms via GET /meta",
		RunE: func(cmd *cobra.Command, args []string) error {
			return doGetPrint("/meta")
		},
	}
}

func limitsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "limits",
		Short: "show server-enforced request limits via GET /limits",
		RunE: func(cmd *cobra.Command, args []string) error {
			return doGetPrint("/limits")
		},
	}
}

// doGetPrint issues a GET and, in table mode, renders the decoded JSON
// object as a two-column table with each value rendered as YAML, since
// neither /meta nor /limits has a single natural tabular row shape; in json
// mode it prints the raw response body.
func doGetPrint(path string) error {
	req, err := newRequest("GET", path, nil)
	if err != nil {
		return err
	}
	resp, err := httpClient().Do(req)
	if err != nil {
		return fmt.Errorf("request %s: %w", path, err)
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

	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Field", "Value")
	for k, v := range obj {
		rendered, err := yaml.Marshal(v)
		if err != nil {
			table.Append(k, fmt.Sprintf("%v", v))
			continue
		}
		table.Append(k, string(rendered))
	}
	table.Render()
	return nil
}
