// Command sortbenchctl is the thin client CLI SPEC_FULL.md §4.12 calls for:
// it submits and polls jobs and inspects metadata/limits, grounded on
// cmd/ffrtmp/cmd/root.go's cobra+viper command tree. Plotting and CSV
// export stay external collaborators per spec.md §1; this CLI only talks
// JSON to the server and renders it.
package main

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	serverURL    string
	apiKey       string
	outputFormat string
	cfgFile      string
)

var rootCmd = &cobra.Command{
	Use:   "sortbenchctl",
	Short: "CLI client for the sort-benchmarking service",
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default $HOME/.sortbenchctl/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "server base URL (default from config or http://localhost:8080)")
	rootCmd.PersistentFlags().StringVar(&apiKey, "api-key", "", "API key for protected routes")
	rootCmd.PersistentFlags().StringVar(&outputFormat, "output", "table", "output format: table or json")

	rootCmd.AddCommand(runCmd(), jobsCmd(), metaCmd(), limitsCmd())
}

// initConfig reads ~/.sortbenchctl/config.yaml, grounded on
// cmd/ffrtmp/cmd/config.go's yaml.v3 config shape, and fills in any flag the
// caller left unset.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else if home, err := os.UserHomeDir(); err == nil {
		viper.AddConfigPath(filepath.Join(home, ".sortbenchctl"))
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}
	viper.AutomaticEnv()
	viper.BindEnv("server_url", "SORTBENCHCTL_SERVER")
	viper.BindEnv("api_key", "SORTBENCHCTL_API_KEY")

	_ = viper.ReadInConfig()

	if serverURL == "" {
		serverURL = viper.GetString("server_url")
	}
	if apiKey == "" {
		apiKey = viper.GetString("api_key")
	}
	if serverURL == "" {
		serverURL = "http://localhost:8080"
	}
}

func isJSONOutput() bool { return outputFormat == "json" }

// newRequest builds an HTTP request against serverURL+path, attaching the
// configured API key as X-API-Key when set.
func newRequest(method, path string, body []byte) (*http.Request, error) {
	var bodyReader io.Reader
	if body != nil {
		bodyReader = bytes.NewReader(body)
	}
	req, err := http.NewRequest(method, serverURL+path, bodyReader)
	if err != nil {
		return nil, err
	}
	if apiKey != "" {
		req.Header.Set("X-API-Key", apiKey)
	}
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

func httpClient() *http.Client {
	return &http.Client{Timeout: 60 * time.Second}
}
