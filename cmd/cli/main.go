package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"sort"
	"strings"
	"time"
)

type target struct {
	Type           string            `json:"type"`
	Address        string            `json:"address"`
	TimeoutMillis  int64             `json:"timeout_millis"`
	IntervalMillis int64             `json:"interval_millis"`
	Labels         map[string]string `json:"labels"`
}

func main() {
	api := os.Getenv("API_BASE")
	if api == "" {
		api = "http://localhost:9100"
	}

	req, err := http.NewRequest(http.MethodGet, strings.TrimRight(api, "/")+"/api/targets", nil)
	if err != nil {
		fmt.Println("Invalid API_BASE:", err)
		os.Exit(1)
	}
	if tok := os.Getenv("METRICS_TOKEN"); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		fmt.Println("Error contacting pingprobe:", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		fmt.Println("pingprobe returned status:", resp.Status)
		os.Exit(1)
	}

	var targets []target
	if err := json.NewDecoder(resp.Body).Decode(&targets); err != nil {
		fmt.Println("Bad response:", err)
		os.Exit(1)
	}

	for _, t := range targets {
		keys := make([]string, 0, len(t.Labels))
		for k := range t.Labels {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		var b strings.Builder
		for _, k := range keys {
			fmt.Fprintf(&b, " %s=%q", k, t.Labels[k])
		}
		fmt.Printf("%-5s %-40s every %5dms timeout %5dms%s\n",
			t.Type, t.Address, t.IntervalMillis, t.TimeoutMillis, b.String())
	}
}
