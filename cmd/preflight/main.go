// cmd/preflight/main.go
package main

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/multierr"

	"github.com/hamed0406/pingprobe/internal/config"
	"github.com/hamed0406/pingprobe/internal/domain"
)

func main() {
	fail := func(msg string) {
		fmt.Fprintln(os.Stderr, "✖", msg)
		os.Exit(1)
	}
	warn := func(msg string) { fmt.Fprintln(os.Stderr, "⚠", msg) }
	ok := func(msg string) { fmt.Println("✔", msg) }

	cfg := config.FromEnv()

	targets, err := config.LoadTargets(cfg.ConfigPath)
	if err != nil {
		for _, e := range multierr.Errors(err) {
			fmt.Fprintln(os.Stderr, "✖", e)
		}
		fail(cfg.ConfigPath + " is not usable.")
	}
	ok(fmt.Sprintf("%s: %d targets", cfg.ConfigPath, len(targets)))

	if schema := domain.LabelSchema(targets); len(schema) > 0 {
		ok("label schema: " + strings.Join(schema, ","))
	} else {
		ok("label schema: (none)")
	}

	if raw := os.Getenv("METRICS_TOKENS"); strings.Contains(raw, " ") {
		warn("METRICS_TOKENS contains spaces; use comma-separated with no spaces, e.g. key1,key2")
	}
	if len(cfg.MetricsTokens) == 0 {
		warn("METRICS_TOKENS empty; /metrics and /api are open to anyone who can reach " + cfg.MetricsAddr)
	} else {
		ok(fmt.Sprintf("METRICS_TOKENS: %d configured", len(cfg.MetricsTokens)))
	}

	hasPing := false
	for _, t := range targets {
		if t.Kind == domain.KindPing {
			hasPing = true
			break
		}
	}
	if hasPing && !cfg.Privileged {
		warn("ping targets use unprivileged ICMP; on Linux net.ipv4.ping_group_range must include this group.")
	}

	if cfg.OTLPEndpoint == "" {
		ok("OTLP push disabled")
	} else {
		ok("OTLP_ENDPOINT=" + cfg.OTLPEndpoint)
	}

	ok("preflight passed")
}
