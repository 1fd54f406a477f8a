package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	LogDir        string        // logs directory
	LogLevel      string        // debug | info | warn | error
	MetricsAddr   string        // exposition bind address, e.g. ":9100"
	ConfigPath    string        // YAML file with the targets list
	MetricsTokens []string      // scrape tokens; empty disables auth
	Privileged    bool          // raw ICMP sockets instead of unprivileged UDP
	OTLPEndpoint  string        // host:port of an OTLP/HTTP collector; empty disables push
	OTLPInterval  time.Duration // push interval
	OTLPInsecure  bool          // plain HTTP to the collector
}

func FromEnv() Config {
	logDir := os.Getenv("LOG_DIR")
	if logDir == "" {
		logDir = "logs"
	}

	level := strings.ToLower(strings.TrimSpace(os.Getenv("LOG_LEVEL")))
	if level == "" {
		level = "info"
	}

	addr := os.Getenv("METRICS_ADDR")
	if addr == "" {
		addr = ":9100"
	}

	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "config.yaml"
	}

	otlpInterval := 15 * time.Second
	if v := os.Getenv("OTLP_INTERVAL_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil && ms > 0 {
			otlpInterval = time.Duration(ms) * time.Millisecond
		}
	}

	return Config{
		LogDir:        logDir,
		LogLevel:      level,
		MetricsAddr:   addr,
		ConfigPath:    path,
		MetricsTokens: splitList(os.Getenv("METRICS_TOKENS")),
		Privileged:    parseBool(os.Getenv("PINGPROBE_PRIVILEGED")),
		OTLPEndpoint:  strings.TrimSpace(os.Getenv("OTLP_ENDPOINT")),
		OTLPInterval:  otlpInterval,
		OTLPInsecure:  parseBool(os.Getenv("OTLP_INSECURE")),
	}
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}
