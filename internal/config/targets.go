package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
	"os"
	"regexp"
	"strings"
	"time"

	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"github.com/hamed0406/pingprobe/internal/domain"
)

// Example:
//
//	targets:
//	  - type: ping
//	    address: 1.1.1.1
//	    timeout_millis: 2000
//	    interval_millis: 5000
//	    labels:
//	      - name: region
//	        value: eu
type fileConfig struct {
	Targets []targetRecord `yaml:"targets"`
}

type targetRecord struct {
	Type           string        `yaml:"type"`
	Address        string        `yaml:"address"`
	TimeoutMillis  *int          `yaml:"timeout_millis"`
	IntervalMillis *int          `yaml:"interval_millis"`
	Labels         []labelRecord `yaml:"labels"`
}

type labelRecord struct {
	Name  string `yaml:"name"`
	Value string `yaml:"value"`
}

var labelNameRE = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// names the metrics layer uses itself
var reservedLabels = map[string]bool{"address": true, "status": true}

// LoadTargets reads and validates the targets file at path.
func LoadTargets(path string) ([]domain.Target, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %q: %w", path, err)
	}
	targets, err := ParseTargets(data)
	if err != nil {
		return nil, fmt.Errorf("config %q: %w", path, err)
	}
	return targets, nil
}

// ParseTargets decodes YAML into targets with defaults applied. Every
// validation problem is reported, not only the first.
func ParseTargets(data []byte) ([]domain.Target, error) {
	var fc fileConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&fc); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("invalid yaml: %w", err)
	}
	if len(fc.Targets) == 0 {
		return nil, domain.ErrNoTargets
	}

	var errs error
	targets := make([]domain.Target, 0, len(fc.Targets))
	for i, rec := range fc.Targets {
		t, err := mapTarget(rec)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("targets[%d]: %w", i, err))
			continue
		}
		targets = append(targets, t)
	}
	if errs != nil {
		return nil, errs
	}
	return targets, nil
}

func mapTarget(rec targetRecord) (domain.Target, error) {
	var errs error

	addr := strings.TrimSpace(rec.Address)
	if addr == "" {
		errs = multierr.Append(errs, errors.New("address is required"))
	}

	kind, err := parseKind(rec.Type)
	errs = multierr.Append(errs, err)
	if addr != "" && err == nil {
		errs = multierr.Append(errs, checkAddress(kind, addr))
	}

	timeout := domain.DefaultTimeout
	if rec.TimeoutMillis != nil {
		if *rec.TimeoutMillis <= 0 {
			errs = multierr.Append(errs, fmt.Errorf("timeout_millis must be positive, got %d", *rec.TimeoutMillis))
		}
		timeout = time.Duration(*rec.TimeoutMillis) * time.Millisecond
	}
	interval := domain.DefaultInterval
	if rec.IntervalMillis != nil {
		if *rec.IntervalMillis <= 0 {
			errs = multierr.Append(errs, fmt.Errorf("interval_millis must be positive, got %d", *rec.IntervalMillis))
		}
		interval = time.Duration(*rec.IntervalMillis) * time.Millisecond
	}

	var labels map[string]string
	if len(rec.Labels) > 0 {
		labels = make(map[string]string, len(rec.Labels))
	}
	for _, l := range rec.Labels {
		switch {
		case !labelNameRE.MatchString(l.Name) || strings.HasPrefix(l.Name, "__"):
			errs = multierr.Append(errs, fmt.Errorf("invalid label name %q", l.Name))
		case reservedLabels[l.Name]:
			errs = multierr.Append(errs, fmt.Errorf("label name %q is reserved", l.Name))
		default:
			if _, dup := labels[l.Name]; dup {
				errs = multierr.Append(errs, fmt.Errorf("duplicate label %q", l.Name))
				continue
			}
			labels[l.Name] = l.Value
		}
	}

	if errs != nil {
		return domain.Target{}, errs
	}
	return domain.Target{
		Kind:     kind,
		Address:  addr,
		Timeout:  timeout,
		Interval: interval,
		Labels:   labels,
	}, nil
}

// checkAddress rejects addresses the prober for kind could never use.
func checkAddress(kind domain.Kind, addr string) error {
	switch kind {
	case domain.KindTCP:
		host, port, err := net.SplitHostPort(addr)
		if err != nil {
			return fmt.Errorf("tcp address %q: %w", addr, err)
		}
		if host == "" || port == "" {
			return fmt.Errorf("tcp address %q needs host:port", addr)
		}
	case domain.KindHTTP:
		u, err := url.Parse(addr)
		if err != nil {
			return fmt.Errorf("http address: %w", err)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return fmt.Errorf("http address %q needs an http or https scheme", addr)
		}
		if u.Host == "" {
			return fmt.Errorf("http address %q has no host", addr)
		}
	case domain.KindPing:
		ip, _, _ := strings.Cut(addr, "%") // zone
		if strings.ContainsAny(addr, "/ ") || (strings.Contains(addr, ":") && net.ParseIP(ip) == nil) {
			return fmt.Errorf("ping address %q is not a host name or IP", addr)
		}
	}
	return nil
}

func parseKind(raw string) (domain.Kind, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "ping", "icmp":
		return domain.KindPing, nil
	case "tcp":
		return domain.KindTCP, nil
	case "http", "https":
		return domain.KindHTTP, nil
	default:
		return "", fmt.Errorf("unknown type %q", raw)
	}
}
