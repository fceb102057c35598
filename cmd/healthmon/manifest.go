package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/healthmon/healthmon/internal/monitor"
)

// targetManifest is the YAML description of the probe targets to monitor.
type targetManifest struct {
	Systems []targetSpec `yaml:"systems"`
}

// targetSpec describes one probe target.
type targetSpec struct {
	// Name is the stable system id
	Name string `yaml:"name"`
	// Type is "http" or "tcp"
	Type string `yaml:"type"`
	// URL is the endpoint for http targets (GET, 2xx/3xx = healthy)
	URL string `yaml:"url"`
	// Address is host:port for tcp targets
	Address string `yaml:"address"`
	// CriticalLevel is low|medium|high|critical (default: medium)
	CriticalLevel string `yaml:"critical_level"`
	// Timeout bounds a single probe attempt (default: 3s)
	Timeout time.Duration `yaml:"-"`
	// RawTimeout is the duration string from the manifest ("2s", "500ms");
	// yaml cannot decode duration strings into time.Duration directly
	RawTimeout string `yaml:"timeout"`
}

func loadManifest(path string) (*targetManifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read target manifest: %w", err)
	}

	var manifest targetManifest
	if err := yaml.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("failed to parse target manifest: %w", err)
	}
	if len(manifest.Systems) == 0 {
		return nil, fmt.Errorf("target manifest %s declares no systems", path)
	}

	for i := range manifest.Systems {
		spec := &manifest.Systems[i]
		if spec.Name == "" {
			return nil, fmt.Errorf("target %d has no name", i)
		}
		if spec.RawTimeout != "" {
			d, err := time.ParseDuration(spec.RawTimeout)
			if err != nil {
				return nil, fmt.Errorf("target %q has invalid timeout %q: %w", spec.Name, spec.RawTimeout, err)
			}
			spec.Timeout = d
		}
		switch spec.Type {
		case "http":
			if spec.URL == "" {
				return nil, fmt.Errorf("http target %q has no url", spec.Name)
			}
		case "tcp":
			if spec.Address == "" {
				return nil, fmt.Errorf("tcp target %q has no address", spec.Name)
			}
		default:
			return nil, fmt.Errorf("target %q has unknown type %q", spec.Name, spec.Type)
		}
	}
	return &manifest, nil
}

// probeTarget is the handle registered for each manifest entry. It satisfies
// the initialization contract once construction succeeded.
type probeTarget struct {
	spec targetSpec
}

func (t *probeTarget) Initialized() bool { return true }

// registerTargets registers every manifest entry with the monitor.
func registerTargets(m *monitor.Monitor, manifest *targetManifest) error {
	for _, spec := range manifest.Systems {
		timeout := spec.Timeout
		if timeout <= 0 {
			timeout = 3 * time.Second
		}

		var probe monitor.HealthCheckFunc
		switch spec.Type {
		case "http":
			probe = httpProbe(spec.URL, timeout)
		case "tcp":
			probe = tcpProbe(spec.Address, timeout)
		}

		err := m.Register(spec.Name, &probeTarget{spec: spec}, monitor.RegisterOptions{
			CriticalLevel: monitor.CriticalLevel(spec.CriticalLevel),
			HealthCheck:   probe,
		})
		if err != nil {
			return fmt.Errorf("failed to register %q: %w", spec.Name, err)
		}
	}
	return nil
}

// httpProbe reports healthy for 2xx/3xx responses.
func httpProbe(url string, timeout time.Duration) monitor.HealthCheckFunc {
	client := &http.Client{Timeout: timeout}
	return func(ctx context.Context) (monitor.ProbeResult, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return monitor.ProbeResult{}, err
		}
		resp, err := client.Do(req)
		if err != nil {
			return monitor.ProbeResult{}, err
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 400 {
			return monitor.ProbeResult{OK: false, Details: fmt.Sprintf("HTTP %d from %s", resp.StatusCode, url)}, nil
		}
		return monitor.ProbeResult{OK: true, Details: fmt.Sprintf("HTTP %d", resp.StatusCode)}, nil
	}
}

// tcpProbe reports healthy when the address accepts a connection.
func tcpProbe(address string, timeout time.Duration) monitor.HealthCheckFunc {
	dialer := &net.Dialer{Timeout: timeout}
	return func(ctx context.Context) (monitor.ProbeResult, error) {
		conn, err := dialer.DialContext(ctx, "tcp", address)
		if err != nil {
			return monitor.ProbeResult{}, err
		}
		_ = conn.Close()
		return monitor.ProbeResult{OK: true, Details: "connection accepted"}, nil
	}
}
