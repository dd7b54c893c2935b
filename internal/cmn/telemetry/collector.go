// Package telemetry exports the rotation state of the configured policies as
// Prometheus metrics.
package telemetry

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/nbsynth/nbsynth/internal/core"
)

// StateLoader reads the persisted state of a policy.
type StateLoader interface {
	Load(ctx context.Context, p *core.Policy) (*core.PolicyState, error)
}

// Collector implements prometheus.Collector interface
type Collector struct {
	version  string
	policies []*core.Policy
	store    StateLoader

	infoDesc            *prometheus.Desc
	lastFullDesc        *prometheus.Desc
	synthsRemainingDesc *prometheus.Desc
	failureCountDesc    *prometheus.Desc
	blockedDesc         *prometheus.Desc
	stateErrorDesc      *prometheus.Desc
}

// NewCollector creates a collector over the given policies.
func NewCollector(version string, policies []*core.Policy, store StateLoader) *Collector {
	policyLabels := []string{"policy", "client"}
	return &Collector{
		version:  version,
		policies: policies,
		store:    store,

		infoDesc: prometheus.NewDesc(
			"nbsynth_info",
			"nbsynth build information",
			[]string{"version", "go_version"},
			nil,
		),
		lastFullDesc: prometheus.NewDesc(
			"nbsynth_last_full_timestamp_seconds",
			"Start time of the last successful full backup by kind",
			[]string{"policy", "client", "kind"},
			nil,
		),
		synthsRemainingDesc: prometheus.NewDesc(
			"nbsynth_synths_remaining",
			"Synthetic fulls left before the next real full",
			policyLabels,
			nil,
		),
		failureCountDesc: prometheus.NewDesc(
			"nbsynth_failure_count",
			"Consecutive failed full backup attempts",
			policyLabels,
			nil,
		),
		blockedDesc: prometheus.NewDesc(
			"nbsynth_policy_blocked",
			"Whether the policy reached the failure threshold and needs an operator",
			policyLabels,
			nil,
		),
		stateErrorDesc: prometheus.NewDesc(
			"nbsynth_state_error",
			"Whether the state file of the policy could not be read",
			policyLabels,
			nil,
		),
	}
}

// Describe implements prometheus.Collector
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.infoDesc
	ch <- c.lastFullDesc
	ch <- c.synthsRemainingDesc
	ch <- c.failureCountDesc
	ch <- c.blockedDesc
	ch <- c.stateErrorDesc
}

// Collect implements prometheus.Collector
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ch <- prometheus.MustNewConstMetric(
		c.infoDesc,
		prometheus.GaugeValue,
		1,
		c.version,
		runtime.Version(),
	)

	for _, p := range c.policies {
		c.collectPolicy(ctx, ch, p)
	}
}

func (c *Collector) collectPolicy(ctx context.Context, ch chan<- prometheus.Metric, p *core.Policy) {
	st, err := c.store.Load(ctx, p)
	if err != nil {
		ch <- prometheus.MustNewConstMetric(c.stateErrorDesc, prometheus.GaugeValue, 1, p.PolicyName, p.ClientName)
		return
	}
	ch <- prometheus.MustNewConstMetric(c.stateErrorDesc, prometheus.GaugeValue, 0, p.PolicyName, p.ClientName)

	// A full that never ran has no timestamp.
	for kind, at := range map[core.BackupKind]time.Time{
		core.BackupReal:      st.LastRealFull,
		core.BackupSynthetic: st.LastSynthFull,
	} {
		if at.IsZero() {
			continue
		}
		ch <- prometheus.MustNewConstMetric(
			c.lastFullDesc,
			prometheus.GaugeValue,
			float64(at.Unix()),
			p.PolicyName, p.ClientName, kind.String(),
		)
	}

	ch <- prometheus.MustNewConstMetric(c.synthsRemainingDesc, prometheus.GaugeValue,
		float64(st.SynthsRemaining), p.PolicyName, p.ClientName)
	ch <- prometheus.MustNewConstMetric(c.failureCountDesc, prometheus.GaugeValue,
		float64(st.FailureCount), p.PolicyName, p.ClientName)

	blocked := float64(0)
	if st.FailureCount >= core.FailureThreshold {
		blocked = 1
	}
	ch <- prometheus.MustNewConstMetric(c.blockedDesc, prometheus.GaugeValue, blocked, p.PolicyName, p.ClientName)
}

// NewRegistry creates a new Prometheus registry with the nbsynth collector.
// Runtime collectors are left out; node_exporter reports its own.
func NewRegistry(collector *Collector) *prometheus.Registry {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collector)
	return registry
}

// WriteTextfile gathers the registry into file in the text exposition
// format. The file is replaced atomically.
func WriteTextfile(file string, registry *prometheus.Registry) error {
	if err := os.MkdirAll(filepath.Dir(file), 0o750); err != nil {
		return fmt.Errorf("failed to create metrics directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(file, registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile %s: %w", file, err)
	}
	return nil
}
