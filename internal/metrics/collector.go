// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package metrics is the metrics collector (spec §4.6): it polls every
// configured dev-port's PortStats on a tick and keeps the latest
// snapshot behind a single mutex, copied on read. It also mirrors each
// snapshot into a set of Prometheus gauges so the admin surface can
// expose both the spec's own JSON shape and a /metrics/prom endpoint.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"grimm.is/taepctl/internal/clock"
	"grimm.is/taepctl/internal/hwport"
	"grimm.is/taepctl/internal/logging"
)

// PortReader is the subset of *hwport.Registry the collector polls.
type PortReader interface {
	DevPorts() []uint32
	ChassisForDevPort(devPort uint32) (uint32, bool)
	GetStatsForPort(devPort uint32) hwport.PortStats
}

// Metrics is the chassis-port → PortStats mapping spec §3 describes.
type Metrics struct {
	ChassisPort uint32
	Stats       hwport.PortStats
}

// Collector owns the metrics map, mutated only by its own tick.
type Collector struct {
	ports  PortReader
	logger *logging.Logger

	gauges *prometheusGauges

	mu    sync.Mutex
	snaps map[uint32]hwport.PortStats

	stopCh chan struct{}
	doneCh chan struct{}
}

// New builds a Collector. Call Run to start the periodic poll.
func New(ports PortReader, logger *logging.Logger) *Collector {
	return &Collector{
		ports:  ports,
		logger: logger,
		gauges: newPrometheusGauges(),
		snaps:  make(map[uint32]hwport.PortStats),
	}
}

// Registerer exposes the collector's Prometheus collectors for a
// caller-owned registry (kept separate from the default global
// registry so tests don't collide with each other).
func (c *Collector) Registerer() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	c.gauges.mustRegister(reg)
	return reg
}

// Run spawns the periodic poll worker (spec §4.6 "run(poll_interval_s)").
func (c *Collector) Run(pollIntervalSeconds uint32) {
	c.stopCh = make(chan struct{})
	c.doneCh = make(chan struct{})
	interval := time.Duration(pollIntervalSeconds) * time.Second
	if interval <= 0 {
		interval = time.Second
	}
	go c.loop(interval)
}

// Stop halts the poll worker.
func (c *Collector) Stop() {
	if c.stopCh == nil {
		return
	}
	close(c.stopCh)
	<-c.doneCh
}

func (c *Collector) loop(interval time.Duration) {
	defer close(c.doneCh)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.poll()
		case <-c.stopCh:
			return
		}
	}
}

// poll iterates every configured dev-port once, in no particular order
// (spec §4.6: "no ordering or consistency guarantees between ports
// within one tick").
func (c *Collector) poll() {
	start := clock.Now()
	for _, devPort := range c.ports.DevPorts() {
		chassis, ok := c.ports.ChassisForDevPort(devPort)
		if !ok {
			continue
		}
		stats := c.ports.GetStatsForPort(devPort)

		c.mu.Lock()
		c.snaps[chassis] = stats
		c.mu.Unlock()

		c.gauges.observe(chassis, stats)
	}
	c.logger.Debug("metrics poll complete", "elapsed", clock.Since(start))
}

// GetPortStats returns a copy of the current metrics map (spec §4.6
// "get_port_stats()").
func (c *Collector) GetPortStats() []Metrics {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Metrics, 0, len(c.snaps))
	for chassis, stats := range c.snaps {
		out = append(out, Metrics{ChassisPort: chassis, Stats: stats})
	}
	return out
}
