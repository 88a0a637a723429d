// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"grimm.is/taepctl/internal/hwport"
)

// prometheusGauges mirrors the five PortStats RMON counters into
// per-chassis-port Prometheus gauges.
type prometheusGauges struct {
	packetsIn  *prometheus.GaugeVec
	packetsOut *prometheus.GaugeVec
	octetsIn   *prometheus.GaugeVec
	octetsOut  *prometheus.GaugeVec
	dropped    *prometheus.GaugeVec
}

func newPrometheusGauges() *prometheusGauges {
	return &prometheusGauges{
		packetsIn: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "taepctl_port_packets_in",
			Help: "Packets received on a chassis port.",
		}, []string{"chassis_port"}),
		packetsOut: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "taepctl_port_packets_out",
			Help: "Packets transmitted on a chassis port.",
		}, []string{"chassis_port"}),
		octetsIn: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "taepctl_port_octets_in",
			Help: "Bytes received on a chassis port.",
		}, []string{"chassis_port"}),
		octetsOut: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "taepctl_port_octets_out",
			Help: "Bytes transmitted on a chassis port.",
		}, []string{"chassis_port"}),
		dropped: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "taepctl_port_packets_dropped_buffer_full",
			Help: "Packets dropped on a chassis port due to buffer exhaustion.",
		}, []string{"chassis_port"}),
	}
}

func (g *prometheusGauges) mustRegister(reg *prometheus.Registry) {
	reg.MustRegister(g.packetsIn, g.packetsOut, g.octetsIn, g.octetsOut, g.dropped)
}

func (g *prometheusGauges) observe(chassisPort uint32, stats hwport.PortStats) {
	label := strconv.FormatUint(uint64(chassisPort), 10)
	g.packetsIn.WithLabelValues(label).Set(float64(stats.PacketsIn))
	g.packetsOut.WithLabelValues(label).Set(float64(stats.PacketsOut))
	g.octetsIn.WithLabelValues(label).Set(float64(stats.OctetsIn))
	g.octetsOut.WithLabelValues(label).Set(float64(stats.OctetsOut))
	g.dropped.WithLabelValues(label).Set(float64(stats.PacketsDroppedBufferFull))
}
