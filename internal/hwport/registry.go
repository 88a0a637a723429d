// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package hwport is the port registry (spec §4.2): it maps chassis
// ports to device ports, tracks which dev ports were configured, and
// reads per-port counters on demand. It holds no more concurrency than
// a single mutex protecting its dev-port list and translation cache.
package hwport

import (
	"sync"

	"grimm.is/taepctl/internal/config"
	"grimm.is/taepctl/internal/logging"
	"grimm.is/taepctl/internal/switchsdk"
)

// PortStats is the five-RMON-counter snapshot spec §3 defines.
type PortStats struct {
	PacketsIn                uint64
	PacketsOut               uint64
	OctetsIn                 uint64
	OctetsOut                uint64
	PacketsDroppedBufferFull uint64
}

// Registry holds configured dev ports and the chassis↔dev-port cache.
type Registry struct {
	sdk    switchsdk.Adapter
	sess   switchsdk.SessionHandle
	logger *logging.Logger

	mu               sync.Mutex
	devPorts         []uint32
	chassisByDevPort map[uint32]uint32
}

// New builds a Registry bound to an already-open SDK session.
func New(sdk switchsdk.Adapter, sess switchsdk.SessionHandle, logger *logging.Logger) *Registry {
	return &Registry{
		sdk:              sdk,
		sess:             sess,
		logger:           logger,
		chassisByDevPort: make(map[uint32]uint32),
	}
}

// ConfigurePorts translates every configured chassis port to a dev
// port and issues port_add, then autoneg_set, then port_enable in that
// order (spec §4.2). SDK errors are logged and do not abort the loop:
// the data plane may transiently reject table ops during
// reconfiguration (spec §4.1 error policy).
func (r *Registry) ConfigurePorts(ports []config.Port) {
	for _, p := range ports {
		devPort, err := r.sdk.FPIdxToDevPort(p.Number)
		if err != nil {
			r.logger.Error("failed to resolve dev port", "chassis_port", p.Number, "error", err)
			continue
		}
		r.mu.Lock()
		r.chassisByDevPort[devPort] = p.Number
		r.devPorts = append(r.devPorts, devPort)
		r.mu.Unlock()

		if err := r.sdk.PortAdd(devPort, p.Speed, p.ResolvedFECDisabled()); err != nil {
			r.logger.Error("port_add failed", "dev_port", devPort, "error", err)
		}
		if err := r.sdk.PortAutonegSet(devPort, !p.AutonegDisabled); err != nil {
			r.logger.Error("port_autoneg_set failed", "dev_port", devPort, "error", err)
		}
		if err := r.sdk.PortEnable(devPort); err != nil {
			r.logger.Error("port_enable failed", "dev_port", devPort, "error", err)
		}

		r.confirmLinkState(p.Number)
	}
}

// confirmLinkState is a best-effort cross-check against the host
// kernel's view of the port: when this process runs against a real
// ASIC whose dev ports are also visible as netdevs, the configured
// port should come up on both sides. A host without the matching
// netdev (e.g. the simulator) is expected and logged at debug only.
func (r *Registry) confirmLinkState(chassisPort uint32) {
	up, err := LinkState(chassisPort)
	if err != nil {
		r.logger.Debug("no host-visible netdev for chassis port", "chassis_port", chassisPort, "interface", InterfaceName(chassisPort), "error", err)
		return
	}
	if !up {
		r.logger.Warn("host-visible netdev is down after port_enable", "chassis_port", chassisPort, "interface", InterfaceName(chassisPort))
	}
}

// DevPorts returns every dev port configured so far, for the metrics
// collector's per-tick sweep.
func (r *Registry) DevPorts() []uint32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]uint32, len(r.devPorts))
	copy(out, r.devPorts)
	return out
}

// ChassisForDevPort returns the chassis port a dev port was configured
// from, if any.
func (r *Registry) ChassisForDevPort(devPort uint32) (uint32, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	chassis, ok := r.chassisByDevPort[devPort]
	return chassis, ok
}

// DevPortFor resolves a chassis port to a dev port through the SDK and
// records the translation in the cache, for callers (the L2 manager,
// HHD controller) that weren't given one at ConfigurePorts time, e.g.
// a divert egress port the operator never listed under `ports:`.
func (r *Registry) DevPortFor(chassisPort uint32) (uint32, error) {
	devPort, err := r.sdk.FPIdxToDevPort(chassisPort)
	if err != nil {
		return 0, err
	}
	r.mu.Lock()
	r.chassisByDevPort[devPort] = chassisPort
	r.mu.Unlock()
	return devPort, nil
}

// GetStatsForPort issues the five counter reads spec §4.2 specifies
// and returns a PortStats. A failed individual read is logged and
// treated as zero rather than aborting the whole snapshot.
func (r *Registry) GetStatsForPort(devPort uint32) PortStats {
	read := func(kind switchsdk.PortCounterKind) uint64 {
		v, err := r.sdk.PortStatGet(devPort, kind)
		if err != nil {
			r.logger.Warn("port_stat_get failed", "dev_port", devPort, "error", err)
			return 0
		}
		return v
	}

	return PortStats{
		PacketsIn:                read(switchsdk.CounterPacketsIn),
		PacketsOut:               read(switchsdk.CounterPacketsOut),
		OctetsIn:                 read(switchsdk.CounterOctetsIn),
		OctetsOut:                read(switchsdk.CounterOctetsOut),
		PacketsDroppedBufferFull: read(switchsdk.CounterPacketsDroppedBufferFull),
	}
}
