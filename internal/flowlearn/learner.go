// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package flowlearn

import (
	"sync"
	"time"

	"grimm.is/taepctl/internal/logging"
	"grimm.is/taepctl/internal/switchsdk"
)

// PortResolver resolves a chassis port to a dev port.
// *hwport.Registry satisfies this.
type PortResolver interface {
	DevPortFor(chassisPort uint32) (uint32, error)
}

// Learner consumes digest batches pushed from the data plane, caps the
// learned-flow set per window, and resets the bloom filter for every
// flow it evicts. The digest callback runs on an SDK-owned thread, so
// every field below is guarded by mu (spec §4.4, §9 "Callback boundary
// with the SDK").
type Learner struct {
	sdk    switchsdk.Adapter
	sess   switchsdk.SessionHandle
	ports  PortResolver
	logger *logging.Logger

	mu       sync.Mutex
	flows    []Flow
	capFlows uint32
	arrivals uint32
	running  bool
	timer    *time.Timer
}

// New builds a Learner bound to an open SDK session.
func New(sdk switchsdk.Adapter, sess switchsdk.SessionHandle, ports PortResolver, logger *logging.Logger) *Learner {
	return &Learner{sdk: sdk, sess: sess, ports: ports, logger: logger}
}

// HandleDigest is the callback wired to switchsdk.Adapter.DigestRegister.
// It must never call back into another manager directly — it only
// mutates its own mutex-protected state — so the SDK thread can never
// re-enter a lock another manager holds (spec §9, §5 lock order).
func (l *Learner) HandleDigest(batch switchsdk.DigestBatch) {
	defer batch.Ack()

	for _, e := range batch.Entries {
		if e.SrcPort == 0 {
			// Guards against an all-zeros digest (spec §3).
			continue
		}
		l.addLearnedFlow(Flow{
			SrcAddr:  e.SrcAddr,
			SrcPort:  e.SrcPort,
			DstAddr:  e.DstAddr,
			DstPort:  e.DstPort,
			Protocol: e.Protocol,
			Hash1:    e.Hash1,
			Hash2:    e.Hash2,
		})
	}
}

// addLearnedFlow increments the arrival counter unconditionally and
// appends the flow only while under cap (spec §3: "current_number_of_flows
// counts every arrival seen ... it is an arrival counter, not a
// cardinality").
func (l *Learner) addLearnedFlow(f Flow) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.arrivals++
	if l.arrivals <= l.capFlows {
		l.flows = append(l.flows, f)
	} else {
		l.logger.Debug("learned-flow cap reached, dropping arrival", "cap", l.capFlows)
	}
}

// IsRunning reports whether a learning window is currently active.
func (l *Learner) IsRunning() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.running
}

// CurrentNumberOfFlows returns the arrival counter (spec §3; includes
// arrivals dropped for exceeding the cap).
func (l *Learner) CurrentNumberOfFlows() uint32 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.arrivals
}

// LearnedFlows returns a snapshot of the currently learned flows
// without resetting anything.
func (l *Learner) LearnedFlows() []Flow {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Flow, len(l.flows))
	copy(out, l.flows)
	return out
}

// StartFlowLearning implements set_flow_learning_for_time_window (spec
// §4.4) generalized to also cover set_hhd's unbounded variant: when
// windowSeconds is 0, no timer is scheduled and the window runs until
// an explicit Stop. hhdFeature selects whether the installed feature
// entry also turns on HHD processing for this ingress port (spec
// §4.1 feature_table_add bits).
//
// The two variants disagree on what a second call does while a window
// is already running. The windowed variant is a complete no-op (spec
// §8 invariant 6): it returns before resolving a port or touching the
// feature table. The unbounded variant (set_hhd arming a second
// ingress port) only gates the learned-flow buffer/cap reset behind
// the running check; the dev-port resolve and feature_table_add for
// the port just passed always happen, so a second set_hhd on a
// different port still gets its own feature-table entry.
func (l *Learner) StartFlowLearning(ingressChassis uint32, capFlows uint32, windowSeconds uint32, hhdFeature bool) error {
	l.mu.Lock()
	alreadyRunning := l.running
	if windowSeconds > 0 && alreadyRunning {
		l.mu.Unlock()
		return nil
	}
	if !alreadyRunning {
		l.capFlows = capFlows
		l.flows = make([]Flow, 0, capFlows)
		l.arrivals = 0
	}
	l.running = true
	l.mu.Unlock()

	devIngress, err := l.ports.DevPortFor(ingressChassis)
	if err != nil {
		l.logger.Error("failed to resolve ingress port for flow learning", "chassis_port", ingressChassis, "error", err)
		if !alreadyRunning {
			l.mu.Lock()
			l.running = false
			l.mu.Unlock()
		}
		return err
	}

	if _, err := l.sdk.FeatureTableAdd(l.sess, devIngress, hhdFeature, true); err != nil {
		l.logger.Error("feature_table_add failed", "dev_port", devIngress, "error", err)
	}

	if err := l.sdk.SetLearningTimeout(l.sess, 500_000); err != nil {
		l.logger.Error("set_learning_timeout failed", "error", err)
	}

	if windowSeconds > 0 {
		l.mu.Lock()
		l.timer = time.AfterFunc(time.Duration(windowSeconds)*time.Second, l.onWindowExpire)
		l.mu.Unlock()
	}
	return nil
}

// onWindowExpire fires once, window_seconds after StartFlowLearning.
// Per spec §9 Open Questions, reset_flows_table deletes *every*
// feature-table entry, not just the flows one; that quirk is
// preserved rather than fixed.
func (l *Learner) onWindowExpire() {
	if err := l.sdk.FeatureEnumerateAndDeleteAll(l.sess); err != nil {
		l.logger.Error("feature_enumerate_and_delete_all failed", "error", err)
	}
	l.GetLearnedFlowsAndReset()

	l.mu.Lock()
	l.running = false
	l.mu.Unlock()
}

// Stop halts an active learning window without touching the learned
// set; callers that also need the learned flows cleared (reset_hhd)
// should call GetLearnedFlowsAndReset themselves afterward.
func (l *Learner) Stop() {
	l.mu.Lock()
	if l.timer != nil {
		l.timer.Stop()
		l.timer = nil
	}
	l.running = false
	l.mu.Unlock()
}

// GetLearnedFlowsAndReset atomically swaps out the learned-flow list
// for a fresh, cap-sized buffer, resets the arrival counter, and
// clears the bloom-filter registers for every flow that was taken
// (spec §4.4, §8 invariant 2).
func (l *Learner) GetLearnedFlowsAndReset() []Flow {
	l.mu.Lock()
	taken := l.flows
	l.flows = make([]Flow, 0, l.capFlows)
	l.arrivals = 0
	l.mu.Unlock()

	for _, f := range taken {
		l.resetBloomForFlow(f)
	}
	return taken
}

// resetBloomForFlow clears both bloom-filter registers the data plane
// used to suppress redundant learning of this flow.
func (l *Learner) resetBloomForFlow(f Flow) {
	if err := l.sdk.BloomFilterWrite(l.sess, 1, uint32(f.Hash1), 0); err != nil {
		l.logger.Error("bloom_filter_write failed", "filter", 1, "index", f.Hash1, "error", err)
	}
	if err := l.sdk.BloomFilterWrite(l.sess, 2, uint32(f.Hash2), 0); err != nil {
		l.logger.Error("bloom_filter_write failed", "filter", 2, "index", f.Hash2, "error", err)
	}
}
