// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package hhd is the heavy-hitter-detection controller (spec §4.5): a
// periodic picker that reads two hash counters per learned flow,
// elects the heaviest, and keeps at most one auto-installed divert
// rule pointed at it.
package hhd

import (
	"sync"
	"time"

	"grimm.is/taepctl/internal/flowlearn"
	"grimm.is/taepctl/internal/l2"
	"grimm.is/taepctl/internal/logging"
	"grimm.is/taepctl/internal/switchsdk"
)

// FlowLearner is the subset of *flowlearn.Learner the picker drives.
type FlowLearner interface {
	StartFlowLearning(ingressChassis uint32, capFlows uint32, windowSeconds uint32, hhdFeature bool) error
	LearnedFlows() []flowlearn.Flow
	GetLearnedFlowsAndReset() []flowlearn.Flow
	Stop()
}

// DivertManager is the subset of *l2.Manager the picker drives. The
// picker only ever calls through this seam, and only after releasing
// its own lock (spec §5).
type DivertManager interface {
	SetDivert(divertType l2.DivertType, chassisIngress, chassisEgress uint32, ipAddress string, prefixLength int, highPriority bool) error
	ResetDivertForIngressEgress(chassisIngress, chassisEgress uint32) error
}

// Controller owns the HHD state machine: {max_number_of_flows,
// analysis_window_seconds, divert_on, divert_type, divert_ingress_port,
// divert_egress_port, last_heavy_flow} (spec §3).
type Controller struct {
	sdk     switchsdk.Adapter
	sess    switchsdk.SessionHandle
	learner FlowLearner
	l2mgr   DivertManager
	logger  *logging.Logger

	maxFlows      uint32
	windowSeconds uint32

	mu            sync.Mutex
	divertOn      bool
	divertType    l2.DivertType
	divertIngress uint32
	divertEgress  uint32
	lastHeavyFlow *flowlearn.Flow

	stopCh chan struct{}
	doneCh chan struct{}
}

// New builds a Controller. maxFlows and windowSeconds come from the
// `hhd.max-number-of-flows` / `hhd.analysis-window-in-seconds` config
// keys (spec §6).
func New(sdk switchsdk.Adapter, sess switchsdk.SessionHandle, learner FlowLearner, l2mgr DivertManager, logger *logging.Logger, maxFlows, windowSeconds uint32) *Controller {
	return &Controller{
		sdk:           sdk,
		sess:          sess,
		learner:       learner,
		l2mgr:         l2mgr,
		logger:        logger,
		maxFlows:      maxFlows,
		windowSeconds: windowSeconds,
	}
}

// Start spawns the periodic pick_hhd worker, ticking every
// analysis_window_seconds (spec §4.5 "Initialization"). Calling Start
// twice leaks a second ticker goroutine; callers are expected to call
// it exactly once, from bootstrap.
func (c *Controller) Start() {
	c.stopCh = make(chan struct{})
	c.doneCh = make(chan struct{})
	go c.run()
}

// Stop halts the picker loop. It does not touch divert or flow-learner
// state; that is reset_hhd's job.
func (c *Controller) Stop() {
	if c.stopCh == nil {
		return
	}
	close(c.stopCh)
	<-c.doneCh
}

func (c *Controller) run() {
	defer close(c.doneCh)

	interval := time.Duration(c.windowSeconds) * time.Second
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.pickHHD()
		case <-c.stopCh:
			return
		}
	}
}

// pickHHD runs one election (spec §4.5 "Per-iteration algorithm").
func (c *Controller) pickHHD() {
	c.mu.Lock()
	if !c.divertOn {
		c.mu.Unlock()
		return
	}
	divertType := c.divertType
	ingress := c.divertIngress
	egress := c.divertEgress
	prevHeavy := c.lastHeavyFlow
	c.mu.Unlock()

	flows := c.learner.LearnedFlows()

	var elected *flowlearn.Flow
	var bestScore uint64
	for i := range flows {
		score, err := c.scoreFlow(flows[i])
		if err != nil {
			c.logger.Error("counter_read failed during hhd election", "error", err)
			continue
		}
		if score == 0 {
			continue
		}
		if elected == nil || score > bestScore {
			elected = &flows[i]
			bestScore = score
		}
	}

	if elected != nil && (prevHeavy == nil || !sameFlow(*prevHeavy, *elected)) {
		if err := c.l2mgr.ResetDivertForIngressEgress(ingress, egress); err != nil {
			c.logger.Error("selective divert reset failed during hhd election", "error", err)
		}

		addr := elected.SrcAddr
		if divertType == l2.DivertIPDest {
			addr = elected.DstAddr
		}
		if err := c.l2mgr.SetDivert(divertType, ingress, egress, l2.FormatIPv4(addr), 32, true); err != nil {
			c.logger.Error("divert install failed during hhd election", "error", err)
		} else {
			c.mu.Lock()
			c.lastHeavyFlow = elected
			c.mu.Unlock()
		}
	}

	drained := c.learner.GetLearnedFlowsAndReset()
	for _, f := range drained {
		c.zeroCounters(f)
	}
}

// scoreFlow reads both hash counters with HW sync and returns
// min(packets[hash1], packets[hash2]) — the count-min-style score that
// suppresses hash collisions (spec §4.5 step 3).
func (c *Controller) scoreFlow(f flowlearn.Flow) (uint64, error) {
	c1, err := c.sdk.CounterRead(c.sess, 1, uint32(f.Hash1))
	if err != nil {
		return 0, err
	}
	c2, err := c.sdk.CounterRead(c.sess, 2, uint32(f.Hash2))
	if err != nil {
		return 0, err
	}
	if c1.Packets < c2.Packets {
		return c1.Packets, nil
	}
	return c2.Packets, nil
}

// zeroCounters resets both hash counters for a drained flow (spec
// §4.5 step 6: "prepares the next window with a clean slate").
func (c *Controller) zeroCounters(f flowlearn.Flow) {
	if err := c.sdk.CounterWrite(c.sess, 1, uint32(f.Hash1), switchsdk.CounterValue{}); err != nil {
		c.logger.Error("counter_write failed", "table", 1, "index", f.Hash1, "error", err)
	}
	if err := c.sdk.CounterWrite(c.sess, 2, uint32(f.Hash2), switchsdk.CounterValue{}); err != nil {
		c.logger.Error("counter_write failed", "table", 2, "index", f.Hash2, "error", err)
	}
}

func sameFlow(a, b flowlearn.Flow) bool { return a == b }

// SetHHD starts unbounded flow learning on a port and turns on its
// hhd feature-table bit (spec §4.5 "set_hhd"). It does not itself turn
// on the divert machinery — that is RunHHDDivert's job.
func (c *Controller) SetHHD(chassisIngress uint32) error {
	return c.learner.StartFlowLearning(chassisIngress, c.maxFlows, 0, true)
}

// RunHHDDivert enables the divert side of HHD (spec §4.5
// "run_hhd_divert"): subsequent ticks will elect and install against
// (ingress, egress) using divertType.
func (c *Controller) RunHHDDivert(ingress, egress uint32, divertType l2.DivertType) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.divertOn = true
	c.divertType = divertType
	c.divertIngress = ingress
	c.divertEgress = egress
}

// ResetHHD implements spec §4.5 "reset_hhd": removes every
// feature-table entry, stops flow learning, zeros counters for every
// currently-learned flow, clears last_heavy_flow, and — if divert was
// on — clears the corresponding auto-divert too.
func (c *Controller) ResetHHD() error {
	if err := c.sdk.FeatureEnumerateAndDeleteAll(c.sess); err != nil {
		c.logger.Error("feature_enumerate_and_delete_all failed during hhd reset", "error", err)
	}
	c.learner.Stop()

	drained := c.learner.GetLearnedFlowsAndReset()
	for _, f := range drained {
		c.zeroCounters(f)
	}

	c.mu.Lock()
	wasDivertOn := c.divertOn
	ingress := c.divertIngress
	egress := c.divertEgress
	c.divertOn = false
	c.lastHeavyFlow = nil
	c.mu.Unlock()

	if wasDivertOn {
		if err := c.l2mgr.ResetDivertForIngressEgress(ingress, egress); err != nil {
			c.logger.Error("selective divert reset failed during hhd reset", "error", err)
			return err
		}
	}
	return nil
}

// LastHeavyFlow returns the currently-elected heaviest flow, if any.
func (c *Controller) LastHeavyFlow() (flowlearn.Flow, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.lastHeavyFlow == nil {
		return flowlearn.Flow{}, false
	}
	return *c.lastHeavyFlow, true
}
