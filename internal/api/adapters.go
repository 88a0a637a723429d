// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package api

import (
	"grimm.is/taepctl/internal/flowlearn"
	"grimm.is/taepctl/internal/metrics"
)

// FlowLearnerAdapter adapts *flowlearn.Learner to the FlowLearner
// interface this package depends on, so api never imports flowlearn's
// concrete Flow type into its public surface.
type FlowLearnerAdapter struct {
	Learner *flowlearn.Learner
}

func (a FlowLearnerAdapter) StartFlowLearning(ingressChassis uint32, capFlows uint32, windowSeconds uint32, hhdFeature bool) error {
	return a.Learner.StartFlowLearning(ingressChassis, capFlows, windowSeconds, hhdFeature)
}

func (a FlowLearnerAdapter) LearnedFlows() []FlowView {
	flows := a.Learner.LearnedFlows()
	out := make([]FlowView, len(flows))
	for i, f := range flows {
		out[i] = FlowView(f)
	}
	return out
}

// MetricsAdapter adapts *metrics.Collector to the MetricsReader
// interface.
type MetricsAdapter struct {
	Collector *metrics.Collector
}

func (a MetricsAdapter) GetPortStats() []MetricsView {
	snaps := a.Collector.GetPortStats()
	out := make([]MetricsView, len(snaps))
	for i, m := range snaps {
		out[i] = MetricsView{
			ChassisPort:              m.ChassisPort,
			PacketsIn:                m.Stats.PacketsIn,
			PacketsOut:               m.Stats.PacketsOut,
			OctetsIn:                 m.Stats.OctetsIn,
			OctetsOut:                m.Stats.OctetsOut,
			PacketsDroppedBufferFull: m.Stats.PacketsDroppedBufferFull,
		}
	}
	return out
}
