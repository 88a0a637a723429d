// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package labeling is the best-effort telemetry sink (spec §4.7): when
// enabled, every divert install or reset is posted as a line-protocol
// string to a local telegraf endpoint. Posting is fire-and-forget —
// send errors are swallowed, matching spec §7 error taxonomy (iv).
package labeling

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"grimm.is/taepctl/internal/l2"
	"grimm.is/taepctl/internal/logging"
)

const endpoint = "http://localhost:8086/write?db=telegraf"

// StartupResetIngress/StartupResetEgress are the sentinel ingress/egress
// values the original labeling manager reports on its unconditional
// startup reset broadcast, which has no single (ingress, egress) pair
// to name.
const (
	StartupResetIngress uint32 = 999
	StartupResetEgress  uint32 = 999
)

// Sink posts label events. A disabled Sink is legal and every method
// becomes a no-op, matching "when disabled, all label calls are no-ops".
type Sink struct {
	enabled bool
	client  *http.Client
	logger  *logging.Logger

	// endpointOverride lets tests point the sink at an httptest server
	// instead of the real telegraf endpoint.
	endpointOverride string
}

// New builds a Sink. When enabled is false every method is a no-op.
func New(enabled bool, logger *logging.Logger) *Sink {
	return &Sink{
		enabled: enabled,
		client:  &http.Client{Timeout: 2 * time.Second},
		logger:  logger,
	}
}

// Divert emits a divert-install label event for (ingress, egress). The
// address carries the matched prefix (e.g. "10.0.0.1/32") as the
// event's data field, matching the original labeling_manager's
// label_divert, which reports the installed address rather than a
// static marker.
func (s *Sink) Divert(ingressChassis, egressChassis uint32, divertType l2.DivertType, address string) {
	if !s.enabled {
		return
	}
	line := fmt.Sprintf("label,type=divert,ingress=%d,egress=%d,divert-type=%s data=\"%s\"",
		ingressChassis, egressChassis, divertType, address)
	s.post(line)
}

// Reset emits a reset label event for (ingress, egress). A full-table
// reset passes (0, 0) — there is no single ingress/egress pair to
// report.
func (s *Sink) Reset(ingressChassis, egressChassis uint32) {
	if !s.enabled {
		return
	}
	line := fmt.Sprintf("label,type=reset,ingress=%d,egress=%d data=\"reset\"", ingressChassis, egressChassis)
	s.post(line)
}

// post fires one short-lived worker per event (spec §5 scheduling
// model: "labeling POST workers, short-lived, one per event").
func (s *Sink) post(line string) {
	url := endpoint
	if s.endpointOverride != "" {
		url = s.endpointOverride
	}
	go func() {
		resp, err := s.client.Post(url, "text/plain", bytes.NewBufferString(line))
		if err != nil {
			s.logger.Debug("labeling post failed", "error", err)
			return
		}
		resp.Body.Close()
	}()
}
