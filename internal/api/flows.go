// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package api

import (
	"encoding/json"
	"net/http"

	"grimm.is/taepctl/internal/l2"
)

// flowsBody is the wire shape for POST /flows (spec §6 "Flows").
type flowsBody struct {
	PortIngress         uint32 `json:"port_ingress"`
	MaxNumberOfFlows    uint32 `json:"max_number_of_flows"`
	TimeWindowInSeconds uint32 `json:"time_window_in_seconds"`
}

// flowJSON is the wire shape of one learned flow in the GET /flows
// response.
type flowJSON struct {
	SrcAddr  string `json:"src_addr"`
	SrcPort  uint16 `json:"src_port"`
	DstAddr  string `json:"dst_addr"`
	DstPort  uint16 `json:"dst_port"`
	Protocol uint8  `json:"protocol"`
	Hash1    uint16 `json:"hash1"`
	Hash2    uint16 `json:"hash2"`
}

func (s *Server) handleFlowsGet(w http.ResponseWriter, r *http.Request) {
	flows := s.flows.LearnedFlows()
	out := make([]flowJSON, 0, len(flows))
	for _, f := range flows {
		out = append(out, flowJSON{
			SrcAddr:  l2.FormatIPv4(f.SrcAddr),
			SrcPort:  f.SrcPort,
			DstAddr:  l2.FormatIPv4(f.DstAddr),
			DstPort:  f.DstPort,
			Protocol: f.Protocol,
			Hash1:    f.Hash1,
			Hash2:    f.Hash2,
		})
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(out)
}

func (s *Server) handleFlowsPost(w http.ResponseWriter, r *http.Request) {
	var body flowsBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeBadRequest(w, err)
		return
	}
	if err := s.flows.StartFlowLearning(body.PortIngress, body.MaxNumberOfFlows, body.TimeWindowInSeconds, false); err != nil {
		s.logger.Error("start flow learning failed", "error", err)
	}
	writeDone(w)
}
