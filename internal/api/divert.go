// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package api

import (
	"encoding/json"
	"net/http"

	"grimm.is/taepctl/internal/l2"
)

// divertBody is the wire shape for POST/PATCH /divert/{dest,src}
// (spec §6 "Divert").
type divertBody struct {
	PortIngress    uint32 `json:"port_ingress"`
	PortEgress     uint32 `json:"port_egress"`
	IPAddress      string `json:"ip_address"`
	IPPrefixLength int    `json:"ip_prefix_length"`
}

func (s *Server) handleDivertInstall(divertType l2.DivertType) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body divertBody
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeBadRequest(w, err)
			return
		}
		if err := s.divert.SetDivert(divertType, body.PortIngress, body.PortEgress, body.IPAddress, body.IPPrefixLength, false); err != nil {
			s.logger.Error("divert install failed", "error", err)
		}
		writeDone(w)
	}
}

// handleDivertPatch implements the selective-reset-then-install
// semantics spec scenario S2 describes: a PATCH on the same
// (ingress, egress) pair first removes every divert rule on that pair,
// operator or auto alike, then installs the new operator rule.
func (s *Server) handleDivertPatch(divertType l2.DivertType) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body divertBody
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeBadRequest(w, err)
			return
		}
		if err := s.divert.ResetDivertForIngressEgress(body.PortIngress, body.PortEgress); err != nil {
			s.logger.Error("selective divert reset failed", "error", err)
		}
		if err := s.divert.SetDivert(divertType, body.PortIngress, body.PortEgress, body.IPAddress, body.IPPrefixLength, false); err != nil {
			s.logger.Error("divert install failed", "error", err)
		}
		writeDone(w)
	}
}

func (s *Server) handleDivertReset(w http.ResponseWriter, r *http.Request) {
	s.divert.ResetDivertTable()
	writeDone(w)
}
