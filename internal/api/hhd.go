// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package api

import (
	"encoding/json"
	"net/http"

	"grimm.is/taepctl/internal/l2"
)

// hhdBody is the wire shape for POST /hhd (spec §6 "Hhd").
type hhdBody struct {
	PortIngress uint32 `json:"port_ingress"`
}

// hhdDivertBody is the wire shape for POST /hhd/{dest,src} (spec §6
// "HhdDivert"): both PortIngress and PortIngressDivert get flow
// learning turned on, then auto-divert is armed between
// DivertIngress/DivertEgress.
type hhdDivertBody struct {
	PortIngress       uint32 `json:"port_ingress"`
	PortIngressDivert uint32 `json:"port_ingress_divert"`
	DivertIngress     uint32 `json:"divert_ingress"`
	DivertEgress      uint32 `json:"divert_egress"`
}

func (s *Server) handleHHDPost(w http.ResponseWriter, r *http.Request) {
	var body hhdBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeBadRequest(w, err)
		return
	}
	if err := s.hhd.SetHHD(body.PortIngress); err != nil {
		s.logger.Error("set_hhd failed", "error", err)
	}
	writeDone(w)
}

func (s *Server) handleHHDDivertPost(divertType l2.DivertType) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body hhdDivertBody
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeBadRequest(w, err)
			return
		}
		if err := s.hhd.SetHHD(body.PortIngress); err != nil {
			s.logger.Error("set_hhd failed", "error", err)
		}
		if err := s.hhd.SetHHD(body.PortIngressDivert); err != nil {
			s.logger.Error("set_hhd failed", "error", err)
		}
		s.hhd.RunHHDDivert(body.DivertIngress, body.DivertEgress, divertType)
		writeDone(w)
	}
}

func (s *Server) handleHHDReset(w http.ResponseWriter, r *http.Request) {
	if err := s.hhd.ResetHHD(); err != nil {
		s.logger.Error("reset_hhd failed", "error", err)
	}
	writeDone(w)
}
