// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package api is the HTTP admin surface (spec §4.8, §6): a stateless
// JSON router in front of the control-plane managers. No auth, no rate
// limiting — operators are assumed to be on a trusted management
// network.
package api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"grimm.is/taepctl/internal/clock"
	"grimm.is/taepctl/internal/l2"
	"grimm.is/taepctl/internal/logging"
)

// FlowLearner is what the /flows routes use; FlowLearnerAdapter
// implements it over *flowlearn.Learner.
type FlowLearner interface {
	StartFlowLearning(ingressChassis uint32, capFlows uint32, windowSeconds uint32, hhdFeature bool) error
	LearnedFlows() []FlowView
}

// FlowView mirrors flowlearn.Flow without importing the package
// directly, so api only depends on the shapes it actually renders.
type FlowView struct {
	SrcAddr  uint32
	SrcPort  uint16
	DstAddr  uint32
	DstPort  uint16
	Protocol uint8
	Hash1    uint16
	Hash2    uint16
}

// DivertManager is the subset of *l2.Manager the /divert routes use.
type DivertManager interface {
	SetDivert(divertType l2.DivertType, chassisIngress, chassisEgress uint32, ipAddress string, prefixLength int, highPriority bool) error
	ResetDivertTable()
	ResetDivertForIngressEgress(chassisIngress, chassisEgress uint32) error
}

// HHDController is the subset of *hhd.Controller the /hhd routes use.
type HHDController interface {
	SetHHD(chassisIngress uint32) error
	RunHHDDivert(ingress, egress uint32, divertType l2.DivertType)
	ResetHHD() error
}

// MetricsReader is what the /metrics route uses; MetricsAdapter
// implements it over *metrics.Collector.
type MetricsReader interface {
	GetPortStats() []MetricsView
}

// MetricsView mirrors metrics.Metrics for the same reason FlowView
// mirrors flowlearn.Flow.
type MetricsView struct {
	ChassisPort              uint32
	PacketsIn                uint64
	PacketsOut               uint64
	OctetsIn                 uint64
	OctetsOut                uint64
	PacketsDroppedBufferFull uint64
}

// Server is the stateless JSON router (spec §4.8).
type Server struct {
	divert      DivertManager
	hhd         HHDController
	flows       FlowLearner
	metrics     MetricsReader
	promHandler http.Handler
	logger      *logging.Logger
	startedAt   time.Time

	mux *http.ServeMux
}

// New builds a Server and wires every route spec §6 requires.
// promHandler serves the Prometheus exposition format at /metrics/prom
// next to the spec's own /metrics JSON route; a nil promHandler leaves
// that route unregistered.
func New(divert DivertManager, hhdCtl HHDController, flows FlowLearner, metrics MetricsReader, promHandler http.Handler, logger *logging.Logger) *Server {
	s := &Server{divert: divert, hhd: hhdCtl, flows: flows, metrics: metrics, promHandler: promHandler, logger: logger, startedAt: clock.Now()}
	s.initRoutes()
	return s
}

func (s *Server) initRoutes() {
	mux := http.NewServeMux()
	s.mux = mux

	mux.HandleFunc("GET /admin/ping", s.handlePing)

	mux.HandleFunc("GET /metrics", s.handleMetricsGet)
	if s.promHandler != nil {
		mux.Handle("/metrics/prom", s.promHandler)
	}

	mux.HandleFunc("POST /divert/dest", s.handleDivertInstall(l2.DivertIPDest))
	mux.HandleFunc("POST /divert/src", s.handleDivertInstall(l2.DivertIPSrc))
	mux.HandleFunc("PATCH /divert/dest", s.handleDivertPatch(l2.DivertIPDest))
	mux.HandleFunc("PATCH /divert/src", s.handleDivertPatch(l2.DivertIPSrc))
	mux.HandleFunc("DELETE /divert", s.handleDivertReset)

	mux.HandleFunc("GET /flows", s.handleFlowsGet)
	mux.HandleFunc("POST /flows", s.handleFlowsPost)

	mux.HandleFunc("POST /hhd", s.handleHHDPost)
	mux.HandleFunc("POST /hhd/dest", s.handleHHDDivertPost(l2.DivertIPDest))
	mux.HandleFunc("POST /hhd/src", s.handleHHDDivertPost(l2.DivertIPSrc))
	mux.HandleFunc("DELETE /hhd", s.handleHHDReset)
}

// ServeHTTP lets *Server be passed straight to http.ListenAndServe.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// handlePing answers health probes. The body is the fixed "pong"
// string operators script against; process uptime rides along in a
// header so it doesn't disturb that contract.
func (s *Server) handlePing(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.Header().Set("X-Uptime-Seconds", strconv.FormatInt(int64(clock.Since(s.startedAt).Seconds()), 10))
	fmt.Fprint(w, "pong")
}

func writeDone(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"result":"done"}`))
}

func writeBadRequest(w http.ResponseWriter, err error) {
	http.Error(w, err.Error(), http.StatusBadRequest)
}
