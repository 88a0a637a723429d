// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grimm.is/taepctl/internal/config"
	"grimm.is/taepctl/internal/flowlearn"
	"grimm.is/taepctl/internal/hhd"
	"grimm.is/taepctl/internal/hwport"
	"grimm.is/taepctl/internal/l2"
	"grimm.is/taepctl/internal/logging"
	"grimm.is/taepctl/internal/metrics"
	"grimm.is/taepctl/internal/switchsdk"
)

type identityResolver struct{}

func (identityResolver) DevPortFor(chassisPort uint32) (uint32, error) { return chassisPort, nil }

func newTestServer(t *testing.T) (*Server, *switchsdk.Sim, switchsdk.SessionHandle) {
	t.Helper()
	sim := switchsdk.NewSim()
	sess, err := sim.SessionOpen(context.Background())
	require.NoError(t, err)
	logger := logging.New(logging.DefaultConfig())

	reg := hwport.New(sim, sess, logger)
	reg.ConfigurePorts([]config.Port{{Number: 1, Speed: 100}, {Number: 2, Speed: 100}})

	l2mgr := l2.New(sim, sess, identityResolver{}, nil, logger)
	learner := flowlearn.New(sim, sess, identityResolver{}, logger)
	require.NoError(t, sim.DigestRegister(sess, learner.HandleDigest))
	hhdCtl := hhd.New(sim, sess, learner, l2mgr, logger, 10, 30)
	collector := metrics.New(reg, logger)

	srv := New(l2mgr, hhdCtl, FlowLearnerAdapter{Learner: learner}, MetricsAdapter{Collector: collector}, nil, logger)
	return srv, sim, sess
}

func doJSON(t *testing.T, srv *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func TestPing(t *testing.T) {
	srv, _, _ := newTestServer(t)
	rec := doJSON(t, srv, http.MethodGet, "/admin/ping", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "pong", rec.Body.String())
}

func TestDivertInstallThenPatch(t *testing.T) {
	srv, sim, sess := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/divert/dest", divertBody{
		PortIngress: 1, PortEgress: 2, IPAddress: "10.0.0.1", IPPrefixLength: 32,
	})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"result":"done"}`, rec.Body.String())

	count, _ := sim.DivertGetEntryCount(sess)
	assert.Equal(t, 1, count)

	rec = doJSON(t, srv, http.MethodPatch, "/divert/dest", divertBody{
		PortIngress: 1, PortEgress: 2, IPAddress: "10.0.0.2", IPPrefixLength: 32,
	})
	assert.Equal(t, http.StatusOK, rec.Code)

	count, _ = sim.DivertGetEntryCount(sess)
	assert.Equal(t, 1, count)
	h, _, _ := sim.DivertGetFirstEntryHandle(sess)
	match, _, _, _ := sim.DivertGetEntry(sess, h)
	assert.Equal(t, uint32(0x0A000002), match.DstIPv4)
}

func TestDivertReset(t *testing.T) {
	srv, sim, sess := newTestServer(t)
	doJSON(t, srv, http.MethodPost, "/divert/dest", divertBody{PortIngress: 1, PortEgress: 2, IPAddress: "10.0.0.1", IPPrefixLength: 32})

	rec := doJSON(t, srv, http.MethodDelete, "/divert", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	count, _ := sim.DivertGetEntryCount(sess)
	assert.Equal(t, 0, count)
}

func TestFlowsPostThenGet(t *testing.T) {
	srv, sim, _ := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/flows", flowsBody{PortIngress: 1, MaxNumberOfFlows: 5, TimeWindowInSeconds: 0})
	assert.Equal(t, http.StatusOK, rec.Code)

	sim.InjectDigest([]switchsdk.DigestEntry{
		{SrcAddr: 0x0A000001, SrcPort: 10, DstAddr: 2, DstPort: 80, Protocol: 6, Hash1: 1, Hash2: 2},
	})

	rec = doJSON(t, srv, http.MethodGet, "/flows", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	var flows []flowJSON
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &flows))
	require.Len(t, flows, 1)
	assert.Equal(t, "10.0.0.1", flows[0].SrcAddr)
	assert.Equal(t, uint16(10), flows[0].SrcPort)
}

func TestHHDDivertPostArmsThenResetClearsState(t *testing.T) {
	srv, sim, sess := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/hhd/src", hhdDivertBody{
		PortIngress: 10, DivertIngress: 10, DivertEgress: 11,
	})
	assert.Equal(t, http.StatusOK, rec.Code)

	sim.InjectDigest([]switchsdk.DigestEntry{
		{SrcAddr: 0x0A00000A, SrcPort: 1, DstAddr: 2, DstPort: 80, Protocol: 6, Hash1: 1, Hash2: 2},
	})
	sim.SetCounter(1, 1, switchsdk.CounterValue{Packets: 10})
	sim.SetCounter(2, 2, switchsdk.CounterValue{Packets: 10})

	rec = doJSON(t, srv, http.MethodDelete, "/hhd", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	count, _ := sim.DivertGetEntryCount(sess)
	assert.Equal(t, 0, count)
}

func TestHHDDivertPostArmsBothIngressPorts(t *testing.T) {
	srv, sim, _ := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/hhd/src", hhdDivertBody{
		PortIngress: 10, PortIngressDivert: 20, DivertIngress: 10, DivertEgress: 11,
	})
	assert.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, 1, sim.FeatureEntryCountForDevPort(10), "port_ingress should get its own feature-table entry")
	assert.Equal(t, 1, sim.FeatureEntryCountForDevPort(20), "port_ingress_divert should get its own feature-table entry")
}

func TestMetricsGet(t *testing.T) {
	srv, _, _ := newTestServer(t)
	rec := doJSON(t, srv, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	var views []MetricsView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &views))
	assert.Empty(t, views, "collector has not ticked yet")
}
