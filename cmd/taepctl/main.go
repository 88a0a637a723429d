// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Command taepctl is the control-plane daemon for the switch (spec §1,
// §5 "Control flow"): it loads the YAML configuration, opens an SDK
// session, configures ports and static forwarding, starts the HHD
// picker and metrics loops, starts the HTTP admin surface, then blocks
// forever.
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"grimm.is/taepctl/internal/api"
	"grimm.is/taepctl/internal/config"
	"grimm.is/taepctl/internal/flowlearn"
	"grimm.is/taepctl/internal/hhd"
	"grimm.is/taepctl/internal/hwport"
	"grimm.is/taepctl/internal/l2"
	"grimm.is/taepctl/internal/labeling"
	"grimm.is/taepctl/internal/logging"
	"grimm.is/taepctl/internal/metrics"
	"grimm.is/taepctl/internal/switchsdk"
)

func main() {
	configPath := flag.String("config", "/etc/taepctl/config.yaml", "Path to YAML config file")
	flag.Parse()

	// Config errors are the only fatal startup phase (spec §6 "Exit codes").
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("taepctl: failed to load config: %v", err)
	}

	logger := logging.New(logging.DefaultConfig())
	logger.Info("starting taepctl", "config_path", *configPath, "api_port", cfg.APIPort)

	sdk := switchsdk.NewSim()
	sess, err := sdk.SessionOpen(context.Background())
	if err != nil {
		logger.Error("failed to open SDK session", "error", err)
	}

	ports := hwport.New(sdk, sess, logger)
	ports.ConfigurePorts(cfg.Ports)

	labeler := labeling.New(cfg.EnableLabeling, logger)
	labeler.Reset(labeling.StartupResetIngress, labeling.StartupResetEgress)
	l2mgr := l2.New(sdk, sess, ports, labeler, logger)

	for _, conn := range cfg.Connections {
		bidirectional := conn.Type == config.ConnectionBidirectional
		if err := l2mgr.ConfigureForwarding(conn.From, conn.To, bidirectional); err != nil {
			logger.Error("failed to configure static forwarding", "from", conn.From, "to", conn.To, "error", err)
		}
	}

	learner := flowlearn.New(sdk, sess, ports, logger)
	if err := sdk.DigestRegister(sess, learner.HandleDigest); err != nil {
		logger.Error("failed to register digest handler", "error", err)
	}

	hhdCtl := hhd.New(sdk, sess, learner, l2mgr, logger, cfg.HHD.MaxNumberOfFlows, cfg.HHD.AnalysisWindowInSeconds)
	hhdCtl.Start()

	collector := metrics.New(ports, logger)
	collector.Run(5)

	promHandler := promhttp.HandlerFor(collector.Registerer(), promhttp.HandlerOpts{})
	server := api.New(l2mgr, hhdCtl, api.FlowLearnerAdapter{Learner: learner}, api.MetricsAdapter{Collector: collector}, promHandler, logger)

	addr := ":" + strconv.Itoa(cfg.APIPort)
	logger.Info("http admin surface listening", "addr", addr)
	if err := http.ListenAndServe(addr, server); err != nil {
		log.Fatalf("taepctl: http server failed: %v", err)
	}
}
