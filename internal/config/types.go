// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package config loads and validates the YAML configuration file read
// once at process startup (spec §6). It has no dependency on the SDK
// or any manager; it only describes the data.
package config

// ConnectionType selects whether static forwarding is installed in one
// or both directions between two chassis ports.
type ConnectionType string

const (
	ConnectionUnidirectional ConnectionType = "unidirectional"
	ConnectionBidirectional  ConnectionType = "bidirectional"
)

// Port describes one chassis port to configure at bootstrap.
type Port struct {
	Number          uint32 `yaml:"number"`
	Speed           int    `yaml:"speed"`
	AutonegDisabled bool   `yaml:"autoneg-disabled"`
	FECDisabled     *bool  `yaml:"fec-disabled"`
}

// ResolvedFECDisabled applies the conditional default from spec §6:
// speed==100 defaults to FEC enabled (disabled=false), every other
// speed defaults to FEC disabled (disabled=true), unless the operator
// set the field explicitly.
func (p Port) ResolvedFECDisabled() bool {
	if p.FECDisabled != nil {
		return *p.FECDisabled
	}
	return p.Speed != 100
}

// Connection describes one static-forwarding pair applied at bootstrap.
type Connection struct {
	From uint32         `yaml:"from"`
	To   uint32         `yaml:"to"`
	Type ConnectionType `yaml:"type"`
}

// HHD holds the heavy-hitter-detection tunables.
type HHD struct {
	MaxNumberOfFlows        uint32 `yaml:"max-number-of-flows"`
	AnalysisWindowInSeconds uint32 `yaml:"analysis-window-in-seconds"`
}

// Config is the top-level structure loaded from the YAML config file.
type Config struct {
	BFConfigFile   string       `yaml:"bf-config-file"`
	BFBinPath      string       `yaml:"bf-bin-path"`
	APIPort        int          `yaml:"api_port"`
	EnableLabeling bool         `yaml:"enable-labeling"`
	Ports          []Port       `yaml:"ports"`
	Connections    []Connection `yaml:"connections"`
	HHD            HHD          `yaml:"hhd"`
}

// Default returns the configuration in effect when no YAML file
// overrides a given key (spec §6 "Default" column).
func Default() Config {
	return Config{
		BFConfigFile: "/root/taep_controller/p4/l2_switching.conf",
		BFBinPath:    "/root/bf-sde/install",
		APIPort:      8100,
		HHD: HHD{
			MaxNumberOfFlows:        100,
			AnalysisWindowInSeconds: 30,
		},
	}
}
