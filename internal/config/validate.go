// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package config

import (
	"fmt"

	"grimm.is/taepctl/internal/errors"
)

var validSpeeds = map[int]bool{10: true, 40: true, 100: true}

// Validate checks the structural invariants spec §6 requires of a
// loaded configuration: port speeds, connection endpoints, and
// connection direction must all be well-formed before bootstrap
// programs anything into the SDK.
func Validate(cfg *Config) error {
	if cfg.APIPort <= 0 || cfg.APIPort > 65535 {
		return errors.Errorf(errors.KindValidation, "api_port %d out of range", cfg.APIPort)
	}

	seen := make(map[uint32]bool, len(cfg.Ports))
	for i, p := range cfg.Ports {
		if !validSpeeds[p.Speed] {
			return errors.Errorf(errors.KindValidation, "ports[%d]: speed %d must be one of 10, 40, 100", i, p.Speed)
		}
		if seen[p.Number] {
			return errors.Errorf(errors.KindValidation, "ports[%d]: duplicate chassis port %d", i, p.Number)
		}
		seen[p.Number] = true
	}

	for i, c := range cfg.Connections {
		if c.Type != ConnectionUnidirectional && c.Type != ConnectionBidirectional {
			return errors.Errorf(errors.KindValidation, "connections[%d]: type must be %q or %q, got %q", i, ConnectionUnidirectional, ConnectionBidirectional, c.Type)
		}
		if !seen[c.From] {
			return errors.Errorf(errors.KindValidation, "connections[%d]: from port %d is not configured", i, c.From)
		}
		if !seen[c.To] {
			return errors.Errorf(errors.KindValidation, "connections[%d]: to port %d is not configured", i, c.To)
		}
	}

	if cfg.HHD.MaxNumberOfFlows == 0 {
		return errors.New(errors.KindValidation, "hhd.max-number-of-flows must be > 0")
	}
	if cfg.HHD.AnalysisWindowInSeconds == 0 {
		return errors.New(errors.KindValidation, "hhd.analysis-window-in-seconds must be > 0")
	}

	return nil
}

// PortByNumber returns the configured Port with the given chassis
// number, or an error if it isn't configured.
func (c Config) PortByNumber(number uint32) (Port, error) {
	for _, p := range c.Ports {
		if p.Number == number {
			return p, nil
		}
	}
	return Port{}, fmt.Errorf("chassis port %d is not configured", number)
}
