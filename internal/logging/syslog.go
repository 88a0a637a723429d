// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package logging

import (
	"fmt"
	"log/syslog"
)

// SyslogConfig controls forwarding of log records to a remote syslog
// collector. Disabled by default; the control plane runs fine with
// stderr logging alone.
type SyslogConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Protocol string // "udp" or "tcp"
	Tag      string
	Facility int
}

// DefaultSyslogConfig returns a disabled syslog configuration with the
// conventional defaults filled in, so enabling it only requires setting
// Host.
func DefaultSyslogConfig() SyslogConfig {
	return SyslogConfig{
		Enabled:  false,
		Port:     514,
		Protocol: "udp",
		Tag:      "taepctl",
		Facility: 1,
	}
}

// NewSyslogWriter dials a syslog daemon and returns a writer suitable
// for attaching to a Logger. Host is required; Port, Protocol, and Tag
// are defaulted if left zero.
func NewSyslogWriter(cfg SyslogConfig) (*syslog.Writer, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("logging: syslog host is required")
	}
	if cfg.Port == 0 {
		cfg.Port = 514
	}
	if cfg.Protocol == "" {
		cfg.Protocol = "udp"
	}
	if cfg.Tag == "" {
		cfg.Tag = "taepctl"
	}

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	return syslog.Dial(cfg.Protocol, addr, syslog.Priority(cfg.Facility)|syslog.LOG_INFO, cfg.Tag)
}
