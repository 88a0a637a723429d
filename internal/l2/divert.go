// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package l2

import (
	"fmt"

	"grimm.is/taepctl/internal/logging"
	"grimm.is/taepctl/internal/switchsdk"
)

// PortResolver resolves chassis ports to dev ports. *hwport.Registry
// satisfies this; kept as an interface here so l2 doesn't import
// hwport back (hwport has no reason to know about divert rules).
type PortResolver interface {
	DevPortFor(chassisPort uint32) (uint32, error)
}

// Labeler receives best-effort telemetry events for divert installs
// and resets (spec §4.7). *labeling.Sink satisfies this; a nil Labeler
// is legal and every call becomes a no-op, matching "when disabled,
// all label calls are no-ops".
type Labeler interface {
	Divert(ingressChassis, egressChassis uint32, divertType DivertType, address string)
	Reset(ingressChassis, egressChassis uint32)
}

// Manager owns the divert and static-forward tables.
type Manager struct {
	sdk     switchsdk.Adapter
	sess    switchsdk.SessionHandle
	ports   PortResolver
	labeler Labeler
	logger  *logging.Logger
}

// New builds a Manager. labeler may be nil.
func New(sdk switchsdk.Adapter, sess switchsdk.SessionHandle, ports PortResolver, labeler Labeler, logger *logging.Logger) *Manager {
	return &Manager{sdk: sdk, sess: sess, ports: ports, labeler: labeler, logger: logger}
}

func (m *Manager) label(ingress, egress uint32, divertType DivertType, address string) {
	if m.labeler != nil {
		m.labeler.Divert(ingress, egress, divertType, address)
	}
}

func (m *Manager) labelReset(ingress, egress uint32) {
	if m.labeler != nil {
		m.labeler.Reset(ingress, egress)
	}
}

// ConfigureForwarding installs static forwarding between two chassis
// ports (spec §4.3 "Static forwarding"). One entry is installed for
// unidirectional, two for bidirectional, both keyed solely on ingress
// dev port.
func (m *Manager) ConfigureForwarding(from, to uint32, bidirectional bool) error {
	devFrom, err := m.ports.DevPortFor(from)
	if err != nil {
		return err
	}
	devTo, err := m.ports.DevPortFor(to)
	if err != nil {
		return err
	}

	if _, err := m.sdk.ForwardTableAdd(m.sess, devFrom, devTo); err != nil {
		m.logger.Error("forward_table_add failed", "from", from, "to", to, "error", err)
	}
	if bidirectional {
		if _, err := m.sdk.ForwardTableAdd(m.sess, devTo, devFrom); err != nil {
			m.logger.Error("forward_table_add failed", "from", to, "to", from, "error", err)
		}
	}
	return nil
}

// SetDivert installs one divert rule (spec §4.3 "Divert install").
// highPriority selects the auto priority (1) used by the HHD
// controller; operator-initiated HTTP installs always pass false.
func (m *Manager) SetDivert(divertType DivertType, chassisIngress, chassisEgress uint32, ipAddress string, prefixLength int, highPriority bool) error {
	devIngress, err := m.ports.DevPortFor(chassisIngress)
	if err != nil {
		return err
	}
	devEgress, err := m.ports.DevPortFor(chassisEgress)
	if err != nil {
		return err
	}

	addr, err := ParseIPv4(ipAddress)
	if err != nil {
		return err
	}
	mask, err := PrefixMask(prefixLength)
	if err != nil {
		return err
	}

	match := switchsdk.MatchSpec{IngressDevPort: devIngress}
	switch divertType {
	case DivertIPSrc:
		match.SrcIPv4, match.SrcMask = addr, mask
	case DivertIPDest:
		match.DstIPv4, match.DstMask = addr, mask
	}

	priority := PriorityOperator
	if highPriority {
		priority = PriorityAuto
	}

	if _, err := m.sdk.DivertTableAdd(m.sess, match, priority, switchsdk.ActionSpec{EgressDevPort: devEgress}); err != nil {
		m.logger.Error("divert_table_add failed", "ingress", chassisIngress, "egress", chassisEgress, "error", err)
		return err
	}

	m.label(chassisIngress, chassisEgress, divertType, fmt.Sprintf("%s/%d", ipAddress, prefixLength))
	return nil
}

// ResetDivertTable deletes every divert entry (spec §4.3 "Divert reset
// (all)"). It repeatedly reads the first handle and deletes it until
// the table reports empty; any SDK error aborts the loop in place
// rather than retrying, leaving the table however the SDK last left
// it (spec §4.3 "Failure semantics").
func (m *Manager) ResetDivertTable() {
	for {
		handle, ok, err := m.sdk.DivertGetFirstEntryHandle(m.sess)
		if err != nil {
			m.logger.Error("get_first_entry_handle failed during reset", "error", err)
			return
		}
		if !ok {
			break
		}
		if err := m.sdk.DivertTableDelete(m.sess, handle); err != nil {
			m.logger.Error("divert_table_delete failed during reset", "error", err)
			return
		}
	}
	m.labelReset(0, 0)
}

// ResetDivertForIngressEgress deletes only the divert entries whose
// ingress dev port and egress dev port match the given chassis ports
// (spec §4.3 "Selective divert reset"). Other match fields are not
// compared.
func (m *Manager) ResetDivertForIngressEgress(chassisIngress, chassisEgress uint32) error {
	devIngress, err := m.ports.DevPortFor(chassisIngress)
	if err != nil {
		return err
	}
	devEgress, err := m.ports.DevPortFor(chassisEgress)
	if err != nil {
		return err
	}

	count, err := m.sdk.DivertGetEntryCount(m.sess)
	if err != nil {
		m.logger.Error("get_entry_count failed", "error", err)
		return err
	}
	if count == 0 {
		return nil
	}

	first, ok, err := m.sdk.DivertGetFirstEntryHandle(m.sess)
	if err != nil {
		m.logger.Error("get_first_entry_handle failed", "error", err)
		return err
	}
	if !ok {
		return nil
	}

	handles := []switchsdk.EntryHandle{first}
	if count > 1 {
		rest, err := m.sdk.DivertGetNextEntryHandles(m.sess, first, count-1)
		if err != nil {
			m.logger.Error("get_next_entry_handles failed", "error", err)
			return err
		}
		handles = append(handles, rest...)
	}

	for _, h := range handles {
		match, _, action, err := m.sdk.DivertGetEntry(m.sess, h)
		if err != nil {
			m.logger.Error("get_entry failed", "error", err)
			continue
		}
		if match.IngressDevPort == devIngress && action.EgressDevPort == devEgress {
			if err := m.sdk.DivertTableDelete(m.sess, h); err != nil {
				m.logger.Error("divert_table_delete failed", "error", err)
			}
		}
	}

	m.labelReset(chassisIngress, chassisEgress)
	return nil
}
