// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package hwport

import (
	"fmt"
	"net"

	"github.com/vishvananda/netlink"
)

// InterfaceName is the host-side interface naming convention for a
// chassis port when this process runs against a real ASIC whose dev
// ports are also visible to the host kernel as netdevs (e.g. under the
// bf-sde's knet driver). Chassis port 3 maps to "swp3".
func InterfaceName(chassisPort uint32) string {
	return fmt.Sprintf("swp%d", chassisPort)
}

// LinkState reports whether the host-visible interface for a chassis
// port is currently up; Registry.ConfigurePorts calls it after
// port_enable to cross-check the host's view of the port. It is
// independent of the SDK's own port_enable state: a port can be
// enabled in the data plane while its host-side shadow netdev is
// administratively down, or vice versa.
func LinkState(chassisPort uint32) (up bool, err error) {
	link, err := netlink.LinkByName(InterfaceName(chassisPort))
	if err != nil {
		return false, fmt.Errorf("hwport: interface for chassis port %d not found: %w", chassisPort, err)
	}
	return link.Attrs().Flags&net.FlagUp != 0, nil
}
