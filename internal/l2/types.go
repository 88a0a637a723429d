// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package l2 is the L2 manager / divert core (spec §4.3): it owns the
// divert and static-forward tables and is the hardest component in
// the control plane — ordered, priority-aware rule installation keyed
// by (ingress port, ingress-masked IPv4 address), with the operator
// vs. auto tie-break spec §3 describes.
package l2

import "fmt"

// DivertType selects which of the match spec's two IPv4 fields is
// populated (spec §3).
type DivertType int

const (
	DivertIPSrc DivertType = iota
	DivertIPDest
)

func (t DivertType) String() string {
	switch t {
	case DivertIPSrc:
		return "src"
	case DivertIPDest:
		return "dest"
	default:
		return fmt.Sprintf("DivertType(%d)", int(t))
	}
}

// Priority values spec §3 assigns to operator vs. auto-installed
// divert rules. Lower numeric value wins in the underlying ternary
// table.
const (
	PriorityOperator uint32 = 10
	PriorityAuto     uint32 = 1
)
