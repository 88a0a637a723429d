// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package flowlearn is the flow learner (spec §4.4): it consumes
// data-plane digest batches, caps the learned set per window, and
// drives bloom-filter resets on eviction.
package flowlearn

// Flow is one learned 7-tuple (spec §3). Two flows are equal iff every
// field matches, hashes included (plain struct equality, as the HHD
// picker uses to compare elections). The learner does not deduplicate
// arrivals: every accepted digest entry is appended, equal or not.
type Flow struct {
	SrcAddr  uint32
	SrcPort  uint16
	DstAddr  uint32
	DstPort  uint16
	Protocol uint8
	Hash1    uint16
	Hash2    uint16
}
