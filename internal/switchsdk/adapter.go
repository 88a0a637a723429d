// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package switchsdk is the typed facade over the vendor switch SDK
// (spec §4.1). The real SDK is a native, vendor-provided library out
// of scope for this repository (spec §1); this package only defines
// the narrow surface the control plane consumes and ships a
// deterministic in-memory Adapter (Sim) that exercises it, the same
// way the teacher splits a manager into a real implementation behind
// a build tag and a stub used where the backing system isn't
// available (internal/firewall/conntrack_stub.go,
// internal/qos/manager_stub.go in the source tree this was adapted
// from).
package switchsdk

import "context"

// SessionHandle scopes a sequence of table operations, mirroring the
// opaque session token the native SDK hands back from session_open().
type SessionHandle string

// EntryHandle identifies one installed table entry (divert, forward,
// or feature). Opaque from the caller's point of view.
type EntryHandle string

// PortCounterKind enumerates the five RMON counters spec §3 lists for
// a PortStats snapshot.
type PortCounterKind int

const (
	CounterPacketsIn PortCounterKind = iota
	CounterPacketsOut
	CounterOctetsIn
	CounterOctetsOut
	CounterPacketsDroppedBufferFull
)

// CounterValue is the packet/byte pair the SDK returns for a
// hash-indexed flow counter (used by the HHD picker, not the port
// RMON counters above).
type CounterValue struct {
	Packets uint64
	Bytes   uint64
}

// MatchSpec is the ternary match portion of a divert or forward table
// entry. Only the fields relevant to the entry's DivertType are
// populated; the rest are left zero (spec §4.3 step 4).
type MatchSpec struct {
	IngressDevPort uint32
	SrcIPv4        uint32
	SrcMask        uint32
	DstIPv4        uint32
	DstMask        uint32
}

// ActionSpec is the action portion of a divert or forward table entry.
type ActionSpec struct {
	EgressDevPort uint32
}

// DigestEntry is one learned-flow record inside a digest batch pushed
// asynchronously from the data plane (spec §3 Flow, §4.4).
type DigestEntry struct {
	SrcAddr  uint32
	SrcPort  uint16
	DstAddr  uint32
	DstPort  uint16
	Protocol uint8
	Hash1    uint16
	Hash2    uint16
}

// DigestBatch is the unit of work the SDK hands to the registered
// callback. It carries its own ack closure rather than requiring a
// second registered callback (spec §4.1's digest_register(sess,
// on_digest, ack) collapses naturally into this shape in Go): once the
// handler has finished processing Entries, it calls Ack to release the
// SDK's buffer.
type DigestBatch struct {
	Entries []DigestEntry

	ack func()
}

// Ack releases the SDK buffer backing this batch. Safe to call once;
// a nil ack closure (e.g. a batch built by hand in a test) makes this
// a no-op.
func (b DigestBatch) Ack() {
	if b.ack != nil {
		b.ack()
	}
}

// DigestHandler is invoked from an SDK-owned thread for every batch.
// Implementations must only record the batch in thread-safe state of
// their own (flowlearn.Learner appends under its mutex) rather than
// calling back into managers that might re-enter the SDK (spec §9
// "Callback boundary with the SDK"), and must call batch.Ack() once
// done with it.
type DigestHandler func(batch DigestBatch)

// Adapter is the complete set of vendor-SDK operations the control
// plane consumes (spec §4.1). Every method returns an error instead of
// a status code; per spec §7 error policy (ii), callers log a non-nil
// error and continue rather than aborting or panicking.
type Adapter interface {
	SessionOpen(ctx context.Context) (SessionHandle, error)

	PortAdd(devPort uint32, speedGbps int, fecDisabled bool) error
	PortAutonegSet(devPort uint32, enabled bool) error
	PortEnable(devPort uint32) error
	FPIdxToDevPort(chassisPort uint32) (uint32, error)
	PortStatGet(devPort uint32, kind PortCounterKind) (uint64, error)

	ForwardTableAdd(sess SessionHandle, ingressDevPort, egressDevPort uint32) (EntryHandle, error)

	DivertTableAdd(sess SessionHandle, match MatchSpec, priority uint32, action ActionSpec) (EntryHandle, error)
	DivertTableDelete(sess SessionHandle, handle EntryHandle) error
	DivertGetFirstEntryHandle(sess SessionHandle) (EntryHandle, bool, error)
	DivertGetNextEntryHandles(sess SessionHandle, after EntryHandle, n int) ([]EntryHandle, error)
	DivertGetEntryCount(sess SessionHandle) (int, error)
	DivertGetEntry(sess SessionHandle, handle EntryHandle) (MatchSpec, uint32, ActionSpec, error)

	FeatureTableAdd(sess SessionHandle, ingressDevPort uint32, hhd, flows bool) (EntryHandle, error)
	FeatureEnumerateAndDeleteAll(sess SessionHandle) error

	// CounterRead/CounterWrite address one of the two hash-indexed
	// counter tables the data plane keeps per learned flow (table is
	// 1 or 2, matching Flow.Hash1/Flow.Hash2).
	CounterRead(sess SessionHandle, table int, index uint32) (CounterValue, error)
	CounterWrite(sess SessionHandle, table int, index uint32, value CounterValue) error

	BloomFilterWrite(sess SessionHandle, filter int, index uint32, value uint8) error

	DigestRegister(sess SessionHandle, onDigest DigestHandler) error
	SetLearningTimeout(sess SessionHandle, microseconds uint64) error
}
