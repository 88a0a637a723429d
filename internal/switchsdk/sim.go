// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package switchsdk

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// divertEntry is a stored divert-table row.
type divertEntry struct {
	match    MatchSpec
	priority uint32
	action   ActionSpec
}

// Sim is a deterministic, in-memory Adapter. It stands in for the
// vendor SDK binding that would otherwise be provided by a cgo wrapper
// around the native library (out of scope per spec §1); it is used
// both by the bundled taepctl binary when no real ASIC is present and
// by every test in this repository, the same role the teacher's
// *_stub.go files play for netlink/nftables-backed managers on
// platforms where the real backend isn't available.
type Sim struct {
	mu sync.Mutex

	nextDevPort      uint32
	devPortByChassis map[uint32]uint32
	configuredPorts  map[uint32]bool

	portCounters map[uint32]map[PortCounterKind]uint64

	forwardEntries map[EntryHandle]struct{ ingress, egress uint32 }
	forwardOrder   []EntryHandle

	divertEntries map[EntryHandle]divertEntry
	divertOrder   []EntryHandle

	featureEntries map[EntryHandle]struct {
		ingress     uint32
		hhd, flows  bool
	}

	counters [2]map[uint32]CounterValue
	bloom    [2]map[uint32]uint8

	onDigest DigestHandler
	acked    int

	learningTimeoutUs uint64
}

// NewSim constructs an empty simulated switch.
func NewSim() *Sim {
	return &Sim{
		nextDevPort:      1,
		devPortByChassis: make(map[uint32]uint32),
		configuredPorts:  make(map[uint32]bool),
		portCounters:     make(map[uint32]map[PortCounterKind]uint64),
		forwardEntries:   make(map[EntryHandle]struct{ ingress, egress uint32 }),
		divertEntries:    make(map[EntryHandle]divertEntry),
		featureEntries: make(map[EntryHandle]struct {
			ingress    uint32
			hhd, flows bool
		}),
		counters: [2]map[uint32]CounterValue{make(map[uint32]CounterValue), make(map[uint32]CounterValue)},
		bloom:    [2]map[uint32]uint8{make(map[uint32]uint8), make(map[uint32]uint8)},
	}
}

func (s *Sim) SessionOpen(ctx context.Context) (SessionHandle, error) {
	return SessionHandle(uuid.New().String()), nil
}

// devPortFor returns the stable dev-port for a chassis port, assigning
// one on first sight (fp_idx_to_dev_port in the real SDK is a pure
// lookup into a fixed front-panel map; the simulator allocates
// sequentially instead since it has no physical layout to consult).
func (s *Sim) devPortFor(chassisPort uint32) uint32 {
	if dp, ok := s.devPortByChassis[chassisPort]; ok {
		return dp
	}
	dp := s.nextDevPort
	s.nextDevPort++
	s.devPortByChassis[chassisPort] = dp
	return dp
}

func (s *Sim) PortAdd(devPort uint32, speedGbps int, fecDisabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.configuredPorts[devPort] = true
	if s.portCounters[devPort] == nil {
		s.portCounters[devPort] = make(map[PortCounterKind]uint64)
	}
	return nil
}

func (s *Sim) PortAutonegSet(devPort uint32, enabled bool) error { return nil }

func (s *Sim) PortEnable(devPort uint32) error { return nil }

func (s *Sim) FPIdxToDevPort(chassisPort uint32) (uint32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.devPortFor(chassisPort), nil
}

func (s *Sim) PortStatGet(devPort uint32, kind PortCounterKind) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.configuredPorts[devPort] {
		return 0, fmt.Errorf("switchsdk: dev port %d not configured", devPort)
	}
	return s.portCounters[devPort][kind], nil
}

// BumpPortCounter lets tests (and a future stats-injection endpoint)
// simulate traffic arriving on a dev port.
func (s *Sim) BumpPortCounter(devPort uint32, kind PortCounterKind, delta uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.portCounters[devPort] == nil {
		s.portCounters[devPort] = make(map[PortCounterKind]uint64)
	}
	s.portCounters[devPort][kind] += delta
}

// ForwardEntries returns every forward-table entry in insertion order,
// for tests asserting on static-forwarding installs (spec scenario S1).
func (s *Sim) ForwardEntries() []struct{ Ingress, Egress uint32 } {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]struct{ Ingress, Egress uint32 }, 0, len(s.forwardOrder))
	for _, h := range s.forwardOrder {
		e := s.forwardEntries[h]
		out = append(out, struct{ Ingress, Egress uint32 }{e.ingress, e.egress})
	}
	return out
}

func (s *Sim) ForwardTableAdd(sess SessionHandle, ingressDevPort, egressDevPort uint32) (EntryHandle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h := EntryHandle(uuid.New().String())
	s.forwardEntries[h] = struct{ ingress, egress uint32 }{ingressDevPort, egressDevPort}
	s.forwardOrder = append(s.forwardOrder, h)
	return h, nil
}

func (s *Sim) DivertTableAdd(sess SessionHandle, match MatchSpec, priority uint32, action ActionSpec) (EntryHandle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h := EntryHandle(uuid.New().String())
	s.divertEntries[h] = divertEntry{match: match, priority: priority, action: action}
	s.divertOrder = append(s.divertOrder, h)
	return h, nil
}

func (s *Sim) DivertTableDelete(sess SessionHandle, handle EntryHandle) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.divertEntries[handle]; !ok {
		return fmt.Errorf("switchsdk: divert entry %s not found", handle)
	}
	delete(s.divertEntries, handle)
	for i, h := range s.divertOrder {
		if h == handle {
			s.divertOrder = append(s.divertOrder[:i], s.divertOrder[i+1:]...)
			break
		}
	}
	return nil
}

func (s *Sim) DivertGetFirstEntryHandle(sess SessionHandle) (EntryHandle, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.divertOrder) == 0 {
		return "", false, nil
	}
	return s.divertOrder[0], true, nil
}

func (s *Sim) DivertGetNextEntryHandles(sess SessionHandle, after EntryHandle, n int) ([]EntryHandle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := -1
	for i, h := range s.divertOrder {
		if h == after {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, fmt.Errorf("switchsdk: divert entry %s not found", after)
	}
	start := idx + 1
	end := start + n
	if end > len(s.divertOrder) {
		end = len(s.divertOrder)
	}
	if start >= end {
		return nil, nil
	}
	out := make([]EntryHandle, end-start)
	copy(out, s.divertOrder[start:end])
	return out, nil
}

func (s *Sim) DivertGetEntryCount(sess SessionHandle) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.divertOrder), nil
}

func (s *Sim) DivertGetEntry(sess SessionHandle, handle EntryHandle) (MatchSpec, uint32, ActionSpec, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.divertEntries[handle]
	if !ok {
		return MatchSpec{}, 0, ActionSpec{}, fmt.Errorf("switchsdk: divert entry %s not found", handle)
	}
	return e.match, e.priority, e.action, nil
}

func (s *Sim) FeatureTableAdd(sess SessionHandle, ingressDevPort uint32, hhd, flows bool) (EntryHandle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h := EntryHandle(uuid.New().String())
	s.featureEntries[h] = struct {
		ingress    uint32
		hhd, flows bool
	}{ingressDevPort, hhd, flows}
	return h, nil
}

// FeatureEntryCountForDevPort reports how many feature-table entries
// are installed for the given ingress dev port, for test assertions.
func (s *Sim) FeatureEntryCountForDevPort(devPort uint32) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, e := range s.featureEntries {
		if e.ingress == devPort {
			n++
		}
	}
	return n
}

func (s *Sim) FeatureEnumerateAndDeleteAll(sess SessionHandle) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.featureEntries = make(map[EntryHandle]struct {
		ingress    uint32
		hhd, flows bool
	})
	return nil
}

func (s *Sim) counterTable(table int) (map[uint32]CounterValue, error) {
	if table != 1 && table != 2 {
		return nil, fmt.Errorf("switchsdk: counter table must be 1 or 2, got %d", table)
	}
	return s.counters[table-1], nil
}

func (s *Sim) CounterRead(sess SessionHandle, table int, index uint32) (CounterValue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, err := s.counterTable(table)
	if err != nil {
		return CounterValue{}, err
	}
	return t[index], nil
}

func (s *Sim) CounterWrite(sess SessionHandle, table int, index uint32, value CounterValue) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, err := s.counterTable(table)
	if err != nil {
		return err
	}
	t[index] = value
	return nil
}

// SetCounter lets tests program the two hash-indexed counters a learned
// flow will be scored on (spec S4/S5 scenarios).
func (s *Sim) SetCounter(table int, index uint32, value CounterValue) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, err := s.counterTable(table)
	if err != nil {
		return
	}
	t[index] = value
}

func (s *Sim) BloomFilterWrite(sess SessionHandle, filter int, index uint32, value uint8) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if filter != 1 && filter != 2 {
		return fmt.Errorf("switchsdk: bloom filter must be 1 or 2, got %d", filter)
	}
	s.bloom[filter-1][index] = value
	return nil
}

// BloomBit reports the last value written to a bloom-filter register,
// used by tests to assert invariant 2 (registers cleared on eviction).
func (s *Sim) BloomBit(filter int, index uint32) (uint8, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if filter != 1 && filter != 2 {
		return 0, false
	}
	v, ok := s.bloom[filter-1][index]
	return v, ok
}

func (s *Sim) DigestRegister(sess SessionHandle, onDigest DigestHandler) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onDigest = onDigest
	return nil
}

// AckCount reports how many batches have had Ack called on them, for
// tests asserting the digest buffer is released after processing.
func (s *Sim) AckCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.acked
}

func (s *Sim) SetLearningTimeout(sess SessionHandle, microseconds uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.learningTimeoutUs = microseconds
	return nil
}

// InjectDigest simulates the data plane pushing a batch of learned
// flows. It runs the registered handler synchronously (the real SDK
// calls back from its own thread; tests that want to exercise the
// concurrency boundary should call this from a goroutine). It does not
// ack the batch itself: the handler releases it by calling batch.Ack,
// which AckCount then reports, mirroring the real callback/ack
// contract of spec §4.4.
func (s *Sim) InjectDigest(entries []DigestEntry) {
	s.mu.Lock()
	handler := s.onDigest
	s.mu.Unlock()

	if handler == nil {
		return
	}
	batch := DigestBatch{Entries: entries, ack: func() {
		s.mu.Lock()
		s.acked++
		s.mu.Unlock()
	}}
	handler(batch)
}
