// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package hhd

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grimm.is/taepctl/internal/flowlearn"
	"grimm.is/taepctl/internal/l2"
	"grimm.is/taepctl/internal/logging"
	"grimm.is/taepctl/internal/switchsdk"
)

// identityResolver treats chassis port numbers as dev ports directly,
// mirroring spec scenario S4/S5's dev(10), dev(11) notation.
type identityResolver struct{}

func (identityResolver) DevPortFor(chassisPort uint32) (uint32, error) { return chassisPort, nil }

func newTestController(t *testing.T) (*Controller, *switchsdk.Sim, switchsdk.SessionHandle, *flowlearn.Learner) {
	t.Helper()
	sim := switchsdk.NewSim()
	sess, err := sim.SessionOpen(context.Background())
	require.NoError(t, err)
	logger := logging.New(logging.DefaultConfig())

	l2mgr := l2.New(sim, sess, identityResolver{}, nil, logger)
	learner := flowlearn.New(sim, sess, identityResolver{}, logger)
	require.NoError(t, sim.DigestRegister(sess, learner.HandleDigest))

	c := New(sim, sess, learner, l2mgr, logger, 4, 1)
	return c, sim, sess, learner
}

func fourDistinctFlows() []switchsdk.DigestEntry {
	return []switchsdk.DigestEntry{
		{SrcAddr: 0x0A000001, SrcPort: 1, DstAddr: 2, DstPort: 80, Protocol: 6, Hash1: 1, Hash2: 11},
		{SrcAddr: 0x0A000002, SrcPort: 2, DstAddr: 2, DstPort: 80, Protocol: 6, Hash1: 2, Hash2: 12},
		{SrcAddr: 0x0A000003, SrcPort: 3, DstAddr: 2, DstPort: 80, Protocol: 6, Hash1: 3, Hash2: 13},
		{SrcAddr: 0x0A000004, SrcPort: 4, DstAddr: 2, DstPort: 80, Protocol: 6, Hash1: 4, Hash2: 14},
	}
}

// programCountersSoF3Wins gives flow F3 (Hash1=3, Hash2=13) a
// min(packets) of 100 and every other flow at most 50, per spec
// scenario S4.
func programCountersSoF3Wins(sim *switchsdk.Sim) {
	sim.SetCounter(1, 1, switchsdk.CounterValue{Packets: 50})
	sim.SetCounter(2, 11, switchsdk.CounterValue{Packets: 50})
	sim.SetCounter(1, 2, switchsdk.CounterValue{Packets: 50})
	sim.SetCounter(2, 12, switchsdk.CounterValue{Packets: 50})
	sim.SetCounter(1, 3, switchsdk.CounterValue{Packets: 100})
	sim.SetCounter(2, 13, switchsdk.CounterValue{Packets: 100})
	sim.SetCounter(1, 4, switchsdk.CounterValue{Packets: 50})
	sim.SetCounter(2, 14, switchsdk.CounterValue{Packets: 50})
}

func TestPickHHD_ElectsHeaviestAndSkipsReinstallWhenUnchanged(t *testing.T) {
	c, sim, sess, learner := newTestController(t)

	require.NoError(t, learner.StartFlowLearning(10, 4, 0, true))
	sim.InjectDigest(fourDistinctFlows())
	programCountersSoF3Wins(sim)

	c.RunHHDDivert(10, 11, l2.DivertIPSrc)
	c.pickHHD()

	heavy, ok := c.LastHeavyFlow()
	require.True(t, ok)
	assert.Equal(t, uint32(0x0A000003), heavy.SrcAddr)

	h, ok2, err := sim.DivertGetFirstEntryHandle(sess)
	require.NoError(t, err)
	require.True(t, ok2)
	match, priority, action, err := sim.DivertGetEntry(sess, h)
	require.NoError(t, err)
	assert.Equal(t, uint32(0x0A000003), match.SrcIPv4)
	assert.Equal(t, uint32(0xFFFFFFFF), match.SrcMask)
	assert.Equal(t, l2.PriorityAuto, priority)
	assert.Equal(t, uint32(11), action.EgressDevPort)

	// Re-inject the same four flows with the same counter layout and
	// tick again: last_heavy_flow is unchanged, so no second divert
	// entry should appear.
	require.NoError(t, learner.StartFlowLearning(10, 4, 0, true))
	sim.InjectDigest(fourDistinctFlows())
	programCountersSoF3Wins(sim)
	c.pickHHD()

	count2, err := sim.DivertGetEntryCount(sess)
	require.NoError(t, err)
	assert.Equal(t, 1, count2, "unchanged election must not reinstall")
}

func TestPickHHD_FlapReinstallsOnNewWinner(t *testing.T) {
	c, sim, sess, learner := newTestController(t)

	require.NoError(t, learner.StartFlowLearning(10, 4, 0, true))
	sim.InjectDigest(fourDistinctFlows())
	programCountersSoF3Wins(sim)
	c.RunHHDDivert(10, 11, l2.DivertIPSrc)
	c.pickHHD()

	heavy, _ := c.LastHeavyFlow()
	assert.Equal(t, uint32(0x0A000003), heavy.SrcAddr)

	// Second tick: F4 now wins.
	require.NoError(t, learner.StartFlowLearning(10, 4, 0, true))
	sim.InjectDigest(fourDistinctFlows())
	sim.SetCounter(1, 3, switchsdk.CounterValue{Packets: 10})
	sim.SetCounter(2, 13, switchsdk.CounterValue{Packets: 10})
	sim.SetCounter(1, 4, switchsdk.CounterValue{Packets: 200})
	sim.SetCounter(2, 14, switchsdk.CounterValue{Packets: 200})
	c.pickHHD()

	heavy, ok := c.LastHeavyFlow()
	require.True(t, ok)
	assert.Equal(t, uint32(0x0A000004), heavy.SrcAddr)

	count, err := sim.DivertGetEntryCount(sess)
	require.NoError(t, err)
	assert.Equal(t, 1, count, "flap must replace, not add to, the auto-divert")

	h, _, err := sim.DivertGetFirstEntryHandle(sess)
	require.NoError(t, err)
	match, _, _, err := sim.DivertGetEntry(sess, h)
	require.NoError(t, err)
	assert.Equal(t, uint32(0x0A000004), match.SrcIPv4)
}

func TestPickHHD_DivertOffSkipsElection(t *testing.T) {
	c, sim, _, learner := newTestController(t)
	require.NoError(t, learner.StartFlowLearning(10, 4, 0, true))
	sim.InjectDigest(fourDistinctFlows())
	programCountersSoF3Wins(sim)

	c.pickHHD()

	_, ok := c.LastHeavyFlow()
	assert.False(t, ok)
}

func TestResetHHD_ClearsStateAndDivert(t *testing.T) {
	c, sim, sess, learner := newTestController(t)
	require.NoError(t, learner.StartFlowLearning(10, 4, 0, true))
	sim.InjectDigest(fourDistinctFlows())
	programCountersSoF3Wins(sim)
	c.RunHHDDivert(10, 11, l2.DivertIPSrc)
	c.pickHHD()

	require.NoError(t, c.ResetHHD())

	_, ok := c.LastHeavyFlow()
	assert.False(t, ok)
	count, err := sim.DivertGetEntryCount(sess)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}
