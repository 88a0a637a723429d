// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package flowlearn

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grimm.is/taepctl/internal/config"
	"grimm.is/taepctl/internal/hwport"
	"grimm.is/taepctl/internal/logging"
	"grimm.is/taepctl/internal/switchsdk"
)

func newTestLearner(t *testing.T) (*Learner, *switchsdk.Sim, switchsdk.SessionHandle) {
	t.Helper()
	sim := switchsdk.NewSim()
	sess, err := sim.SessionOpen(context.Background())
	require.NoError(t, err)
	logger := logging.New(logging.DefaultConfig())

	reg := hwport.New(sim, sess, logger)
	reg.ConfigurePorts([]config.Port{{Number: 1, Speed: 100}})

	l := New(sim, sess, reg, logger)
	require.NoError(t, sim.DigestRegister(sess, l.HandleDigest))
	return l, sim, sess
}

func threeDistinctEntries() []switchsdk.DigestEntry {
	return []switchsdk.DigestEntry{
		{SrcAddr: 1, SrcPort: 1000, DstAddr: 2, DstPort: 80, Protocol: 6, Hash1: 1, Hash2: 2},
		{SrcAddr: 1, SrcPort: 1001, DstAddr: 2, DstPort: 80, Protocol: 6, Hash1: 3, Hash2: 4},
		{SrcAddr: 1, SrcPort: 1002, DstAddr: 2, DstPort: 80, Protocol: 6, Hash1: 5, Hash2: 6},
	}
}

func TestStartFlowLearning_CapsArrivalsAndAppends(t *testing.T) {
	l, sim, _ := newTestLearner(t)

	require.NoError(t, l.StartFlowLearning(1, 2, 0, false))
	assert.True(t, l.IsRunning())

	sim.InjectDigest(threeDistinctEntries())

	assert.Equal(t, uint32(3), l.CurrentNumberOfFlows())
	assert.Len(t, l.LearnedFlows(), 2, "third arrival should be dropped once cap is reached")
}

func TestHandleDigest_DropsZeroSrcPort(t *testing.T) {
	l, sim, _ := newTestLearner(t)
	require.NoError(t, l.StartFlowLearning(1, 10, 0, false))

	sim.InjectDigest([]switchsdk.DigestEntry{
		{SrcAddr: 1, SrcPort: 0, DstAddr: 2, DstPort: 80, Protocol: 6, Hash1: 1, Hash2: 2},
	})

	assert.Equal(t, uint32(0), l.CurrentNumberOfFlows())
	assert.Empty(t, l.LearnedFlows())
}

func TestStartFlowLearning_IdempotentWhileRunning(t *testing.T) {
	l, _, _ := newTestLearner(t)

	require.NoError(t, l.StartFlowLearning(1, 5, 0, false))
	require.NoError(t, l.StartFlowLearning(1, 99, 0, false))

	assert.Equal(t, uint32(5), l.capFlows, "second unbounded call while running must not reset the cap")
}

func TestWindowExpiry_ClearsFlowsAndResetsBloom(t *testing.T) {
	l, sim, sess := newTestLearner(t)

	require.NoError(t, l.StartFlowLearning(1, 10, 1, false))

	sim.InjectDigest([]switchsdk.DigestEntry{
		{SrcAddr: 1, SrcPort: 1000, DstAddr: 2, DstPort: 80, Protocol: 6, Hash1: 7, Hash2: 8},
	})
	require.NoError(t, sim.BloomFilterWrite(sess, 1, 7, 1))
	require.NoError(t, sim.BloomFilterWrite(sess, 2, 8, 1))

	require.Eventually(t, func() bool {
		return !l.IsRunning()
	}, 2*time.Second, 10*time.Millisecond)

	assert.Empty(t, l.LearnedFlows())
	assert.Equal(t, uint32(0), l.CurrentNumberOfFlows())

	v1, ok := sim.BloomBit(1, 7)
	require.True(t, ok)
	assert.Equal(t, uint8(0), v1)
	v2, ok := sim.BloomBit(2, 8)
	require.True(t, ok)
	assert.Equal(t, uint8(0), v2)
}

func TestGetLearnedFlowsAndReset_ClearsBloomForTakenFlows(t *testing.T) {
	l, sim, sess := newTestLearner(t)
	require.NoError(t, l.StartFlowLearning(1, 10, 0, true))

	sim.InjectDigest([]switchsdk.DigestEntry{
		{SrcAddr: 1, SrcPort: 1000, DstAddr: 2, DstPort: 80, Protocol: 6, Hash1: 11, Hash2: 12},
	})
	require.NoError(t, sim.BloomFilterWrite(sess, 1, 11, 1))
	require.NoError(t, sim.BloomFilterWrite(sess, 2, 12, 1))

	taken := l.GetLearnedFlowsAndReset()
	assert.Len(t, taken, 1)
	assert.Empty(t, l.LearnedFlows())

	v1, _ := sim.BloomBit(1, 11)
	assert.Equal(t, uint8(0), v1)
	v2, _ := sim.BloomBit(2, 12)
	assert.Equal(t, uint8(0), v2)
}

func TestStop_DoesNotTouchLearnedFlows(t *testing.T) {
	l, sim, _ := newTestLearner(t)
	require.NoError(t, l.StartFlowLearning(1, 10, 0, true))

	sim.InjectDigest([]switchsdk.DigestEntry{
		{SrcAddr: 1, SrcPort: 1000, DstAddr: 2, DstPort: 80, Protocol: 6, Hash1: 21, Hash2: 22},
	})

	l.Stop()

	assert.False(t, l.IsRunning())
	assert.Len(t, l.LearnedFlows(), 1, "Stop must not clear the learned set")
}
