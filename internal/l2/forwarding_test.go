// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package l2

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grimm.is/taepctl/internal/hwport"
	"grimm.is/taepctl/internal/logging"
	"grimm.is/taepctl/internal/switchsdk"
)

func TestConfigureForwarding_Bidirectional(t *testing.T) {
	// Mirrors spec scenario S1.
	sim := switchsdk.NewSim()
	sess, err := sim.SessionOpen(context.Background())
	require.NoError(t, err)
	logger := logging.New(logging.DefaultConfig())

	reg := hwport.New(sim, sess, logger)
	reg.ConfigurePorts(nil)
	dev1, err := reg.DevPortFor(1)
	require.NoError(t, err)
	dev2, err := reg.DevPortFor(2)
	require.NoError(t, err)

	mgr := New(sim, sess, reg, nil, logger)
	require.NoError(t, mgr.ConfigureForwarding(1, 2, true))

	entries := sim.ForwardEntries()
	require.Len(t, entries, 2)
	assert.Equal(t, dev1, entries[0].Ingress)
	assert.Equal(t, dev2, entries[0].Egress)
	assert.Equal(t, dev2, entries[1].Ingress)
	assert.Equal(t, dev1, entries[1].Egress)
}
