// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package hwport

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInterfaceName(t *testing.T) {
	assert.Equal(t, "swp3", InterfaceName(3))
}

func TestLinkState_UnknownInterfaceErrors(t *testing.T) {
	_, err := LinkState(999999)
	assert.Error(t, err, "no host interface should exist for an implausible chassis port number")
}
