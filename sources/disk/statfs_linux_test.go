//: Copyright Verizon Media
//: Licensed under the terms of the Apache 2.0 License. See LICENSE file in the project root for terms.

//go:build linux

package disk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatfs(t *testing.T) {
	u, err := statfs(t.TempDir())
	require.NoError(t, err)
	assert.Greater(t, u.total, uint64(0))
	assert.LessOrEqual(t, u.avail, u.free)

	_, err = statfs("/not/exist/path")
	assert.Error(t, err)
}
