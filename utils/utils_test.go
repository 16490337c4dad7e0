package utils

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/crytic/medusa-geth/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHexStringToAddress(t *testing.T) {
	expected := common.HexToAddress("0x00000000000000000000000000000000000000ff")
	for _, s := range []string{"0x00000000000000000000000000000000000000ff", "00000000000000000000000000000000000000FF"} {
		address, err := HexStringToAddress(s)
		require.NoError(t, err)
		assert.Equal(t, expected, address)
	}

	// Short, long and malformed strings are rejected
	for _, s := range []string{"0xff", "0x" + common.Bytes2Hex(make([]byte, 21)), "0xzz00000000000000000000000000000000000000", ""} {
		_, err := HexStringToAddress(s)
		assert.Error(t, err, s)
	}
}

func TestSliceHelpers(t *testing.T) {
	values := []int{1, 2, 3, 4}
	assert.Equal(t, []int{2, 4}, SliceWhere(values, func(x int) bool { return x%2 == 0 }))
	assert.Empty(t, SliceWhere(values, func(x int) bool { return x > 4 }))
	assert.Equal(t, []int{2, 4, 6, 8}, SliceSelect(values, func(x int) int { return x * 2 }))
}

func TestCheckContextDone(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	assert.False(t, CheckContextDone(ctx))
	cancel()
	assert.True(t, CheckContextDone(ctx))
}

func TestCreateFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "logs")
	file, err := CreateFile(dir, "out.log")
	require.NoError(t, err)
	require.NoError(t, file.Close())
	assert.FileExists(t, filepath.Join(dir, "out.log"))

	// A file cannot be used as a directory
	_, err = CreateFile(filepath.Join(dir, "out.log"), "other.log")
	assert.Error(t, err)

	_, err = os.Stat(filepath.Join(dir, "other.log"))
	assert.True(t, os.IsNotExist(err))
}
