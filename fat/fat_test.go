package fat_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/arlowen/fat32ro/fat"
)

func TestNewEntryMasksTopFourBits(t *testing.T) {
	entry := fat.NewEntry(0xFFFFFFF8)
	assert.True(t, entry.IsEnd())
	_, ok := entry.NextCluster()
	assert.False(t, ok)
}

func TestEntryMaskedNextCluster(t *testing.T) {
	// raw bytes [0x05, 0x00, 0x00, 0xF0] little-endian == 0xF0000005.
	entry := fat.NewEntry(0xF0000005)
	next, ok := entry.NextCluster()
	assert.True(t, ok)
	assert.EqualValues(t, 5, next)
}

func TestEntryFree(t *testing.T) {
	entry := fat.NewEntry(0)
	assert.True(t, entry.IsFree())
	assert.False(t, entry.IsEnd())
	_, ok := entry.NextCluster()
	assert.False(t, ok)
}

func TestEntryReserved(t *testing.T) {
	entry := fat.NewEntry(1)
	assert.True(t, entry.IsReserved())
	_, ok := entry.NextCluster()
	assert.False(t, ok)
}

func TestEntryBad(t *testing.T) {
	entry := fat.NewEntry(0x0FFFFFF7)
	assert.True(t, entry.IsBad())
	_, ok := entry.NextCluster()
	assert.False(t, ok)
}

func TestEntryEndThreshold(t *testing.T) {
	assert.True(t, fat.NewEntry(0x0FFFFFF8).IsEnd())
	assert.True(t, fat.NewEntry(0x0FFFFFFF).IsEnd())
	assert.False(t, fat.NewEntry(0x0FFFFFF6).IsEnd())
}
