package fat32_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arlowen/fat32ro/fat"
	"github.com/arlowen/fat32ro/fat32"
	"github.com/arlowen/fat32ro/fat32err"
	"github.com/arlowen/fat32ro/fat32test"
)

// newTestVolume builds a minimal one-FAT-copy-readable FAT32 image: 512-byte
// sectors, 1 sector per cluster, 4 reserved sectors, 1 FAT of 2 sectors,
// root directory at cluster 2.
func newTestVolume(t *testing.T) (*fat32.FS, *fat32test.ImageBuilder) {
	t.Helper()
	builder := fat32test.NewImageBuilder(t,
		512, // bytesPerSector
		1,   // sectorsPerCluster
		4,   // reservedSectors
		1,   // numFATs
		2,   // fatSize32 (sectors)
		2,   // rootCluster
		64,  // totalSectors
	)

	device := builder.Device()
	fs, err := fat32.Mount(device, builder.BootSector())
	require.NoError(t, err)
	return fs, builder
}

func TestMountRejectsBadSignature(t *testing.T) {
	device := fat32test.NewMemoryBlockDevice(make([]byte, 512*64), 512)
	_, err := fat32.Mount(device, make([]byte, 512))
	require.Error(t, err)
	assert.ErrorIs(t, err, fat32err.ErrInvalidBootSector)
}

func TestReadFATEntryRejectsReservedClusters(t *testing.T) {
	fs, _ := newTestVolume(t)

	_, err := fs.ReadFATEntry(0)
	assert.ErrorIs(t, err, fat32err.ErrInvalidCluster)

	_, err = fs.ReadFATEntry(1)
	assert.ErrorIs(t, err, fat32err.ErrInvalidCluster)
}

func TestReadClusterRejectsSmallBuffer(t *testing.T) {
	fs, _ := newTestVolume(t)

	buf := make([]byte, fs.ClusterSize()-1)
	err := fs.ReadCluster(2, buf)
	assert.ErrorIs(t, err, fat32err.ErrBufferTooSmall)
}

func TestWalkChainVisitsInOrder(t *testing.T) {
	// S5: entry[2]=3, entry[3]=4, entry[4]=0x0FFFFFFF.
	fs, builder := newTestVolume(t)
	builder.SetFATEntry(2, 3)
	builder.SetFATEntry(3, 4)
	builder.SetFATEntry(4, 0x0FFFFFFF)

	// Re-mount so the freshly written FAT is what's read.
	device := builder.Device()
	fs, err := fat32.Mount(device, builder.BootSector())
	require.NoError(t, err)

	var visited []fat.Cluster
	err = fs.WalkChain(2, func(c fat.Cluster, _ []byte) error {
		visited = append(visited, c)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []fat.Cluster{2, 3, 4}, visited)
}

func TestWalkChainTruncatesOnFreeSlot(t *testing.T) {
	builder := fat32test.NewImageBuilder(t, 512, 1, 4, 1, 2, 2, 64)
	builder.SetFATEntry(2, 3)
	builder.SetFATEntry(3, 0) // free: truncation, not an error

	device := builder.Device()
	fs, err := fat32.Mount(device, builder.BootSector())
	require.NoError(t, err)

	var visited []fat.Cluster
	err = fs.WalkChain(2, func(c fat.Cluster, _ []byte) error {
		visited = append(visited, c)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []fat.Cluster{2, 3}, visited)
}
