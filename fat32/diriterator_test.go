package fat32_test

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arlowen/fat32ro/dirent"
	"github.com/arlowen/fat32ro/fat32"
	"github.com/arlowen/fat32ro/fat32test"
)

func fileEntry(name string, cluster uint32) []byte {
	raw := make([]byte, dirent.Size)
	copy(raw[0:8], []byte(name+"        ")[:8])
	copy(raw[8:11], []byte("TXT")[:3])
	raw[11] = dirent.AttrArchive
	binary.LittleEndian.PutUint16(raw[26:28], uint16(cluster))
	return raw
}

// TestDirIteratorCrossesClusterBoundary implements S6: a directory spanning
// clusters 100 -> 101 -> EOC, where cluster 100 holds 64 live entries, then
// 63 deleted entries, then one more live entry, and cluster 101 holds one
// live entry followed by the end marker. Iteration must yield exactly the
// 66 live entries in order, then stop.
func TestDirIteratorCrossesClusterBoundary(t *testing.T) {
	const bytesPerSector = 512
	const sectorsPerCluster = 8 // 4096-byte cluster (the MaxClusterBytes cap) == 128 entries of 32 bytes
	const clusterSize = bytesPerSector * sectorsPerCluster

	builder := fat32test.NewImageBuilder(t,
		bytesPerSector, sectorsPerCluster, 4, 1, 4, 2, 1024)

	cluster100 := make([]byte, clusterSize)
	for i := 0; i < 64; i++ {
		copy(cluster100[i*dirent.Size:(i+1)*dirent.Size], fileEntry("FILE", uint32(10+i)))
	}
	for i := 64; i < 127; i++ {
		entry := fileEntry("DELETED", uint32(200+i))
		entry[0] = 0xE5
		copy(cluster100[i*dirent.Size:(i+1)*dirent.Size], entry)
	}
	copy(cluster100[127*dirent.Size:128*dirent.Size], fileEntry("LAST100", 999))
	builder.WriteCluster(100, cluster100)

	cluster101 := make([]byte, clusterSize)
	copy(cluster101[0:dirent.Size], fileEntry("FIRST101", 1000))
	// Remaining bytes of cluster101 are already zero: the first zero name
	// byte terminates iteration.
	builder.WriteCluster(101, cluster101)

	builder.SetFATEntry(100, 101)
	builder.SetFATEntry(101, 0x0FFFFFFF)

	device := builder.Device()
	fs, err := fat32.Mount(device, builder.BootSector())
	require.NoError(t, err)

	it := fs.OpenDir(100)
	var names []string
	for {
		entry, ok, err := it.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
		names = append(names, entry.Name())
	}

	require.Len(t, names, 66)
	assert.Equal(t, "FILE.TXT", names[0])
	assert.Equal(t, "LAST100.TXT", names[64])
	assert.Equal(t, "FIRST101.TXT", names[65])
}
