// Package fat32test provides in-memory test fixtures for the rest of this
// module: a BlockDevice backed by a plain byte slice, and helpers for
// assembling synthetic FAT32 images byte-by-byte.
//
// Grounded on testing/images.go, which wraps a byte slice in
// github.com/xaionaro-go/bytesextra.NewReadWriteSeeker to produce an
// io.ReadWriteSeeker disk image for tests. This package does the same, then
// adapts the result to blockdev.BlockDevice's single ReadSectors method
// instead of the teacher's full read/write stream interface -- this module
// never writes to a mounted volume.
package fat32test

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/bytesextra"

	"github.com/arlowen/fat32ro/blockdev"
	"github.com/arlowen/fat32ro/utilities/compression"
)

// MemoryBlockDevice is a blockdev.BlockDevice backed by an in-memory byte
// slice, for tests.
type MemoryBlockDevice struct {
	reader interface {
		ReadAt(p []byte, off int64) (int, error)
	}
	sectorSize  uint32
	totalBlocks uint32
}

// NewMemoryBlockDevice wraps raw image bytes in a bytesextra ReadWriteSeeker
// the same way testing/images.go does, then exposes it as a BlockDevice.
func NewMemoryBlockDevice(image []byte, sectorSize uint32) *MemoryBlockDevice {
	rws := bytesextra.NewReadWriteSeeker(image)
	return &MemoryBlockDevice{
		reader:      rws,
		sectorSize:  sectorSize,
		totalBlocks: uint32(len(image)) / sectorSize,
	}
}

// SectorSize implements blockdev.SectorSizer.
func (d *MemoryBlockDevice) SectorSize() uint32 {
	return d.sectorSize
}

// ReadSectors implements blockdev.BlockDevice.
func (d *MemoryBlockDevice) ReadSectors(lba blockdev.LBA, count uint32, buf []byte) error {
	if uint32(lba)+count > d.totalBlocks {
		return blockdev.NewOutOfBoundsError(
			"read of %d sectors at LBA %d exceeds %d-sector image", count, lba, d.totalBlocks)
	}

	need := int(count) * int(d.sectorSize)
	if len(buf) < need {
		return blockdev.NewIOError("buffer too small: have %d bytes, need %d", len(buf), need)
	}

	off := int64(lba) * int64(d.sectorSize)
	n, err := d.reader.ReadAt(buf[:need], off)
	if err != nil {
		return blockdev.NewIOError("%s", err.Error())
	}
	if n < need {
		return blockdev.NewIOError("short read: got %d bytes, wanted %d", n, need)
	}
	return nil
}

// ImageBuilder assembles a synthetic FAT32 image in memory for tests: a
// boot sector, numFATs FAT copies, and a data region, writing each cluster or FAT slot
// at its exact byte offset so tests can exercise real geometry math instead
// of a hand-rolled shortcut.
type ImageBuilder struct {
	t                 *testing.T
	bytesPerSector    uint32
	sectorsPerCluster uint32
	reservedSectors   uint32
	numFATs           uint32
	fatSize32         uint32
	rootCluster       uint32
	totalSectors      uint32
	image             []byte
}

// NewImageBuilder allocates a zeroed image of totalSectors sectors and
// stamps a minimal valid FAT32 boot sector into sector 0.
func NewImageBuilder(t *testing.T, bytesPerSector, sectorsPerCluster, reservedSectors, numFATs, fatSize32, rootCluster, totalSectors uint32) *ImageBuilder {
	b := &ImageBuilder{
		t:                 t,
		bytesPerSector:    bytesPerSector,
		sectorsPerCluster: sectorsPerCluster,
		reservedSectors:   reservedSectors,
		numFATs:           numFATs,
		fatSize32:         fatSize32,
		rootCluster:       rootCluster,
		totalSectors:      totalSectors,
		image:             make([]byte, uint64(totalSectors)*uint64(bytesPerSector)),
	}
	b.writeBootSector()
	return b
}

func (b *ImageBuilder) writeBootSector() {
	sector := b.image[:b.bytesPerSector]

	binary.LittleEndian.PutUint16(sector[11:13], uint16(b.bytesPerSector))
	sector[13] = byte(b.sectorsPerCluster)
	binary.LittleEndian.PutUint16(sector[14:16], uint16(b.reservedSectors))
	sector[16] = byte(b.numFATs)
	// RootEntryCount (17:19) stays 0, as required on FAT32.
	// TotalSectors16 (19:21) stays 0; we always populate TotalSectors32.
	sector[21] = 0xF8 // Media: fixed disk
	// FATSize16 (22:24) stays 0 -- this is what makes the volume FAT32.
	binary.LittleEndian.PutUint32(sector[32:36], b.totalSectors)
	binary.LittleEndian.PutUint32(sector[36:40], b.fatSize32)
	binary.LittleEndian.PutUint32(sector[44:48], b.rootCluster)

	sector[510] = 0x55
	sector[511] = 0xAA
}

// BootSector returns the raw first sector, ready to pass to
// bootsector.DecodeBPB.
func (b *ImageBuilder) BootSector() []byte {
	return b.image[:b.bytesPerSector]
}

// SetFATEntry writes a raw 32-bit FAT slot for the given cluster in every
// copy of the FAT (the spec only ever reads copy 0, but writing all of them
// keeps the fixture internally consistent).
func (b *ImageBuilder) SetFATEntry(cluster uint32, value uint32) {
	fatStart := uint64(b.reservedSectors) * uint64(b.bytesPerSector)
	fatBytes := uint64(b.fatSize32) * uint64(b.bytesPerSector)

	for copyIndex := uint64(0); copyIndex < uint64(b.numFATs); copyIndex++ {
		offset := fatStart + copyIndex*fatBytes + uint64(cluster)*4
		binary.LittleEndian.PutUint32(b.image[offset:offset+4], value)
	}
}

// WriteCluster copies data into the given cluster's region of the image.
// data must fit within one cluster.
func (b *ImageBuilder) WriteCluster(cluster uint32, data []byte) {
	clusterBytes := b.sectorsPerCluster * b.bytesPerSector
	require.LessOrEqual(b.t, len(data), int(clusterBytes), "fixture data larger than one cluster")

	firstDataSector := b.reservedSectors + b.numFATs*b.fatSize32
	lba := firstDataSector + (cluster-2)*b.sectorsPerCluster
	offset := uint64(lba) * uint64(b.bytesPerSector)
	copy(b.image[offset:offset+uint64(clusterBytes)], data)
}

// Bytes returns the finished image.
func (b *ImageBuilder) Bytes() []byte {
	return b.image
}

// Device wraps the finished image in a MemoryBlockDevice.
func (b *ImageBuilder) Device() *MemoryBlockDevice {
	return NewMemoryBlockDevice(b.image, b.bytesPerSector)
}

// LoadCompressedImage decompresses a gzip+RLE8-packed fixture (the format
// utilities/compression round-trips) into a MemoryBlockDevice of the given
// geometry. Grounded on testing/images.go's LoadDiskImage, which used the
// same compression package to unpack golden disk images for disko's
// driver tests; this module uses it for larger canned FAT32 volumes that
// would be unwieldy to build field-by-field with ImageBuilder.
func LoadCompressedImage(
	t *testing.T, compressedImageBytes []byte, sectorSize, totalSectors uint32,
) *MemoryBlockDevice {
	require.Greater(t, len(compressedImageBytes), 0, "compressed image is empty")

	imageBytes, err := compression.DecompressImageToBytes(bytes.NewReader(compressedImageBytes))
	require.NoError(t, err)
	require.Equal(
		t,
		int(totalSectors)*int(sectorSize),
		len(imageBytes),
		"uncompressed image is wrong size",
	)

	return NewMemoryBlockDevice(imageBytes, sectorSize)
}
