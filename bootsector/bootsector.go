// Package bootsector decodes the FAT32 boot sector and derives the volume
// geometry every other package in this module relies on.
//
// Grounded on drivers/fat/common.go's NewFATBootSectorFromStream: like the
// teacher, this package decodes field-by-field with encoding/binary rather
// than punning an unsafe pointer over the raw bytes (spec.md §9, option a).
// Unlike the teacher, which supports FAT12/16/32 uniformly, this package
// only ever returns a volume if it's FAT32 -- anything else is NotFat32.
package bootsector

import (
	"bytes"
	"encoding/binary"
	"fmt"

	multierror "github.com/hashicorp/go-multierror"

	"github.com/arlowen/fat32ro/blockdev"
	"github.com/arlowen/fat32ro/fat"
	"github.com/arlowen/fat32ro/fat32err"
)

// MaxClusterBytes is the largest cluster size this module's no-heap scratch
// buffers can hold, per spec.md §5. Volumes whose cluster size exceeds this
// are rejected at mount.
const MaxClusterBytes = 4096

// bpbOffset is the fixed byte offset of the BPB within sector 0, as required
// by the FAT specification (after the jump instruction and OEM name).
const bpbOffset = 11

// rawBPB is the on-disk BIOS Parameter Block, starting at bpbOffset.
// Field order and widths come straight off the FAT32 spec; binary.Read
// consumes them sequentially regardless of Go's own struct alignment rules,
// so this is a safe, portable wire-format decoder.
type rawBPB struct {
	BytesPerSector    uint16
	SectorsPerCluster uint8
	ReservedSectors   uint16
	NumFATs           uint8
	RootEntryCount    uint16
	TotalSectors16    uint16
	Media             uint8
	FATSize16         uint16
	SectorsPerTrack   uint16
	NumHeads          uint16
	HiddenSectors     uint32
	TotalSectors32    uint32
	FATSize32         uint32
	ExtFlags          uint16
	FSVersion         uint16
	RootCluster       uint32
}

// BPB is the decoded BIOS Parameter Block: the subset of on-disk fields this
// module consumes, plus Media, which package mediatable looks up for
// display purposes.
type BPB struct {
	BytesPerSector    uint16
	SectorsPerCluster uint8
	ReservedSectors   uint16
	NumFATs           uint8
	FATSize16         uint16
	FATSize32         uint32
	RootCluster       uint32
	Media             uint8
}

// Geometry is the derived, immutable volume layout computed once at mount.
// See spec.md §3 for the invariants it satisfies.
type Geometry struct {
	FirstDataSector   blockdev.LBA
	FATStartLBA       blockdev.LBA
	RootCluster       fat.Cluster
	SectorsPerCluster uint32
	BytesPerSector    uint32
}

// ClusterToLBA maps a cluster number to its first logical sector, per
// spec.md §8 law 1: first_data_sector + (c-2)*sectors_per_cluster.
func (g Geometry) ClusterToLBA(cluster fat.Cluster) blockdev.LBA {
	return g.FirstDataSector + blockdev.LBA((uint32(cluster)-2)*g.SectorsPerCluster)
}

// ClusterSizeBytes returns the size of one cluster in bytes.
func (g Geometry) ClusterSizeBytes() uint32 {
	return g.SectorsPerCluster * g.BytesPerSector
}

// DecodeBPB verifies the boot sector signature, decodes the BPB at offset
// 11, and rejects anything that isn't FAT32.
//
// Multiple violations can be present in the same corrupt sector (e.g. a bad
// signature and a BPB that cannot be decoded at once); DecodeBPB collects
// every violation it finds with go-multierror before picking the single
// taxonomy error to return, folding the rest into that error's message.
// The geometry invariants (SectorsPerCluster, RootCluster, cluster size) are
// checked by Geometry, not here. The
// teacher lists go-multierror in go.mod but never imports it; this is the
// home this module gives it.
func DecodeBPB(sector []byte) (BPB, error) {
	var merr *multierror.Error

	if len(sector) < 512 {
		merr = multierror.Append(merr, fmt.Errorf("boot sector is %d bytes, need at least 512", len(sector)))
		return BPB{}, fat32err.Newf(fat32err.InvalidBootSector, "%s", merr.Error())
	}

	if sector[510] != 0x55 || sector[511] != 0xAA {
		merr = multierror.Append(merr, fmt.Errorf(
			"bad boot sector signature: got 0x%02X 0x%02X, want 0x55 0xAA",
			sector[510], sector[511]))
	}

	var raw rawBPB
	reader := bytes.NewReader(sector[bpbOffset:])
	if err := binary.Read(reader, binary.LittleEndian, &raw); err != nil {
		merr = multierror.Append(merr, err)
	}

	if merr.ErrorOrNil() != nil {
		return BPB{}, fat32err.Newf(fat32err.InvalidBootSector, "%s", merr.Error())
	}

	if raw.FATSize16 != 0 || raw.FATSize32 == 0 {
		return BPB{}, fat32err.Newf(
			fat32err.NotFat32,
			"fat_size_16=%d fat_size_32=%d: not a FAT32 BPB",
			raw.FATSize16, raw.FATSize32)
	}

	return BPB{
		BytesPerSector:    raw.BytesPerSector,
		SectorsPerCluster: raw.SectorsPerCluster,
		ReservedSectors:   raw.ReservedSectors,
		NumFATs:           raw.NumFATs,
		FATSize16:         raw.FATSize16,
		FATSize32:         raw.FATSize32,
		RootCluster:       raw.RootCluster,
		Media:             raw.Media,
	}, nil
}

// Geometry derives spec.md §3's Volume Geometry from a decoded BPB,
// checking every invariant it names.
func (b BPB) Geometry() (Geometry, error) {
	var merr *multierror.Error

	if b.SectorsPerCluster == 0 || (b.SectorsPerCluster&(b.SectorsPerCluster-1)) != 0 {
		merr = multierror.Append(merr, fmt.Errorf(
			"sectors_per_cluster must be a nonzero power of two, got %d", b.SectorsPerCluster))
	}

	if b.RootCluster < 2 {
		merr = multierror.Append(merr, fmt.Errorf(
			"root_cluster must be >= 2, got %d", b.RootCluster))
	}

	effectiveFATSize := uint32(b.FATSize16)
	if effectiveFATSize == 0 {
		effectiveFATSize = b.FATSize32
	}

	firstDataSector := uint32(b.ReservedSectors) + uint32(b.NumFATs)*effectiveFATSize

	clusterBytes := uint32(b.SectorsPerCluster) * uint32(b.BytesPerSector)
	if clusterBytes > MaxClusterBytes {
		merr = multierror.Append(merr, fmt.Errorf(
			"cluster size %d bytes exceeds the %d-byte cap", clusterBytes, MaxClusterBytes))
	}

	if merr.ErrorOrNil() != nil {
		return Geometry{}, fat32err.Newf(fat32err.InvalidBootSector, "%s", merr.Error())
	}

	return Geometry{
		FirstDataSector:   blockdev.LBA(firstDataSector),
		FATStartLBA:       blockdev.LBA(b.ReservedSectors),
		RootCluster:       fat.Cluster(b.RootCluster),
		SectorsPerCluster: uint32(b.SectorsPerCluster),
		BytesPerSector:    uint32(b.BytesPerSector),
	}, nil
}
