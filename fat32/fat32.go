// Package fat32 is the filesystem facade: mount a volume, read FAT
// entries, read clusters, walk cluster chains, and iterate directories.
//
// Grounded on drivers/fat/driverbase.go (readAbsoluteSectors, readCluster,
// listClusters, getClusterInChain, ReadDirFromDirent) for the shape of the
// read path, and on original_source/src/filesystem.rs (Fat32Fs,
// read_cluster_chain, DirectoryIterator) for the exact state machines
// spec.md §4.6 names. Unlike the teacher's FATDriver, which sits under a
// generic multi-filesystem Driver interface and supports writes, FS here
// only ever reads. ReadCluster fills a caller-supplied buffer; the other
// read paths allocate their own scratch space: ReadFATEntry one sector
// buffer per call, WalkChain one cluster buffer per call, and OpenDir one
// cluster buffer per iterator.
package fat32

import (
	"github.com/arlowen/fat32ro/blockdev"
	"github.com/arlowen/fat32ro/bootsector"
	"github.com/arlowen/fat32ro/dirent"
	"github.com/arlowen/fat32ro/fat"
	"github.com/arlowen/fat32ro/fat32err"
)

// MaxChainSteps bounds how many clusters WalkChain will visit before giving
// up on a chain, per spec.md §4.6 and §9. It caps the largest file this
// module can traverse at MaxChainSteps * ClusterSize() bytes; raise it only
// if you also raise the time budget you're willing to spend walking a
// corrupt volume. DirIterator does not apply this bound.
const MaxChainSteps = 100_000

// FS is a mounted FAT32 volume: a borrowed block device plus the geometry
// derived from its boot sector. It is immutable after Mount and safe to
// share between readers that don't need to run concurrently (spec.md §5).
type FS struct {
	device blockdev.BlockDevice
	geom   bootsector.Geometry
}

// Mount takes the boot sector in bootSectorBytes (which must be at least 512
// bytes, the first sector of device), decodes the BPB, derives the volume
// geometry, and returns a read-only handle. Mount does not itself read
// from device -- the caller is responsible for supplying sector 0's bytes,
// matching spec.md §4.6's precondition.
func Mount(device blockdev.BlockDevice, bootSectorBytes []byte) (*FS, error) {
	bpb, err := bootsector.DecodeBPB(bootSectorBytes)
	if err != nil {
		return nil, err
	}

	geom, err := bpb.Geometry()
	if err != nil {
		return nil, err
	}

	if sizer, ok := device.(blockdev.SectorSizer); ok {
		if sizer.SectorSize() != geom.BytesPerSector {
			return nil, fat32err.Newf(
				fat32err.InvalidBootSector,
				"device sector size %d does not match BPB bytes_per_sector %d",
				sizer.SectorSize(), geom.BytesPerSector)
		}
	}

	return &FS{device: device, geom: geom}, nil
}

// Geometry returns the volume's derived geometry.
func (fs *FS) Geometry() bootsector.Geometry {
	return fs.geom
}

// ClusterSize returns the size of one cluster in bytes: the minimum
// scratch buffer size every read operation on this FS requires.
func (fs *FS) ClusterSize() uint32 {
	return fs.geom.ClusterSizeBytes()
}

// RootCluster returns the first cluster of the root directory.
func (fs *FS) RootCluster() fat.Cluster {
	return fs.geom.RootCluster
}

func (fs *FS) readSector(lba blockdev.LBA, buf []byte) error {
	if err := fs.device.ReadSectors(lba, 1, buf); err != nil {
		return fat32err.FromBlockDeviceError(err)
	}
	return nil
}

// ReadFATEntry reads and classifies the FAT slot for cluster, per
// spec.md §4.6.
func (fs *FS) ReadFATEntry(cluster fat.Cluster) (fat.Entry, error) {
	if cluster < 2 {
		return 0, fat32err.InvalidClusterError(uint32(cluster), "cluster numbers below 2 are reserved")
	}

	fatByteOffset := uint64(cluster) * 4
	sector := fs.geom.FATStartLBA + blockdev.LBA(fatByteOffset/uint64(fs.geom.BytesPerSector))
	byteInSector := fatByteOffset % uint64(fs.geom.BytesPerSector)

	buf := make([]byte, fs.geom.BytesPerSector)
	if err := fs.readSector(sector, buf); err != nil {
		return 0, err
	}

	raw := uint32(buf[byteInSector]) |
		uint32(buf[byteInSector+1])<<8 |
		uint32(buf[byteInSector+2])<<16 |
		uint32(buf[byteInSector+3])<<24

	return fat.NewEntry(raw), nil
}

// ReadCluster reads the full contents of cluster into buf, which must be
// at least ClusterSize() bytes.
func (fs *FS) ReadCluster(cluster fat.Cluster, buf []byte) error {
	if cluster < 2 {
		return fat32err.InvalidClusterError(uint32(cluster), "cluster numbers below 2 are reserved")
	}

	clusterSize := fs.geom.ClusterSizeBytes()
	if uint32(len(buf)) < clusterSize {
		return fat32err.New(fat32err.BufferTooSmall)
	}

	lba := fs.geom.ClusterToLBA(cluster)
	if err := fs.device.ReadSectors(lba, fs.geom.SectorsPerCluster, buf); err != nil {
		return fat32err.FromBlockDeviceError(err)
	}
	return nil
}

// WalkChain implements spec.md §4.6's chain walker state machine:
// Reading(cluster) -> Visiting(cluster) -> Classifying(fat_entry) ->
// {Terminal, Reading(next)}.
//
// visit is called once per cluster in the chain, in order, with a
// scratch buffer of exactly ClusterSize() bytes that WalkChain owns and
// reuses -- visit must not retain it past the call. A free or bad slot
// encountered mid-chain ends the walk without error (truncation, spec.md
// §9 Open Question 1); a chain longer than MaxChainSteps ends it with
// InvalidCluster.
func (fs *FS) WalkChain(start fat.Cluster, visit func(fat.Cluster, []byte) error) error {
	buf := make([]byte, fs.geom.ClusterSizeBytes())

	current := start
	steps := 0

	for {
		if err := fs.ReadCluster(current, buf); err != nil {
			return err
		}
		if err := visit(current, buf); err != nil {
			return err
		}

		entry, err := fs.ReadFATEntry(current)
		if err != nil {
			return err
		}

		if entry.IsEnd() {
			return nil
		}

		next, ok := entry.NextCluster()
		if !ok {
			// Free or bad mid-chain: treat as truncation, not an error.
			return nil
		}

		steps++
		if steps >= MaxChainSteps {
			return fat32err.InvalidClusterError(
				uint32(next), "chain exceeds MaxChainSteps; likely corrupt or cyclic")
		}

		current = next
	}
}

// DirIterator streams the directory entries of one directory, one at a
// time, across cluster boundaries, per spec.md §4.6's
// Loaded -> Yielding/ChainAdvance -> Exhausted state machine. It is
// single-pass and not restartable; re-open with OpenDir to iterate again.
type DirIterator struct {
	fs         *FS
	cluster    fat.Cluster
	byteOffset uint32
	buf        []byte
	loaded     bool
	exhausted  bool
	err        error
}

// OpenDir begins iterating the directory rooted at start. The first
// cluster is not read until the first call to Next.
func (fs *FS) OpenDir(start fat.Cluster) *DirIterator {
	return &DirIterator{
		fs:      fs,
		cluster: start,
		buf:     make([]byte, fs.geom.ClusterSizeBytes()),
	}
}

// Next returns the next live directory entry, skipping deleted slots,
// long-name fragments, and the volume label. It returns (entry, true, nil)
// for each live entry, (zero, false, nil) once the directory is
// exhausted, and (zero, false, err) if a read fails.
func (it *DirIterator) Next() (dirent.Entry, bool, error) {
	if it.exhausted {
		return dirent.Entry{}, false, it.err
	}

	clusterSize := uint32(len(it.buf))

	if !it.loaded {
		if err := it.fs.ReadCluster(it.cluster, it.buf); err != nil {
			it.exhausted = true
			it.err = err
			return dirent.Entry{}, false, err
		}
		it.loaded = true
	}

	for {
		if it.byteOffset >= clusterSize {
			fatEntry, err := it.fs.ReadFATEntry(it.cluster)
			if err != nil {
				it.exhausted = true
				it.err = err
				return dirent.Entry{}, false, err
			}

			next, ok := fatEntry.NextCluster()
			if fatEntry.IsEnd() || !ok {
				it.exhausted = true
				return dirent.Entry{}, false, nil
			}

			it.cluster = next
			it.byteOffset = 0
			if err := it.fs.ReadCluster(it.cluster, it.buf); err != nil {
				it.exhausted = true
				it.err = err
				return dirent.Entry{}, false, err
			}
		}

		raw := it.buf[it.byteOffset : it.byteOffset+dirent.Size]
		entry := dirent.Decode(raw)
		it.byteOffset += dirent.Size

		if entry.IsEndMarker() {
			it.exhausted = true
			return dirent.Entry{}, false, nil
		}
		if entry.IsDeleted() || entry.IsLongName() || entry.IsVolumeLabel() {
			continue
		}

		return entry, true, nil
	}
}
